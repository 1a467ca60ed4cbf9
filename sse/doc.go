// Package sse streams run events to HTTP clients as Server-Sent Events.
//
// A Hub owns the connected clients. Each client id has the form
// "run:<run_id>:<suffix>", so broadcasting to RunPattern(runID) reaches
// every stream that follows that run.
//
//	hub := sse.NewHub(log)
//	go hub.Run()
//	h := sse.NewHandler(hub, 0, log)
//	router.GET("/v1/runs/:id/events", func(c *gin.Context) {
//		h.Serve(c.Writer, c.Request, sse.RunClientID(c.Param("id"), uuid.NewString()))
//	})
package sse
