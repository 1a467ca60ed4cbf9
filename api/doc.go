// Package api exposes the supervisor over HTTP.
//
//	POST /v1/runs                            submit a graph document (JSON, YAML or TOML)
//	GET  /v1/runs                            list runs executing in this process
//	GET  /v1/runs/:id                        run state
//	GET  /v1/runs/:id/report                 run report
//	POST /v1/runs/:id/cancel                 cancel a run
//	GET  /v1/runs/:id/pending                decisions waiting for a signal
//	POST /v1/runs/:id/tasks/:task/approve    confirm a Confirmed task
//	POST /v1/runs/:id/tasks/:task/reject     reject a Confirmed task
//	POST /v1/runs/:id/tasks/:task/cancel     withdraw a task from its decision
//	POST /v1/runs/:id/tasks/:task/votes      vote on an Arbitrated task
//	GET  /v1/runs/:id/events                 event stream of a run
//	POST /v1/graphs/validate                 validate a document and return its layers
//
// Errors use the errors.ErrorResponse envelope. When authentication is
// enabled the stakeholder of a vote is the token subject.
package api
