package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/sse"
)

func newStreamID() string { return uuid.NewString() }

// Events handles GET /v1/runs/:id/events. The stream opens with a snapshot
// of the run. Runs not executing in this process get the snapshot only.
func (h *Handler) Events(c *gin.Context) {
	runID, err := runParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	run, err := h.sup.Status(c.Request.Context(), runID)
	if err != nil {
		respondError(c, err)
		return
	}
	if h.events == nil {
		respondError(c, apperrors.ServiceUnavailable("event streaming"))
		return
	}
	data, err := json.Marshal(run)
	if err != nil {
		respondError(c, apperrors.Internal(err))
		return
	}
	snapshot := sse.Event{Type: sse.EventTypeSnapshot, Data: data}

	if _, active := h.sup.Handle(runID); !active {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Status(http.StatusOK)
		sse.WriteEvent(c.Writer, snapshot)
		return
	}
	h.events.Serve(c.Writer, c.Request, sse.RunClientID(runID, h.newID()), snapshot)
}
