package api

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/server"
	"github.com/kbukum/dagflow/server/middleware"
)

// VoteRequest is the body of POST /v1/runs/:id/tasks/:task/votes.
// Stakeholder is ignored in favour of the token subject when
// authentication is enabled, and may be omitted then.
type VoteRequest struct {
	Stakeholder string `json:"stakeholder"`
	Approved    *bool  `json:"approved" validate:"required"`
}

// SignalResponse acknowledges a delivered signal.
type SignalResponse struct {
	RunID  string `json:"run_id"`
	TaskID string `json:"task_id"`
	Signal string `json:"signal"`
}

type signalFunc func(c *gin.Context, runID, taskID, reason string) error

func (h *Handler) signal(name string, fn signalFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReasonRequest
		if err := bindOptional(c, &req); err != nil {
			respondError(c, err)
			return
		}
		runID, taskID, err := taskParams(c)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := fn(c, runID, taskID, req.Reason); err != nil {
			respondError(c, err)
			return
		}
		server.RespondAccepted(c, SignalResponse{RunID: runID, TaskID: taskID, Signal: name})
	}
}

// Approve handles POST /v1/runs/:id/tasks/:task/approve.
func (h *Handler) Approve(c *gin.Context) {
	h.signal("approve", func(c *gin.Context, runID, taskID, reason string) error {
		return h.sup.Approve(c.Request.Context(), runID, taskID, h.withActor(c, reason))
	})(c)
}

// Reject handles POST /v1/runs/:id/tasks/:task/reject.
func (h *Handler) Reject(c *gin.Context) {
	h.signal("reject", func(c *gin.Context, runID, taskID, reason string) error {
		return h.sup.Reject(c.Request.Context(), runID, taskID, h.withActor(c, reason))
	})(c)
}

// CancelTask handles POST /v1/runs/:id/tasks/:task/cancel.
func (h *Handler) CancelTask(c *gin.Context) {
	h.signal("cancel", func(c *gin.Context, runID, taskID, reason string) error {
		return h.sup.CancelTask(c.Request.Context(), runID, taskID, h.withActor(c, reason))
	})(c)
}

// Vote handles POST /v1/runs/:id/tasks/:task/votes.
func (h *Handler) Vote(c *gin.Context) {
	var req VoteRequest
	if err := bindOptional(c, &req); err != nil {
		respondError(c, err)
		return
	}

	stakeholder := req.Stakeholder
	if h.auth != nil {
		subject := middleware.Subject(c)
		if stakeholder != "" && stakeholder != subject {
			respondError(c, apperrors.Forbidden("cannot vote on behalf of another stakeholder"))
			return
		}
		stakeholder = subject
	}
	if stakeholder == "" {
		respondError(c, apperrors.MissingField("stakeholder"))
		return
	}

	runID, taskID, err := taskParams(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.sup.Vote(c.Request.Context(), runID, taskID, stakeholder, *req.Approved); err != nil {
		respondError(c, err)
		return
	}
	server.RespondAccepted(c, SignalResponse{RunID: runID, TaskID: taskID, Signal: "vote"})
}

// withActor prefixes reason with the authenticated caller.
func (h *Handler) withActor(c *gin.Context, reason string) string {
	subject := middleware.Subject(c)
	switch {
	case subject == "":
		return reason
	case reason == "":
		return "by " + subject
	default:
		return reason + " (by " + subject + ")"
	}
}
