package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/dagflow/dag"
	apperrors "github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/server"
)

// SubmitResponse answers POST /v1/runs.
type SubmitResponse struct {
	RunID string        `json:"run_id"`
	Graph string        `json:"graph"`
	Tasks int           `json:"tasks"`
	State dag.RunStatus `json:"status"`
}

// ValidateResponse answers POST /v1/graphs/validate.
type ValidateResponse struct {
	Name   string     `json:"name"`
	Tasks  int        `json:"tasks"`
	Layers [][]string `json:"layers"`
}

// ReasonRequest is the optional body of cancel, approve and reject.
type ReasonRequest struct {
	Reason string `json:"reason" validate:"max=1024"`
}

// SubmitRun handles POST /v1/runs.
func (h *Handler) SubmitRun(c *gin.Context) {
	doc, err := readDocument(c)
	if err != nil {
		respondError(c, err)
		return
	}
	run, err := h.sup.SubmitDocument(c.Request.Context(), doc)
	if err != nil {
		respondError(c, withReason(err))
		return
	}
	snap := run.Snapshot()
	server.RespondCreated(c, SubmitResponse{
		RunID: run.ID(),
		Graph: run.Graph(),
		Tasks: len(snap.Tasks),
		State: snap.Status,
	})
}

// ValidateGraph handles POST /v1/graphs/validate.
func (h *Handler) ValidateGraph(c *gin.Context) {
	doc, err := readDocument(c)
	if err != nil {
		respondError(c, err)
		return
	}
	vg, err := doc.Compile()
	if err != nil {
		respondError(c, withReason(apperrors.GraphInvalid(err)))
		return
	}
	server.RespondOK(c, ValidateResponse{Name: doc.Name, Tasks: vg.Len(), Layers: vg.Layers()})
}

// ListRuns handles GET /v1/runs.
func (h *Handler) ListRuns(c *gin.Context) {
	server.RespondOK(c, h.sup.List(c.Request.Context()))
}

// GetRun handles GET /v1/runs/:id.
func (h *Handler) GetRun(c *gin.Context) {
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
	server.RespondOK(c, run)
}

// GetReport handles GET /v1/runs/:id/report.
func (h *Handler) GetReport(c *gin.Context) {
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
	server.RespondOK(c, run.Report())
}

// CancelRun handles POST /v1/runs/:id/cancel.
func (h *Handler) CancelRun(c *gin.Context) {
	var req ReasonRequest
	if err := bindOptional(c, &req); err != nil {
		respondError(c, err)
		return
	}
	runID, err := runParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.sup.Cancel(c.Request.Context(), runID, req.Reason); err != nil {
		respondError(c, err)
		return
	}
	server.RespondAccepted(c, gin.H{"run_id": runID})
}

// Pending handles GET /v1/runs/:id/pending.
func (h *Handler) Pending(c *gin.Context) {
	runID, err := runParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	reqs, err := h.sup.Pending(c.Request.Context(), runID)
	if err != nil {
		respondError(c, err)
		return
	}
	server.RespondOK(c, reqs)
}

// withReason copies the message of a graph validation cause into the
// response details.
func withReason(err error) error {
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Code != apperrors.ErrCodeGraphInvalid || appErr.Cause == nil {
		return err
	}
	return appErr.WithDetail("reason", appErr.Cause.Error())
}
