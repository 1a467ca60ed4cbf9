package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/dagflow/dag"
	apperrors "github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/logger"
	"github.com/kbukum/dagflow/server"
	"github.com/kbukum/dagflow/server/middleware"
	"github.com/kbukum/dagflow/sse"
	"github.com/kbukum/dagflow/supervisor"
	"github.com/kbukum/dagflow/validation"
)

// Handler serves the run API.
type Handler struct {
	sup    *supervisor.Supervisor
	events *sse.Handler
	auth   middleware.TokenValidator
	newID  func() string
	log    *logger.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithAuth requires a bearer token on every /v1 route and takes vote
// stakeholders from the token subject.
func WithAuth(v middleware.TokenValidator) Option {
	return func(h *Handler) { h.auth = v }
}

// WithEvents enables GET /v1/runs/:id/events.
func WithEvents(events *sse.Handler) Option {
	return func(h *Handler) { h.events = events }
}

// WithStreamIDs replaces the generator of event stream client suffixes.
func WithStreamIDs(fn func() string) Option {
	return func(h *Handler) { h.newID = fn }
}

// NewHandler creates the API handler.
func NewHandler(sup *supervisor.Supervisor, log *logger.Logger, opts ...Option) *Handler {
	h := &Handler{sup: sup, log: log.WithComponent("api"), newID: newStreamID}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the routes on r.
func (h *Handler) Register(r gin.IRouter) {
	v1 := r.Group("/v1")
	if h.auth != nil {
		v1.Use(middleware.Auth(middleware.AuthConfig{Validate: h.auth}))
	}

	v1.POST("/graphs/validate", h.ValidateGraph)

	runs := v1.Group("/runs")
	runs.POST("", h.SubmitRun)
	runs.GET("", h.ListRuns)
	runs.GET("/:id", h.GetRun)
	runs.GET("/:id/report", h.GetReport)
	runs.POST("/:id/cancel", h.CancelRun)
	runs.GET("/:id/pending", h.Pending)
	runs.GET("/:id/events", h.Events)

	tasks := runs.Group("/:id/tasks/:task")
	tasks.POST("/approve", h.Approve)
	tasks.POST("/reject", h.Reject)
	tasks.POST("/cancel", h.CancelTask)
	tasks.POST("/votes", h.Vote)
}

// readDocument parses the request body as a graph document in the format
// named by its content type. Includes cannot be resolved over HTTP.
func readDocument(c *gin.Context) (*dag.Document, error) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "request body too large", http.StatusRequestEntityTooLarge)
		}
		return nil, apperrors.Validation("could not read request body")
	}
	doc, err := dag.ParseDocument(data, dag.FormatFromContentType(c.ContentType()))
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if len(doc.Includes) > 0 {
		return nil, apperrors.InvalidInput("includes", "documents submitted over HTTP cannot include other files")
	}
	return doc, nil
}

// bindOptional decodes an optional JSON body into v and validates it. An
// empty body leaves v unchanged.
func bindOptional(c *gin.Context, v any) error {
	if c.Request.ContentLength == 0 {
		return validation.Validate(v)
	}
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.Validation("malformed JSON body: " + err.Error())
	}
	return validation.Validate(v)
}

// runParam returns the :id path parameter once it is a valid identifier.
func runParam(c *gin.Context) (string, error) {
	runID := c.Param("id")
	return runID, validation.New().Identifier("run_id", runID).Err()
}

// taskParams returns the :id and :task path parameters once both are valid
// identifiers.
func taskParams(c *gin.Context) (runID, taskID string, err error) {
	runID, taskID = c.Param("id"), c.Param("task")
	err = validation.New().
		Identifier("run_id", runID).
		Identifier("task_id", taskID).
		Err()
	return runID, taskID, err
}

func respondError(c *gin.Context, err error) {
	server.RespondWithError(c, err)
}
