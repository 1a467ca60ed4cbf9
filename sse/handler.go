package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kbukum/dagflow/logger"
)

// DefaultKeepAlive is the interval of keep-alive comments. It stays below
// common proxy idle timeouts.
const DefaultKeepAlive = 30 * time.Second

// ConnectedEvent is the payload of the connected event.
type ConnectedEvent struct {
	ClientID string `json:"client_id"`
}

// Handler streams hub events to HTTP clients.
type Handler struct {
	hub       *Hub
	keepAlive time.Duration
	log       *logger.Logger
}

// NewHandler creates a handler. A keepAlive of zero uses DefaultKeepAlive.
func NewHandler(hub *Hub, keepAlive time.Duration, log *logger.Logger) *Handler {
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	return &Handler{hub: hub, keepAlive: keepAlive, log: log.WithComponent("sse")}
}

// Serve registers a client under clientID and streams its events until the
// request ends or the hub stops. initial events are written right after
// the connected event.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, clientID string, initial ...Event) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Event streams outlive the server's WriteTimeout.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.log.Debug("could not clear write deadline", logger.MergeWithError(logger.Fields("client_id", clientID), err))
	}

	client := NewClient(clientID, DefaultClientBuffer)
	if !h.hub.Register(client) {
		http.Error(w, "event hub is stopped", http.StatusServiceUnavailable)
		return
	}
	defer h.hub.Unregister(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	connected, _ := json.Marshal(ConnectedEvent{ClientID: clientID})
	WriteEvent(w, Event{Type: EventTypeConnected, Data: connected})
	for _, ev := range initial {
		WriteEvent(w, ev)
	}
	flusher.Flush()

	h.log.Debug("client connected", logger.Fields("client_id", clientID, "remote_addr", r.RemoteAddr))

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.log.Debug("client disconnected", logger.Fields("client_id", clientID))
			return
		case ev, ok := <-client.Events():
			if !ok {
				return
			}
			WriteEvent(w, ev)
			flusher.Flush()
		case <-ticker.C:
			_, _ = fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}

// WriteEvent writes ev in event stream framing.
func WriteEvent(w io.Writer, ev Event) {
	if ev.Type != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", ev.Data)
}
