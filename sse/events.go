package sse

// Stream-level event types. Run events use the dag event type names.
const (
	// EventTypeConnected is the first event of every stream.
	EventTypeConnected = "connected"
	// EventTypeSnapshot carries the run state at connection time.
	EventTypeSnapshot = "snapshot"
)

// RunClientID names a client that follows runID. suffix tells apart
// several clients of the same run.
func RunClientID(runID, suffix string) string {
	return "run:" + runID + ":" + suffix
}

// RunPattern matches every client following runID.
func RunPattern(runID string) string {
	return "run:" + runID + ":*"
}
