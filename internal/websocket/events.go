package websocket

// Event types pushed to dashboard clients.
const (
	EventConnection       = "connection"
	EventDatasetLoaded    = "dataset:loaded"
	EventDatasetFailed    = "dataset:failed"
	EventCommentaryReady  = "commentary:ready"
	EventCommentaryFailed = "commentary:failed"
)

// Message is the envelope of every server-sent frame.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}
