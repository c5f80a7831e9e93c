package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionSubmit   Action = "submit"
	ActionTime     Action = "time"
	ActionPing     Action = "ping"
)

// RequestPayload is the single client message shape; Answers is only
// meaningful for autosave and submit.
type RequestPayload struct {
	Action  Action            `json:"action"`
	Answers map[string]string `json:"answers,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError  Event = "error"
	EventSaved  Event = "saved"
	EventGraded Event = "graded"
	EventTime   Event = "time"
	EventPong   Event = "pong"
)

// SavedResponse acknowledges an autosave batch.
type SavedResponse struct {
	Event Event `json:"event"`
	Count int   `json:"count"`
}

// GradedResponse carries the final verdict after a submit.
type GradedResponse struct {
	Event  Event   `json:"event"`
	Status string  `json:"status"`
	Score  float64 `json:"score"`
}

// TimeResponse reports the server-side remaining time.
type TimeResponse struct {
	Event            Event   `json:"event"`
	RemainingSeconds float64 `json:"remaining_seconds"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
