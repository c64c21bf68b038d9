package types

import "time"

const (
	EventTypeReasoning = "reasoning"
	EventTypeComplete  = "complete"
	EventTypeError     = "error"
)

// StreamEvent is one server-pushed event of the streaming chat variant.
type StreamEvent struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	EventID   string      `json:"event_id"`
	IsFinal   bool        `json:"is_final,omitempty"`
}

// ReasoningStep is the payload of a reasoning event.
type ReasoningStep struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}
