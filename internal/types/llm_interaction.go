package types

import (
	"time"

	"github.com/google/uuid"
)

// LlmInteraction is the audit record of one completion call. It carries
// metadata only; prompt and reply text are never stored.
type LlmInteraction struct {
	ID             uuid.UUID `json:"id"`
	RequestID      string    `json:"request_id,omitempty"`
	Step           string    `json:"step"`
	Provider       string    `json:"provider"`
	ModelUsed      string    `json:"model_used"`
	QueryType      QueryType `json:"query_type"`
	Temperature    float32   `json:"temperature"`
	PromptLength   int       `json:"prompt_length"`
	ResponseLength int       `json:"response_length"`
	LatencyMs      int       `json:"latency_ms"`
	Success        bool      `json:"success"`
	CreatedAt      time.Time `json:"created_at"`
}
