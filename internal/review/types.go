package review

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a review ticket.
type Status string

const (
	StatusPending Status = "pending"
	StatusDecided Status = "decided"
	StatusExpired Status = "expired"
)

// Decision values a human can record for a review.
const (
	DecisionApprove   = "approve"
	DecisionReject    = "reject"
	DecisionEscalate  = "escalate"
	DecisionTerminate = "terminate"
)

// Review is a persisted human-review ticket. Created on submission, polled
// until decided or expired, never reused.
type Review struct {
	ID               string          `json:"id"`
	AgentID          string          `json:"agent_id"`
	TaskState        json.RawMessage `json:"task_state,omitempty"`
	ToolChoice       json.RawMessage `json:"tool_choice"`
	Status           Status          `json:"status"`
	Decision         string          `json:"decision,omitempty"`
	Explanation      string          `json:"explanation,omitempty"`
	ModifiedToolCall json.RawMessage `json:"modified_tool_call,omitempty"`
	DecidedBy        string          `json:"decided_by,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	ExpiresAt        time.Time       `json:"expires_at,omitempty"`
	DecidedAt        time.Time       `json:"decided_at,omitempty"`
}

// CreateInput contains fields needed to open a review ticket.
type CreateInput struct {
	AgentID    string
	TaskState  json.RawMessage
	ToolChoice json.RawMessage
	TTL        time.Duration
}

// DecideInput contains fields needed to decide a pending review.
type DecideInput struct {
	Decision         string
	Explanation      string
	ModifiedToolCall json.RawMessage
	DecidedBy        string
}
