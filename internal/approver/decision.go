package approver

import (
	"context"

	"github.com/wardenhq/warden/internal/toolcall"
)

// Action is the decision an approver takes for a tool call.
type Action string

const (
	ActionApprove   Action = "approve"
	ActionReject    Action = "reject"
	ActionEscalate  Action = "escalate"
	ActionTerminate Action = "terminate"
)

// Decision is the outcome of one approver for one tool call. Replacement is
// honored only on approve; it must be a fully formed tool call with the same
// function contract the executor expects.
type Decision struct {
	Action      Action
	Explanation string
	Replacement *toolcall.ToolCall
}

// Approved builds an approve decision.
func Approved(explanation string) Decision {
	return Decision{Action: ActionApprove, Explanation: explanation}
}

// ApprovedWith builds an approve decision carrying a replacement tool call.
func ApprovedWith(explanation string, replacement toolcall.ToolCall) Decision {
	return Decision{Action: ActionApprove, Explanation: explanation, Replacement: &replacement}
}

// Rejected builds a reject decision.
func Rejected(explanation string) Decision {
	return Decision{Action: ActionReject, Explanation: explanation}
}

// Escalated builds an escalate decision, deferring to the next approver.
func Escalated(explanation string) Decision {
	return Decision{Action: ActionEscalate, Explanation: explanation}
}

// Terminated builds a terminate decision, a fatal process-wide abort.
func Terminated(explanation string) Decision {
	return Decision{Action: ActionTerminate, Explanation: explanation}
}

// TaskState supplies the execution-context snapshot that accompanies review
// requests. Implementations are read-only to the approval chain.
type TaskState interface {
	Snapshot() map[string]any
}

// Approver is a single decision-making unit in the approval chain.
type Approver interface {
	Name() string
	Approve(ctx context.Context, call toolcall.ToolCall, state TaskState) Decision
}

// Notifier receives human-readable decision announcements. Fire-and-forget;
// nothing it does feeds back into decisions.
type Notifier interface {
	Approved(call toolcall.ToolCall, explanation string)
	Rejected(call toolcall.ToolCall, explanation string)
	Escalated(call toolcall.ToolCall, explanation string)
	Terminated(explanation string)
}
