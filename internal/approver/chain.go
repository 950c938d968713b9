package approver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wardenhq/warden/internal/audit"
	"github.com/wardenhq/warden/internal/toolcall"
)

// ErrTerminated signals a fatal, process-wide abort raised by a terminate
// decision. Callers must stop issuing approvals and propagate it immediately.
var ErrTerminated = errors.New("run terminated by approver")

const exhaustedExplanation = "No approver approved the tool call"

// Result is the terminal outcome of one approval pass.
type Result struct {
	Approved    bool
	Explanation string
	// Call is the final tool call: the original, or the replacement adopted
	// from an approve decision.
	Call toolcall.ToolCall
}

// Chain evaluates an ordered list of approvers against a single tool call.
// The first terminal decision wins; escalation falls through to the next
// approver. Chains hold no mutable state across passes, so one chain may
// serve concurrent approval flows.
type Chain struct {
	approvers []Approver
	notifier  Notifier
	audit     *audit.Writer
	now       func() time.Time
}

// NewChain builds a chain preserving the given approver order.
func NewChain(approvers ...Approver) *Chain {
	return &Chain{
		approvers: approvers,
		now:       time.Now,
	}
}

// SetNotifier attaches a decision announcement sink.
func (c *Chain) SetNotifier(n Notifier) {
	c.notifier = n
}

// SetAudit attaches an audit trail writer.
func (c *Chain) SetAudit(w *audit.Writer) {
	c.audit = w
}

// Evaluate runs one approval pass. It returns ErrTerminated when an approver
// aborts the run; every other condition resolves to a Result.
func (c *Chain) Evaluate(ctx context.Context, call toolcall.ToolCall, state TaskState) (Result, error) {
	current := call

	for _, a := range c.approvers {
		decision := a.Approve(ctx, current, state)
		explanation := strings.TrimSpace(decision.Explanation)
		slog.Debug("approver decision",
			"approver", a.Name(),
			"call_id", current.ID,
			"function", current.Function,
			"action", decision.Action,
		)

		switch decision.Action {
		case ActionApprove:
			if decision.Replacement != nil {
				current = decision.Replacement.Clone()
			}
			c.appendAuditEvent(a.Name(), "approve", current, explanation)
			c.notifyApproved(current, explanation)
			return Result{Approved: true, Explanation: explanation, Call: current}, nil

		case ActionReject:
			c.appendAuditEvent(a.Name(), "reject", current, explanation)
			c.notifyRejected(current, explanation)
			return Result{Approved: false, Explanation: explanation, Call: current}, nil

		case ActionTerminate:
			c.appendAuditEvent(a.Name(), "terminate", current, explanation)
			c.notifyTerminated(explanation)
			if explanation == "" {
				return Result{}, ErrTerminated
			}
			return Result{}, fmt.Errorf("%w: %s", ErrTerminated, explanation)

		case ActionEscalate:
			c.appendAuditEvent(a.Name(), "escalate", current, explanation)
			c.notifyEscalated(current, explanation)

		default:
			// An unknown action is never trusted into an approval.
			msg := fmt.Sprintf("unknown decision action: %s", decision.Action)
			c.appendAuditEvent(a.Name(), "escalate", current, msg)
			c.notifyEscalated(current, msg)
		}
	}

	c.appendAuditEvent("chain", "reject", current, exhaustedExplanation)
	c.notifyRejected(current, exhaustedExplanation)
	return Result{Approved: false, Explanation: exhaustedExplanation, Call: current}, nil
}

func (c *Chain) appendAuditEvent(approver, decision string, call toolcall.ToolCall, explanation string) {
	if c.audit == nil {
		return
	}

	event := audit.Event{
		Time:     c.now().UTC(),
		Type:     "decision",
		CallID:   call.ID,
		Tool:     call.Function,
		Approver: approver,
		Decision: decision,
		Result:   explanation,
	}
	if err := c.audit.Append(event); err != nil {
		slog.Warn("failed to append audit event", "approver", approver, "decision", decision, "error", err)
	}
}

func (c *Chain) notifyApproved(call toolcall.ToolCall, explanation string) {
	if c.notifier != nil {
		c.notifier.Approved(call, explanation)
	}
}

func (c *Chain) notifyRejected(call toolcall.ToolCall, explanation string) {
	if c.notifier != nil {
		c.notifier.Rejected(call, explanation)
	}
}

func (c *Chain) notifyEscalated(call toolcall.ToolCall, explanation string) {
	if c.notifier != nil {
		c.notifier.Escalated(call, explanation)
	}
}

func (c *Chain) notifyTerminated(explanation string) {
	if c.notifier != nil {
		c.notifier.Terminated(explanation)
	}
}
