package approver

import (
	"context"
	"errors"
	"testing"

	"github.com/wardenhq/warden/internal/toolcall"
)

type scriptedApprover struct {
	name     string
	decision Decision
	calls    int
}

func (s *scriptedApprover) Name() string { return s.name }

func (s *scriptedApprover) Approve(_ context.Context, _ toolcall.ToolCall, _ TaskState) Decision {
	s.calls++
	return s.decision
}

type recordingNotifier struct {
	approved   []string
	rejected   []string
	escalated  []string
	terminated []string
}

func (r *recordingNotifier) Approved(_ toolcall.ToolCall, explanation string) {
	r.approved = append(r.approved, explanation)
}

func (r *recordingNotifier) Rejected(_ toolcall.ToolCall, explanation string) {
	r.rejected = append(r.rejected, explanation)
}

func (r *recordingNotifier) Escalated(_ toolcall.ToolCall, explanation string) {
	r.escalated = append(r.escalated, explanation)
}

func (r *recordingNotifier) Terminated(explanation string) {
	r.terminated = append(r.terminated, explanation)
}

func TestChainFirstApprovalWins(t *testing.T) {
	first := &scriptedApprover{name: "first", decision: Approved("looks fine")}
	second := &scriptedApprover{name: "second", decision: Rejected("never reached")}

	chain := NewChain(first, second)
	result, err := chain.Evaluate(context.Background(), bashCall("ls"), nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !result.Approved {
		t.Fatalf("expected approval: %+v", result)
	}
	if result.Explanation != "looks fine" {
		t.Fatalf("unexpected explanation: %q", result.Explanation)
	}
	if second.calls != 0 {
		t.Fatal("approval must short-circuit the chain")
	}
}

func TestChainRejectShortCircuits(t *testing.T) {
	first := &scriptedApprover{name: "first", decision: Rejected("nope")}
	second := &scriptedApprover{name: "second", decision: Approved("never reached")}

	chain := NewChain(first, second)
	result, err := chain.Evaluate(context.Background(), bashCall("ls"), nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Approved {
		t.Fatal("expected rejection")
	}
	if result.Explanation != "nope" {
		t.Fatalf("unexpected explanation: %q", result.Explanation)
	}
	if second.calls != 0 {
		t.Fatal("rejection must short-circuit the chain")
	}
}

func TestChainEscalationFallsThrough(t *testing.T) {
	first := &scriptedApprover{name: "first", decision: Escalated("not my call")}
	second := &scriptedApprover{name: "second", decision: Approved("fine by me")}

	notifier := &recordingNotifier{}
	chain := NewChain(first, second)
	chain.SetNotifier(notifier)

	result, err := chain.Evaluate(context.Background(), bashCall("ls"), nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !result.Approved {
		t.Fatalf("expected approval from second approver: %+v", result)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Fatalf("expected each approver called once, got %d/%d", first.calls, second.calls)
	}
	if len(notifier.escalated) != 1 || len(notifier.approved) != 1 {
		t.Fatalf("unexpected notifications: %+v", notifier)
	}
}

func TestChainExhaustionRejects(t *testing.T) {
	first := &scriptedApprover{name: "first", decision: Escalated("pass")}
	second := &scriptedApprover{name: "second", decision: Escalated("pass")}

	chain := NewChain(first, second)
	result, err := chain.Evaluate(context.Background(), bashCall("ls"), nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Approved {
		t.Fatal("exhausted chain must reject")
	}
	if result.Explanation != "No approver approved the tool call" {
		t.Fatalf("unexpected explanation: %q", result.Explanation)
	}
}

func TestChainEmptyRejects(t *testing.T) {
	chain := NewChain()
	result, err := chain.Evaluate(context.Background(), bashCall("ls"), nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Approved {
		t.Fatal("empty chain must reject")
	}
}

func TestChainTerminate(t *testing.T) {
	first := &scriptedApprover{name: "first", decision: Terminated("human aborted the run")}
	second := &scriptedApprover{name: "second", decision: Approved("never reached")}

	notifier := &recordingNotifier{}
	chain := NewChain(first, second)
	chain.SetNotifier(notifier)

	_, err := chain.Evaluate(context.Background(), bashCall("ls"), nil)
	if !errors.Is(err, ErrTerminated) {
		t.Fatalf("expected ErrTerminated, got %v", err)
	}
	if second.calls != 0 {
		t.Fatal("terminate must stop the chain")
	}
	if len(notifier.terminated) != 1 || notifier.terminated[0] != "human aborted the run" {
		t.Fatalf("unexpected terminate notifications: %+v", notifier.terminated)
	}
}

func TestChainTerminateWithoutExplanation(t *testing.T) {
	chain := NewChain(&scriptedApprover{name: "first", decision: Terminated("")})

	_, err := chain.Evaluate(context.Background(), bashCall("ls"), nil)
	if !errors.Is(err, ErrTerminated) {
		t.Fatalf("expected ErrTerminated, got %v", err)
	}
	if err.Error() != ErrTerminated.Error() {
		t.Fatalf("bare terminate should carry no extra text: %q", err.Error())
	}
}

func TestChainAdoptsReplacement(t *testing.T) {
	replacement := toolcall.New("call-2", "bash", map[string]any{"cmd": "ls -la"})
	first := &scriptedApprover{name: "first", decision: ApprovedWith("narrowed", replacement)}

	chain := NewChain(first)
	result, err := chain.Evaluate(context.Background(), bashCall("rm -rf /"), nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !result.Approved {
		t.Fatal("expected approval")
	}
	if result.Call.ID != "call-2" || result.Call.Argument("cmd") != "ls -la" {
		t.Fatalf("replacement not adopted: %+v", result.Call)
	}
}

func TestChainUnknownActionNeverApproves(t *testing.T) {
	first := &scriptedApprover{name: "first", decision: Decision{Action: Action("maybe")}}
	second := &scriptedApprover{name: "second", decision: Rejected("still no")}

	chain := NewChain(first, second)
	result, err := chain.Evaluate(context.Background(), bashCall("ls"), nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Approved {
		t.Fatal("unknown action must not approve")
	}
	if second.calls != 1 {
		t.Fatal("unknown action should fall through to the next approver")
	}
}
