package notify

import (
	"bytes"
	"strings"
	"testing"

	"github.com/wardenhq/warden/internal/toolcall"
)

func TestConsoleApproved(t *testing.T) {
	var buf bytes.Buffer
	console := NewConsoleTo(&buf)

	call := toolcall.New("call-1", "bash", map[string]any{"cmd": "ls -la"})
	console.Approved(call, "listed command")

	out := buf.String()
	if !strings.Contains(out, "Tool call approved") {
		t.Fatalf("missing title: %q", out)
	}
	if !strings.Contains(out, "bash") || !strings.Contains(out, `cmd="ls -la"`) {
		t.Fatalf("missing call details: %q", out)
	}
	if !strings.Contains(out, "listed command") {
		t.Fatalf("missing reason: %q", out)
	}
}

func TestConsoleRejectedAndEscalated(t *testing.T) {
	var buf bytes.Buffer
	console := NewConsoleTo(&buf)
	call := toolcall.New("call-1", "bash", map[string]any{"cmd": "rm -rf /"})

	console.Rejected(call, "dangerous")
	console.Escalated(call, "not my call")

	out := buf.String()
	if !strings.Contains(out, "Tool call rejected") {
		t.Fatalf("missing rejected panel: %q", out)
	}
	if !strings.Contains(out, "Tool call escalated") {
		t.Fatalf("missing escalated panel: %q", out)
	}
}

func TestConsoleTerminated(t *testing.T) {
	var buf bytes.Buffer
	console := NewConsoleTo(&buf)

	console.Terminated("human aborted the run")

	out := buf.String()
	if !strings.Contains(out, "Execution terminated") {
		t.Fatalf("missing title: %q", out)
	}
	if !strings.Contains(out, "human aborted the run") {
		t.Fatalf("missing reason: %q", out)
	}
}

func TestConsoleShowsParseError(t *testing.T) {
	var buf bytes.Buffer
	console := NewConsoleTo(&buf)

	call := toolcall.New("call-1", "bash", nil)
	call.ParseError = "unbalanced quotes"
	console.Rejected(call, "invalid syntax")

	if !strings.Contains(buf.String(), "unbalanced quotes") {
		t.Fatalf("missing parse error: %q", buf.String())
	}
}

func TestFormatArguments(t *testing.T) {
	got := formatArguments(map[string]any{"b": "two", "a": 1})
	if got != `a=1 b="two"` {
		t.Fatalf("unexpected formatting: %q", got)
	}
	if formatArguments(nil) != "{}" {
		t.Fatal("expected {} for empty arguments")
	}
}
