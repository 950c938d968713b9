package executor

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/wardenhq/warden/internal/toolcall"
)

// Result of one command execution.
type Result struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// Executor runs approved bash tool calls. It performs no approval checks of
// its own; callers must only hand it calls that cleared the approval chain.
type Executor struct {
	timeout time.Duration
	workdir string
}

// New creates an executor with the given timeout and working directory.
// A zero timeout defaults to 60 seconds; an empty workdir inherits the
// process working directory.
func New(timeoutSec int, workdir string) *Executor {
	if timeoutSec <= 0 {
		timeoutSec = 60
	}
	return &Executor{
		timeout: time.Duration(timeoutSec) * time.Second,
		workdir: strings.TrimSpace(workdir),
	}
}

// Run executes one approved bash tool call and captures its output.
func (e *Executor) Run(ctx context.Context, call toolcall.ToolCall) (*Result, error) {
	if call.Function != "bash" {
		return nil, fmt.Errorf("executor only runs bash tool calls, got %q", call.Function)
	}
	command := strings.TrimSpace(call.Argument("cmd"))
	if command == "" {
		return nil, fmt.Errorf("tool call has no cmd argument")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(timeoutCtx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(timeoutCtx, "sh", "-c", command)
	}
	if e.workdir != "" {
		cmd.Dir = e.workdir
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return &Result{
				Stderr:   err.Error(),
				ExitCode: 1,
			}, nil
		}
	}

	return &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}, nil
}
