package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/wardenhq/warden/internal/approver"
	"github.com/wardenhq/warden/internal/audit"
	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/executor"
	"github.com/wardenhq/warden/internal/notify"
	"github.com/wardenhq/warden/internal/state"
	"github.com/wardenhq/warden/internal/toolcall"
)

func NewExecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec [command...]",
		Short: "Run a shell command through the approval chain",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runExec,
	}
	cmd.Flags().Bool("no-human", false, "Skip the human review approver for this call")
	return cmd
}

func runExec(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	noHuman, _ := cmd.Flags().GetBool("no-human")

	workspace := cfg.WorkspacePath()
	command := strings.Join(args, " ")
	call := toolcall.New(uuid.NewString(), "bash", map[string]any{"cmd": command})

	transcripts := state.NewManager(workspace)
	transcript, err := transcripts.Load(cfg.Agent.ID)
	if err != nil {
		return fmt.Errorf("failed to load transcript: %w", err)
	}
	transcript.Append("user", command)

	chain := buildChain(cfg, noHuman)
	chain.SetNotifier(notify.NewConsole())
	chain.SetAudit(audit.NewWriter(workspace))

	result, err := chain.Evaluate(cmd.Context(), call, transcript)
	if err != nil {
		// Terminate aborts the whole run; save the transcript and get out.
		transcript.Append("system", err.Error())
		_ = transcripts.Save(transcript)
		return err
	}

	if !result.Approved {
		transcript.Append("system", "rejected: "+result.Explanation)
		if saveErr := transcripts.Save(transcript); saveErr != nil {
			return saveErr
		}
		return nil
	}

	workdir := ""
	if cfg.Executor.RestrictToWorkspace {
		workdir = workspace
	}
	exec := executor.New(cfg.Executor.Timeout, workdir)

	output, err := exec.Run(cmd.Context(), result.Call)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}

	if output.Stdout != "" {
		fmt.Print(output.Stdout)
		if !strings.HasSuffix(output.Stdout, "\n") {
			fmt.Println()
		}
	}
	if output.Stderr != "" {
		fmt.Print(output.Stderr)
		if !strings.HasSuffix(output.Stderr, "\n") {
			fmt.Println()
		}
	}
	if output.ExitCode != 0 {
		fmt.Printf("exit code: %d\n", output.ExitCode)
	}

	transcript.Append("tool", formatExecution(result.Call, output))
	return transcripts.Save(transcript)
}

func buildChain(cfg *config.Config, noHuman bool) *approver.Chain {
	var approvers []approver.Approver

	if cfg.Approval.AllowList.Enabled {
		approvers = append(approvers, approver.NewAllowList(approver.AllowListConfig{
			Commands:        cfg.Approval.AllowList.Commands,
			AllowSudo:       cfg.Approval.AllowList.AllowSudo,
			SubcommandRules: cfg.Approval.AllowList.SubcommandRules,
		}))
	}

	if cfg.Approval.Human.Enabled && !noHuman {
		approvers = append(approvers, approver.NewHuman(approver.HumanConfig{
			BaseURL:      cfg.Approval.Human.URL,
			AgentID:      cfg.Agent.ID,
			Token:        cfg.Approval.Human.Token,
			PollInterval: time.Duration(cfg.Approval.Human.PollIntervalSeconds) * time.Second,
			MaxAttempts:  cfg.Approval.Human.MaxAttempts,
		}))
	}

	return approver.NewChain(approvers...)
}

func formatExecution(call toolcall.ToolCall, output *executor.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ran %q (exit %d)", call.Argument("cmd"), output.ExitCode)
	if output.Stdout != "" {
		fmt.Fprintf(&b, "\nstdout:\n%s", output.Stdout)
	}
	if output.Stderr != "" {
		fmt.Fprintf(&b, "\nstderr:\n%s", output.Stderr)
	}
	return b.String()
}
