package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/review"
	"github.com/wardenhq/warden/internal/toolcall"
)

func NewReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Decide pending review requests",
	}

	cmd.PersistentFlags().String("url", "", "Review service URL (default: approval.human.url)")

	cmd.AddCommand(
		newReviewListCmd(),
		newReviewShowCmd(),
		newReviewApproveCmd(),
		newReviewRejectCmd(),
		newReviewEscalateCmd(),
		newReviewTerminateCmd(),
	)

	return cmd
}

func newReviewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending reviews",
		RunE:  runReviewList,
	}
}

func newReviewShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one pending review",
		Args:  cobra.ExactArgs(1),
		RunE:  runReviewShow,
	}
}

func newReviewApproveCmd() *cobra.Command {
	cmd := newReviewDecisionCmd("approve <id>", "Approve a pending review", review.DecisionApprove)
	cmd.Flags().String("modify", "", "Replace the proposed command before approving")
	return cmd
}

func newReviewRejectCmd() *cobra.Command {
	return newReviewDecisionCmd("reject <id>", "Reject a pending review", review.DecisionReject)
}

func newReviewEscalateCmd() *cobra.Command {
	return newReviewDecisionCmd("escalate <id>", "Pass a pending review to the next approver", review.DecisionEscalate)
}

func newReviewTerminateCmd() *cobra.Command {
	return newReviewDecisionCmd("terminate <id>", "Abort the agent run", review.DecisionTerminate)
}

func newReviewDecisionCmd(use, short, decision string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReviewDecision(cmd, args[0], decision)
		},
	}
	cmd.Flags().String("by", "", "Decision maker")
	cmd.Flags().String("explanation", "", "Decision explanation")
	_ = cmd.MarkFlagRequired("by")
	return cmd
}

var (
	reviewIDStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	reviewCmdStyle  = lipgloss.NewStyle().Bold(true)
	reviewMetaStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8E4EC6"))
)

func runReviewList(cmd *cobra.Command, args []string) error {
	client, err := reviewClient(cmd)
	if err != nil {
		return err
	}

	pending, err := client.Pending(cmd.Context())
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("No pending reviews.")
		return nil
	}

	for _, ticket := range pending {
		summary := summarizeToolChoice(ticket.ToolChoice)
		fmt.Printf("%s  %s  %s\n",
			reviewIDStyle.Render(ticket.ID),
			reviewMetaStyle.Render(ticket.AgentID),
			reviewCmdStyle.Render(summary),
		)
	}
	return nil
}

func runReviewShow(cmd *cobra.Command, args []string) error {
	client, err := reviewClient(cmd)
	if err != nil {
		return err
	}

	ticket, err := client.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n", labelRender("ID:"), ticket.ID)
	fmt.Printf("%s %s\n", labelRender("Agent:"), ticket.AgentID)
	fmt.Printf("%s %s\n", labelRender("Created:"), ticket.CreatedAt.Local().Format(time.RFC3339))
	fmt.Printf("%s %s\n", labelRender("Expires:"), ticket.ExpiresAt.Local().Format(time.RFC3339))
	fmt.Printf("%s %s\n", labelRender("Command:"), reviewCmdStyle.Render(summarizeToolChoice(ticket.ToolChoice)))
	if len(ticket.TaskState) > 0 {
		fmt.Printf("%s %s\n", labelRender("Task state:"), string(ticket.TaskState))
	}
	return nil
}

func labelRender(label string) string {
	return reviewIDStyle.Render(label)
}

func runReviewDecision(cmd *cobra.Command, id, decision string) error {
	client, err := reviewClient(cmd)
	if err != nil {
		return err
	}

	by, _ := cmd.Flags().GetString("by")
	explanation, _ := cmd.Flags().GetString("explanation")
	if strings.TrimSpace(by) == "" {
		return fmt.Errorf("--by is required")
	}

	input := review.DecideInput{
		Decision:    decision,
		Explanation: strings.TrimSpace(explanation),
		DecidedBy:   strings.TrimSpace(by),
	}

	if cmd.Flags().Changed("modify") {
		modified, _ := cmd.Flags().GetString("modify")
		modified = strings.TrimSpace(modified)
		if modified == "" {
			return fmt.Errorf("--modify requires a non-empty command")
		}
		replacement := toolcall.New(uuid.NewString(), "bash", map[string]any{"cmd": modified})
		encoded, err := json.Marshal(replacement.Jsonable())
		if err != nil {
			return fmt.Errorf("encode modified tool call: %w", err)
		}
		input.ModifiedToolCall = encoded
	}

	ticket, err := client.Decide(cmd.Context(), id, input)
	if err != nil {
		return err
	}

	fmt.Printf("Review %s: %s by %s\n", ticket.ID, ticket.Decision, ticket.DecidedBy)
	return nil
}

func reviewClient(cmd *cobra.Command) (*review.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	url, _ := cmd.Flags().GetString("url")
	if strings.TrimSpace(url) == "" {
		url = cfg.Approval.Human.URL
	}
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("review service url is not configured")
	}

	token := cfg.Review.Token
	if strings.TrimSpace(token) == "" {
		token = cfg.Approval.Human.Token
	}
	return review.NewClient(url, token), nil
}

func summarizeToolChoice(raw json.RawMessage) string {
	call, err := toolcall.ParseJSON(raw)
	if err != nil {
		return "(unreadable tool call)"
	}
	if cmd := call.Argument("cmd"); cmd != "" {
		return cmd
	}
	return call.Function
}
