package notify

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/wardenhq/warden/internal/toolcall"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	approvedColor   = lipgloss.Color("#04B575")
	rejectedColor   = lipgloss.Color("#ED567A")
	escalatedColor  = lipgloss.Color("#F2C94C")
	terminatedColor = lipgloss.Color("#8E4EC6")

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Console announces approval decisions as styled panels. Announcements are
// fire-and-forget; they never feed back into decisions.
type Console struct {
	out io.Writer
}

// NewConsole creates a console notifier writing to stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleTo creates a console notifier writing to w, for tests.
func NewConsoleTo(w io.Writer) *Console {
	return &Console{out: w}
}

// Approved announces an approved tool call.
func (c *Console) Approved(call toolcall.ToolCall, explanation string) {
	c.panel("Tool call approved", approvedColor, callLines(call, explanation))
}

// Rejected announces a rejected tool call.
func (c *Console) Rejected(call toolcall.ToolCall, explanation string) {
	c.panel("Tool call rejected", rejectedColor, callLines(call, explanation))
}

// Escalated announces a tool call deferred to the next approver.
func (c *Console) Escalated(call toolcall.ToolCall, explanation string) {
	c.panel("Tool call escalated", escalatedColor, callLines(call, explanation))
}

// Terminated announces a fatal run abort.
func (c *Console) Terminated(explanation string) {
	c.panel("Execution terminated", terminatedColor, []string{
		labelStyle.Render("Reason: ") + explanation,
	})
}

func (c *Console) panel(title string, color lipgloss.Color, lines []string) {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(color)
	body := titleStyle.Render(title) + "\n" + strings.Join(lines, "\n")
	box := panelStyle.BorderForeground(color).Render(body)
	fmt.Fprintln(c.out, box)
}

func callLines(call toolcall.ToolCall, explanation string) []string {
	lines := []string{
		labelStyle.Render("Function: ") + call.Function,
		labelStyle.Render("Arguments: ") + formatArguments(call.Arguments),
	}
	if call.ParseError != "" {
		lines = append(lines, labelStyle.Render("Parse error: ")+call.ParseError)
	}
	lines = append(lines, labelStyle.Render("Reason: ")+explanation)
	return lines
}

func formatArguments(arguments map[string]any) string {
	if len(arguments) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(arguments))
	for k := range arguments {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		encoded, err := json.Marshal(arguments[k])
		if err != nil {
			encoded = []byte(fmt.Sprintf("%v", arguments[k]))
		}
		parts = append(parts, fmt.Sprintf("%s=%s", k, encoded))
	}
	return strings.Join(parts, " ")
}
