package approver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/wardenhq/warden/internal/shellparse"
	"github.com/wardenhq/warden/internal/toolcall"
)

// AllowListConfig configures the allow-list approver.
type AllowListConfig struct {
	// Function is the tool-call kind this approver handles. Default "bash".
	Function string
	// Commands are the allowed base commands.
	Commands []string
	// AllowSudo permits sudo elevation; the effective base command is then
	// the token after sudo.
	AllowSudo bool
	// SubcommandRules restricts the first argument of a base command to a
	// fixed set, e.g. {"git": {"status", "log"}}.
	SubcommandRules map[string][]string
}

// AllowList approves shell commands against a fixed allow-list. Syntactic
// hazards (bad quoting, dangerous characters, disallowed sudo) reject
// outright; unfamiliar commands escalate so a later approver can still decide.
type AllowList struct {
	function string
	allowed  map[string]struct{}
	sudo     bool
	rules    map[string]map[string]struct{}
}

// NewAllowList builds a stateless allow-list approver.
func NewAllowList(cfg AllowListConfig) *AllowList {
	function := strings.TrimSpace(cfg.Function)
	if function == "" {
		function = "bash"
	}

	allowed := make(map[string]struct{}, len(cfg.Commands))
	for _, command := range cfg.Commands {
		normalized := strings.TrimSpace(command)
		if normalized == "" {
			continue
		}
		allowed[normalized] = struct{}{}
	}

	rules := make(map[string]map[string]struct{}, len(cfg.SubcommandRules))
	for command, subcommands := range cfg.SubcommandRules {
		normalized := strings.TrimSpace(command)
		if normalized == "" {
			continue
		}
		set := make(map[string]struct{}, len(subcommands))
		for _, sub := range subcommands {
			sub = strings.TrimSpace(sub)
			if sub == "" {
				continue
			}
			set[sub] = struct{}{}
		}
		rules[normalized] = set
	}

	return &AllowList{
		function: function,
		allowed:  allowed,
		sudo:     cfg.AllowSudo,
		rules:    rules,
	}
}

// Name identifies the approver in logs and audit events.
func (a *AllowList) Name() string {
	return "allow_list"
}

// Approve evaluates one tool call. The task state is not consulted.
func (a *AllowList) Approve(_ context.Context, call toolcall.ToolCall, _ TaskState) Decision {
	if call.Function != a.function {
		return Escalated(fmt.Sprintf("allow-list approver only handles %s commands, got %s", a.function, call.Function))
	}

	raw := strings.TrimSpace(call.Argument("cmd"))
	if raw == "" {
		return Rejected("Empty command")
	}

	command, err := shellparse.Parse(raw)
	if err != nil {
		if errors.Is(err, shellparse.ErrEmpty) {
			return Rejected("Empty command")
		}
		return Rejected(err.Error())
	}

	if dangerous := shellparse.Dangerous(raw); len(dangerous) > 0 {
		return Rejected(fmt.Sprintf("Command contains potentially dangerous characters: %s", strings.Join(dangerous, ", ")))
	}

	if command.Elevated() {
		if !a.sudo {
			return Rejected("sudo is not allowed")
		}
		command, err = command.DropSudo()
		if err != nil {
			return Rejected("Invalid sudo command")
		}
	}

	base := command.Base()
	if _, ok := a.allowed[base]; !ok {
		return Escalated(fmt.Sprintf("Command '%s' is not in the allowed list. Allowed commands: %s", base, strings.Join(a.allowedCommands(), ", ")))
	}

	if rule, ok := a.rules[base]; ok && len(rule) > 0 {
		args := command.Args()
		if len(args) > 0 {
			if _, ok := rule[args[0]]; !ok {
				return Escalated(fmt.Sprintf("%s subcommand '%s' is not allowed. Allowed subcommands: %s", base, args[0], strings.Join(setToSorted(rule), ", ")))
			}
		}
	}

	return Approved(fmt.Sprintf("Command '%s' is approved.", raw))
}

func (a *AllowList) allowedCommands() []string {
	return setToSorted(a.allowed)
}

func setToSorted(set map[string]struct{}) []string {
	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}
