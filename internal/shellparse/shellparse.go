package shellparse

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/shlex"
)

// ErrEmpty reports an empty or whitespace-only command.
var ErrEmpty = errors.New("empty command")

// dangerousChars are shell metacharacters that enable chaining, redirection,
// substitution or subshells. Detected on the raw string regardless of quoting.
var dangerousChars = []string{"&", "|", ";", ">", "<", "`", "$", "(", ")"}

// Command is a tokenized shell command.
type Command struct {
	Raw    string
	Tokens []string
}

// Parse tokenizes raw using shell-word splitting rules with quoting honored.
// Malformed quoting surfaces as a syntax error distinct from danger detection.
func Parse(raw string) (*Command, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ErrEmpty
	}

	tokens, err := shlex.Split(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid command syntax: %w", err)
	}
	if len(tokens) == 0 {
		return nil, ErrEmpty
	}

	return &Command{Raw: trimmed, Tokens: tokens}, nil
}

// Dangerous returns the dangerous characters present in raw, in detection order.
func Dangerous(raw string) []string {
	var found []string
	for _, ch := range dangerousChars {
		if strings.Contains(raw, ch) {
			found = append(found, ch)
		}
	}
	return found
}

// Base returns the base command token.
func (c *Command) Base() string {
	return c.Tokens[0]
}

// Args returns the tokens after the base command.
func (c *Command) Args() []string {
	return c.Tokens[1:]
}

// Elevated reports whether the command requests sudo elevation.
func (c *Command) Elevated() bool {
	return c.Base() == "sudo"
}

// DropSudo re-bases an elevated command onto the token after sudo.
func (c *Command) DropSudo() (*Command, error) {
	if !c.Elevated() {
		return c, nil
	}
	if len(c.Tokens) < 2 {
		return nil, fmt.Errorf("invalid sudo command")
	}
	return &Command{Raw: c.Raw, Tokens: c.Tokens[1:]}, nil
}
