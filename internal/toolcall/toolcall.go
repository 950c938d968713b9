package toolcall

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ToolCall is one proposed action (typically a shell command) awaiting
// approval before execution. A ToolCall is never mutated once created; an
// approver that wants different arguments returns a replacement call.
type ToolCall struct {
	ID         string         `json:"id"`
	Function   string         `json:"function"`
	Arguments  map[string]any `json:"arguments"`
	Type       string         `json:"type,omitempty"`
	ParseError string         `json:"parse_error,omitempty"`
}

// New creates a tool call with the default call type.
func New(id, function string, arguments map[string]any) ToolCall {
	if arguments == nil {
		arguments = map[string]any{}
	}
	return ToolCall{
		ID:        id,
		Function:  function,
		Arguments: arguments,
		Type:      "function",
	}
}

// Argument returns a string argument by key, or "" when absent or not a string.
func (c ToolCall) Argument(key string) string {
	v, ok := c.Arguments[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// Clone returns a deep copy so callers can hold replacements safely.
func (c ToolCall) Clone() ToolCall {
	copied := c
	copied.Arguments = cloneValue(c.Arguments).(map[string]any)
	return copied
}

// Jsonable converts the call into a plain key/value tree for transport.
// Unset optional fields are omitted rather than encoded as null.
func (c ToolCall) Jsonable() map[string]any {
	if c.Arguments == nil {
		c.Arguments = map[string]any{}
	}
	encoded, err := json.Marshal(c)
	if err != nil {
		// All field types are json-encodable; this cannot fail at runtime.
		return map[string]any{"id": c.ID, "function": c.Function}
	}
	var tree map[string]any
	if err := json.Unmarshal(encoded, &tree); err != nil {
		return map[string]any{"id": c.ID, "function": c.Function}
	}
	return tree
}

// ParseJSON decodes a previously serialized tool call. Unknown fields are
// ignored; missing required fields are an error.
func ParseJSON(raw []byte) (ToolCall, error) {
	var call ToolCall
	if err := json.Unmarshal(raw, &call); err != nil {
		return ToolCall{}, fmt.Errorf("decode tool call: %w", err)
	}
	return validate(call)
}

// Parse decodes a tool call from a plain key/value tree.
func Parse(tree map[string]any) (ToolCall, error) {
	encoded, err := json.Marshal(tree)
	if err != nil {
		return ToolCall{}, fmt.Errorf("encode tool call tree: %w", err)
	}
	return ParseJSON(encoded)
}

func validate(call ToolCall) (ToolCall, error) {
	if strings.TrimSpace(call.ID) == "" {
		return ToolCall{}, fmt.Errorf("tool call is missing id")
	}
	if strings.TrimSpace(call.Function) == "" {
		return ToolCall{}, fmt.Errorf("tool call is missing function")
	}
	if call.Arguments == nil {
		call.Arguments = map[string]any{}
	}
	return call, nil
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		copied := make(map[string]any, len(typed))
		for k, inner := range typed {
			copied[k] = cloneValue(inner)
		}
		return copied
	case []any:
		copied := make([]any, len(typed))
		for i, inner := range typed {
			copied[i] = cloneValue(inner)
		}
		return copied
	default:
		return v
	}
}
