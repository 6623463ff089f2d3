package gwtypes

import "encoding/json"

// Role constants shared by both dialects' internal representation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage is the internal OpenAI-shaped message used as the pivot
// between the two downstream dialects and the upstream translator (spec.md
// §4.5 step 1: Anthropic input is first converted to this shape).
type ChatMessage struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`

	// Present on assistant messages that invoked tools.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// Present on a legacy-shaped tool-result message (role == "tool")
	// before RequestTranslator.MergeAdjacent rewrites it into a user
	// message carrying a tool_result content block.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolCall is an OpenAI-shaped function call: either what an assistant
// message declared, or (in streaming) one delta of it.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type,omitempty"` // always "function"
	Function ToolCallFunc `json:"function"`
}

// ToolCallFunc carries the function name and its JSON-encoded arguments.
// Arguments is always a serialized JSON object string; empty input
// normalizes to "{}" (spec.md §3, ToolCall normalization rule).
type ToolCallFunc struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// NormalizeArguments returns a.Arguments, substituting "{}" for blank or
// invalid JSON per the ToolCall normalization rule in spec.md §3.
func (a ToolCallFunc) NormalizeArguments() string {
	if a.Arguments == "" {
		return "{}"
	}
	var v json.RawMessage
	if err := json.Unmarshal([]byte(a.Arguments), &v); err != nil {
		return "{}"
	}
	return a.Arguments
}

// Tool is a tool/function declaration offered to the model.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"` // JSON schema object
}

// ToolChoiceKind enumerates the normalized tool_choice modes.
type ToolChoiceKind string

const (
	ToolChoiceAuto     ToolChoiceKind = "auto"
	ToolChoiceRequired ToolChoiceKind = "required"
	ToolChoiceNone     ToolChoiceKind = "none"
	ToolChoiceFunction ToolChoiceKind = "function"
)

// ToolChoice is the normalized tool_choice value after mapping from either
// dialect (spec.md §4.5 step 1: Anthropic auto/any/tool/none → OpenAI
// auto/required/{function,name}/none). It doubles as the upstream wire
// shape carried on UserInputMessageContext; the upstream's own tool_choice
// handling is unspecified, so the resolved value is forwarded as-is
// rather than dropped.
type ToolChoice struct {
	Kind         ToolChoiceKind `json:"type"`
	FunctionName string         `json:"name,omitempty"`
}

// IsDefault reports whether c is the unset/auto value, which the
// translator omits from the upstream context rather than emitting
// explicitly.
func (c ToolChoice) IsDefault() bool {
	return c.Kind == "" || c.Kind == ToolChoiceAuto
}
