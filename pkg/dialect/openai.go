// Package dialect defines the wire-level request/response shapes for the
// two downstream dialects (spec.md §6.1): OpenAI's /v1/chat/completions
// and Anthropic's /v1/messages. These are pure data shapes; RequestTranslator
// (pkg/translator) converts them into the internal pivot representation
// (pkg/gwtypes).
package dialect

import (
	"encoding/json"

	"github.com/kiro-gateway/kiro-gateway/pkg/gwtypes"
)

// ChatCompletionRequest is the inbound OpenAI-dialect request shape
// (spec.md §6.1). Unknown fields are accepted and ignored by Go's default
// json.Unmarshal behavior.
type ChatCompletionRequest struct {
	Model               string            `json:"model"`
	Messages            []ChatMessage     `json:"messages"`
	Stream              bool              `json:"stream,omitempty"`
	Temperature         *float64          `json:"temperature,omitempty"`
	TopP                *float64          `json:"top_p,omitempty"`
	MaxTokens           *int              `json:"max_tokens,omitempty"`
	MaxCompletionTokens *int              `json:"max_completion_tokens,omitempty"`
	Stop                json.RawMessage   `json:"stop,omitempty"` // string or []string
	Tools               []ChatTool        `json:"tools,omitempty"`
	ToolChoice          json.RawMessage   `json:"tool_choice,omitempty"`
}

// ChatMessage is one OpenAI-dialect message.
type ChatMessage struct {
	Role       string          `json:"role"`
	Content    gwtypes.Content `json:"content"`
	ToolCalls  []gwtypes.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	Name       string          `json:"name,omitempty"`
}

// ChatTool is an OpenAI-dialect function-tool declaration.
type ChatTool struct {
	Type     string       `json:"type"`
	Function ChatFunction `json:"function"`
}

// ChatFunction is the "function" object inside a ChatTool.
type ChatFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// StopStrings normalizes the Stop field (spec.md §4.5 step 1:
// "stop_sequences → stop"), which may be absent, a bare string, or a list
// of strings.
func (r ChatCompletionRequest) StopStrings() []string {
	return parseStopField(r.Stop)
}

func parseStopField(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return nil
		}
		return []string{single}
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	return nil
}

// ToolChoiceValue parses the OpenAI-shaped tool_choice field: "auto",
// "required"/"any", "none", or {"type":"function","function":{"name":...}}.
func (r ChatCompletionRequest) ToolChoiceValue() gwtypes.ToolChoice {
	if len(r.ToolChoice) == 0 {
		return gwtypes.ToolChoice{Kind: gwtypes.ToolChoiceAuto}
	}

	var s string
	if err := json.Unmarshal(r.ToolChoice, &s); err == nil {
		switch s {
		case "none":
			return gwtypes.ToolChoice{Kind: gwtypes.ToolChoiceNone}
		case "required", "any":
			return gwtypes.ToolChoice{Kind: gwtypes.ToolChoiceRequired}
		default:
			return gwtypes.ToolChoice{Kind: gwtypes.ToolChoiceAuto}
		}
	}

	var obj struct {
		Type     string `json:"type"`
		Function struct {
			Name string `json:"name"`
		} `json:"function"`
	}
	if err := json.Unmarshal(r.ToolChoice, &obj); err == nil && obj.Function.Name != "" {
		return gwtypes.ToolChoice{Kind: gwtypes.ToolChoiceFunction, FunctionName: obj.Function.Name}
	}

	return gwtypes.ToolChoice{Kind: gwtypes.ToolChoiceAuto}
}

// ChatCompletionResponse is the non-streaming OpenAI-dialect response.
type ChatCompletionResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []ChatChoice   `json:"choices"`
	Usage   *ChatUsage     `json:"usage,omitempty"`
}

// ChatChoice is one completion choice.
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatUsage mirrors OpenAI's usage accounting shape.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionChunk is one SSE-framed streaming delta.
type ChatCompletionChunk struct {
	ID      string            `json:"id"`
	Object  string            `json:"object"`
	Created int64             `json:"created"`
	Model   string            `json:"model"`
	Choices []ChatChunkChoice `json:"choices"`
	Usage   *ChatUsage        `json:"usage,omitempty"`
}

// ChatChunkChoice is one choice within a streaming chunk.
type ChatChunkChoice struct {
	Index        int            `json:"index"`
	Delta        ChatChunkDelta `json:"delta"`
	FinishReason *string        `json:"finish_reason"`
}

// ChatChunkDelta is the incremental content of a streaming chunk.
type ChatChunkDelta struct {
	Role      string                 `json:"role,omitempty"`
	Content   string                 `json:"content,omitempty"`
	ToolCalls []ChatChunkToolCallDelta `json:"tool_calls,omitempty"`
}

// ChatChunkToolCallDelta is one partial tool-call delta (spec.md §4.6:
// "first delta carries id, type, function.name; subsequent deltas carry
// function.arguments fragments").
type ChatChunkToolCallDelta struct {
	Index    int                     `json:"index"`
	ID       string                  `json:"id,omitempty"`
	Type     string                  `json:"type,omitempty"`
	Function *ChatChunkFunctionDelta `json:"function,omitempty"`
}

// ChatChunkFunctionDelta is the function half of a tool-call delta.
type ChatChunkFunctionDelta struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// ErrorEnvelope is the OpenAI-dialect error body (spec.md §6.1).
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody is the nested error payload.
type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

// NewErrorEnvelope builds the OpenAI-dialect error envelope.
func NewErrorEnvelope(message string, status int) ErrorEnvelope {
	return ErrorEnvelope{Error: ErrorBody{Message: message, Type: "kiro_api_error", Code: status}}
}
