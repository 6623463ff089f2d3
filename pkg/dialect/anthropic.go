package dialect

import (
	"encoding/json"

	"github.com/kiro-gateway/kiro-gateway/pkg/gwtypes"
)

// MessagesRequest is the inbound Anthropic-dialect request shape
// (spec.md §6.1).
type MessagesRequest struct {
	Model         string              `json:"model"`
	Messages      []AnthropicMessage  `json:"messages"`
	System        json.RawMessage     `json:"system,omitempty"` // string or []ContentBlock
	MaxTokens     int                 `json:"max_tokens"`
	Stream        bool                `json:"stream,omitempty"`
	Temperature   *float64            `json:"temperature,omitempty"`
	TopP          *float64            `json:"top_p,omitempty"`
	StopSequences []string            `json:"stop_sequences,omitempty"`
	Tools         []AnthropicTool     `json:"tools,omitempty"`
	ToolChoice    *AnthropicToolChoice `json:"tool_choice,omitempty"`
	Thinking      *AnthropicThinking  `json:"thinking,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// AnthropicMessage is one Anthropic-dialect message.
type AnthropicMessage struct {
	Role    string          `json:"role"`
	Content gwtypes.Content `json:"content"`
}

// AnthropicTool is an Anthropic-dialect tool declaration.
type AnthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// AnthropicToolChoice is the Anthropic-dialect tool_choice object.
type AnthropicToolChoice struct {
	Type string `json:"type"` // "auto", "any", "tool", "none"
	Name string `json:"name,omitempty"`
}

// AnthropicThinking is the Anthropic-dialect extended-thinking toggle.
type AnthropicThinking struct {
	Type         string `json:"type,omitempty"`
	BudgetTokens int    `json:"budget_tokens,omitempty"`
}

// SystemPrompt normalizes the System field, which may be absent, a bare
// string, or a list of text content blocks (spec.md §4.5 step 1).
func (r MessagesRequest) SystemPrompt() string {
	if len(r.System) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.System, &s); err == nil {
		return s
	}
	var blocks []gwtypes.ContentBlock
	if err := json.Unmarshal(r.System, &blocks); err == nil {
		out := ""
		for _, b := range blocks {
			if b.Type == gwtypes.BlockText {
				out += b.Text
			}
		}
		return out
	}
	return ""
}

// ToolChoiceValue maps the Anthropic-dialect tool_choice onto the
// normalized gwtypes.ToolChoice (spec.md §4.5 step 1: "auto→auto,
// any→required, tool→{function,name}, none→none").
func (r MessagesRequest) ToolChoiceValue() gwtypes.ToolChoice {
	if r.ToolChoice == nil {
		return gwtypes.ToolChoice{Kind: gwtypes.ToolChoiceAuto}
	}
	switch r.ToolChoice.Type {
	case "any":
		return gwtypes.ToolChoice{Kind: gwtypes.ToolChoiceRequired}
	case "tool":
		return gwtypes.ToolChoice{Kind: gwtypes.ToolChoiceFunction, FunctionName: r.ToolChoice.Name}
	case "none":
		return gwtypes.ToolChoice{Kind: gwtypes.ToolChoiceNone}
	default:
		return gwtypes.ToolChoice{Kind: gwtypes.ToolChoiceAuto}
	}
}

// ThinkingEnabled reports whether extended thinking was requested.
func (r MessagesRequest) ThinkingEnabled() bool {
	return r.Thinking != nil && r.Thinking.Type == "enabled"
}

// MessagesResponse is the non-streaming Anthropic-dialect response.
type MessagesResponse struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Role       string                 `json:"role"`
	Content    []gwtypes.ContentBlock `json:"content"`
	Model      string                 `json:"model"`
	StopReason string                 `json:"stop_reason"`
	Usage      AnthropicUsage         `json:"usage"`
}

// AnthropicUsage mirrors Anthropic's usage accounting shape.
type AnthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// AnthropicErrorEnvelope is the Anthropic-dialect error body (spec.md
// §6.1).
type AnthropicErrorEnvelope struct {
	Type  string              `json:"type"`
	Error AnthropicErrorBody  `json:"error"`
}

// AnthropicErrorBody is the nested error payload.
type AnthropicErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewAnthropicErrorEnvelope builds the Anthropic-dialect error envelope.
func NewAnthropicErrorEnvelope(message string) AnthropicErrorEnvelope {
	return AnthropicErrorEnvelope{Type: "error", Error: AnthropicErrorBody{Type: "api_error", Message: message}}
}

// The following types are the named Anthropic-dialect streaming SSE
// events (spec.md §4.6): message_start, content_block_start,
// content_block_delta, content_block_stop, message_delta, message_stop.

// MessageStartEvent opens a streamed message with its (as yet empty)
// envelope and the input side of usage.
type MessageStartEvent struct {
	Type    string           `json:"type"`
	Message MessageStartBody `json:"message"`
}

// MessageStartBody is the partial message envelope inside message_start.
type MessageStartBody struct {
	ID      string                 `json:"id"`
	Type    string                 `json:"type"`
	Role    string                 `json:"role"`
	Content []gwtypes.ContentBlock `json:"content"`
	Model   string                 `json:"model"`
	Usage   AnthropicUsage         `json:"usage"`
}

// ContentBlockStartEvent opens one content block at Index.
type ContentBlockStartEvent struct {
	Type         string               `json:"type"`
	Index        int                  `json:"index"`
	ContentBlock gwtypes.ContentBlock `json:"content_block"`
}

// ContentBlockDeltaEvent carries one incremental fragment for the block at
// Index.
type ContentBlockDeltaEvent struct {
	Type  string               `json:"type"`
	Index int                  `json:"index"`
	Delta ContentBlockDeltaBody `json:"delta"`
}

// ContentBlockDeltaBody is the delta payload: a text_delta, an
// input_json_delta (tool_use arguments fragment), or a thinking_delta.
type ContentBlockDeltaBody struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	Thinking    string `json:"thinking,omitempty"`
}

// ContentBlockStopEvent closes the block at Index.
type ContentBlockStopEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// MessageDeltaEvent carries the stop_reason and the output side of usage,
// emitted once just before message_stop.
type MessageDeltaEvent struct {
	Type  string                 `json:"type"`
	Delta MessageDeltaBody       `json:"delta"`
	Usage MessageDeltaUsageBody  `json:"usage"`
}

// MessageDeltaBody is the delta payload of a message_delta event.
type MessageDeltaBody struct {
	StopReason string `json:"stop_reason"`
}

// MessageDeltaUsageBody carries only the output token count; Anthropic's
// own message_delta usage shape omits input tokens (already sent in
// message_start).
type MessageDeltaUsageBody struct {
	OutputTokens int `json:"output_tokens"`
}

// MessageStopEvent terminates the stream.
type MessageStopEvent struct {
	Type string `json:"type"`
}
