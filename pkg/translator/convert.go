// Package translator implements the RequestTranslator (spec.md §4.5):
// converting an inbound OpenAI- or Anthropic-dialect request into the
// internal pivot representation (pkg/gwtypes.ChatMessage) and then into
// the upstream generateAssistantResponse payload.
package translator

import (
	"encoding/json"
	"fmt"

	"github.com/kiro-gateway/kiro-gateway/pkg/dialect"
	"github.com/kiro-gateway/kiro-gateway/pkg/gwtypes"
)

// FromOpenAI converts an OpenAI-dialect request's messages directly into
// the internal pivot shape; the dialect is already OpenAI-shaped so this
// is mostly a field-for-field copy (spec.md §4.5 step 1 applies only to
// Anthropic input).
func FromOpenAI(req dialect.ChatCompletionRequest) []gwtypes.ChatMessage {
	out := make([]gwtypes.ChatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		out = append(out, gwtypes.ChatMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCalls:  m.ToolCalls,
			ToolCallID: m.ToolCallID,
		})
	}
	return out
}

// FromAnthropic converts an Anthropic-dialect request into the internal
// pivot shape (spec.md §4.5 step 1). Anthropic has no system-role
// messages of its own; its top-level system field becomes a prepended
// system message here.
func FromAnthropic(req dialect.MessagesRequest) []gwtypes.ChatMessage {
	var out []gwtypes.ChatMessage

	if sys := req.SystemPrompt(); sys != "" {
		out = append(out, gwtypes.ChatMessage{Role: gwtypes.RoleSystem, Content: gwtypes.NewTextContent(sys)})
	}

	for _, m := range req.Messages {
		out = append(out, convertAnthropicMessage(m)...)
	}

	return out
}

// convertAnthropicMessage demotes one Anthropic message's content blocks
// into the internal shape, possibly producing two internal messages when
// a user turn carries both ordinary content and tool_result blocks.
func convertAnthropicMessage(m dialect.AnthropicMessage) []gwtypes.ChatMessage {
	if !m.Content.IsBlocks() {
		text := m.Content.Text()
		if text == "" {
			return nil
		}
		return []gwtypes.ChatMessage{{Role: m.Role, Content: gwtypes.NewTextContent(text)}}
	}

	var textParts string
	var toolCalls []gwtypes.ToolCall
	var toolResultBlocks []gwtypes.ContentBlock

	for _, b := range m.Content.Blocks() {
		switch b.Type {
		case gwtypes.BlockText:
			textParts += b.Text
		case gwtypes.BlockImage:
			textParts += imagePlaceholder(b)
		case gwtypes.BlockThinking:
			textParts += "<thinking>" + b.Thinking + "</thinking>"
		case gwtypes.BlockToolUse:
			toolCalls = append(toolCalls, gwtypes.ToolCall{
				ID:   b.ID,
				Type: "function",
				Function: gwtypes.ToolCallFunc{
					Name:      b.Name,
					Arguments: string(b.Input),
				},
			})
		case gwtypes.BlockToolResult:
			toolResultBlocks = append(toolResultBlocks, gwtypes.ContentBlock{
				Type:      gwtypes.BlockToolResult,
				ToolUseID: b.ToolUseID,
				Content:   b.Content,
				IsError:   b.IsError,
			})
		}
	}

	var out []gwtypes.ChatMessage
	if m.Role == gwtypes.RoleAssistant {
		out = append(out, gwtypes.ChatMessage{
			Role:      gwtypes.RoleAssistant,
			Content:   gwtypes.NewTextContent(textParts),
			ToolCalls: toolCalls,
		})
		return out
	}

	// user (or any non-assistant) turn
	if len(toolResultBlocks) > 0 {
		blocks := toolResultBlocks
		if textParts != "" {
			blocks = append([]gwtypes.ContentBlock{{Type: gwtypes.BlockText, Text: textParts}}, blocks...)
		}
		out = append(out, gwtypes.ChatMessage{Role: gwtypes.RoleUser, Content: gwtypes.NewBlocksContent(blocks)})
		return out
	}

	out = append(out, gwtypes.ChatMessage{Role: m.Role, Content: gwtypes.NewTextContent(textParts)})
	return out
}

func imagePlaceholder(b gwtypes.ContentBlock) string {
	if b.Source == nil {
		return "[Image]"
	}
	if b.Source.Type == "url" && b.Source.URL != "" {
		return fmt.Sprintf("[Image URL: %s]", b.Source.URL)
	}
	return fmt.Sprintf("[Image: %s]", b.Source.MediaType)
}

// ToolsFromOpenAI normalizes OpenAI-dialect tool declarations into the
// internal shape.
func ToolsFromOpenAI(tools []dialect.ChatTool) []gwtypes.Tool {
	out := make([]gwtypes.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, gwtypes.Tool{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  t.Function.Parameters,
		})
	}
	return out
}

// ToolsFromAnthropic normalizes Anthropic-dialect tool declarations into
// the internal shape.
func ToolsFromAnthropic(tools []dialect.AnthropicTool) []gwtypes.Tool {
	out := make([]gwtypes.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, gwtypes.Tool{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  json.RawMessage(t.InputSchema),
		})
	}
	return out
}
