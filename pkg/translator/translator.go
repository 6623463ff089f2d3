package translator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kiro-gateway/kiro-gateway/pkg/gwtypes"
)

// Options configures one Translator (spec.md §6.5 "tool_description_max_length").
type Options struct {
	// ToolDescriptionMaxLength caps a tool description's length before it
	// is hoisted into the system prompt (spec.md §4.5 step 3). 0 disables
	// hoisting.
	ToolDescriptionMaxLength int

	// ModelMap resolves a dialect model name to the upstream's internal
	// model identifier (spec.md §4.5 step 8). Unmapped names pass through
	// unchanged.
	ModelMap map[string]string

	// Origin is the upstream "origin" field on user turns (spec.md §4.5
	// step 5), fixed at "AI_EDITOR" by the upstream's own contract.
	Origin string
}

func (o Options) originOrDefault() string {
	if o.Origin == "" {
		return "AI_EDITOR"
	}
	return o.Origin
}

// Translator implements spec.md §4.5's nine-step translation pipeline.
type Translator struct {
	opts Options
}

// New builds a Translator.
func New(opts Options) *Translator {
	return &Translator{opts: opts}
}

// Translate runs the full pipeline: extract system prompt, hoist
// oversized tool descriptions, merge adjacent same-role messages, build
// history and current message, inject the system prompt, resolve the
// model identifier, and emit the upstream envelope. toolChoice is the
// dialect's normalized tool_choice (spec.md §4.5 step 1), attached to the
// current turn's context.
func (t *Translator) Translate(messages []gwtypes.ChatMessage, tools []gwtypes.Tool, toolChoice gwtypes.ToolChoice, model, profileArn string) gwtypes.UpstreamRequest {
	remaining, system := ExtractSystemPrompt(messages)
	tools, system = t.hoistOversizedToolDescriptions(tools, system)

	merged := MergeAdjacent(remaining)

	history, current := t.buildHistoryAndCurrent(merged, tools, toolChoice, t.ResolveModel(model))

	t.injectSystemPrompt(&history, &current, system)

	return gwtypes.UpstreamRequest{
		ConversationState: gwtypes.ConversationState{
			ChatTriggerType: "MANUAL",
			ConversationID:  uuid.NewString(),
			CurrentMessage:  current,
			History:         history,
		},
		ProfileArn: profileArn,
	}
}

// ResolveModel maps a dialect model name onto its upstream identifier
// (spec.md §4.5 step 8), passing unmapped names through unchanged.
func (t *Translator) ResolveModel(model string) string {
	if mapped, ok := t.opts.ModelMap[model]; ok {
		return mapped
	}
	return model
}

// ExtractSystemPrompt concatenates all system-role messages into one
// string and removes them from the message list (spec.md §4.5 step 2).
func ExtractSystemPrompt(messages []gwtypes.ChatMessage) ([]gwtypes.ChatMessage, string) {
	var system strings.Builder
	remaining := make([]gwtypes.ChatMessage, 0, len(messages))

	for _, m := range messages {
		if m.Role == gwtypes.RoleSystem {
			if system.Len() > 0 {
				system.WriteString("\n")
			}
			system.WriteString(m.Content.ConcatText())
			continue
		}
		remaining = append(remaining, m)
	}

	return remaining, system.String()
}

// hoistOversizedToolDescriptions implements spec.md §4.5 step 3: any tool
// description longer than ToolDescriptionMaxLength is replaced with a
// reference pointer and the full text appended to the system prompt
// under a "## Tool: <name>" heading.
func (t *Translator) hoistOversizedToolDescriptions(tools []gwtypes.Tool, system string) ([]gwtypes.Tool, string) {
	if t.opts.ToolDescriptionMaxLength <= 0 {
		return tools, system
	}

	out := make([]gwtypes.Tool, len(tools))
	var appended strings.Builder

	for i, tool := range tools {
		out[i] = tool
		if len(tool.Description) <= t.opts.ToolDescriptionMaxLength {
			continue
		}
		out[i].Description = fmt.Sprintf("[Full documentation in system prompt under '## Tool: %s']", tool.Name)
		appended.WriteString(fmt.Sprintf("\n\n## Tool: %s\n%s", tool.Name, tool.Description))
	}

	if appended.Len() == 0 {
		return out, system
	}
	return out, system + appended.String()
}

// MergeAdjacent implements spec.md §4.5 step 4: tool-role messages are
// first rewritten as user messages carrying a tool_result content block,
// then adjacent same-role messages are coalesced per the content-merge
// rules.
func MergeAdjacent(messages []gwtypes.ChatMessage) []gwtypes.ChatMessage {
	rewritten := make([]gwtypes.ChatMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == gwtypes.RoleTool {
			rewritten = append(rewritten, gwtypes.ChatMessage{
				Role: gwtypes.RoleUser,
				Content: gwtypes.NewBlocksContent([]gwtypes.ContentBlock{{
					Type:      gwtypes.BlockToolResult,
					ToolUseID: m.ToolCallID,
					Content:   contentAsRawMessage(m.Content),
				}}),
			})
			continue
		}
		rewritten = append(rewritten, m)
	}

	if len(rewritten) == 0 {
		return rewritten
	}

	merged := []gwtypes.ChatMessage{rewritten[0]}
	for _, m := range rewritten[1:] {
		last := &merged[len(merged)-1]
		if last.Role == m.Role {
			last.Content = mergeContent(last.Content, m.Content)
			if last.Role == gwtypes.RoleAssistant {
				last.ToolCalls = append(last.ToolCalls, m.ToolCalls...)
			}
			continue
		}
		merged = append(merged, m)
	}

	return merged
}

func contentAsRawMessage(c gwtypes.Content) json.RawMessage {
	data, err := json.Marshal(c.ConcatText())
	if err != nil {
		return json.RawMessage(`""`)
	}
	return data
}

// mergeContent implements spec.md §4.5 step 4's content-merge rules:
// list+list concatenates, list+string appends a text block, string+list
// prepends a text block, string+string newline-joins.
func mergeContent(a, b gwtypes.Content) gwtypes.Content {
	switch {
	case a.IsBlocks() && b.IsBlocks():
		return gwtypes.NewBlocksContent(append(append([]gwtypes.ContentBlock{}, a.Blocks()...), b.Blocks()...))
	case a.IsBlocks() && !b.IsBlocks():
		if b.Text() == "" {
			return a
		}
		return gwtypes.NewBlocksContent(append(append([]gwtypes.ContentBlock{}, a.Blocks()...), gwtypes.ContentBlock{Type: gwtypes.BlockText, Text: b.Text()}))
	case !a.IsBlocks() && b.IsBlocks():
		if a.Text() == "" {
			return b
		}
		return gwtypes.NewBlocksContent(append([]gwtypes.ContentBlock{{Type: gwtypes.BlockText, Text: a.Text()}}, b.Blocks()...))
	default:
		if a.Text() == "" {
			return b
		}
		if b.Text() == "" {
			return a
		}
		return gwtypes.NewTextContent(a.Text() + "\n" + b.Text())
	}
}

// buildHistoryAndCurrent implements spec.md §4.5 steps 5–7: history is
// built from all but the last merged message; the current message is
// built from the last one, carrying the tool specifications. If the last
// message is an assistant turn it is appended to history instead, and
// the current user content becomes "Continue".
func (t *Translator) buildHistoryAndCurrent(merged []gwtypes.ChatMessage, tools []gwtypes.Tool, toolChoice gwtypes.ToolChoice, modelID string) ([]gwtypes.ConversationTurn, gwtypes.ConversationTurn) {
	if len(merged) == 0 {
		return nil, t.currentTurn("Continue", tools, toolChoice, modelID)
	}

	last := merged[len(merged)-1]
	rest := merged[:len(merged)-1]

	history := make([]gwtypes.ConversationTurn, 0, len(rest)+1)
	for _, m := range rest {
		history = append(history, t.historyTurn(m, modelID))
	}

	if last.Role == gwtypes.RoleAssistant {
		history = append(history, t.historyTurn(last, modelID))
		return history, t.currentTurn("Continue", tools, toolChoice, modelID)
	}

	content := last.Content.ConcatText()
	if content == "" {
		content = "Continue"
	}
	return history, t.currentUserTurn(content, last.Content, tools, toolChoice, modelID)
}

func (t *Translator) historyTurn(m gwtypes.ChatMessage, modelID string) gwtypes.ConversationTurn {
	if m.Role == gwtypes.RoleAssistant {
		return gwtypes.ConversationTurn{
			AssistantResponseMessage: &gwtypes.AssistantResponseMessage{
				Content:  m.Content.ConcatText(),
				ToolUses: toolUsesFromCalls(m.ToolCalls),
			},
		}
	}

	return gwtypes.ConversationTurn{
		UserInputMessage: &gwtypes.UserInputMessage{
			Content:                 m.Content.ConcatText(),
			ModelID:                 modelID,
			Origin:                  t.opts.originOrDefault(),
			UserInputMessageContext: toolResultsContext(m.Content),
		},
	}
}

func (t *Translator) currentTurn(content string, tools []gwtypes.Tool, toolChoice gwtypes.ToolChoice, modelID string) gwtypes.ConversationTurn {
	return t.currentUserTurn(content, gwtypes.Content{}, tools, toolChoice, modelID)
}

func (t *Translator) currentUserTurn(content string, original gwtypes.Content, tools []gwtypes.Tool, toolChoice gwtypes.ToolChoice, modelID string) gwtypes.ConversationTurn {
	ctx := toolResultsContext(original)
	if ctx == nil {
		ctx = &gwtypes.UserInputMessageContext{}
	}
	ctx.Tools = toolSpecifications(tools)
	if !toolChoice.IsDefault() {
		tc := toolChoice
		ctx.ToolChoice = &tc
	}

	return gwtypes.ConversationTurn{
		UserInputMessage: &gwtypes.UserInputMessage{
			Content:                 content,
			ModelID:                 modelID,
			Origin:                  t.opts.originOrDefault(),
			UserInputMessageContext: ctx,
		},
	}
}

func toolUsesFromCalls(calls []gwtypes.ToolCall) []gwtypes.ToolUse {
	if len(calls) == 0 {
		return nil
	}
	out := make([]gwtypes.ToolUse, 0, len(calls))
	for _, c := range calls {
		out = append(out, gwtypes.ToolUse{
			Name:      c.Function.Name,
			Input:     json.RawMessage(c.Function.NormalizeArguments()),
			ToolUseID: c.ID,
		})
	}
	return out
}

func toolResultsContext(c gwtypes.Content) *gwtypes.UserInputMessageContext {
	if !c.IsBlocks() {
		return nil
	}
	var results []gwtypes.ToolResult
	for _, b := range c.Blocks() {
		if b.Type != gwtypes.BlockToolResult {
			continue
		}
		status := "success"
		if b.IsError {
			status = "error"
		}
		results = append(results, gwtypes.ToolResult{
			ToolUseID: b.ToolUseID,
			Content:   b.Content,
			Status:    status,
		})
	}
	if len(results) == 0 {
		return nil
	}
	return &gwtypes.UserInputMessageContext{ToolResults: results}
}

func toolSpecifications(tools []gwtypes.Tool) []gwtypes.ToolSpecification {
	if len(tools) == 0 {
		return nil
	}
	out := make([]gwtypes.ToolSpecification, 0, len(tools))
	for _, t := range tools {
		out = append(out, gwtypes.ToolSpecification{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: gwtypes.ToolInputSchema{JSON: t.Parameters},
		})
	}
	return out
}

// injectSystemPrompt implements spec.md §4.5 step 6: the system prompt is
// prepended to the first history user turn if history is non-empty,
// otherwise to the current message; it is never emitted as a standalone
// turn.
func (t *Translator) injectSystemPrompt(history *[]gwtypes.ConversationTurn, current *gwtypes.ConversationTurn, system string) {
	if system == "" {
		return
	}
	prefix := "<system>\n\n" + system + "\n\n"

	// Only the literal first-history-turn-is-user case is named by the
	// design; any other shape (empty history, or a non-user first turn)
	// falls back to the current message so the system prompt is never
	// silently dropped.
	if len(*history) > 0 && (*history)[0].UserInputMessage != nil {
		turn := &(*history)[0]
		turn.UserInputMessage.Content = prefix + turn.UserInputMessage.Content
		return
	}

	if current.UserInputMessage != nil {
		current.UserInputMessage.Content = prefix + current.UserInputMessage.Content
	}
}
