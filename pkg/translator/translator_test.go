package translator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiro-gateway/kiro-gateway/pkg/dialect"
	"github.com/kiro-gateway/kiro-gateway/pkg/gwtypes"
)

func TestExtractSystemPrompt(t *testing.T) {
	messages := []gwtypes.ChatMessage{
		{Role: gwtypes.RoleSystem, Content: gwtypes.NewTextContent("be nice")},
		{Role: gwtypes.RoleUser, Content: gwtypes.NewTextContent("hi")},
	}
	remaining, system := ExtractSystemPrompt(messages)
	assert.Equal(t, "be nice", system)
	require.Len(t, remaining, 1)
	assert.Equal(t, gwtypes.RoleUser, remaining[0].Role)
}

func TestMergeAdjacent_CoalescesSameRoleStrings(t *testing.T) {
	messages := []gwtypes.ChatMessage{
		{Role: gwtypes.RoleUser, Content: gwtypes.NewTextContent("a")},
		{Role: gwtypes.RoleUser, Content: gwtypes.NewTextContent("b")},
	}
	merged := MergeAdjacent(messages)
	require.Len(t, merged, 1)
	assert.Equal(t, "a\nb", merged[0].Content.Text())
}

func TestMergeAdjacent_ConcatenatesAssistantToolCalls(t *testing.T) {
	messages := []gwtypes.ChatMessage{
		{Role: gwtypes.RoleAssistant, Content: gwtypes.NewTextContent(""), ToolCalls: []gwtypes.ToolCall{{ID: "t1"}}},
		{Role: gwtypes.RoleAssistant, Content: gwtypes.NewTextContent(""), ToolCalls: []gwtypes.ToolCall{{ID: "t2"}}},
	}
	merged := MergeAdjacent(messages)
	require.Len(t, merged, 1)
	require.Len(t, merged[0].ToolCalls, 2)
	assert.Equal(t, "t1", merged[0].ToolCalls[0].ID)
	assert.Equal(t, "t2", merged[0].ToolCalls[1].ID)
}

func TestMergeAdjacent_RewritesToolRoleToUserToolResult(t *testing.T) {
	messages := []gwtypes.ChatMessage{
		{Role: gwtypes.RoleTool, Content: gwtypes.NewTextContent("42"), ToolCallID: "t1"},
	}
	merged := MergeAdjacent(messages)
	require.Len(t, merged, 1)
	assert.Equal(t, gwtypes.RoleUser, merged[0].Role)
	require.True(t, merged[0].Content.IsBlocks())
	blocks := merged[0].Content.Blocks()
	require.Len(t, blocks, 1)
	assert.Equal(t, gwtypes.BlockToolResult, blocks[0].Type)
	assert.Equal(t, "t1", blocks[0].ToolUseID)
}

func TestMergeAdjacent_DoesNotMergeDifferentRoles(t *testing.T) {
	messages := []gwtypes.ChatMessage{
		{Role: gwtypes.RoleUser, Content: gwtypes.NewTextContent("a")},
		{Role: gwtypes.RoleAssistant, Content: gwtypes.NewTextContent("b")},
	}
	merged := MergeAdjacent(messages)
	assert.Len(t, merged, 2)
}

func TestFromAnthropic_ToolUseBecomesAssistantToolCall(t *testing.T) {
	req := dialect.MessagesRequest{
		Messages: []dialect.AnthropicMessage{
			{
				Role: gwtypes.RoleAssistant,
				Content: gwtypes.NewBlocksContent([]gwtypes.ContentBlock{
					{Type: gwtypes.BlockToolUse, ID: "t1", Name: "search", Input: []byte(`{"q":"cats"}`)},
				}),
			},
		},
	}
	messages := FromAnthropic(req)
	require.Len(t, messages, 1)
	require.Len(t, messages[0].ToolCalls, 1)
	assert.Equal(t, "search", messages[0].ToolCalls[0].Function.Name)
}

func TestFromAnthropic_ToolResultBecomesUserMessage(t *testing.T) {
	req := dialect.MessagesRequest{
		Messages: []dialect.AnthropicMessage{
			{
				Role: gwtypes.RoleUser,
				Content: gwtypes.NewBlocksContent([]gwtypes.ContentBlock{
					{Type: gwtypes.BlockToolResult, ToolUseID: "t1", Content: []byte(`"42"`)},
				}),
			},
		},
	}
	messages := FromAnthropic(req)
	require.Len(t, messages, 1)
	assert.Equal(t, gwtypes.RoleUser, messages[0].Role)
	require.True(t, messages[0].Content.IsBlocks())
}

func TestFromAnthropic_SystemPrependedAsSystemMessage(t *testing.T) {
	req := dialect.MessagesRequest{
		System:   mustJSON(t, "be terse"),
		Messages: []dialect.AnthropicMessage{{Role: gwtypes.RoleUser, Content: gwtypes.NewTextContent("hi")}},
	}
	messages := FromAnthropic(req)
	require.Len(t, messages, 2)
	assert.Equal(t, gwtypes.RoleSystem, messages[0].Role)
	assert.Equal(t, "be terse", messages[0].Content.Text())
}

func TestTranslate_SystemPromptInjectedIntoFirstUserHistoryTurn(t *testing.T) {
	tr := New(Options{})
	messages := []gwtypes.ChatMessage{
		{Role: gwtypes.RoleSystem, Content: gwtypes.NewTextContent("be terse")},
		{Role: gwtypes.RoleUser, Content: gwtypes.NewTextContent("first")},
		{Role: gwtypes.RoleAssistant, Content: gwtypes.NewTextContent("ok")},
		{Role: gwtypes.RoleUser, Content: gwtypes.NewTextContent("second")},
	}
	req := tr.Translate(messages, nil, gwtypes.ToolChoice{}, "claude-3-opus", "")

	require.Len(t, req.ConversationState.History, 2)
	assert.Contains(t, req.ConversationState.History[0].UserInputMessage.Content, "be terse")
	assert.Contains(t, req.ConversationState.History[0].UserInputMessage.Content, "first")
	assert.Equal(t, "second", req.ConversationState.CurrentMessage.UserInputMessage.Content)
}

func TestTranslate_ModelIDThreadedIntoHistoryTurns(t *testing.T) {
	tr := New(Options{})
	messages := []gwtypes.ChatMessage{
		{Role: gwtypes.RoleUser, Content: gwtypes.NewTextContent("first")},
		{Role: gwtypes.RoleAssistant, Content: gwtypes.NewTextContent("ok")},
		{Role: gwtypes.RoleUser, Content: gwtypes.NewTextContent("second")},
	}
	req := tr.Translate(messages, nil, gwtypes.ToolChoice{}, "claude-3-opus", "")

	require.Len(t, req.ConversationState.History, 2)
	require.NotNil(t, req.ConversationState.History[0].UserInputMessage)
	assert.Equal(t, "claude-3-opus", req.ConversationState.History[0].UserInputMessage.ModelID)
	assert.Equal(t, "claude-3-opus", req.ConversationState.CurrentMessage.UserInputMessage.ModelID)
}

func TestTranslate_EmptyCurrentMessageBecomesContinue(t *testing.T) {
	tr := New(Options{})
	messages := []gwtypes.ChatMessage{
		{Role: gwtypes.RoleUser, Content: gwtypes.NewTextContent("hi")},
		{Role: gwtypes.RoleAssistant, Content: gwtypes.NewTextContent("reply")},
	}
	req := tr.Translate(messages, nil, gwtypes.ToolChoice{}, "model", "")

	require.Len(t, req.ConversationState.History, 2)
	assert.Equal(t, "Continue", req.ConversationState.CurrentMessage.UserInputMessage.Content)
}

func TestTranslate_ToolSpecificationsAttachedToCurrentMessage(t *testing.T) {
	tr := New(Options{})
	messages := []gwtypes.ChatMessage{
		{Role: gwtypes.RoleUser, Content: gwtypes.NewTextContent("hi")},
	}
	tools := []gwtypes.Tool{{Name: "search", Description: "searches"}}
	req := tr.Translate(messages, tools, gwtypes.ToolChoice{}, "model", "")

	require.NotNil(t, req.ConversationState.CurrentMessage.UserInputMessage.UserInputMessageContext)
	require.Len(t, req.ConversationState.CurrentMessage.UserInputMessage.UserInputMessageContext.Tools, 1)
	assert.Equal(t, "search", req.ConversationState.CurrentMessage.UserInputMessage.UserInputMessageContext.Tools[0].Name)
}

func TestTranslate_ToolChoiceAttachedToCurrentMessageOnly(t *testing.T) {
	tr := New(Options{})
	messages := []gwtypes.ChatMessage{
		{Role: gwtypes.RoleUser, Content: gwtypes.NewTextContent("first")},
		{Role: gwtypes.RoleAssistant, Content: gwtypes.NewTextContent("ok")},
		{Role: gwtypes.RoleUser, Content: gwtypes.NewTextContent("second")},
	}
	toolChoice := gwtypes.ToolChoice{Kind: gwtypes.ToolChoiceFunction, FunctionName: "search"}
	req := tr.Translate(messages, nil, toolChoice, "model", "")

	current := req.ConversationState.CurrentMessage.UserInputMessage.UserInputMessageContext
	require.NotNil(t, current)
	require.NotNil(t, current.ToolChoice)
	assert.Equal(t, gwtypes.ToolChoiceFunction, current.ToolChoice.Kind)
	assert.Equal(t, "search", current.ToolChoice.FunctionName)

	for _, turn := range req.ConversationState.History {
		if turn.UserInputMessage != nil && turn.UserInputMessage.UserInputMessageContext != nil {
			assert.Nil(t, turn.UserInputMessage.UserInputMessageContext.ToolChoice)
		}
	}
}

func TestTranslate_DefaultToolChoiceOmittedFromContext(t *testing.T) {
	tr := New(Options{})
	messages := []gwtypes.ChatMessage{
		{Role: gwtypes.RoleUser, Content: gwtypes.NewTextContent("hi")},
	}
	req := tr.Translate(messages, nil, gwtypes.ToolChoice{Kind: gwtypes.ToolChoiceAuto}, "model", "")

	current := req.ConversationState.CurrentMessage.UserInputMessage.UserInputMessageContext
	require.NotNil(t, current)
	assert.Nil(t, current.ToolChoice)
}

func TestHoistOversizedToolDescriptions(t *testing.T) {
	tr := New(Options{ToolDescriptionMaxLength: 10})
	tools := []gwtypes.Tool{{Name: "search", Description: "this description is definitely too long"}}
	hoisted, system := tr.hoistOversizedToolDescriptions(tools, "")

	assert.Contains(t, hoisted[0].Description, "Full documentation")
	assert.Contains(t, system, "## Tool: search")
	assert.Contains(t, system, "this description is definitely too long")
}

func TestResolveModel_UsesMapWhenPresent(t *testing.T) {
	tr := New(Options{ModelMap: map[string]string{"claude-3-opus": "internal-opus-v1"}})
	assert.Equal(t, "internal-opus-v1", tr.ResolveModel("claude-3-opus"))
	assert.Equal(t, "unmapped-model", tr.ResolveModel("unmapped-model"))
}

func mustJSON(t *testing.T, s string) []byte {
	t.Helper()
	data, err := json.Marshal(s)
	require.NoError(t, err)
	return data
}
