package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kiro-gateway/kiro-gateway/pkg/gwtypes"
)

func TestCount_EmptyStringIsZero(t *testing.T) {
	assert.Equal(t, 0, Count(""))
}

func TestCount_NonEmptyIsPositive(t *testing.T) {
	assert.Greater(t, Count("the quick brown fox jumps over the lazy dog"), 0)
}

func TestCount_LongerTextCountsMore(t *testing.T) {
	short := Count("hello")
	long := Count("hello, this is a substantially longer sentence with many more words in it")
	assert.Greater(t, long, short)
}

func TestCountMessages_EmptyIsZero(t *testing.T) {
	assert.Equal(t, 0, CountMessages(nil))
}

func TestCountMessages_AccountsForRoleAndContent(t *testing.T) {
	messages := []gwtypes.ChatMessage{
		{Role: gwtypes.RoleUser, Content: gwtypes.NewTextContent("hello there")},
	}
	assert.Greater(t, CountMessages(messages), 0)
}

func TestCountMessages_ToolCallsAddTokens(t *testing.T) {
	base := []gwtypes.ChatMessage{
		{Role: gwtypes.RoleAssistant, Content: gwtypes.NewTextContent("")},
	}
	withTool := []gwtypes.ChatMessage{
		{
			Role:    gwtypes.RoleAssistant,
			Content: gwtypes.NewTextContent(""),
			ToolCalls: []gwtypes.ToolCall{
				{ID: "t1", Function: gwtypes.ToolCallFunc{Name: "search", Arguments: `{"q":"cats"}`}},
			},
		},
	}
	assert.Greater(t, CountMessages(withTool), CountMessages(base))
}

func TestCountTools_EmptyIsZero(t *testing.T) {
	assert.Equal(t, 0, CountTools(nil))
}

func TestCountTools_Positive(t *testing.T) {
	tools := []gwtypes.Tool{{Name: "search", Description: "searches the web"}}
	assert.Greater(t, CountTools(tools), 0)
}

func TestCountOutput_IncludesToolCallText(t *testing.T) {
	base := CountOutput("", nil)
	withTool := CountOutput("", []gwtypes.ToolCall{
		{Function: gwtypes.ToolCallFunc{Name: "search", Arguments: `{"q":"cats"}`}},
	})
	assert.Greater(t, withTool, base)
}
