package streamer

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiro-gateway/kiro-gateway/pkg/gwtypes"
	"github.com/kiro-gateway/kiro-gateway/pkg/sse"
)

func testReq() RequestAccounting {
	return RequestAccounting{
		Messages: []gwtypes.ChatMessage{{Role: gwtypes.RoleUser, Content: gwtypes.NewTextContent("hi")}},
	}
}

func TestOpenAIStream_ContentAndToolCall(t *testing.T) {
	body := strings.NewReader(
		`{"content":"hello "}` +
			`{"content":"world"}` +
			`{"name":"search","toolUseId":"t1","input":{}}` +
			`{"input":{"q":"cats"}}` +
			`{"stop":true}`,
	)
	rec := httptest.NewRecorder()
	w := sse.New(rec)

	o := OpenAI{ID: "resp1", Model: "gpt-x"}
	err := o.Stream(w, body, testReq(), false)
	require.NoError(t, err)

	out := rec.Body.String()
	assert.Contains(t, out, `"role":"assistant"`)
	assert.Contains(t, out, `"content":"hello "`)
	assert.Contains(t, out, `"content":"world"`)
	assert.Contains(t, out, `"name":"search"`)
	assert.Contains(t, out, `"finish_reason":"tool_calls"`)
	assert.Contains(t, out, "data: [DONE]")
}

func TestOpenAINonStream_AccumulatesContentAndUsage(t *testing.T) {
	body := strings.NewReader(`{"content":"hello"}{"content":" world"}`)
	o := OpenAI{ID: "resp1", Model: "gpt-x"}

	resp, err := o.NonStream(body, testReq(), false)
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "hello world", resp.Choices[0].Message.Content.Text())
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
	require.NotNil(t, resp.Usage)
	assert.Greater(t, resp.Usage.PromptTokens, 0)
}

func TestOpenAINonStream_ToolCallsSetFinishReason(t *testing.T) {
	body := strings.NewReader(`{"name":"search","toolUseId":"t1","input":{}}{"input":{"q":"x"}}{"stop":true}`)
	o := OpenAI{ID: "resp1", Model: "gpt-x"}

	resp, err := o.NonStream(body, testReq(), false)
	require.NoError(t, err)
	assert.Equal(t, "tool_calls", resp.Choices[0].FinishReason)
	require.Len(t, resp.Choices[0].Message.ToolCalls, 1)
	assert.Equal(t, "search", resp.Choices[0].Message.ToolCalls[0].Function.Name)
}

func TestOpenAIStream_TruncatedWithoutToolCallsIsLength(t *testing.T) {
	body := strings.NewReader(`{"content":"partial"}`)
	rec := httptest.NewRecorder()
	w := sse.New(rec)

	o := OpenAI{ID: "resp1", Model: "gpt-x"}
	require.NoError(t, o.Stream(w, body, testReq(), true))
	assert.Contains(t, rec.Body.String(), `"finish_reason":"length"`)
}

func TestAnthropicStream_TextBlockLifecycle(t *testing.T) {
	body := strings.NewReader(`{"content":"hi there"}`)
	rec := httptest.NewRecorder()
	w := sse.New(rec)

	a := Anthropic{ID: "msg1", Model: "claude-x"}
	require.NoError(t, a.Stream(w, body, testReq(), false))

	out := rec.Body.String()
	assert.Contains(t, out, "event: message_start")
	assert.Contains(t, out, "event: content_block_start")
	assert.Contains(t, out, `"type":"text_delta"`)
	assert.Contains(t, out, "event: content_block_stop")
	assert.Contains(t, out, `"stop_reason":"end_turn"`)
	assert.Contains(t, out, "event: message_stop")
}

func TestAnthropicStream_ToolUseOpensDistinctBlockFromText(t *testing.T) {
	body := strings.NewReader(
		`{"content":"thinking..."}` +
			`{"name":"search","toolUseId":"t1","input":{}}` +
			`{"input":{"q":"cats"}}` +
			`{"stop":true}`,
	)
	rec := httptest.NewRecorder()
	w := sse.New(rec)

	a := Anthropic{ID: "msg1", Model: "claude-x"}
	require.NoError(t, a.Stream(w, body, testReq(), false))

	out := rec.Body.String()
	assert.Contains(t, out, `"index":0`)
	assert.Contains(t, out, `"index":1`)
	assert.Contains(t, out, `"type":"tool_use"`)
	assert.Contains(t, out, `"stop_reason":"tool_use"`)
}

func TestAnthropicNonStream_BuildsContentBlocks(t *testing.T) {
	body := strings.NewReader(`{"content":"hello"}{"name":"search","toolUseId":"t1","input":{}}{"input":{}}{"stop":true}`)
	a := Anthropic{ID: "msg1", Model: "claude-x"}

	resp, err := a.NonStream(body, testReq(), false)
	require.NoError(t, err)
	require.Len(t, resp.Content, 2)
	assert.Equal(t, gwtypes.BlockText, resp.Content[0].Type)
	assert.Equal(t, gwtypes.BlockToolUse, resp.Content[1].Type)
	assert.Equal(t, "tool_use", resp.StopReason)
}

func TestDetermineFinishReason(t *testing.T) {
	assert.Equal(t, gwtypes.FinishToolCalls, DetermineFinishReason([]gwtypes.ToolCall{{ID: "t1"}}, false))
	assert.Equal(t, gwtypes.FinishLength, DetermineFinishReason(nil, true))
	assert.Equal(t, gwtypes.FinishStop, DetermineFinishReason(nil, false))
}
