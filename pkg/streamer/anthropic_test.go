package streamer

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiro-gateway/kiro-gateway/pkg/sse"
)

func testReqThinking() RequestAccounting {
	req := testReq()
	req.ThinkingEnabled = true
	return req
}

func TestAnthropicStream_ThinkingDisabled_NoThinkingBlock(t *testing.T) {
	body := strings.NewReader(`{"content":"before <thinking>hmm</thinking> after"}`)
	rec := httptest.NewRecorder()
	w := sse.New(rec)

	a := Anthropic{ID: "msg1", Model: "claude-x"}
	require.NoError(t, a.Stream(w, body, testReq(), false))

	out := rec.Body.String()
	assert.NotContains(t, out, "thinking_delta")
	assert.NotContains(t, out, `"type":"thinking"`)
	assert.Contains(t, out, `"type":"text_delta"`)
	// sse.Writer JSON-encodes every delta, which escapes '<' and '>'.
	assert.Contains(t, out, "\\u003cthinking\\u003e")
}

func TestAnthropicStream_ThinkingEnabled_EmitsThinkingBlock(t *testing.T) {
	body := strings.NewReader(`{"content":"before <thinking>hmm</thinking> after"}`)
	rec := httptest.NewRecorder()
	w := sse.New(rec)

	a := Anthropic{ID: "msg1", Model: "claude-x"}
	require.NoError(t, a.Stream(w, body, testReqThinking(), false))

	out := rec.Body.String()
	assert.Contains(t, out, `"type":"thinking"`)
	assert.Contains(t, out, `"type":"thinking_delta"`)
	assert.Contains(t, out, `"thinking":"hmm"`)
	assert.Contains(t, out, `"type":"text_delta"`)
	assert.NotContains(t, out, "\\u003cthinking\\u003e")
}

func TestAnthropicStream_ThinkingEnabled_SplitAcrossContentEvents(t *testing.T) {
	body := strings.NewReader(
		`{"content":"start <think"}` +
			`{"content":"ing>reasoning</thinking> end"}`,
	)
	rec := httptest.NewRecorder()
	w := sse.New(rec)

	a := Anthropic{ID: "msg1", Model: "claude-x"}
	require.NoError(t, a.Stream(w, body, testReqThinking(), false))

	out := rec.Body.String()
	assert.Contains(t, out, `"type":"thinking"`)
	assert.Contains(t, out, `"thinking":"reasoning"`)
	assert.Contains(t, out, `"text":" end"`)
}

func TestAnthropicStream_ThinkingEnabled_UnterminatedAtStreamEnd(t *testing.T) {
	body := strings.NewReader(`{"content":"before <thinking>trailing thought"}`)
	rec := httptest.NewRecorder()
	w := sse.New(rec)

	a := Anthropic{ID: "msg1", Model: "claude-x"}
	require.NoError(t, a.Stream(w, body, testReqThinking(), false))

	out := rec.Body.String()
	assert.Contains(t, out, `"thinking":"trailing thought"`)
}

func TestAnthropicNonStream_ThinkingDisabled_SingleTextBlock(t *testing.T) {
	body := strings.NewReader(`{"content":"before <thinking>hmm</thinking> after"}`)
	a := Anthropic{ID: "msg1", Model: "claude-x"}

	resp, err := a.NonStream(body, testReq(), false)
	require.NoError(t, err)
	require.Len(t, resp.Content, 1)
	assert.Contains(t, resp.Content[0].Text, "<thinking>")
}

func TestAnthropicNonStream_ThinkingEnabled_SplitsThinkingAndTextBlocks(t *testing.T) {
	body := strings.NewReader(`{"content":"before <thinking>hmm</thinking> after"}`)
	a := Anthropic{ID: "msg1", Model: "claude-x"}

	resp, err := a.NonStream(body, testReqThinking(), false)
	require.NoError(t, err)
	require.Len(t, resp.Content, 3)
	assert.Equal(t, "before ", resp.Content[0].Text)
	assert.Equal(t, "hmm", resp.Content[1].Thinking)
	assert.Equal(t, " after", resp.Content[2].Text)
}
