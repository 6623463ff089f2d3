package streamer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThinkingSplitter_NoTags(t *testing.T) {
	s := &thinkingSplitter{}
	spans := s.feed("hello world")
	spans = append(spans, s.flush()...)

	require.Len(t, spans, 1)
	assert.Equal(t, textSpan{Kind: spanText, Text: "hello world"}, spans[0])
}

func TestThinkingSplitter_SingleBlockInOneChunk(t *testing.T) {
	s := &thinkingSplitter{}
	spans := s.feed("before <thinking>hmm</thinking> after")
	spans = append(spans, s.flush()...)

	require.Len(t, spans, 3)
	assert.Equal(t, textSpan{Kind: spanText, Text: "before "}, spans[0])
	assert.Equal(t, textSpan{Kind: spanThinking, Text: "hmm"}, spans[1])
	assert.Equal(t, textSpan{Kind: spanText, Text: " after"}, spans[2])
}

func TestThinkingSplitter_OpenTagSplitAcrossFeeds(t *testing.T) {
	s := &thinkingSplitter{}
	var spans []textSpan
	spans = append(spans, s.feed("before <think")...)
	spans = append(spans, s.feed("ing>hmm</thinking> after")...)
	spans = append(spans, s.flush()...)

	assert.Equal(t, []textSpan{
		{Kind: spanText, Text: "before "},
		{Kind: spanThinking, Text: "hmm"},
		{Kind: spanText, Text: " after"},
	}, spans)
}

func TestThinkingSplitter_CloseTagSplitAcrossFeeds(t *testing.T) {
	s := &thinkingSplitter{}
	var spans []textSpan
	spans = append(spans, s.feed("<thinking>hmm</think")...)
	spans = append(spans, s.feed("ing> after")...)
	spans = append(spans, s.flush()...)

	assert.Equal(t, []textSpan{
		{Kind: spanThinking, Text: "hmm"},
		{Kind: spanText, Text: " after"},
	}, spans)
}

func TestThinkingSplitter_UnterminatedThinkingAtStreamEnd(t *testing.T) {
	s := &thinkingSplitter{}
	var spans []textSpan
	spans = append(spans, s.feed("before <thinking>never closes")...)
	spans = append(spans, s.flush()...)

	assert.Equal(t, []textSpan{
		{Kind: spanText, Text: "before "},
		{Kind: spanThinking, Text: "never closes"},
	}, spans)
}

func TestThinkingSplitter_DanglingPartialTagPrefixAtStreamEnd(t *testing.T) {
	s := &thinkingSplitter{}
	var spans []textSpan
	spans = append(spans, s.feed("trailing <think")...)
	spans = append(spans, s.flush()...)

	assert.Equal(t, []textSpan{
		{Kind: spanText, Text: "trailing <think"},
	}, spans)
}

func TestThinkingSplitter_MultipleBlocks(t *testing.T) {
	s := &thinkingSplitter{}
	var spans []textSpan
	spans = append(spans, s.feed("a<thinking>one</thinking>b<thinking>two</thinking>c")...)
	spans = append(spans, s.flush()...)

	assert.Equal(t, []textSpan{
		{Kind: spanText, Text: "a"},
		{Kind: spanThinking, Text: "one"},
		{Kind: spanText, Text: "b"},
		{Kind: spanThinking, Text: "two"},
		{Kind: spanText, Text: "c"},
	}, spans)
}
