package streamer

import (
	"io"

	"github.com/kiro-gateway/kiro-gateway/pkg/dialect"
	"github.com/kiro-gateway/kiro-gateway/pkg/eventstream"
	"github.com/kiro-gateway/kiro-gateway/pkg/gwtypes"
	"github.com/kiro-gateway/kiro-gateway/pkg/sse"
)

// OpenAI streams or renders an upstream response body in the OpenAI
// /v1/chat/completions dialect (spec.md §4.6).
type OpenAI struct {
	ID    string
	Model string
}

// openAIToolTracker assigns stable per-call "index" slots as tool calls
// are opened, matching the OpenAI streaming contract where a tool_calls
// delta array is indexed by position rather than by id.
type openAIToolTracker struct {
	indexByID map[string]int
	next      int
	current   string
}

func newOpenAIToolTracker() *openAIToolTracker {
	return &openAIToolTracker{indexByID: map[string]int{}}
}

func (t *openAIToolTracker) open(id string) int {
	idx := t.next
	t.next++
	t.indexByID[id] = idx
	t.current = id
	return idx
}

func (t *openAIToolTracker) currentIndex() (int, bool) {
	idx, ok := t.indexByID[t.current]
	return idx, ok
}

func (t *openAIToolTracker) seen(id string) bool {
	_, ok := t.indexByID[id]
	return ok
}

// Stream drains body and writes the OpenAI-dialect SSE chunk sequence: an
// initial role chunk, a content or tool-call delta per event, and a
// terminal chunk carrying finish_reason and usage, followed by
// "data: [DONE]" (spec.md §4.6).
func (o OpenAI) Stream(w *sse.Writer, body io.Reader, req RequestAccounting, truncated bool) error {
	dec := eventstream.New()
	tracker := newOpenAIToolTracker()
	aux := &usageAccumulator{}
	sentRole := false

	ensureRole := func() error {
		if sentRole {
			return nil
		}
		sentRole = true
		return w.WriteJSON(o.chunk([]dialect.ChatChunkChoice{{Delta: dialect.ChatChunkDelta{Role: "assistant"}}}))
	}

	var writeErr error
	onEvent := func(ev gwtypes.DecodedEvent) {
		if writeErr != nil {
			return
		}
		aux.observe(ev)

		switch ev.Kind {
		case gwtypes.EventContent:
			if ev.Text == "" {
				return
			}
			if err := ensureRole(); err != nil {
				writeErr = err
				return
			}
			writeErr = w.WriteJSON(o.chunk([]dialect.ChatChunkChoice{{Delta: dialect.ChatChunkDelta{Content: ev.Text}}}))

		case gwtypes.EventToolStart:
			if err := ensureRole(); err != nil {
				writeErr = err
				return
			}
			idx := tracker.open(ev.ToolUseID)
			writeErr = w.WriteJSON(o.chunk([]dialect.ChatChunkChoice{{Delta: dialect.ChatChunkDelta{
				ToolCalls: []dialect.ChatChunkToolCallDelta{{
					Index: idx, ID: ev.ToolUseID, Type: "function",
					Function: &dialect.ChatChunkFunctionDelta{Name: ev.ToolName, Arguments: ev.ToolInitialArgs},
				}},
			}}}))

		case gwtypes.EventToolInput:
			idx, ok := tracker.currentIndex()
			if !ok {
				return
			}
			writeErr = w.WriteJSON(o.chunk([]dialect.ChatChunkChoice{{Delta: dialect.ChatChunkDelta{
				ToolCalls: []dialect.ChatChunkToolCallDelta{{
					Index:    idx,
					Function: &dialect.ChatChunkFunctionDelta{Arguments: ev.InputFragment},
				}},
			}}}))
		}
	}

	if err := Drain(body, dec, onEvent); err != nil {
		return err
	}
	if writeErr != nil {
		return writeErr
	}

	toolCalls := dec.Finalize()

	// Bracket-fallback tool calls are only known once the full text is in
	// hand, so they arrive as a single complete delta rather than
	// incremental fragments.
	for _, tc := range toolCalls {
		if tracker.seen(tc.ID) {
			continue
		}
		idx := tracker.open(tc.ID)
		if err := w.WriteJSON(o.chunk([]dialect.ChatChunkChoice{{Delta: dialect.ChatChunkDelta{
			ToolCalls: []dialect.ChatChunkToolCallDelta{{
				Index: idx, ID: tc.ID, Type: "function",
				Function: &dialect.ChatChunkFunctionDelta{Name: tc.Function.Name, Arguments: tc.Function.Arguments},
			}},
		}}})); err != nil {
			return err
		}
	}

	reason := DetermineFinishReason(toolCalls, truncated)
	reasonStr := reason.OpenAIFinishReason()
	usage := buildUsage(req, dec.Text(), toolCalls, aux)

	if err := w.WriteJSON(o.chunkWithUsage([]dialect.ChatChunkChoice{{
		Delta:        dialect.ChatChunkDelta{},
		FinishReason: &reasonStr,
	}}, toUsage(usage))); err != nil {
		return err
	}

	return w.WriteDone()
}

// NonStream drains body and builds the accumulated non-streaming
// ChatCompletionResponse.
func (o OpenAI) NonStream(body io.Reader, req RequestAccounting, truncated bool) (dialect.ChatCompletionResponse, error) {
	dec := eventstream.New()
	aux := &usageAccumulator{}

	if err := Drain(body, dec, aux.observe); err != nil {
		return dialect.ChatCompletionResponse{}, err
	}

	toolCalls := dec.Finalize()
	reason := DetermineFinishReason(toolCalls, truncated)
	usage := buildUsage(req, dec.Text(), toolCalls, aux)

	return dialect.ChatCompletionResponse{
		ID:     o.ID,
		Object: "chat.completion",
		Model:  o.Model,
		Choices: []dialect.ChatChoice{{
			Message: dialect.ChatMessage{
				Role:      gwtypes.RoleAssistant,
				Content:   gwtypes.NewTextContent(dec.Text()),
				ToolCalls: toolCalls,
			},
			FinishReason: reason.OpenAIFinishReason(),
		}},
		Usage: toUsage(usage),
	}, nil
}

func (o OpenAI) chunk(choices []dialect.ChatChunkChoice) dialect.ChatCompletionChunk {
	return dialect.ChatCompletionChunk{ID: o.ID, Object: "chat.completion.chunk", Model: o.Model, Choices: choices}
}

func (o OpenAI) chunkWithUsage(choices []dialect.ChatChunkChoice, usage *dialect.ChatUsage) dialect.ChatCompletionChunk {
	c := o.chunk(choices)
	c.Usage = usage
	return c
}

func toUsage(u gwtypes.Usage) *dialect.ChatUsage {
	return &dialect.ChatUsage{
		PromptTokens:     u.InputTokens,
		CompletionTokens: u.OutputTokens,
		TotalTokens:      u.TotalTokens(),
	}
}
