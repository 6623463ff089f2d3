package streamer

import (
	"io"

	"github.com/kiro-gateway/kiro-gateway/pkg/dialect"
	"github.com/kiro-gateway/kiro-gateway/pkg/eventstream"
	"github.com/kiro-gateway/kiro-gateway/pkg/gwtypes"
	"github.com/kiro-gateway/kiro-gateway/pkg/sse"
)

// Anthropic streams or renders an upstream response body in the
// Anthropic /v1/messages dialect (spec.md §4.6).
type Anthropic struct {
	ID    string
	Model string
}

// anthropicBlockState tracks which content-block index is currently open
// and what kind it is, so content blocks get contiguous indices as the
// response interleaves text and tool_use blocks.
type anthropicBlockState struct {
	nextIndex int
	openKind  string // "", "text", "tool_use", "thinking"
	openIndex int
}

// Stream drains body and writes the Anthropic-dialect SSE event sequence:
// message_start, then one content_block_start/delta/...[/stop] run per
// text span or tool call, then message_delta and message_stop (spec.md
// §4.6).
func (a Anthropic) Stream(w *sse.Writer, body io.Reader, req RequestAccounting, truncated bool) error {
	dec := eventstream.New()
	aux := &usageAccumulator{}
	state := &anthropicBlockState{}
	seenToolIDs := map[string]bool{}
	splitter := &thinkingSplitter{}

	if err := w.WriteNamedEvent("message_start", dialect.MessageStartEvent{
		Type: "message_start",
		Message: dialect.MessageStartBody{
			ID: a.ID, Type: "message", Role: gwtypes.RoleAssistant, Model: a.Model,
			Usage: dialect.AnthropicUsage{InputTokens: req.InputTokens()},
		},
	}); err != nil {
		return err
	}

	openTextBlock := func() (int, error) {
		if state.openKind == "text" {
			return state.openIndex, nil
		}
		if err := a.closeOpenBlock(w, state); err != nil {
			return 0, err
		}
		idx := state.nextIndex
		state.nextIndex++
		state.openKind, state.openIndex = "text", idx
		return idx, w.WriteNamedEvent("content_block_start", dialect.ContentBlockStartEvent{
			Type: "content_block_start", Index: idx,
			ContentBlock: gwtypes.ContentBlock{Type: gwtypes.BlockText, Text: ""},
		})
	}

	openThinkingBlock := func() (int, error) {
		if state.openKind == "thinking" {
			return state.openIndex, nil
		}
		if err := a.closeOpenBlock(w, state); err != nil {
			return 0, err
		}
		idx := state.nextIndex
		state.nextIndex++
		state.openKind, state.openIndex = "thinking", idx
		return idx, w.WriteNamedEvent("content_block_start", dialect.ContentBlockStartEvent{
			Type: "content_block_start", Index: idx,
			ContentBlock: gwtypes.ContentBlock{Type: gwtypes.BlockThinking, Thinking: ""},
		})
	}

	writeContentText := func(text string) error {
		if !req.ThinkingEnabled {
			idx, err := openTextBlock()
			if err != nil {
				return err
			}
			return w.WriteNamedEvent("content_block_delta", dialect.ContentBlockDeltaEvent{
				Type: "content_block_delta", Index: idx,
				Delta: dialect.ContentBlockDeltaBody{Type: "text_delta", Text: text},
			})
		}

		for _, span := range splitter.feed(text) {
			if err := writeSpan(w, openTextBlock, openThinkingBlock, span); err != nil {
				return err
			}
		}
		return nil
	}

	openToolBlock := func(id, name string) (int, error) {
		if err := a.closeOpenBlock(w, state); err != nil {
			return 0, err
		}
		seenToolIDs[id] = true
		idx := state.nextIndex
		state.nextIndex++
		state.openKind, state.openIndex = "tool_use", idx
		return idx, w.WriteNamedEvent("content_block_start", dialect.ContentBlockStartEvent{
			Type: "content_block_start", Index: idx,
			ContentBlock: gwtypes.ContentBlock{Type: gwtypes.BlockToolUse, ID: id, Name: name},
		})
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
			writeErr = writeContentText(ev.Text)

		case gwtypes.EventToolStart:
			idx, err := openToolBlock(ev.ToolUseID, ev.ToolName)
			if err != nil {
				writeErr = err
				return
			}
			if ev.ToolInitialArgs == "" {
				return
			}
			writeErr = w.WriteNamedEvent("content_block_delta", dialect.ContentBlockDeltaEvent{
				Type: "content_block_delta", Index: idx,
				Delta: dialect.ContentBlockDeltaBody{Type: "input_json_delta", PartialJSON: ev.ToolInitialArgs},
			})

		case gwtypes.EventToolInput:
			if state.openKind != "tool_use" {
				return
			}
			writeErr = w.WriteNamedEvent("content_block_delta", dialect.ContentBlockDeltaEvent{
				Type: "content_block_delta", Index: state.openIndex,
				Delta: dialect.ContentBlockDeltaBody{Type: "input_json_delta", PartialJSON: ev.InputFragment},
			})

		case gwtypes.EventToolStop:
			writeErr = a.closeOpenBlock(w, state)
		}
	}

	if err := Drain(body, dec, onEvent); err != nil {
		return err
	}
	if writeErr != nil {
		return writeErr
	}

	if req.ThinkingEnabled {
		for _, span := range splitter.flush() {
			if err := writeSpan(w, openTextBlock, openThinkingBlock, span); err != nil {
				return err
			}
		}
	}

	toolCalls := dec.Finalize()

	// Bracket-fallback tool calls have no corresponding ToolStart/ToolStop
	// events (their own blocks were never opened), so open-emit-close a
	// block for each of them now, in one shot. Calls already streamed via
	// ToolStart are skipped to avoid emitting their block twice.
	for _, tc := range toolCalls {
		if seenToolIDs[tc.ID] {
			continue
		}
		idx, err := openToolBlock(tc.ID, tc.Function.Name)
		if err != nil {
			return err
		}
		if err := w.WriteNamedEvent("content_block_delta", dialect.ContentBlockDeltaEvent{
			Type: "content_block_delta", Index: idx,
			Delta: dialect.ContentBlockDeltaBody{Type: "input_json_delta", PartialJSON: tc.Function.Arguments},
		}); err != nil {
			return err
		}
		if err := a.closeOpenBlock(w, state); err != nil {
			return err
		}
	}

	if err := a.closeOpenBlock(w, state); err != nil {
		return err
	}

	reason := DetermineFinishReason(toolCalls, truncated)
	usage := buildUsage(req, dec.Text(), toolCalls, aux)

	if err := w.WriteNamedEvent("message_delta", dialect.MessageDeltaEvent{
		Type:  "message_delta",
		Delta: dialect.MessageDeltaBody{StopReason: reason.AnthropicStopReason()},
		Usage: dialect.MessageDeltaUsageBody{OutputTokens: usage.OutputTokens},
	}); err != nil {
		return err
	}

	return w.WriteNamedEvent("message_stop", dialect.MessageStopEvent{Type: "message_stop"})
}

// writeSpan opens the block matching span.Kind (reusing an
// already-open block of the same kind) and writes its delta.
func writeSpan(w *sse.Writer, openText, openThinking func() (int, error), span textSpan) error {
	if span.Text == "" {
		return nil
	}
	if span.Kind == spanThinking {
		idx, err := openThinking()
		if err != nil {
			return err
		}
		return w.WriteNamedEvent("content_block_delta", dialect.ContentBlockDeltaEvent{
			Type: "content_block_delta", Index: idx,
			Delta: dialect.ContentBlockDeltaBody{Type: "thinking_delta", Thinking: span.Text},
		})
	}
	idx, err := openText()
	if err != nil {
		return err
	}
	return w.WriteNamedEvent("content_block_delta", dialect.ContentBlockDeltaEvent{
		Type: "content_block_delta", Index: idx,
		Delta: dialect.ContentBlockDeltaBody{Type: "text_delta", Text: span.Text},
	})
}

// textBlocks renders accumulated response text as content blocks. When
// thinking is disabled it is always one text block, as before; when
// enabled the text is split on <thinking>...</thinking> tags into
// alternating text/thinking blocks, coalescing adjacent spans of the
// same kind the way the streaming path reuses an already-open block.
func textBlocks(text string, thinkingEnabled bool) []gwtypes.ContentBlock {
	if !thinkingEnabled {
		return []gwtypes.ContentBlock{{Type: gwtypes.BlockText, Text: text}}
	}

	splitter := &thinkingSplitter{}
	spans := append(splitter.feed(text), splitter.flush()...)

	var blocks []gwtypes.ContentBlock
	for _, span := range spans {
		if span.Text == "" {
			continue
		}
		if span.Kind == spanThinking && len(blocks) > 0 && blocks[len(blocks)-1].Type == gwtypes.BlockThinking {
			blocks[len(blocks)-1].Thinking += span.Text
			continue
		}
		if span.Kind == spanText && len(blocks) > 0 && blocks[len(blocks)-1].Type == gwtypes.BlockText {
			blocks[len(blocks)-1].Text += span.Text
			continue
		}
		if span.Kind == spanThinking {
			blocks = append(blocks, gwtypes.ContentBlock{Type: gwtypes.BlockThinking, Thinking: span.Text})
		} else {
			blocks = append(blocks, gwtypes.ContentBlock{Type: gwtypes.BlockText, Text: span.Text})
		}
	}
	return blocks
}

func (a Anthropic) closeOpenBlock(w *sse.Writer, state *anthropicBlockState) error {
	if state.openKind == "" {
		return nil
	}
	idx := state.openIndex
	state.openKind = ""
	return w.WriteNamedEvent("content_block_stop", dialect.ContentBlockStopEvent{Type: "content_block_stop", Index: idx})
}

// NonStream drains body and builds the accumulated non-streaming
// MessagesResponse.
func (a Anthropic) NonStream(body io.Reader, req RequestAccounting, truncated bool) (dialect.MessagesResponse, error) {
	dec := eventstream.New()
	aux := &usageAccumulator{}

	if err := Drain(body, dec, aux.observe); err != nil {
		return dialect.MessagesResponse{}, err
	}

	toolCalls := dec.Finalize()
	reason := DetermineFinishReason(toolCalls, truncated)
	usage := buildUsage(req, dec.Text(), toolCalls, aux)

	var blocks []gwtypes.ContentBlock
	if text := dec.Text(); text != "" {
		blocks = append(blocks, textBlocks(text, req.ThinkingEnabled)...)
	}
	for _, tc := range toolCalls {
		blocks = append(blocks, gwtypes.ContentBlock{
			Type: gwtypes.BlockToolUse, ID: tc.ID, Name: tc.Function.Name,
			Input: []byte(tc.Function.NormalizeArguments()),
		})
	}

	return dialect.MessagesResponse{
		ID: a.ID, Type: "message", Role: gwtypes.RoleAssistant,
		Content:    blocks,
		Model:      a.Model,
		StopReason: reason.AnthropicStopReason(),
		Usage:      dialect.AnthropicUsage{InputTokens: usage.InputTokens, OutputTokens: usage.OutputTokens},
	}, nil
}
