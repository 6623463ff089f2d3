// Package streamer implements the ResponseStreamer (spec.md §4.6): it
// drains an upstream event-stream body through pkg/eventstream.Decoder and
// renders the result as either dialect's streaming SSE sequence or
// non-streaming JSON envelope.
package streamer

import (
	"io"

	"github.com/kiro-gateway/kiro-gateway/pkg/eventstream"
	"github.com/kiro-gateway/kiro-gateway/pkg/gwtypes"
	"github.com/kiro-gateway/kiro-gateway/pkg/tokenizer"
)

// drainBufferSize matches the teacher's streaming read chunk size
// (pkg/providers/common/streaming/sse_parser.go's bufio.Scanner default
// family); the decoder re-buffers partial frames itself so this is purely
// a read-granularity knob.
const drainBufferSize = 4096

// Drain reads body to completion, feeding every chunk through dec and
// invoking onEvent for each decoded event in order. It returns the first
// non-EOF read error, if any.
func Drain(body io.Reader, dec *eventstream.Decoder, onEvent func(gwtypes.DecodedEvent)) error {
	buf := make([]byte, drainBufferSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			for _, ev := range dec.Feed(buf[:n]) {
				onEvent(ev)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// RequestAccounting carries the inputs needed to estimate the input-token
// half of usage accounting (spec.md §4.6 "Usage accounting") plus the
// per-request toggles the streamer must gate its output on.
type RequestAccounting struct {
	Messages     []gwtypes.ChatMessage
	Tools        []gwtypes.Tool
	SystemPrompt string

	// ThinkingEnabled gates thinking_delta synthesis in the Anthropic
	// dialect (spec.md §4.6, §9 Open Question); ignored by the OpenAI
	// dialect, which has no thinking block concept.
	ThinkingEnabled bool
}

// InputTokens estimates the request's input token count.
func (r RequestAccounting) InputTokens() int {
	return tokenizer.EstimateRequestTokens(r.Messages, r.Tools, r.SystemPrompt)
}

// DetermineFinishReason implements spec.md §4.6's finish-reason mapping:
// any finalized tool call takes priority, then an upstream length cap,
// else a normal stop.
func DetermineFinishReason(toolCalls []gwtypes.ToolCall, truncated bool) gwtypes.FinishReason {
	if len(toolCalls) > 0 {
		return gwtypes.FinishToolCalls
	}
	if truncated {
		return gwtypes.FinishLength
	}
	return gwtypes.FinishStop
}

// usageAccumulator tracks the upstream EventUsage credits seen across a
// drain, surfaced as an auxiliary counter only (spec.md §4.6: "upstream
// Usage event surfaced as auxiliary counter only") — it never substitutes
// for the tokenizer-derived input/output token counts.
type usageAccumulator struct {
	seen    bool
	credits float64
}

func (u *usageAccumulator) observe(ev gwtypes.DecodedEvent) {
	if ev.Kind != gwtypes.EventUsage {
		return
	}
	u.seen = true
	u.credits += ev.Credits
}

func (u *usageAccumulator) apply(usage gwtypes.Usage) gwtypes.Usage {
	if u.seen {
		credits := u.credits
		usage.UpstreamCredits = &credits
	}
	return usage
}

// buildUsage assembles the final Usage from the request accounting and the
// drained response text/tool calls.
func buildUsage(req RequestAccounting, text string, toolCalls []gwtypes.ToolCall, aux *usageAccumulator) gwtypes.Usage {
	usage := gwtypes.Usage{
		InputTokens:  req.InputTokens(),
		OutputTokens: tokenizer.CountOutput(text, toolCalls),
	}
	return aux.apply(usage)
}
