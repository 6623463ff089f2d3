package eventstream

import (
	"encoding/json"
	"strings"

	"github.com/kiro-gateway/kiro-gateway/pkg/gwtypes"
)

// Decoder is stateless over bytes but stateful over a running buffer: it
// accumulates partial frames across Feed calls and tracks in-flight tool
// call assembly and content dedup across the whole response.
type Decoder struct {
	buf []byte

	hasLastContent bool
	lastContent    string

	pending   *gwtypes.PendingToolCall
	completed []gwtypes.ToolCall

	fullText strings.Builder
}

// New returns an empty Decoder.
func New() *Decoder {
	return &Decoder{}
}

// Feed appends data to the internal buffer and extracts as many complete
// frames as are available, returning one gwtypes.DecodedEvent per
// non-discarded, non-deduplicated frame. Incomplete trailing bytes remain
// buffered for the next Feed call.
func (d *Decoder) Feed(data []byte) []gwtypes.DecodedEvent {
	d.buf = append(d.buf, data...)

	var out []gwtypes.DecodedEvent
	for {
		offset, entry, found := findNextFrame(d.buf)
		if !found {
			break
		}
		if offset > 0 {
			d.buf = d.buf[offset:]
		}

		length, complete := scanFrame(d.buf)
		if !complete {
			break
		}

		frame := d.buf[:length]
		d.buf = d.buf[length:]

		if entry.discard {
			continue
		}

		ev, ok := decodeFrame(entry.kind, frame)
		if !ok {
			continue
		}

		if ev.Kind == gwtypes.EventContent {
			if d.hasLastContent && d.lastContent == ev.Text {
				continue // spec.md §4.4 content dedup
			}
			d.hasLastContent = true
			d.lastContent = ev.Text
			d.fullText.WriteString(ev.Text)
		}

		d.assembleToolCall(ev)

		out = append(out, ev)
	}
	return out
}

// assembleToolCall maintains the pending-tool-call accumulator described
// in spec.md §4.4 "Tool-call assembly".
func (d *Decoder) assembleToolCall(ev gwtypes.DecodedEvent) {
	switch ev.Kind {
	case gwtypes.EventToolStart:
		if d.pending != nil {
			d.finalizePending()
		}
		d.pending = &gwtypes.PendingToolCall{
			ID:          ev.ToolUseID,
			Name:        ev.ToolName,
			Accumulator: ev.ToolInitialArgs,
		}
	case gwtypes.EventToolInput:
		if d.pending != nil {
			d.pending.Accumulator += ev.InputFragment
		}
	case gwtypes.EventToolStop:
		d.finalizePending()
	}
}

func (d *Decoder) finalizePending() {
	if d.pending == nil {
		return
	}
	d.completed = append(d.completed, gwtypes.ToolCall{
		ID:   d.pending.ID,
		Type: "function",
		Function: gwtypes.ToolCallFunc{
			Name:      d.pending.Name,
			Arguments: canonicalizeArguments(d.pending.Accumulator),
		},
	})
	d.pending = nil
}

// Finalize closes out the response: finalizes any still-pending tool
// call, runs the bracket-tool-call fallback scan over the accumulated
// text, and returns the deduplicated tool-call set (spec.md §4.4
// "Tool-call deduplication").
func (d *Decoder) Finalize() []gwtypes.ToolCall {
	d.finalizePending()
	d.completed = append(d.completed, scanBracketToolCalls(d.fullText.String())...)
	return dedupToolCalls(d.completed)
}

// Text returns the full deduplicated content text accumulated so far.
func (d *Decoder) Text() string {
	return d.fullText.String()
}

// canonicalizeArguments parses raw as JSON and re-serializes it; empty or
// invalid input normalizes to "{}" (spec.md §4.4 "On finalization...").
func canonicalizeArguments(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "{}"
	}
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return "{}"
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(out)
}

// decodeFrame parses one recognized frame into a DecodedEvent. ok is
// false if the frame's JSON cannot be decoded (malformed frames are
// dropped rather than surfaced, matching the decoder's "best effort over
// a lossy upstream" posture).
func decodeFrame(kind frameKind, frame []byte) (gwtypes.DecodedEvent, bool) {
	var m map[string]interface{}
	if err := json.Unmarshal(frame, &m); err != nil {
		return gwtypes.DecodedEvent{}, false
	}

	switch kind {
	case frameContent:
		text, _ := m["content"].(string)
		return gwtypes.DecodedEvent{Kind: gwtypes.EventContent, Text: text}, true

	case frameToolStart:
		name, _ := m["name"].(string)
		id, _ := m["toolUseId"].(string)
		initial := stringifyField(m["input"])
		return gwtypes.DecodedEvent{
			Kind:            gwtypes.EventToolStart,
			ToolName:        name,
			ToolUseID:       id,
			ToolInitialArgs: initial,
		}, true

	case frameToolInput:
		return gwtypes.DecodedEvent{
			Kind:          gwtypes.EventToolInput,
			InputFragment: stringifyField(m["input"]),
		}, true

	case frameToolStop:
		return gwtypes.DecodedEvent{Kind: gwtypes.EventToolStop}, true

	case frameUsage:
		credits := 0.0
		if u, ok := m["usage"].(map[string]interface{}); ok {
			for _, key := range []string{"credits", "cost", "creditsUsed"} {
				if v, ok := u[key].(float64); ok {
					credits = v
					break
				}
			}
		} else if v, ok := m["usage"].(float64); ok {
			credits = v
		}
		return gwtypes.DecodedEvent{Kind: gwtypes.EventUsage, Credits: credits}, true

	case frameContextUsage:
		pct, _ := m["contextUsagePercentage"].(float64)
		return gwtypes.DecodedEvent{Kind: gwtypes.EventContextUsage, ContextUsagePercent: pct}, true

	default:
		return gwtypes.DecodedEvent{}, false
	}
}

// stringifyField renders an "input" field as the accumulator expects:
// passed through unchanged if already a string, JSON-encoded otherwise
// (spec.md §4.4 "append their input field (stringified if object)").
func stringifyField(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	out, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(out)
}
