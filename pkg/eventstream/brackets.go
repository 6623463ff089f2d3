package eventstream

import (
	"strings"

	"github.com/kiro-gateway/kiro-gateway/pkg/gwtypes"
)

const (
	bracketMarker    = "[Called "
	bracketWithArgs  = " with args: "
	bracketCloseChar = ']'
)

// scanBracketToolCalls implements spec.md §4.4's "Bracket tool-call
// fallback": a separate scan of the full accumulated text for
// "[Called <name> with args: {...json...}]" occurrences, reusing the
// same brace-balanced scanner for the nested JSON arguments.
func scanBracketToolCalls(text string) []gwtypes.ToolCall {
	var calls []gwtypes.ToolCall

	pos := 0
	for {
		rel := strings.Index(text[pos:], bracketMarker)
		if rel < 0 {
			break
		}
		start := pos + rel
		afterMarker := start + len(bracketMarker)

		withRel := strings.Index(text[afterMarker:], bracketWithArgs)
		if withRel < 0 {
			pos = afterMarker
			continue
		}
		name := text[afterMarker : afterMarker+withRel]
		argsStart := afterMarker + withRel + len(bracketWithArgs)

		if argsStart >= len(text) || text[argsStart] != '{' {
			pos = afterMarker
			continue
		}

		length, complete := scanFrame([]byte(text[argsStart:]))
		if !complete {
			pos = afterMarker
			continue
		}

		argsEnd := argsStart + length
		if argsEnd >= len(text) || text[argsEnd] != bracketCloseChar {
			pos = afterMarker
			continue
		}

		calls = append(calls, gwtypes.ToolCall{
			Type: "function",
			Function: gwtypes.ToolCallFunc{
				Name:      name,
				Arguments: canonicalizeArguments(text[argsStart:argsEnd]),
			},
		})
		pos = argsEnd + 1
	}

	return calls
}

// dedupToolCalls applies spec.md §4.4's two-pass tool-call deduplication:
// (1) group by id, keeping the entry with the longer non-empty arguments;
// (2) across the resulting set, drop later entries whose (name,
// arguments) pair already appeared.
func dedupToolCalls(calls []gwtypes.ToolCall) []gwtypes.ToolCall {
	byID := make(map[string]int) // id -> index into deduped
	var deduped []gwtypes.ToolCall

	for _, c := range calls {
		if c.ID == "" {
			deduped = append(deduped, c)
			continue
		}
		if idx, ok := byID[c.ID]; ok {
			if len(c.Function.Arguments) > len(deduped[idx].Function.Arguments) {
				deduped[idx] = c
			}
			continue
		}
		byID[c.ID] = len(deduped)
		deduped = append(deduped, c)
	}

	seen := make(map[string]bool)
	var result []gwtypes.ToolCall
	for _, c := range deduped {
		key := c.Function.Name + "\x00" + c.Function.Arguments
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, c)
	}

	return result
}
