// Package eventstream implements the EventStreamDecoder (spec.md §4.4):
// a stateful decoder over a concatenated byte stream of brace-delimited
// JSON frames, each preceded by a discriminating prefix.
//
// The teacher has no equivalent decoder of its own (its Bedrock
// middleware only sniffs the event-stream Content-Type and never
// binary-decodes frames — pkg/providers/anthropic/bedrock/middleware.go),
// so this package is a from-spec construction kept in the teacher's
// hand-rolled-protocol style rather than reaching for
// aws-sdk-go-v2/aws/protocol/eventstream, a binary framing this upstream
// does not actually use.
package eventstream

// scanFrame scans b, which must begin with '{', for the position where
// the opening brace's depth returns to zero, honoring quoted strings and
// backslash escapes (spec.md §4.4 "Frame boundary detection"). It returns
// the frame length (exclusive end index) and true on success, or
// (0, false) if the buffered input ends before the frame closes.
func scanFrame(b []byte) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(b); i++ {
		c := b[i]

		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// prefixKind pairs a discriminating prefix with the event kind it opens,
// or marks it as discard-on-match (spec.md §4.4's prefix table).
type prefixKind struct {
	prefix  string
	kind    frameKind
	discard bool
}

type frameKind int

const (
	frameContent frameKind = iota
	frameToolStart
	frameToolInput
	frameToolStop
	frameUsage
	frameContextUsage
)

// prefixTable is consulted in the order spec.md §4.4 lists it; ties (two
// prefixes starting at the same buffer offset) cannot occur since no
// prefix is another's own prefix.
var prefixTable = []prefixKind{
	{prefix: `{"content":`, kind: frameContent},
	{prefix: `{"name":`, kind: frameToolStart},
	{prefix: `{"input":`, kind: frameToolInput},
	{prefix: `{"stop":`, kind: frameToolStop},
	{prefix: `{"followupPrompt":`, discard: true},
	{prefix: `{"usage":`, kind: frameUsage},
	{prefix: `{"contextUsagePercentage":`, kind: frameContextUsage},
}

// findNextFrame finds the left-most occurrence of any recognized prefix
// in buf and returns its offset and table entry. found is false if none
// of the prefixes occur anywhere in buf.
func findNextFrame(buf []byte) (offset int, entry prefixKind, found bool) {
	best := -1
	var bestEntry prefixKind

	for _, pk := range prefixTable {
		idx := indexOf(buf, pk.prefix)
		if idx < 0 {
			continue
		}
		if best == -1 || idx < best {
			best = idx
			bestEntry = pk
		}
	}

	if best == -1 {
		return 0, prefixKind{}, false
	}
	return best, bestEntry, true
}

func indexOf(buf []byte, s string) int {
	n := len(s)
	if n == 0 || n > len(buf) {
		return -1
	}
	for i := 0; i+n <= len(buf); i++ {
		if string(buf[i:i+n]) == s {
			return i
		}
	}
	return -1
}
