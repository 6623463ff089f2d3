package streamer

import "strings"

const (
	thinkOpenTag  = "<thinking>"
	thinkCloseTag = "</thinking>"
)

// textSpanKind discriminates one span produced by thinkingSplitter.
type textSpanKind int

const (
	spanText textSpanKind = iota
	spanThinking
)

type textSpan struct {
	Kind textSpanKind
	Text string
}

// thinkingSplitter incrementally splits streamed text on
// <thinking>...</thinking> tags (spec.md §9's Open Question: thinking
// has no native upstream representation, so output is "synthesize[d]
// ... only when the request opted in" — the model's own
// <thinking>...</thinking> prose, which pkg/translator/convert.go
// already produces on the input side, is split back out into a
// distinct thinking block on the way out, gated on
// MessagesRequest.ThinkingEnabled()). Fed across a sequence of
// EventContent fragments that may split a tag across chunk boundaries,
// so a tail that could still grow into a recognized tag is held back
// until it resolves or the stream ends.
type thinkingSplitter struct {
	inThinking bool
	buf        string
}

func (s *thinkingSplitter) feed(text string) []textSpan {
	s.buf += text
	return s.resolve(false)
}

// flush emits anything still buffered at stream end. An unterminated
// "<thinking>" with no matching close is emitted as thinking text
// (the model started a block and the stream simply ended); a dangling
// partial tag prefix with no close is emitted as plain text.
func (s *thinkingSplitter) flush() []textSpan {
	return s.resolve(true)
}

func (s *thinkingSplitter) resolve(final bool) []textSpan {
	var spans []textSpan
	for {
		tag := thinkCloseTag
		kind := spanThinking
		if !s.inThinking {
			tag = thinkOpenTag
			kind = spanText
		}

		idx := strings.Index(s.buf, tag)
		if idx >= 0 {
			if idx > 0 {
				spans = append(spans, textSpan{Kind: kind, Text: s.buf[:idx]})
			}
			s.buf = s.buf[idx+len(tag):]
			s.inThinking = !s.inThinking
			continue
		}

		holdBack := 0
		if !final {
			holdBack = partialTagSuffixLen(s.buf, tag)
		}
		emit := s.buf[:len(s.buf)-holdBack]
		if emit != "" {
			spans = append(spans, textSpan{Kind: kind, Text: emit})
		}
		s.buf = s.buf[len(s.buf)-holdBack:]
		return spans
	}
}

// partialTagSuffixLen returns the length of the longest suffix of buf
// that is also a non-empty proper prefix of tag — text that could
// still complete into tag given more input.
func partialTagSuffixLen(buf, tag string) int {
	limit := min(len(tag)-1, len(buf))
	for l := limit; l > 0; l-- {
		if strings.HasSuffix(buf, tag[:l]) {
			return l
		}
	}
	return 0
}
