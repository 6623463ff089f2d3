package gwtypes

// EventKind discriminates the six recognized upstream event-stream frame
// kinds plus the implicit "ignore" case (spec.md §3 DecodedEvent, §4.4).
type EventKind int

const (
	EventContent EventKind = iota
	EventToolStart
	EventToolInput
	EventToolStop
	EventUsage
	EventContextUsage
)

// DecodedEvent is the tagged variant produced by EventStreamDecoder. Only
// the fields relevant to Kind are populated; consumers must switch on Kind
// exhaustively (spec.md §9, "Tagged event stream").
type DecodedEvent struct {
	Kind EventKind

	// EventContent
	Text string

	// EventToolStart
	ToolName        string
	ToolUseID       string
	ToolInitialArgs string

	// EventToolInput
	InputFragment string

	// EventUsage
	Credits float64

	// EventContextUsage
	ContextUsagePercent float64
}

// PendingToolCall tracks a tool call while its input is still streaming in
// (spec.md §4.4 "Tool-call assembly").
type PendingToolCall struct {
	ID          string
	Name        string
	Accumulator string
}

// FinishReason is the dialect-agnostic terminator of an assistant turn
// (GLOSSARY: "Finish reason / stop reason").
type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishToolCalls FinishReason = "tool_calls"
	FinishLength    FinishReason = "length"
)

// OpenAIFinishReason renders the OpenAI-dialect spelling.
func (f FinishReason) OpenAIFinishReason() string { return string(f) }

// AnthropicStopReason renders the Anthropic-dialect spelling (spec.md
// §4.6 "Finish-reason mapping").
func (f FinishReason) AnthropicStopReason() string {
	switch f {
	case FinishToolCalls:
		return "tool_use"
	case FinishLength:
		return "max_tokens"
	default:
		return "end_turn"
	}
}
