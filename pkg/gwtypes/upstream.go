package gwtypes

import "encoding/json"

// ToolSpecification is the upstream shape of a tool declaration, built
// from a Tool by the translator (spec.md §4.5 step 7).
type ToolSpecification struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema ToolInputSchema `json:"inputSchema"`
}

// ToolInputSchema wraps a tool's JSON schema under the "json" key, as the
// upstream expects.
type ToolInputSchema struct {
	JSON json.RawMessage `json:"json"`
}

// ToolUse is an assistant turn's declared tool invocation, upstream shape.
type ToolUse struct {
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"toolUseId"`
}

// ToolResult is a user turn's tool output, upstream shape.
type ToolResult struct {
	ToolUseID string          `json:"toolUseId"`
	Content   json.RawMessage `json:"content,omitempty"`
	Status    string          `json:"status,omitempty"`
}

// UserInputMessageContext carries tool plumbing attached to a user turn.
type UserInputMessageContext struct {
	Tools       []ToolSpecification `json:"tools,omitempty"`
	ToolResults []ToolResult        `json:"toolResults,omitempty"`

	// ToolChoice is the normalized tool_choice resolved by the dialect
	// (spec.md §4.5 step 1), attached to the current turn only. Omitted
	// for the default "auto" case.
	ToolChoice *ToolChoice `json:"toolChoice,omitempty"`
}

// UserInputMessage is one upstream user-role turn.
type UserInputMessage struct {
	Content                 string                   `json:"content"`
	ModelID                 string                   `json:"modelId"`
	Origin                  string                   `json:"origin"`
	UserInputMessageContext *UserInputMessageContext `json:"userInputMessageContext,omitempty"`
}

// AssistantResponseMessage is one upstream assistant-role turn.
type AssistantResponseMessage struct {
	Content  string    `json:"content"`
	ToolUses []ToolUse `json:"toolUses,omitempty"`
}

// ConversationTurn is a tagged union of the two upstream turn shapes
// (spec.md §3: "a tagged sequence of turns
// {userInputMessage | assistantResponseMessage}").
type ConversationTurn struct {
	UserInputMessage         *UserInputMessage         `json:"userInputMessage,omitempty"`
	AssistantResponseMessage *AssistantResponseMessage `json:"assistantResponseMessage,omitempty"`
}

// ConversationState is the upstream payload's top-level conversational
// envelope.
type ConversationState struct {
	ChatTriggerType string             `json:"chatTriggerType"`
	ConversationID  string             `json:"conversationId"`
	CurrentMessage  ConversationTurn   `json:"currentMessage"`
	History         []ConversationTurn `json:"history,omitempty"`
}

// UpstreamRequest is the full body sent to generateAssistantResponse
// (spec.md §4.5 step 9).
type UpstreamRequest struct {
	ConversationState ConversationState `json:"conversationState"`
	ProfileArn        string            `json:"profileArn,omitempty"`
}
