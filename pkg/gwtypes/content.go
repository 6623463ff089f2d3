package gwtypes

import (
	"bytes"
	"encoding/json"
)

// Content block type discriminators, mirrored across both downstream
// dialects and the internal representation.
const (
	BlockText       = "text"
	BlockImage      = "image"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
	BlockThinking   = "thinking"
)

// MediaSource describes where image bytes live: inline base64 or a URL.
type MediaSource struct {
	Type      string `json:"type"` // "base64" or "url"
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

// ContentBlock is one element of a list-form message content: text, an
// image, a tool_use, a tool_result, or a thinking block. Only the fields
// relevant to Type are populated.
type ContentBlock struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`

	Source *MediaSource `json:"source,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`

	// thinking
	Thinking string `json:"thinking,omitempty"`
}

// Content is the tagged variant described in spec.md §9: a message's
// content is either a bare string or a list of content blocks. It
// marshals/unmarshals transparently between both JSON shapes so callers
// never need two code paths.
type Content struct {
	text     string
	blocks   []ContentBlock
	isBlocks bool
}

// NewTextContent builds a string-form Content.
func NewTextContent(text string) Content {
	return Content{text: text}
}

// NewBlocksContent builds a list-form Content.
func NewBlocksContent(blocks []ContentBlock) Content {
	return Content{blocks: blocks, isBlocks: true}
}

// IsBlocks reports whether this content is the list-of-blocks form.
func (c Content) IsBlocks() bool { return c.isBlocks }

// Text returns the string form. For list-form content it is empty; use
// Blocks() and concatenate text blocks instead.
func (c Content) Text() string { return c.text }

// Blocks returns the list form, synthesizing a single text block when the
// content is string-form (empty strings yield no blocks).
func (c Content) Blocks() []ContentBlock {
	if c.isBlocks {
		return c.blocks
	}
	if c.text == "" {
		return nil
	}
	return []ContentBlock{{Type: BlockText, Text: c.text}}
}

// ConcatText concatenates every text-bearing block (or returns the bare
// string), matching the "text blocks concatenate" rule of spec.md §4.5.
func (c Content) ConcatText() string {
	if !c.isBlocks {
		return c.text
	}
	var buf bytes.Buffer
	for _, b := range c.blocks {
		if b.Type == BlockText {
			buf.WriteString(b.Text)
		}
	}
	return buf.String()
}

// IsEmpty reports whether the content carries no text and no blocks.
func (c Content) IsEmpty() bool {
	return !c.isBlocks && c.text == "" || (c.isBlocks && len(c.blocks) == 0)
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.isBlocks {
		return json.Marshal(c.blocks)
	}
	return json.Marshal(c.text)
}

func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*c = Content{}
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*c = Content{text: s}
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(trimmed, &blocks); err != nil {
		return err
	}
	*c = Content{blocks: blocks, isBlocks: true}
	return nil
}
