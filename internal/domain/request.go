package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ChatRequest is the inbound conversational verification request.
type ChatRequest struct {
	OrderID     string          `json:"orderId" validate:"required"`
	Intent      string          `json:"intent"`
	Description string          `json:"description"`
	Messages    []ClientMessage `json:"messages" validate:"required,min=1,dive"`
}

// ClientMessage is one message as submitted by the client.
type ClientMessage struct {
	Role    string  `json:"role" validate:"required"`
	Content Content `json:"content"`

	Attachments []AttachmentRef `json:"attachments,omitempty"`
	// ExperimentalAttachments is the field name used by streaming-aware chat clients.
	ExperimentalAttachments []AttachmentRef `json:"experimental_attachments,omitempty"`
}

// AllAttachments returns every attachment reference on the message in submission order.
func (m ClientMessage) AllAttachments() []AttachmentRef {
	if len(m.ExperimentalAttachments) == 0 {
		return m.Attachments
	}
	if len(m.Attachments) == 0 {
		return m.ExperimentalAttachments
	}
	all := make([]AttachmentRef, 0, len(m.Attachments)+len(m.ExperimentalAttachments))
	all = append(all, m.Attachments...)
	return append(all, m.ExperimentalAttachments...)
}

// AttachmentRef references a client-supplied attachment.
type AttachmentRef struct {
	URL         string `json:"url"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// ContentKind tags the shape of message content.
type ContentKind int

const (
	ContentEmpty ContentKind = iota
	ContentText
	ContentBlocks
)

// ContentBlock is one typed block of structured content.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// UnmarshalJSON decodes a block whose text may be any JSON value.
// Non-string text keeps its JSON form, so {"text":5} reads as "5".
func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type string          `json:"type"`
		Text json.RawMessage `json:"text"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = ContentBlock{Type: raw.Type}
	text := bytes.TrimSpace(raw.Text)
	switch {
	case len(text) == 0, bytes.Equal(text, []byte("null")):
	case text[0] == '"':
		if err := json.Unmarshal(text, &b.Text); err != nil {
			return err
		}
	default:
		b.Text = string(text)
	}
	return nil
}

// Content is message content sent either as a plain string or as a list of typed blocks.
type Content struct {
	Kind   ContentKind
	Text   string
	Blocks []ContentBlock
}

// TextContent creates plain string content.
func TextContent(s string) Content {
	return Content{Kind: ContentText, Text: s}
}

// BlockContent creates structured content.
func BlockContent(blocks ...ContentBlock) Content {
	return Content{Kind: ContentBlocks, Blocks: blocks}
}

// PlainText extracts the text of the content.
// Plain strings are returned verbatim; for blocks, the text of every "text" block is
// concatenated in order.
func (c Content) PlainText() string {
	switch c.Kind {
	case ContentText:
		return c.Text
	case ContentBlocks:
		var sb strings.Builder
		for _, b := range c.Blocks {
			if b.Type == "text" {
				sb.WriteString(b.Text)
			}
		}
		return sb.String()
	default:
		return ""
	}
}

// UnmarshalJSON accepts a JSON string, an array of blocks, or anything else as empty content.
func (c *Content) UnmarshalJSON(data []byte) error {
	*c = Content{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = TextContent(s)
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		blocks := make([]ContentBlock, 0, len(items))
		for _, item := range items {
			var b ContentBlock
			// Items that are not {type, text} objects are ignored.
			if err := json.Unmarshal(item, &b); err != nil {
				continue
			}
			blocks = append(blocks, b)
		}
		*c = BlockContent(blocks...)
	}
	return nil
}

// MarshalJSON writes the content back in the shape it was received.
func (c Content) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case ContentText:
		return json.Marshal(c.Text)
	case ContentBlocks:
		if c.Blocks == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(c.Blocks)
	default:
		return []byte("null"), nil
	}
}
