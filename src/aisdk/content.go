package aisdk

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// PartType tags the variant held by a Part.
type PartType string

const (
	PartTypeText  PartType = "text"
	PartTypeImage PartType = "image"
)

var (
	ErrUnknownPartType = errors.New("unknown content part type")
	ErrEmptyImagePart  = errors.New("image part has no data")
)

// Part is one segment of structured message content. It is either a text
// segment or an image segment; Validate rejects anything else.
type Part struct {
	Type     PartType `json:"type"`
	Text     string   `json:"text,omitempty"`
	Image    string   `json:"image,omitempty"` // base64, no data: prefix
	MimeType string   `json:"mime_type,omitempty"`
}

// TextPart creates a text segment.
func TextPart(text string) Part {
	return Part{Type: PartTypeText, Text: text}
}

// ImagePart creates an image segment from base64 data.
func ImagePart(data, mimeType string) Part {
	return Part{Type: PartTypeImage, Image: data, MimeType: mimeType}
}

// Validate checks the part is a well-formed member of the union.
func (p Part) Validate() error {
	switch p.Type {
	case PartTypeText:
		return nil
	case PartTypeImage:
		if p.Image == "" {
			return ErrEmptyImagePart
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPartType, p.Type)
	}
}

// ImageBytes decodes the image payload.
func (p Part) ImageBytes() ([]byte, error) {
	if p.Type != PartTypeImage {
		return nil, fmt.Errorf("part is %s, not image", p.Type)
	}
	return base64.StdEncoding.DecodeString(p.Image)
}

// DataURL renders the image as a data: URL.
func (p Part) DataURL() string {
	mime := p.MimeType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + p.Image
}

// Content is message content: either a plain string or an ordered list of
// parts. The zero value is the empty plain string.
type Content struct {
	text       string
	parts      []Part
	structured bool
}

// Text creates plain string content.
func Text(s string) Content {
	return Content{text: s}
}

// Parts creates structured content. An empty list is still structured.
func Parts(parts ...Part) Content {
	cp := make([]Part, len(parts))
	copy(cp, parts)
	return Content{parts: cp, structured: true}
}

// IsStructured reports whether the content is a part list.
func (c Content) IsStructured() bool {
	return c.structured
}

// String returns the plain string value. Structured content returns "".
func (c Content) String() string {
	return c.text
}

// Parts returns a copy of the parts of structured content.
func (c Content) Parts() []Part {
	if !c.structured {
		return nil
	}
	cp := make([]Part, len(c.parts))
	copy(cp, c.parts)
	return cp
}

// PlainText returns the string value, or the text parts joined by newlines.
func (c Content) PlainText() string {
	if !c.structured {
		return c.text
	}
	var texts []string
	for _, p := range c.parts {
		if p.Type == PartTypeText {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// HasImages reports whether any part is an image.
func (c Content) HasImages() bool {
	for _, p := range c.parts {
		if p.Type == PartTypeImage {
			return true
		}
	}
	return false
}

// Validate checks every part.
func (c Content) Validate() error {
	for i, p := range c.parts {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("part %d: %w", i, err)
		}
	}
	return nil
}

// MarshalJSON encodes plain content as a JSON string and structured content
// as an array of parts.
func (c Content) MarshalJSON() ([]byte, error) {
	if !c.structured {
		return json.Marshal(c.text)
	}
	parts := c.parts
	if parts == nil {
		parts = []Part{}
	}
	return json.Marshal(parts)
}

// UnmarshalJSON accepts either a JSON string or an array of parts.
func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var parts []Part
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		next := Parts(parts...)
		if err := next.Validate(); err != nil {
			return err
		}
		*c = next
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("content must be a string or a part list: %w", err)
	}
	*c = Text(s)
	return nil
}

// BuildUserContent returns the text alone when there are no images, else a
// text part followed by one part per image.
func BuildUserContent(text string, images []Part) Content {
	if len(images) == 0 {
		return Text(text)
	}
	parts := make([]Part, 0, len(images)+1)
	parts = append(parts, TextPart(text))
	parts = append(parts, images...)
	return Parts(parts...)
}
