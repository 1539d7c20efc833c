package internal

import (
	"encoding/json"
	"fmt"
)

// Document is the compiled transcript handed to renderers
type Document struct {
	Chars       []string          `json:"chars"`
	Chat        []ChatLine        `json:"chat"`
	CustomChars []CustomChar      `json:"custom_chars"`
	Meta        map[string]string `json:"meta"`
	Packs       PackConfig        `json:"packs"`
	TypstGlobal string            `json:"typst_global"`
}

// PackConfig records the pack aliases declared with @usepack
type PackConfig struct {
	Aliases map[string]string `json:"aliases"`
	Order   []string          `json:"order"`
}

// ChatLine is one message of the transcript
type ChatLine struct {
	CharID         *string   `json:"char_id,omitempty"`
	Content        string    `json:"content"`
	LineNo         int       `json:"line_no"`
	Segments       []Segment `json:"segments,omitempty"`
	Side           *string   `json:"side,omitempty"`
	AvatarOverride *string   `json:"avatar_override,omitempty"`
	YuzuTalk       YuzuTalk  `json:"yuzutalk"`
}

// YuzuTalk holds the renderer hints of a chat line
type YuzuTalk struct {
	AvatarState  string `json:"avatarState"`
	NameOverride string `json:"nameOverride"`
	Type         string `json:"type"`
}

// Segment is a piece of rendered message content: plain text, an inline
// expression bound to a character, or an image reference.
type Segment struct {
	Kind         string
	Text         string
	Query        string
	TargetCharID string
	Ref          string
	Alt          string
}

// TextSegment creates a text segment
func TextSegment(text string) Segment {
	return Segment{Kind: SegmentKindText, Text: text}
}

// ExprSegment creates an expression segment
func ExprSegment(text, query, target string) Segment {
	return Segment{Kind: SegmentKindExpr, Text: text, Query: query, TargetCharID: target}
}

// ImageSegment creates an image segment
func ImageSegment(ref, alt string) Segment {
	return Segment{Kind: SegmentKindImage, Ref: ref, Alt: alt}
}

type textSegmentJSON struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type exprSegmentJSON struct {
	Type         string `json:"type"`
	Text         string `json:"text"`
	Query        string `json:"query"`
	TargetCharID string `json:"target_char_id"`
}

type imageSegmentJSON struct {
	Type string `json:"type"`
	Ref  string `json:"ref"`
	Alt  string `json:"alt"`
}

type segmentJSON struct {
	Type         string `json:"type"`
	Text         string `json:"text"`
	Query        string `json:"query"`
	TargetCharID string `json:"target_char_id"`
	Ref          string `json:"ref"`
	Alt          string `json:"alt"`
}

// MarshalJSON encodes the segment as a "type"-tagged object
func (s Segment) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case SegmentKindExpr:
		return json.Marshal(exprSegmentJSON{Type: s.Kind, Text: s.Text, Query: s.Query, TargetCharID: s.TargetCharID})
	case SegmentKindImage:
		return json.Marshal(imageSegmentJSON{Type: s.Kind, Ref: s.Ref, Alt: s.Alt})
	default:
		return json.Marshal(textSegmentJSON{Type: SegmentKindText, Text: s.Text})
	}
}

// UnmarshalJSON decodes a "type"-tagged segment object
func (s *Segment) UnmarshalJSON(data []byte) error {
	var raw segmentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Type {
	case SegmentKindText:
		*s = TextSegment(raw.Text)
	case SegmentKindExpr:
		*s = ExprSegment(raw.Text, raw.Query, raw.TargetCharID)
	case SegmentKindImage:
		*s = ImageSegment(raw.Ref, raw.Alt)
	default:
		return fmt.Errorf("%s: %q", ErrMsgUnknownSegmentType, raw.Type)
	}
	return nil
}

// CustomChar is a registry entry for a character used in the transcript
type CustomChar struct {
	CharID      string
	AvatarRef   string
	DisplayName string
}

// MarshalJSON encodes the entry as a [char_id, avatar_ref, display_name] array
func (c CustomChar) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]string{c.CharID, c.AvatarRef, c.DisplayName})
}

// UnmarshalJSON decodes a [char_id, avatar_ref, display_name] array
func (c *CustomChar) UnmarshalJSON(data []byte) error {
	var raw [3]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.CharID, c.AvatarRef, c.DisplayName = raw[0], raw[1], raw[2]
	return nil
}

// NewDocument returns an empty document with initialised collections
func NewDocument() *Document {
	return &Document{
		Chars:       []string{},
		Chat:        []ChatLine{},
		CustomChars: []CustomChar{},
		Meta:        map[string]string{},
		Packs: PackConfig{
			Aliases: map[string]string{},
			Order:   []string{},
		},
	}
}
