package momoscript

import (
	"github.com/itsatony/go-momoscript/internal"
)

// Output document types
type (
	// Document is the compiled transcript handed to renderers.
	Document = internal.Document
	// ChatLine is one message of the transcript.
	ChatLine = internal.ChatLine
	// YuzuTalk holds renderer hints: avatar state, name override and message kind.
	YuzuTalk = internal.YuzuTalk
	// Segment is a piece of message content (text, expr or image).
	Segment = internal.Segment
	// CustomChar is a [char_id, avatar_ref, display_name] registry entry.
	CustomChar = internal.CustomChar
	// PackConfig records pack aliases declared with @usepack.
	PackConfig = internal.PackConfig
	// Report summarises a compilation.
	Report = internal.Report
)

// CharacterDirectory is a read-only character pack lookup.
type CharacterDirectory = internal.CharacterDirectory

// Syntax node types returned by Engine.Parse
type (
	Node             = internal.Node
	NodeType         = internal.NodeType
	Side             = internal.Side
	StatementNode    = internal.StatementNode
	DirectiveNode    = internal.DirectiveNode
	ContinuationNode = internal.ContinuationNode
	BlankLineNode    = internal.BlankLineNode
	ReplyNode        = internal.ReplyNode
	BondNode         = internal.BondNode
)

// Sides
const (
	SideLeft      = internal.SideLeft
	SideRight     = internal.SideRight
	SideNarration = internal.SideNarration
)

// Message kinds
const (
	MessageKindText      = internal.MessageKindText
	MessageKindNarration = internal.MessageKindNarration
	MessageKindPageBreak = internal.MessageKindPageBreak
)

// Segment kinds
const (
	SegmentKindText  = internal.SegmentKindText
	SegmentKindExpr  = internal.SegmentKindExpr
	SegmentKindImage = internal.SegmentKindImage
)

// Character identity markers
const (
	ExternalPackPrefix = internal.ExternalPackPrefix
	CustomCharPrefix   = internal.CustomCharPrefix
	NarratorID         = internal.NarratorID
	UploadedAvatarRef  = internal.UploadedAvatarRef
)

// BaseName strips a trailing parenthetical qualifier from a display name.
func BaseName(name string) string {
	return internal.BaseName(name)
}
