package internal

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NodeType identifies syntax node types
type NodeType int

// Node type constants
const (
	NodeTypeStatement NodeType = iota
	NodeTypeDirective
	NodeTypeContinuation
	NodeTypeBlank
	NodeTypeReply
	NodeTypeBond
)

// String returns the string representation of the node type
func (n NodeType) String() string {
	switch n {
	case NodeTypeStatement:
		return NodeTypeNameStatement
	case NodeTypeDirective:
		return NodeTypeNameDirective
	case NodeTypeContinuation:
		return NodeTypeNameContinuation
	case NodeTypeBlank:
		return NodeTypeNameBlank
	case NodeTypeReply:
		return NodeTypeNameReply
	case NodeTypeBond:
		return NodeTypeNameBond
	default:
		return NodeTypeNameUnknown
	}
}

// Side is the conversational side a statement belongs to
type Side int

// Side constants
const (
	SideLeft Side = iota
	SideRight
	SideNarration
)

// String returns the output name of the side
func (s Side) String() string {
	switch s {
	case SideLeft:
		return SideNameLeft
	case SideRight:
		return SideNameRight
	default:
		return SideNameNarration
	}
}

// Node is the interface all syntax nodes implement
type Node interface {
	// Type returns the node type identifier
	Type() NodeType
	// Line returns the 1-indexed source line the node starts on
	Line() int
	// String returns a human-readable representation
	String() string
}

// StatementNode is a speaker line or a narration line.
// Speaker is empty when no speaker token was written.
type StatementNode struct {
	Side    Side
	Speaker string
	Content string
	LineNo  int
}

// Type returns NodeTypeStatement
func (n *StatementNode) Type() NodeType { return NodeTypeStatement }

// Line returns the source line
func (n *StatementNode) Line() int { return n.LineNo }

// String returns a string representation
func (n *StatementNode) String() string {
	return fmt.Sprintf("StatementNode{%s %q: %q @ %d}", n.Side, n.Speaker, truncate(n.Content), n.LineNo)
}

// MarshalJSON encodes the node with its type discriminator
func (n *StatementNode) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"type":    NodeTypeNameStatement,
		"side":    n.Side.String(),
		"content": n.Content,
		"line_no": n.LineNo,
	}
	if n.Speaker != "" {
		out["speaker"] = n.Speaker
	}
	return json.Marshal(out)
}

// DirectiveNode is an `@name payload` line
type DirectiveNode struct {
	Name    string
	Payload string
	LineNo  int
}

// Type returns NodeTypeDirective
func (n *DirectiveNode) Type() NodeType { return NodeTypeDirective }

// Line returns the source line
func (n *DirectiveNode) Line() int { return n.LineNo }

// String returns a string representation
func (n *DirectiveNode) String() string {
	return fmt.Sprintf("DirectiveNode{%s %q @ %d}", n.Name, truncate(n.Payload), n.LineNo)
}

// MarshalJSON encodes the node with its type discriminator
func (n *DirectiveNode) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"type":    NodeTypeNameDirective,
		"name":    n.Name,
		"payload": n.Payload,
		"line_no": n.LineNo,
	})
}

// ContinuationNode is a line that extends the previous message
type ContinuationNode struct {
	Text   string
	LineNo int
}

// Type returns NodeTypeContinuation
func (n *ContinuationNode) Type() NodeType { return NodeTypeContinuation }

// Line returns the source line
func (n *ContinuationNode) Line() int { return n.LineNo }

// String returns a string representation
func (n *ContinuationNode) String() string {
	return fmt.Sprintf("ContinuationNode{%q @ %d}", truncate(n.Text), n.LineNo)
}

// MarshalJSON encodes the node with its type discriminator
func (n *ContinuationNode) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"type":    NodeTypeNameContinuation,
		"text":    n.Text,
		"line_no": n.LineNo,
	})
}

// BlankLineNode is an empty or whitespace-only line
type BlankLineNode struct {
	LineNo int
}

// Type returns NodeTypeBlank
func (n *BlankLineNode) Type() NodeType { return NodeTypeBlank }

// Line returns the source line
func (n *BlankLineNode) Line() int { return n.LineNo }

// String returns a string representation
func (n *BlankLineNode) String() string {
	return fmt.Sprintf("BlankLineNode{@ %d}", n.LineNo)
}

// MarshalJSON encodes the node with its type discriminator
func (n *BlankLineNode) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"type":    NodeTypeNameBlank,
		"line_no": n.LineNo,
	})
}

// ReplyNode holds the choices of a reply block
type ReplyNode struct {
	Items  []string
	LineNo int
}

// Type returns NodeTypeReply
func (n *ReplyNode) Type() NodeType { return NodeTypeReply }

// Line returns the source line
func (n *ReplyNode) Line() int { return n.LineNo }

// String returns a string representation
func (n *ReplyNode) String() string {
	return fmt.Sprintf("ReplyNode{[%s] @ %d}", strings.Join(n.Items, ", "), n.LineNo)
}

// MarshalJSON encodes the node with its type discriminator
func (n *ReplyNode) MarshalJSON() ([]byte, error) {
	items := n.Items
	if items == nil {
		items = []string{}
	}
	return json.Marshal(map[string]any{
		"type":    NodeTypeNameReply,
		"items":   items,
		"line_no": n.LineNo,
	})
}

// BondNode holds the text of a bond story header
type BondNode struct {
	Content string
	LineNo  int
}

// Type returns NodeTypeBond
func (n *BondNode) Type() NodeType { return NodeTypeBond }

// Line returns the source line
func (n *BondNode) Line() int { return n.LineNo }

// String returns a string representation
func (n *BondNode) String() string {
	return fmt.Sprintf("BondNode{%q @ %d}", truncate(n.Content), n.LineNo)
}

// MarshalJSON encodes the node with its type discriminator
func (n *BondNode) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"type":    NodeTypeNameBond,
		"content": n.Content,
		"line_no": n.LineNo,
	})
}

func truncate(s string) string {
	if len(s) > MaxStringDisplayLength {
		return s[:TruncatedStringLength] + TruncationSuffix
	}
	return s
}
