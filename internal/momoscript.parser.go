package internal

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Parser turns MomoScript source into an ordered list of syntax nodes.
// It makes a single forward pass over the lines and looks at most one
// line ahead (for header directives whose block starts on the next line).
type Parser struct {
	lines  []string
	pos    int
	nodes  []Node
	logger *zap.Logger
}

// NewParser creates a parser for the given source
func NewParser(source string, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		lines:  SplitLines(source),
		logger: logger,
	}
}

// SplitLines splits source into lines, dropping "\r" line endings and a
// leading byte order mark. A trailing newline does not produce an extra line.
func SplitLines(source string) []string {
	if source == "" {
		return nil
	}
	lines := strings.Split(source, LineSeparator)
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	if len(lines) > 0 {
		lines[0] = strings.TrimPrefix(lines[0], ByteOrderMark)
	}
	return lines
}

// Parse classifies every line and returns the nodes in source order
func (p *Parser) Parse() []Node {
	p.logger.Debug(LogMsgParserStart, zap.Int(LogFieldLines, len(p.lines)))
	p.nodes = make([]Node, 0, len(p.lines))

	for p.pos < len(p.lines) {
		raw := p.lines[p.pos]
		lineNo := p.pos + 1
		trimmed := strings.TrimSpace(raw)
		lstripped := strings.TrimLeftFunc(raw, unicode.IsSpace)

		switch {
		case trimmed == "":
			p.nodes = append(p.nodes, &BlankLineNode{LineNo: lineNo})
			p.pos++
		case strings.HasPrefix(lstripped, CommentPrefix):
			p.pos++
		case strings.HasPrefix(trimmed, DirectivePrefix):
			p.parseDirective(trimmed[len(DirectivePrefix):], lineNo)
		default:
			if !p.parseStatement(lstripped, lineNo) {
				p.nodes = append(p.nodes, &ContinuationNode{
					Text:   strings.TrimRightFunc(lstripped, unicode.IsSpace),
					LineNo: lineNo,
				})
				p.pos++
			}
		}
	}

	p.logger.Debug(LogMsgParserEnd, zap.Int(LogFieldNodes, len(p.nodes)))
	return p.nodes
}

// parseDirective handles every line starting with the directive marker.
// Reply blocks, stray block terminators and bond headers are recognised
// before the generic directive form.
func (p *Parser) parseDirective(body string, lineNo int) {
	name, payload, hasColon := SplitDirective(body)

	switch strings.ToLower(name) {
	case DirectiveReply:
		if hasColon {
			p.nodes = append(p.nodes, &ReplyNode{Items: splitReplyItems(payload), LineNo: lineNo})
			p.pos++
			return
		}
		if payload == "" {
			p.parseReplyBlock(lineNo)
			return
		}
	case DirectiveEnd:
		if payload == "" {
			p.pos++
			return
		}
	case DirectiveBond:
		p.nodes = append(p.nodes, &BondNode{Content: p.headerPayload(afterFirstColon(body)), LineNo: lineNo})
		return
	}

	p.nodes = append(p.nodes, &DirectiveNode{Name: name, Payload: p.headerPayload(payload), LineNo: lineNo})
}

// SplitDirective splits the text after the directive marker into a name
// and a payload. The name ends at the first colon or whitespace; a colon
// following that whitespace is also consumed.
func SplitDirective(body string) (name string, payload string, hasColon bool) {
	idx := strings.IndexAny(body, ": \t")
	if idx < 0 {
		return strings.TrimSpace(body), "", false
	}
	name = strings.TrimSpace(body[:idx])
	rest := strings.TrimLeft(body[idx:], " \t")
	if strings.HasPrefix(rest, string(CharColon)) {
		hasColon = true
		rest = rest[1:]
	}
	return name, strings.TrimSpace(rest), hasColon
}

// afterFirstColon returns the trimmed text after the first colon of a
// header directive body, or an empty payload when there is no colon.
func afterFirstColon(body string) string {
	idx := strings.IndexRune(body, CharColon)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(body[idx+1:])
}

// headerPayload resolves a directive payload that may open a quoted block,
// either on the directive line itself or, when the payload is empty, on
// the next line. It advances the parser past everything it consumed.
func (p *Parser) headerPayload(payload string) string {
	if block, ok := ScanQuoteBlock(p.lines, p.pos, payload); ok {
		p.noteBlock(block)
		p.pos = block.Next
		return block.Body
	}
	if payload == "" && p.pos+1 < len(p.lines) {
		next := strings.TrimSpace(p.lines[p.pos+1])
		if block, ok := ScanQuoteBlock(p.lines, p.pos+1, next); ok {
			p.noteBlock(block)
			p.pos = block.Next
			return block.Body
		}
	}
	p.pos++
	return payload
}

// parseReplyBlock reads reply items until the block terminator
func (p *Parser) parseReplyBlock(lineNo int) {
	var items []string
	p.pos++
	terminated := false

	for p.pos < len(p.lines) {
		trimmed := strings.TrimSpace(p.lines[p.pos])
		if isBlockEnd(trimmed) {
			p.pos++
			terminated = true
			break
		}
		if trimmed == "" || strings.HasPrefix(trimmed, CommentPrefix) {
			p.pos++
			continue
		}

		item := trimmed
		if strings.HasPrefix(item, ReplyItemBullet) {
			item = strings.TrimSpace(item[len(ReplyItemBullet):])
		}
		if block, ok := ScanQuoteBlock(p.lines, p.pos, item); ok {
			if strings.TrimSpace(block.Body) != "" {
				items = append(items, block.Body)
			}
			p.pos = block.Next
			continue
		}
		if item != "" {
			items = append(items, item)
		}
		p.pos++
	}

	if !terminated {
		p.logger.Debug(LogMsgReplyUnterminated, zap.Int(LogFieldLine, lineNo))
	}
	p.nodes = append(p.nodes, &ReplyNode{Items: items, LineNo: lineNo})
}

func isBlockEnd(trimmed string) bool {
	if !strings.HasPrefix(trimmed, DirectivePrefix) {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(trimmed[len(DirectivePrefix):]), DirectiveEnd)
}

func splitReplyItems(payload string) []string {
	var items []string
	for _, part := range strings.Split(payload, ReplyItemSeparator) {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// parseStatement recognises `> `, `< ` and `- ` lines. It returns false
// when the line is not a statement.
func (p *Parser) parseStatement(lstripped string, lineNo int) bool {
	marker, size := utf8.DecodeRuneInString(lstripped)
	var side Side
	switch marker {
	case CharMarkerLeft:
		side = SideLeft
	case CharMarkerRight:
		side = SideRight
	case CharMarkerNarration:
		side = SideNarration
	default:
		return false
	}
	next, _ := utf8.DecodeRuneInString(lstripped[size:])
	if next == utf8.RuneError || !unicode.IsSpace(next) {
		return false
	}

	rest := strings.TrimSpace(lstripped[size:])
	stmt := &StatementNode{Side: side, Content: rest, LineNo: lineNo}
	if side != SideNarration {
		if head, tail, found := SplitTopLevelColon(rest); found {
			stmt.Speaker = strings.TrimSpace(head)
			stmt.Content = strings.TrimSpace(tail)
		}
	}

	if block, ok := ScanQuoteBlock(p.lines, p.pos, stmt.Content); ok {
		p.noteBlock(block)
		stmt.Content = block.Body
		p.pos = block.Next
	} else {
		p.pos++
	}
	p.nodes = append(p.nodes, stmt)
	return true
}

// SplitTopLevelColon splits s at the first colon that is not inside
// square brackets or parentheses and not escaped with a backslash.
func SplitTopLevelColon(s string) (head string, tail string, found bool) {
	square, paren := 0, 0
	escaped := false
	for i, r := range s {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case CharBackslash:
			escaped = true
		case CharBracketOpen:
			square++
		case CharBracketClose:
			if square > 0 {
				square--
			}
		case CharParenOpen:
			paren++
		case CharParenClose:
			if paren > 0 {
				paren--
			}
		case CharColon:
			if square == 0 && paren == 0 {
				return s[:i], s[i+1:], true
			}
		}
	}
	return s, "", false
}

func (p *Parser) noteBlock(block QuoteBlock) {
	if !block.Terminated {
		p.logger.Debug(LogMsgBlockUnterminated, zap.Int(LogFieldLine, p.pos+1))
	}
}
