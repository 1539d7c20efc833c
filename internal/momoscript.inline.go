package internal

import (
	"strings"
)

// InlineKind identifies inline fragment types
type InlineKind int

// Inline fragment kinds
const (
	InlineText InlineKind = iota
	InlineExpr
)

// InlineFragment is one piece of scanned message content.
// Text fragments carry Text; expression fragments carry Query, Target and
// the Raw source span they were read from.
type InlineFragment struct {
	Kind   InlineKind
	Text   string
	Query  string
	Target string
	Raw    string
}

// InlineScanner extracts `(target)[query]` and `[query](target)`
// expressions from message content.
type InlineScanner struct {
	// RequireColon keeps expressions whose query does not start with ':'
	// as literal text.
	RequireColon bool
	// PreserveEscape keeps the backslash of escape sequences in the output.
	PreserveEscape bool
}

// Scan splits content into text and expression fragments. Openers that do
// not complete a well-formed expression are kept as literal text.
func (s InlineScanner) Scan(content string) []InlineFragment {
	chars := []rune(content)
	var buf strings.Builder
	var out []InlineFragment

	flush := func() {
		if buf.Len() > 0 {
			out = append(out, InlineFragment{Kind: InlineText, Text: buf.String()})
			buf.Reset()
		}
	}
	emit := func(query, target string, start, end int) {
		raw := string(chars[start:end])
		if s.RequireColon && !strings.HasPrefix(strings.TrimSpace(query), string(CharColon)) {
			buf.WriteString(raw)
			return
		}
		flush()
		out = append(out, InlineFragment{Kind: InlineExpr, Query: query, Target: target, Raw: raw})
	}

	i := 0
	for i < len(chars) {
		ch := chars[i]
		if ch == CharBackslash && i+1 < len(chars) {
			if s.PreserveEscape {
				buf.WriteRune(CharBackslash)
			}
			buf.WriteRune(chars[i+1])
			i += 2
			continue
		}

		if ch == CharParenOpen {
			if target, closeIdx, ok := s.delimited(chars, i+1, CharParenClose); ok &&
				closeIdx+1 < len(chars) && chars[closeIdx+1] == CharBracketOpen {
				if query, endIdx, ok := s.delimited(chars, closeIdx+2, CharBracketClose); ok {
					emit(query, target, i, endIdx+1)
					i = endIdx + 1
					continue
				}
			}
		}

		if ch == CharBracketOpen {
			if query, closeIdx, ok := s.delimited(chars, i+1, CharBracketClose); ok {
				target := ""
				end := closeIdx + 1
				if end < len(chars) && chars[end] == CharParenOpen {
					if t, tEnd, ok := s.delimited(chars, end+1, CharParenClose); ok {
						target = t
						end = tEnd + 1
					}
				}
				emit(query, target, i, end)
				i = end
				continue
			}
		}

		buf.WriteRune(ch)
		i++
	}

	flush()
	return out
}

// delimited reads from idx up to the closing rune, applying escapes.
// It returns the unescaped text and the index of the closing rune.
func (s InlineScanner) delimited(chars []rune, idx int, closing rune) (string, int, bool) {
	var sb strings.Builder
	for idx < len(chars) {
		c := chars[idx]
		if c == CharBackslash && idx+1 < len(chars) {
			if s.PreserveEscape {
				sb.WriteRune(CharBackslash)
			}
			sb.WriteRune(chars[idx+1])
			idx += 2
			continue
		}
		if c == closing {
			return sb.String(), idx, true
		}
		sb.WriteRune(c)
		idx++
	}
	return "", 0, false
}
