package internal

import (
	"strings"
)

// QuoteBlock is the result of scanning a triple-quoted block
type QuoteBlock struct {
	Body       string // Block text, lines joined with "\n"
	Next       int    // Index of the first line after the block
	Terminated bool   // False when the block ran to end of input
}

// OpenQuoteBlock reports whether head begins a quoted block and returns
// the delimiter and the text that follows it on the same line.
func OpenQuoteBlock(head string) (delim string, rest string, ok bool) {
	trimmed := strings.TrimLeft(head, " \t")
	n := 0
	for n < len(trimmed) && trimmed[n] == CharQuote {
		n++
	}
	if n < MinBlockQuoteCount {
		return "", "", false
	}
	return trimmed[:n], trimmed[n:], true
}

// ScanQuoteBlock reads a quoted block whose opener is head, located on
// lines[start]. The closing delimiter must have exactly as many quotes as
// the opener, either later on the same line or alone on a later line.
// An unterminated block consumes every remaining line.
func ScanQuoteBlock(lines []string, start int, head string) (QuoteBlock, bool) {
	delim, rest, ok := OpenQuoteBlock(head)
	if !ok {
		return QuoteBlock{}, false
	}

	if idx := indexQuoteRun(rest, len(delim)); idx >= 0 {
		return QuoteBlock{Body: rest[:idx], Next: start + 1, Terminated: true}, true
	}

	var body []string
	if rest != "" {
		body = append(body, rest)
	}
	for i := start + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == delim {
			return QuoteBlock{Body: strings.Join(body, LineSeparator), Next: i + 1, Terminated: true}, true
		}
		body = append(body, lines[i])
	}
	return QuoteBlock{Body: strings.Join(body, LineSeparator), Next: len(lines), Terminated: false}, true
}

// indexQuoteRun returns the byte offset of the first run of exactly n
// quote characters in s, or -1.
func indexQuoteRun(s string, n int) int {
	i := 0
	for i < len(s) {
		if s[i] != CharQuote {
			i++
			continue
		}
		j := i
		for j < len(s) && s[j] == CharQuote {
			j++
		}
		if j-i == n {
			return i
		}
		i = j
	}
	return -1
}
