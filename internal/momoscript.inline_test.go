package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func textFrag(s string) InlineFragment {
	return InlineFragment{Kind: InlineText, Text: s}
}

func exprFrag(query, target, raw string) InlineFragment {
	return InlineFragment{Kind: InlineExpr, Query: query, Target: target, Raw: raw}
}

func TestInlineScanner_Scan(t *testing.T) {
	tests := []struct {
		name     string
		scanner  InlineScanner
		input    string
		expected []InlineFragment
	}{
		{
			name:     "plain text",
			input:    "plain",
			expected: []InlineFragment{textFrag("plain")},
		},
		{
			name:     "empty",
			input:    "",
			expected: nil,
		},
		{
			name:  "query then target",
			input: "Hi [smile](Alice) there",
			expected: []InlineFragment{
				textFrag("Hi "),
				exprFrag("smile", "Alice", "[smile](Alice)"),
				textFrag(" there"),
			},
		},
		{
			name:     "target then query",
			input:    "(Bob)[wave]",
			expected: []InlineFragment{exprFrag("wave", "Bob", "(Bob)[wave]")},
		},
		{
			name:     "query without target",
			input:    "[q]",
			expected: []InlineFragment{exprFrag("q", "", "[q]")},
		},
		{
			name:  "query with unterminated target",
			input: "[q](oops",
			expected: []InlineFragment{
				exprFrag("q", "", "[q]"),
				textFrag("(oops"),
			},
		},
		{
			name:     "parenthesis without query",
			input:    "(Bob) text",
			expected: []InlineFragment{textFrag("(Bob) text")},
		},
		{
			name:     "unterminated bracket",
			input:    "a [unterminated",
			expected: []InlineFragment{textFrag("a [unterminated")},
		},
		{
			name:     "escaped brackets",
			input:    `\[x\]`,
			expected: []InlineFragment{textFrag("[x]")},
		},
		{
			name:     "escaped brackets preserved",
			scanner:  InlineScanner{PreserveEscape: true},
			input:    `\[x\]`,
			expected: []InlineFragment{textFrag(`\[x\]`)},
		},
		{
			name:     "escaped close inside query",
			input:    `[a\]b]`,
			expected: []InlineFragment{exprFrag("a]b", "", `[a\]b]`)},
		},
		{
			name:    "colon gate keeps ungated spans as text",
			scanner: InlineScanner{RequireColon: true},
			input:   "[:smile](A) and [plain]",
			expected: []InlineFragment{
				exprFrag(":smile", "A", "[:smile](A)"),
				textFrag(" and [plain]"),
			},
		},
		{
			name:     "colon gate with target first",
			scanner:  InlineScanner{RequireColon: true},
			input:    "(A)[x] y",
			expected: []InlineFragment{textFrag("(A)[x] y")},
		},
		{
			name:  "multibyte text",
			input: "ホシノ[眠い]です",
			expected: []InlineFragment{
				textFrag("ホシノ"),
				exprFrag("眠い", "", "[眠い]"),
				textFrag("です"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.scanner.Scan(tt.input))
		})
	}
}
