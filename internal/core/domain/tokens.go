package domain

import "strings"

// CountTokens estimates the token count of text for budget arithmetic.
// It counts whitespace-delimited words and scales by 4/3, which tracks the
// word-to-token ratio of GPT-family tokenisers on English prose closely
// enough for chunk sizing and context budgeting. It is an estimate, not a
// tokeniser: budgets should carry a margin rather than run to the wire.
func CountTokens(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return (words*4 + 2) / 3
}
