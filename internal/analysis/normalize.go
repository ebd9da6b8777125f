// Package analysis inspects student source files for static evidence of
// requirement satisfaction.
//
// It works on two inputs: the implementation (CruiseControl.java), checked
// for the code shapes each requirement demands, and the student's own test
// file, checked for genuine test coverage via pattern tables plus
// logic-based verification of the literal values used. The heuristics are
// regex-bounded by design; static findings are secondary evidence and are
// reconciled against execution results by the grading policy.
package analysis

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	lineCommentRe  = regexp.MustCompile(`(?m)//.*$`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// StripComments removes line and block comments.
func StripComments(src string) string {
	src = blockCommentRe.ReplaceAllString(src, "")
	return lineCommentRe.ReplaceAllString(src, "")
}

// Normalize strips comments, collapses whitespace runs to single spaces, and
// trims. Pattern matching always runs over normalized text so formatting
// differences between submissions do not matter.
func Normalize(src string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(StripComments(src), " "))
}

// FoldAccents removes combining marks, so Spanish identifiers and comments
// ("límite") match the ASCII pattern tables ("limite"). The transform chain
// carries state, so a fresh one is built per call.
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// searchForm is the canonical form for substring matching: normalized,
// accent-folded, lowercased.
func searchForm(s string) string {
	return strings.ToLower(FoldAccents(Normalize(s)))
}
