package analysis

import "regexp"

// bodyAfter locates the region opened by the header match and returns the
// brace-balanced body text. Returns false when the header is absent or the
// braces never balance (typically a submission that does not compile).
//
// Brace counting ignores string and character literals; a literal brace in a
// string skews the region boundary. Accepted: static findings are secondary
// evidence and a skewed region degrades to "no evidence", never to a false
// grant of a requirement that demands several co-occurring shapes.
func bodyAfter(source string, header *regexp.Regexp) (string, bool) {
	loc := header.FindStringIndex(source)
	if loc == nil {
		return "", false
	}
	return balancedBody(source, loc[1])
}

// balancedBody scans from just after an opening brace to its matching close.
func balancedBody(source string, start int) (string, bool) {
	depth := 1
	for i := start; i < len(source); i++ {
		switch source[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return source[start:i], true
			}
		}
	}
	return "", false
}
