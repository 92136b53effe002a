package nameenc

import "strings"

// lineBreak replaces every encoded CR, LF, or CRLF during normalization. It
// contains a raw NUL so it can never collide with encoded text.
const lineBreak = "\x00EOL\x00"

// Normalize maps s to a form where each percent-encoded line break (%0D%0A,
// %0D, or %0A, hex digits in either case) is replaced by one shared token.
// A CRLF pair collapses to a single token.
func Normalize(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		switch {
		case isEscape(s, i, 'D'):
			b.WriteString(lineBreak)
			i += 3
			if isEscape(s, i, 'A') {
				i += 3
			}
		case isEscape(s, i, 'A'):
			b.WriteString(lineBreak)
			i += 3
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String()
}

// Equivalent reports whether a and b differ only in how line breaks were
// percent-encoded.
func Equivalent(a, b string) bool {
	if a == b {
		return true
	}
	return Normalize(a) == Normalize(b)
}

// isEscape reports whether s[i:] starts with "%0" followed by the hex digit
// want, matched case-insensitively.
func isEscape(s string, i int, want byte) bool {
	if i+2 >= len(s) || s[i] != '%' || s[i+1] != '0' {
		return false
	}
	c := s[i+2]
	return c == want || c == want+('a'-'A')
}
