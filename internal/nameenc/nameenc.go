package nameenc

import "strings"

// Version names the component encoding convention implemented by Encode.
const Version = "uri-component/1"

const upperhex = "0123456789ABCDEF"

// Encode percent-encodes every byte of raw except the unreserved set
// A-Z a-z 0-9 - _ . ! ~ * ' ( ). Multi-byte UTF-8 sequences are encoded
// byte by byte with uppercase hex digits.
func Encode(raw string) string {
	n := 0
	for i := 0; i < len(raw); i++ {
		if !unreserved(raw[i]) {
			n++
		}
	}
	if n == 0 {
		return raw
	}

	var b strings.Builder
	b.Grow(len(raw) + 2*n)
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0x0f])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
