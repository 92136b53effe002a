package census

import (
	"fmt"
	"strings"
)

// HashKind names one hash stream.
type HashKind string

const (
	MD5  HashKind = "md5"
	SHA1 HashKind = "sha1"
)

// HashKinds lists every supported kind in stream order.
var HashKinds = []HashKind{MD5, SHA1}

// ParseHashKind resolves a configured hash kind name.
func ParseHashKind(name string) (HashKind, error) {
	switch HashKind(strings.ToLower(strings.TrimSpace(name))) {
	case MD5:
		return MD5, nil
	case SHA1:
		return SHA1, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownHashKind, name)
}

// ParseHashKinds resolves a list of names, preserving order.
func ParseHashKinds(names []string) ([]HashKind, error) {
	kinds := make([]HashKind, 0, len(names))
	for _, name := range names {
		kind, err := ParseHashKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// HashLine is one row of a hash stream. Name is component encoded.
type HashLine struct {
	ID    string
	Name  string
	Value string
}

// String renders the line without a trailing newline.
func (l HashLine) String() string {
	return l.ID + "\t" + l.Name + "\t" + l.Value
}

// AppendTo appends the line and a trailing newline to buf.
func (l HashLine) AppendTo(buf []byte) []byte {
	buf = append(buf, l.ID...)
	buf = append(buf, '\t')
	buf = append(buf, l.Name...)
	buf = append(buf, '\t')
	buf = append(buf, l.Value...)
	return append(buf, '\n')
}

// ParseHashLine splits a line (without its newline) into its three fields.
func ParseHashLine(line string) (HashLine, error) {
	line = strings.TrimSuffix(line, "\r")
	parts := strings.Split(line, "\t")
	if len(parts) != 3 || parts[0] == "" {
		return HashLine{}, fmt.Errorf("%w: %q", ErrMalformedHashLine, line)
	}
	return HashLine{ID: parts[0], Name: parts[1], Value: parts[2]}, nil
}
