package streamio

import (
	"fmt"
	"strings"
)

// Compression selects the stream encoding.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	}
	return fmt.Sprintf("compression(%d)", int(c))
}

// Ext is the file suffix for the encoding, empty for plain files.
func (c Compression) Ext() string {
	switch c {
	case CompressionGzip:
		return ".gz"
	case CompressionZstd:
		return ".zst"
	}
	return ""
}

// ParseCompression resolves a configured compression name.
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return CompressionNone, nil
	case "gzip", "gz":
		return CompressionGzip, nil
	case "zstd", "zst":
		return CompressionZstd, nil
	}
	return 0, fmt.Errorf("unknown compression %q", name)
}

// ForPath infers the encoding from a stream path. A trailing ".new" or
// ".bak" is ignored so rewrite siblings keep their original encoding.
func ForPath(path string) Compression {
	for _, sibling := range []string{".new", ".bak"} {
		path = strings.TrimSuffix(path, sibling)
	}
	switch {
	case strings.HasSuffix(path, ".gz"):
		return CompressionGzip
	case strings.HasSuffix(path, ".zst"):
		return CompressionZstd
	}
	return CompressionNone
}
