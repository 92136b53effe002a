package streamio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// MaxLineSize bounds a single record line. Items with very large file
// lists produce lines of several megabytes.
const MaxLineSize = 256 << 20

// Reader yields the lines of a stream file without their terminators.
type Reader struct {
	path    string
	file    *os.File
	closer  func() error
	scanner *bufio.Scanner
	line    int64
}

// Open opens path for sequential line reads, decoding by suffix.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stream %s: %w", path, err)
	}
	adviseSequential(file)

	var src io.Reader = file
	closer := func() error { return nil }
	switch ForPath(path) {
	case CompressionGzip:
		zr, err := gzip.NewReader(file)
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("open gzip stream %s: %w", path, err)
		}
		src, closer = zr, zr.Close
	case CompressionZstd:
		zr, err := zstd.NewReader(file)
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("open zstd stream %s: %w", path, err)
		}
		src = zr
		closer = func() error { zr.Close(); return nil }
	}

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64<<10), MaxLineSize)
	return &Reader{path: path, file: file, closer: closer, scanner: scanner}, nil
}

// Path returns the file being read.
func (r *Reader) Path() string { return r.path }

// Next advances to the next line. It returns false at end of stream or on
// error; check Err afterwards.
func (r *Reader) Next() bool {
	if !r.scanner.Scan() {
		return false
	}
	r.line++
	return true
}

// Bytes returns the current line. The slice is only valid until the next
// call to Next.
func (r *Reader) Bytes() []byte { return r.scanner.Bytes() }

// Text returns a copy of the current line.
func (r *Reader) Text() string { return r.scanner.Text() }

// Line returns the 1-based number of the current line.
func (r *Reader) Line() int64 { return r.line }

// Err reports the first read error, if any.
func (r *Reader) Err() error {
	if err := r.scanner.Err(); err != nil {
		return fmt.Errorf("read %s line %d: %w", r.path, r.line+1, err)
	}
	return nil
}

// Close releases the decoder and file. Closing twice is a no-op.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.closer()
	if cerr := r.file.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("close %s: %w", r.path, cerr))
	}
	r.file = nil
	return err
}
