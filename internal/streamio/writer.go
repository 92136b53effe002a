package streamio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const defaultFlushSize = 256 << 10

// Writer appends complete lines to a stream file.
type Writer struct {
	path  string
	file  *os.File
	enc   io.WriteCloser
	dst   io.Writer
	buf   []byte
	lines int64
	bytes int64
}

// Create truncates or creates path and returns a Writer whose encoding is
// inferred from the path suffix.
func Create(path string) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create stream %s: %w", path, err)
	}
	w := &Writer{path: path, file: file, dst: file, buf: make([]byte, 0, defaultFlushSize)}
	switch ForPath(path) {
	case CompressionGzip:
		w.enc = gzip.NewWriter(file)
	case CompressionZstd:
		enc, err := zstd.NewWriter(file, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("create zstd stream %s: %w", path, err)
		}
		w.enc = enc
	}
	if w.enc != nil {
		w.dst = w.enc
	}
	return w, nil
}

// Path returns the file the writer was created for.
func (w *Writer) Path() string { return w.path }

// Lines returns the number of lines written so far.
func (w *Writer) Lines() int64 { return w.lines }

// Bytes returns the number of uncompressed bytes written so far.
func (w *Writer) Bytes() int64 { return w.bytes }

// WriteLine appends line and a newline. line must not contain '\n'.
func (w *Writer) WriteLine(line []byte) error {
	if w.file == nil {
		return fmt.Errorf("write %s: %w", w.path, os.ErrClosed)
	}
	w.buf = append(w.buf, line...)
	w.buf = append(w.buf, '\n')
	w.lines++
	w.bytes += int64(len(line)) + 1
	if len(w.buf) >= defaultFlushSize {
		return w.Flush()
	}
	return nil
}

// WriteLines appends a block of newline-terminated lines as one unit. The
// block is never split across flushes.
func (w *Writer) WriteLines(block []byte, count int) error {
	if len(block) == 0 {
		return nil
	}
	if w.file == nil {
		return fmt.Errorf("write %s: %w", w.path, os.ErrClosed)
	}
	if block[len(block)-1] != '\n' {
		return fmt.Errorf("write %s: block does not end with a newline", w.path)
	}
	w.buf = append(w.buf, block...)
	w.lines += int64(count)
	w.bytes += int64(len(block))
	if len(w.buf) >= defaultFlushSize {
		return w.Flush()
	}
	return nil
}

// Flush hands every buffered line to the file.
func (w *Writer) Flush() error {
	if w.file == nil {
		return fmt.Errorf("write %s: %w", w.path, os.ErrClosed)
	}
	if len(w.buf) == 0 {
		return nil
	}
	_, err := w.dst.Write(w.buf)
	w.buf = w.buf[:0]
	if err != nil {
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	return nil
}

// Close flushes buffered lines, finishes the compressed frame if any, and
// closes the file. Closing twice is a no-op.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.Flush()
	if w.enc != nil {
		if cerr := w.enc.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("finish %s: %w", w.path, cerr))
		}
	}
	if cerr := w.file.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("close %s: %w", w.path, cerr))
	}
	w.file = nil
	return err
}
