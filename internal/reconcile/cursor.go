package reconcile

import (
	"fmt"

	"census/internal/census"
)

// LineReader is a sequential source of lines without terminators.
type LineReader interface {
	Next() bool
	Bytes() []byte
	Line() int64
	Err() error
}

// LineWriter accepts complete lines without terminators.
type LineWriter interface {
	WriteLine(line []byte) error
}

// cursor holds the next unconsumed line of one hash stream.
type cursor struct {
	kind    census.HashKind
	src     LineReader
	current census.HashLine
	raw     []byte
	line    int64
	loaded  bool
	done    bool
}

// peek loads the next line if needed and reports whether one is available.
func (c *cursor) peek() (bool, error) {
	if c.loaded {
		return true, nil
	}
	if c.done {
		return false, nil
	}
	if !c.src.Next() {
		c.done = true
		if err := c.src.Err(); err != nil {
			return false, fmt.Errorf("%s hash stream: %w", c.kind, err)
		}
		return false, nil
	}
	c.raw = append(c.raw[:0], c.src.Bytes()...)
	c.line = c.src.Line()
	hl, err := census.ParseHashLine(string(c.raw))
	if err != nil {
		return false, fmt.Errorf("%s hash stream line %d: %w", c.kind, c.line, err)
	}
	c.current = hl
	c.loaded = true
	return true, nil
}

func (c *cursor) advance() {
	c.loaded = false
}

// matches reports whether the next line belongs to id.
func (c *cursor) matches(id string) (bool, error) {
	ok, err := c.peek()
	if err != nil || !ok {
		return false, err
	}
	return c.current.ID == id, nil
}
