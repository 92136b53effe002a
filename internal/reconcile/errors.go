package reconcile

import (
	"errors"
	"fmt"

	"census/internal/census"
)

var (
	// ErrOrderMismatch marks a hash line that cannot be paired with the file
	// at its position in the record.
	ErrOrderMismatch = errors.New("hash stream out of order with records")
	// ErrUnconsumedHashLines marks hash lines left over after the last record.
	ErrUnconsumedHashLines = errors.New("unconsumed hash lines")
)

// MismatchError describes the first unpairable record/hash line pair.
type MismatchError struct {
	Tier     census.Tier
	Kind     census.HashKind
	ID       string
	Position int
	// RecordName is the encoded record filename at Position, empty when the
	// record has fewer files than hash lines.
	RecordName string
	HashName   string
	// Line is the 1-based line number in the hash stream.
	Line int64
}

func (e *MismatchError) Error() string {
	if e.RecordName == "" {
		return fmt.Sprintf("%s: %s %s line %d: item %s has no file at position %d for hash line name %q",
			ErrOrderMismatch, e.Tier, e.Kind, e.Line, e.ID, e.Position, e.HashName)
	}
	return fmt.Sprintf("%s: %s %s line %d: item %s file %d: record name %q, hash line name %q",
		ErrOrderMismatch, e.Tier, e.Kind, e.Line, e.ID, e.Position, e.RecordName, e.HashName)
}

func (e *MismatchError) Unwrap() error { return ErrOrderMismatch }
