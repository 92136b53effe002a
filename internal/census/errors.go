package census

import "errors"

var (
	// ErrSkippedItem marks a payload that was not fetched successfully. The
	// item produces no output and the run continues.
	ErrSkippedItem = errors.New("skipped item")
	// ErrMalformedHashLine marks a hash stream line without exactly three
	// tab-separated fields.
	ErrMalformedHashLine = errors.New("malformed hash line")
	ErrUnknownHashKind   = errors.New("unknown hash kind")
	ErrUnknownTier       = errors.New("unknown tier")
)
