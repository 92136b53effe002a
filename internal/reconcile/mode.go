package reconcile

import (
	"fmt"
	"strings"
)

// Mode selects what a pass rewrites.
type Mode int

const (
	// ModeCopy writes hash values into the record stream.
	ModeCopy Mode = iota
	// ModeRepair rewrites hash stream names to the record's encoding.
	ModeRepair
)

func (m Mode) String() string {
	switch m {
	case ModeCopy:
		return "copy"
	case ModeRepair:
		return "repair"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode resolves a mode name.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "copy":
		return ModeCopy, nil
	case "repair":
		return ModeRepair, nil
	}
	return 0, fmt.Errorf("unknown reconcile mode %q (want copy or repair)", name)
}
