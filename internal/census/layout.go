package census

import (
	"fmt"
	"path/filepath"
)

// Layout names the files of one harvested piece of a group.
type Layout struct {
	Dir   string
	Group string
	Piece string
	// Ext is appended to every stream name, e.g. ".zst". Empty for plain files.
	Ext string
}

func (l Layout) base(tier Tier) string {
	return fmt.Sprintf("census_data_%s_%s_%s", tier, l.Group, l.Piece)
}

// RecordPath is the tier's NDJSON record stream.
func (l Layout) RecordPath(tier Tier) string {
	return filepath.Join(l.Dir, l.base(tier)+".json"+l.Ext)
}

// HashPath is the tier's hash stream for kind.
func (l Layout) HashPath(tier Tier, kind HashKind) string {
	return filepath.Join(l.Dir, fmt.Sprintf("%s.%s.tsv%s", l.base(tier), kind, l.Ext))
}

// LockPath guards exclusive ownership of the tier's streams.
func (l Layout) LockPath(tier Tier) string {
	return filepath.Join(l.Dir, "."+l.base(tier)+".lock")
}

// NewPath is the sibling written by a rewrite of path.
func NewPath(path string) string {
	return path + ".new"
}
