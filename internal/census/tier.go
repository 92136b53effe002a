package census

import (
	"fmt"
	"strings"
)

// Tier is the availability classification of an item.
type Tier int

const (
	TierUnavailable Tier = iota
	TierPublic
	TierPrivate
)

// Tiers lists every tier in output order.
var Tiers = []Tier{TierUnavailable, TierPublic, TierPrivate}

func (t Tier) String() string {
	switch t {
	case TierUnavailable:
		return "unavailable"
	case TierPublic:
		return "public"
	case TierPrivate:
		return "private"
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// ParseTier resolves a tier name.
func ParseTier(name string) (Tier, error) {
	for _, t := range Tiers {
		if strings.EqualFold(strings.TrimSpace(name), t.String()) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTier, name)
}

// Classify assigns an item its tier. Items without retained files, dark
// items, items without a storage dir, and noindex items are unavailable;
// of the rest, any private file makes the item private.
func Classify(item *Item) Tier {
	switch {
	case item == nil,
		len(item.Files) == 0,
		item.IsDark != nil,
		bool(item.NoDir),
		item.NoIndex != nil:
		return TierUnavailable
	case bool(item.SomePrivate):
		return TierPrivate
	}
	return TierPublic
}
