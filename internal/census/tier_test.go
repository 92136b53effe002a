package census

import (
	"encoding/json"
	"testing"
)

func TestClassify(t *testing.T) {
	files := []FileEntry{{Name: "a"}}
	present := json.RawMessage(`"true"`)

	tests := []struct {
		name string
		item *Item
		want Tier
	}{
		{"nil item", nil, TierUnavailable},
		{"no files", &Item{ID: "x"}, TierUnavailable},
		{"dark", &Item{ID: "x", Files: files, IsDark: present}, TierUnavailable},
		{"dark false is still present", &Item{ID: "x", Files: files, IsDark: json.RawMessage(`false`)}, TierUnavailable},
		{"no dir", &Item{ID: "x", Files: files, NoDir: true}, TierUnavailable},
		{"noindex", &Item{ID: "x", Files: files, NoIndex: present}, TierUnavailable},
		{"noindex beats private", &Item{ID: "x", Files: files, NoIndex: present, SomePrivate: true}, TierUnavailable},
		{"private", &Item{ID: "x", Files: files, SomePrivate: true}, TierPrivate},
		{"public", &Item{ID: "x", Files: files}, TierPublic},
		{"nodownload does not matter", &Item{ID: "x", Files: files, NoDownload: present}, TierPublic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.item); got != tt.want {
				t.Fatalf("Classify = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseTier(t *testing.T) {
	for _, tier := range Tiers {
		got, err := ParseTier(" " + tier.String() + " ")
		if err != nil || got != tier {
			t.Fatalf("ParseTier(%q) = %v, %v", tier, got, err)
		}
	}
	if _, err := ParseTier("secret"); err == nil {
		t.Fatal("expected error for unknown tier")
	}
}
