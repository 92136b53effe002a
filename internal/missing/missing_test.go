package missing

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"census/internal/census"
	"census/internal/testsupport"
)

func TestFind(t *testing.T) {
	dir := t.TempDir()
	layout := census.Layout{Dir: dir, Group: "grp", Piece: "07"}
	expected := filepath.Join(dir, "ids_07")
	testsupport.WriteLines(t, expected, "c", "a", "", "b", "d", "e")
	testsupport.WriteLines(t, layout.RecordPath(census.TierUnavailable), `{"id":"a","no_dir":"true"}`)
	testsupport.WriteLines(t, layout.RecordPath(census.TierPublic), `{"id":"d","files":[]}`, `{"id":"zz"}`)
	testsupport.WriteLines(t, layout.RecordPath(census.TierPrivate))

	ids, err := Find(context.Background(), expected, layout, Options{})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got := strings.Join(ids, ","); got != "b,c,e" {
		t.Fatalf("missing = %s", got)
	}
}

func TestFindRequiresEveryTier(t *testing.T) {
	dir := t.TempDir()
	layout := census.Layout{Dir: dir, Group: "grp", Piece: "08"}
	expected := filepath.Join(dir, "ids_08")
	testsupport.WriteLines(t, expected, "a")
	testsupport.WriteLines(t, layout.RecordPath(census.TierUnavailable))

	if _, err := Find(context.Background(), expected, layout, Options{}); err == nil {
		t.Fatal("expected error for absent tier file")
	}
}

func TestFindRejectsCorruptRecord(t *testing.T) {
	dir := t.TempDir()
	layout := census.Layout{Dir: dir, Group: "grp", Piece: "09"}
	expected := filepath.Join(dir, "ids_09")
	testsupport.WriteLines(t, expected, "a")
	testsupport.WriteLines(t, layout.RecordPath(census.TierUnavailable), `{"id":`)

	if _, err := Find(context.Background(), expected, layout, Options{}); err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Fatalf("err = %v", err)
	}
}
