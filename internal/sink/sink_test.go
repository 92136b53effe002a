package sink

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"census/internal/census"
	"census/internal/streamio"
	"census/internal/tierlock"
)

func build(t *testing.T, id, body string) *census.Result {
	t.Helper()
	p, err := census.DecodePayload([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	res, err := census.NewBuilder(census.HashKinds, nil).Build(id, http.StatusOK, p)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func readAll(t *testing.T, path string) []string {
	t.Helper()
	r, err := streamio.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	var lines []string
	for r.Next() {
		lines = append(lines, r.Text())
	}
	if err := r.Err(); err != nil {
		t.Fatal(err)
	}
	return lines
}

func TestSinkRoutesByTier(t *testing.T) {
	for _, ext := range []string{"", ".zst"} {
		t.Run("ext"+ext, func(t *testing.T) {
			layout := census.Layout{Dir: t.TempDir(), Group: "g", Piece: "01", Ext: ext}
			s, err := Open(layout, census.HashKinds, nil)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}

			public := build(t, "pub", `{"dir":"/1/items/pub","files":[{"name":"a b","source":"original","size":"4","md5":"m1","sha1":"s1"}]}`)
			private := build(t, "priv", `{"dir":"/1/items/priv","files":[{"name":"p","source":"original","private":"true","md5":"m2"}]}`)
			dark := build(t, "dark", `{"dir":"/1/items/dark","is_dark":true,"files":[{"name":"d","source":"original","md5":"m3"}]}`)
			empty := build(t, "empty", `{"dir":"/1/items/empty"}`)
			for _, res := range []*census.Result{public, private, dark, empty} {
				if err := s.Append(res); err != nil {
					t.Fatalf("Append %s: %v", res.Item.ID, err)
				}
			}

			stats := s.Stats()
			if err := s.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}
			if err := s.Close(); err != nil {
				t.Fatalf("second Close: %v", err)
			}

			if got := readAll(t, layout.RecordPath(census.TierPublic)); len(got) != 1 || !strings.Contains(got[0], `"id":"pub"`) {
				t.Fatalf("public records = %v", got)
			}
			if got := readAll(t, layout.RecordPath(census.TierPrivate)); len(got) != 1 || !strings.Contains(got[0], `"id":"priv"`) {
				t.Fatalf("private records = %v", got)
			}
			unavailable := readAll(t, layout.RecordPath(census.TierUnavailable))
			if len(unavailable) != 2 {
				t.Fatalf("unavailable records = %v", unavailable)
			}

			if got := readAll(t, layout.HashPath(census.TierPublic, census.MD5)); len(got) != 1 || got[0] != "pub\ta%20b\tm1" {
				t.Fatalf("public md5 = %v", got)
			}
			if got := readAll(t, layout.HashPath(census.TierPrivate, census.SHA1)); len(got) != 0 {
				t.Fatalf("private sha1 should be empty, got %v", got)
			}
			if got := readAll(t, layout.HashPath(census.TierUnavailable, census.MD5)); len(got) != 1 || got[0] != "dark\td\tm3" {
				t.Fatalf("unavailable md5 = %v", got)
			}

			if stats[census.TierUnavailable].Records != 2 || stats[census.TierPublic].Bytes != 4 {
				t.Fatalf("stats = %+v", stats)
			}
			if stats[census.TierPublic].HashLines[census.SHA1] != 1 {
				t.Fatalf("public sha1 count = %d", stats[census.TierPublic].HashLines[census.SHA1])
			}
		})
	}
}

func TestSinkSuppressesHashLinesWithoutFiles(t *testing.T) {
	layout := census.Layout{Dir: t.TempDir(), Group: "g", Piece: "02"}
	s, err := Open(layout, []census.HashKind{census.MD5}, nil)
	if err != nil {
		t.Fatal(err)
	}
	res := &census.Result{
		Item:      &census.Item{ID: "x", NoDir: true},
		Tier:      census.TierUnavailable,
		HashLines: map[census.HashKind][]census.HashLine{census.MD5: {{ID: "x", Name: "n", Value: "v"}}},
	}
	if err := s.Append(res); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if got := readAll(t, layout.HashPath(census.TierUnavailable, census.MD5)); len(got) != 0 {
		t.Fatalf("hash lines written for file-less item: %v", got)
	}
	if _, err := os.Stat(layout.HashPath(census.TierUnavailable, census.SHA1)); !os.IsNotExist(err) {
		t.Fatal("unconfigured hash kind must not get a stream")
	}
}

func TestOpenReleasesOnFailure(t *testing.T) {
	dir := t.TempDir()
	layout := census.Layout{Dir: dir, Group: "g", Piece: "03"}
	// A directory where the private sha1 stream should go makes creation fail.
	if err := os.Mkdir(layout.HashPath(census.TierPrivate, census.SHA1), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(layout, census.HashKinds, nil); err == nil {
		t.Fatal("expected Open to fail")
	}
	for _, tier := range census.Tiers {
		lock, err := tierlock.Acquire(layout.LockPath(tier))
		if err != nil {
			t.Fatalf("lock for %s not released: %v", tier, err)
		}
		_ = lock.Release()
	}
}

func TestOpenRefusesLockedTier(t *testing.T) {
	layout := census.Layout{Dir: t.TempDir(), Group: "g", Piece: "04"}
	held, err := tierlock.Acquire(layout.LockPath(census.TierPublic))
	if err != nil {
		t.Fatal(err)
	}
	defer held.Release()

	if _, err := Open(layout, census.HashKinds, nil); !errors.Is(err, tierlock.ErrLocked) {
		t.Fatalf("Open err = %v, want ErrLocked", err)
	}
	if _, err := os.Stat(filepath.Join(layout.Dir, filepath.Base(layout.RecordPath(census.TierPublic)))); !os.IsNotExist(err) {
		t.Fatal("streams must not be truncated while another process owns a tier")
	}
}

func TestAppendAfterClose(t *testing.T) {
	s, err := Open(census.Layout{Dir: t.TempDir(), Group: "g", Piece: "05"}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Close()
	if err := s.Append(&census.Result{Item: &census.Item{ID: "x"}}); err == nil {
		t.Fatal("expected error appending to a closed sink")
	}
}

func TestAppendStopsAfterWriteFailure(t *testing.T) {
	layout := census.Layout{Dir: t.TempDir(), Group: "g", Piece: "06"}
	s, err := Open(layout, census.HashKinds, nil)
	if err != nil {
		t.Fatal(err)
	}
	// A closed hash stream makes the next write to it fail.
	if err := s.tiers[census.TierPublic].hashes[census.SHA1].Close(); err != nil {
		t.Fatal(err)
	}

	first := build(t, "one", `{"dir":"/1/items/one","files":[{"name":"a","source":"original","md5":"m1","sha1":"s1"}]}`)
	if err := s.Append(first); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("Append err = %v, want os.ErrClosed", err)
	}
	second := build(t, "two", `{"dir":"/1/items/two","is_dark":true,"files":[{"name":"b","source":"original","md5":"m2"}]}`)
	if err := s.Append(second); err == nil {
		t.Fatal("expected appends to stop after a write failure")
	}
	if got := s.Stats()[census.TierPublic].Records; got != 0 {
		t.Fatalf("public records counted = %d", got)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if got := readAll(t, layout.RecordPath(census.TierPublic)); len(got) != 0 {
		t.Fatalf("record written without its hash lines: %v", got)
	}
	if got := readAll(t, layout.RecordPath(census.TierUnavailable)); len(got) != 0 {
		t.Fatalf("append after failure reached disk: %v", got)
	}
}

func TestCloseReleasesLocksForNextRun(t *testing.T) {
	layout := census.Layout{Dir: t.TempDir(), Group: "g", Piece: "07"}
	s, err := Open(layout, census.HashKinds, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	again, err := Open(layout, census.HashKinds, nil)
	if err != nil {
		t.Fatalf("reopen after Close: %v", err)
	}
	_ = again.Close()
}
