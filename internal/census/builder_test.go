package census

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"testing"
)

func mustPayload(t *testing.T, body string) *Payload {
	t.Helper()
	p, err := DecodePayload([]byte(body))
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	return p
}

func TestBuildRetainsOriginalFiles(t *testing.T) {
	p := mustPayload(t, `{
		"dir": "/1/items/X",
		"files": [
			{"name": "a.txt", "size": "10", "source": "original", "format": "Text", "md5": "deadbeef"},
			{"name": "X_files.xml", "source": "original", "format": "Metadata"},
			{"name": "b.jpg", "size": "20", "source": "derivative", "format": "JPEG"}
		]
	}`)

	res, err := NewBuilder(HashKinds, nil).Build("X", http.StatusOK, p)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	item := res.Item
	if len(item.Files) != 1 || item.Files[0].Name != "a.txt" {
		t.Fatalf("retained files = %+v, want only a.txt", item.Files)
	}
	if item.TotalSize == nil || *item.TotalSize != 10 {
		t.Fatalf("total size = %v, want 10", item.TotalSize)
	}
	if item.Dir != nil {
		t.Fatalf("dir implied by convention should be omitted, got %q", *item.Dir)
	}
	if item.NoDir {
		t.Fatal("no_dir must not be set when dir is present")
	}
	if res.Tier != TierPublic {
		t.Fatalf("tier = %s, want public", res.Tier)
	}

	wantMD5 := []HashLine{{ID: "X", Name: "a.txt", Value: "deadbeef"}}
	if !reflect.DeepEqual(res.HashLines[MD5], wantMD5) {
		t.Fatalf("md5 lines = %+v, want %+v", res.HashLines[MD5], wantMD5)
	}
	if len(res.HashLines[SHA1]) != 0 || res.MissingHashes != 1 {
		t.Fatalf("expected one missing sha1, got lines=%v missing=%d", res.HashLines[SHA1], res.MissingHashes)
	}
}

func TestBuildSkipsNon200(t *testing.T) {
	res, err := NewBuilder(HashKinds, nil).Build("X", http.StatusNotFound, &Payload{})
	if !errors.Is(err, ErrSkippedItem) {
		t.Fatalf("expected ErrSkippedItem, got %v", err)
	}
	if res != nil {
		t.Fatal("expected no result for skipped item")
	}
}

func TestBuildDirRule(t *testing.T) {
	tests := []struct {
		name    string
		dir     string
		wantDir bool
	}{
		{"conventional", "/5/items/abc", false},
		{"different id", "/5/items/other", true},
		{"short path", "/items", true},
		{"deeper conventional", "/5/items/abc/sub", false},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.dir
			res, err := NewBuilder(nil, nil).Build("abc", http.StatusOK, &Payload{Dir: &dir})
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if got := res.Item.Dir != nil; got != tt.wantDir {
				t.Fatalf("dir emitted = %v, want %v", got, tt.wantDir)
			}
			if tt.wantDir && *res.Item.Dir != tt.dir {
				t.Fatalf("dir = %q, want verbatim %q", *res.Item.Dir, tt.dir)
			}
		})
	}
}

func TestBuildNoDirAndEmptyFiles(t *testing.T) {
	res, err := NewBuilder(HashKinds, nil).Build("gone", http.StatusOK, mustPayload(t, `{}`))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !res.Item.NoDir {
		t.Fatal("expected no_dir for payload without dir")
	}
	if res.Item.Files != nil || res.Item.TotalSize != nil {
		t.Fatal("files and total_size must be absent together")
	}
	if res.Tier != TierUnavailable {
		t.Fatalf("tier = %s, want unavailable", res.Tier)
	}

	line, err := EncodeRecord(res.Item)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(line); got != `{"id":"gone","no_dir":"true"}`+"\n" {
		t.Fatalf("record = %s", got)
	}
}

func TestBuildCopiesMetadataFields(t *testing.T) {
	p := mustPayload(t, `{
		"dir": "/1/items/id1",
		"is_dark": true,
		"nodownload": "true",
		"metadata": {
			"collection": ["a", "b"],
			"publicdate": "2012-01-01 00:00:00",
			"noindex": "true",
			"identifier": "ID1",
			"title": "ignored"
		},
		"files": [{"name": "f", "source": "original", "size": 3}]
	}`)
	res, err := NewBuilder(nil, nil).Build("id1", http.StatusOK, p)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	it := res.Item
	checks := map[string]json.RawMessage{
		`true`:                  it.IsDark,
		`"true"`:                it.NoDownload,
		`["a", "b"]`:            it.Collection,
		`"2012-01-01 00:00:00"`: it.PublicDate,
	}
	for want, got := range checks {
		if string(got) != want {
			t.Fatalf("copied value %s, want %s", got, want)
		}
	}
	if string(it.NoIndex) != `"true"` {
		t.Fatalf("noindex = %s", it.NoIndex)
	}
	if string(it.MetadataIdentifier) != `"ID1"` {
		t.Fatalf("metadata identifier = %s", it.MetadataIdentifier)
	}
	if *it.TotalSize != 3 {
		t.Fatalf("numeric size not parsed: %d", *it.TotalSize)
	}
}

func TestBuildIdentifierEqualToIDIsDropped(t *testing.T) {
	p := mustPayload(t, `{"dir": "/1/items/same", "metadata": {"identifier": "same"}}`)
	res, err := NewBuilder(nil, nil).Build("same", http.StatusOK, p)
	if err != nil {
		t.Fatal(err)
	}
	if res.Item.MetadataIdentifier != nil {
		t.Fatalf("identifier equal to id must be omitted, got %s", res.Item.MetadataIdentifier)
	}
}

func TestBuildIdentifierShapes(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		want       string
	}{
		{name: "list", identifier: `["X", "Y"]`, want: `["X","Y"]`},
		{name: "other string", identifier: `"Y"`, want: `"Y"`},
		{name: "same string", identifier: `"X"`, want: ""},
		{name: "null", identifier: `null`, want: ""},
		{name: "empty string", identifier: `""`, want: ""},
		{name: "empty list", identifier: `[ ]`, want: ""},
		{name: "empty object", identifier: `{}`, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustPayload(t, `{"dir": "/1/items/X", "metadata": {"identifier": `+tt.identifier+`},
				"files": [{"name": "a.txt", "source": "original", "size": "1"}]}`)
			res, err := NewBuilder(nil, nil).Build("X", http.StatusOK, p)
			if err != nil {
				t.Fatal(err)
			}
			if got := string(res.Item.MetadataIdentifier); got != tt.want {
				t.Fatalf("metadata_identifier = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildPrivateFiles(t *testing.T) {
	p := mustPayload(t, `{
		"dir": "/1/items/p",
		"files": [
			{"name": "open.txt", "source": "original", "size": "1"},
			{"name": "closed.txt", "source": "original", "size": "2", "private": "true"}
		]
	}`)
	res, err := NewBuilder(nil, nil).Build("p", http.StatusOK, p)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Item.SomePrivate {
		t.Fatal("expected some_private")
	}
	if string(res.Item.Files[1].Private) != `"true"` || res.Item.Files[0].Private != nil {
		t.Fatalf("private markers not copied per file: %+v", res.Item.Files)
	}
	if res.Tier != TierPrivate {
		t.Fatalf("tier = %s, want private", res.Tier)
	}
}

func TestBuildHashShapes(t *testing.T) {
	p := mustPayload(t, `{
		"dir": "/1/items/h",
		"files": [
			{"name": "ok file.bin", "source": "original", "md5": "aa", "sha1": "bb"},
			{"name": "multi", "source": "original", "md5": ["aa", "cc"], "sha1": null},
			{"name": "num", "source": "original", "md5": 12, "sha1": ""}
		]
	}`)
	res, err := NewBuilder(HashKinds, nil).Build("h", http.StatusOK, p)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.HashLines[MD5]) != 1 || len(res.HashLines[SHA1]) != 1 {
		t.Fatalf("expected only the well-formed file to produce lines, got %+v", res.HashLines)
	}
	if res.HashLines[MD5][0].Name != "ok%20file.bin" {
		t.Fatalf("hash line name not component encoded: %q", res.HashLines[MD5][0].Name)
	}
	if res.MissingHashes != 4 || res.ConflictingHashes != 2 {
		t.Fatalf("missing=%d conflicting=%d, want 4/2", res.MissingHashes, res.ConflictingHashes)
	}
	if len(res.Item.Files) != 3 {
		t.Fatal("hash problems must not drop files")
	}
}

func TestBuildBadSizeDefaultsToZero(t *testing.T) {
	p := mustPayload(t, `{"dir": "/1/items/s", "files": [
		{"name": "a", "source": "original", "size": "n/a"},
		{"name": "b", "source": "original", "size": "7"},
		{"name": "c", "source": "original"}
	]}`)
	res, err := NewBuilder(nil, nil).Build("s", http.StatusOK, p)
	if err != nil {
		t.Fatal(err)
	}
	if res.Item.Files[0].Size != 0 || res.Item.Files[2].Size != 0 || *res.Item.TotalSize != 7 {
		t.Fatalf("unexpected sizes: %+v total=%d", res.Item.Files, *res.Item.TotalSize)
	}
}

func TestBuildZeroTotalSizeIsPresent(t *testing.T) {
	p := mustPayload(t, `{"dir": "/1/items/z", "files": [{"name": "empty", "source": "original", "size": "0"}]}`)
	res, err := NewBuilder(nil, nil).Build("z", http.StatusOK, p)
	if err != nil {
		t.Fatal(err)
	}
	line, err := EncodeRecord(res.Item)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"id":"z","files":[{"name":"empty","format":"","size":0}],"total_size":0}` + "\n"
	if string(line) != want {
		t.Fatalf("record = %s, want %s", line, want)
	}
}

func TestBuildDoesNotAliasPayload(t *testing.T) {
	p := mustPayload(t, `{"dir": "/1/items/a", "metadata": {"collection": "c"}}`)
	res, err := NewBuilder(nil, nil).Build("a", http.StatusOK, p)
	if err != nil {
		t.Fatal(err)
	}
	p.Metadata.Collection[1] = 'X'
	if string(res.Item.Collection) != `"c"` {
		t.Fatalf("item shares memory with payload: %s", res.Item.Collection)
	}
}
