package harvest

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"

	"census/internal/census"
	"census/internal/metaapi"
)

type fakeFetcher struct {
	bodies map[string]string
	status map[string]int
	fail   map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, id string) (metaapi.Response, error) {
	if err := f.fail[id]; err != nil {
		return metaapi.Response{ID: id}, err
	}
	if code, ok := f.status[id]; ok {
		return metaapi.Response{ID: id, Status: code}, nil
	}
	p, err := census.DecodePayload([]byte(f.bodies[id]))
	if err != nil {
		return metaapi.Response{ID: id}, err
	}
	return metaapi.Response{ID: id, Status: http.StatusOK, Payload: p}, nil
}

type memSink struct {
	mu      sync.Mutex
	results []*census.Result
	err     error
}

func (m *memSink) Append(r *census.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.results = append(m.results, r)
	return nil
}

func (m *memSink) ids() []string {
	var out []string
	for _, r := range m.results {
		out = append(out, r.Item.ID)
	}
	sort.Strings(out)
	return out
}

func TestRunRoutesAndCounts(t *testing.T) {
	fetcher := &fakeFetcher{
		bodies: map[string]string{
			"pub":  `{"dir":"/1/items/pub","files":[{"name":"a","source":"original","md5":"m"}]}`,
			"priv": `{"dir":"/1/items/priv","files":[{"name":"a","source":"original","private":"true","md5":"m","sha1":"s"}]}`,
			"gone": `{}`,
		},
		status: map[string]int{"404": http.StatusNotFound},
		fail:   map[string]error{"flaky": errors.New("connection reset")},
	}
	out := &memSink{}
	ids := strings.NewReader("pub\n\npriv\n404\n gone \nflaky\n")

	stats, err := Run(context.Background(), ids, fetcher, out, Options{Concurrency: 3, Kinds: census.HashKinds})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.Join(out.ids(), ","); got != "gone,priv,pub" {
		t.Fatalf("written ids = %s", got)
	}
	if stats.Requested != 5 || stats.Written != 3 || stats.Skipped != 1 || stats.Failed != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.Tiers[census.TierPublic] != 1 || stats.Tiers[census.TierPrivate] != 1 || stats.Tiers[census.TierUnavailable] != 1 {
		t.Fatalf("tiers = %v", stats.Tiers)
	}
	if stats.MissingHashes != 1 {
		t.Fatalf("missing hashes = %d", stats.MissingHashes)
	}
	if stats.RunID == "" {
		t.Fatal("run id not set")
	}
}

func TestRunAbortsOnSinkFailure(t *testing.T) {
	fetcher := &fakeFetcher{bodies: map[string]string{"a": `{}`, "b": `{}`}}
	out := &memSink{err: errors.New("disk full")}
	_, err := Run(context.Background(), strings.NewReader("a\nb\n"), fetcher, out, Options{Concurrency: 1})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("err = %v", err)
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fetcher := &fakeFetcher{bodies: map[string]string{"a": `{}`}}
	out := &memSink{}
	_, err := Run(ctx, strings.NewReader("a\n"), fetcher, out, Options{Concurrency: 2})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if len(out.results) != 0 {
		t.Fatal("nothing may be appended after cancellation")
	}
}
