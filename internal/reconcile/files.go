package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"census/internal/census"
	"census/internal/fileutil"
	"census/internal/logging"
	"census/internal/streamio"
	"census/internal/tierlock"
)

// TierResult is the outcome of a file-level pass over one tier.
type TierResult struct {
	Tier  census.Tier
	Stats Stats
	// Staged maps each rewritten stream to its ".new" sibling, ready for
	// fileutil.Promote.
	Staged map[string]string
}

// Tier reconciles the streams of one tier of layout. Rewritten streams are
// written to ".new" siblings, which are removed again if the pass fails.
// The tier lock is held for the whole pass.
func Tier(ctx context.Context, layout census.Layout, tier census.Tier, opts Options) (TierResult, error) {
	result := TierResult{Tier: tier, Staged: make(map[string]string)}

	lock, err := tierlock.Acquire(layout.LockPath(tier))
	if err != nil {
		return result, err
	}
	defer func() { _ = lock.Release() }()

	var readers []*streamio.Reader
	defer func() {
		for _, r := range readers {
			_ = r.Close()
		}
	}()
	open := func(path string) (*streamio.Reader, error) {
		r, err := streamio.Open(path)
		if err != nil {
			return nil, err
		}
		readers = append(readers, r)
		return r, nil
	}

	var writers []*streamio.Writer
	create := func(path string) (*streamio.Writer, error) {
		staged := census.NewPath(path)
		w, err := streamio.Create(staged)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
		result.Staged[path] = staged
		return w, nil
	}

	streams := Streams{
		Tier:      tier,
		Hashes:    make(map[census.HashKind]LineReader, len(opts.Kinds)),
		HashesOut: make(map[census.HashKind]LineWriter, len(opts.Kinds)),
	}
	err = func() error {
		records, err := open(layout.RecordPath(tier))
		if err != nil {
			return err
		}
		streams.Records = records
		for _, kind := range opts.Kinds {
			r, err := open(layout.HashPath(tier, kind))
			if err != nil {
				return err
			}
			streams.Hashes[kind] = r
		}

		switch opts.Mode {
		case ModeCopy:
			w, err := create(layout.RecordPath(tier))
			if err != nil {
				return err
			}
			streams.RecordsOut = w
		case ModeRepair:
			for _, kind := range opts.Kinds {
				w, err := create(layout.HashPath(tier, kind))
				if err != nil {
					return err
				}
				streams.HashesOut[kind] = w
			}
		}

		result.Stats, err = Run(ctx, streams, opts)
		return err
	}()

	for _, w := range writers {
		if cerr := w.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	if err != nil {
		staged := make([]string, 0, len(result.Staged))
		for _, path := range result.Staged {
			staged = append(staged, path)
		}
		if rerr := fileutil.RemoveAll(staged...); rerr != nil {
			err = errors.Join(err, fmt.Errorf("remove partial output: %w", rerr))
		}
		result.Staged = nil
		return result, err
	}
	return result, nil
}

// Tiers runs Tier for every tier concurrently. Each tier finishes
// independently; the first failure to occur is returned alongside the
// results of every tier that succeeded.
func Tiers(ctx context.Context, layout census.Layout, tiers []census.Tier, opts Options) ([]TierResult, error) {
	logger := logging.NewComponentLogger(opts.Logger, "reconcile")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		results  = make([]TierResult, len(tiers))
		failed   = make([]bool, len(tiers))
	)
	for i, tier := range tiers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := Tier(ctx, layout, tier, opts)
			results[i] = res
			if err == nil {
				return
			}
			failed[i] = true
			mu.Lock()
			defer mu.Unlock()
			if firstErr == nil {
				firstErr = err
				return
			}
			logger.Error("tier reconcile failed",
				logging.String(logging.FieldTier, tier.String()),
				logging.Error(err))
		}()
	}
	wg.Wait()

	out := make([]TierResult, 0, len(tiers))
	for i, res := range results {
		if !failed[i] {
			out = append(out, res)
		}
	}
	return out, firstErr
}
