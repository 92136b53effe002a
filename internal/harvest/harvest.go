package harvest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"census/internal/census"
	"census/internal/logging"
	"census/internal/metaapi"
)

const defaultConcurrency = 50

// Appender receives built results. *sink.Sink satisfies it.
type Appender interface {
	Append(result *census.Result) error
}

// Options configures a harvest run.
type Options struct {
	Concurrency int
	Kinds       []census.HashKind
	Logger      *slog.Logger
	// Dots receives a progress dot per ProgressTick items; nil disables them.
	Dots         io.Writer
	ProgressTick int64
	ProgressMark int64
}

// Stats summarizes a harvest run.
type Stats struct {
	RunID     string
	Requested int64
	Written   int64
	// Skipped counts non-200 responses, Failed transport or decode errors.
	Skipped           int64
	Failed            int64
	MissingHashes     int64
	ConflictingHashes int64
	Tiers             map[census.Tier]int64
	Elapsed           time.Duration
}

type fetched struct {
	resp metaapi.Response
	err  error
}

// Run reads item ids, one per line, from ids and harvests each of them.
// Fetch failures and non-200 responses drop the item and the run continues;
// a sink failure aborts the run. On cancellation dispatch stops, in-flight
// fetches are drained, and ctx.Err() is returned.
func Run(ctx context.Context, ids io.Reader, fetcher metaapi.Fetcher, out Appender, opts Options) (Stats, error) {
	stats := Stats{RunID: uuid.NewString(), Tiers: make(map[census.Tier]int64, len(census.Tiers))}
	logger := logging.NewComponentLogger(opts.Logger, "harvest").With(logging.String(logging.FieldRunID, stats.RunID))
	builder := census.NewBuilder(opts.Kinds, logger)
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	tick, mark := opts.ProgressTick, opts.ProgressMark
	if tick <= 0 {
		tick = 1_000
	}
	if mark <= 0 {
		mark = 100_000
	}
	progress := logging.NewProgressCounter("harvest", tick, mark, opts.Dots, logger)
	defer progress.Finish()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	logger.Info("harvest started", logging.Int("concurrency", concurrency))

	jobs := make(chan string, concurrency)
	results := make(chan fetched, concurrency)

	var readErr error
	go func() {
		defer close(jobs)
		scanner := bufio.NewScanner(ids)
		scanner.Buffer(make([]byte, 0, 4096), 1<<20)
		for scanner.Scan() {
			id := strings.TrimSpace(scanner.Text())
			if id == "" {
				continue
			}
			select {
			case jobs <- id:
			case <-runCtx.Done():
				return
			}
		}
		readErr = scanner.Err()
	}()

	var wg sync.WaitGroup
	for range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				resp, err := fetcher.Fetch(runCtx, id)
				resp.ID = id
				results <- fetched{resp: resp, err: err}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var sinkErr error
	for r := range results {
		stats.Requested++
		progress.Add(1)
		if sinkErr != nil || runCtx.Err() != nil {
			continue
		}
		itemLogger := logger.With(logging.String(logging.FieldItemID, r.resp.ID))
		if r.err != nil {
			stats.Failed++
			logging.WarnWithContext(itemLogger, "fetch failed", "fetch_failed",
				logging.Error(r.err),
				logging.String(logging.FieldImpact, "item dropped from this run"),
				logging.String(logging.FieldErrorHint, "re-run the item id once the api is reachable"))
			continue
		}
		result, err := builder.Build(r.resp.ID, r.resp.Status, r.resp.Payload)
		if errors.Is(err, census.ErrSkippedItem) {
			stats.Skipped++
			logging.WarnWithContext(itemLogger, "item skipped", "skipped_item",
				logging.Int("status", r.resp.Status),
				logging.String(logging.FieldImpact, "item dropped from this run"),
				logging.String(logging.FieldErrorHint, "check the id exists in the metadata api"))
			continue
		}
		if err != nil {
			sinkErr = err
			cancel()
			continue
		}
		if err := out.Append(result); err != nil {
			sinkErr = fmt.Errorf("append %s: %w", r.resp.ID, err)
			cancel()
			continue
		}
		stats.Written++
		stats.Tiers[result.Tier]++
		stats.MissingHashes += int64(result.MissingHashes)
		stats.ConflictingHashes += int64(result.ConflictingHashes)
	}
	stats.Elapsed = time.Since(start)

	attrs := []logging.Attr{
		logging.Int64("requested", stats.Requested),
		logging.Int64("written", stats.Written),
		logging.Int64("skipped", stats.Skipped),
		logging.Int64("failed", stats.Failed),
		logging.Duration("elapsed", stats.Elapsed),
	}
	switch {
	case sinkErr != nil:
		logging.ErrorWithContext(logger, "harvest aborted", "harvest_aborted", append(attrs, logging.Error(sinkErr))...)
		return stats, sinkErr
	case ctx.Err() != nil:
		logger.Warn("harvest interrupted", logging.Args(attrs...)...)
		return stats, ctx.Err()
	case readErr != nil:
		return stats, fmt.Errorf("read item ids: %w", readErr)
	}
	logger.Info("harvest complete", logging.Args(attrs...)...)
	return stats, nil
}
