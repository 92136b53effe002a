// Package missing reports expected item ids that no tier of a harvested
// piece contains.
package missing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"census/internal/census"
	"census/internal/logging"
	"census/internal/streamio"
)

const progressTick = 1_000

// Options configures Find.
type Options struct {
	Logger *slog.Logger
	Dots   io.Writer
}

// Find returns the ids listed in expectedPath, one per line, that appear in
// none of the tier record streams of layout, sorted.
func Find(ctx context.Context, expectedPath string, layout census.Layout, opts Options) ([]string, error) {
	logger := logging.NewComponentLogger(opts.Logger, "missing")

	expected := make(map[string]struct{})
	r, err := streamio.Open(expectedPath)
	if err != nil {
		return nil, err
	}
	for r.Next() {
		if id := string(r.Bytes()); id != "" {
			expected[id] = struct{}{}
		}
	}
	err = r.Err()
	_ = r.Close()
	if err != nil {
		return nil, err
	}
	logger.Info("expected ids loaded", logging.Int("count", len(expected)), logging.String("path", expectedPath))

	for _, tier := range census.Tiers {
		path := layout.RecordPath(tier)
		if err := subtract(ctx, path, expected, opts.Dots, logger); err != nil {
			return nil, err
		}
		logger.Info("tier subtracted",
			logging.String(logging.FieldTier, tier.String()),
			logging.String("path", path),
			logging.Int("remaining", len(expected)))
	}

	ids := make([]string, 0, len(expected))
	for id := range expected {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func subtract(ctx context.Context, path string, expected map[string]struct{}, dots io.Writer, logger *slog.Logger) error {
	r, err := streamio.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	progress := logging.NewProgressCounter("missing", progressTick, 0, dots, logger)
	defer progress.Finish()
	for r.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var rec struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(r.Bytes(), &rec); err != nil {
			return fmt.Errorf("%s line %d: %w", path, r.Line(), err)
		}
		delete(expected, rec.ID)
		progress.Add(1)
	}
	return r.Err()
}
