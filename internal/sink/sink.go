package sink

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"census/internal/census"
	"census/internal/logging"
	"census/internal/streamio"
	"census/internal/tierlock"
)

// TierStats counts what was written to one tier.
type TierStats struct {
	Records   int64
	Files     int64
	Bytes     int64
	HashLines map[census.HashKind]int64
}

// Stats counts what was written, indexed by tier.
type Stats map[census.Tier]TierStats

type tierStreams struct {
	records *streamio.Writer
	hashes  map[census.HashKind]*streamio.Writer
}

// Sink is the tiered writer for one harvested piece.
type Sink struct {
	mu     sync.Mutex
	layout census.Layout
	kinds  []census.HashKind
	logger *slog.Logger

	locks   []*tierlock.Lock
	writers []*streamio.Writer
	tiers   map[census.Tier]*tierStreams
	stats   Stats
	closed  bool
	// failed holds the first write error; later appends return it.
	failed error
}

// Open locks every tier of layout and creates or truncates its streams.
func Open(layout census.Layout, kinds []census.HashKind, logger *slog.Logger) (*Sink, error) {
	s := &Sink{
		layout: layout,
		kinds:  append([]census.HashKind(nil), kinds...),
		logger: logging.NewComponentLogger(logger, "sink"),
		tiers:  make(map[census.Tier]*tierStreams, len(census.Tiers)),
		stats:  make(Stats, len(census.Tiers)),
	}
	if err := s.open(); err != nil {
		if cerr := s.release(); cerr != nil {
			err = errors.Join(err, cerr)
		}
		return nil, err
	}
	s.logger.Debug("opened tier streams",
		logging.Int("streams", len(s.writers)),
		logging.String("dir", layout.Dir))
	return s, nil
}

func (s *Sink) open() error {
	for _, tier := range census.Tiers {
		lock, err := tierlock.Acquire(s.layout.LockPath(tier))
		if err != nil {
			return fmt.Errorf("open %s tier: %w", tier, err)
		}
		s.locks = append(s.locks, lock)
	}
	for _, tier := range census.Tiers {
		streams := &tierStreams{hashes: make(map[census.HashKind]*streamio.Writer, len(s.kinds))}
		w, err := s.create(s.layout.RecordPath(tier))
		if err != nil {
			return err
		}
		streams.records = w
		for _, kind := range s.kinds {
			w, err := s.create(s.layout.HashPath(tier, kind))
			if err != nil {
				return err
			}
			streams.hashes[kind] = w
		}
		s.tiers[tier] = streams
		s.stats[tier] = TierStats{HashLines: make(map[census.HashKind]int64, len(s.kinds))}
	}
	return nil
}

func (s *Sink) create(path string) (*streamio.Writer, error) {
	w, err := streamio.Create(path)
	if err != nil {
		return nil, err
	}
	s.writers = append(s.writers, w)
	return w, nil
}

// Append writes one result to the streams of its tier. The record and its
// hash lines are composed in memory before anything is written. Hash lines
// are written only for items that retained files, and always before the
// record line, so a record on disk has all of its hash lines. A write error
// can leave hash lines without their record; the sink then refuses every
// further append.
func (s *Sink) Append(result *census.Result) error {
	if result == nil || result.Item == nil {
		return errors.New("append: empty result")
	}
	line, err := census.EncodeRecord(result.Item)
	if err != nil {
		return err
	}
	blocks := make(map[census.HashKind][]byte, len(s.kinds))
	if len(result.Item.Files) > 0 {
		for _, kind := range s.kinds {
			var block []byte
			for _, hl := range result.HashLines[kind] {
				block = hl.AppendTo(block)
			}
			if len(block) > 0 {
				blocks[kind] = block
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("append: sink is closed")
	}
	if s.failed != nil {
		return fmt.Errorf("append %s: sink failed earlier: %w", result.Item.ID, s.failed)
	}
	streams, ok := s.tiers[result.Tier]
	if !ok {
		return fmt.Errorf("append %s: %w: %s", result.Item.ID, census.ErrUnknownTier, result.Tier)
	}
	for _, kind := range s.kinds {
		block, ok := blocks[kind]
		if !ok {
			continue
		}
		if err := streams.hashes[kind].WriteLines(block, len(result.HashLines[kind])); err != nil {
			return s.fail(result, err)
		}
	}
	if err := streams.records.WriteLines(line, 1); err != nil {
		return s.fail(result, err)
	}

	st := s.stats[result.Tier]
	st.Records++
	st.Files += int64(len(result.Item.Files))
	if result.Item.TotalSize != nil {
		st.Bytes += *result.Item.TotalSize
	}
	for kind := range blocks {
		st.HashLines[kind] += int64(len(result.HashLines[kind]))
	}
	s.stats[result.Tier] = st
	return nil
}

func (s *Sink) fail(result *census.Result, err error) error {
	s.failed = err
	s.logger.Error("tier stream write failed",
		logging.String(logging.FieldItemID, result.Item.ID),
		logging.String(logging.FieldTier, result.Tier.String()),
		logging.Error(err))
	return fmt.Errorf("append %s: %w", result.Item.ID, err)
}

// Stats returns a snapshot of the write counters.
func (s *Sink) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(Stats, len(s.stats))
	for tier, st := range s.stats {
		hashes := make(map[census.HashKind]int64, len(st.HashLines))
		for k, v := range st.HashLines {
			hashes[k] = v
		}
		st.HashLines = hashes
		out[tier] = st
	}
	return out
}

// Close flushes and closes every stream and releases the tier locks. Only
// complete lines reach disk. Closing twice is a no-op.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.release()
	if err != nil {
		s.logger.Error("closing tier streams failed", logging.Error(err))
	}
	return err
}

func (s *Sink) release() error {
	var errs []error
	for _, w := range s.writers {
		errs = append(errs, w.Close())
	}
	for _, lock := range s.locks {
		errs = append(errs, lock.Release())
	}
	s.writers = nil
	s.locks = nil
	return errors.Join(errs...)
}
