package reconcile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"census/internal/census"
	"census/internal/logging"
	"census/internal/nameenc"
)

// Options configures one reconciliation pass.
type Options struct {
	Mode  Mode
	Kinds []census.HashKind
	// StrictEnd fails the pass when hash lines remain after the last record.
	// When false the leftovers are logged and, in repair mode, copied through.
	StrictEnd bool
	// TickEvery and MarkEvery control progress output; zero uses defaults.
	TickEvery int64
	MarkEvery int64
	// Dots receives progress dots; nil disables them.
	Dots   io.Writer
	Logger *slog.Logger
}

// Streams are the inputs and outputs of one tier's pass. RecordsOut is
// required in copy mode, HashesOut for every kind in repair mode.
type Streams struct {
	Tier       census.Tier
	Records    LineReader
	Hashes     map[census.HashKind]LineReader
	RecordsOut LineWriter
	HashesOut  map[census.HashKind]LineWriter
}

// Stats summarizes one pass.
type Stats struct {
	Records int64
	// Pairs counts aligned record file / hash line pairs over all kinds.
	Pairs int64
	// Updated counts records rewritten because a hash value changed.
	Updated int64
	// Repaired counts hash lines whose name was rewritten.
	Repaired int64
	// Unconsumed counts leftover hash lines per kind.
	Unconsumed map[census.HashKind]int64
}

type pass struct {
	opts     Options
	streams  Streams
	cursors  []*cursor
	pending  map[census.HashKind][]byte
	progress *logging.ProgressCounter
	logger   *slog.Logger
	stats    Stats
}

// Run aligns every record of streams with its hash lines. Output for an item
// is written only after all of its hash lines were paired, so a mismatch
// aborts before the offending item reaches any output stream.
func Run(ctx context.Context, streams Streams, opts Options) (Stats, error) {
	if streams.Records == nil {
		return Stats{}, fmt.Errorf("reconcile %s: no record stream", streams.Tier)
	}
	logger := logging.NewComponentLogger(opts.Logger, "reconcile").With(
		logging.String(logging.FieldTier, streams.Tier.String()),
		logging.String("mode", opts.Mode.String()))

	p := &pass{
		opts:     opts,
		streams:  streams,
		pending:  make(map[census.HashKind][]byte, len(opts.Kinds)),
		progress: logging.NewProgressCounter("reconcile "+streams.Tier.String(), opts.TickEvery, opts.MarkEvery, opts.Dots, logger),
		logger:   logger,
		stats:    Stats{Unconsumed: make(map[census.HashKind]int64, len(opts.Kinds))},
	}
	defer p.progress.Finish()

	switch opts.Mode {
	case ModeCopy:
		if streams.RecordsOut == nil {
			return p.stats, fmt.Errorf("reconcile %s: copy mode needs a record output", streams.Tier)
		}
	case ModeRepair:
	default:
		return p.stats, fmt.Errorf("reconcile %s: unsupported %s", streams.Tier, opts.Mode)
	}
	for _, kind := range opts.Kinds {
		src, ok := streams.Hashes[kind]
		if !ok || src == nil {
			return p.stats, fmt.Errorf("reconcile %s: no %s hash stream", streams.Tier, kind)
		}
		if opts.Mode == ModeRepair && streams.HashesOut[kind] == nil {
			return p.stats, fmt.Errorf("reconcile %s: repair mode needs a %s output", streams.Tier, kind)
		}
		p.cursors = append(p.cursors, &cursor{kind: kind, src: src})
	}

	for streams.Records.Next() {
		if err := ctx.Err(); err != nil {
			return p.stats, err
		}
		line := streams.Records.Line()
		raw := streams.Records.Bytes()
		item, err := census.DecodeRecord(raw)
		if err != nil {
			return p.stats, fmt.Errorf("reconcile %s record line %d: %w", streams.Tier, line, err)
		}
		if err := p.item(item, raw); err != nil {
			return p.stats, err
		}
		p.stats.Records++
	}
	if err := streams.Records.Err(); err != nil {
		return p.stats, err
	}

	if err := p.finish(); err != nil {
		return p.stats, err
	}
	logger.Info("reconcile pass complete",
		logging.Int64("records", p.stats.Records),
		logging.Int64("pairs", p.stats.Pairs),
		logging.Int64("updated", p.stats.Updated),
		logging.Int64("repaired", p.stats.Repaired))
	return p.stats, nil
}

// item pairs one record with the leading hash lines of each kind and then
// writes its output.
func (p *pass) item(item *census.Item, raw []byte) error {
	changed := false
	for _, c := range p.cursors {
		block := p.pending[c.kind][:0]
		for idx := 0; ; idx++ {
			ok, err := c.matches(item.ID)
			if err != nil {
				return fmt.Errorf("reconcile %s: %w", p.streams.Tier, err)
			}
			if !ok {
				break
			}
			if idx >= len(item.Files) {
				return p.mismatch(c, item.ID, idx, "")
			}
			file := &item.Files[idx]
			encoded := nameenc.Encode(file.Name)
			switch {
			case encoded == c.current.Name:
				if p.opts.Mode == ModeCopy {
					if file.SetHash(c.kind, c.current.Value) {
						changed = true
					}
				} else {
					block = append(append(block, c.raw...), '\n')
				}
			case p.opts.Mode == ModeRepair && nameenc.Equivalent(encoded, c.current.Name):
				fixed := census.HashLine{ID: c.current.ID, Name: encoded, Value: c.current.Value}
				block = fixed.AppendTo(block)
				p.stats.Repaired++
				p.logger.Info("repaired hash line name",
					logging.String(logging.FieldEventType, "encoding_mismatch_resolved"),
					logging.String(logging.FieldItemID, item.ID),
					logging.String(logging.FieldHashKind, string(c.kind)),
					logging.Int64("line", c.line),
					logging.String("from", c.current.Name),
					logging.String("to", encoded))
			default:
				return p.mismatch(c, item.ID, idx, encoded)
			}
			c.advance()
			p.stats.Pairs++
			p.progress.Add(1)
		}
		p.pending[c.kind] = block
	}

	switch p.opts.Mode {
	case ModeCopy:
		out := raw
		if changed {
			encoded, err := census.EncodeRecord(item)
			if err != nil {
				return err
			}
			out = bytes.TrimSuffix(encoded, []byte("\n"))
			p.stats.Updated++
		}
		if err := p.streams.RecordsOut.WriteLine(out); err != nil {
			return err
		}
	case ModeRepair:
		for _, c := range p.cursors {
			if err := writeBlock(p.streams.HashesOut[c.kind], p.pending[c.kind]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *pass) mismatch(c *cursor, id string, idx int, recordName string) error {
	err := &MismatchError{
		Tier:       p.streams.Tier,
		Kind:       c.kind,
		ID:         id,
		Position:   idx,
		RecordName: recordName,
		HashName:   c.current.Name,
		Line:       c.line,
	}
	logging.ErrorWithContext(p.logger, "hash stream does not align with records", "order_mismatch",
		logging.String(logging.FieldItemID, id),
		logging.String(logging.FieldHashKind, string(c.kind)),
		logging.Int64("line", c.line),
		logging.Int("position", idx),
		logging.String("record_name", recordName),
		logging.String("hash_name", c.current.Name),
		logging.String(logging.FieldErrorHint, "regenerate the hash stream in record order"))
	return err
}

// finish drains the leftover hash lines of every kind.
func (p *pass) finish() error {
	var first *cursor
	var firstLine census.HashLine
	for _, c := range p.cursors {
		for {
			ok, err := c.peek()
			if err != nil {
				return fmt.Errorf("reconcile %s: %w", p.streams.Tier, err)
			}
			if !ok {
				break
			}
			if first == nil {
				first, firstLine = c, c.current
			}
			p.stats.Unconsumed[c.kind]++
			if p.opts.Mode == ModeRepair && !p.opts.StrictEnd {
				if err := p.streams.HashesOut[c.kind].WriteLine(c.raw); err != nil {
					return err
				}
			}
			c.advance()
		}
	}
	if first == nil {
		return nil
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldHashKind, string(first.kind)),
		logging.String(logging.FieldItemID, firstLine.ID),
		logging.String("first_line", firstLine.String()),
	}
	for kind, n := range p.stats.Unconsumed {
		attrs = append(attrs, logging.Int64("unconsumed_"+string(kind), n))
	}
	if p.opts.StrictEnd {
		logging.ErrorWithContext(p.logger, "hash lines left after the last record", "unconsumed_hash_lines",
			append(attrs, logging.String(logging.FieldErrorHint, "hash stream has ids missing from the record stream or out of order"))...)
		return fmt.Errorf("reconcile %s: %w: %s stream, first %q", p.streams.Tier, ErrUnconsumedHashLines, first.kind, firstLine.String())
	}
	logging.WarnWithContext(p.logger, "hash lines left after the last record", "unconsumed_hash_lines",
		append(attrs, logging.String(logging.FieldImpact, "leftover hash values were not applied"))...)
	return nil
}

func writeBlock(w LineWriter, block []byte) error {
	for len(block) > 0 {
		i := bytes.IndexByte(block, '\n')
		if err := w.WriteLine(block[:i]); err != nil {
			return err
		}
		block = block[i+1:]
	}
	return nil
}
