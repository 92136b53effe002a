package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
)

// Default progress thresholds for multi-million line passes.
const (
	DefaultProgressTick = 10_000
	DefaultProgressMark = 1_000_000
)

// ProgressCounter emits a dot every Tick units and a marker every Mark units.
// Dots go to a terminal diagnostic stream only; markers are logged at Info so
// they also reach log files. A nil counter accepts and ignores every call.
type ProgressCounter struct {
	label  string
	tick   int64
	mark   int64
	count  int64
	dots   io.Writer
	dirty  bool
	logger *slog.Logger
}

// NewProgressCounter constructs a counter. Non-positive thresholds fall back to
// the defaults. dots may be nil to suppress dot output entirely.
func NewProgressCounter(label string, tick, mark int64, dots io.Writer, logger *slog.Logger) *ProgressCounter {
	if tick <= 0 {
		tick = DefaultProgressTick
	}
	if mark <= 0 {
		mark = DefaultProgressMark
	}
	if logger == nil {
		logger = NewNop()
	}
	return &ProgressCounter{label: label, tick: tick, mark: mark, dots: dots, logger: logger}
}

// TerminalWriter returns w when it is a terminal and nil otherwise, so dot
// output never lands in redirected files.
func TerminalWriter(w io.Writer) io.Writer {
	file, ok := w.(*os.File)
	if !ok {
		return nil
	}
	fd := file.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return w
	}
	return nil
}

// Add records n more units of work.
func (p *ProgressCounter) Add(n int64) {
	if p == nil || n <= 0 {
		return
	}
	prev := p.count
	p.count += n

	if p.dots != nil {
		for i := prev/p.tick + 1; i <= p.count/p.tick; i++ {
			_, _ = io.WriteString(p.dots, ".")
			p.dirty = true
		}
	}
	if p.count/p.mark > prev/p.mark {
		p.endLine()
		p.logger.Info(p.label+" progress", Int64("count", p.count))
	}
}

// Count returns the number of units recorded so far.
func (p *ProgressCounter) Count() int64 {
	if p == nil {
		return 0
	}
	return p.count
}

// Finish terminates a pending line of dots.
func (p *ProgressCounter) Finish() {
	if p == nil {
		return
	}
	p.endLine()
}

func (p *ProgressCounter) endLine() {
	if p.dirty && p.dots != nil {
		_, _ = io.WriteString(p.dots, "\n")
	}
	p.dirty = false
}
