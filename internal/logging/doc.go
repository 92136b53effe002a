// Package logging assembles the structured slog loggers used by the harvest
// and reconcile commands.
//
// It owns the console and JSON handlers, level parsing, and output fan-out to
// stdout/stderr plus an optional log file. Components tag their lines with
// NewComponentLogger; operational warnings go through WarnWithContext so every
// warning carries an event type, a hint, and the impact on the run.
//
// ProgressCounter provides the lightweight progress ticks that long
// reconciliation passes print to the diagnostic stream.
package logging
