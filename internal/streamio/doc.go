// Package streamio opens and creates the line-oriented record and hash
// streams, with optional gzip or zstd compression chosen by file suffix.
//
// Writers buffer whole lines and only hand complete lines to the
// underlying file, so an interrupted run never leaves a torn line behind.
package streamio
