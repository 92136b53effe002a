// Package preflight provides readiness checks for the filesystem paths and
// the metadata API that census depends on.
//
// The CLI "census preflight" command renders every result, and harvest runs
// RunAll before opening any stream so a doomed run fails before it
// truncates the previous output.
package preflight
