// Package reconcile merges externally computed hash streams into census
// record streams.
//
// Records and hash lines are aligned by position: for each record, every
// leading hash line carrying the record's id is paired with the record's
// files in order, independently per hash kind. Copy mode writes the hash
// values into rewritten records. Repair mode rewrites hash streams whose
// filenames differ from the record only by the encoding of embedded line
// breaks. Any other disagreement aborts the pass before the offending item
// is written.
package reconcile
