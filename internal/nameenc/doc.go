// Package nameenc owns the filename encoding shared by the record and hash
// streams.
//
// Record streams store raw filenames; hash streams store them component
// encoded. Alignment always encodes the record side with Encode and compares
// bytes. The encoding convention is versioned (Version) because any drift
// between the process that wrote a hash stream and this package turns every
// affected item into an order mismatch.
//
// Normalize and Equivalent exist only for repair-mode reconciliation, where a
// hash stream produced with a different line-break encoding is rewritten to
// the record's encoding. They are comparison helpers and never used to build
// persisted values.
package nameenc
