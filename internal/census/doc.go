/*
Package census turns decoded item metadata into persisted census records.

An Item is one archived unit of content: its id, a handful of flags copied
from the metadata API, and the ordered list of retained (non-derivative)
files. Records are serialized one per line as compact JSON in a fixed field
order so the stored data mirrors construction order and stays diffable:

	id, no_dir, is_dark, files, total_size, some_private, nodownload,
	collection, publicdate, noindex, metadata_identifier, dir

Each retained file may also produce one HashLine per hash kind. Hash lines
are tab separated (id, component-encoded filename, hash value) and must
follow the record's file order exactly; reconciliation aligns them by
position, never by lookup.

Every Item lands in exactly one Tier. Classify is a pure function of the
item's flags and file list.

Builder is synchronous and holds no state between items. Fetching payloads,
ordering writes, and concurrency belong to the caller.
*/
package census
