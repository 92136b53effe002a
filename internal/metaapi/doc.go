// Package metaapi fetches item metadata payloads from the archive metadata
// API. It performs no retries: a non-200 response is reported back to the
// caller, which drops the item.
package metaapi
