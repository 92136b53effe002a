// Package sink routes built census records into per-tier record and hash
// streams.
//
// A Sink owns every handle it opens: the three tier locks and 3 × (1 + K)
// stream writers, where K is the number of configured hash kinds. Open
// releases whatever it already acquired when a later step fails, and Close
// releases everything exactly once.
package sink
