// Package main hosts the census CLI entrypoint and command graph.
//
// The Cobra-based command tree resolves configuration and logging once, then
// hands off to the internal packages: harvest fetches item metadata into
// tiered streams, reconcile merges or repairs hash streams, missing reports
// ids a piece never produced, and preflight checks the environment.
package main
