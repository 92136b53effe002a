// Package harvest drives a harvest run: a bounded pool of workers fetches
// item payloads concurrently, and a single consumer builds each record and
// appends it to the tiered sink in completion order.
package harvest
