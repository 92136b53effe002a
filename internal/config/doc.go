// Package config loads, normalizes, and validates census configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours the CENSUS_API_BASE_URL environment fallback. Always
// obtain settings through Load so downstream code receives absolute paths,
// canonical hash kind and compression names, and clear validation errors.
package config
