// Package config loads, normalizes, and validates bidsify configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// BIDSIFY_LOG_LEVEL. The Config type centralizes the scan heuristics overrides
// (forced task, task renames), the transfer settings used by the materializer,
// and logging/history knobs so both commands resolve settings in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical method names, and clear validation errors.
package config
