// Package main hosts the bidsify CLI entrypoint and command graph.
//
// The Cobra command tree exposes the two independent stages, scan and
// materialize, plus preflight checks, run history, and configuration
// scaffolding. It centralizes configuration resolution, flag overrides, and
// structured logging setup so subcommands only translate flags into calls on
// the internal packages and render the results.
package main
