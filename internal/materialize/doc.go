// Package materialize reproduces a mapping document as a BIDS tree.
//
// A run is split into a pure planning step, which resolves every mapping leaf
// to concrete source files and destination paths without touching the
// filesystem, and an execution step that applies one transfer method to every
// planned file. Dry runs stop after planning, so the decision list of a dry
// run is identical to that of a real run on the same inputs.
//
// Per-entry problems (missing imaging files, cross-device hard links,
// permission errors) are collected in the Report and never abort the batch.
// A malformed mapping document or invalid options abort before any transfer.
package materialize
