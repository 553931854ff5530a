// Package textutil provides string helpers shared by the scanner, classifier,
// and path builder.
//
// The primary use cases are:
//   - Natural (numeric-aware) ordering of series identifiers
//   - Unicode case folding for case-insensitive marker matching
//   - Reducing task and subject names to BIDS labels
package textutil
