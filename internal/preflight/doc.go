// Package preflight provides readiness checks for the filesystem paths a
// bidsify run depends on.
//
// These checks run in two contexts:
//   - materialize calls RunAll before planning so an unreadable source or
//     unwritable destination fails fast with a clear message.
//   - The CLI "bidsify check" command renders every result as a table.
//
// Optional inputs (events directory, history ledger) are only checked when
// configured.
package preflight
