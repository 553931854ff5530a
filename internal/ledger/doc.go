// Package ledger records materialize runs in a local SQLite database.
//
// Each run is stored with its per-transfer outcomes in a single transaction.
// The schema is applied from embedded, numbered SQL migrations; the applied
// version is kept in the database user_version field.
package ledger
