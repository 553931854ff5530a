// Package errs defines the error markers shared by the scan and materialize
// stages.
//
// Stage code wraps failures with Wrap so callers can classify them with
// errors.Is while the message still names the stage and operation that
// failed. Per-entry materialization failures carry ErrMissingFile or
// ErrTransfer and are collected rather than returned; ErrMalformedMapping and
// ErrConfiguration abort a run before any file is touched.
package errs
