// Package fileutil holds the file transfer primitives used to materialize a
// dataset: streaming copies (optionally hash-verified), hard links, and
// relative symbolic links.
package fileutil
