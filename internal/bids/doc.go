// Package bids builds and parses BIDS destination paths.
//
// Every function here is pure: paths are derived only from the subject,
// session, and mapping leaf passed in.
package bids
