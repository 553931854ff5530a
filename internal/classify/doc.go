// Package classify assigns discovered series to BIDS categories.
//
// Identifiers are run through an ordered rule table where the first matching
// rule decides the outcome. Functional runs are numbered, and single-band
// references associated, by a stateful fold over the naturally sorted
// sequence. The result is a mapping.Document plus one Decision per series for
// human review.
package classify
