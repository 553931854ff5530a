// Package mapping models the document that connects the scan and materialize
// stages.
//
// A Document is a flat snapshot: anatomical labels map to series lists,
// functional tasks map run labels to a bold series and an optional single-band
// reference, and fieldmap groups map components to series. Documents are
// produced wholesale by the classifier, may be edited by hand, and are consumed
// wholesale by the materializer. Load and Validate reject malformed documents
// with errs.ErrMalformedMapping so no transfer starts from an unverifiable plan.
package mapping
