// Package logging assembles the slog loggers used by bidsify commands.
//
// Console output goes to the command's stderr in either a one-line text form
// or JSON. The text form lifts component, stage, run and series into a fixed
// header. When a log directory is configured every record is also appended
// as JSON to bidsify.log there, independent of the console format.
//
// Context helpers tag records with the run identifier and stage so scan and
// materialize output can be filtered per run.
package logging
