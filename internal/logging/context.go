package logging

import (
	"context"
	"log/slog"
)

// Structured field keys shared by every component.
const (
	FieldComponent    = "component"
	FieldRunID        = "run_id"
	FieldStage        = "stage" // scan or materialize
	FieldSeries       = "series"
	FieldEventType    = "event_type"
	FieldImpact       = "impact" // user-facing consequence of a warning
	FieldDecisionType = "decision_type"
)

type contextKey int

const (
	runIDKey contextKey = iota
	stageKey
)

// WithRunID annotates ctx with the materialize run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// WithStage annotates ctx with the command stage.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// WithContext returns logger with run_id and stage taken from ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	var args []any
	if id, ok := ctx.Value(runIDKey).(string); ok {
		args = append(args, String(FieldRunID, id))
	}
	if stage, ok := ctx.Value(stageKey).(string); ok {
		args = append(args, String(FieldStage, stage))
	}
	if len(args) == 0 {
		return logger
	}
	return logger.With(args...)
}
