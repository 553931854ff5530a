package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// consoleHandler writes one line per record:
//
//	<ts> <LEVEL> [component] stage run=<id8> series=<id> – message key=value ...
//
// Component, stage, run and series are lifted into the header so a
// materialize log can be grepped by series without parsing key/value pairs.
type consoleHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     *slog.LevelVar
	addSource bool
	prefix    string
	preset    []field
}

type field struct {
	key   string
	value slog.Value
}

type header struct {
	component string
	stage     string
	runID     string
	series    string
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	fields := make([]field, 0, len(h.preset)+record.NumAttrs())
	fields = append(fields, h.preset...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendField(fields, h.prefix, attr)
		return true
	})

	var hdr header
	rest := fields[:0:0]
	for _, f := range fields {
		if hdr.take(f) {
			continue
		}
		rest = upsert(rest, f)
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var buf bytes.Buffer
	buf.WriteString(ts.UTC().Format(time.RFC3339))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(record.Level))
	hdr.write(&buf)
	buf.WriteString(" – ")
	if record.Message != "" {
		buf.WriteString(record.Message)
	} else {
		buf.WriteString("(no message)")
	}
	if h.addSource {
		if src := record.Source(); src != nil {
			fmt.Fprintf(&buf, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	for _, f := range rest {
		buf.WriteByte(' ')
		buf.WriteString(f.key)
		buf.WriteByte('=')
		appendValue(&buf, f.value)
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.preset = make([]field, 0, len(h.preset)+len(attrs))
	clone.preset = append(clone.preset, h.preset...)
	for _, attr := range attrs {
		clone.preset = appendField(clone.preset, h.prefix, attr)
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

// take consumes f when it is one of the header keys. The first value wins so
// a component set at construction is not replaced by a nested logger.
func (hdr *header) take(f field) bool {
	var slot *string
	switch f.key {
	case FieldComponent:
		slot = &hdr.component
	case FieldStage:
		slot = &hdr.stage
	case FieldRunID:
		slot = &hdr.runID
	case FieldSeries:
		slot = &hdr.series
	default:
		return false
	}
	if *slot == "" {
		*slot = valueString(f.value)
	}
	return true
}

func (hdr header) write(buf *bytes.Buffer) {
	if hdr.component != "" {
		buf.WriteString(" [")
		buf.WriteString(hdr.component)
		buf.WriteByte(']')
	}
	if hdr.stage != "" {
		buf.WriteByte(' ')
		buf.WriteString(hdr.stage)
	}
	if hdr.runID != "" {
		id := hdr.runID
		if len(id) > 8 {
			id = id[:8]
		}
		buf.WriteString(" run=")
		buf.WriteString(id)
	}
	if hdr.series != "" {
		buf.WriteString(" series=")
		buf.WriteString(hdr.series)
	}
}

func appendField(dst []field, prefix string, attr slog.Attr) []field {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = prefix + attr.Key + "."
		}
		for _, member := range value.Group() {
			dst = appendField(dst, next, member)
		}
		return dst
	}
	if attr.Key == "" {
		return dst
	}
	return append(dst, field{key: prefix + attr.Key, value: value})
}

// upsert keeps the first position of a key and the last value written to it.
func upsert(fields []field, f field) []field {
	for i := range fields {
		if fields[i].key == f.key {
			fields[i].value = f.value
			return fields
		}
	}
	return append(fields, f)
}

func appendValue(buf *bytes.Buffer, v slog.Value) {
	switch v.Kind() {
	case slog.KindBool:
		buf.WriteString(strconv.FormatBool(v.Bool()))
	case slog.KindInt64:
		buf.WriteString(strconv.FormatInt(v.Int64(), 10))
	case slog.KindUint64:
		buf.WriteString(strconv.FormatUint(v.Uint64(), 10))
	case slog.KindFloat64:
		buf.WriteString(strconv.FormatFloat(v.Float64(), 'f', -1, 64))
	case slog.KindDuration:
		buf.WriteString(v.Duration().String())
	case slog.KindTime:
		buf.WriteString(v.Time().UTC().Format(time.RFC3339))
	default:
		s := valueString(v)
		if needsQuotes(s) {
			s = strconv.Quote(s)
		}
		buf.WriteString(s)
	}
}

func valueString(v slog.Value) string {
	if v.Kind() == slog.KindAny {
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	}
	return v.String()
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
