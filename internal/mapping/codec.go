package mapping

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"bidsify/internal/errs"
)

// Format names a mapping document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatForPath picks the encoding from a file extension: .yaml, .yml and
// extension-less paths are YAML, everything else is JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case "", ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ParseFormat validates a user-supplied format name.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported mapping format %q (want yaml or json)", value)
	}
}

// Load reads and validates a mapping document. Any decode or validation
// failure is reported as errs.ErrMalformedMapping.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrMalformedMapping, "mapping", "read", path, err)
	}
	doc, err := Decode(data, FormatForPath(path))
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Decode parses data in the given format, rejecting unknown keys.
func Decode(data []byte, format Format) (*Document, error) {
	doc := New()
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(doc); err != nil {
			return nil, errs.Wrap(errs.ErrMalformedMapping, "mapping", "decode json", "", err)
		}
	default:
		if len(bytes.TrimSpace(data)) == 0 {
			return doc, nil
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, errs.Wrap(errs.ErrMalformedMapping, "mapping", "decode yaml", "", err)
		}
	}
	return doc, nil
}

// Encode writes doc to w. Map keys are emitted in sorted order by both
// encoders so output is stable between runs.
func Encode(w io.Writer, format Format, doc *Document) error {
	if doc == nil {
		doc = New()
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	default:
		if doc.Empty() {
			_, err := io.WriteString(w, "{}\n")
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
}

// Marshal returns the encoded document.
func Marshal(format Format, doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, format, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes doc to path, choosing the encoding from the extension.
func Save(path string, doc *Document) error {
	data, err := Marshal(FormatForPath(path), doc)
	if err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create mapping directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write mapping: %w", err)
	}
	return nil
}
