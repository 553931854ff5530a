package errs_test

import (
	"errors"
	"strings"
	"testing"

	"bidsify/internal/errs"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := errs.Wrap(errs.ErrTransfer, "materialize", "link", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, errs.ErrTransfer) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"materialize", "link", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := errs.Wrap(errs.ErrMissingFile, "", "", "", nil)
	if !errors.Is(err, errs.ErrMissingFile) {
		t.Fatalf("expected missing file marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "stage failure") {
		t.Fatalf("expected default detail, got %q", err.Error())
	}
}

func TestWrapNilMarkerDefaultsToTransfer(t *testing.T) {
	err := errs.Wrap(nil, "materialize", "copy", "", errors.New("io"))
	if !errors.Is(err, errs.ErrTransfer) {
		t.Fatalf("expected transfer marker, got %v", err)
	}
}

func TestFatalClassification(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errs.Wrap(errs.ErrMalformedMapping, "mapping", "load", "bad yaml", nil), true},
		{errs.Wrap(errs.ErrConfiguration, "config", "", "bad method", nil), true},
		{errs.Wrap(errs.ErrLocked, "materialize", "lock", "", nil), true},
		{errs.Wrap(errs.ErrMissingFile, "materialize", "resolve", "", nil), false},
		{errs.Wrap(errs.ErrTransfer, "materialize", "link", "", errors.New("exdev")), false},
	}
	for _, tc := range cases {
		if got := errs.Fatal(tc.err); got != tc.want {
			t.Fatalf("Fatal(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
