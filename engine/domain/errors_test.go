package domain

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	ve := NewValidationError("area", "xyz", ErrInvalidParam)
	s := ve.Error()
	if !strings.Contains(s, "area") || !strings.Contains(s, "xyz") || !strings.Contains(s, "invalid parameter") {
		t.Fatalf("unexpected error string: %s", s)
	}
	if !errors.Is(ve, ErrInvalidParam) {
		t.Fatal("ValidationError should unwrap to its sentinel")
	}
}

func TestUpstreamError_Is(t *testing.T) {
	err := &UpstreamError{Source: "vehicles", Status: 503, Retryable: true, Err: io.ErrUnexpectedEOF}
	if !errors.Is(err, ErrUpstream) {
		t.Fatal("expected ErrUpstream")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatal("expected wrapped cause")
	}
	if !strings.Contains(err.Error(), "http 503") {
		t.Fatalf("unexpected message: %s", err)
	}
	if !IsRetryable(err) {
		t.Fatal("expected retryable")
	}
	if IsRetryable(&UpstreamError{Source: "inspections", Err: io.EOF}) {
		t.Fatal("non-retryable upstream error reported retryable")
	}
	if IsRetryable(errors.New("x")) {
		t.Fatal("plain error should not be retryable")
	}
}
