package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormatIncludesHint(t *testing.T) {
	err := SessionNotFound("abc-123")

	msg := err.Error()
	if !strings.Contains(msg, "abc-123") {
		t.Errorf("expected session id in message, got %q", msg)
	}
	if !strings.Contains(msg, "Hint:") {
		t.Errorf("expected hint in message, got %q", msg)
	}
	if err.Code != CodeSessionNotFound {
		t.Errorf("expected code %q, got %q", CodeSessionNotFound, err.Code)
	}
}

func TestErrorCodes(t *testing.T) {
	cause := fmt.Errorf("boom")
	tests := []struct {
		name string
		err  *DebugError
		code ErrorCode
	}{
		{"malformed group", MalformedGroupSequence("End group"), CodeMalformedGroupSequence},
		{"stale reference", StaleContainerReference(7, 1, 2), CodeStaleContainerReference},
		{"request failed", AdapterRequestFailed("variables", cause), CodeAdapterRequestFailed},
		{"patch target", UnresolvedPatchTarget(2, "variable1"), CodeUnresolvedPatchTarget},
		{"frame not loaded", FrameNotLoaded(5), CodeFrameNotLoaded},
		{"evaluation failed", EvaluationFailed("$x = 1", cause), CodeEvaluationFailed},
		{"session terminated", SessionTerminated("id"), CodeSessionTerminated},
		{"permission denied", PermissionDenied("spawn", "readonly"), CodePermissionDenied},
		{"missing parameter", MissingParameter("sessionId", "provide it"), CodeMissingParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("expected code %q, got %q", tt.code, tt.err.Code)
			}
			if tt.err.Message == "" {
				t.Error("expected non-empty message")
			}
		})
	}
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := AdapterRequestFailed("scopes", cause)

	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if err.Unwrap() != cause {
		t.Error("expected Unwrap to return the cause")
	}
}

func TestStaleContainerReferenceDetails(t *testing.T) {
	err := StaleContainerReference(42, 3, 5)

	if err.Details["variablesReference"] != 42 {
		t.Errorf("expected ref detail 42, got %v", err.Details["variablesReference"])
	}
	if err.Details["generation"] != uint64(3) {
		t.Errorf("expected generation 3, got %v", err.Details["generation"])
	}
	if err.Details["currentGeneration"] != uint64(5) {
		t.Errorf("expected current generation 5, got %v", err.Details["currentGeneration"])
	}
}

func TestWithDetailsAndCause(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := Wrap(CodeAdapterRequestFailed, "request failed", "retry", nil).
		WithDetails("attempt", 2).
		WithCause(cause)

	if err.Details["attempt"] != 2 {
		t.Errorf("expected detail, got %v", err.Details["attempt"])
	}
	if err.Unwrap() != cause {
		t.Error("expected cause to be set")
	}
}

func TestFromError(t *testing.T) {
	original := SessionNotFound("xyz")
	wrapped := fmt.Errorf("handler: %w", original)

	got := FromError(wrapped)
	if got != original {
		t.Error("expected FromError to recover the structured error")
	}

	plain := FromError(fmt.Errorf("plain failure"))
	if plain.Code != "UNKNOWN_ERROR" {
		t.Errorf("expected UNKNOWN_ERROR code, got %q", plain.Code)
	}
	if !strings.Contains(plain.Message, "plain failure") {
		t.Errorf("expected original message preserved, got %q", plain.Message)
	}
}
