package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppErrorUnwraps(t *testing.T) {
	t.Parallel()

	err := NewAppError(CodeTimeout, "exceeded ceiling", ErrTimeout)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("AppError must unwrap to its cause: %v", err)
	}
	var app *AppError
	if !errors.As(err, &app) || app.Code != CodeTimeout {
		t.Fatalf("errors.As lost the code: %v", err)
	}
}

func TestErrorCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want string
	}{
		{NewAppError(CodeCancelled, "cancelled", ErrCancelled), CodeCancelled},
		{fmt.Errorf("wrapped: %w", ErrExtractionFailed), CodeExtractionFailed},
		{fmt.Errorf("wrapped: %w", ErrEngineUnavailable), CodeEngineUnavailable},
		{fmt.Errorf("wrapped: %w", ErrMalformedDocument), CodeMalformed},
		{fmt.Errorf("wrapped: %w", ErrNotFound), CodeNotFound},
		{errors.New("something else"), CodeInternal},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := ErrorCode(tc.err); got != tc.want {
			t.Fatalf("ErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
