package common

import (
	"errors"
	"fmt"
)

// AppError carries a stable machine-readable code alongside the message so
// the status endpoint can always surface a typed error string to the client.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error taxonomy. These are the only failure classes surfaced to clients.
var (
	ErrExtractionFailed     = errors.New("all extraction strategies exhausted")
	ErrEngineUnavailable    = errors.New("ocr engine unavailable")
	ErrUnsupportedFormat    = errors.New("unsupported document format")
	ErrTimeout              = errors.New("job timed out")
	ErrCancelled            = errors.New("job cancelled")
	ErrMalformedDocument    = errors.New("malformed document")
	ErrNotFound             = errors.New("resource not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInternal             = errors.New("internal error")
)

// Stable error codes matching the taxonomy above.
const (
	CodeExtractionFailed  = "EXTRACTION_FAILED"
	CodeEngineUnavailable = "OCR_ENGINE_UNAVAILABLE"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeTimeout           = "TIMEOUT"
	CodeCancelled         = "CANCELLED"
	CodeMalformed         = "MALFORMED_DOCUMENT"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeInternal          = "INTERNAL"
)

func NewAppError(code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// ErrorCode maps an error to its stable code for the wire. Unknown errors
// collapse to INTERNAL rather than leaking internals.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var app *AppError
	if errors.As(err, &app) {
		return app.Code
	}
	switch {
	case errors.Is(err, ErrExtractionFailed):
		return CodeExtractionFailed
	case errors.Is(err, ErrEngineUnavailable):
		return CodeEngineUnavailable
	case errors.Is(err, ErrUnsupportedFormat):
		return CodeUnsupportedFormat
	case errors.Is(err, ErrTimeout):
		return CodeTimeout
	case errors.Is(err, ErrCancelled):
		return CodeCancelled
	case errors.Is(err, ErrMalformedDocument):
		return CodeMalformed
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	}
	return CodeInternal
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
