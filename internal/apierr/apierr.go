// Package apierr translates internal errors into a stable,
// caller-facing shape: a code, the offending field (when known), and a
// message. The service façade never lets a raw internal error escape —
// every return path goes through Translate.
package apierr

import (
	"context"
	"errors"
	"fmt"

	"github.com/SpillwaveSolutions/agent-memory/internal/index/vector"
	"github.com/SpillwaveSolutions/agent-memory/internal/storage"
	"github.com/SpillwaveSolutions/agent-memory/internal/toc"
	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

// Code is a stable error category, independent of any particular wire
// protocol's status codes.
type Code string

const (
	CodeValidation Code = "Validation"
	CodeNotFound   Code = "NotFound"
	CodeInternal   Code = "Internal"
	CodeTransient  Code = "Transient"
	CodeCapacity   Code = "Capacity"
	CodeCancelled  Code = "Cancelled"
)

// Error is the translated, caller-facing error shape.
type Error struct {
	Code    Code
	Field   string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Translate maps any error returned by a core package into an *Error.
// nil in, nil out. The taxonomy:
//   - types.FieldError          -> Validation (names the field)
//   - storage.ErrKeyNotFound,
//     toc.ErrNotFound           -> NotFound
//   - vector.ErrDimensionMismatch -> Validation
//   - context.Canceled          -> Cancelled
//   - anything else             -> Internal
func Translate(err error) *Error {
	if err == nil {
		return nil
	}

	var fieldErr *types.FieldError
	if errors.As(err, &fieldErr) {
		return &Error{Code: CodeValidation, Field: fieldErr.Field, Message: fieldErr.Err.Error(), cause: err}
	}

	switch {
	case errors.Is(err, storage.ErrKeyNotFound), errors.Is(err, toc.ErrNotFound):
		return &Error{Code: CodeNotFound, Message: "not found", cause: err}
	case errors.Is(err, vector.ErrDimensionMismatch):
		return &Error{Code: CodeValidation, Field: "embedding", Message: err.Error(), cause: err}
	case errors.Is(err, context.Canceled):
		return &Error{Code: CodeCancelled, Message: "cancelled", cause: err}
	default:
		return &Error{Code: CodeInternal, Message: err.Error(), cause: err}
	}
}
