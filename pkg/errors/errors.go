// Package errors holds the error classes shared by the loaders, the filter
// pipeline and the outer shells, and maps them to exit codes, HTTP statuses
// and stable API codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrConfig            = errors.New("configuration error")
	ErrCorruptDatabase   = errors.New("corrupt database file")
	ErrUnknownChromosome = errors.New("unknown chromosome")
	ErrInvalidQuery      = errors.New("invalid query specification")
	ErrAnnotator         = errors.New("annotation lookup failed")
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrTimeout           = errors.New("operation timed out")
	ErrUnavailable       = errors.New("service unavailable")
)

// AppError attaches a caller-facing message and an explicit HTTP status to
// one of the sentinels.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Newf builds an AppError. A zero status defers to HTTPStatusCode of the
// sentinel.
func Newf(sentinel error, status int, format string, args ...any) *AppError {
	return &AppError{Err: sentinel, Message: fmt.Sprintf(format, args...), StatusCode: status}
}

// Fatal reports whether err must abort session start: configuration
// problems, structurally corrupt snapshots and binary records naming a
// chromosome outside the catalog.
func Fatal(err error) bool {
	return errors.Is(err, ErrConfig) || errors.Is(err, ErrCorruptDatabase) || errors.Is(err, ErrUnknownChromosome)
}

// ExitCode is the process status of the command-line tools for err.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case Fatal(err):
		return 2
	default:
		return 1
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidQuery), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnknownChromosome):
		return http.StatusBadRequest
	case errors.Is(err, ErrAnnotator):
		return http.StatusBadGateway
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var codes = []struct {
	err  error
	code string
}{
	{ErrUnknownChromosome, "unknown_chromosome"},
	{ErrInvalidQuery, "invalid_query"},
	{ErrInvalidInput, "invalid_input"},
	{ErrTimeout, "timeout"},
	{ErrUnavailable, "unavailable"},
	{ErrAnnotator, "annotator_failed"},
	{ErrNotFound, "not_found"},
	{ErrCorruptDatabase, "corrupt_database"},
	{ErrConfig, "config"},
}

// Code returns the stable machine-readable code of err for API bodies. The
// most specific class wins, e.g. a timeout inside an annotator failure is
// "timeout".
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}
