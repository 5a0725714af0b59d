package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"explicit status wins", Newf(ErrInvalidInput, http.StatusRequestEntityTooLarge, "too many"), http.StatusRequestEntityTooLarge},
		{"zero status defers", Newf(ErrInvalidInput, 0, "line %d", 3), http.StatusBadRequest},
		{"invalid query", fmt.Errorf("parse: %w", ErrInvalidQuery), http.StatusBadRequest},
		{"unknown chromosome", ErrUnknownChromosome, http.StatusBadRequest},
		{"annotator", fmt.Errorf("lookup: %w", ErrAnnotator), http.StatusBadGateway},
		{"not found", ErrNotFound, http.StatusNotFound},
		{"timeout", ErrTimeout, http.StatusGatewayTimeout},
		{"unavailable", ErrUnavailable, http.StatusServiceUnavailable},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatusCode(tc.err))
		})
	}
}

func TestFatalAndExitCode(t *testing.T) {
	assert.True(t, Fatal(fmt.Errorf("load: %w", ErrCorruptDatabase)))
	assert.True(t, Fatal(fmt.Errorf("load: %w", ErrConfig)))
	assert.False(t, Fatal(fmt.Errorf("lookup: %w", ErrAnnotator)))

	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 2, ExitCode(fmt.Errorf("x: %w", ErrUnknownChromosome)))
	assert.Equal(t, 1, ExitCode(fmt.Errorf("boom")))
}

func TestAppError(t *testing.T) {
	err := Newf(ErrInvalidInput, http.StatusBadRequest, "line %d", 3)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "invalid input: line 3", err.Error())
	assert.Equal(t, "invalid input", (&AppError{Err: ErrInvalidInput}).Error())
}

func TestCode(t *testing.T) {
	nested := fmt.Errorf("%w: %w", ErrAnnotator, ErrTimeout)
	assert.Equal(t, "timeout", Code(nested))
	assert.Equal(t, "annotator_failed", Code(fmt.Errorf("v: %w", ErrAnnotator)))
	assert.Equal(t, "invalid_input", Code(Newf(ErrInvalidInput, 0, "x")))
	assert.Equal(t, "internal", Code(fmt.Errorf("boom")))
}
