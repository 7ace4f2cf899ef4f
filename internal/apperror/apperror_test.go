package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindStatus(t *testing.T) {
	tests := []struct {
		err    *Error
		status int
	}{
		{Unauthenticated("x"), http.StatusUnauthorized},
		{Forbidden("x"), http.StatusForbidden},
		{NotFound("x"), http.StatusNotFound},
		{BadRequest("x"), http.StatusBadRequest},
		{Unavailable("x"), http.StatusServiceUnavailable},
		{Internal("x", errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Kind.Status())
		})
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("handler: %w", Forbidden("not the author"))
	assert.Equal(t, KindForbidden, KindOf(err))
	assert.True(t, Is(err, KindForbidden))
	assert.False(t, Is(nil, KindForbidden))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestInternalUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("update story", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}
