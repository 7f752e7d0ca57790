package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := NotFound("playlist not found")

	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrConflict))

	wrapped := fmt.Errorf("add track: %w", err)
	assert.True(t, Is(wrapped, ErrNotFound))
}

func TestCodeHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeForbidden, http.StatusForbidden},
		{CodeUnauthenticated, http.StatusUnauthorized},
		{CodeInvalidArgument, http.StatusBadRequest},
		{CodeConflict, http.StatusConflict},
		{CodeInternal, http.StatusInternalServerError},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestInternalKeepsCause(t *testing.T) {
	cause := New("connection refused")
	err := Internal(cause, "load playlist")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "load playlist: connection refused", err.Error())
	assert.Equal(t, CodeInternal, CodeOf(err))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(New("boom")))
	assert.Equal(t, CodeConflict, CodeOf(fmt.Errorf("wrap: %w", Conflict("dup"))))
}
