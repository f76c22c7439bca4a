package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCode(t *testing.T) {
	tests := []struct {
		code   int
		status int
	}{
		{Success, http.StatusOK},
		{ErrInvalidParams, http.StatusBadRequest},
		{ErrCatalogFileNotFound, http.StatusNotFound},
		{ErrCatalogStorageFailed, http.StatusInternalServerError},
		{ErrCatalogFileTooLarge, http.StatusRequestEntityTooLarge},
		{99999, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.status, GetHTTPStatus(tt.code))
		})
	}
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrInternalServer))

	cause := stderrors.New("disk on fire")
	wrapped := Wrap(cause, ErrCatalogStorageFailed)
	require.NotNil(t, wrapped)
	assert.Equal(t, ErrCatalogStorageFailed, wrapped.Code)
	assert.ErrorIs(t, wrapped, cause)
	assert.Empty(t, GetDetails(wrapped))

	t.Run("existing app error keeps code", func(t *testing.T) {
		orig := New(ErrCatalogFileNotFound, "a")
		again := Wrap(fmt.Errorf("ctx: %w", orig), ErrInternalServer, "b")
		assert.Equal(t, ErrCatalogFileNotFound, again.Code)
		assert.Equal(t, "b", again.Details)
		assert.Equal(t, "a", orig.Details)
	})
}

func TestExtractCode(t *testing.T) {
	assert.Equal(t, ErrInternalServer, ExtractCode(stderrors.New("plain")))
	assert.Equal(t, ErrInvalidParams, ExtractCode(NewValidationError("year")))
	assert.True(t, Is(fmt.Errorf("x: %w", New(ErrConflict)), ErrConflict))
	assert.False(t, Is(stderrors.New("x"), ErrConflict))
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("category")
	assert.Contains(t, err.Details, "category")
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus())
	assert.Equal(t, "Invalid parameters: validation failed for field: category", FormatError(err.Code, err.Details))
}
