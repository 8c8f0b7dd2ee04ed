package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := AlreadyExists("a book with this title and author already exists")

	assert.True(t, Is(err, ErrAlreadyExists))
	assert.False(t, Is(err, ErrValidation))

	wrapped := fmt.Errorf("add book: %w", err)
	assert.True(t, Is(wrapped, ErrAlreadyExists))
}

func TestStoreFailure_KeepsCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := StoreFailure(cause)

	assert.Equal(t, "save failed: disk full", err.Error())
	assert.ErrorIs(t, err, ErrStoreFailure)
	assert.Equal(t, cause, Unwrap(err))
}

func TestCode_HTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeNotFound:      http.StatusNotFound,
		CodeAlreadyExists: http.StatusConflict,
		CodeConflict:      http.StatusConflict,
		CodeValidation:    http.StatusBadRequest,
		CodeUnauthorized:  http.StatusUnauthorized,
		CodeTokenExpired:  http.StatusUnauthorized,
		CodeForbidden:     http.StatusForbidden,
		CodeStoreFailure:  http.StatusServiceUnavailable,
		CodeInternal:      http.StatusInternalServerError,
		Code("UNKNOWN"):   http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, code.HTTPStatus(), code)
	}
}

func TestError_WithDetails(t *testing.T) {
	base := Validation("invalid input")
	detailed := base.WithDetails(map[string]string{"title": "is required"})

	require.NotNil(t, detailed.Details)
	assert.Nil(t, base.Details)
	assert.True(t, Is(detailed, ErrValidation))
}
