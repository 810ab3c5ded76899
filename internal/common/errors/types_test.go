package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		want     string
	}{
		{
			name: "basic error",
			appError: &AppError{
				Type:    ErrTypeConfig,
				Message: "configuration is invalid",
			},
			want: "config: configuration is invalid",
		},
		{
			name: "error with code",
			appError: &AppError{
				Type:    ErrTypeValidation,
				Message: "too many samples",
				Code:    CodeLimitExceeded,
			},
			want: "validation: too many samples: code=limit_exceeded",
		},
		{
			name: "error with cause",
			appError: &AppError{
				Type:    ErrTypeExecution,
				Message: "operator failed",
				Cause:   errors.New("singular matrix"),
			},
			want: "execution: operator failed: cause=singular matrix",
		},
		{
			name: "error with context sorted by key",
			appError: &AppError{
				Type:    ErrTypeValidation,
				Message: "ragged matrix",
				Context: map[string]interface{}{
					"row":      3,
					"expected": 10,
				},
			},
			want: "validation: ragged matrix: context={expected=10, row=3}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.appError.Error())
		})
	}
}

func TestAppError_Builders(t *testing.T) {
	err := ValidationError("bad input")
	same := err.WithContext("field", "data").WithCode(CodeInvalidParams)

	assert.Same(t, err, same)
	assert.Equal(t, "data", err.Context["field"])
	assert.Equal(t, CodeInvalidParams, err.Code)
}

func TestConstructors(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name    string
		err     *AppError
		errType ErrorType
		message string
		cause   error
	}{
		{"validation", ValidationError("x"), ErrTypeValidation, "x", nil},
		{"validationf", ValidationErrorf("row %d", 2), ErrTypeValidation, "row 2", nil},
		{"config", ConfigError("x"), ErrTypeConfig, "x", nil},
		{"not found", NotFoundError("operator Foo"), ErrTypeNotFound, "operator Foo not found", nil},
		{"execution", ExecutionError("x", cause), ErrTypeExecution, "x", cause},
		{"numerical", NumericalError("zero variance"), ErrTypeNumerical, "zero variance", nil},
		{"connection", ConnectionError("x", cause), ErrTypeConnection, "x", cause},
		{"internal", InternalError("x", cause), ErrTypeInternal, "x", cause},
		{"timeout", TimeoutError("step s1", cause), ErrTypeTimeout, "timeout during step s1", cause},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.errType, tt.err.Type)
			assert.Equal(t, tt.message, tt.err.Message)
			assert.Equal(t, tt.cause, tt.err.Cause)
		})
	}
}

func TestLimitExceededError(t *testing.T) {
	err := LimitExceededError("sample count", 20001, 10000)

	assert.Equal(t, ErrTypeValidation, err.Type)
	assert.Equal(t, CodeLimitExceeded, err.Code)
	assert.Equal(t, "sample count 20001 exceeds limit 10000", err.Message)
	assert.Equal(t, 10000, err.Context["limit"])
}

func TestIsTypeAndGetType(t *testing.T) {
	wrapped := fmt.Errorf("resolve: %w", NotFoundError("operator"))

	assert.True(t, IsType(wrapped, ErrTypeNotFound))
	assert.False(t, IsType(wrapped, ErrTypeValidation))
	assert.False(t, IsType(errors.New("plain"), ErrTypeInternal))
	assert.False(t, IsType(nil, ErrTypeInternal))

	assert.Equal(t, ErrTypeNotFound, GetType(wrapped))
	assert.Equal(t, ErrTypeInternal, GetType(errors.New("plain")))
	assert.Equal(t, ErrorType(""), GetType(nil))
}

func TestErrorChaining(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := InternalError("wrapped error", originalErr)

	assert.True(t, errors.Is(wrappedErr, originalErr))

	appErr, ok := As(fmt.Errorf("outer: %w", wrappedErr))
	require.True(t, ok)
	assert.Equal(t, ErrTypeInternal, appErr.Type)
}
