package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStepError(t *testing.T) {
	cause := stderrors.New("boom")
	err := NewStepError("s1", "SNV", "transform", "", cause)

	assert.Equal(t, "boom", err.Message)
	assert.Equal(t, "step 's1' (transform SNV): boom", err.Error())
	assert.True(t, stderrors.Is(err, cause))

	anon := NewStepError("", "SNV", "transform", "failed", nil)
	assert.Equal(t, "failed", anon.Error())
}

func TestIsTimeoutAndIsPanic(t *testing.T) {
	timeout := &StepTimeoutError{StepID: "slow", Timeout: 50 * time.Millisecond}
	assert.Equal(t, "step 'slow' timed out after 50ms", timeout.Error())

	wrapped := NewStepError("slow", "X", "transform", "", fmt.Errorf("run: %w", timeout))
	assert.True(t, IsTimeout(wrapped))
	assert.False(t, IsPanic(wrapped))

	panicked := &OperatorPanicError{Operator: "X", Value: "index out of range"}
	assert.Equal(t, "operator X panicked: index out of range", panicked.Error())
	assert.True(t, IsPanic(NewStepError("p", "X", "transform", "", panicked)))
	assert.False(t, IsTimeout(panicked))
}
