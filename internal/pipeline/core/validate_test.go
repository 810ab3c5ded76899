package core

import (
	"testing"

	"spectral-workbench/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSteps(t *testing.T) {
	tests := []struct {
		name     string
		steps    []StepDefinition
		contains string
	}{
		{
			name:     "missing id",
			steps:    []StepDefinition{{Type: "transform", Name: "SNV"}},
			contains: "'id' is required",
		},
		{
			name:     "bad type",
			steps:    []StepDefinition{{ID: "a", Type: "model", Name: "PLS"}},
			contains: "'transform' or 'split'",
		},
		{
			name:     "missing name",
			steps:    []StepDefinition{{ID: "a", Type: "transform"}},
			contains: "'name' is required",
		},
		{
			name: "duplicate id",
			steps: []StepDefinition{
				{ID: "a", Type: "transform", Name: "SNV"},
				{ID: "a", Type: "transform", Name: "MSC"},
			},
			contains: "duplicate step ID: a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSteps(tt.steps, 0)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestValidateSteps_Limit(t *testing.T) {
	steps := []StepDefinition{
		{ID: "a", Type: "transform", Name: "SNV"},
		{ID: "b", Type: "transform", Name: "MSC"},
	}
	require.NoError(t, ValidateSteps(steps, 2))

	err := ValidateSteps(steps, 1)
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeLimitExceeded, appErr.Code)
}
