package core

import (
	"spectral-workbench/internal/pipeline/operators"
)

// StepDefinition represents a single preview step from the request JSON
type StepDefinition struct {
	ID      string           `json:"id" validate:"required"`
	Type    operators.Kind   `json:"type" validate:"required,step_type"`
	Name    string           `json:"name" validate:"required"`
	Params  operators.Params `json:"params,omitempty"`
	Enabled *bool            `json:"enabled,omitempty"`
}

// IsEnabled reports whether the step runs. Omitted means enabled.
func (s *StepDefinition) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Shape is a matrix shape as [samples, features].
type Shape [2]int

// TraceEntry records the outcome of one enabled step
type TraceEntry struct {
	StepID      string         `json:"step_id"`
	Name        string         `json:"name"`
	Type        operators.Kind `json:"type"`
	DurationMs  float64        `json:"duration_ms"`
	Success     bool           `json:"success"`
	Error       string         `json:"error,omitempty"`
	OutputShape *Shape         `json:"output_shape,omitempty"`
}
