package core

import (
	"fmt"

	"spectral-workbench/internal/common/errors"
	"spectral-workbench/internal/common/validation"
)

// ValidateSteps checks each step's fields and that step IDs are unique.
// maxSteps <= 0 disables the count limit.
func ValidateSteps(steps []StepDefinition, maxSteps int) error {
	if maxSteps > 0 && len(steps) > maxSteps {
		return errors.LimitExceededError("step count", len(steps), maxSteps)
	}

	seen := make(map[string]bool, len(steps))
	for i := range steps {
		step := &steps[i]
		if err := validation.ValidateStruct(step); err != nil {
			return errors.ValidationError(fmt.Sprintf("step %d: %s", i, err.Error()))
		}
		if seen[step.ID] {
			return errors.ValidationErrorf("duplicate step ID: %s", step.ID)
		}
		seen[step.ID] = true
	}

	return nil
}
