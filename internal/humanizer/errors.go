package humanizer

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidParameter is matched by every request validation failure.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrMutationFailed marks a sentence whose technique chain faulted and was restored.
	ErrMutationFailed = errors.New("sentence mutation failed")
)

// ParameterError describes a rejected request parameter.
type ParameterError struct {
	Field  string
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidParameter) hold for every ParameterError.
func (e *ParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}

// InvalidParameter builds a *ParameterError for field.
func InvalidParameter(field, format string, args ...any) error {
	return &ParameterError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ValidateIntensity rejects values outside [0, 1].
func ValidateIntensity(intensity float64) error {
	if math.IsNaN(intensity) || intensity < 0 || intensity > 1 {
		return InvalidParameter("intensity", "must be between 0 and 1, got %v", intensity)
	}
	return nil
}
