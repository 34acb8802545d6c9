package genstudio

import (
	"errors"
	"fmt"
)

// Validation errors
var (
	ErrEmptyPrompt     = errors.New("prompt cannot be empty")
	ErrUnknownKind     = errors.New("unknown generation kind")
	ErrValueOutOfRange = errors.New("value out of range")
)

// ValidatePrompt validates a prompt string.
func ValidatePrompt(prompt string) error {
	if prompt == "" {
		return ErrEmptyPrompt
	}
	return nil
}

// ValidateRequest checks a request against the parameter ranges for its
// kind. The first violation is returned as a *ValidationError.
func ValidateRequest(req *Request) error {
	if req == nil {
		return &ValidationError{Field: "request", Err: errors.New("request is nil")}
	}
	if err := ValidatePrompt(req.Prompt); err != nil {
		return &ValidationError{Field: "prompt", Err: err}
	}

	switch req.Kind {
	case KindText:
		if req.MaxLength < MinMaxLength || req.MaxLength > MaxMaxLength {
			return rangeError("maxLength", req.MaxLength, MinMaxLength, MaxMaxLength)
		}
		if req.Temperature < MinTemperature || req.Temperature > MaxTemperature {
			return rangeError("temperature", req.Temperature, MinTemperature, MaxTemperature)
		}
	case KindImage:
		if req.Width < MinDimension || req.Width > MaxDimension {
			return rangeError("width", req.Width, MinDimension, MaxDimension)
		}
		if req.Height < MinDimension || req.Height > MaxDimension {
			return rangeError("height", req.Height, MinDimension, MaxDimension)
		}
		if req.Steps < MinSteps || req.Steps > MaxSteps {
			return rangeError("steps", req.Steps, MinSteps, MaxSteps)
		}
		if req.GuidanceScale < MinGuidanceScale || req.GuidanceScale > MaxGuidanceScale {
			return rangeError("guidanceScale", req.GuidanceScale, MinGuidanceScale, MaxGuidanceScale)
		}
	default:
		return &ValidationError{Field: "kind", Err: fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)}
	}

	return nil
}

func rangeError[T int | float64](field string, got T, min, max T) error {
	return &ValidationError{
		Field: field,
		Err:   fmt.Errorf("%w: %v (must be %v-%v)", ErrValueOutOfRange, got, min, max),
	}
}
