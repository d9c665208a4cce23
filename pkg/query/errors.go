package query

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidParameter matches every parameter validation error via errors.Is.
var ErrInvalidParameter = errors.New("invalid parameter")

// InvalidParameterError reports a structurally invalid parameter set:
// duplicate names, empty value lists, reserved names or illegal values.
type InvalidParameterError struct {
	Name   string
	Reason string
}

// Error implements the error interface.
func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Name, e.Reason)
}

// Is reports whether target is ErrInvalidParameter.
func (e *InvalidParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}

// UnknownParameterError reports a filter name the resource does not accept.
type UnknownParameterError struct {
	Name     string
	Resource string
	Allowed  []string
}

// Error implements the error interface.
func (e *UnknownParameterError) Error() string {
	return fmt.Sprintf("unknown parameter %q for resource %s (allowed: %s)",
		e.Name, e.Resource, strings.Join(e.Allowed, ", "))
}

// Is reports whether target is ErrInvalidParameter.
func (e *UnknownParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}
