package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
)

// UnknownToolError is returned when dispatch is asked for a name outside the
// closed tool set.
type UnknownToolError struct {
	Name ToolName
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// InvalidChoiceError reports a value outside an enumerated set, listing the
// valid choices for the user-facing message.
type InvalidChoiceError struct {
	Field   string
	Value   string
	Choices []string
}

func (e *InvalidChoiceError) Error() string {
	return fmt.Sprintf("invalid %s %q; must be one of %v", e.Field, e.Value, e.Choices)
}
