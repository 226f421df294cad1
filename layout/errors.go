package layout

import (
	"errors"
	"fmt"
)

// Sentinel errors for configuration-time validation. They are the only
// failures allowed to stop a run before the first page is rendered.
var (
	ErrInvalidPlacement = errors.New("layout: invalid placement")
	ErrDuplicateField   = errors.New("layout: duplicate field")
	ErrUnknownField     = errors.New("layout: unknown field")
	ErrInvalidPage      = errors.New("layout: invalid page")
	ErrFrozen           = errors.New("layout: placement set is frozen")
)

// ConfigError reports a structurally invalid configuration for one field.
type ConfigError struct {
	Field string // field id, empty for page-level problems
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("field %q: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configErrorf(field string, sentinel error, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Err: fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))}
}
