package snake

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacityExceeded is returned when growth would exceed the body bound.
	ErrCapacityExceeded = errors.New("snake: body capacity exceeded")

	// ErrNoFreeCell is returned when no cell is left for a fruit.
	ErrNoFreeCell = errors.New("snake: no free cell")
)

// ConfigurationError reports invalid setup parameters. A session that hits
// one never gets a GameState.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("snake: invalid %s: %s", e.Field, e.Reason)
}

func configErr(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
