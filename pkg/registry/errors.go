package registry

import (
	"fmt"
	"strings"
)

// ConfigError reports a missing or malformed descriptor. The registry that
// accompanies it is empty but usable.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("descriptor %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NotFoundError reports an id that is not in the registry.
type NotFoundError struct {
	ID        string
	Available []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("function %q not found in configuration (available: [%s])",
		e.ID, strings.Join(e.Available, ", "))
}
