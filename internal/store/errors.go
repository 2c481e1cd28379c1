package store

import (
	"fmt"

	"convoy/internal/services"
)

var (
	// ErrNotFound is returned when a task or prompt id does not exist.
	ErrNotFound = fmt.Errorf("store: record %w", services.ErrNotFound)
	// ErrSystemPrompt is returned when a caller tries to edit or delete a
	// built-in prompt.
	ErrSystemPrompt = fmt.Errorf("store: system prompts cannot be modified: %w", services.ErrConflict)
)

func validationError(operation, message string) error {
	return services.Wrap(services.ErrValidation, "store", operation, message, nil)
}
