package command

import (
	"fmt"

	"github.com/alem-hub/progress-engine/internal/domain/shared"
)

// invalid tags a command validation failure with shared.ErrInvalidInput.
func invalid(err error) error {
	return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
}
