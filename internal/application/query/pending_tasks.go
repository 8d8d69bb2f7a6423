package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alem-hub/progress-engine/internal/domain/validation"
)

// ListPendingTasksQuery lists a user's unresolved validations.
type ListPendingTasksQuery struct {
	UserID string
}

// Validate validates the query.
func (q ListPendingTasksQuery) Validate() error {
	if strings.TrimSpace(q.UserID) == "" {
		return errors.New("user_id is required")
	}
	return nil
}

// PendingTasksHandler serves ListPendingTasks and CountPendingTasks.
type PendingTasksHandler struct {
	repo validation.Repository
}

// NewPendingTasksHandler creates a new PendingTasksHandler.
func NewPendingTasksHandler(repo validation.Repository) *PendingTasksHandler {
	return &PendingTasksHandler{repo: repo}
}

// List returns pending validations, oldest event first. Never nil.
func (h *PendingTasksHandler) List(ctx context.Context, q ListPendingTasksQuery) ([]*validation.TaskValidation, error) {
	if err := q.Validate(); err != nil {
		return nil, invalid(err)
	}

	items, err := h.repo.ListPending(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("list_pending_tasks: %w", err)
	}
	if items == nil {
		items = []*validation.TaskValidation{}
	}
	return items, nil
}

// Count returns the number of pending validations.
func (h *PendingTasksHandler) Count(ctx context.Context, q ListPendingTasksQuery) (int, error) {
	if err := q.Validate(); err != nil {
		return 0, invalid(err)
	}

	n, err := h.repo.CountPending(ctx, q.UserID)
	if err != nil {
		return 0, fmt.Errorf("count_pending_tasks: %w", err)
	}
	return n, nil
}
