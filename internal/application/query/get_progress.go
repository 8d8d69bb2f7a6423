// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alem-hub/progress-engine/internal/domain/arena"
	"github.com/alem-hub/progress-engine/internal/domain/progress"
	"github.com/alem-hub/progress-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// Composes the stored record with the arena ladder. A first-seen user gets
// an initial record, created race-safely by the repository.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery contains the query parameters.
type GetProgressQuery struct {
	UserID string
}

// Validate validates the query.
func (q GetProgressQuery) Validate() error {
	if strings.TrimSpace(q.UserID) == "" {
		return errors.New("user_id is required")
	}
	return nil
}

// GetProgressHandler handles the GetProgressQuery.
type GetProgressHandler struct {
	repo   progress.Repository
	ladder arena.Ladder
	loc    *time.Location
	now    func() time.Time
}

// NewGetProgressHandler creates a new GetProgressHandler.
func NewGetProgressHandler(repo progress.Repository, loc *time.Location, now func() time.Time) *GetProgressHandler {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &GetProgressHandler{repo: repo, ladder: arena.DefaultLadder, loc: loc, now: now}
}

// Handle executes the query.
func (h *GetProgressHandler) Handle(ctx context.Context, q GetProgressQuery) (*progress.Snapshot, error) {
	if err := q.Validate(); err != nil {
		return nil, invalid(err)
	}

	now := h.now()
	rec, err := h.repo.GetOrCreate(ctx, q.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("get_progress: %w", err)
	}

	snap := progress.BuildSnapshot(rec, h.ladder, now, h.loc)
	return &snap, nil
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
}
