package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/alem-hub/progress-engine/internal/domain/quiz"
)

// MarkerStore implements quiz.MarkerStore on the memory_markers table.
type MarkerStore struct {
	db  *DB
	now func() time.Time
}

// NewMarkerStore creates a new MarkerStore.
func NewMarkerStore(db *DB) *MarkerStore {
	return &MarkerStore{db: db, now: time.Now}
}

// PutMarker upserts the marker.
func (s *MarkerStore) PutMarker(ctx context.Context, m quiz.Marker) error {
	now := toMillis(s.now())
	_, err := s.db.sqlDB.ExecContext(ctx, `
		INSERT INTO memory_markers (user_id, memory_type, marker_key, value, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, memory_type, marker_key)
		DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		m.UserID, string(m.Type), m.Key, m.Value, now, now,
	)
	if err != nil {
		return fmt.Errorf("put marker: %w", err)
	}
	return nil
}

// HasMarker reports whether the scope has a marker.
func (s *MarkerStore) HasMarker(ctx context.Context, scope quiz.Scope) (bool, error) {
	var exists bool
	err := s.db.sqlDB.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM memory_markers
			WHERE user_id = ? AND memory_type = ? AND marker_key = ?
		)`,
		scope.UserID, string(scope.Type), scope.Key,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check marker: %w", err)
	}
	return exists, nil
}
