package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/alem-hub/progress-engine/internal/domain/quiz"
)

// ══════════════════════════════════════════════════════════════════════════════
// MEMORY MARKER STORE
// ══════════════════════════════════════════════════════════════════════════════

// MarkerStore implements quiz.MarkerStore on the memory_markers table.
type MarkerStore struct {
	conn *Connection
	now  func() time.Time
}

// NewMarkerStore creates a new MarkerStore.
func NewMarkerStore(conn *Connection) *MarkerStore {
	return &MarkerStore{conn: conn, now: time.Now}
}

// PutMarker upserts the marker, overwriting its value.
func (s *MarkerStore) PutMarker(ctx context.Context, m quiz.Marker) error {
	now := s.now().UTC()
	_, err := s.conn.Exec(ctx, `
		INSERT INTO memory_markers (user_id, memory_type, marker_key, value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id, memory_type, marker_key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, m.UserID, string(m.Type), m.Key, m.Value, now)
	if err != nil {
		return fmt.Errorf("failed to put marker: %w", err)
	}
	return nil
}

// HasMarker reports whether the scope has a marker.
func (s *MarkerStore) HasMarker(ctx context.Context, scope quiz.Scope) (bool, error) {
	var exists bool
	err := s.conn.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM memory_markers
			WHERE user_id = $1 AND memory_type = $2 AND marker_key = $3
		)
	`, scope.UserID, string(scope.Type), scope.Key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check marker: %w", err)
	}
	return exists, nil
}
