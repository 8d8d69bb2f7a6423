package redis

import (
	"context"
	"fmt"

	"github.com/alem-hub/progress-engine/internal/domain/quiz"
)

// PrefixMarker namespaces throttle marker keys.
const PrefixMarker = "marker:"

// MarkerKey builds "marker:<type>:<len(userId)>:<userId>:<key>". The length
// prefix keeps ids that contain ':' from colliding with another user's key.
func MarkerKey(s quiz.Scope) string {
	return fmt.Sprintf("%s%s:%d:%s:%s", PrefixMarker, s.Type, len(s.UserID), s.UserID, s.Key)
}

// MarkerStore implements quiz.MarkerStore with plain SET / EXISTS.
// Markers carry no TTL; the daily key stops matching once the day changes.
type MarkerStore struct {
	cache *Cache
}

// NewMarkerStore creates a new MarkerStore.
func NewMarkerStore(cache *Cache) *MarkerStore {
	return &MarkerStore{cache: cache}
}

// PutMarker overwrites the marker value.
func (s *MarkerStore) PutMarker(ctx context.Context, m quiz.Marker) error {
	if err := s.cache.SetString(ctx, MarkerKey(m.Scope), m.Value, 0); err != nil {
		return fmt.Errorf("put marker: %w", err)
	}
	return nil
}

// HasMarker reports whether the scope has a marker.
func (s *MarkerStore) HasMarker(ctx context.Context, scope quiz.Scope) (bool, error) {
	ok, err := s.cache.Exists(ctx, MarkerKey(scope))
	if err != nil {
		return false, fmt.Errorf("check marker: %w", err)
	}
	return ok, nil
}
