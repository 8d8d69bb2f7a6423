package quiz

import (
	"context"
	"time"

	"github.com/alem-hub/progress-engine/pkg/timeutil"
)

// MarkerType namespaces throttle markers.
type MarkerType string

const (
	// MarkerProposal rows are keyed by calendar day; one per user per day.
	MarkerProposal MarkerType = "quiz_proposal"

	// MarkerPreference rows are keyed by "do_not_ask:<eventId>" and never expire.
	MarkerPreference MarkerType = "quiz_preference"
)

const doNotAskPrefix = "do_not_ask:"

// Scope addresses one marker.
type Scope struct {
	UserID string
	Type   MarkerType
	Key    string
}

// Marker is a scope plus an audit value (the event id for proposals).
type Marker struct {
	Scope
	Value string
}

// MarkerStore is the typed replacement for free-form key/value memory.
// PutMarker overwrites; markers are never deleted by the engine.
type MarkerStore interface {
	PutMarker(ctx context.Context, m Marker) error
	HasMarker(ctx context.Context, s Scope) (bool, error)
}

// ProposalScope is the daily-cap marker for the calendar day of at in loc.
func ProposalScope(userID string, at time.Time, loc *time.Location) Scope {
	return Scope{UserID: userID, Type: MarkerProposal, Key: timeutil.DayKey(at, loc)}
}

// DoNotAskScope is the permanent opt-out marker for one event.
func DoNotAskScope(userID, eventID string) Scope {
	return Scope{UserID: userID, Type: MarkerPreference, Key: doNotAskPrefix + eventID}
}
