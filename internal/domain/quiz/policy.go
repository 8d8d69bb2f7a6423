package quiz

import (
	"context"
	"fmt"
	"time"
)

// DefaultAcceptanceRate is the probability that a proposal passing every hard
// rule is actually made.
const DefaultAcceptanceRate = 0.4

// Rejection reasons, in evaluation order.
const (
	ReasonNotGoalEvent  = "not a goal event"
	ReasonOptedOut      = "user opted out for this event"
	ReasonProposedToday = "already proposed today"
	ReasonQuizExists    = "quiz already exists for this event"
	ReasonRandomGate    = "random gate rejected"
	ReasonAccepted      = "accepted"
)

// RandomSource yields uniform values in [0,1).
type RandomSource interface {
	Float64() float64
}

// ExistenceChecker is the slice of Repository the policy needs.
type ExistenceChecker interface {
	ExistsForEvent(ctx context.Context, userID, eventID string) (bool, error)
}

// Decision is the outcome of ShouldPropose.
type Decision struct {
	ShouldPropose bool   `json:"should_propose"`
	Reason        string `json:"reason"`
	EventID       string `json:"event_id"`
	EventTitle    string `json:"event_title,omitempty"`
}

// Policy is the admission gate for quiz proposals.
//
// Two concurrent checks for the same user can both pass before either writes
// the daily marker; that lets at most one extra proposal through per day and
// is accepted rather than serialized.
type Policy struct {
	markers   MarkerStore
	quizzes   ExistenceChecker
	random    RandomSource
	threshold float64
	now       func() time.Time
	loc       *time.Location
}

// PolicyConfig configures a Policy.
type PolicyConfig struct {
	AcceptanceRate float64
	Location       *time.Location
	Now            func() time.Time
}

// DefaultPolicyConfig returns the production defaults.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		AcceptanceRate: DefaultAcceptanceRate,
		Location:       time.UTC,
		Now:            func() time.Time { return time.Now().UTC() },
	}
}

// NewPolicy creates the admission gate.
func NewPolicy(markers MarkerStore, quizzes ExistenceChecker, random RandomSource, cfg PolicyConfig) *Policy {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = DefaultPolicyConfig().Now
	}
	if cfg.AcceptanceRate < 0 || cfg.AcceptanceRate > 1 {
		cfg.AcceptanceRate = DefaultAcceptanceRate
	}
	return &Policy{
		markers:   markers,
		quizzes:   quizzes,
		random:    random,
		threshold: cfg.AcceptanceRate,
		now:       cfg.Now,
		loc:       cfg.Location,
	}
}

// ShouldPropose evaluates the ordered rule chain; the first failing rule
// decides the reason.
func (p *Policy) ShouldPropose(ctx context.Context, userID, eventID, eventTitle string, isGoalEvent bool) (Decision, error) {
	d := Decision{EventID: eventID, EventTitle: eventTitle}

	if !isGoalEvent {
		d.Reason = ReasonNotGoalEvent
		return d, nil
	}

	optedOut, err := p.markers.HasMarker(ctx, DoNotAskScope(userID, eventID))
	if err != nil {
		return Decision{}, fmt.Errorf("check do-not-ask marker: %w", err)
	}
	if optedOut {
		d.Reason = ReasonOptedOut
		return d, nil
	}

	proposed, err := p.markers.HasMarker(ctx, ProposalScope(userID, p.now(), p.loc))
	if err != nil {
		return Decision{}, fmt.Errorf("check daily proposal marker: %w", err)
	}
	if proposed {
		d.Reason = ReasonProposedToday
		return d, nil
	}

	exists, err := p.quizzes.ExistsForEvent(ctx, userID, eventID)
	if err != nil {
		return Decision{}, fmt.Errorf("check existing quiz: %w", err)
	}
	if exists {
		d.Reason = ReasonQuizExists
		return d, nil
	}

	if p.random.Float64() > p.threshold {
		d.Reason = ReasonRandomGate
		return d, nil
	}

	d.ShouldPropose = true
	d.Reason = ReasonAccepted
	return d, nil
}

// MarkProposed writes today's proposal marker. Overwrites, never accumulates.
func (p *Policy) MarkProposed(ctx context.Context, userID, eventID string) error {
	m := Marker{Scope: ProposalScope(userID, p.now(), p.loc), Value: eventID}
	if err := p.markers.PutMarker(ctx, m); err != nil {
		return fmt.Errorf("put proposal marker: %w", err)
	}
	return nil
}

// MarkDoNotAsk permanently opts the user out of quizzes for eventID.
// There is no reverse operation.
func (p *Policy) MarkDoNotAsk(ctx context.Context, userID, eventID string) error {
	m := Marker{Scope: DoNotAskScope(userID, eventID), Value: "true"}
	if err := p.markers.PutMarker(ctx, m); err != nil {
		return fmt.Errorf("put do-not-ask marker: %w", err)
	}
	return nil
}
