package command

import (
	"context"
	"errors"
	"strings"

	"github.com/alem-hub/progress-engine/internal/domain/points"
	"github.com/alem-hub/progress-engine/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// AWARD ACTIVITY COMMAND
// Scores a classified calendar activity with the points engine and accrues
// the result as task_completed XP keyed by the event id.
// ══════════════════════════════════════════════════════════════════════════════

// ActivityInput describes a completed calendar activity.
type ActivityInput struct {
	Classification  points.Classification
	DurationMinutes int
	IsRecurring     bool

	// Confidence overrides Classification.Confidence when set.
	Confidence *float64
}

// Score runs the points engine.
func (a ActivityInput) Score() points.Calculation {
	confidence := a.Classification.Confidence
	if a.Confidence != nil {
		confidence = *a.Confidence
	}
	return points.Compute(a.Classification, a.DurationMinutes, a.IsRecurring, confidence)
}

// AwardActivityCommand awards points for one activity.
type AwardActivityCommand struct {
	UserID   string
	EventID  string
	Activity ActivityInput
}

// Validate validates the command.
func (c AwardActivityCommand) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return errors.New("award_activity: user_id is required")
	}
	if strings.TrimSpace(c.EventID) == "" {
		return errors.New("award_activity: event_id is required")
	}
	return nil
}

// AwardActivityResult pairs the explainable calculation with the accrual.
type AwardActivityResult struct {
	Calculation points.Calculation `json:"calculation"`
	Outcome     progress.Outcome   `json:"outcome"`
}

// AwardActivityHandler handles the AwardActivityCommand.
type AwardActivityHandler struct {
	addXP *AddXPHandler
}

// NewAwardActivityHandler creates a new AwardActivityHandler.
func NewAwardActivityHandler(addXP *AddXPHandler) *AwardActivityHandler {
	return &AwardActivityHandler{addXP: addXP}
}

// Handle executes the command.
func (h *AwardActivityHandler) Handle(ctx context.Context, cmd AwardActivityCommand) (*AwardActivityResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, invalid(err)
	}

	calc := cmd.Activity.Score()
	out, err := h.addXP.Handle(ctx, AddXPCommand{
		UserID:     cmd.UserID,
		Amount:     calc.TotalPoints,
		ActionType: progress.ActionTaskCompleted,
		SourceID:   cmd.EventID,
	})
	if err != nil {
		return nil, err
	}

	return &AwardActivityResult{Calculation: calc, Outcome: *out}, nil
}
