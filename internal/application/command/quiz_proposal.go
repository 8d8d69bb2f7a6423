package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alem-hub/progress-engine/internal/domain/quiz"
	"github.com/alem-hub/progress-engine/internal/domain/shared"
	"github.com/alem-hub/progress-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHECK QUIZ PROPOSAL COMMAND
// Runs the admission gate and, on acceptance, writes today's proposal marker.
// ══════════════════════════════════════════════════════════════════════════════

// CheckQuizProposalCommand asks whether a quiz should be offered for an event.
type CheckQuizProposalCommand struct {
	UserID     string
	EventID    string
	EventTitle string

	// IsGoalEvent is resolved by the calendar collaborator.
	IsGoalEvent bool
}

// Validate validates the command.
func (c CheckQuizProposalCommand) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return errors.New("check_quiz_proposal: user_id is required")
	}
	if strings.TrimSpace(c.EventID) == "" {
		return errors.New("check_quiz_proposal: event_id is required")
	}
	return nil
}

// QuizProposalHandler handles CheckQuizProposalCommand and
// DismissQuizPermanentlyCommand.
type QuizProposalHandler struct {
	policy         *quiz.Policy
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewQuizProposalHandler creates a new QuizProposalHandler.
func NewQuizProposalHandler(policy *quiz.Policy, eventPublisher shared.EventPublisher, log *logger.Logger) *QuizProposalHandler {
	if eventPublisher == nil {
		eventPublisher = shared.NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &QuizProposalHandler{
		policy:         policy,
		eventPublisher: eventPublisher,
		log:            log.Named("quiz_proposal"),
	}
}

// Handle evaluates the gate. An accepted decision is recorded so the daily
// cap holds for the rest of the calendar day.
func (h *QuizProposalHandler) Handle(ctx context.Context, cmd CheckQuizProposalCommand) (quiz.Decision, error) {
	if err := cmd.Validate(); err != nil {
		return quiz.Decision{}, invalid(err)
	}

	decision, err := h.policy.ShouldPropose(ctx, cmd.UserID, cmd.EventID, cmd.EventTitle, cmd.IsGoalEvent)
	if err != nil {
		return quiz.Decision{}, fmt.Errorf("check_quiz_proposal: %w", err)
	}
	if !decision.ShouldPropose {
		h.log.Debug("quiz proposal rejected",
			logger.UserID(cmd.UserID),
			logger.EventID(cmd.EventID),
			logger.Reason(decision.Reason),
		)
		return decision, nil
	}

	if err := h.policy.MarkProposed(ctx, cmd.UserID, cmd.EventID); err != nil {
		return quiz.Decision{}, fmt.Errorf("check_quiz_proposal: %w", err)
	}

	h.log.Info("quiz proposed", logger.UserID(cmd.UserID), logger.EventID(cmd.EventID))
	_ = h.eventPublisher.Publish(shared.NewQuizProposedEvent(cmd.UserID, cmd.EventID, cmd.EventTitle))
	return decision, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DISMISS QUIZ PERMANENTLY COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// DismissQuizPermanentlyCommand opts the user out of quizzes for one event.
// There is no reversal path.
type DismissQuizPermanentlyCommand struct {
	UserID  string
	EventID string
}

// Dismiss writes the do-not-ask marker.
func (h *QuizProposalHandler) Dismiss(ctx context.Context, cmd DismissQuizPermanentlyCommand) error {
	check := CheckQuizProposalCommand{UserID: cmd.UserID, EventID: cmd.EventID}
	if err := check.Validate(); err != nil {
		return invalid(err)
	}

	if err := h.policy.MarkDoNotAsk(ctx, cmd.UserID, cmd.EventID); err != nil {
		return fmt.Errorf("dismiss_quiz: %w", err)
	}
	h.log.Info("quiz opt-out recorded", logger.UserID(cmd.UserID), logger.EventID(cmd.EventID))
	return nil
}
