package command

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/alem-hub/progress-engine/internal/domain/progress"
	"github.com/alem-hub/progress-engine/internal/domain/quiz"
	"github.com/alem-hub/progress-engine/internal/domain/shared"
	"github.com/alem-hub/progress-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE QUIZ COMMAND
// Scores the quiz and grants quiz_completed XP keyed by the quiz id.
// ══════════════════════════════════════════════════════════════════════════════

// Quiz reward defaults.
const (
	DefaultQuizBaseXP       = 20
	DefaultQuizPerCorrectXP = 5
)

// CompleteQuizCommand finishes a quiz.
type CompleteQuizCommand struct {
	UserID string
	QuizID string
}

// Validate validates the command.
func (c CompleteQuizCommand) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return errors.New("complete_quiz: user_id is required")
	}
	if strings.TrimSpace(c.QuizID) == "" {
		return errors.New("complete_quiz: quiz_id is required")
	}
	return nil
}

// CompleteQuizResult is the completed quiz plus the accrual it triggered.
type CompleteQuizResult struct {
	Quiz    quiz.View         `json:"quiz"`
	Score   int               `json:"score"`
	Total   int               `json:"total"`
	Outcome *progress.Outcome `json:"outcome"`
}

// CompleteQuizHandler handles the CompleteQuizCommand.
type CompleteQuizHandler struct {
	repo           quiz.Repository
	addXP          *AddXPHandler
	eventPublisher shared.EventPublisher
	log            *logger.Logger

	baseXP       int
	perCorrectXP int
	now          func() time.Time
}

// CompleteQuizHandlerConfig contains configuration for the handler.
type CompleteQuizHandlerConfig struct {
	BaseXP       int
	PerCorrectXP int
	Now          func() time.Time
}

// DefaultCompleteQuizHandlerConfig returns default configuration.
func DefaultCompleteQuizHandlerConfig() CompleteQuizHandlerConfig {
	return CompleteQuizHandlerConfig{
		BaseXP:       DefaultQuizBaseXP,
		PerCorrectXP: DefaultQuizPerCorrectXP,
		Now:          func() time.Time { return time.Now().UTC() },
	}
}

// NewCompleteQuizHandler creates a new CompleteQuizHandler.
func NewCompleteQuizHandler(
	repo quiz.Repository,
	addXP *AddXPHandler,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
	config CompleteQuizHandlerConfig,
) *CompleteQuizHandler {
	defaults := DefaultCompleteQuizHandlerConfig()
	if config.BaseXP <= 0 {
		config.BaseXP = defaults.BaseXP
	}
	if config.PerCorrectXP < 0 {
		config.PerCorrectXP = defaults.PerCorrectXP
	}
	if config.Now == nil {
		config.Now = defaults.Now
	}
	if eventPublisher == nil {
		eventPublisher = shared.NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CompleteQuizHandler{
		repo:           repo,
		addXP:          addXP,
		eventPublisher: eventPublisher,
		log:            log.Named("complete_quiz"),
		baseXP:         config.BaseXP,
		perCorrectXP:   config.PerCorrectXP,
		now:            config.Now,
	}
}

// Reward returns the XP granted for a score.
func (h *CompleteQuizHandler) Reward(score int) int {
	return h.baseXP + h.perCorrectXP*score
}

// Handle completes the quiz. A repeated call returns the stored quiz and
// re-issues the accrual, which the ledger absorbs as a duplicate. That also
// repairs a first call whose accrual failed after the quiz was frozen.
func (h *CompleteQuizHandler) Handle(ctx context.Context, cmd CompleteQuizCommand) (*CompleteQuizResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, invalid(err)
	}

	q, transitioned, err := h.repo.Complete(ctx, cmd.UserID, cmd.QuizID, h.now())
	if err != nil {
		return nil, err
	}

	out, err := h.addXP.Handle(ctx, AddXPCommand{
		UserID:     cmd.UserID,
		Amount:     h.Reward(q.Score),
		ActionType: progress.ActionQuizCompleted,
		SourceID:   q.ID,
	})
	if err != nil {
		return nil, err
	}

	if transitioned {
		h.log.Info("quiz completed",
			logger.UserID(cmd.UserID),
			logger.QuizID(q.ID),
			logger.Int("score", q.Score),
			logger.Int("total", len(q.Questions)),
		)
		_ = h.eventPublisher.Publish(shared.NewQuizCompletedEvent(cmd.UserID, q.ID, q.Score, len(q.Questions)))
	}

	return &CompleteQuizResult{
		Quiz:    quiz.NewView(q),
		Score:   q.Score,
		Total:   len(q.Questions),
		Outcome: out,
	}, nil
}
