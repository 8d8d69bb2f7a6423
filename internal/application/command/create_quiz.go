package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alem-hub/progress-engine/internal/domain/quiz"
	"github.com/alem-hub/progress-engine/internal/domain/shared"
	"github.com/alem-hub/progress-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE QUIZ COMMAND
// At most one quiz per (user, event). Questions come from the caller or,
// when absent, from the configured generator.
// ══════════════════════════════════════════════════════════════════════════════

// ErrNoQuestionSource is returned when the command carries no questions and
// no generator is configured.
var ErrNoQuestionSource = errors.New("create_quiz: no questions supplied and no generator configured")

// CreateQuizCommand contains the quiz inputs.
type CreateQuizCommand struct {
	UserID      string
	EventID     string
	EventTitle  string
	Description string
	GoalEventID string
	SeriesID    string

	// Documentation - optional material handed to the generator.
	Documentation string

	// Questions - optional; generated when empty.
	Questions []quiz.Question
}

// Validate validates the command.
func (c CreateQuizCommand) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return errors.New("create_quiz: user_id is required")
	}
	if strings.TrimSpace(c.EventID) == "" {
		return errors.New("create_quiz: event_id is required")
	}
	return nil
}

// CreateQuizHandler handles the CreateQuizCommand.
type CreateQuizHandler struct {
	repo      quiz.Repository
	generator quiz.QuestionGenerator
	log       *logger.Logger

	questionCount int
	now           func() time.Time
}

// CreateQuizHandlerConfig contains configuration for the handler.
type CreateQuizHandlerConfig struct {
	// QuestionCount is requested from the generator.
	QuestionCount int
	Now           func() time.Time
}

// NewCreateQuizHandler creates a new CreateQuizHandler. generator may be nil.
func NewCreateQuizHandler(
	repo quiz.Repository,
	generator quiz.QuestionGenerator,
	log *logger.Logger,
	config CreateQuizHandlerConfig,
) *CreateQuizHandler {
	if config.QuestionCount <= 0 {
		config.QuestionCount = quiz.DefaultQuestionCount
	}
	if config.Now == nil {
		config.Now = func() time.Time { return time.Now().UTC() }
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CreateQuizHandler{
		repo:          repo,
		generator:     generator,
		log:           log.Named("create_quiz"),
		questionCount: config.QuestionCount,
		now:           config.Now,
	}
}

// Handle creates and stores the quiz.
func (h *CreateQuizHandler) Handle(ctx context.Context, cmd CreateQuizCommand) (*quiz.View, error) {
	if err := cmd.Validate(); err != nil {
		return nil, invalid(err)
	}

	// Checked before generation so a duplicate never pays for a generator call.
	exists, err := h.repo.ExistsForEvent(ctx, cmd.UserID, cmd.EventID)
	if err != nil {
		return nil, fmt.Errorf("create_quiz: %w", err)
	}
	if exists {
		return nil, shared.ErrDuplicateQuiz
	}

	questions := cmd.Questions
	if len(questions) == 0 {
		questions, err = h.generate(ctx, cmd)
		if err != nil {
			return nil, err
		}
	}

	q, err := quiz.NewQuiz(quiz.NewQuizParams{
		UserID:      cmd.UserID,
		EventID:     cmd.EventID,
		EventTitle:  cmd.EventTitle,
		Description: cmd.Description,
		GoalEventID: cmd.GoalEventID,
		SeriesID:    cmd.SeriesID,
		Questions:   questions,
	}, h.now())
	if err != nil {
		return nil, err
	}

	if err := h.repo.Create(ctx, q); err != nil {
		if errors.Is(err, shared.ErrDuplicateQuiz) {
			return nil, err
		}
		return nil, fmt.Errorf("create_quiz: %w", err)
	}

	h.log.Info("quiz created",
		logger.UserID(cmd.UserID),
		logger.EventID(cmd.EventID),
		logger.QuizID(q.ID),
		logger.Int("questions", len(q.Questions)),
	)

	view := quiz.NewView(q)
	return &view, nil
}

func (h *CreateQuizHandler) generate(ctx context.Context, cmd CreateQuizCommand) ([]quiz.Question, error) {
	if h.generator == nil {
		return nil, invalid(ErrNoQuestionSource)
	}

	start := time.Now()
	questions, err := h.generator.Generate(ctx, quiz.GenerateRequest{
		UserID:        cmd.UserID,
		EventID:       cmd.EventID,
		EventTitle:    cmd.EventTitle,
		Description:   cmd.Description,
		Documentation: cmd.Documentation,
		Count:         h.questionCount,
	})
	if err != nil {
		h.log.Warn("question generation failed",
			logger.UserID(cmd.UserID),
			logger.EventID(cmd.EventID),
			logger.Err(err),
		)
		return nil, fmt.Errorf("create_quiz: generate questions: %w", err)
	}
	h.log.Debug("questions generated",
		logger.EventID(cmd.EventID),
		logger.Int("count", len(questions)),
		logger.Latency(time.Since(start)),
	)
	return questions, nil
}
