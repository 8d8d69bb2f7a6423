package command

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/alem-hub/progress-engine/internal/domain/quiz"
	"github.com/alem-hub/progress-engine/pkg/logger"
)

// AnswerQuizQuestionCommand records one answer.
type AnswerQuizQuestionCommand struct {
	UserID      string
	QuizID      string
	QuestionID  string
	AnswerIndex int
}

// Validate validates the command. The index range is checked before any
// lookup so an out-of-range index never reaches storage.
func (c AnswerQuizQuestionCommand) Validate() error {
	if err := quiz.ValidateAnswerIndex(c.AnswerIndex); err != nil {
		return err
	}
	if strings.TrimSpace(c.UserID) == "" {
		return invalid(errors.New("answer_quiz: user_id is required"))
	}
	if strings.TrimSpace(c.QuizID) == "" {
		return invalid(errors.New("answer_quiz: quiz_id is required"))
	}
	if strings.TrimSpace(c.QuestionID) == "" {
		return invalid(errors.New("answer_quiz: question_id is required"))
	}
	return nil
}

// AnswerQuizQuestionHandler handles the AnswerQuizQuestionCommand.
type AnswerQuizQuestionHandler struct {
	repo quiz.Repository
	log  *logger.Logger
	now  func() time.Time
}

// NewAnswerQuizQuestionHandler creates a new AnswerQuizQuestionHandler.
func NewAnswerQuizQuestionHandler(repo quiz.Repository, log *logger.Logger, now func() time.Time) *AnswerQuizQuestionHandler {
	if log == nil {
		log = logger.Nop()
	}
	if now == nil {
		now = time.Now
	}
	return &AnswerQuizQuestionHandler{repo: repo, log: log.Named("answer_quiz"), now: now}
}

// Handle grades the answer instantly. The running score is never returned.
func (h *AnswerQuizQuestionHandler) Handle(ctx context.Context, cmd AnswerQuizQuestionCommand) (quiz.Feedback, error) {
	if err := cmd.Validate(); err != nil {
		return quiz.Feedback{}, err
	}

	fb, err := h.repo.RecordAnswer(ctx, cmd.UserID, cmd.QuizID, cmd.QuestionID, cmd.AnswerIndex, h.now())
	if err != nil {
		return quiz.Feedback{}, err
	}

	h.log.Debug("quiz answer recorded",
		logger.UserID(cmd.UserID),
		logger.QuizID(cmd.QuizID),
		logger.Int("answered", fb.AnsweredCount),
		logger.Int("total", fb.TotalQuestions),
	)
	return fb, nil
}
