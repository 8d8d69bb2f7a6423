package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alem-hub/progress-engine/internal/domain/quiz"
)

// GetQuizQuery fetches one quiz for its owner.
type GetQuizQuery struct {
	UserID string
	QuizID string
}

// Validate validates the query.
func (q GetQuizQuery) Validate() error {
	if strings.TrimSpace(q.UserID) == "" {
		return errors.New("user_id is required")
	}
	if strings.TrimSpace(q.QuizID) == "" {
		return errors.New("quiz_id is required")
	}
	return nil
}

// QuizzesHandler serves GetQuiz and ListResumableQuizzes. Results are views:
// correct answers stay hidden until the question is answered.
type QuizzesHandler struct {
	repo quiz.Repository
}

// NewQuizzesHandler creates a new QuizzesHandler.
func NewQuizzesHandler(repo quiz.Repository) *QuizzesHandler {
	return &QuizzesHandler{repo: repo}
}

// Get returns the quiz or shared.ErrQuizNotFound, also for foreign quizzes.
func (h *QuizzesHandler) Get(ctx context.Context, q GetQuizQuery) (*quiz.View, error) {
	if err := q.Validate(); err != nil {
		return nil, invalid(err)
	}

	found, err := h.repo.FindByID(ctx, q.UserID, q.QuizID)
	if err != nil {
		return nil, err
	}
	view := quiz.NewView(found)
	return &view, nil
}

// ListResumable returns created or in-progress quizzes, newest first.
func (h *QuizzesHandler) ListResumable(ctx context.Context, userID string) ([]quiz.View, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, invalid(errors.New("user_id is required"))
	}

	quizzes, err := h.repo.ListResumable(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list_resumable_quizzes: %w", err)
	}

	views := make([]quiz.View, 0, len(quizzes))
	for _, q := range quizzes {
		views = append(views, quiz.NewView(q))
	}
	return views, nil
}
