package quiz

import (
	"context"
	"time"
)

// Repository defines quiz persistence. Lookups are owner-scoped: a quiz of
// another user is reported as shared.ErrQuizNotFound.
type Repository interface {
	// Create stores q. Fails with shared.ErrDuplicateQuiz if the user already
	// has a quiz for q.EventID.
	Create(ctx context.Context, q *Quiz) error

	// ExistsForEvent reports whether the user has a quiz for eventID.
	ExistsForEvent(ctx context.Context, userID, eventID string) (bool, error)

	// FindByID loads the quiz with its answers.
	FindByID(ctx context.Context, userID, quizID string) (*Quiz, error)

	// RecordAnswer atomically applies Quiz.Answer and persists the result.
	RecordAnswer(ctx context.Context, userID, quizID, questionID string, index int, at time.Time) (Feedback, error)

	// Complete atomically applies Quiz.Complete. The bool is true only for
	// the call that performed the transition.
	Complete(ctx context.Context, userID, quizID string, at time.Time) (*Quiz, bool, error)

	// ListResumable returns the user's created or in-progress quizzes, newest first.
	ListResumable(ctx context.Context, userID string) ([]*Quiz, error)
}

// GenerateRequest describes the quiz a generator should produce.
type GenerateRequest struct {
	UserID        string
	EventID       string
	EventTitle    string
	Description   string
	Documentation string
	Count         int
}

// QuestionGenerator produces questions for a goal event. Typically backed by
// an external language-model service.
type QuestionGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]Question, error)
}
