// Package quiz owns the knowledge-check quiz lifecycle and the admission
// policy that decides when a quiz may be proposed.
package quiz

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alem-hub/progress-engine/internal/domain/shared"
)

// ChoicesPerQuestion is fixed: every question is four-way multiple choice.
const ChoicesPerQuestion = 4

// DefaultQuestionCount is the documented quiz length.
const DefaultQuestionCount = 10

// Status is the quiz lifecycle state.
type Status string

const (
	StatusCreated    Status = "created"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusCreated, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// QUESTION
// ══════════════════════════════════════════════════════════════════════════════

// Question is one multiple-choice item.
type Question struct {
	ID           string   `json:"id"`
	Prompt       string   `json:"prompt"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation,omitempty"`
}

// Validate checks the question shape.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("%w: question prompt is required", shared.ErrInvalidQuiz)
	}
	if len(q.Choices) != ChoicesPerQuestion {
		return fmt.Errorf("%w: question %q must have %d choices, got %d",
			shared.ErrInvalidQuiz, q.ID, ChoicesPerQuestion, len(q.Choices))
	}
	for i, c := range q.Choices {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("%w: question %q choice %d is empty", shared.ErrInvalidQuiz, q.ID, i)
		}
	}
	if ValidateAnswerIndex(q.CorrectIndex) != nil {
		return fmt.Errorf("%w: question %q correct index %d out of range", shared.ErrInvalidQuiz, q.ID, q.CorrectIndex)
	}
	return nil
}

// IsCorrect grades a single answer.
func (q Question) IsCorrect(index int) bool {
	return q.CorrectIndex == index
}

// ValidateAnswerIndex enforces 0 <= index <= 3.
func ValidateAnswerIndex(index int) error {
	if index < 0 || index >= ChoicesPerQuestion {
		return fmt.Errorf("%w: got %d", shared.ErrInvalidAnswerIndex, index)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// QUIZ
// ══════════════════════════════════════════════════════════════════════════════

// Quiz is a knowledge check attached to one goal event of one user.
// At most one quiz exists per (UserID, EventID); it is immutable once completed.
type Quiz struct {
	ID         string
	UserID     string
	EventID    string
	EventTitle string

	// Description - optional context shown with the quiz.
	Description string

	// GoalEventID, SeriesID - optional link to a preparation sequence.
	GoalEventID string
	SeriesID    string

	Questions []Question

	// Answers - question id to chosen index, filled one question at a time.
	Answers map[string]int

	Status Status
	Score  int

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// NewQuizParams groups the creation inputs.
type NewQuizParams struct {
	UserID      string
	EventID     string
	EventTitle  string
	Description string
	GoalEventID string
	SeriesID    string
	Questions   []Question
}

// NewQuiz builds a validated quiz in the created state. Questions without an
// id receive one.
func NewQuiz(p NewQuizParams, now time.Time) (*Quiz, error) {
	now = now.UTC()
	q := &Quiz{
		ID:          uuid.NewString(),
		UserID:      p.UserID,
		EventID:     strings.TrimSpace(p.EventID),
		EventTitle:  strings.TrimSpace(p.EventTitle),
		Description: strings.TrimSpace(p.Description),
		GoalEventID: p.GoalEventID,
		SeriesID:    p.SeriesID,
		Questions:   make([]Question, len(p.Questions)),
		Answers:     make(map[string]int),
		Status:      StatusCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, question := range p.Questions {
		if question.ID == "" {
			question.ID = uuid.NewString()
		}
		choices := make([]string, len(question.Choices))
		copy(choices, question.Choices)
		question.Choices = choices
		q.Questions[i] = question
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// Validate checks quiz-level invariants.
func (q *Quiz) Validate() error {
	if strings.TrimSpace(q.UserID) == "" {
		return fmt.Errorf("%w: user id is required", shared.ErrInvalidQuiz)
	}
	if q.EventID == "" {
		return fmt.Errorf("%w: event id is required", shared.ErrInvalidQuiz)
	}
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: at least one question is required", shared.ErrInvalidQuiz)
	}
	seen := make(map[string]struct{}, len(q.Questions))
	for _, question := range q.Questions {
		if err := question.Validate(); err != nil {
			return err
		}
		if _, dup := seen[question.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %q", shared.ErrInvalidQuiz, question.ID)
		}
		seen[question.ID] = struct{}{}
	}
	return nil
}

// Question returns the question with id.
func (q *Quiz) Question(id string) (Question, error) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, nil
		}
	}
	return Question{}, shared.ErrQuestionNotFound
}

// IsCompleted reports whether the quiz reached its terminal state.
func (q *Quiz) IsCompleted() bool {
	return q.Status == StatusCompleted
}

// Feedback is the instant per-question grading. It never carries the score.
type Feedback struct {
	QuestionID     string `json:"question_id"`
	Correct        bool   `json:"correct"`
	CorrectIndex   int    `json:"correct_index"`
	Explanation    string `json:"explanation,omitempty"`
	AnsweredCount  int    `json:"answered_count"`
	TotalQuestions int    `json:"total_questions"`
}

// Answer records the chosen index for a question. The first answer moves
// the quiz from created to in_progress; answers cannot be changed.
func (q *Quiz) Answer(questionID string, index int, at time.Time) (Feedback, error) {
	if err := ValidateAnswerIndex(index); err != nil {
		return Feedback{}, err
	}
	if q.IsCompleted() {
		return Feedback{}, shared.ErrQuizCompleted
	}
	question, err := q.Question(questionID)
	if err != nil {
		return Feedback{}, err
	}
	if _, answered := q.Answers[questionID]; answered {
		return Feedback{}, shared.ErrQuestionAlreadyAnswered
	}
	if q.Answers == nil {
		q.Answers = make(map[string]int)
	}
	q.Answers[questionID] = index
	q.Status = StatusInProgress
	q.UpdatedAt = at.UTC()

	return Feedback{
		QuestionID:     questionID,
		Correct:        question.IsCorrect(index),
		CorrectIndex:   question.CorrectIndex,
		Explanation:    question.Explanation,
		AnsweredCount:  len(q.Answers),
		TotalQuestions: len(q.Questions),
	}, nil
}

// CorrectCount counts correct answers so far.
func (q *Quiz) CorrectCount() int {
	n := 0
	for _, question := range q.Questions {
		if idx, ok := q.Answers[question.ID]; ok && question.IsCorrect(idx) {
			n++
		}
	}
	return n
}

// Complete scores the quiz and freezes it. Unanswered questions count as
// wrong. Returns false when the quiz was already completed.
func (q *Quiz) Complete(at time.Time) bool {
	if q.IsCompleted() {
		return false
	}
	at = at.UTC()
	q.Score = q.CorrectCount()
	q.Status = StatusCompleted
	q.CompletedAt = &at
	q.UpdatedAt = at
	return true
}
