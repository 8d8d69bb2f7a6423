package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/progress-engine/internal/domain/quiz"
	"github.com/alem-hub/progress-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUIZ REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// QuizRepository implements quiz.Repository for PostgreSQL.
type QuizRepository struct {
	conn *Connection
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(conn *Connection) *QuizRepository {
	return &QuizRepository{conn: conn}
}

const quizColumns = `
	id, user_id, event_id, event_title, description, goal_event_id, series_id,
	questions, status, score, created_at, updated_at, completed_at`

// Create stores a new quiz. The (user_id, event_id) constraint rejects duplicates.
func (r *QuizRepository) Create(ctx context.Context, q *quiz.Quiz) error {
	questionsJSON, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("failed to marshal questions: %w", err)
	}

	_, err = r.conn.Exec(ctx, `
		INSERT INTO quizzes (
			id, user_id, event_id, event_title, description, goal_event_id, series_id,
			questions, status, score, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		q.ID,
		q.UserID,
		q.EventID,
		q.EventTitle,
		q.Description,
		q.GoalEventID,
		q.SeriesID,
		questionsJSON,
		string(q.Status),
		q.Score,
		q.CreatedAt,
		q.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrDuplicateQuiz
		}
		return fmt.Errorf("failed to create quiz: %w", err)
	}
	return nil
}

// ExistsForEvent reports whether the user already has a quiz for eventID.
func (r *QuizRepository) ExistsForEvent(ctx context.Context, userID, eventID string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM quizzes WHERE user_id = $1 AND event_id = $2)`,
		userID, eventID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check quiz existence: %w", err)
	}
	return exists, nil
}

// FindByID loads the quiz with its answers.
func (r *QuizRepository) FindByID(ctx context.Context, userID, quizID string) (*quiz.Quiz, error) {
	return loadQuiz(ctx, r.conn, userID, quizID, false)
}

// RecordAnswer locks the quiz, applies the answer and stores it.
func (r *QuizRepository) RecordAnswer(ctx context.Context, userID, quizID, questionID string, index int, at time.Time) (quiz.Feedback, error) {
	var fb quiz.Feedback

	err := r.conn.WithRetryTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		q, err := loadQuiz(ctx, tx, userID, quizID, true)
		if err != nil {
			return err
		}

		fb, err = q.Answer(questionID, index, at)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO quiz_answers (quiz_id, question_id, answer_index, answered_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (quiz_id, question_id) DO NOTHING
		`, quizID, questionID, index, at.UTC())
		if err != nil {
			return fmt.Errorf("failed to insert answer: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrQuestionAlreadyAnswered
		}

		_, err = tx.Exec(ctx,
			`UPDATE quizzes SET status = $1, updated_at = $2 WHERE id = $3`,
			string(q.Status), q.UpdatedAt, quizID,
		)
		if err != nil {
			return fmt.Errorf("failed to update quiz status: %w", err)
		}
		return nil
	})
	if err != nil {
		return quiz.Feedback{}, err
	}
	return fb, nil
}

// Complete locks the quiz and freezes it with its score.
func (r *QuizRepository) Complete(ctx context.Context, userID, quizID string, at time.Time) (*quiz.Quiz, bool, error) {
	var (
		result    *quiz.Quiz
		completed bool
	)

	err := r.conn.WithRetryTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		q, err := loadQuiz(ctx, tx, userID, quizID, true)
		if err != nil {
			return err
		}

		result = q
		completed = q.Complete(at)
		if !completed {
			return nil
		}

		_, err = tx.Exec(ctx, `
			UPDATE quizzes
			SET status = $1, score = $2, completed_at = $3, updated_at = $4
			WHERE id = $5
		`, string(q.Status), q.Score, q.CompletedAt, q.UpdatedAt, quizID)
		if err != nil {
			return fmt.Errorf("failed to complete quiz: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, completed, nil
}

// ListResumable returns quizzes that are not completed yet, newest first.
func (r *QuizRepository) ListResumable(ctx context.Context, userID string) ([]*quiz.Quiz, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT `+quizColumns+`
		FROM quizzes
		WHERE user_id = $1 AND status <> 'completed'
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list resumable quizzes: %w", err)
	}

	quizzes := make([]*quiz.Quiz, 0)
	byID := make(map[string]*quiz.Quiz)
	ids := make([]string, 0)
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan quiz: %w", err)
		}
		quizzes = append(quizzes, q)
		byID[q.ID] = q
		ids = append(ids, q.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return quizzes, nil
	}

	answerRows, err := r.conn.Query(ctx,
		`SELECT quiz_id, question_id, answer_index FROM quiz_answers WHERE quiz_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}
	defer answerRows.Close()

	for answerRows.Next() {
		var quizID, questionID string
		var idx int
		if err := answerRows.Scan(&quizID, &questionID, &idx); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		if q, ok := byID[quizID]; ok {
			q.Answers[questionID] = idx
		}
	}
	return quizzes, answerRows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func loadQuiz(ctx context.Context, q Querier, userID, quizID string, forUpdate bool) (*quiz.Quiz, error) {
	query := `SELECT ` + quizColumns + ` FROM quizzes WHERE id = $1 AND user_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	qz, err := scanQuiz(q.QueryRow(ctx, query, quizID, userID))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	rows, err := q.Query(ctx,
		`SELECT question_id, answer_index FROM quiz_answers WHERE quiz_id = $1`, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var questionID string
		var idx int
		if err := rows.Scan(&questionID, &idx); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		qz.Answers[questionID] = idx
	}
	return qz, rows.Err()
}

func scanQuiz(row pgx.Row) (*quiz.Quiz, error) {
	var (
		q             quiz.Quiz
		status        string
		questionsJSON []byte
	)
	err := row.Scan(
		&q.ID,
		&q.UserID,
		&q.EventID,
		&q.EventTitle,
		&q.Description,
		&q.GoalEventID,
		&q.SeriesID,
		&questionsJSON,
		&status,
		&q.Score,
		&q.CreatedAt,
		&q.UpdatedAt,
		&q.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questionsJSON, &q.Questions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal questions: %w", err)
	}
	q.Status = quiz.Status(status)
	q.Answers = make(map[string]int)
	return &q, nil
}
