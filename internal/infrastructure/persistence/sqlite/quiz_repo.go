package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alem-hub/progress-engine/internal/domain/quiz"
	"github.com/alem-hub/progress-engine/internal/domain/shared"
)

// QuizRepository implements quiz.Repository on SQLite.
type QuizRepository struct {
	db *DB
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(db *DB) *QuizRepository {
	return &QuizRepository{db: db}
}

const quizColumns = `
	id, user_id, event_id, event_title, description, goal_event_id, series_id,
	questions, status, score, created_at, updated_at, completed_at`

// Create stores a new quiz; the (user_id, event_id) constraint rejects duplicates.
func (r *QuizRepository) Create(ctx context.Context, q *quiz.Quiz) error {
	questionsJSON, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}

	_, err = r.db.sqlDB.ExecContext(ctx, `
		INSERT INTO quizzes (
			id, user_id, event_id, event_title, description, goal_event_id, series_id,
			questions, status, score, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID,
		q.UserID,
		q.EventID,
		q.EventTitle,
		q.Description,
		q.GoalEventID,
		q.SeriesID,
		string(questionsJSON),
		string(q.Status),
		q.Score,
		toMillis(q.CreatedAt),
		toMillis(q.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrDuplicateQuiz
		}
		return fmt.Errorf("create quiz: %w", err)
	}
	return nil
}

// ExistsForEvent reports whether the user already has a quiz for eventID.
func (r *QuizRepository) ExistsForEvent(ctx context.Context, userID, eventID string) (bool, error) {
	var exists bool
	err := r.db.sqlDB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM quizzes WHERE user_id = ? AND event_id = ?)`, userID, eventID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check quiz existence: %w", err)
	}
	return exists, nil
}

// FindByID loads the quiz with its answers.
func (r *QuizRepository) FindByID(ctx context.Context, userID, quizID string) (*quiz.Quiz, error) {
	return loadQuiz(ctx, r.db.sqlDB, userID, quizID)
}

// RecordAnswer applies the answer under the write lock.
func (r *QuizRepository) RecordAnswer(ctx context.Context, userID, quizID, questionID string, index int, at time.Time) (quiz.Feedback, error) {
	var fb quiz.Feedback
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		q, err := loadQuiz(ctx, tx, userID, quizID)
		if err != nil {
			return err
		}
		fb, err = q.Answer(questionID, index, at)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO quiz_answers (quiz_id, question_id, answer_index, answered_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (quiz_id, question_id) DO NOTHING`,
			quizID, questionID, index, toMillis(at),
		)
		if err != nil {
			return fmt.Errorf("insert answer: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return shared.ErrQuestionAlreadyAnswered
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE quizzes SET status = ?, updated_at = ? WHERE id = ?`,
			string(q.Status), toMillis(q.UpdatedAt), quizID,
		)
		if err != nil {
			return fmt.Errorf("update quiz status: %w", err)
		}
		return nil
	})
	if err != nil {
		return quiz.Feedback{}, err
	}
	return fb, nil
}

// Complete scores and freezes the quiz under the write lock.
func (r *QuizRepository) Complete(ctx context.Context, userID, quizID string, at time.Time) (*quiz.Quiz, bool, error) {
	var (
		result    *quiz.Quiz
		completed bool
	)
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		q, err := loadQuiz(ctx, tx, userID, quizID)
		if err != nil {
			return err
		}
		result = q
		completed = q.Complete(at)
		if !completed {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE quizzes SET status = ?, score = ?, completed_at = ?, updated_at = ?
			WHERE id = ?`,
			string(q.Status), q.Score, nullMillis(q.CompletedAt), toMillis(q.UpdatedAt), quizID,
		)
		if err != nil {
			return fmt.Errorf("complete quiz: %w", err)
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
	rows, err := r.db.sqlDB.QueryContext(ctx, `
		SELECT `+quizColumns+`
		FROM quizzes
		WHERE user_id = ? AND status <> 'completed'
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list resumable quizzes: %w", err)
	}

	quizzes := make([]*quiz.Quiz, 0)
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		quizzes = append(quizzes, q)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Rows are closed first: the single connection cannot serve a nested query.
	for _, q := range quizzes {
		if err := loadAnswers(ctx, r.db.sqlDB, q); err != nil {
			return nil, err
		}
	}
	return quizzes, nil
}

func loadQuiz(ctx context.Context, q queryer, userID, quizID string) (*quiz.Quiz, error) {
	qz, err := scanQuiz(q.QueryRowContext(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE id = ? AND user_id = ?`, quizID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrQuizNotFound
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	if err := loadAnswers(ctx, q, qz); err != nil {
		return nil, err
	}
	return qz, nil
}

func loadAnswers(ctx context.Context, q queryer, qz *quiz.Quiz) error {
	rows, err := q.QueryContext(ctx,
		`SELECT question_id, answer_index FROM quiz_answers WHERE quiz_id = ?`, qz.ID)
	if err != nil {
		return fmt.Errorf("load answers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			questionID string
			idx        int
		)
		if err := rows.Scan(&questionID, &idx); err != nil {
			return fmt.Errorf("scan answer: %w", err)
		}
		qz.Answers[questionID] = idx
	}
	return rows.Err()
}

func scanQuiz(row rowScanner) (*quiz.Quiz, error) {
	var (
		q                    quiz.Quiz
		questionsJSON        string
		status               string
		createdAt, updatedAt int64
		completedAt          sql.NullInt64
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
		&createdAt,
		&updatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(questionsJSON), &q.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	q.Status = quiz.Status(status)
	q.Answers = make(map[string]int)
	q.CreatedAt = fromMillis(createdAt)
	q.UpdatedAt = fromMillis(updatedAt)
	q.CompletedAt = timePtr(completedAt)
	return &q, nil
}
