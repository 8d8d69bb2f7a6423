package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alem-hub/progress-engine/internal/domain/progress"
)

// ProgressRepository implements progress.Repository on SQLite.
type ProgressRepository struct {
	db *DB
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(db *DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

const progressColumns = `
	user_id, xp, level, current_streak, longest_streak, last_active_day,
	total_actions, total_tasks_created, total_tasks_completed, total_quizzes_completed,
	created_at, updated_at`

// Accrue records the entry and applies it in one immediate transaction.
// A conflicting dedup_key leaves both tables untouched.
func (r *ProgressRepository) Accrue(ctx context.Context, entry progress.Entry, apply progress.ApplyFunc) (*progress.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result *progress.Result
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureRecord(ctx, tx, entry.UserID, entry.CreatedAt); err != nil {
			return err
		}

		rec, err := scanRecord(tx.QueryRowContext(ctx,
			`SELECT `+progressColumns+` FROM progress_records WHERE user_id = ?`, entry.UserID))
		if err != nil {
			return fmt.Errorf("load progress record: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO xp_accruals (id, user_id, action_type, source_id, dedup_key, amount, multiplier, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (dedup_key) DO NOTHING`,
			entry.ID,
			entry.UserID,
			entry.ActionType,
			nullString(entry.SourceID),
			nullString(entry.DedupKey),
			entry.Amount,
			entry.Multiplier,
			toMillis(entry.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert accrual: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}

		before := *rec
		if n == 0 {
			result = &progress.Result{Applied: false, Before: before, After: before}
			return nil
		}

		apply(rec)
		if err := updateRecord(ctx, tx, rec); err != nil {
			return err
		}
		result = &progress.Result{Applied: true, Before: before, After: *rec}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetOrCreate returns the user's record, creating it if absent.
func (r *ProgressRepository) GetOrCreate(ctx context.Context, userID string, now time.Time) (*progress.Record, error) {
	if err := ensureRecord(ctx, r.db.sqlDB, userID, now); err != nil {
		return nil, err
	}
	rec, err := scanRecord(r.db.sqlDB.QueryRowContext(ctx,
		`SELECT `+progressColumns+` FROM progress_records WHERE user_id = ?`, userID))
	if err != nil {
		return nil, fmt.Errorf("get progress record: %w", err)
	}
	return rec, nil
}

func ensureRecord(ctx context.Context, q queryer, userID string, now time.Time) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO progress_records (user_id, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING`,
		userID, toMillis(now), toMillis(now),
	)
	if err != nil {
		return fmt.Errorf("upsert progress record: %w", err)
	}
	return nil
}

func updateRecord(ctx context.Context, q queryer, rec *progress.Record) error {
	_, err := q.ExecContext(ctx, `
		UPDATE progress_records SET
			xp = ?,
			level = ?,
			current_streak = ?,
			longest_streak = ?,
			last_active_day = ?,
			total_actions = ?,
			total_tasks_created = ?,
			total_tasks_completed = ?,
			total_quizzes_completed = ?,
			updated_at = ?
		WHERE user_id = ?`,
		rec.XP,
		rec.Level,
		rec.Streak.Current,
		rec.Streak.Longest,
		rec.Streak.LastActiveDay,
		rec.TotalActions,
		rec.TotalTasksCreated,
		rec.TotalTasksCompleted,
		rec.TotalQuizzesCompleted,
		toMillis(rec.UpdatedAt),
		rec.UserID,
	)
	if err != nil {
		return fmt.Errorf("update progress record: %w", err)
	}
	return nil
}

func scanRecord(row *sql.Row) (*progress.Record, error) {
	var (
		rec                  progress.Record
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&rec.UserID,
		&rec.XP,
		&rec.Level,
		&rec.Streak.Current,
		&rec.Streak.Longest,
		&rec.Streak.LastActiveDay,
		&rec.TotalActions,
		&rec.TotalTasksCreated,
		&rec.TotalTasksCompleted,
		&rec.TotalQuizzesCompleted,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = fromMillis(createdAt)
	rec.UpdatedAt = fromMillis(updatedAt)
	return &rec, nil
}
