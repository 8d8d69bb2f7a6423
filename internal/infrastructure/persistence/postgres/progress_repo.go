package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/progress-engine/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progress.Repository for PostgreSQL.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

const progressColumns = `
	user_id, xp, level, current_streak, longest_streak, last_active_day,
	total_actions, total_tasks_created, total_tasks_completed, total_quizzes_completed,
	created_at, updated_at`

// Accrue records the entry and applies it in one transaction.
//
// The record row is created if missing and then locked, so concurrent
// accruals for one user serialize on it. The entry insert relies on the
// unique dedup_key: a conflict means the accrual was already applied.
func (r *ProgressRepository) Accrue(ctx context.Context, entry progress.Entry, apply progress.ApplyFunc) (*progress.Result, error) {
	var result *progress.Result

	err := r.conn.WithRetryTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if err := ensureRecord(ctx, tx, entry.UserID, entry.CreatedAt); err != nil {
			return err
		}

		rec, err := scanRecord(tx.QueryRow(ctx,
			`SELECT `+progressColumns+` FROM progress_records WHERE user_id = $1 FOR UPDATE`,
			entry.UserID,
		))
		if err != nil {
			return fmt.Errorf("failed to lock progress record: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO xp_accruals (id, user_id, action_type, source_id, dedup_key, amount, multiplier, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (dedup_key) DO NOTHING
		`,
			entry.ID,
			entry.UserID,
			entry.ActionType,
			nullString(entry.SourceID),
			nullString(entry.DedupKey),
			entry.Amount,
			entry.Multiplier,
			entry.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert accrual: %w", err)
		}

		before := *rec
		if tag.RowsAffected() == 0 {
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
	if err := ensureRecord(ctx, r.conn, userID, now); err != nil {
		return nil, err
	}

	rec, err := scanRecord(r.conn.QueryRow(ctx,
		`SELECT `+progressColumns+` FROM progress_records WHERE user_id = $1`, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get progress record: %w", err)
	}
	return rec, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func ensureRecord(ctx context.Context, q Querier, userID string, now time.Time) error {
	_, err := q.Exec(ctx, `
		INSERT INTO progress_records (user_id, created_at, updated_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, now.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert progress record: %w", err)
	}
	return nil
}

func updateRecord(ctx context.Context, q Querier, rec *progress.Record) error {
	_, err := q.Exec(ctx, `
		UPDATE progress_records SET
			xp = $1,
			level = $2,
			current_streak = $3,
			longest_streak = $4,
			last_active_day = $5,
			total_actions = $6,
			total_tasks_created = $7,
			total_tasks_completed = $8,
			total_quizzes_completed = $9,
			updated_at = $10
		WHERE user_id = $11
	`,
		rec.XP,
		rec.Level,
		rec.Streak.Current,
		rec.Streak.Longest,
		rec.Streak.LastActiveDay,
		rec.TotalActions,
		rec.TotalTasksCreated,
		rec.TotalTasksCompleted,
		rec.TotalQuizzesCompleted,
		rec.UpdatedAt.UTC(),
		rec.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update progress record: %w", err)
	}
	return nil
}

func scanRecord(row pgx.Row) (*progress.Record, error) {
	var rec progress.Record
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
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
