package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/progress-engine/internal/domain/shared"
	"github.com/alem-hub/progress-engine/internal/domain/validation"
)

// ══════════════════════════════════════════════════════════════════════════════
// TASK VALIDATION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ValidationRepository implements validation.Repository for PostgreSQL.
type ValidationRepository struct {
	conn *Connection
}

// NewValidationRepository creates a new ValidationRepository.
func NewValidationRepository(conn *Connection) *ValidationRepository {
	return &ValidationRepository{conn: conn}
}

const validationColumns = `
	id, user_id, event_id, event_title, event_date, completed, notes, validated_at, created_at`

// Register inserts v unless (user_id, event_id) already exists.
func (r *ValidationRepository) Register(ctx context.Context, v *validation.TaskValidation) (*validation.TaskValidation, bool, error) {
	tag, err := r.conn.Exec(ctx, `
		INSERT INTO task_validations (id, user_id, event_id, event_title, event_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, event_id) DO NOTHING
	`, v.ID, v.UserID, v.EventID, v.EventTitle, v.EventDate, v.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("failed to register task validation: %w", err)
	}

	stored, err := scanValidation(r.conn.QueryRow(ctx,
		`SELECT `+validationColumns+` FROM task_validations WHERE user_id = $1 AND event_id = $2`,
		v.UserID, v.EventID,
	))
	if err != nil {
		return nil, false, fmt.Errorf("failed to load task validation: %w", err)
	}
	return stored, tag.RowsAffected() == 1, nil
}

// FindByID returns the user's validation.
func (r *ValidationRepository) FindByID(ctx context.Context, userID, id string) (*validation.TaskValidation, error) {
	v, err := scanValidation(r.conn.QueryRow(ctx,
		`SELECT `+validationColumns+` FROM task_validations WHERE id = $1 AND user_id = $2`,
		id, userID,
	))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrValidationNotFound
		}
		return nil, fmt.Errorf("failed to get task validation: %w", err)
	}
	return v, nil
}

// ListPending returns pending validations, oldest event first.
func (r *ValidationRepository) ListPending(ctx context.Context, userID string) ([]*validation.TaskValidation, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT `+validationColumns+`
		FROM task_validations
		WHERE user_id = $1 AND completed IS NULL
		ORDER BY event_date ASC, created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending validations: %w", err)
	}
	defer rows.Close()

	list := make([]*validation.TaskValidation, 0)
	for rows.Next() {
		v, err := scanValidation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task validation: %w", err)
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// CountPending counts pending validations.
func (r *ValidationRepository) CountPending(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM task_validations WHERE user_id = $1 AND completed IS NULL`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending validations: %w", err)
	}
	return n, nil
}

// Resolve locks the row, applies the entity transition and writes it back.
// The completed IS NULL guard keeps the update single-transition even if the
// lock is bypassed.
func (r *ValidationRepository) Resolve(ctx context.Context, userID, id string, completed bool, notes string, at time.Time) (*validation.TaskValidation, error) {
	var resolved *validation.TaskValidation
	err := r.conn.WithRetryTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		v, err := scanValidation(tx.QueryRow(ctx,
			`SELECT `+validationColumns+` FROM task_validations WHERE id = $1 AND user_id = $2 FOR UPDATE`,
			id, userID,
		))
		if err != nil {
			if IsNoRows(err) {
				return shared.ErrValidationNotFound
			}
			return fmt.Errorf("failed to lock task validation: %w", err)
		}
		if err := v.Resolve(completed, notes, at); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE task_validations
			SET completed = $1, notes = $2, validated_at = $3
			WHERE id = $4 AND user_id = $5 AND completed IS NULL
		`, *v.Completed, v.Notes, *v.ValidatedAt, id, userID)
		if err != nil {
			return fmt.Errorf("failed to resolve task validation: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrAlreadyResolved
		}
		resolved = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

func scanValidation(row pgx.Row) (*validation.TaskValidation, error) {
	var v validation.TaskValidation
	err := row.Scan(
		&v.ID,
		&v.UserID,
		&v.EventID,
		&v.EventTitle,
		&v.EventDate,
		&v.Completed,
		&v.Notes,
		&v.ValidatedAt,
		&v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.EventDate = v.EventDate.UTC()
	v.CreatedAt = v.CreatedAt.UTC()
	if v.ValidatedAt != nil {
		t := v.ValidatedAt.UTC()
		v.ValidatedAt = &t
	}
	return &v, nil
}
