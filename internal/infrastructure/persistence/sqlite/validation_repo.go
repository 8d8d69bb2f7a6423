package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alem-hub/progress-engine/internal/domain/shared"
	"github.com/alem-hub/progress-engine/internal/domain/validation"
)

// ValidationRepository implements validation.Repository on SQLite.
type ValidationRepository struct {
	db *DB
}

// NewValidationRepository creates a new ValidationRepository.
func NewValidationRepository(db *DB) *ValidationRepository {
	return &ValidationRepository{db: db}
}

const validationColumns = `
	id, user_id, event_id, event_title, event_date, completed, notes, validated_at, created_at`

// Register inserts v unless (user_id, event_id) already exists.
func (r *ValidationRepository) Register(ctx context.Context, v *validation.TaskValidation) (*validation.TaskValidation, bool, error) {
	var (
		stored  *validation.TaskValidation
		created bool
	)
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO task_validations (id, user_id, event_id, event_title, event_date, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id, event_id) DO NOTHING`,
			v.ID, v.UserID, v.EventID, v.EventTitle, toMillis(v.EventDate), toMillis(v.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("register task validation: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		created = n == 1

		stored, err = scanValidation(tx.QueryRowContext(ctx,
			`SELECT `+validationColumns+` FROM task_validations WHERE user_id = ? AND event_id = ?`,
			v.UserID, v.EventID,
		))
		if err != nil {
			return fmt.Errorf("load task validation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

// FindByID returns the user's validation.
func (r *ValidationRepository) FindByID(ctx context.Context, userID, id string) (*validation.TaskValidation, error) {
	return findValidation(ctx, r.db.sqlDB, userID, id)
}

// ListPending returns pending validations, oldest event first.
func (r *ValidationRepository) ListPending(ctx context.Context, userID string) ([]*validation.TaskValidation, error) {
	rows, err := r.db.sqlDB.QueryContext(ctx, `
		SELECT `+validationColumns+`
		FROM task_validations
		WHERE user_id = ? AND completed IS NULL
		ORDER BY event_date ASC, created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list pending validations: %w", err)
	}
	defer rows.Close()

	list := make([]*validation.TaskValidation, 0)
	for rows.Next() {
		v, err := scanValidation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task validation: %w", err)
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// CountPending counts pending validations.
func (r *ValidationRepository) CountPending(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM task_validations WHERE user_id = ? AND completed IS NULL`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending validations: %w", err)
	}
	return n, nil
}

// Resolve applies the entity transition and writes it back while the row is
// still pending. The single-connection pool serializes the transaction.
func (r *ValidationRepository) Resolve(ctx context.Context, userID, id string, completed bool, notes string, at time.Time) (*validation.TaskValidation, error) {
	var resolved *validation.TaskValidation
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		v, err := findValidation(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if err := v.Resolve(completed, notes, at); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE task_validations
			SET completed = ?, notes = ?, validated_at = ?
			WHERE id = ? AND user_id = ? AND completed IS NULL`,
			*v.Completed, v.Notes, toMillis(*v.ValidatedAt), id, userID,
		)
		if err != nil {
			return fmt.Errorf("resolve task validation: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return shared.ErrAlreadyResolved
		}
		resolved, err = findValidation(ctx, tx, userID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

func findValidation(ctx context.Context, q queryer, userID, id string) (*validation.TaskValidation, error) {
	v, err := scanValidation(q.QueryRowContext(ctx,
		`SELECT `+validationColumns+` FROM task_validations WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrValidationNotFound
		}
		return nil, fmt.Errorf("get task validation: %w", err)
	}
	return v, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanValidation(row rowScanner) (*validation.TaskValidation, error) {
	var (
		v                    validation.TaskValidation
		eventDate, createdAt int64
		completed            sql.NullBool
		validatedAt          sql.NullInt64
	)
	err := row.Scan(
		&v.ID,
		&v.UserID,
		&v.EventID,
		&v.EventTitle,
		&eventDate,
		&completed,
		&v.Notes,
		&validatedAt,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	v.EventDate = fromMillis(eventDate)
	v.CreatedAt = fromMillis(createdAt)
	v.ValidatedAt = timePtr(validatedAt)
	if completed.Valid {
		c := completed.Bool
		v.Completed = &c
	}
	return &v, nil
}
