package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION SUPPORT
// ══════════════════════════════════════════════════════════════════════════════

// Migration represents a database migration.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator handles database migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a new migrator with embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: GetMigrations(),
		tableName:  "schema_migrations",
	}
}

// EnsureMigrationTable creates the migration tracking table if it doesn't exist.
func (m *Migrator) EnsureMigrationTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`, m.tableName)

	if _, err := m.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns all applied migrations.
func (m *Migrator) GetAppliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	query := fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName)

	rows, err := m.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = appliedAt
	}

	return applied, rows.Err()
}

// Migrate applies all pending migrations, each in its own transaction.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if _, isApplied := applied[mig.Version]; isApplied {
			continue
		}

		err := m.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", mig.Version, err)
			}
			insertQuery := fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName)
			_, err := tx.Exec(ctx, insertQuery, mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
	}

	return nil
}

// Status returns the migration status.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return nil, err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Migration, len(m.migrations))
	copy(result, m.migrations)
	for i := range result {
		if appliedAt, ok := applied[result[i].Version]; ok {
			result[i].IsApplied = true
			result[i].AppliedAt = appliedAt
		}
	}

	return result, nil
}

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_progress_ledger", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_task_validations", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_quizzes", UpSQL: migration003Up, DownSQL: migration003Down},
		{Version: 4, Name: "create_memory_markers", UpSQL: migration004Up, DownSQL: migration004Down},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: PROGRESS LEDGER
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- One row per user, created lazily by upsert.
CREATE TABLE IF NOT EXISTS progress_records (
    user_id TEXT PRIMARY KEY,
    xp INTEGER NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 1,
    current_streak INTEGER NOT NULL DEFAULT 0,
    longest_streak INTEGER NOT NULL DEFAULT 0,
    last_active_day TEXT NOT NULL DEFAULT '',
    total_actions INTEGER NOT NULL DEFAULT 0,
    total_tasks_created INTEGER NOT NULL DEFAULT 0,
    total_tasks_completed INTEGER NOT NULL DEFAULT 0,
    total_quizzes_completed INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_xp CHECK (xp >= 0),
    CONSTRAINT valid_level CHECK (level >= 1)
);

-- Applied accruals. dedup_key is NULL for accruals without a source, and
-- NULLs never collide under a UNIQUE constraint.
CREATE TABLE IF NOT EXISTS xp_accruals (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES progress_records(user_id) ON DELETE CASCADE,
    action_type TEXT NOT NULL,
    source_id TEXT,
    dedup_key TEXT UNIQUE,
    amount INTEGER NOT NULL,
    multiplier DOUBLE PRECISION NOT NULL DEFAULT 1.0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_amount CHECK (amount > 0)
);

CREATE INDEX IF NOT EXISTS idx_xp_accruals_user ON xp_accruals(user_id, created_at DESC);
`

const migration001Down = `
DROP TABLE IF EXISTS xp_accruals;
DROP TABLE IF EXISTS progress_records;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: TASK VALIDATIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS task_validations (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    event_id TEXT NOT NULL,
    event_title TEXT NOT NULL DEFAULT '',
    event_date TIMESTAMP WITH TIME ZONE NOT NULL,
    completed BOOLEAN,
    notes TEXT NOT NULL DEFAULT '',
    validated_at TIMESTAMP WITH TIME ZONE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_task_validations_user_event UNIQUE (user_id, event_id)
);

-- Pending list, ordered by event date
CREATE INDEX IF NOT EXISTS idx_task_validations_pending
    ON task_validations(user_id, event_date) WHERE completed IS NULL;
`

const migration002Down = `
DROP TABLE IF EXISTS task_validations;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: QUIZZES
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS quizzes (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    event_id TEXT NOT NULL,
    event_title TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    goal_event_id TEXT NOT NULL DEFAULT '',
    series_id TEXT NOT NULL DEFAULT '',
    questions JSONB NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'created',
    score INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    completed_at TIMESTAMP WITH TIME ZONE,

    CONSTRAINT uq_quizzes_user_event UNIQUE (user_id, event_id),
    CONSTRAINT valid_quiz_status CHECK (status IN ('created', 'in_progress', 'completed')),
    CONSTRAINT valid_score CHECK (score >= 0)
);

CREATE INDEX IF NOT EXISTS idx_quizzes_resumable
    ON quizzes(user_id, created_at DESC) WHERE status <> 'completed';

-- Answers are write-once per question.
CREATE TABLE IF NOT EXISTS quiz_answers (
    quiz_id TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
    question_id TEXT NOT NULL,
    answer_index SMALLINT NOT NULL,
    answered_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (quiz_id, question_id),
    CONSTRAINT valid_answer_index CHECK (answer_index BETWEEN 0 AND 3)
);
`

const migration003Down = `
DROP TABLE IF EXISTS quiz_answers;
DROP TABLE IF EXISTS quizzes;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: MEMORY MARKERS
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Typed throttle markers: quiz_proposal (key = YYYY-MM-DD) and
-- quiz_preference (key = do_not_ask:<event id>). Never expired.
CREATE TABLE IF NOT EXISTS memory_markers (
    user_id TEXT NOT NULL,
    memory_type VARCHAR(50) NOT NULL,
    marker_key TEXT NOT NULL,
    value TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, memory_type, marker_key)
);
`

const migration004Down = `
DROP TABLE IF EXISTS memory_markers;
`
