package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

type migration struct {
	version int
	name    string
	up      string
}

var migrations = []migration{
	{version: 1, name: "create_progress_ledger", up: migration001},
	{version: 2, name: "create_task_validations", up: migration002},
	{version: 3, name: "create_quizzes", up: migration003},
	{version: 4, name: "create_memory_markers", up: migration004},
}

func (db *DB) migrate(ctx context.Context) error {
	_, err := db.sqlDB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at INTEGER NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	for _, m := range migrations {
		err := db.withTx(ctx, func(tx *sql.Tx) error {
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = ?)`, m.version,
			).Scan(&exists); err != nil {
				return err
			}
			if exists {
				return nil
			}
			if _, err := tx.ExecContext(ctx, m.up); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
				m.version, m.name, toMillis(time.Now()),
			)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

const migration001 = `
CREATE TABLE IF NOT EXISTS progress_records (
    user_id TEXT PRIMARY KEY,
    xp INTEGER NOT NULL DEFAULT 0 CHECK (xp >= 0),
    level INTEGER NOT NULL DEFAULT 1 CHECK (level >= 1),
    current_streak INTEGER NOT NULL DEFAULT 0,
    longest_streak INTEGER NOT NULL DEFAULT 0,
    last_active_day TEXT NOT NULL DEFAULT '',
    total_actions INTEGER NOT NULL DEFAULT 0,
    total_tasks_created INTEGER NOT NULL DEFAULT 0,
    total_tasks_completed INTEGER NOT NULL DEFAULT 0,
    total_quizzes_completed INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS xp_accruals (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES progress_records(user_id) ON DELETE CASCADE,
    action_type TEXT NOT NULL,
    source_id TEXT,
    dedup_key TEXT UNIQUE,
    amount INTEGER NOT NULL CHECK (amount > 0),
    multiplier REAL NOT NULL DEFAULT 1.0,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_xp_accruals_user ON xp_accruals(user_id, created_at);
`

const migration002 = `
CREATE TABLE IF NOT EXISTS task_validations (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    event_id TEXT NOT NULL,
    event_title TEXT NOT NULL DEFAULT '',
    event_date INTEGER NOT NULL,
    completed INTEGER,
    notes TEXT NOT NULL DEFAULT '',
    validated_at INTEGER,
    created_at INTEGER NOT NULL,
    UNIQUE (user_id, event_id)
);

CREATE INDEX IF NOT EXISTS idx_task_validations_pending
    ON task_validations(user_id, event_date) WHERE completed IS NULL;
`

const migration003 = `
CREATE TABLE IF NOT EXISTS quizzes (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    event_id TEXT NOT NULL,
    event_title TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    goal_event_id TEXT NOT NULL DEFAULT '',
    series_id TEXT NOT NULL DEFAULT '',
    questions TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'created' CHECK (status IN ('created', 'in_progress', 'completed')),
    score INTEGER NOT NULL DEFAULT 0 CHECK (score >= 0),
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    completed_at INTEGER,
    UNIQUE (user_id, event_id)
);

CREATE TABLE IF NOT EXISTS quiz_answers (
    quiz_id TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
    question_id TEXT NOT NULL,
    answer_index INTEGER NOT NULL CHECK (answer_index BETWEEN 0 AND 3),
    answered_at INTEGER NOT NULL,
    PRIMARY KEY (quiz_id, question_id)
);
`

const migration004 = `
CREATE TABLE IF NOT EXISTS memory_markers (
    user_id TEXT NOT NULL,
    memory_type TEXT NOT NULL,
    marker_key TEXT NOT NULL,
    value TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (user_id, memory_type, marker_key)
);
`
