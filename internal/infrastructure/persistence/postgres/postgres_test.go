package postgres

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestGetMigrations_OrderedAndComplete(t *testing.T) {
	migrations := GetMigrations()
	assert.NotEmpty(t, migrations)

	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version, "versions must be contiguous")
		assert.NotEmpty(t, m.Name)
		assert.NotEmpty(t, strings.TrimSpace(m.UpSQL))
		assert.NotEmpty(t, strings.TrimSpace(m.DownSQL))
	}
}

func TestMigrations_DeclareUniquenessRules(t *testing.T) {
	var all strings.Builder
	for _, m := range GetMigrations() {
		all.WriteString(m.UpSQL)
	}
	schema := all.String()

	assert.Contains(t, schema, "dedup_key TEXT UNIQUE")
	assert.Contains(t, schema, "UNIQUE (user_id, event_id)")
	assert.Contains(t, schema, "memory_markers")
}

func TestErrorClassification(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	serialization := &pgconn.PgError{Code: "40001"}
	deadlock := &pgconn.PgError{Code: "40P01"}

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsUniqueViolation(serialization))

	assert.True(t, IsTransient(serialization))
	assert.True(t, IsTransient(deadlock))
	assert.False(t, IsTransient(unique))
	assert.False(t, IsTransient(errors.New("connection reset")))

	assert.True(t, IsNoRows(fmt.Errorf("find: %w", pgx.ErrNoRows)))
	assert.False(t, IsNoRows(unique))
}
