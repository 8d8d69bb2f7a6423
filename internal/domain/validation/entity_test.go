package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/progress-engine/internal/domain/shared"
)

var now = time.Date(2025, 5, 12, 10, 0, 0, 0, time.UTC)

func TestNewTaskValidation(t *testing.T) {
	v, err := NewTaskValidation("u1", " ev1 ", "Math revision", now.Add(-2*time.Hour), now)
	require.NoError(t, err)

	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "ev1", v.EventID)
	assert.Equal(t, StatusPending, v.Status())
	assert.True(t, v.IsPending())
}

func TestNewTaskValidation_RequiresFields(t *testing.T) {
	_, err := NewTaskValidation("", "ev1", "x", now, now)
	assert.True(t, errors.Is(err, shared.ErrInvalidValidation))

	_, err = NewTaskValidation("u1", "", "x", now, now)
	assert.True(t, errors.Is(err, shared.ErrInvalidValidation))

	_, err = NewTaskValidation("u1", "ev1", "x", time.Time{}, now)
	assert.True(t, shared.IsValidation(err))
}

func TestResolve_OnlyOnce(t *testing.T) {
	v, err := NewTaskValidation("u1", "ev1", "Run", now, now)
	require.NoError(t, err)

	require.NoError(t, v.Resolve(true, " felt great ", now))
	assert.Equal(t, StatusCompleted, v.Status())
	assert.Equal(t, "felt great", v.Notes)
	require.NotNil(t, v.ValidatedAt)

	err = v.Resolve(false, "", now)
	assert.True(t, errors.Is(err, shared.ErrAlreadyResolved))
	assert.True(t, shared.IsConflict(err))
	assert.Equal(t, StatusCompleted, v.Status())
}

func TestResolve_NotCompleted(t *testing.T) {
	v, err := NewTaskValidation("u1", "ev1", "Run", now, now)
	require.NoError(t, err)

	require.NoError(t, v.Resolve(false, "", now))
	assert.Equal(t, StatusNotCompleted, v.Status())
}
