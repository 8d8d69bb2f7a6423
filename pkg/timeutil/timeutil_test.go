package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayKey_UsesZone(t *testing.T) {
	almaty := time.FixedZone("UTC+5", 5*3600)
	// 21:30 UTC on the 1st is already the 2nd at UTC+5.
	ts := time.Date(2025, 3, 1, 21, 30, 0, 0, time.UTC)

	assert.Equal(t, "2025-03-01", DayKey(ts, time.UTC))
	assert.Equal(t, "2025-03-02", DayKey(ts, almaty))
	assert.Equal(t, "2025-03-01", DayKey(ts, nil))
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC)
	b := time.Date(2025, 3, 2, 0, 1, 0, 0, time.UTC)

	assert.Equal(t, 1, DaysBetween(a, b, time.UTC))
	assert.Equal(t, -1, DaysBetween(b, a, time.UTC))
	assert.Equal(t, 0, DaysBetween(a, a.Add(time.Minute), time.UTC))
}

func TestDaysBetween_AcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// 2025-03-30 is a 23-hour day in Berlin.
	a := time.Date(2025, 3, 29, 12, 0, 0, 0, loc)
	b := time.Date(2025, 3, 31, 12, 0, 0, 0, loc)
	assert.Equal(t, 2, DaysBetween(a, b, loc))
}

func TestDayKey_RoundTripsInZone(t *testing.T) {
	almaty := time.FixedZone("UTC+5", 5*3600)
	ts := time.Date(2025, 6, 10, 22, 4, 5, 0, time.UTC)

	got, err := ParseDayKey(DayKey(ts, almaty), almaty)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 11, 0, 0, 0, 0, almaty), got)
	assert.Equal(t, 0, DaysBetween(got, ts, almaty))
}

func TestParseDayKey(t *testing.T) {
	got, err := ParseDayKey("2025-06-10", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDayKey("10.06.2025", time.UTC)
	assert.Error(t, err)
}

func TestLoadZone(t *testing.T) {
	loc, err := LoadZone("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	_, err = LoadZone("Mars/Olympus_Mons")
	assert.Error(t, err)
}
