package progress

import (
	"context"
	"time"
)

// ApplyFunc mutates a record that the repository holds locked for the
// duration of the accrual transaction.
type ApplyFunc func(rec *Record)

// Result is what the repository observed while accruing.
type Result struct {
	// Applied is false when the entry's dedup key was already recorded.
	Applied bool

	// Before and After are the record around the accrual. Equal when not applied.
	Before Record
	After  Record
}

// Repository is the durable side of the ledger.
//
// Implementations must make Accrue atomic: the entry insert, the lazy record
// creation and the record update happen in one transaction, and a duplicate
// DedupKey must be detected by a uniqueness constraint, not by a prior read.
type Repository interface {
	// Accrue records entry and applies it via apply, unless an entry with the
	// same non-empty DedupKey already exists, in which case nothing changes.
	Accrue(ctx context.Context, entry Entry, apply ApplyFunc) (*Result, error)

	// GetOrCreate returns the user's record, creating the initial one if absent.
	GetOrCreate(ctx context.Context, userID string, now time.Time) (*Record, error)
}
