package progress

import (
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/alem-hub/progress-engine/internal/domain/shared"
)

// Accrual is one request to add XP. (UserID, ActionType, SourceID) is the
// natural idempotency key when SourceID is set.
type Accrual struct {
	UserID     string
	Amount     int
	ActionType string
	SourceID   string

	// Multiplier scales Amount before rounding. Zero means 1.0.
	Multiplier float64
}

// Validate rejects accruals the ledger must never apply.
func (a Accrual) Validate() error {
	if strings.TrimSpace(a.UserID) == "" {
		return fmt.Errorf("%w: user id is required", shared.ErrInvalidAccrual)
	}
	if a.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %d", shared.ErrInvalidAccrual, a.Amount)
	}
	if strings.TrimSpace(a.ActionType) == "" {
		return fmt.Errorf("%w: action type is required", shared.ErrInvalidAccrual)
	}
	m := a.Multiplier
	if math.IsNaN(m) || math.IsInf(m, 0) || m < 0 {
		return fmt.Errorf("%w: multiplier must be a non-negative number", shared.ErrInvalidAccrual)
	}
	if a.AppliedAmount() <= 0 {
		return fmt.Errorf("%w: amount %d x %.2f rounds to zero", shared.ErrInvalidAccrual, a.Amount, m)
	}
	return nil
}

// EffectiveMultiplier returns the multiplier with the zero default resolved.
func (a Accrual) EffectiveMultiplier() float64 {
	if a.Multiplier == 0 {
		return 1.0
	}
	return a.Multiplier
}

// AppliedAmount is round(Amount * multiplier).
func (a Accrual) AppliedAmount() int {
	return int(math.Round(float64(a.Amount) * a.EffectiveMultiplier()))
}

// DedupKey is a fixed-width digest of the idempotency triple, or "" when the
// accrual has no source and therefore is never deduplicated.
func (a Accrual) DedupKey() string {
	if a.SourceID == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(a.UserID + "\x00" + a.ActionType + "\x00" + a.SourceID))
	return hex.EncodeToString(sum[:])
}

// Entry builds the ledger row for a validated accrual.
func (a Accrual) Entry(at time.Time) Entry {
	return Entry{
		ID:         uuid.NewString(),
		UserID:     a.UserID,
		ActionType: a.ActionType,
		SourceID:   a.SourceID,
		DedupKey:   a.DedupKey(),
		Amount:     a.AppliedAmount(),
		Multiplier: a.EffectiveMultiplier(),
		CreatedAt:  at,
	}
}

// Entry is the persisted trace of an applied accrual. A unique DedupKey is
// what makes repeated accruals a no-op at the storage layer.
type Entry struct {
	ID         string
	UserID     string
	ActionType string
	SourceID   string
	DedupKey   string
	Amount     int
	Multiplier float64
	CreatedAt  time.Time
}
