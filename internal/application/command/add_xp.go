// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/alem-hub/progress-engine/internal/domain/arena"
	"github.com/alem-hub/progress-engine/internal/domain/progress"
	"github.com/alem-hub/progress-engine/internal/domain/shared"
	"github.com/alem-hub/progress-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADD XP COMMAND
// The single accrual entry point of the ledger. Every other command that
// grants XP goes through AddXPHandler so idempotency is enforced in one place.
// ══════════════════════════════════════════════════════════════════════════════

// AddXPCommand contains the data for one accrual.
type AddXPCommand struct {
	// UserID - authenticated user.
	UserID string

	// Amount - positive base amount before the multiplier.
	Amount int

	// ActionType - free-form tag such as "task_completed".
	ActionType string

	// SourceID - optional idempotency source (calendar event id, quiz id).
	SourceID string

	// Multiplier - applied before rounding; zero means 1.0.
	Multiplier float64
}

func (c AddXPCommand) accrual() progress.Accrual {
	return progress.Accrual{
		UserID:     c.UserID,
		Amount:     c.Amount,
		ActionType: c.ActionType,
		SourceID:   c.SourceID,
		Multiplier: c.Multiplier,
	}
}

// Validate validates the command.
func (c AddXPCommand) Validate() error {
	return c.accrual().Validate()
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// AddXPHandler handles the AddXPCommand.
type AddXPHandler struct {
	repo           progress.Repository
	eventPublisher shared.EventPublisher
	log            *logger.Logger

	ladder arena.Ladder
	loc    *time.Location
	now    func() time.Time
}

// AddXPHandlerConfig contains configuration for the handler.
type AddXPHandlerConfig struct {
	// Location defines the calendar day used for streaks.
	Location *time.Location

	// Now is the clock; tests pin it.
	Now func() time.Time
}

// DefaultAddXPHandlerConfig returns default configuration.
func DefaultAddXPHandlerConfig() AddXPHandlerConfig {
	return AddXPHandlerConfig{
		Location: time.UTC,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// NewAddXPHandler creates a new AddXPHandler.
func NewAddXPHandler(
	repo progress.Repository,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
	config AddXPHandlerConfig,
) *AddXPHandler {
	defaults := DefaultAddXPHandlerConfig()
	if config.Location == nil {
		config.Location = defaults.Location
	}
	if config.Now == nil {
		config.Now = defaults.Now
	}
	if eventPublisher == nil {
		eventPublisher = shared.NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}

	return &AddXPHandler{
		repo:           repo,
		eventPublisher: eventPublisher,
		log:            log.Named("add_xp"),
		ladder:         arena.DefaultLadder,
		loc:            config.Location,
		now:            config.Now,
	}
}

// Handle applies the accrual unless its (user, action, source) triple was
// already applied. Duplicates are absorbed and reported with Applied=false.
func (h *AddXPHandler) Handle(ctx context.Context, cmd AddXPCommand) (*progress.Outcome, error) {
	a := cmd.accrual()
	if err := a.Validate(); err != nil {
		return nil, err
	}

	at := h.now().UTC()
	amount := a.AppliedAmount()

	res, err := h.repo.Accrue(ctx, a.Entry(at), func(rec *progress.Record) {
		rec.Apply(amount, a.ActionType, at, h.loc)
	})
	if err != nil {
		return nil, fmt.Errorf("add_xp: failed to accrue: %w", err)
	}

	out := progress.NewOutcome(res, h.ladder)
	if !out.Applied {
		h.log.Debug("duplicate accrual absorbed",
			logger.UserID(cmd.UserID),
			logger.ActionType(cmd.ActionType),
			logger.String("source_id", cmd.SourceID),
		)
		return &out, nil
	}

	h.log.Info("xp accrued",
		logger.UserID(cmd.UserID),
		logger.ActionType(cmd.ActionType),
		logger.XPAmount(out.Amount),
		logger.Int("xp_total", out.XPAfter),
	)

	_ = h.eventPublisher.Publish(shared.NewXPGainedEvent(cmd.UserID, out.Amount, out.XPAfter, cmd.ActionType, cmd.SourceID))

	if out.LeveledUp {
		tier := h.ladder.TierForXP(out.XPAfter)
		h.log.Info("level up",
			logger.UserID(cmd.UserID),
			logger.LevelNumber(tier.Level),
			logger.String("arena", tier.Name),
		)
		_ = h.eventPublisher.Publish(shared.NewLevelUpEvent(cmd.UserID, out.PreviousLevel, tier.Level, tier.Name, tier.Reward))
	}

	return &out, nil
}
