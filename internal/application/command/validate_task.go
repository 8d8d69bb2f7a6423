package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alem-hub/progress-engine/internal/domain/points"
	"github.com/alem-hub/progress-engine/internal/domain/progress"
	"github.com/alem-hub/progress-engine/internal/domain/shared"
	"github.com/alem-hub/progress-engine/internal/domain/validation"
	"github.com/alem-hub/progress-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER TASK COMMAND
// Creates the pending confirmation for an activity whose time has passed.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterTaskCommand registers one calendar activity for validation.
type RegisterTaskCommand struct {
	UserID     string
	EventID    string
	EventTitle string
	EventDate  time.Time
}

// Validate validates the command.
func (c RegisterTaskCommand) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return errors.New("register_task: user_id is required")
	}
	if strings.TrimSpace(c.EventID) == "" {
		return errors.New("register_task: event_id is required")
	}
	if c.EventDate.IsZero() {
		return errors.New("register_task: event_date is required")
	}
	return nil
}

// RegisterTaskResult contains the stored validation.
type RegisterTaskResult struct {
	Validation *validation.TaskValidation `json:"validation"`

	// Created is false when the activity was already registered.
	Created bool `json:"created"`
}

// RegisterTaskHandler handles the RegisterTaskCommand.
type RegisterTaskHandler struct {
	repo validation.Repository
	log  *logger.Logger
	now  func() time.Time
}

// NewRegisterTaskHandler creates a new RegisterTaskHandler.
func NewRegisterTaskHandler(repo validation.Repository, log *logger.Logger, now func() time.Time) *RegisterTaskHandler {
	if log == nil {
		log = logger.Nop()
	}
	if now == nil {
		now = time.Now
	}
	return &RegisterTaskHandler{repo: repo, log: log.Named("register_task"), now: now}
}

// Handle registers the task; repeated registrations return the existing row.
func (h *RegisterTaskHandler) Handle(ctx context.Context, cmd RegisterTaskCommand) (*RegisterTaskResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, invalid(err)
	}

	v, err := validation.NewTaskValidation(cmd.UserID, cmd.EventID, cmd.EventTitle, cmd.EventDate, h.now())
	if err != nil {
		return nil, err
	}

	stored, created, err := h.repo.Register(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("register_task: %w", err)
	}
	if created {
		h.log.Info("task registered for validation",
			logger.UserID(cmd.UserID),
			logger.EventID(cmd.EventID),
			logger.ValidationID(stored.ID),
		)
	}
	return &RegisterTaskResult{Validation: stored, Created: created}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// VALIDATE TASK COMMAND
// Resolves a pending validation exactly once. A completed task earns
// task_completed XP keyed by its event id.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultTaskXP is granted when no activity details are supplied.
const DefaultTaskXP = 10

// ValidateTaskCommand contains the user's answer.
type ValidateTaskCommand struct {
	UserID       string
	ValidationID string
	Completed    bool
	Notes        string

	// Activity - optional; when present the points engine sets the amount.
	Activity *ActivityInput
}

// Validate validates the command.
func (c ValidateTaskCommand) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return errors.New("validate_task: user_id is required")
	}
	if strings.TrimSpace(c.ValidationID) == "" {
		return errors.New("validate_task: validation_id is required")
	}
	return nil
}

// ValidateTaskResult contains the resolved validation and any XP granted.
type ValidateTaskResult struct {
	Validation  *validation.TaskValidation `json:"validation"`
	Outcome     *progress.Outcome          `json:"outcome,omitempty"`
	Calculation *points.Calculation        `json:"calculation,omitempty"`
}

// ValidateTaskHandler handles ValidateTaskCommand and DismissTaskCommand.
type ValidateTaskHandler struct {
	repo           validation.Repository
	addXP          *AddXPHandler
	eventPublisher shared.EventPublisher
	log            *logger.Logger

	defaultTaskXP int
	now           func() time.Time
}

// ValidateTaskHandlerConfig contains configuration for the handler.
type ValidateTaskHandlerConfig struct {
	DefaultTaskXP int
	Now           func() time.Time
}

// DefaultValidateTaskHandlerConfig returns default configuration.
func DefaultValidateTaskHandlerConfig() ValidateTaskHandlerConfig {
	return ValidateTaskHandlerConfig{
		DefaultTaskXP: DefaultTaskXP,
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

// NewValidateTaskHandler creates a new ValidateTaskHandler.
func NewValidateTaskHandler(
	repo validation.Repository,
	addXP *AddXPHandler,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
	config ValidateTaskHandlerConfig,
) *ValidateTaskHandler {
	defaults := DefaultValidateTaskHandlerConfig()
	if config.DefaultTaskXP <= 0 {
		config.DefaultTaskXP = defaults.DefaultTaskXP
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

	return &ValidateTaskHandler{
		repo:           repo,
		addXP:          addXP,
		eventPublisher: eventPublisher,
		log:            log.Named("validate_task"),
		defaultTaskXP:  config.DefaultTaskXP,
		now:            config.Now,
	}
}

// Handle resolves the validation. Only the call whose conditional update
// moved the row out of pending accrues XP, so a completion that loses to a
// dismiss credits nothing.
//
// When a completed=true call finds the row already completed, the accrual is
// re-issued before ErrAlreadyResolved is returned. It is keyed by the event
// id, so it is inert unless the winning call failed between resolve and
// accrual.
func (h *ValidateTaskHandler) Handle(ctx context.Context, cmd ValidateTaskCommand) (*ValidateTaskResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, invalid(err)
	}

	resolved, err := h.resolve(ctx, cmd.UserID, cmd.ValidationID, cmd.Completed, cmd.Notes)
	if errors.Is(err, shared.ErrAlreadyResolved) && cmd.Completed {
		if reissueErr := h.reissue(ctx, cmd); reissueErr != nil {
			return nil, reissueErr
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	result := &ValidateTaskResult{Validation: resolved}
	if cmd.Completed {
		result.Calculation, result.Outcome, err = h.accrue(ctx, cmd, resolved.EventID)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (h *ValidateTaskHandler) accrue(ctx context.Context, cmd ValidateTaskCommand, eventID string) (*points.Calculation, *progress.Outcome, error) {
	var calc *points.Calculation
	amount := h.defaultTaskXP
	if cmd.Activity != nil {
		c := cmd.Activity.Score()
		calc = &c
		amount = c.TotalPoints
	}

	out, err := h.addXP.Handle(ctx, AddXPCommand{
		UserID:     cmd.UserID,
		Amount:     amount,
		ActionType: progress.ActionTaskCompleted,
		SourceID:   eventID,
	})
	if err != nil {
		return nil, nil, err
	}
	return calc, out, nil
}

func (h *ValidateTaskHandler) reissue(ctx context.Context, cmd ValidateTaskCommand) error {
	stored, err := h.repo.FindByID(ctx, cmd.UserID, cmd.ValidationID)
	if err != nil {
		return err
	}
	if stored.Status() != validation.StatusCompleted {
		return nil
	}
	_, _, err = h.accrue(ctx, cmd, stored.EventID)
	return err
}

// DismissTaskCommand resolves a validation as not completed.
type DismissTaskCommand struct {
	UserID       string
	ValidationID string
}

// Dismiss is validate with completed=false and no notes. It never grants XP.
func (h *ValidateTaskHandler) Dismiss(ctx context.Context, cmd DismissTaskCommand) (*validation.TaskValidation, error) {
	check := ValidateTaskCommand{UserID: cmd.UserID, ValidationID: cmd.ValidationID}
	if err := check.Validate(); err != nil {
		return nil, invalid(err)
	}
	return h.resolve(ctx, cmd.UserID, cmd.ValidationID, false, "")
}

func (h *ValidateTaskHandler) resolve(ctx context.Context, userID, validationID string, completed bool, notes string) (*validation.TaskValidation, error) {
	resolved, err := h.repo.Resolve(ctx, userID, validationID, completed, strings.TrimSpace(notes), h.now())
	if err != nil {
		return nil, err
	}

	h.log.Info("task validated",
		logger.UserID(userID),
		logger.ValidationID(validationID),
		logger.EventID(resolved.EventID),
		logger.Bool("completed", completed),
	)
	_ = h.eventPublisher.Publish(shared.NewTaskValidatedEvent(userID, validationID, resolved.EventID, completed))
	return resolved, nil
}
