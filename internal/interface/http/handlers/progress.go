package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/alem-hub/progress-engine/internal/application/command"
	"github.com/alem-hub/progress-engine/internal/domain/points"
	"github.com/alem-hub/progress-engine/internal/domain/progress"
)

// ProgressService is the ledger slice of the engine.
type ProgressService interface {
	GetProgress(ctx context.Context, userID string) (*progress.Snapshot, error)
	AddXP(ctx context.Context, cmd command.AddXPCommand) (*progress.Outcome, error)
	AwardActivity(ctx context.Context, cmd command.AwardActivityCommand) (*command.AwardActivityResult, error)
}

// ProgressHandler serves /v1/progress, /v1/xp and /v1/activities.
type ProgressHandler struct {
	svc ProgressService
}

// NewProgressHandler creates a new ProgressHandler.
func NewProgressHandler(svc ProgressService) *ProgressHandler {
	return &ProgressHandler{svc: svc}
}

// GetProgress handles GET /v1/progress.
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	snap, err := h.svc.GetProgress(c.Request.Context(), UserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, snap)
}

type addXPRequest struct {
	Amount     int     `json:"amount"`
	ActionType string  `json:"action_type"`
	SourceID   string  `json:"source_id"`
	Multiplier float64 `json:"multiplier"`
}

// AddXP handles POST /v1/xp. Duplicates answer 200 with applied=false.
func (h *ProgressHandler) AddXP(c *gin.Context) {
	var req addXPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err)
		return
	}

	out, err := h.svc.AddXP(c.Request.Context(), command.AddXPCommand{
		UserID:     UserID(c),
		Amount:     req.Amount,
		ActionType: req.ActionType,
		SourceID:   req.SourceID,
		Multiplier: req.Multiplier,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, out)
}

// activityRequest is the classified activity as sent by the calendar side.
type activityRequest struct {
	Category        string   `json:"category"`
	Subcategory     string   `json:"subcategory"`
	Confidence      *float64 `json:"confidence"`
	DurationMinutes int      `json:"duration_minutes"`
	IsRecurring     bool     `json:"is_recurring"`
}

// input converts the request; a missing confidence means full confidence.
func (r activityRequest) input() command.ActivityInput {
	confidence := 1.0
	if r.Confidence != nil {
		confidence = *r.Confidence
	}
	return command.ActivityInput{
		Classification: points.Classification{
			Category:    points.ParseCategory(r.Category),
			Subcategory: r.Subcategory,
			Confidence:  confidence,
		},
		DurationMinutes: r.DurationMinutes,
		IsRecurring:     r.IsRecurring,
	}
}

type awardActivityRequest struct {
	EventID string `json:"event_id"`
	activityRequest
}

// AwardActivity handles POST /v1/activities.
func (h *ProgressHandler) AwardActivity(c *gin.Context) {
	var req awardActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err)
		return
	}

	res, err := h.svc.AwardActivity(c.Request.Context(), command.AwardActivityCommand{
		UserID:   UserID(c),
		EventID:  req.EventID,
		Activity: req.input(),
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, res)
}
