package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alem-hub/progress-engine/internal/application/command"
	"github.com/alem-hub/progress-engine/internal/domain/validation"
)

// TaskService is the task-validation slice of the engine.
type TaskService interface {
	RegisterTask(ctx context.Context, cmd command.RegisterTaskCommand) (*command.RegisterTaskResult, error)
	ListPendingTasks(ctx context.Context, userID string) ([]*validation.TaskValidation, error)
	CountPendingTasks(ctx context.Context, userID string) (int, error)
	ValidateTask(ctx context.Context, cmd command.ValidateTaskCommand) (*command.ValidateTaskResult, error)
	DismissTask(ctx context.Context, userID, validationID string) (*validation.TaskValidation, error)
}

// TaskHandler serves /v1/tasks.
type TaskHandler struct {
	svc TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(svc TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

type registerTaskRequest struct {
	EventID    string    `json:"event_id"`
	EventTitle string    `json:"event_title"`
	EventDate  time.Time `json:"event_date"`
}

// Register handles POST /v1/tasks: 201 on creation, 200 for an existing row.
func (h *TaskHandler) Register(c *gin.Context) {
	var req registerTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err)
		return
	}

	res, err := h.svc.RegisterTask(c.Request.Context(), command.RegisterTaskCommand{
		UserID:     UserID(c),
		EventID:    req.EventID,
		EventTitle: req.EventTitle,
		EventDate:  req.EventDate,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	if res.Created {
		RespondCreated(c, res.Validation)
		return
	}
	RespondOK(c, res.Validation)
}

// ListPending handles GET /v1/tasks/pending.
func (h *TaskHandler) ListPending(c *gin.Context) {
	items, err := h.svc.ListPendingTasks(c.Request.Context(), UserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"tasks": items})
}

// CountPending handles GET /v1/tasks/pending/count.
func (h *TaskHandler) CountPending(c *gin.Context) {
	n, err := h.svc.CountPendingTasks(c.Request.Context(), UserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"count": n})
}

type validateTaskRequest struct {
	Completed *bool            `json:"completed"`
	Notes     string           `json:"notes"`
	Activity  *activityRequest `json:"activity"`
}

var errCompletedRequired = errors.New("completed is required")

// Validate handles POST /v1/tasks/:id/validate.
func (h *TaskHandler) Validate(c *gin.Context) {
	var req validateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err)
		return
	}
	if req.Completed == nil {
		RespondBadRequest(c, errCompletedRequired)
		return
	}

	cmd := command.ValidateTaskCommand{
		UserID:       UserID(c),
		ValidationID: c.Param("id"),
		Completed:    *req.Completed,
		Notes:        req.Notes,
	}
	if req.Activity != nil {
		in := req.Activity.input()
		cmd.Activity = &in
	}

	res, err := h.svc.ValidateTask(c.Request.Context(), cmd)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, res)
}

// Dismiss handles POST /v1/tasks/:id/dismiss.
func (h *TaskHandler) Dismiss(c *gin.Context) {
	v, err := h.svc.DismissTask(c.Request.Context(), UserID(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, v)
}
