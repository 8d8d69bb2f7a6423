package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alem-hub/progress-engine/internal/application/command"
	"github.com/alem-hub/progress-engine/internal/domain/quiz"
)

// QuizService is the quiz slice of the engine.
type QuizService interface {
	CheckQuizProposal(ctx context.Context, cmd command.CheckQuizProposalCommand) (quiz.Decision, error)
	DismissQuizPermanently(ctx context.Context, userID, eventID string) error
	CreateQuiz(ctx context.Context, cmd command.CreateQuizCommand) (*quiz.View, error)
	AnswerQuizQuestion(ctx context.Context, cmd command.AnswerQuizQuestionCommand) (quiz.Feedback, error)
	CompleteQuiz(ctx context.Context, userID, quizID string) (*command.CompleteQuizResult, error)
	GetQuiz(ctx context.Context, userID, quizID string) (*quiz.View, error)
	ListResumableQuizzes(ctx context.Context, userID string) ([]quiz.View, error)
}

// QuizHandler serves quiz proposals, preferences and quizzes.
type QuizHandler struct {
	svc QuizService
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(svc QuizService) *QuizHandler {
	return &QuizHandler{svc: svc}
}

type quizProposalRequest struct {
	EventID     string `json:"event_id"`
	EventTitle  string `json:"event_title"`
	IsGoalEvent bool   `json:"is_goal_event"`
}

// CheckProposal handles POST /v1/quiz-proposals.
func (h *QuizHandler) CheckProposal(c *gin.Context) {
	var req quizProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err)
		return
	}

	d, err := h.svc.CheckQuizProposal(c.Request.Context(), command.CheckQuizProposalCommand{
		UserID:      UserID(c),
		EventID:     req.EventID,
		EventTitle:  req.EventTitle,
		IsGoalEvent: req.IsGoalEvent,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, d)
}

// DoNotAsk handles POST /v1/quiz-preferences/:eventId/do-not-ask.
func (h *QuizHandler) DoNotAsk(c *gin.Context) {
	if err := h.svc.DismissQuizPermanently(c.Request.Context(), UserID(c), c.Param("eventId")); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type questionRequest struct {
	ID           string   `json:"id"`
	Prompt       string   `json:"prompt"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation"`
}

type createQuizRequest struct {
	EventID       string            `json:"event_id"`
	EventTitle    string            `json:"event_title"`
	Description   string            `json:"description"`
	GoalEventID   string            `json:"goal_event_id"`
	SeriesID      string            `json:"series_id"`
	Documentation string            `json:"documentation"`
	Questions     []questionRequest `json:"questions"`
}

// Create handles POST /v1/quizzes.
func (h *QuizHandler) Create(c *gin.Context) {
	var req createQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err)
		return
	}

	questions := make([]quiz.Question, 0, len(req.Questions))
	for _, q := range req.Questions {
		questions = append(questions, quiz.Question{
			ID:           q.ID,
			Prompt:       q.Prompt,
			Choices:      q.Choices,
			CorrectIndex: q.CorrectIndex,
			Explanation:  q.Explanation,
		})
	}

	view, err := h.svc.CreateQuiz(c.Request.Context(), command.CreateQuizCommand{
		UserID:        UserID(c),
		EventID:       req.EventID,
		EventTitle:    req.EventTitle,
		Description:   req.Description,
		GoalEventID:   req.GoalEventID,
		SeriesID:      req.SeriesID,
		Documentation: req.Documentation,
		Questions:     questions,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, view)
}

// ListResumable handles GET /v1/quizzes.
func (h *QuizHandler) ListResumable(c *gin.Context) {
	views, err := h.svc.ListResumableQuizzes(c.Request.Context(), UserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"quizzes": views})
}

// Get handles GET /v1/quizzes/:id.
func (h *QuizHandler) Get(c *gin.Context) {
	view, err := h.svc.GetQuiz(c.Request.Context(), UserID(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, view)
}

type answerRequest struct {
	QuestionID  string `json:"question_id"`
	AnswerIndex *int   `json:"answer_index"`
}

var errAnswerIndexRequired = errors.New("answer_index is required")

// Answer handles POST /v1/quizzes/:id/answers.
func (h *QuizHandler) Answer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err)
		return
	}
	if req.AnswerIndex == nil {
		RespondBadRequest(c, errAnswerIndexRequired)
		return
	}

	fb, err := h.svc.AnswerQuizQuestion(c.Request.Context(), command.AnswerQuizQuestionCommand{
		UserID:      UserID(c),
		QuizID:      c.Param("id"),
		QuestionID:  req.QuestionID,
		AnswerIndex: *req.AnswerIndex,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, fb)
}

// Complete handles POST /v1/quizzes/:id/complete.
func (h *QuizHandler) Complete(c *gin.Context) {
	res, err := h.svc.CompleteQuiz(c.Request.Context(), UserID(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, res)
}
