// Package engine exposes the progression operations as one facade. Every
// method maps to exactly one caller-facing action and takes an
// already-authenticated user id.
package engine

import (
	"context"
	"time"

	"github.com/alem-hub/progress-engine/internal/application/command"
	"github.com/alem-hub/progress-engine/internal/application/query"
	"github.com/alem-hub/progress-engine/internal/domain/progress"
	"github.com/alem-hub/progress-engine/internal/domain/quiz"
	"github.com/alem-hub/progress-engine/internal/domain/shared"
	"github.com/alem-hub/progress-engine/internal/domain/validation"
	"github.com/alem-hub/progress-engine/pkg/logger"
	"github.com/alem-hub/progress-engine/pkg/random"
)

// Deps are the ports the engine is built from.
type Deps struct {
	Progress    progress.Repository
	Validations validation.Repository
	Quizzes     quiz.Repository
	Markers     quiz.MarkerStore

	// Generator - optional question source for CreateQuiz.
	Generator quiz.QuestionGenerator

	// Random drives the admission gate. Nil means a freshly seeded source.
	Random quiz.RandomSource

	Publisher shared.EventPublisher
	Logger    *logger.Logger
}

// Config tunes rewards and the admission gate.
type Config struct {
	// Location is the calendar-day boundary for streaks and the daily cap.
	Location *time.Location

	AcceptanceRate   float64
	QuestionCount    int
	QuizBaseXP       int
	QuizPerCorrectXP int
	TaskDefaultXP    int

	// Now is the clock; tests pin it.
	Now func() time.Time
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Location:         time.UTC,
		AcceptanceRate:   quiz.DefaultAcceptanceRate,
		QuestionCount:    quiz.DefaultQuestionCount,
		QuizBaseXP:       command.DefaultQuizBaseXP,
		QuizPerCorrectXP: command.DefaultQuizPerCorrectXP,
		TaskDefaultXP:    command.DefaultTaskXP,
		Now:              func() time.Time { return time.Now().UTC() },
	}
}

// Engine wires the command and query handlers.
type Engine struct {
	addXP         *command.AddXPHandler
	awardActivity *command.AwardActivityHandler
	registerTask  *command.RegisterTaskHandler
	validateTask  *command.ValidateTaskHandler
	proposals     *command.QuizProposalHandler
	createQuiz    *command.CreateQuizHandler
	answerQuiz    *command.AnswerQuizQuestionHandler
	completeQuiz  *command.CompleteQuizHandler

	getProgress  *query.GetProgressHandler
	pendingTasks *query.PendingTasksHandler
	quizzes      *query.QuizzesHandler
}

// New builds the engine.
func New(deps Deps, cfg Config) *Engine {
	defaults := DefaultConfig()
	if cfg.Location == nil {
		cfg.Location = defaults.Location
	}
	if cfg.Now == nil {
		cfg.Now = defaults.Now
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Publisher == nil {
		deps.Publisher = shared.NopPublisher{}
	}
	if deps.Random == nil {
		deps.Random = newRandomSource()
	}
	log := deps.Logger.Named("engine")

	addXP := command.NewAddXPHandler(deps.Progress, deps.Publisher, log, command.AddXPHandlerConfig{
		Location: cfg.Location,
		Now:      cfg.Now,
	})
	policy := quiz.NewPolicy(deps.Markers, deps.Quizzes, deps.Random, quiz.PolicyConfig{
		AcceptanceRate: cfg.AcceptanceRate,
		Location:       cfg.Location,
		Now:            cfg.Now,
	})

	return &Engine{
		addXP:         addXP,
		awardActivity: command.NewAwardActivityHandler(addXP),
		registerTask:  command.NewRegisterTaskHandler(deps.Validations, log, cfg.Now),
		validateTask: command.NewValidateTaskHandler(deps.Validations, addXP, deps.Publisher, log, command.ValidateTaskHandlerConfig{
			DefaultTaskXP: cfg.TaskDefaultXP,
			Now:           cfg.Now,
		}),
		proposals: command.NewQuizProposalHandler(policy, deps.Publisher, log),
		createQuiz: command.NewCreateQuizHandler(deps.Quizzes, deps.Generator, log, command.CreateQuizHandlerConfig{
			QuestionCount: cfg.QuestionCount,
			Now:           cfg.Now,
		}),
		answerQuiz: command.NewAnswerQuizQuestionHandler(deps.Quizzes, log, cfg.Now),
		completeQuiz: command.NewCompleteQuizHandler(deps.Quizzes, addXP, deps.Publisher, log, command.CompleteQuizHandlerConfig{
			BaseXP:       cfg.QuizBaseXP,
			PerCorrectXP: cfg.QuizPerCorrectXP,
			Now:          cfg.Now,
		}),
		getProgress:  query.NewGetProgressHandler(deps.Progress, cfg.Location, cfg.Now),
		pendingTasks: query.NewPendingTasksHandler(deps.Validations),
		quizzes:      query.NewQuizzesHandler(deps.Quizzes),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// GetProgress returns the user's snapshot.
func (e *Engine) GetProgress(ctx context.Context, userID string) (*progress.Snapshot, error) {
	return e.getProgress.Handle(ctx, query.GetProgressQuery{UserID: userID})
}

// AddXP accrues XP. Duplicate (user, action, source) triples are absorbed.
func (e *Engine) AddXP(ctx context.Context, cmd command.AddXPCommand) (*progress.Outcome, error) {
	return e.addXP.Handle(ctx, cmd)
}

// AwardActivity scores a classified activity and accrues the points.
func (e *Engine) AwardActivity(ctx context.Context, cmd command.AwardActivityCommand) (*command.AwardActivityResult, error) {
	return e.awardActivity.Handle(ctx, cmd)
}

// ══════════════════════════════════════════════════════════════════════════════
// TASK VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// RegisterTask creates a pending validation for a past activity.
func (e *Engine) RegisterTask(ctx context.Context, cmd command.RegisterTaskCommand) (*command.RegisterTaskResult, error) {
	return e.registerTask.Handle(ctx, cmd)
}

// ListPendingTasks lists unresolved validations, oldest event first.
func (e *Engine) ListPendingTasks(ctx context.Context, userID string) ([]*validation.TaskValidation, error) {
	return e.pendingTasks.List(ctx, query.ListPendingTasksQuery{UserID: userID})
}

// CountPendingTasks counts unresolved validations.
func (e *Engine) CountPendingTasks(ctx context.Context, userID string) (int, error) {
	return e.pendingTasks.Count(ctx, query.ListPendingTasksQuery{UserID: userID})
}

// ValidateTask resolves a validation once; completed tasks earn XP.
func (e *Engine) ValidateTask(ctx context.Context, cmd command.ValidateTaskCommand) (*command.ValidateTaskResult, error) {
	return e.validateTask.Handle(ctx, cmd)
}

// DismissTask resolves a validation as not completed without XP.
func (e *Engine) DismissTask(ctx context.Context, userID, validationID string) (*validation.TaskValidation, error) {
	return e.validateTask.Dismiss(ctx, command.DismissTaskCommand{UserID: userID, ValidationID: validationID})
}

// ══════════════════════════════════════════════════════════════════════════════
// QUIZZES
// ══════════════════════════════════════════════════════════════════════════════

// CheckQuizProposal runs the admission gate for a goal event.
func (e *Engine) CheckQuizProposal(ctx context.Context, cmd command.CheckQuizProposalCommand) (quiz.Decision, error) {
	return e.proposals.Handle(ctx, cmd)
}

// DismissQuizPermanently opts the user out of quizzes for an event.
func (e *Engine) DismissQuizPermanently(ctx context.Context, userID, eventID string) error {
	return e.proposals.Dismiss(ctx, command.DismissQuizPermanentlyCommand{UserID: userID, EventID: eventID})
}

// CreateQuiz creates the single quiz for (user, event).
func (e *Engine) CreateQuiz(ctx context.Context, cmd command.CreateQuizCommand) (*quiz.View, error) {
	return e.createQuiz.Handle(ctx, cmd)
}

// AnswerQuizQuestion grades one answer instantly.
func (e *Engine) AnswerQuizQuestion(ctx context.Context, cmd command.AnswerQuizQuestionCommand) (quiz.Feedback, error) {
	return e.answerQuiz.Handle(ctx, cmd)
}

// CompleteQuiz scores the quiz and grants XP once.
func (e *Engine) CompleteQuiz(ctx context.Context, userID, quizID string) (*command.CompleteQuizResult, error) {
	return e.completeQuiz.Handle(ctx, command.CompleteQuizCommand{UserID: userID, QuizID: quizID})
}

// GetQuiz returns the owner's view of a quiz.
func (e *Engine) GetQuiz(ctx context.Context, userID, quizID string) (*quiz.View, error) {
	return e.quizzes.Get(ctx, query.GetQuizQuery{UserID: userID, QuizID: quizID})
}

// ListResumableQuizzes lists unfinished quizzes.
func (e *Engine) ListResumableQuizzes(ctx context.Context, userID string) ([]quiz.View, error) {
	return e.quizzes.ListResumable(ctx, userID)
}

func newRandomSource() *random.Source {
	seed, err := random.NewSeed()
	if err != nil {
		seed = time.Now().UnixNano()
	}
	return random.NewSource(seed)
}
