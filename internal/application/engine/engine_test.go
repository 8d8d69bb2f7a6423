package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/progress-engine/internal/application/command"
	"github.com/alem-hub/progress-engine/internal/domain/points"
	"github.com/alem-hub/progress-engine/internal/domain/progress"
	"github.com/alem-hub/progress-engine/internal/domain/quiz"
	"github.com/alem-hub/progress-engine/internal/domain/shared"
	"github.com/alem-hub/progress-engine/internal/infrastructure/persistence/sqlite"
	"github.com/alem-hub/progress-engine/pkg/random"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.EventType
}

func (p *recordingPublisher) Publish(e shared.Event) error {
	p.mu.Lock()
	p.events = append(p.events, e.EventType())
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) count(t shared.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e == t {
			n++
		}
	}
	return n
}

type stubGenerator struct {
	calls int
	count int
}

func (g *stubGenerator) Generate(_ context.Context, req quiz.GenerateRequest) ([]quiz.Question, error) {
	g.calls++
	g.count = req.Count
	return tenQuestions(), nil
}

type fixture struct {
	engine    *Engine
	clock     *testClock
	publisher *recordingPublisher
	generator *stubGenerator
}

func newFixture(t *testing.T, gate quiz.RandomSource) *fixture {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		clock:     &testClock{now: time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)},
		publisher: &recordingPublisher{},
		generator: &stubGenerator{},
	}
	cfg := DefaultConfig()
	cfg.Now = f.clock.Now

	f.engine = New(Deps{
		Progress:    sqlite.NewProgressRepository(db),
		Validations: sqlite.NewValidationRepository(db),
		Quizzes:     sqlite.NewQuizRepository(db),
		Markers:     sqlite.NewMarkerStore(db),
		Generator:   f.generator,
		Random:      gate,
		Publisher:   f.publisher,
	}, cfg)
	return f
}

// tenQuestions returns questions whose correct answer is always index 0.
func tenQuestions() []quiz.Question {
	qs := make([]quiz.Question, 10)
	for i := range qs {
		qs[i] = quiz.Question{
			ID:           fmt.Sprintf("q%d", i+1),
			Prompt:       fmt.Sprintf("Question %d?", i+1),
			Choices:      []string{"right", "wrong a", "wrong b", "wrong c"},
			CorrectIndex: 0,
			Explanation:  "the first choice is right",
		}
	}
	return qs
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

func TestEngine_AddXPIsIdempotentPerSource(t *testing.T) {
	f := newFixture(t, random.Fixed(0))
	ctx := context.Background()
	cmd := command.AddXPCommand{UserID: "u1", Amount: 10, ActionType: progress.ActionTaskCompleted, SourceID: "ev1"}

	first, err := f.engine.AddXP(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, first.Applied)

	second, err := f.engine.AddXP(ctx, cmd)
	require.NoError(t, err)
	assert.False(t, second.Applied)

	snap, err := f.engine.GetProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 10, snap.XP)
	assert.Equal(t, 1, snap.TotalTasksCompleted)
	assert.Equal(t, 1, f.publisher.count(shared.EventXPGained))
}

func TestEngine_AddXPRejectsInvalidAccrual(t *testing.T) {
	f := newFixture(t, random.Fixed(0))
	ctx := context.Background()

	_, err := f.engine.AddXP(ctx, command.AddXPCommand{UserID: "u1", Amount: 0, ActionType: "x"})
	assert.ErrorIs(t, err, shared.ErrInvalidAccrual)

	_, err = f.engine.AddXP(ctx, command.AddXPCommand{UserID: "u1", Amount: 5})
	assert.ErrorIs(t, err, shared.ErrInvalidAccrual)

	snap, err := f.engine.GetProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, snap.XP)
	assert.Zero(t, snap.TotalActions)
}

func TestEngine_LevelUpPublishesEvent(t *testing.T) {
	f := newFixture(t, random.Fixed(0))

	out, err := f.engine.AddXP(context.Background(), command.AddXPCommand{
		UserID: "u1", Amount: 60, ActionType: "bonus", Multiplier: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 120, out.XPAfter)
	assert.True(t, out.LeveledUp)
	assert.Equal(t, 2, out.Level)
	assert.Equal(t, 1, f.publisher.count(shared.EventLevelUp))
}

func TestEngine_StudiesActivityScenario(t *testing.T) {
	f := newFixture(t, random.Fixed(0))
	ctx := context.Background()
	confidence := 0.9

	res, err := f.engine.AwardActivity(ctx, command.AwardActivityCommand{
		UserID:  "u1",
		EventID: "ev-lecture",
		Activity: command.ActivityInput{
			Classification:  points.Classification{Category: points.CategoryStudies},
			DurationMinutes: 90,
			IsRecurring:     true,
			Confidence:      &confidence,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 18, res.Calculation.TotalPoints)
	assert.True(t, res.Outcome.Applied)

	snap, err := f.engine.GetProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 18, snap.XP)
	assert.Equal(t, 1, snap.Level)
	assert.Equal(t, 82, snap.XPToNextLevel)
	assert.Equal(t, 1, snap.CurrentStreak)
}

func TestEngine_StreakAcrossDays(t *testing.T) {
	f := newFixture(t, random.Fixed(0))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.engine.AddXP(ctx, command.AddXPCommand{UserID: "u1", Amount: 1, ActionType: "login"})
		require.NoError(t, err)
		f.clock.Advance(24 * time.Hour)
	}

	snap, err := f.engine.GetProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, snap.XP)
	assert.Equal(t, 3, snap.CurrentStreak)
	assert.Equal(t, 3, snap.LongestStreak)

	f.clock.Advance(48 * time.Hour)
	snap, err = f.engine.GetProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, snap.CurrentStreak)
	assert.Equal(t, 3, snap.LongestStreak)
}

// ══════════════════════════════════════════════════════════════════════════════
// TASK VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

func TestEngine_ValidateTaskTwice(t *testing.T) {
	f := newFixture(t, random.Fixed(0))
	ctx := context.Background()

	reg, err := f.engine.RegisterTask(ctx, command.RegisterTaskCommand{
		UserID: "u1", EventID: "ev1", EventTitle: "Read chapter 3", EventDate: f.clock.Now().Add(-2 * time.Hour),
	})
	require.NoError(t, err)
	assert.True(t, reg.Created)

	again, err := f.engine.RegisterTask(ctx, command.RegisterTaskCommand{
		UserID: "u1", EventID: "ev1", EventTitle: "Read chapter 3", EventDate: f.clock.Now().Add(-2 * time.Hour),
	})
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, reg.Validation.ID, again.Validation.ID)

	count, err := f.engine.CountPendingTasks(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	res, err := f.engine.ValidateTask(ctx, command.ValidateTaskCommand{
		UserID: "u1", ValidationID: reg.Validation.ID, Completed: true, Notes: "done",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Outcome)
	assert.Equal(t, command.DefaultTaskXP, res.Outcome.Amount)
	require.NotNil(t, res.Validation.Completed)
	assert.True(t, *res.Validation.Completed)

	_, err = f.engine.ValidateTask(ctx, command.ValidateTaskCommand{
		UserID: "u1", ValidationID: reg.Validation.ID, Completed: true,
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyResolved)

	snap, err := f.engine.GetProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, command.DefaultTaskXP, snap.XP)

	pending, err := f.engine.ListPendingTasks(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Equal(t, 1, f.publisher.count(shared.EventTaskValidated))
}

func TestEngine_ValidateTaskSharesSourceWithAwardActivity(t *testing.T) {
	f := newFixture(t, random.Fixed(0))
	ctx := context.Background()

	_, err := f.engine.AwardActivity(ctx, command.AwardActivityCommand{
		UserID: "u1", EventID: "ev1",
		Activity: command.ActivityInput{Classification: points.Classification{Category: points.CategorySport, Confidence: 1}},
	})
	require.NoError(t, err)

	reg, err := f.engine.RegisterTask(ctx, command.RegisterTaskCommand{
		UserID: "u1", EventID: "ev1", EventDate: f.clock.Now(),
	})
	require.NoError(t, err)

	res, err := f.engine.ValidateTask(ctx, command.ValidateTaskCommand{
		UserID: "u1", ValidationID: reg.Validation.ID, Completed: true,
	})
	require.NoError(t, err)
	assert.False(t, res.Outcome.Applied)

	snap, err := f.engine.GetProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 8, snap.XP)
}

func TestEngine_DismissTaskGrantsNothing(t *testing.T) {
	f := newFixture(t, random.Fixed(0))
	ctx := context.Background()

	reg, err := f.engine.RegisterTask(ctx, command.RegisterTaskCommand{
		UserID: "u1", EventID: "ev1", EventDate: f.clock.Now(),
	})
	require.NoError(t, err)

	dismissed, err := f.engine.DismissTask(ctx, "u1", reg.Validation.ID)
	require.NoError(t, err)
	require.NotNil(t, dismissed.Completed)
	assert.False(t, *dismissed.Completed)
	assert.Empty(t, dismissed.Notes)

	_, err = f.engine.ValidateTask(ctx, command.ValidateTaskCommand{
		UserID: "u1", ValidationID: reg.Validation.ID, Completed: true,
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyResolved)

	snap, err := f.engine.GetProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, snap.XP)
}

func TestEngine_ValidateTaskOwnership(t *testing.T) {
	f := newFixture(t, random.Fixed(0))
	ctx := context.Background()

	reg, err := f.engine.RegisterTask(ctx, command.RegisterTaskCommand{
		UserID: "u1", EventID: "ev1", EventDate: f.clock.Now(),
	})
	require.NoError(t, err)

	_, err = f.engine.ValidateTask(ctx, command.ValidateTaskCommand{
		UserID: "intruder", ValidationID: reg.Validation.ID, Completed: true,
	})
	assert.ErrorIs(t, err, shared.ErrValidationNotFound)

	_, err = f.engine.DismissTask(ctx, "intruder", reg.Validation.ID)
	assert.True(t, shared.IsNotFound(err))
}

// ══════════════════════════════════════════════════════════════════════════════
// QUIZ PROPOSALS
// ══════════════════════════════════════════════════════════════════════════════

func TestEngine_QuizProposalDailyCap(t *testing.T) {
	f := newFixture(t, random.Fixed(0))
	ctx := context.Background()

	d, err := f.engine.CheckQuizProposal(ctx, command.CheckQuizProposalCommand{
		UserID: "u1", EventID: "exam-1", EventTitle: "Exam", IsGoalEvent: true,
	})
	require.NoError(t, err)
	assert.True(t, d.ShouldPropose)

	d, err = f.engine.CheckQuizProposal(ctx, command.CheckQuizProposalCommand{
		UserID: "u1", EventID: "exam-2", EventTitle: "Other exam", IsGoalEvent: true,
	})
	require.NoError(t, err)
	assert.False(t, d.ShouldPropose)
	assert.Equal(t, quiz.ReasonProposedToday, d.Reason)

	f.clock.Advance(24 * time.Hour)
	d, err = f.engine.CheckQuizProposal(ctx, command.CheckQuizProposalCommand{
		UserID: "u1", EventID: "exam-2", IsGoalEvent: true,
	})
	require.NoError(t, err)
	assert.True(t, d.ShouldPropose)
	assert.Equal(t, 2, f.publisher.count(shared.EventQuizProposed))
}

func TestEngine_QuizProposalRules(t *testing.T) {
	f := newFixture(t, random.Fixed(0))
	ctx := context.Background()

	d, err := f.engine.CheckQuizProposal(ctx, command.CheckQuizProposalCommand{UserID: "u1", EventID: "ev1"})
	require.NoError(t, err)
	assert.Equal(t, quiz.ReasonNotGoalEvent, d.Reason)

	require.NoError(t, f.engine.DismissQuizPermanently(ctx, "u1", "ev1"))
	d, err = f.engine.CheckQuizProposal(ctx, command.CheckQuizProposalCommand{UserID: "u1", EventID: "ev1", IsGoalEvent: true})
	require.NoError(t, err)
	assert.Equal(t, quiz.ReasonOptedOut, d.Reason)

	_, err = f.engine.CreateQuiz(ctx, command.CreateQuizCommand{UserID: "u1", EventID: "ev2", Questions: tenQuestions()})
	require.NoError(t, err)
	d, err = f.engine.CheckQuizProposal(ctx, command.CheckQuizProposalCommand{UserID: "u1", EventID: "ev2", IsGoalEvent: true})
	require.NoError(t, err)
	assert.Equal(t, quiz.ReasonQuizExists, d.Reason)
}

func TestEngine_QuizProposalRandomGate(t *testing.T) {
	f := newFixture(t, random.Fixed(0.99))

	d, err := f.engine.CheckQuizProposal(context.Background(), command.CheckQuizProposalCommand{
		UserID: "u1", EventID: "ev1", IsGoalEvent: true,
	})
	require.NoError(t, err)
	assert.False(t, d.ShouldPropose)
	assert.Equal(t, quiz.ReasonRandomGate, d.Reason)

	// A rejected draw leaves no daily marker behind.
	d, err = f.engine.CheckQuizProposal(context.Background(), command.CheckQuizProposalCommand{
		UserID: "u1", EventID: "ev1", IsGoalEvent: true,
	})
	require.NoError(t, err)
	assert.Equal(t, quiz.ReasonRandomGate, d.Reason)
}

func TestEngine_QuizProposalWithoutRandomSource(t *testing.T) {
	f := newFixture(t, nil)

	var d quiz.Decision
	var err error
	require.NotPanics(t, func() {
		d, err = f.engine.CheckQuizProposal(context.Background(), command.CheckQuizProposalCommand{
			UserID: "u1", EventID: "ev1", IsGoalEvent: true,
		})
	})
	require.NoError(t, err)
	assert.Contains(t, []string{quiz.ReasonAccepted, quiz.ReasonRandomGate}, d.Reason)
}

// ══════════════════════════════════════════════════════════════════════════════
// QUIZZES
// ══════════════════════════════════════════════════════════════════════════════

func TestEngine_QuizSevenOfTen(t *testing.T) {
	f := newFixture(t, random.Fixed(0))
	ctx := context.Background()

	view, err := f.engine.CreateQuiz(ctx, command.CreateQuizCommand{
		UserID: "u1", EventID: "exam-1", EventTitle: "Final exam", Questions: tenQuestions(),
	})
	require.NoError(t, err)
	assert.Equal(t, quiz.StatusCreated, view.Status)
	assert.Equal(t, 10, view.TotalQuestions)

	_, err = f.engine.AnswerQuizQuestion(ctx, command.AnswerQuizQuestionCommand{
		UserID: "u1", QuizID: view.ID, QuestionID: "q1", AnswerIndex: 4,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidAnswerIndex)

	for i, q := range view.Questions {
		index := 0
		if i >= 7 {
			index = 2
		}
		fb, err := f.engine.AnswerQuizQuestion(ctx, command.AnswerQuizQuestionCommand{
			UserID: "u1", QuizID: view.ID, QuestionID: q.ID, AnswerIndex: index,
		})
		require.NoError(t, err)
		assert.Equal(t, i < 7, fb.Correct)
		assert.Equal(t, i+1, fb.AnsweredCount)
	}

	resumable, err := f.engine.ListResumableQuizzes(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, resumable, 1)
	assert.Equal(t, quiz.StatusInProgress, resumable[0].Status)

	first, err := f.engine.CompleteQuiz(ctx, "u1", view.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, first.Score)
	assert.Equal(t, 10, first.Total)
	assert.True(t, first.Outcome.Applied)
	assert.Equal(t, 55, first.Outcome.Amount)

	second, err := f.engine.CompleteQuiz(ctx, "u1", view.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, second.Score)
	assert.False(t, second.Outcome.Applied)

	snap, err := f.engine.GetProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 55, snap.XP)
	assert.Equal(t, 1, snap.TotalQuizzesCompleted)
	assert.Equal(t, 1, f.publisher.count(shared.EventQuizCompleted))

	_, err = f.engine.AnswerQuizQuestion(ctx, command.AnswerQuizQuestionCommand{
		UserID: "u1", QuizID: view.ID, QuestionID: "q1", AnswerIndex: 0,
	})
	assert.ErrorIs(t, err, shared.ErrQuizCompleted)
}

func TestEngine_QuizAnswersAreWriteOnce(t *testing.T) {
	f := newFixture(t, random.Fixed(0))
	ctx := context.Background()

	view, err := f.engine.CreateQuiz(ctx, command.CreateQuizCommand{UserID: "u1", EventID: "ev1", Questions: tenQuestions()})
	require.NoError(t, err)

	answer := command.AnswerQuizQuestionCommand{UserID: "u1", QuizID: view.ID, QuestionID: "q1", AnswerIndex: 1}
	fb, err := f.engine.AnswerQuizQuestion(ctx, answer)
	require.NoError(t, err)
	assert.False(t, fb.Correct)
	assert.Equal(t, 0, fb.CorrectIndex)

	answer.AnswerIndex = 0
	_, err = f.engine.AnswerQuizQuestion(ctx, answer)
	assert.ErrorIs(t, err, shared.ErrQuestionAlreadyAnswered)

	answer.QuestionID = "missing"
	_, err = f.engine.AnswerQuizQuestion(ctx, answer)
	assert.ErrorIs(t, err, shared.ErrQuestionNotFound)
}

func TestEngine_QuizOwnership(t *testing.T) {
	f := newFixture(t, random.Fixed(0))
	ctx := context.Background()

	view, err := f.engine.CreateQuiz(ctx, command.CreateQuizCommand{UserID: "u1", EventID: "ev1", Questions: tenQuestions()})
	require.NoError(t, err)

	_, err = f.engine.GetQuiz(ctx, "u2", view.ID)
	assert.ErrorIs(t, err, shared.ErrQuizNotFound)

	_, err = f.engine.AnswerQuizQuestion(ctx, command.AnswerQuizQuestionCommand{
		UserID: "u2", QuizID: view.ID, QuestionID: "q1", AnswerIndex: 0,
	})
	assert.ErrorIs(t, err, shared.ErrQuizNotFound)

	_, err = f.engine.CompleteQuiz(ctx, "u2", view.ID)
	assert.ErrorIs(t, err, shared.ErrQuizNotFound)

	own, err := f.engine.GetQuiz(ctx, "u1", view.ID)
	require.NoError(t, err)
	assert.Nil(t, own.Score)
	for _, q := range own.Questions {
		assert.Nil(t, q.CorrectIndex)
	}
}

func TestEngine_CreateQuizSources(t *testing.T) {
	f := newFixture(t, random.Fixed(0))
	ctx := context.Background()

	view, err := f.engine.CreateQuiz(ctx, command.CreateQuizCommand{UserID: "u1", EventID: "ev1", Documentation: "notes"})
	require.NoError(t, err)
	assert.Equal(t, 10, view.TotalQuestions)
	assert.Equal(t, 1, f.generator.calls)
	assert.Equal(t, quiz.DefaultQuestionCount, f.generator.count)

	_, err = f.engine.CreateQuiz(ctx, command.CreateQuizCommand{UserID: "u1", EventID: "ev1"})
	assert.ErrorIs(t, err, shared.ErrDuplicateQuiz)
	assert.Equal(t, 1, f.generator.calls)

	bad := tenQuestions()
	bad[0].Choices = bad[0].Choices[:3]
	_, err = f.engine.CreateQuiz(ctx, command.CreateQuizCommand{UserID: "u1", EventID: "ev2", Questions: bad})
	assert.ErrorIs(t, err, shared.ErrInvalidQuiz)
}

func TestEngine_CreateQuizWithoutGenerator(t *testing.T) {
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	e := New(Deps{
		Progress:    sqlite.NewProgressRepository(db),
		Validations: sqlite.NewValidationRepository(db),
		Quizzes:     sqlite.NewQuizRepository(db),
		Markers:     sqlite.NewMarkerStore(db),
		Random:      random.Fixed(0),
	}, DefaultConfig())

	_, err = e.CreateQuiz(context.Background(), command.CreateQuizCommand{UserID: "u1", EventID: "ev1"})
	assert.ErrorIs(t, err, command.ErrNoQuestionSource)
	assert.True(t, shared.IsValidation(err))
}
