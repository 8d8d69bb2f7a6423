package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types published by the engine after a state change commits.
const (
	// Progress events
	EventXPGained EventType = "progress.xp_gained"
	EventLevelUp  EventType = "progress.level_up"

	// Validation events
	EventTaskValidated EventType = "validation.task_validated"

	// Quiz events
	EventQuizProposed  EventType = "quiz.proposed"
	EventQuizCompleted EventType = "quiz.completed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// XPGainedEvent is published once per applied (non-duplicate) accrual.
type XPGainedEvent struct {
	BaseEvent
	Amount     int    `json:"amount"`
	NewTotal   int    `json:"new_total"`
	ActionType string `json:"action_type"`
	SourceID   string `json:"source_id,omitempty"`
}

// Payload implements Event interface.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.AggregateId,
		"amount":      e.Amount,
		"new_total":   e.NewTotal,
		"action_type": e.ActionType,
		"source_id":   e.SourceID,
	}
}

// NewXPGainedEvent creates a new XPGainedEvent.
func NewXPGainedEvent(userID string, amount, newTotal int, actionType, sourceID string) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent:  NewBaseEvent(EventXPGained, userID),
		Amount:     amount,
		NewTotal:   newTotal,
		ActionType: actionType,
		SourceID:   sourceID,
	}
}

// LevelUpEvent is published when an accrual moves the user into a higher arena.
type LevelUpEvent struct {
	BaseEvent
	OldLevel  int    `json:"old_level"`
	NewLevel  int    `json:"new_level"`
	ArenaName string `json:"arena_name"`
	Reward    string `json:"reward"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.AggregateId,
		"old_level":  e.OldLevel,
		"new_level":  e.NewLevel,
		"arena_name": e.ArenaName,
		"reward":     e.Reward,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID string, oldLevel, newLevel int, arenaName, reward string) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID),
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		ArenaName: arenaName,
		Reward:    reward,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Validation Events
// ═══════════════════════════════════════════════════════════════════════════

// TaskValidatedEvent is published when a pending task reaches a terminal state.
type TaskValidatedEvent struct {
	BaseEvent
	ValidationID string `json:"validation_id"`
	EventID      string `json:"event_id"`
	Completed    bool   `json:"completed"`
}

// Payload implements Event interface.
func (e TaskValidatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":       e.AggregateId,
		"validation_id": e.ValidationID,
		"event_id":      e.EventID,
		"completed":     e.Completed,
	}
}

// NewTaskValidatedEvent creates a new TaskValidatedEvent.
func NewTaskValidatedEvent(userID, validationID, eventID string, completed bool) TaskValidatedEvent {
	return TaskValidatedEvent{
		BaseEvent:    NewBaseEvent(EventTaskValidated, userID),
		ValidationID: validationID,
		EventID:      eventID,
		Completed:    completed,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Quiz Events
// ═══════════════════════════════════════════════════════════════════════════

// QuizProposedEvent is published when the admission gate accepts a proposal.
type QuizProposedEvent struct {
	BaseEvent
	EventID    string `json:"event_id"`
	EventTitle string `json:"event_title"`
}

// Payload implements Event interface.
func (e QuizProposedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.AggregateId,
		"event_id":    e.EventID,
		"event_title": e.EventTitle,
	}
}

// NewQuizProposedEvent creates a new QuizProposedEvent.
func NewQuizProposedEvent(userID, eventID, eventTitle string) QuizProposedEvent {
	return QuizProposedEvent{
		BaseEvent:  NewBaseEvent(EventQuizProposed, userID),
		EventID:    eventID,
		EventTitle: eventTitle,
	}
}

// QuizCompletedEvent is published the first time a quiz transitions to completed.
type QuizCompletedEvent struct {
	BaseEvent
	QuizID        string `json:"quiz_id"`
	Score         int    `json:"score"`
	QuestionCount int    `json:"question_count"`
}

// Payload implements Event interface.
func (e QuizCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.AggregateId,
		"quiz_id":        e.QuizID,
		"score":          e.Score,
		"question_count": e.QuestionCount,
	}
}

// NewQuizCompletedEvent creates a new QuizCompletedEvent.
func NewQuizCompletedEvent(userID, quizID string, score, questionCount int) QuizCompletedEvent {
	return QuizCompletedEvent{
		BaseEvent:     NewBaseEvent(EventQuizCompleted, userID),
		QuizID:        quizID,
		Score:         score,
		QuestionCount: questionCount,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Bus contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NopPublisher discards every event. Used when no bus is wired.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(Event) error { return nil }
