package domain

import (
	"time"

	sharedDomain "github.com/felixgeelhaar/gritline/internal/shared/domain"
	"github.com/google/uuid"
)

const aggregateType = "TaskInstance"

const (
	RoutingKeyInstanceCreated   = "grit.instance.created"
	RoutingKeyInstanceUpdated   = "grit.instance.updated"
	RoutingKeyInstanceCompleted = "grit.instance.completed"
	RoutingKeyInstanceDeleted   = "grit.instance.deleted"
	RoutingKeyTriggerFired      = "grit.trigger.fired"
	RoutingKeyTriggerResponded  = "grit.trigger.responded"
)

// InstanceCreated is emitted when a task instance is created.
type InstanceCreated struct {
	sharedDomain.BaseEvent
	InstanceID uuid.UUID `json:"instance_id"`
	UserID     uuid.UUID `json:"user_id"`
	TaskID     uuid.UUID `json:"task_id"`
}

// NewInstanceCreated creates an InstanceCreated event.
func NewInstanceCreated(i *TaskInstance) *InstanceCreated {
	return &InstanceCreated{
		BaseEvent:  sharedDomain.NewBaseEvent(i.ID(), aggregateType, RoutingKeyInstanceCreated),
		InstanceID: i.ID(),
		UserID:     i.UserID(),
		TaskID:     i.TaskID(),
	}
}

// InstanceUpdated is emitted when predicted or actual fields change.
type InstanceUpdated struct {
	sharedDomain.BaseEvent
	InstanceID uuid.UUID `json:"instance_id"`
	UserID     uuid.UUID `json:"user_id"`
	TaskID     uuid.UUID `json:"task_id"`
}

// NewInstanceUpdated creates an InstanceUpdated event.
func NewInstanceUpdated(i *TaskInstance) *InstanceUpdated {
	return &InstanceUpdated{
		BaseEvent:  sharedDomain.NewBaseEvent(i.ID(), aggregateType, RoutingKeyInstanceUpdated),
		InstanceID: i.ID(),
		UserID:     i.UserID(),
		TaskID:     i.TaskID(),
	}
}

// InstanceCompleted is emitted when the outcome of an instance is recorded.
type InstanceCompleted struct {
	sharedDomain.BaseEvent
	InstanceID        uuid.UUID `json:"instance_id"`
	UserID            uuid.UUID `json:"user_id"`
	TaskID            uuid.UUID `json:"task_id"`
	CompletionPercent float64   `json:"completion_percent"`
	CompletedAt       time.Time `json:"completed_at"`
}

// NewInstanceCompleted creates an InstanceCompleted event.
func NewInstanceCompleted(i *TaskInstance) *InstanceCompleted {
	e := &InstanceCompleted{
		BaseEvent:  sharedDomain.NewBaseEvent(i.ID(), aggregateType, RoutingKeyInstanceCompleted),
		InstanceID: i.ID(),
		UserID:     i.UserID(),
		TaskID:     i.TaskID(),
	}
	if a, ok := i.Actuals(); ok {
		e.CompletionPercent = a.CompletionPercent
	}
	if i.CompletedAt() != nil {
		e.CompletedAt = *i.CompletedAt()
	}
	return e
}

// InstanceDeleted is emitted when an instance is removed.
type InstanceDeleted struct {
	sharedDomain.BaseEvent
	InstanceID uuid.UUID `json:"instance_id"`
	UserID     uuid.UUID `json:"user_id"`
	TaskID     uuid.UUID `json:"task_id"`
}

// NewInstanceDeleted creates an InstanceDeleted event.
func NewInstanceDeleted(i *TaskInstance) *InstanceDeleted {
	return &InstanceDeleted{
		BaseEvent:  sharedDomain.NewBaseEvent(i.ID(), aggregateType, RoutingKeyInstanceDeleted),
		InstanceID: i.ID(),
		UserID:     i.UserID(),
		TaskID:     i.TaskID(),
	}
}

// TriggerFired is emitted when the scheduler selects a popup for an instance.
type TriggerFired struct {
	sharedDomain.BaseEvent
	InstanceID uuid.UUID `json:"instance_id"`
	UserID     uuid.UUID `json:"user_id"`
	TriggerID  string    `json:"trigger_id"`
	FiredAt    time.Time `json:"fired_at"`
}

// NewTriggerFired creates a TriggerFired event.
func NewTriggerFired(i *TaskInstance, at time.Time) *TriggerFired {
	return &TriggerFired{
		BaseEvent:  sharedDomain.NewBaseEvent(i.ID(), aggregateType, RoutingKeyTriggerFired),
		InstanceID: i.ID(),
		UserID:     i.UserID(),
		TriggerID:  i.FiredTrigger(),
		FiredAt:    at.UTC(),
	}
}

// TriggerResponded is emitted when the popup answer is recorded.
type TriggerResponded struct {
	sharedDomain.BaseEvent
	InstanceID uuid.UUID `json:"instance_id"`
	UserID     uuid.UUID `json:"user_id"`
	TaskID     uuid.UUID `json:"task_id"`
	TriggerID  string    `json:"trigger_id"`
	AnswerCode string    `json:"answer_code"`
}

// NewTriggerResponded creates a TriggerResponded event.
func NewTriggerResponded(i *TaskInstance) *TriggerResponded {
	e := &TriggerResponded{
		BaseEvent:  sharedDomain.NewBaseEvent(i.ID(), aggregateType, RoutingKeyTriggerResponded),
		InstanceID: i.ID(),
		UserID:     i.UserID(),
		TaskID:     i.TaskID(),
		TriggerID:  i.FiredTrigger(),
	}
	if r, ok := i.Response(); ok {
		e.AnswerCode = r.AnswerCode
	}
	return e
}
