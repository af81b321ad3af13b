package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InstanceRepository persists task instances.
type InstanceRepository interface {
	// Save persists an instance (create or update).
	Save(ctx context.Context, inst *TaskInstance) error

	// FindByID finds an instance by its ID.
	FindByID(ctx context.Context, id uuid.UUID) (*TaskInstance, error)

	// FindByTask lists a user's instances of a task, oldest first.
	FindByTask(ctx context.Context, userID, taskID uuid.UUID) ([]*TaskInstance, error)

	// Delete removes an instance.
	Delete(ctx context.Context, id uuid.UUID) error
}

// HistoryReader loads read-only completion history.
type HistoryReader interface {
	// LoadHistory returns the latest window completions of a task, oldest first.
	LoadHistory(ctx context.Context, userID, taskID uuid.UUID, window int) (CompletionHistory, error)

	// CountCompletions counts a task's completions strictly before the given time.
	CountCompletions(ctx context.Context, userID, taskID uuid.UUID, before time.Time) (int, error)

	// ListTaskIDs returns every task with at least one completion.
	ListTaskIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// SurveyProfileRepository persists survey struggle profiles.
type SurveyProfileRepository interface {
	// LoadSurveyProfile returns an empty profile when none was saved.
	LoadSurveyProfile(ctx context.Context, userID uuid.UUID) (SurveyProfile, error)
	SaveSurveyProfile(ctx context.Context, profile SurveyProfile) error
}

// TriggerRecordRepository persists trigger firings.
type TriggerRecordRepository interface {
	PersistTriggerRecord(ctx context.Context, record TriggerRecord) error

	// LoadTriggerRecords returns the user's records fired at or after since.
	LoadTriggerRecords(ctx context.Context, userID uuid.UUID, since time.Time) ([]TriggerRecord, error)

	// PruneTriggerRecords deletes records fired before the cutoff.
	PruneTriggerRecords(ctx context.Context, before time.Time) (int64, error)
}

// ScoreRepository stores computed scores for presentation.
type ScoreRepository interface {
	PersistScore(ctx context.Context, score Score) error

	// FindScore returns the last persisted score of a scope, or nil.
	FindScore(ctx context.Context, userID uuid.UUID, scope Scope) (*Score, error)
}

// DataStore is everything the engine reads from and writes to.
type DataStore interface {
	InstanceRepository
	HistoryReader
	SurveyProfileRepository
	TriggerRecordRepository
	ScoreRepository
}
