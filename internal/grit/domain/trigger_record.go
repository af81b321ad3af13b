package domain

import (
	"time"

	"github.com/google/uuid"
)

// TriggerRecord notes that a trigger fired for an instance. Records are never
// mutated; the data store prunes them once they fall out of the cooldown window.
type TriggerRecord struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	InstanceID uuid.UUID `json:"instance_id"`
	TriggerID  string    `json:"trigger_id"`
	FiredAt    time.Time `json:"fired_at"`
}

// NewTriggerRecord creates a record for a trigger firing now.
func NewTriggerRecord(userID, instanceID uuid.UUID, triggerID string, firedAt time.Time) TriggerRecord {
	return TriggerRecord{
		ID:         uuid.New(),
		UserID:     userID,
		InstanceID: instanceID,
		TriggerID:  triggerID,
		FiredAt:    firedAt.UTC(),
	}
}

// Within reports whether the record fired at or after since.
func (r TriggerRecord) Within(since time.Time) bool {
	return !r.FiredAt.Before(since)
}
