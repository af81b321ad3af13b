package domain

import "github.com/google/uuid"

// DefaultHistoryWindow bounds how many recent completions are loaded per task.
const DefaultHistoryWindow = 50

// CompletionHistory is the read-only view of completed instances of one task.
// Window is ordered oldest first; TotalCount includes instances older than
// the window.
type CompletionHistory struct {
	UserID     uuid.UUID
	TaskID     uuid.UUID
	Window     []*TaskInstance
	TotalCount int
}

// NewCompletionHistory builds a history view. A total smaller than the window
// is raised to the window length.
func NewCompletionHistory(userID, taskID uuid.UUID, window []*TaskInstance, total int) CompletionHistory {
	if total < len(window) {
		total = len(window)
	}
	return CompletionHistory{
		UserID:     userID,
		TaskID:     taskID,
		Window:     window,
		TotalCount: total,
	}
}

// OrdinalOf returns the 1-based completion count of the i-th windowed instance.
func (h CompletionHistory) OrdinalOf(i int) int {
	return h.TotalCount - len(h.Window) + i + 1
}

// CountFor returns the completion count of the given instance. Instances not
// in the window are treated as the next completion.
func (h CompletionHistory) CountFor(instanceID uuid.UUID) int {
	for i, inst := range h.Window {
		if inst.ID() == instanceID {
			return h.OrdinalOf(i)
		}
	}
	return h.TotalCount + 1
}

// IsEmpty reports whether the task has no completions.
func (h CompletionHistory) IsEmpty() bool {
	return h.TotalCount == 0
}
