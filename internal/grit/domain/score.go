package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Scope selects what a score aggregates: one task or every task of a user.
type Scope string

// ScopeAll is the aggregate over all of a user's tasks.
const ScopeAll Scope = "all"

// TaskScope returns the scope of a single task.
func TaskScope(taskID uuid.UUID) Scope {
	return Scope(taskID.String())
}

// ParseScope accepts "all" or a task UUID.
func ParseScope(s string) (Scope, error) {
	if Scope(s) == ScopeAll {
		return ScopeAll, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, s)
	}
	return TaskScope(id), nil
}

// IsAll reports whether the scope is the aggregate sentinel.
func (s Scope) IsAll() bool { return s == ScopeAll }

// TaskID returns the task of a task scope.
func (s Scope) TaskID() (uuid.UUID, bool) {
	if s.IsAll() {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(string(s))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (s Scope) String() string { return string(s) }

// Score is a derived score for a (user, scope) pair.
type Score struct {
	UserID       uuid.UUID `json:"user_id"`
	Scope        Scope     `json:"scope"`
	Grit         float64   `json:"grit"`
	Productivity float64   `json:"productivity"`
	Composite    float64   `json:"composite"`
	Instances    int       `json:"instances"`
	Version      uint64    `json:"version"`
	ComputedAt   time.Time `json:"computed_at"`
}
