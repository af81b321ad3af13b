package services

import (
	"sync"

	"github.com/google/uuid"
)

// InstanceLocks hands out one mutex per instance. Mutations and trigger
// evaluation of the same instance share it. Entries are dropped once no
// caller holds or waits for them.
type InstanceLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

// NewInstanceLocks creates an empty lock table.
func NewInstanceLocks() *InstanceLocks {
	return &InstanceLocks{locks: make(map[uuid.UUID]*refLock)}
}

// Lock acquires the instance mutex and returns its release function.
func (l *InstanceLocks) Lock(id uuid.UUID) func() {
	l.mu.Lock()
	rl, ok := l.locks[id]
	if !ok {
		rl = &refLock{}
		l.locks[id] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.Lock()
	return func() {
		rl.Unlock()
		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
