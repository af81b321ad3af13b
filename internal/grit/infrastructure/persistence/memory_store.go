package persistence

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/google/uuid"
)

type scoreKey struct {
	userID uuid.UUID
	scope  domain.Scope
}

// MemoryStore keeps the whole data set in process. It backs the "memory"
// database driver and is lost on exit.
type MemoryStore struct {
	mu        sync.RWMutex
	instances map[uuid.UUID]domain.InstanceSnapshot
	profiles  map[uuid.UUID]domain.SurveyProfile
	records   []domain.TriggerRecord
	scores    map[scoreKey]domain.Score
}

var _ domain.DataStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		instances: make(map[uuid.UUID]domain.InstanceSnapshot),
		profiles:  make(map[uuid.UUID]domain.SurveyProfile),
		scores:    make(map[scoreKey]domain.Score),
	}
}

// Save persists an instance (create or update).
func (s *MemoryStore) Save(_ context.Context, inst *domain.TaskInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[inst.ID()] = inst.Snapshot()
	return nil
}

// FindByID returns nil, nil when the instance does not exist.
func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (*domain.TaskInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.instances[id]
	if !ok {
		return nil, nil
	}
	return domain.RehydrateTaskInstance(snap), nil
}

// FindByTask lists a user's instances of a task, oldest first.
func (s *MemoryStore) FindByTask(_ context.Context, userID, taskID uuid.UUID) ([]*domain.TaskInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snaps := s.filter(func(snap domain.InstanceSnapshot) bool {
		return snap.UserID == userID && snap.TaskID == taskID
	})
	slices.SortFunc(snaps, func(a, b domain.InstanceSnapshot) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return compareIDs(a.ID, b.ID)
	})
	return rehydrate(snaps), nil
}

// Delete removes an instance.
func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instances[id]; !ok {
		return domain.ErrInstanceNotFound
	}
	delete(s.instances, id)
	return nil
}

// LoadHistory returns the latest window completions of a task, oldest first.
func (s *MemoryStore) LoadHistory(_ context.Context, userID, taskID uuid.UUID, window int) (domain.CompletionHistory, error) {
	if window <= 0 {
		window = domain.DefaultHistoryWindow
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	completed := s.completions(userID, taskID)
	latest := completed[max(0, len(completed)-window):]
	return domain.NewCompletionHistory(userID, taskID, rehydrate(latest), len(completed)), nil
}

// CountCompletions counts a task's completions strictly before the given time.
func (s *MemoryStore) CountCompletions(_ context.Context, userID, taskID uuid.UUID, before time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, snap := range s.completions(userID, taskID) {
		if snap.CompletedAt.Before(before) {
			n++
		}
	}
	return n, nil
}

// ListTaskIDs returns every task with at least one completion.
func (s *MemoryStore) ListTaskIDs(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []uuid.UUID
	for _, snap := range s.instances {
		if snap.UserID == userID && snap.CompletedAt != nil && !slices.Contains(ids, snap.TaskID) {
			ids = append(ids, snap.TaskID)
		}
	}
	slices.SortFunc(ids, compareIDs)
	return ids, nil
}

// LoadSurveyProfile returns an empty profile when none was saved.
func (s *MemoryStore) LoadSurveyProfile(_ context.Context, userID uuid.UUID) (domain.SurveyProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[userID]; ok {
		return p, nil
	}
	return domain.EmptySurveyProfile(userID), nil
}

// SaveSurveyProfile replaces the stored profile of a user.
func (s *MemoryStore) SaveSurveyProfile(_ context.Context, profile domain.SurveyProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = profile
	return nil
}

// PersistTriggerRecord stores a trigger firing.
func (s *MemoryStore) PersistTriggerRecord(_ context.Context, record domain.TriggerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// LoadTriggerRecords returns the user's records fired at or after since.
func (s *MemoryStore) LoadTriggerRecords(_ context.Context, userID uuid.UUID, since time.Time) ([]domain.TriggerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.TriggerRecord
	for _, r := range s.records {
		if r.UserID == userID && r.Within(since) {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.TriggerRecord) int {
		return a.FiredAt.Compare(b.FiredAt)
	})
	return out, nil
}

// PruneTriggerRecords deletes records fired before the cutoff.
func (s *MemoryStore) PruneTriggerRecords(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.records)
	s.records = slices.DeleteFunc(s.records, func(r domain.TriggerRecord) bool {
		return r.FiredAt.Before(before)
	})
	return int64(n - len(s.records)), nil
}

// PersistScore upserts the latest score of a scope.
func (s *MemoryStore) PersistScore(_ context.Context, score domain.Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[scoreKey{userID: score.UserID, scope: score.Scope}] = score
	return nil
}

// FindScore returns the last persisted score of a scope.
func (s *MemoryStore) FindScore(_ context.Context, userID uuid.UUID, scope domain.Scope) (*domain.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, ok := s.scores[scoreKey{userID: userID, scope: scope}]
	if !ok {
		return nil, nil
	}
	return &score, nil
}

func (s *MemoryStore) filter(keep func(domain.InstanceSnapshot) bool) []domain.InstanceSnapshot {
	var out []domain.InstanceSnapshot
	for _, snap := range s.instances {
		if keep(snap) {
			out = append(out, snap)
		}
	}
	return out
}

// completions returns the completed snapshots of a task by completion time.
func (s *MemoryStore) completions(userID, taskID uuid.UUID) []domain.InstanceSnapshot {
	snaps := s.filter(func(snap domain.InstanceSnapshot) bool {
		return snap.UserID == userID && snap.TaskID == taskID && snap.CompletedAt != nil
	})
	slices.SortFunc(snaps, func(a, b domain.InstanceSnapshot) int {
		if c := a.CompletedAt.Compare(*b.CompletedAt); c != 0 {
			return c
		}
		return compareIDs(a.ID, b.ID)
	})
	return snaps
}

func rehydrate(snaps []domain.InstanceSnapshot) []*domain.TaskInstance {
	out := make([]*domain.TaskInstance, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, domain.RehydrateTaskInstance(snap))
	}
	return out
}

func compareIDs(a, b uuid.UUID) int {
	return slices.Compare(a[:], b[:])
}
