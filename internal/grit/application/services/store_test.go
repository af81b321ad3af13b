package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/felixgeelhaar/gritline/internal/grit/infrastructure/persistence"
	sharedDomain "github.com/felixgeelhaar/gritline/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("connection refused")

// testStore is the in-memory data store with a testify mock in front of it.
// Calls reach the store until goOffline registers failures on the mock.
type testStore struct {
	*persistence.MemoryStore
	mock.Mock
	offline atomic.Bool
}

func newTestStore() *testStore {
	return &testStore{MemoryStore: persistence.NewMemoryStore()}
}

// goOffline makes every store call below fail with err.
func (s *testStore) goOffline(err error) {
	for _, method := range []string{
		"Save", "FindByID", "Delete", "LoadHistory", "CountCompletions", "ListTaskIDs",
		"LoadSurveyProfile", "PersistTriggerRecord", "LoadTriggerRecords", "PersistScore",
	} {
		s.On(method).Return(err).Maybe()
	}
	s.offline.Store(true)
}

func (s *testStore) fault(method string) error {
	if !s.offline.Load() {
		return nil
	}
	return s.MethodCalled(method).Error(0)
}

func (s *testStore) Save(ctx context.Context, inst *domain.TaskInstance) error {
	if err := s.fault("Save"); err != nil {
		return err
	}
	return s.MemoryStore.Save(ctx, inst)
}

func (s *testStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.TaskInstance, error) {
	if err := s.fault("FindByID"); err != nil {
		return nil, err
	}
	return s.MemoryStore.FindByID(ctx, id)
}

func (s *testStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.fault("Delete"); err != nil {
		return err
	}
	return s.MemoryStore.Delete(ctx, id)
}

func (s *testStore) LoadHistory(ctx context.Context, userID, taskID uuid.UUID, window int) (domain.CompletionHistory, error) {
	if err := s.fault("LoadHistory"); err != nil {
		return domain.CompletionHistory{}, err
	}
	return s.MemoryStore.LoadHistory(ctx, userID, taskID, window)
}

func (s *testStore) CountCompletions(ctx context.Context, userID, taskID uuid.UUID, before time.Time) (int, error) {
	if err := s.fault("CountCompletions"); err != nil {
		return 0, err
	}
	return s.MemoryStore.CountCompletions(ctx, userID, taskID, before)
}

func (s *testStore) ListTaskIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if err := s.fault("ListTaskIDs"); err != nil {
		return nil, err
	}
	return s.MemoryStore.ListTaskIDs(ctx, userID)
}

func (s *testStore) LoadSurveyProfile(ctx context.Context, userID uuid.UUID) (domain.SurveyProfile, error) {
	if err := s.fault("LoadSurveyProfile"); err != nil {
		return domain.SurveyProfile{}, err
	}
	return s.MemoryStore.LoadSurveyProfile(ctx, userID)
}

func (s *testStore) PersistTriggerRecord(ctx context.Context, record domain.TriggerRecord) error {
	if err := s.fault("PersistTriggerRecord"); err != nil {
		return err
	}
	return s.MemoryStore.PersistTriggerRecord(ctx, record)
}

func (s *testStore) LoadTriggerRecords(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.TriggerRecord, error) {
	if err := s.fault("LoadTriggerRecords"); err != nil {
		return nil, err
	}
	return s.MemoryStore.LoadTriggerRecords(ctx, userID, since)
}

func (s *testStore) PersistScore(ctx context.Context, score domain.Score) error {
	if err := s.fault("PersistScore"); err != nil {
		return err
	}
	return s.MemoryStore.PersistScore(ctx, score)
}

// recordsOf lists every trigger record kept for a user.
func recordsOf(t *testing.T, store *testStore, userID uuid.UUID) []domain.TriggerRecord {
	t.Helper()
	records, err := store.MemoryStore.LoadTriggerRecords(context.Background(), userID, time.Time{})
	require.NoError(t, err)
	return records
}

// capturePublisher records published events.
type capturePublisher struct {
	mu     sync.Mutex
	events []sharedDomain.DomainEvent
}

func (p *capturePublisher) PublishEvents(_ context.Context, events []sharedDomain.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *capturePublisher) routingKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.events))
	for _, e := range p.events {
		keys = append(keys, e.RoutingKey())
	}
	return keys
}

var fixedNow = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// completeInstance stores a completed instance with the given actuals.
func completeInstance(t *testing.T, store *testStore, userID, taskID uuid.UUID, p domain.Predicted, a domain.Actuals, at time.Time) *domain.TaskInstance {
	t.Helper()
	inst, err := domain.NewTaskInstance(userID, taskID, p)
	require.NoError(t, err)
	require.NoError(t, inst.Complete(a, at))
	inst.ClearDomainEvents()
	require.NoError(t, store.Save(context.Background(), inst))
	return inst
}

// scenarioPredicted and scenarioActuals describe a long, draining completion
// that matches both negative_affect and time_overrun.
var (
	scenarioPredicted = domain.Predicted{
		ExpectedRelief:      60,
		TimeEstimateMinutes: 60,
		TaskDifficulty:      80,
	}
	scenarioActuals = domain.Actuals{
		CompletionPercent:   100,
		TimeActualMinutes:   150,
		ActualRelief:        20,
		ActualEmotionalLoad: 75,
		ActualDifficulty:    60,
	}
	overrunActuals = domain.Actuals{
		CompletionPercent:   100,
		TimeActualMinutes:   150,
		ActualRelief:        70,
		ActualEmotionalLoad: 20,
		ActualDifficulty:    40,
	}
	calmActuals = domain.Actuals{
		CompletionPercent:   100,
		TimeActualMinutes:   55,
		ActualRelief:        70,
		ActualEmotionalLoad: 20,
		ActualDifficulty:    40,
	}
)
