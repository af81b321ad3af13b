package services

import (
	"context"
	"log/slog"
	"slices"

	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	sharedApplication "github.com/felixgeelhaar/gritline/internal/shared/application"
	"github.com/google/uuid"
)

// Mutation names an operation that changes score inputs.
type Mutation string

const (
	MutationCreate   Mutation = "create"
	MutationUpdate   Mutation = "update"
	MutationComplete Mutation = "complete"
	MutationRespond  Mutation = "respond"
	MutationDelete   Mutation = "delete"
)

// Invalidator drops cached scores.
type Invalidator interface {
	Invalidate(ctx context.Context, userID uuid.UUID, scope domain.Scope)
}

// Coherence is the only path through which task instances change. It
// persists the instance, refreshes its derived scores, publishes its events
// and, once the write is committed, invalidates the task scope and the
// user's aggregate scope.
type Coherence struct {
	instances domain.InstanceRepository
	scorer    *Scorer
	cache     Invalidator
	publisher sharedApplication.EventPublisher
	uow       sharedApplication.UnitOfWork
	locks     *InstanceLocks
	logger    *slog.Logger
}

// NewCoherence creates the mutation entry point. uow may be nil.
func NewCoherence(
	instances domain.InstanceRepository,
	scorer *Scorer,
	cache Invalidator,
	publisher sharedApplication.EventPublisher,
	uow sharedApplication.UnitOfWork,
	locks *InstanceLocks,
	logger *slog.Logger,
) *Coherence {
	if locks == nil {
		locks = NewInstanceLocks()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coherence{
		instances: instances,
		scorer:    scorer,
		cache:     cache,
		publisher: publisher,
		uow:       uow,
		locks:     locks,
		logger:    logger,
	}
}

// Create stores a new instance.
func (c *Coherence) Create(ctx context.Context, inst *domain.TaskInstance) error {
	return c.apply(ctx, MutationCreate, inst)
}

// Mutate loads an instance owned by userID, applies fn and stores the
// result. The instance lock is held throughout, so mutations of one
// instance never interleave with each other or with trigger evaluation.
func (c *Coherence) Mutate(
	ctx context.Context,
	m Mutation,
	instanceID, userID uuid.UUID,
	fn func(inst *domain.TaskInstance) error,
) (*domain.TaskInstance, error) {
	unlock := c.locks.Lock(instanceID)
	defer unlock()

	inst, err := c.instances.FindByID(ctx, instanceID)
	if err != nil {
		return nil, storeErr("find instance", err)
	}
	if inst == nil {
		return nil, domain.ErrInstanceNotFound
	}
	if !inst.OwnedBy(userID) {
		return nil, domain.ErrNotOwner
	}

	if err := fn(inst); err != nil {
		return nil, err
	}
	if err := c.apply(ctx, m, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// apply writes the instance in a unit of work. The cache is invalidated
// once the unit of work ends, whether or not it succeeded, and before any
// event is published. Completing or deleting an instance moves the
// completion ordinal of every later completion of the task, so those are
// rescored in the same unit of work.
func (c *Coherence) apply(ctx context.Context, m Mutation, inst *domain.TaskInstance) error {
	var later []uuid.UUID
	if m == MutationComplete || m == MutationDelete {
		ids, unlock, err := c.lockLaterCompletions(ctx, inst)
		if err != nil {
			c.Invalidate(ctx, inst.UserID(), inst.TaskID())
			return err
		}
		defer unlock()
		later = ids
	}

	err := sharedApplication.RunInUnitOfWork(ctx, c.uow, func(txCtx context.Context) error {
		if m == MutationDelete {
			if err := c.instances.Delete(txCtx, inst.ID()); err != nil {
				return storeErr("delete instance", err)
			}
		} else {
			if _, err := c.scorer.RefreshInstance(txCtx, inst); err != nil {
				return err
			}
			if err := c.instances.Save(txCtx, inst); err != nil {
				return storeErr("save instance", err)
			}
		}
		return c.rescore(txCtx, later)
	})
	c.Invalidate(ctx, inst.UserID(), inst.TaskID())
	if err != nil {
		return err
	}

	metadata := sharedApplication.NewEventMetadata(inst.UserID())
	if err := sharedApplication.PublishAggregateEvents(ctx, c.publisher, inst, metadata); err != nil {
		c.logger.WarnContext(ctx, "failed to publish instance events",
			"instance_id", inst.ID(),
			"mutation", m,
			"error", err,
		)
	}

	c.logger.DebugContext(ctx, "instance mutated",
		"instance_id", inst.ID(),
		"task_id", inst.TaskID(),
		"mutation", m,
	)
	return nil
}

// Invalidate drops the task scope and the aggregate scope of a user.
func (c *Coherence) Invalidate(ctx context.Context, userID, taskID uuid.UUID) {
	c.cache.Invalidate(ctx, userID, domain.TaskScope(taskID))
	c.cache.Invalidate(ctx, userID, domain.ScopeAll)
}

// lockLaterCompletions locks the completed siblings of inst that finished
// strictly after it, in completion order, and returns their IDs. Ties keep
// their ordinal because completions are counted strictly before.
func (c *Coherence) lockLaterCompletions(ctx context.Context, inst *domain.TaskInstance) ([]uuid.UUID, func(), error) {
	at := inst.CompletedAt()
	if at == nil {
		return nil, func() {}, nil
	}

	siblings, err := c.instances.FindByTask(ctx, inst.UserID(), inst.TaskID())
	if err != nil {
		return nil, nil, storeErr("find task instances", err)
	}

	var later []*domain.TaskInstance
	for _, sib := range siblings {
		if sib.ID() == inst.ID() || sib.CompletedAt() == nil || !sib.CompletedAt().After(*at) {
			continue
		}
		later = append(later, sib)
	}
	slices.SortFunc(later, func(a, b *domain.TaskInstance) int {
		if n := a.CompletedAt().Compare(*b.CompletedAt()); n != 0 {
			return n
		}
		aID, bID := a.ID(), b.ID()
		return slices.Compare(aID[:], bID[:])
	})

	ids := make([]uuid.UUID, len(later))
	unlocks := make([]func(), len(later))
	for i, sib := range later {
		ids[i] = sib.ID()
		unlocks[i] = c.locks.Lock(sib.ID())
	}
	return ids, func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}, nil
}

// rescore reloads the given instances and stores their derived scores
// under their current completion ordinal.
func (c *Coherence) rescore(ctx context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		sib, err := c.instances.FindByID(ctx, id)
		if err != nil {
			return storeErr("find instance", err)
		}
		if sib == nil || !sib.IsCompleted() {
			continue
		}
		if _, err := c.scorer.RefreshInstance(ctx, sib); err != nil {
			return err
		}
		if err := c.instances.Save(ctx, sib); err != nil {
			return storeErr("save instance", err)
		}
	}
	return nil
}
