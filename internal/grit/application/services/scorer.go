package services

import (
	"context"
	"time"

	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/felixgeelhaar/gritline/internal/grit/domain/formula"
	"github.com/google/uuid"
)

// Scorer runs the formula library over completion history.
type Scorer struct {
	calc    *formula.Calculator
	history domain.HistoryReader
	window  int
	now     func() time.Time
}

// NewScorer creates a scorer reading at most window completions per task.
func NewScorer(calc *formula.Calculator, history domain.HistoryReader, window int) *Scorer {
	if window <= 0 {
		window = domain.DefaultHistoryWindow
	}
	return &Scorer{
		calc:    calc,
		history: history,
		window:  window,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RefreshInstance recomputes the derived scores stored on a completed
// instance. Pending instances are left untouched.
func (s *Scorer) RefreshInstance(ctx context.Context, inst *domain.TaskInstance) (formula.Breakdown, error) {
	if !inst.IsCompleted() {
		return formula.Breakdown{}, nil
	}
	before, err := s.history.CountCompletions(ctx, inst.UserID(), inst.TaskID(), *inst.CompletedAt())
	if err != nil {
		return formula.Breakdown{}, storeErr("count completions", err)
	}

	in, err := inst.FormulaInputs(before + 1)
	if err != nil {
		return formula.Breakdown{}, err
	}
	b, err := s.calc.Score(in)
	if err != nil {
		return formula.Breakdown{}, err
	}
	if err := inst.RecordScores(b, s.now()); err != nil {
		return formula.Breakdown{}, err
	}
	return b, nil
}

// Compute calculates the score of a scope from the data store. Task scopes
// average the instances in the history window; the "all" scope averages the
// task means, read directly from history.
func (s *Scorer) Compute(ctx context.Context, userID uuid.UUID, scope domain.Scope) (domain.Score, error) {
	score := domain.Score{UserID: userID, Scope: scope}

	if taskID, ok := scope.TaskID(); ok {
		agg, err := s.task(ctx, userID, taskID)
		if err != nil {
			return domain.Score{}, err
		}
		agg.fill(&score)
		return score, nil
	}
	if !scope.IsAll() {
		return domain.Score{}, domain.ErrInvalidScope
	}

	taskIDs, err := s.history.ListTaskIDs(ctx, userID)
	if err != nil {
		return domain.Score{}, storeErr("list tasks", err)
	}

	var total aggregate
	for _, taskID := range taskIDs {
		agg, err := s.task(ctx, userID, taskID)
		if err != nil {
			return domain.Score{}, err
		}
		if agg.n == 0 {
			continue
		}
		mean := agg.mean()
		total.add(mean.grit, mean.productivity, mean.composite)
		total.instances += agg.instances
	}
	total.fill(&score)
	return score, nil
}

func (s *Scorer) task(ctx context.Context, userID, taskID uuid.UUID) (aggregate, error) {
	hist, err := s.history.LoadHistory(ctx, userID, taskID, s.window)
	if err != nil {
		return aggregate{}, storeErr("load history", err)
	}

	var agg aggregate
	for i, inst := range hist.Window {
		in, err := inst.FormulaInputs(hist.OrdinalOf(i))
		if err != nil {
			continue
		}
		b, err := s.calc.Score(in)
		if err != nil {
			return aggregate{}, err
		}
		agg.add(b.Grit, b.Productivity, b.Composite)
	}
	agg.instances = agg.n
	return agg, nil
}

type aggregate struct {
	grit, productivity, composite float64
	n                             int
	instances                     int
}

type means struct {
	grit, productivity, composite float64
}

func (a *aggregate) add(grit, productivity, composite float64) {
	a.grit += grit
	a.productivity += productivity
	a.composite += composite
	a.n++
}

func (a aggregate) mean() means {
	if a.n == 0 {
		return means{}
	}
	n := float64(a.n)
	return means{grit: a.grit / n, productivity: a.productivity / n, composite: a.composite / n}
}

func (a aggregate) fill(score *domain.Score) {
	m := a.mean()
	score.Grit = m.grit
	score.Productivity = m.productivity
	score.Composite = m.composite
	score.Instances = a.instances
}
