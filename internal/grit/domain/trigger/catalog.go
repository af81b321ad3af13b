// Package trigger declares the popup rules evaluated when a task instance is
// completed, and the question trees that collect the answer.
package trigger

import (
	"github.com/felixgeelhaar/gritline/internal/grit/domain"
)

// ID identifies a trigger rule. IDs are stored in trigger records.
type ID string

const (
	NegativeAffect           ID = "negative_affect"
	ExtremeOverrun           ID = "extreme_overrun"
	TimeOverrun              ID = "time_overrun"
	VeryLowCompletion        ID = "very_low_completion"
	PartialCompletion        ID = "partial_completion"
	FirstDifficultCompletion ID = "first_difficult_completion"
	Procrastination          ID = "procrastination"
)

// Priority orders matching rules. Higher wins.
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// Thresholds are the policy values used by the predicates.
type Thresholds struct {
	TimeOverrunRatio            float64 `yaml:"time_overrun_ratio"`
	ExtremeOverrunRatio         float64 `yaml:"extreme_overrun_ratio"`
	PartialCompletionFloor      float64 `yaml:"partial_completion_floor"`
	DifficultyAbove             float64 `yaml:"difficulty_above"`
	NegativeReliefBelow         float64 `yaml:"negative_relief_below"`
	NegativeLoadAbove           float64 `yaml:"negative_load_above"`
	StartupDelayAboveMinutes    float64 `yaml:"startup_delay_above_minutes"`
	ProcrastinationOverrunRatio float64 `yaml:"procrastination_overrun_ratio"`
}

// DefaultThresholds returns the production thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TimeOverrunRatio:            2.0,
		ExtremeOverrunRatio:         5.0,
		PartialCompletionFloor:      50,
		DifficultyAbove:             70,
		NegativeReliefBelow:         30,
		NegativeLoadAbove:           70,
		StartupDelayAboveMinutes:    60,
		ProcrastinationOverrunRatio: 1.0,
	}
}

// Context is what a predicate sees about a completed instance.
type Context struct {
	Instance        *domain.TaskInstance
	Predicted       domain.Predicted
	Actuals         domain.Actuals
	CompletionCount int
	History         domain.CompletionHistory
	Survey          domain.SurveyProfile
}

// NewContext assembles the predicate context. The instance must be completed.
func NewContext(inst *domain.TaskInstance, history domain.CompletionHistory, survey domain.SurveyProfile) (Context, error) {
	actuals, ok := inst.Actuals()
	if !ok {
		return Context{}, domain.ErrInstanceNotCompleted
	}
	return Context{
		Instance:        inst,
		Predicted:       inst.Predicted(),
		Actuals:         actuals,
		CompletionCount: history.CountFor(inst.ID()),
		History:         history,
		Survey:          survey,
	}, nil
}

// overrun reports whether actual time exceeds ratio times the estimate.
func (c Context) overrun(ratio float64) bool {
	est := c.Predicted.TimeEstimateMinutes
	return est > 0 && c.Actuals.TimeActualMinutes > ratio*est
}

// Rule is one declarative trigger.
type Rule struct {
	ID        ID
	Priority  Priority
	Predicate func(Context) bool
	Questions *Question
}

// Catalog is the ordered rule set. Declaration order breaks priority ties,
// so more specific rules are declared before the rules they supersede.
type Catalog struct {
	rules      []Rule
	thresholds Thresholds
}

// NewCatalog builds the default rules with the given thresholds.
func NewCatalog(th Thresholds) *Catalog {
	rules := []Rule{
		{
			ID:       NegativeAffect,
			Priority: PriorityHigh,
			Predicate: func(c Context) bool {
				return c.Actuals.CompletionPercent >= 100 &&
					c.Actuals.ActualRelief < th.NegativeReliefBelow &&
					c.Actuals.ActualEmotionalLoad > th.NegativeLoadAbove
			},
			Questions: negativeAffectTree(),
		},
		{
			ID:       ExtremeOverrun,
			Priority: PriorityHigh,
			Predicate: func(c Context) bool {
				return c.overrun(th.ExtremeOverrunRatio)
			},
			Questions: overrunTree("This took more than five times your estimate. Were you focused?"),
		},
		{
			ID:       TimeOverrun,
			Priority: PriorityHigh,
			Predicate: func(c Context) bool {
				return c.overrun(th.TimeOverrunRatio)
			},
			Questions: overrunTree("This took over twice your estimate. Were you focused?"),
		},
		{
			ID:       VeryLowCompletion,
			Priority: PriorityMedium,
			Predicate: func(c Context) bool {
				p := c.Actuals.CompletionPercent
				return p > 0 && p < th.PartialCompletionFloor
			},
			Questions: partialTree("You got less than halfway. What stopped you?"),
		},
		{
			ID:       PartialCompletion,
			Priority: PriorityMedium,
			Predicate: func(c Context) bool {
				p := c.Actuals.CompletionPercent
				return p >= th.PartialCompletionFloor && p < 100
			},
			Questions: partialTree("You got most of the way. What stopped you?"),
		},
		{
			ID:       FirstDifficultCompletion,
			Priority: PriorityMedium,
			Predicate: func(c Context) bool {
				return c.CompletionCount == 1 &&
					c.Actuals.ActualDifficulty > th.DifficultyAbove &&
					c.Actuals.CompletionPercent >= 100
			},
			Questions: firstDifficultTree(),
		},
		{
			ID:       Procrastination,
			Priority: PriorityMedium,
			Predicate: func(c Context) bool {
				return c.Survey.Has(domain.StruggleProcrastination) &&
					c.overrun(th.ProcrastinationOverrunRatio) &&
					c.Actuals.StartupDelayMinutes > th.StartupDelayAboveMinutes
			},
			Questions: procrastinationTree(),
		},
	}
	return &Catalog{rules: rules, thresholds: th}
}

// DefaultCatalog builds the catalog with DefaultThresholds.
func DefaultCatalog() *Catalog {
	return NewCatalog(DefaultThresholds())
}

// Rules returns the rules in declared order.
func (c *Catalog) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Thresholds returns the thresholds the catalog was built with.
func (c *Catalog) Thresholds() Thresholds {
	return c.thresholds
}

// Rule looks up a rule by ID.
func (c *Catalog) Rule(id ID) (Rule, bool) {
	for _, r := range c.rules {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}

// Match returns every rule whose predicate holds, in declared order.
func (c *Catalog) Match(ctx Context) []Rule {
	var matched []Rule
	for _, r := range c.rules {
		if r.Predicate(ctx) {
			matched = append(matched, r)
		}
	}
	return matched
}

// Select picks the highest priority rule, breaking ties by declared order.
// The input must already be in declared order.
func Select(candidates []Rule) (Rule, bool) {
	if len(candidates) == 0 {
		return Rule{}, false
	}
	best := candidates[0]
	for _, r := range candidates[1:] {
		if r.Priority > best.Priority {
			best = r
		}
	}
	return best, true
}
