package trigger

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedInstance(t *testing.T, p domain.Predicted, a domain.Actuals) *domain.TaskInstance {
	t.Helper()
	inst, err := domain.NewTaskInstance(uuid.New(), uuid.New(), p)
	require.NoError(t, err)
	require.NoError(t, inst.Complete(a, time.Now()))
	return inst
}

// contextAt builds a predicate context where inst is the count-th completion.
func contextAt(t *testing.T, inst *domain.TaskInstance, count int, survey domain.SurveyProfile) Context {
	t.Helper()
	history := domain.NewCompletionHistory(inst.UserID(), inst.TaskID(), []*domain.TaskInstance{inst}, count)
	ctx, err := NewContext(inst, history, survey)
	require.NoError(t, err)
	return ctx
}

func matchedIDs(rules []Rule) []ID {
	ids := make([]ID, 0, len(rules))
	for _, r := range rules {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestNewContext_RequiresCompletion(t *testing.T) {
	inst, err := domain.NewTaskInstance(uuid.New(), uuid.New(), domain.Predicted{})
	require.NoError(t, err)

	_, err = NewContext(inst, domain.CompletionHistory{}, domain.EmptySurveyProfile(inst.UserID()))
	assert.ErrorIs(t, err, domain.ErrInstanceNotCompleted)
}

func TestCatalog_DeclaredOrder(t *testing.T) {
	cat := DefaultCatalog()

	assert.Equal(t, []ID{
		NegativeAffect,
		ExtremeOverrun,
		TimeOverrun,
		VeryLowCompletion,
		PartialCompletion,
		FirstDifficultCompletion,
		Procrastination,
	}, matchedIDs(cat.Rules()))

	for _, r := range cat.Rules() {
		require.NotNil(t, r.Questions, "rule %s has no question tree", r.ID)
		assert.NotEmpty(t, r.Questions.Leaves(), "rule %s has no answers", r.ID)
	}
}

func TestCatalog_Match(t *testing.T) {
	cat := DefaultCatalog()
	procrastinator, err := domain.NewSurveyProfile(uuid.New(), []domain.Struggle{domain.StruggleProcrastination})
	require.NoError(t, err)

	tests := []struct {
		name      string
		predicted domain.Predicted
		actuals   domain.Actuals
		count     int
		survey    domain.SurveyProfile
		want      []ID
	}{
		{
			name:      "on time full completion matches nothing",
			predicted: domain.Predicted{TimeEstimateMinutes: 60},
			actuals:   domain.Actuals{CompletionPercent: 100, TimeActualMinutes: 50, ActualRelief: 60, ActualEmotionalLoad: 20},
			count:     3,
			want:      nil,
		},
		{
			name:      "double overrun",
			predicted: domain.Predicted{TimeEstimateMinutes: 60},
			actuals:   domain.Actuals{CompletionPercent: 100, TimeActualMinutes: 121},
			count:     3,
			want:      []ID{TimeOverrun},
		},
		{
			name:      "exactly double is not an overrun",
			predicted: domain.Predicted{TimeEstimateMinutes: 60},
			actuals:   domain.Actuals{CompletionPercent: 100, TimeActualMinutes: 120},
			count:     3,
			want:      nil,
		},
		{
			name:      "extreme overrun also matches plain overrun",
			predicted: domain.Predicted{TimeEstimateMinutes: 10},
			actuals:   domain.Actuals{CompletionPercent: 100, TimeActualMinutes: 60},
			count:     3,
			want:      []ID{ExtremeOverrun, TimeOverrun},
		},
		{
			name:      "no estimate never overruns",
			predicted: domain.Predicted{TimeEstimateMinutes: 0},
			actuals:   domain.Actuals{CompletionPercent: 100, TimeActualMinutes: 600},
			count:     3,
			want:      nil,
		},
		{
			name:      "partial completion at the floor",
			predicted: domain.Predicted{},
			actuals:   domain.Actuals{CompletionPercent: 50},
			count:     3,
			want:      []ID{PartialCompletion},
		},
		{
			name:      "very low completion",
			predicted: domain.Predicted{},
			actuals:   domain.Actuals{CompletionPercent: 10},
			count:     3,
			want:      []ID{VeryLowCompletion},
		},
		{
			name:      "zero completion matches neither completion rule",
			predicted: domain.Predicted{},
			actuals:   domain.Actuals{CompletionPercent: 0},
			count:     3,
			want:      nil,
		},
		{
			name:      "first difficult completion",
			predicted: domain.Predicted{},
			actuals:   domain.Actuals{CompletionPercent: 100, ActualDifficulty: 85},
			count:     1,
			want:      []ID{FirstDifficultCompletion},
		},
		{
			name:      "second difficult completion does not match",
			predicted: domain.Predicted{},
			actuals:   domain.Actuals{CompletionPercent: 100, ActualDifficulty: 85},
			count:     2,
			want:      nil,
		},
		{
			name:      "procrastination needs the survey tag",
			predicted: domain.Predicted{TimeEstimateMinutes: 60},
			actuals:   domain.Actuals{CompletionPercent: 100, TimeActualMinutes: 90, StartupDelayMinutes: 120},
			count:     3,
			want:      nil,
		},
		{
			name:      "procrastination with survey tag",
			predicted: domain.Predicted{TimeEstimateMinutes: 60},
			actuals:   domain.Actuals{CompletionPercent: 100, TimeActualMinutes: 90, StartupDelayMinutes: 120},
			count:     3,
			survey:    procrastinator,
			want:      []ID{Procrastination},
		},
		{
			name:      "procrastination needs startup delay",
			predicted: domain.Predicted{TimeEstimateMinutes: 60},
			actuals:   domain.Actuals{CompletionPercent: 100, TimeActualMinutes: 90, StartupDelayMinutes: 30},
			count:     3,
			survey:    procrastinator,
			want:      nil,
		},
		{
			name:      "overrun scenario with negative affect",
			predicted: domain.Predicted{TimeEstimateMinutes: 60, TaskDifficulty: 80},
			actuals:   domain.Actuals{CompletionPercent: 100, TimeActualMinutes: 150, ActualRelief: 20, ActualEmotionalLoad: 75},
			count:     10,
			want:      []ID{NegativeAffect, TimeOverrun},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inst := completedInstance(t, tc.predicted, tc.actuals)
			survey := tc.survey
			if survey.UserID == uuid.Nil {
				survey = domain.EmptySurveyProfile(inst.UserID())
			}
			got := cat.Match(contextAt(t, inst, tc.count, survey))
			if tc.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.want, matchedIDs(got))
		})
	}
}

func TestCatalog_CustomThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.TimeOverrunRatio = 1.5
	cat := NewCatalog(th)

	inst := completedInstance(t, domain.Predicted{TimeEstimateMinutes: 60}, domain.Actuals{CompletionPercent: 100, TimeActualMinutes: 100})
	got := cat.Match(contextAt(t, inst, 3, domain.EmptySurveyProfile(inst.UserID())))

	assert.Equal(t, []ID{TimeOverrun}, matchedIDs(got))
	assert.Equal(t, 1.5, cat.Thresholds().TimeOverrunRatio)
}

func TestSelect(t *testing.T) {
	cat := DefaultCatalog()
	rule := func(id ID) Rule {
		r, ok := cat.Rule(id)
		require.True(t, ok)
		return r
	}

	t.Run("empty selects nothing", func(t *testing.T) {
		_, ok := Select(nil)
		assert.False(t, ok)
	})

	t.Run("higher priority wins regardless of position", func(t *testing.T) {
		got, ok := Select([]Rule{rule(PartialCompletion), rule(TimeOverrun)})
		require.True(t, ok)
		assert.Equal(t, TimeOverrun, got.ID)
	})

	t.Run("declared order breaks ties", func(t *testing.T) {
		got, ok := Select([]Rule{rule(NegativeAffect), rule(ExtremeOverrun), rule(TimeOverrun)})
		require.True(t, ok)
		assert.Equal(t, NegativeAffect, got.ID)

		got, ok = Select([]Rule{rule(ExtremeOverrun), rule(TimeOverrun)})
		require.True(t, ok)
		assert.Equal(t, ExtremeOverrun, got.ID)
	})

	t.Run("unknown rule lookup", func(t *testing.T) {
		_, ok := cat.Rule("nope")
		assert.False(t, ok)
	})
}

func TestPriority_String(t *testing.T) {
	assert.Equal(t, "high", PriorityHigh.String())
	assert.Equal(t, "medium", PriorityMedium.String())
	assert.Equal(t, "low", PriorityLow.String())
	assert.Equal(t, "unknown", Priority(0).String())
}
