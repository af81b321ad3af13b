package formula

import (
	"fmt"
	"math"
)

// Anchor pins a curve to a target value at a given completion count.
type Anchor struct {
	Count int     `yaml:"count"`
	Value float64 `yaml:"value"`
}

// Config tunes every curve used by the calculator. Curve shapes are derived
// from the anchors when a Calculator is built.
type Config struct {
	// Persistence growth. Stage one is a power law through GrowthStart and
	// GrowthPivot; past the pivot growth continues logarithmically.
	GrowthStart    Anchor  `yaml:"growth_start"`
	GrowthPivot    Anchor  `yaml:"growth_pivot"`
	TailGrowth     float64 `yaml:"tail_growth"`
	DecayMidpoint  Anchor  `yaml:"decay_midpoint"`
	MaxPersistence float64 `yaml:"max_persistence"`

	// Time bonus
	OverrunSlope     float64 `yaml:"overrun_slope"`
	OverrunKnee      float64 `yaml:"overrun_knee"`
	OverrunTailSlope float64 `yaml:"overrun_tail_slope"`
	MaxTimeBonus     float64 `yaml:"max_time_bonus"`
	EasyTaskCredit   float64 `yaml:"easy_task_credit"`
	FadeStart        int     `yaml:"fade_start"`
	FadeMidpoint     Anchor  `yaml:"fade_midpoint"`

	// Passion
	PassionSpan float64 `yaml:"passion_span"`

	// Productivity
	EfficiencyFloor float64 `yaml:"efficiency_floor"`
	UnderrunSlope   float64 `yaml:"underrun_slope"`

	// Composite
	GritWeight         float64 `yaml:"grit_weight"`
	ProductivityWeight float64 `yaml:"productivity_weight"`
}

// DefaultConfig returns the tuned production curves.
func DefaultConfig() Config {
	return Config{
		GrowthStart:    Anchor{Count: 2, Value: 1.02},
		GrowthPivot:    Anchor{Count: 100, Value: 4.1},
		TailGrowth:     0.5,
		DecayMidpoint:  Anchor{Count: 300, Value: 0.5},
		MaxPersistence: 5.0,

		OverrunSlope:     0.5,
		OverrunKnee:      1.0,
		OverrunTailSlope: 0.2,
		MaxTimeBonus:     3.0,
		EasyTaskCredit:   0.5,
		FadeStart:        10,
		FadeMidpoint:     Anchor{Count: 50, Value: 0.5},

		PassionSpan: 0.5,

		EfficiencyFloor: 0.5,
		UnderrunSlope:   0.5,

		GritWeight:         0.5,
		ProductivityWeight: 0.5,
	}
}

// Validate checks that the anchors describe curves with the required shape.
func (c Config) Validate() error {
	switch {
	case c.GrowthStart.Count < 2:
		return configErr("growth_start.count must be >= 2")
	case c.GrowthPivot.Count <= c.GrowthStart.Count:
		return configErr("growth_pivot.count must exceed growth_start.count")
	case c.GrowthStart.Value <= 1:
		return configErr("growth_start.value must be > 1")
	case c.GrowthPivot.Value <= c.GrowthStart.Value:
		return configErr("growth_pivot.value must exceed growth_start.value")
	case c.TailGrowth < 0:
		return configErr("tail_growth must be >= 0")
	case c.DecayMidpoint.Count <= c.GrowthPivot.Count:
		return configErr("decay_midpoint.count must exceed growth_pivot.count")
	case !openUnit(c.DecayMidpoint.Value):
		return configErr("decay_midpoint.value must be in (0,1)")
	case c.MaxPersistence < c.GrowthPivot.Value:
		return configErr("max_persistence must be >= growth_pivot.value")
	case c.OverrunSlope < 0 || c.OverrunTailSlope < 0 || c.OverrunKnee <= 0:
		return configErr("overrun slopes must be >= 0 and knee > 0")
	case c.MaxTimeBonus < 1:
		return configErr("max_time_bonus must be >= 1")
	case c.EasyTaskCredit < 0 || c.EasyTaskCredit > 1:
		return configErr("easy_task_credit must be in [0,1]")
	case c.FadeStart < 1:
		return configErr("fade_start must be >= 1")
	case c.FadeMidpoint.Count <= c.FadeStart:
		return configErr("fade_midpoint.count must exceed fade_start")
	case !openUnit(c.FadeMidpoint.Value):
		return configErr("fade_midpoint.value must be in (0,1)")
	case c.PassionSpan <= 0 || c.PassionSpan >= 1:
		return configErr("passion_span must be in (0,1)")
	case c.EfficiencyFloor <= 0 || c.EfficiencyFloor > 1:
		return configErr("efficiency_floor must be in (0,1]")
	case c.UnderrunSlope < 0:
		return configErr("underrun_slope must be >= 0")
	case c.GritWeight < 0 || c.ProductivityWeight < 0:
		return configErr("composite weights must be >= 0")
	}
	return nil
}

// curves holds the parameters fitted from a Config.
type curves struct {
	growthScale    float64 // a in 1 + a*(n-1)^b
	growthExponent float64 // b
	decayHalfSpan  float64 // counts past the pivot where decay reaches 1/2
	fadeHalfSpan   float64 // counts past fade start where fade reaches 1/2
}

func fit(c Config) curves {
	x1 := float64(c.GrowthStart.Count - 1)
	x2 := float64(c.GrowthPivot.Count - 1)
	y1 := c.GrowthStart.Value - 1
	y2 := c.GrowthPivot.Value - 1

	exponent := math.Log(y2/y1) / math.Log(x2/x1)
	scale := y1 / math.Pow(x1, exponent)

	return curves{
		growthScale:    scale,
		growthExponent: exponent,
		decayHalfSpan:  halfSpan(c.DecayMidpoint, c.GrowthPivot.Count),
		fadeHalfSpan:   halfSpan(c.FadeMidpoint, c.FadeStart),
	}
}

// halfSpan solves 1/(1+(count-start)/h) = value for h.
func halfSpan(a Anchor, start int) float64 {
	return float64(a.Count-start) * a.Value / (1 - a.Value)
}

func openUnit(v float64) bool {
	return v > 0 && v < 1
}

func configErr(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
