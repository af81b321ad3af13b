// Package formula computes grit, productivity and composite scores for a
// completed task instance.
//
// Every method on Calculator is pure: the same inputs always produce the same
// outputs and nothing is mutated, so a Calculator is safe for concurrent use
// without locking.
//
// The grit score is the product of four terms:
//
//	grit = completion × P(count) × T(actual, estimate, difficulty, count) × A(relief, load, completion)
//
// where P is the persistence multiplier, T the time bonus and A the passion
// factor. Each multiplier is bounded independently (P ∈ [1,5], T ∈ [1,3],
// A ∈ [0.5,1.5]) so grit stays within [0, 2250].
package formula

import "math"

// Calculator evaluates the scoring curves fitted from a Config.
type Calculator struct {
	cfg    Config
	curves curves
}

// NewCalculator validates the configuration and fits the curves.
func NewCalculator(cfg Config) (*Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{cfg: cfg, curves: fit(cfg)}, nil
}

// Default returns a calculator built from DefaultConfig.
func Default() *Calculator {
	calc, err := NewCalculator(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return calc
}

// Config returns the configuration the calculator was built from.
func (c *Calculator) Config() Config {
	return c.cfg
}

// Persistence returns the persistence multiplier for the given number of
// completions of the same task. It is defined for every count and always
// lies in [1, MaxPersistence].
func (c *Calculator) Persistence(count int) float64 {
	if count <= 1 {
		return 1.0
	}
	growth := c.rawGrowth(count)
	p := 1.0 + (growth-1.0)*c.Decay(count)
	return clamp(p, 1.0, c.cfg.MaxPersistence)
}

// rawGrowth is the two-stage growth curve before familiarity decay.
func (c *Calculator) rawGrowth(count int) float64 {
	if count <= 1 {
		return 1.0
	}
	pivot := c.cfg.GrowthPivot.Count
	if count <= pivot {
		return 1.0 + c.curves.growthScale*math.Pow(float64(count-1), c.curves.growthExponent)
	}
	return c.rawGrowth(pivot) + c.cfg.TailGrowth*math.Log(float64(count)/float64(pivot))
}

// Decay is the familiarity decay factor. It is 1 up to the growth pivot and
// then falls hyperbolically toward, but never reaching, zero.
func (c *Calculator) Decay(count int) float64 {
	return hyperbolic(count, c.cfg.GrowthPivot.Count, c.curves.decayHalfSpan)
}

// Fade is the repetition fade applied to the time bonus.
func (c *Calculator) Fade(count int) float64 {
	return hyperbolic(count, c.cfg.FadeStart, c.curves.fadeHalfSpan)
}

// TimeBonus rewards overrunning the estimate, weighted by difficulty and
// faded by repetition. Finishing on or under time earns nothing here.
func (c *Calculator) TimeBonus(actual, estimate, difficulty float64, count int) float64 {
	if estimate <= 0 || actual <= 0 {
		return 1.0
	}
	ratio := actual / estimate
	if ratio <= 1.0 {
		return 1.0
	}

	excess := ratio - 1.0
	var base float64
	if excess <= c.cfg.OverrunKnee {
		base = 1.0 + c.cfg.OverrunSlope*excess
	} else {
		base = 1.0 + c.cfg.OverrunSlope*c.cfg.OverrunKnee + c.cfg.OverrunTailSlope*(excess-c.cfg.OverrunKnee)
	}
	base = math.Min(base, c.cfg.MaxTimeBonus)

	difficultyFactor := clamp(difficulty, 0, 100) / 100
	credit := c.cfg.EasyTaskCredit + (1-c.cfg.EasyTaskCredit)*difficultyFactor
	weighted := 1.0 + (base-1.0)*credit

	return 1.0 + (weighted-1.0)*c.Fade(count)
}

// Passion reflects relief obtained relative to emotional load, damped by
// partial completion. Expected relief plays no part: the factor is driven by
// what was actually felt.
func (c *Calculator) Passion(actualRelief, actualLoad, completion float64) float64 {
	return c.passion(actualRelief, actualLoad, completion, 0)
}

func (c *Calculator) passion(actualRelief, actualLoad, completion, shift float64) float64 {
	span := c.cfg.PassionSpan
	reliefVsLoad := clamp((actualRelief-actualLoad)/100.0+shift, -1, 1)
	p := clamp(1.0+span*reliefVsLoad, 1-span, 1+span)
	if completion < 100 {
		p = 1.0 + (p-1.0)*(clamp(completion, 0, 100)/100.0)
	}
	return p
}

// Efficiency scores the time ratio for productivity: finishing under the
// estimate earns up to 1+UnderrunSlope, overrunning decays as 1/ratio.
func (c *Calculator) Efficiency(actual, estimate float64) float64 {
	if estimate <= 0 || actual <= 0 {
		return 1.0
	}
	ratio := actual / estimate
	if ratio <= 1.0 {
		return 1.0 + c.cfg.UnderrunSlope*(1.0-ratio)
	}
	return math.Max(c.cfg.EfficiencyFloor, 1.0/ratio)
}

// hyperbolic returns 1 up to start, then 1/(1+(n-start)/half).
func hyperbolic(n, start int, half float64) float64 {
	if n <= start {
		return 1.0
	}
	return 1.0 / (1.0 + float64(n-start)/half)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
