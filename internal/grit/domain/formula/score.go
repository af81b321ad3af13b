package formula

import "math"

// Adjustments are corrections recorded from a follow-up answer. The zero
// value leaves every score untouched.
type Adjustments struct {
	// TimeBonusDiscount removes this fraction of the time bonus; 1 forces
	// the bonus to exactly 1.0.
	TimeBonusDiscount float64 `json:"time_bonus_discount,omitempty"`
	// ProductivityPenalty removes this fraction of the productivity score.
	ProductivityPenalty float64 `json:"productivity_penalty,omitempty"`
	// PassionShift is added to relief-vs-load before clamping.
	PassionShift float64 `json:"passion_shift,omitempty"`
}

// IsZero reports whether no adjustment applies.
func (a Adjustments) IsZero() bool {
	return a == Adjustments{}
}

// Validate checks that the fractions are within [0,1].
func (a Adjustments) Validate() error {
	if math.IsNaN(a.PassionShift) || math.IsInf(a.PassionShift, 0) {
		return invalid("passion_shift", a.PassionShift, "must be finite")
	}
	if !(a.TimeBonusDiscount >= 0 && a.TimeBonusDiscount <= 1) {
		return invalid("time_bonus_discount", a.TimeBonusDiscount, "must be within [0,1]")
	}
	if !(a.ProductivityPenalty >= 0 && a.ProductivityPenalty <= 1) {
		return invalid("productivity_penalty", a.ProductivityPenalty, "must be within [0,1]")
	}
	return nil
}

// Inputs are the primitive values one completed instance contributes.
type Inputs struct {
	CompletionPercent   float64
	CompletionCount     int
	TimeActualMinutes   float64
	TimeEstimateMinutes float64
	Difficulty          float64
	ActualRelief        float64
	ExpectedRelief      float64
	ActualEmotionalLoad float64
	Adjustments         Adjustments
}

// Breakdown carries the final scores together with every intermediate term.
type Breakdown struct {
	Persistence  float64 `json:"persistence"`
	Decay        float64 `json:"decay"`
	Fade         float64 `json:"fade"`
	TimeBonus    float64 `json:"time_bonus"`
	Passion      float64 `json:"passion"`
	Efficiency   float64 `json:"efficiency"`
	Grit         float64 `json:"grit"`
	Productivity float64 `json:"productivity"`
	Composite    float64 `json:"composite"`
}

// Validate rejects inputs outside their documented domain. Difficulty,
// relief and load are clamped by the formulas and only need to be finite.
func (in Inputs) Validate() error {
	finite := []struct {
		name  string
		value float64
	}{
		{"completion_percent", in.CompletionPercent},
		{"time_actual_minutes", in.TimeActualMinutes},
		{"time_estimate_minutes", in.TimeEstimateMinutes},
		{"difficulty", in.Difficulty},
		{"actual_relief", in.ActualRelief},
		{"expected_relief", in.ExpectedRelief},
		{"actual_emotional_load", in.ActualEmotionalLoad},
		{"time_bonus_discount", in.Adjustments.TimeBonusDiscount},
		{"productivity_penalty", in.Adjustments.ProductivityPenalty},
		{"passion_shift", in.Adjustments.PassionShift},
	}
	for _, f := range finite {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return invalid(f.name, f.value, "must be finite")
		}
	}

	if in.CompletionPercent < 0 || in.CompletionPercent > 100 {
		return invalid("completion_percent", in.CompletionPercent, "must be within [0,100]")
	}
	if in.CompletionCount < 0 {
		return invalid("completion_count", float64(in.CompletionCount), "must be >= 0")
	}
	if in.TimeActualMinutes < 0 {
		return invalid("time_actual_minutes", in.TimeActualMinutes, "must be >= 0")
	}
	if in.TimeEstimateMinutes < 0 {
		return invalid("time_estimate_minutes", in.TimeEstimateMinutes, "must be >= 0")
	}
	return in.Adjustments.Validate()
}

// Score computes grit, productivity and composite scores for one instance.
func (c *Calculator) Score(in Inputs) (Breakdown, error) {
	if err := in.Validate(); err != nil {
		return Breakdown{}, err
	}

	b := Breakdown{
		Persistence: c.Persistence(in.CompletionCount),
		Decay:       c.Decay(in.CompletionCount),
		Fade:        c.Fade(in.CompletionCount),
		Efficiency:  c.Efficiency(in.TimeActualMinutes, in.TimeEstimateMinutes),
	}

	bonus := c.TimeBonus(in.TimeActualMinutes, in.TimeEstimateMinutes, in.Difficulty, in.CompletionCount)
	b.TimeBonus = 1.0 + (bonus-1.0)*(1.0-in.Adjustments.TimeBonusDiscount)
	b.Passion = c.passion(in.ActualRelief, in.ActualEmotionalLoad, in.CompletionPercent, in.Adjustments.PassionShift)

	b.Grit = in.CompletionPercent * b.Persistence * b.TimeBonus * b.Passion
	b.Productivity = in.CompletionPercent * b.Efficiency * (1.0 - in.Adjustments.ProductivityPenalty)
	b.Composite = c.Composite(b.Grit, b.Productivity)

	return b, nil
}

// Composite blends grit and productivity with the configured weights.
func (c *Calculator) Composite(grit, productivity float64) float64 {
	return c.cfg.GritWeight*grit + c.cfg.ProductivityWeight*productivity
}
