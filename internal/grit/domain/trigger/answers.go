package trigger

import "github.com/felixgeelhaar/gritline/internal/grit/domain/formula"

// Answer is a leaf of a question tree. The set of answers is closed: every
// leaf type lives in this file and must say how it corrects the score inputs.
type Answer interface {
	Code() string
	Impact() formula.Adjustments
	isAnswer()
}

// FocusedProud: worked focused and felt proud. The time bonus stands.
type FocusedProud struct{}

func (FocusedProud) Code() string                { return "focused_proud" }
func (FocusedProud) Impact() formula.Adjustments { return formula.Adjustments{} }
func (FocusedProud) isAnswer()                   {}

// FocusedFrustrated: focused, but frustration outweighed pride.
type FocusedFrustrated struct{}

func (FocusedFrustrated) Code() string { return "focused_frustrated" }
func (FocusedFrustrated) Impact() formula.Adjustments {
	return formula.Adjustments{PassionShift: -0.1}
}
func (FocusedFrustrated) isAnswer() {}

// Distracted: the overrun was lost time, not effort.
type Distracted struct{}

func (Distracted) Code() string { return "distracted" }
func (Distracted) Impact() formula.Adjustments {
	return formula.Adjustments{TimeBonusDiscount: 1, ProductivityPenalty: 0.2}
}
func (Distracted) isAnswer() {}

// ScopeUnderestimated: the task was bigger than planned. The overrun is real work.
type ScopeUnderestimated struct{}

func (ScopeUnderestimated) Code() string                { return "scope_underestimated" }
func (ScopeUnderestimated) Impact() formula.Adjustments { return formula.Adjustments{} }
func (ScopeUnderestimated) isAnswer()                   {}

// BlockedExternally: waiting on someone else inflated the time.
type BlockedExternally struct{}

func (BlockedExternally) Code() string { return "blocked_externally" }
func (BlockedExternally) Impact() formula.Adjustments {
	return formula.Adjustments{TimeBonusDiscount: 0.5}
}
func (BlockedExternally) isAnswer() {}

// RanOutOfEnergy: stopped early because of fatigue.
type RanOutOfEnergy struct{}

func (RanOutOfEnergy) Code() string { return "ran_out_of_energy" }
func (RanOutOfEnergy) Impact() formula.Adjustments {
	return formula.Adjustments{PassionShift: -0.1}
}
func (RanOutOfEnergy) isAnswer() {}

// ChoseToStop: stopped deliberately because the rest was not worth doing.
type ChoseToStop struct{}

func (ChoseToStop) Code() string { return "chose_to_stop" }
func (ChoseToStop) Impact() formula.Adjustments {
	return formula.Adjustments{PassionShift: 0.1}
}
func (ChoseToStop) isAnswer() {}

// DrainingButNecessary: low relief, but the task had to be done.
type DrainingButNecessary struct{}

func (DrainingButNecessary) Code() string { return "draining_but_necessary" }
func (DrainingButNecessary) Impact() formula.Adjustments {
	return formula.Adjustments{PassionShift: 0.2}
}
func (DrainingButNecessary) isAnswer() {}

// ShouldRethink: the task is not worth its emotional cost.
type ShouldRethink struct{}

func (ShouldRethink) Code() string { return "should_rethink" }
func (ShouldRethink) Impact() formula.Adjustments {
	return formula.Adjustments{PassionShift: -0.1, ProductivityPenalty: 0.1}
}
func (ShouldRethink) isAnswer() {}

// PushedThrough: finished a hard first attempt through deliberate effort.
type PushedThrough struct{}

func (PushedThrough) Code() string { return "pushed_through" }
func (PushedThrough) Impact() formula.Adjustments {
	return formula.Adjustments{PassionShift: 0.2}
}
func (PushedThrough) isAnswer() {}

// BarelyGotThrough: finished a hard first attempt with little left.
type BarelyGotThrough struct{}

func (BarelyGotThrough) Code() string                { return "barely_got_through" }
func (BarelyGotThrough) Impact() formula.Adjustments { return formula.Adjustments{} }
func (BarelyGotThrough) isAnswer()                   {}

// AvoidedOnPurpose: the delay was avoidance, so the overrun earns no bonus.
type AvoidedOnPurpose struct{}

func (AvoidedOnPurpose) Code() string { return "avoided_on_purpose" }
func (AvoidedOnPurpose) Impact() formula.Adjustments {
	return formula.Adjustments{TimeBonusDiscount: 1, ProductivityPenalty: 0.3}
}
func (AvoidedOnPurpose) isAnswer() {}

// WaitedForMomentum: the delay was a deliberate warm-up.
type WaitedForMomentum struct{}

func (WaitedForMomentum) Code() string { return "waited_for_momentum" }
func (WaitedForMomentum) Impact() formula.Adjustments {
	return formula.Adjustments{TimeBonusDiscount: 0.5}
}
func (WaitedForMomentum) isAnswer() {}

// AllAnswers lists every leaf type.
func AllAnswers() []Answer {
	return []Answer{
		FocusedProud{},
		FocusedFrustrated{},
		Distracted{},
		ScopeUnderestimated{},
		BlockedExternally{},
		RanOutOfEnergy{},
		ChoseToStop{},
		DrainingButNecessary{},
		ShouldRethink{},
		PushedThrough{},
		BarelyGotThrough{},
		AvoidedOnPurpose{},
		WaitedForMomentum{},
	}
}
