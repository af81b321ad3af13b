package trigger

import (
	"fmt"

	"github.com/felixgeelhaar/gritline/internal/grit/domain"
)

// Axis names what a question asks about. Focus and affect answers are stored
// on the instance.
type Axis string

const (
	AxisFocus  Axis = "focus"
	AxisAffect Axis = "affect"
	AxisCause  Axis = "cause"
)

// Question is a node of a question tree.
type Question struct {
	Axis    Axis     `json:"axis"`
	Prompt  string   `json:"prompt"`
	Options []Option `json:"options"`
}

// Option leads either to a follow-up question or to an answer.
type Option struct {
	Code   string    `json:"code"`
	Label  string    `json:"label"`
	Next   *Question `json:"next,omitempty"`
	Answer Answer    `json:"-"`
}

// Resolution is the outcome of walking a question tree.
type Resolution struct {
	Answer         Answer
	FocusResponse  string
	AffectResponse string
}

// Resolve follows the option codes from the root to a leaf answer.
func (q *Question) Resolve(path []string) (Resolution, error) {
	var res Resolution
	node := q
	for depth, code := range path {
		if node == nil {
			return Resolution{}, fmt.Errorf("%w: path continues past answer at %q", domain.ErrInvalidResponsePath, code)
		}
		opt, ok := node.option(code)
		if !ok {
			return Resolution{}, fmt.Errorf("%w: no option %q at depth %d", domain.ErrInvalidResponsePath, code, depth)
		}

		switch node.Axis {
		case AxisFocus:
			res.FocusResponse = code
		case AxisAffect:
			res.AffectResponse = code
		}

		if opt.Answer != nil {
			res.Answer = opt.Answer
			node = nil
			continue
		}
		node = opt.Next
	}

	if res.Answer == nil || node != nil {
		return Resolution{}, fmt.Errorf("%w: path %v stops before an answer", domain.ErrInvalidResponsePath, path)
	}
	return res, nil
}

func (q *Question) option(code string) (Option, bool) {
	for _, o := range q.Options {
		if o.Code == code {
			return o, true
		}
	}
	return Option{}, false
}

// Leaves returns every answer reachable from q, depth first.
func (q *Question) Leaves() []Answer {
	var out []Answer
	for _, o := range q.Options {
		if o.Answer != nil {
			out = append(out, o.Answer)
			continue
		}
		if o.Next != nil {
			out = append(out, o.Next.Leaves()...)
		}
	}
	return out
}

// Paths returns the option path of every leaf, depth first.
func (q *Question) Paths() [][]string {
	var out [][]string
	for _, o := range q.Options {
		if o.Answer != nil {
			out = append(out, []string{o.Code})
			continue
		}
		if o.Next != nil {
			for _, p := range o.Next.Paths() {
				out = append(out, append([]string{o.Code}, p...))
			}
		}
	}
	return out
}

func leaf(code, label string, a Answer) Option {
	return Option{Code: code, Label: label, Answer: a}
}

func branch(code, label string, next *Question) Option {
	return Option{Code: code, Label: label, Next: next}
}

func overrunTree(prompt string) *Question {
	return &Question{
		Axis:   AxisFocus,
		Prompt: prompt,
		Options: []Option{
			branch("focused", "I was focused the whole time", &Question{
				Axis:   AxisAffect,
				Prompt: "How do you feel about it now?",
				Options: []Option{
					leaf("proud", "Proud I stuck with it", FocusedProud{}),
					leaf("frustrated", "Mostly frustrated", FocusedFrustrated{}),
				},
			}),
			branch("not_focused", "Not really", &Question{
				Axis:   AxisCause,
				Prompt: "What got in the way?",
				Options: []Option{
					leaf("distracted", "I got distracted", Distracted{}),
					leaf("blocked", "I was waiting on something or someone", BlockedExternally{}),
				},
			}),
			leaf("scope", "The task turned out bigger than I thought", ScopeUnderestimated{}),
		},
	}
}

func partialTree(prompt string) *Question {
	return &Question{
		Axis:   AxisCause,
		Prompt: prompt,
		Options: []Option{
			leaf("energy", "I ran out of energy", RanOutOfEnergy{}),
			leaf("chose_to_stop", "I decided the rest wasn't worth it", ChoseToStop{}),
			leaf("blocked", "Something outside my control blocked me", BlockedExternally{}),
			leaf("distracted", "I got pulled away", Distracted{}),
		},
	}
}

func negativeAffectTree() *Question {
	return &Question{
		Axis:   AxisAffect,
		Prompt: "You finished, but it felt heavy. Which fits best?",
		Options: []Option{
			leaf("necessary", "Draining, but it had to be done", DrainingButNecessary{}),
			leaf("rethink", "I should rethink whether this is worth it", ShouldRethink{}),
		},
	}
}

func firstDifficultTree() *Question {
	return &Question{
		Axis:   AxisAffect,
		Prompt: "First time through a hard one. How did it go?",
		Options: []Option{
			leaf("pushed_through", "I pushed through on purpose", PushedThrough{}),
			leaf("barely", "I barely got through it", BarelyGotThrough{}),
		},
	}
}

func procrastinationTree() *Question {
	return &Question{
		Axis:   AxisCause,
		Prompt: "It took a while to get started. What was going on?",
		Options: []Option{
			leaf("avoided", "I was avoiding it", AvoidedOnPurpose{}),
			leaf("momentum", "I was building up momentum", WaitedForMomentum{}),
			leaf("blocked", "I couldn't start until something else was done", BlockedExternally{}),
		},
	}
}
