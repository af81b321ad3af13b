package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Struggle is a tag from the user's self-reported struggle survey.
type Struggle string

const (
	StruggleProcrastination Struggle = "procrastination"
	StrugglePerfectionism   Struggle = "perfectionism"
	StruggleOverwhelm       Struggle = "overwhelm"
	StruggleLowEnergy       Struggle = "low_energy"
	StruggleDistractibility Struggle = "distractibility"
)

// IsValid checks if the struggle is a known tag.
func (s Struggle) IsValid() bool {
	switch s {
	case StruggleProcrastination, StrugglePerfectionism, StruggleOverwhelm, StruggleLowEnergy, StruggleDistractibility:
		return true
	default:
		return false
	}
}

// ParseStruggle normalizes user input such as "Low Energy" to a tag.
func ParseStruggle(s string) (Struggle, error) {
	tag := Struggle(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_"))
	if !tag.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStruggle, s)
	}
	return tag, nil
}

// SurveyProfile is the set of struggles a user reported.
type SurveyProfile struct {
	UserID    uuid.UUID
	struggles map[Struggle]struct{}
	UpdatedAt time.Time
}

// NewSurveyProfile creates a profile, rejecting unknown tags.
func NewSurveyProfile(userID uuid.UUID, struggles []Struggle) (SurveyProfile, error) {
	p := SurveyProfile{
		UserID:    userID,
		struggles: make(map[Struggle]struct{}, len(struggles)),
		UpdatedAt: time.Now().UTC(),
	}
	for _, s := range struggles {
		if !s.IsValid() {
			return SurveyProfile{}, fmt.Errorf("%w: %q", ErrUnknownStruggle, s)
		}
		p.struggles[s] = struct{}{}
	}
	return p, nil
}

// EmptySurveyProfile is used for users that never took the survey.
func EmptySurveyProfile(userID uuid.UUID) SurveyProfile {
	return SurveyProfile{UserID: userID}
}

// Has reports whether the profile includes the struggle.
func (p SurveyProfile) Has(s Struggle) bool {
	_, ok := p.struggles[s]
	return ok
}

// Struggles returns the tags in sorted order.
func (p SurveyProfile) Struggles() []Struggle {
	out := make([]Struggle, 0, len(p.struggles))
	for s := range p.struggles {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
