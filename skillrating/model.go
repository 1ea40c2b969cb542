// Package skillrating implements the exponential-moving-average skill update
// applied after every tournament. It is a pure computation: no persistence,
// no context, nothing but numbers in and a number out.
package skillrating

import (
	"errors"
	"fmt"
)

const (
	// Floor and Ceiling bound every stored skill value.
	Floor   = 40.0
	Ceiling = 99.0

	// placementSpread is how much of the placement-skill range separates
	// first place (100) from last place (40).
	placementSpread = 60.0
)

var (
	ErrInvalidPlacement    = errors.New("placement must be in [1, totalParticipants]")
	ErrInvalidParticipants = errors.New("totalParticipants must be at least 1")
	ErrInvalidWeight       = errors.New("skill weight must be positive")
	ErrInvalidLearningRate = errors.New("learning rate must be positive")
	ErrInvalidSafetyCap    = errors.New("safety cap must be positive")
)

// UpdateParams carries one skill update.
type UpdateParams struct {
	PreviousValue     float64
	Placement         int
	TotalParticipants int
	SkillWeight       float64
	LearningRate      float64
	SafetyCap         float64
}

func (p UpdateParams) validate() error {
	if p.TotalParticipants < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidParticipants, p.TotalParticipants)
	}
	if p.Placement < 1 || p.Placement > p.TotalParticipants {
		return fmt.Errorf("%w: placement %d of %d", ErrInvalidPlacement, p.Placement, p.TotalParticipants)
	}
	if p.SkillWeight <= 0 {
		return fmt.Errorf("%w: got %g", ErrInvalidWeight, p.SkillWeight)
	}
	if p.LearningRate <= 0 {
		return fmt.Errorf("%w: got %g", ErrInvalidLearningRate, p.LearningRate)
	}
	if p.SafetyCap <= 0 {
		return fmt.Errorf("%w: got %g", ErrInvalidSafetyCap, p.SafetyCap)
	}
	return nil
}

// PlacementSkill maps a placement to its target value on the rating scale:
// 100 for first place down to 40 for last. A single-participant field counts
// as first place.
func PlacementSkill(placement, totalParticipants int) float64 {
	if totalParticipants <= 1 {
		return 100
	}
	pct := float64(placement-1) / float64(totalParticipants-1)
	return 100 - pct*placementSpread
}

// Update computes the post-tournament value for one skill.
//
// The new value moves a fraction of the way from the previous value toward
// the placement target. The fraction is learningRate*skillWeight, capped by
// safetyCap, so two skills sharing previous value and placement always move
// in exact proportion to their weights (until the cap bites), and a skill
// near its target moves less simply because there is less distance left.
func Update(p UpdateParams) (float64, error) {
	if err := p.validate(); err != nil {
		return 0, err
	}

	target := PlacementSkill(p.Placement, p.TotalParticipants)

	step := p.LearningRate * p.SkillWeight
	if step > p.SafetyCap {
		step = p.SafetyCap
	}

	delta := step * (target - p.PreviousValue)
	return Clamp(p.PreviousValue + delta), nil
}

// Clamp bounds a value to the rating scale.
func Clamp(v float64) float64 {
	if v < Floor {
		return Floor
	}
	if v > Ceiling {
		return Ceiling
	}
	return v
}
