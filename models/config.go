package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ScoringOrder decides which score wins a pairing, or which direction an
// individual-ranking metric is ranked.
type ScoringOrder string

const (
	// ScoreDescending: higher is better (points, goals, distance).
	ScoreDescending ScoringOrder = "desc"
	// ScoreAscending: lower is better (time-based events).
	ScoreAscending ScoringOrder = "asc"
)

func (o ScoringOrder) Valid() bool {
	return o == ScoreDescending || o == ScoreAscending
}

// IndividualMetric names what an individual-ranking session measures.
type IndividualMetric string

const (
	MetricScore    IndividualMetric = "score"
	MetricTime     IndividualMetric = "time"
	MetricDistance IndividualMetric = "distance"
)

func (m IndividualMetric) Valid() bool {
	switch m {
	case MetricScore, MetricTime, MetricDistance:
		return true
	}
	return false
}

// GroupConfig configures the group stage of a group+knockout tournament.
type GroupConfig struct {
	NumGroups          int `json:"num_groups"`
	QualifiersPerGroup int `json:"qualifiers_per_group"`
}

// IndividualConfig configures an individual-ranking tournament.
type IndividualConfig struct {
	Rounds int              `json:"rounds"`
	Metric IndividualMetric `json:"metric"`
	Order  ScoringOrder     `json:"order"`
}

// RewardPolicy configures how placements convert into skill points,
// experience and credits.
type RewardPolicy struct {
	// PointBudget maps placement (1, 2, 3) to the skill-point budget.
	// Placements beyond the keyed ones fall back to DefaultBudget.
	PointBudget   map[int]float64 `json:"point_budget,omitempty"`
	DefaultBudget float64         `json:"default_budget,omitempty"`

	// CreditsByPlacement follows the same fallback rule via DefaultCredits.
	CreditsByPlacement map[int]int `json:"credits_by_placement,omitempty"`
	DefaultCredits     int         `json:"default_credits,omitempty"`

	// XPPerSkillPoint converts awarded skill points to experience, keyed by
	// skill category. Unknown categories use DefaultXPRate.
	XPPerSkillPoint map[string]float64 `json:"xp_per_skill_point,omitempty"`
	DefaultXPRate   float64            `json:"default_xp_rate,omitempty"`

	LearningRate float64 `json:"learning_rate"`
	SafetyCap    float64 `json:"safety_cap"`
}

// BudgetFor returns the skill-point budget for a placement.
func (p RewardPolicy) BudgetFor(placement int) float64 {
	if b, ok := p.PointBudget[placement]; ok {
		return b
	}
	return p.DefaultBudget
}

// CreditsFor returns the credit award for a placement.
func (p RewardPolicy) CreditsFor(placement int) int {
	if c, ok := p.CreditsByPlacement[placement]; ok {
		return c
	}
	return p.DefaultCredits
}

// XPRateFor returns the experience conversion rate for a skill category.
func (p RewardPolicy) XPRateFor(category string) float64 {
	if r, ok := p.XPPerSkillPoint[category]; ok {
		return r
	}
	return p.DefaultXPRate
}

// TournamentConfig is the versioned, typed per-tournament configuration.
// It replaces the loosely-typed settings maps the old system carried around:
// every field is declared up front and validated once at tournament creation.
type TournamentConfig struct {
	Version    int               `json:"version"`
	Scoring    ScoringOrder      `json:"scoring"`
	Group      *GroupConfig      `json:"group,omitempty"`
	Individual *IndividualConfig `json:"individual,omitempty"`
	Rewards    RewardPolicy      `json:"rewards"`

	// SkillCategories maps skill name to its category for XP conversion.
	// A skill absent here uses the default XP rate.
	SkillCategories map[string]string `json:"skill_categories,omitempty"`
}

const (
	ConfigVersion = 1

	// MinGroupParticipants is the smallest field a group stage accepts:
	// two groups of two.
	MinGroupParticipants = 4
)

var (
	ErrConfigUnknownVersion  = errors.New("unknown tournament config version")
	ErrConfigScoringInvalid  = errors.New("invalid scoring order")
	ErrConfigGroupRequired   = errors.New("group settings required for group_and_knockout format")
	ErrConfigGroupInvalid    = errors.New("invalid group settings")
	ErrConfigIndividual      = errors.New("invalid individual ranking settings")
	ErrConfigRewardsInvalid  = errors.New("invalid reward policy")
	ErrConfigWeightsInvalid  = errors.New("invalid skill weight mapping")
	ErrConfigUnknownCategory = errors.New("skill category mapped for unknown skill")
)

// DefaultRewardPolicy returns the stock reward policy applied when a
// tournament is created without an explicit one.
func DefaultRewardPolicy() RewardPolicy {
	return RewardPolicy{
		PointBudget:        map[int]float64{1: 10, 2: 7, 3: 5},
		DefaultBudget:      2,
		CreditsByPlacement: map[int]int{1: 100, 2: 60, 3: 40},
		DefaultCredits:     15,
		DefaultXPRate:      12,
		LearningRate:       0.2,
		SafetyCap:          0.35,
	}
}

// Validate checks the config against its tournament format and skill weight
// mapping. It is called once at tournament creation; nothing downstream
// re-validates.
func (c *TournamentConfig) Validate(format TournamentFormat, skillWeights map[string]float64) error {
	if c.Version != ConfigVersion {
		return fmt.Errorf("%w: %d", ErrConfigUnknownVersion, c.Version)
	}
	if !c.Scoring.Valid() {
		return fmt.Errorf("%w: %q", ErrConfigScoringInvalid, c.Scoring)
	}

	switch format {
	case FormatGroupAndKnockout:
		if c.Group == nil {
			return ErrConfigGroupRequired
		}
		if c.Group.NumGroups < 2 {
			return fmt.Errorf("%w: num_groups must be at least 2, got %d", ErrConfigGroupInvalid, c.Group.NumGroups)
		}
		if c.Group.QualifiersPerGroup < 1 {
			return fmt.Errorf("%w: qualifiers_per_group must be positive, got %d", ErrConfigGroupInvalid, c.Group.QualifiersPerGroup)
		}
	case FormatIndividualRanking:
		if c.Individual == nil {
			return fmt.Errorf("%w: settings required", ErrConfigIndividual)
		}
		if c.Individual.Rounds < 1 {
			return fmt.Errorf("%w: rounds must be positive, got %d", ErrConfigIndividual, c.Individual.Rounds)
		}
		if !c.Individual.Metric.Valid() {
			return fmt.Errorf("%w: unknown metric %q", ErrConfigIndividual, c.Individual.Metric)
		}
		if !c.Individual.Order.Valid() {
			return fmt.Errorf("%w: unknown order %q", ErrConfigIndividual, c.Individual.Order)
		}
	}

	if c.Rewards.LearningRate <= 0 {
		return fmt.Errorf("%w: learning rate must be positive, got %g", ErrConfigRewardsInvalid, c.Rewards.LearningRate)
	}
	if c.Rewards.SafetyCap <= 0 {
		return fmt.Errorf("%w: safety cap must be positive, got %g", ErrConfigRewardsInvalid, c.Rewards.SafetyCap)
	}

	for skill, weight := range skillWeights {
		if skill == "" {
			return fmt.Errorf("%w: empty skill name", ErrConfigWeightsInvalid)
		}
		if weight <= 0 {
			return fmt.Errorf("%w: weight for %q must be positive, got %g", ErrConfigWeightsInvalid, skill, weight)
		}
	}
	for skill := range c.SkillCategories {
		if _, ok := skillWeights[skill]; !ok {
			return fmt.Errorf("%w: %q", ErrConfigUnknownCategory, skill)
		}
	}
	return nil
}

// DefaultTournamentConfig is the baseline a stored config document is
// decoded over: fields the document omits keep these values.
func DefaultTournamentConfig() *TournamentConfig {
	return &TournamentConfig{
		Version: ConfigVersion,
		Scoring: ScoreDescending,
		Rewards: DefaultRewardPolicy(),
	}
}

// ParseTournamentConfig decodes and validates a raw config document. An
// empty document yields the defaults, which formats with mandatory settings
// (group stages, individual ranking) will reject in Validate.
func ParseTournamentConfig(raw string, format TournamentFormat, skillWeights map[string]float64) (*TournamentConfig, error) {
	cfg := DefaultTournamentConfig()
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), cfg); err != nil {
			return nil, fmt.Errorf("failed to decode tournament config: %w", err)
		}
	}
	if err := cfg.Validate(format, skillWeights); err != nil {
		return nil, err
	}
	return cfg, nil
}
