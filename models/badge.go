package models

import "time"

type BadgeType string

const (
	BadgeChampion      BadgeType = "champion"
	BadgeRunnerUp      BadgeType = "runner_up"
	BadgeThirdPlace    BadgeType = "third_place"
	BadgeContender     BadgeType = "contender"
	BadgeParticipation BadgeType = "participation"
	BadgeFirstSteps    BadgeType = "first_steps"    // first tournament completed
	BadgeSeasoned      BadgeType = "seasoned"       // 5 tournaments completed
	BadgeVeteran       BadgeType = "veteran"        // 10 tournaments completed
	BadgeHatTrick      BadgeType = "hat_trick_wins" // 3 consecutive tournament wins
)

type BadgeCategory string

const (
	BadgeCategoryPlacement     BadgeCategory = "placement"
	BadgeCategoryParticipation BadgeCategory = "participation"
	BadgeCategoryMilestone     BadgeCategory = "milestone"
	BadgeCategoryAchievement   BadgeCategory = "achievement"
)

type BadgeRarity string

const (
	RarityCommon    BadgeRarity = "common"
	RarityRare      BadgeRarity = "rare"
	RarityEpic      BadgeRarity = "epic"
	RarityLegendary BadgeRarity = "legendary"
)

// Badge is one earned badge. A (user, tournament, type) combination is
// awarded at most once, enforced by a unique constraint and checked again by
// the badge service before insert.
type Badge struct {
	ID           int           `json:"id" db:"id"`
	UID          string        `json:"uid" db:"uid"`
	UserID       int           `json:"user_id" db:"user_id"`
	TournamentID int           `json:"tournament_id" db:"tournament_id"`
	Type         BadgeType     `json:"type" db:"type"`
	Category     BadgeCategory `json:"category" db:"category"`
	Rarity       BadgeRarity   `json:"rarity" db:"rarity"`
	Label        string        `json:"label" db:"label"`
	AwardedAt    time.Time     `json:"awarded_at" db:"awarded_at"`
}
