package models

// GroupStanding is the per-group, per-participant aggregate the finalizer
// computes from completed group matches. Standings are derived data: they are
// recomputed from match results and only persisted as part of the
// finalization snapshot.
type GroupStanding struct {
	ParticipantID   int     `json:"participant_id"`
	GroupKey        string  `json:"group_key"`
	Points          int     `json:"points"`
	Played          int     `json:"played"`
	Wins            int     `json:"wins"`
	Draws           int     `json:"draws"`
	Losses          int     `json:"losses"`
	ScoreFor        float64 `json:"score_for"`
	ScoreAgainst    float64 `json:"score_against"`
	ScoreDifference float64 `json:"score_difference"`
	Rank            int     `json:"rank"`
}

// Qualifier is one participant advancing out of the group stage, in
// deterministic seed order (Seed 1 = best qualifier).
type Qualifier struct {
	ParticipantID int    `json:"participant_id"`
	GroupKey      string `json:"group_key"`
	GroupRank     int    `json:"group_rank"`
	Seed          int    `json:"seed"`
}
