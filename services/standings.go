package services

import (
	"fmt"
	"sort"

	"github.com/athleon/academy-engine/models"
)

const (
	pointsPerWin  = 3
	pointsPerDraw = 1
)

// compareScores returns >0 when a beats b under the scoring order, <0 when b
// beats a, 0 for a draw.
func compareScores(a, b float64, order models.ScoringOrder) int {
	switch {
	case a == b:
		return 0
	case order == models.ScoreAscending:
		if a < b {
			return 1
		}
		return -1
	default: // descending: higher wins
		if a > b {
			return 1
		}
		return -1
	}
}

// ComputeGroupStandings aggregates completed group matches into per-group
// tables, ranked by match points with head-to-head and score-differential
// tie-breaks. ScoreDifference is stored margin-normalized: larger is always
// better, regardless of scoring order.
func ComputeGroupStandings(matches []*models.Match, order models.ScoringOrder) map[string][]models.GroupStanding {
	type h2hKey struct{ winner, loser int }

	tables := make(map[string]map[int]*models.GroupStanding)
	headToHead := make(map[h2hKey]bool)

	ensure := func(group string, pid int) *models.GroupStanding {
		if tables[group] == nil {
			tables[group] = make(map[int]*models.GroupStanding)
		}
		if tables[group][pid] == nil {
			tables[group][pid] = &models.GroupStanding{ParticipantID: pid, GroupKey: group}
		}
		return tables[group][pid]
	}

	for _, m := range matches {
		if m.Phase != models.MatchPhaseGroup || !m.Completed() {
			continue
		}
		if m.GroupKey == nil || m.Slot1ID == nil || m.Slot2ID == nil || m.Score1 == nil || m.Score2 == nil {
			continue
		}

		group := *m.GroupKey
		s1 := ensure(group, *m.Slot1ID)
		s2 := ensure(group, *m.Slot2ID)

		s1.Played++
		s2.Played++
		s1.ScoreFor += *m.Score1
		s1.ScoreAgainst += *m.Score2
		s2.ScoreFor += *m.Score2
		s2.ScoreAgainst += *m.Score1

		margin := *m.Score1 - *m.Score2
		if order == models.ScoreAscending {
			margin = -margin
		}
		s1.ScoreDifference += margin
		s2.ScoreDifference -= margin

		switch cmp := compareScores(*m.Score1, *m.Score2, order); {
		case cmp > 0:
			s1.Wins++
			s1.Points += pointsPerWin
			s2.Losses++
			headToHead[h2hKey{*m.Slot1ID, *m.Slot2ID}] = true
		case cmp < 0:
			s2.Wins++
			s2.Points += pointsPerWin
			s1.Losses++
			headToHead[h2hKey{*m.Slot2ID, *m.Slot1ID}] = true
		default:
			s1.Draws++
			s2.Draws++
			s1.Points += pointsPerDraw
			s2.Points += pointsPerDraw
		}
	}

	result := make(map[string][]models.GroupStanding, len(tables))
	for group, table := range tables {
		standings := make([]models.GroupStanding, 0, len(table))
		for _, s := range table {
			standings = append(standings, *s)
		}
		sort.Slice(standings, func(i, j int) bool {
			a, b := standings[i], standings[j]
			if a.Points != b.Points {
				return a.Points > b.Points
			}
			if a.ScoreDifference != b.ScoreDifference {
				return a.ScoreDifference > b.ScoreDifference
			}
			return a.ParticipantID < b.ParticipantID
		})

		// Head-to-head applies between exactly two participants tied on
		// points, before the differential decides.
		for i := 0; i+1 < len(standings); i++ {
			a, b := standings[i], standings[i+1]
			if a.Points != b.Points {
				continue
			}
			tiedOnPoints := 2
			if i > 0 && standings[i-1].Points == a.Points {
				tiedOnPoints++
			}
			if i+2 < len(standings) && standings[i+2].Points == a.Points {
				tiedOnPoints++
			}
			if tiedOnPoints != 2 {
				continue
			}
			if headToHead[h2hKey{b.ParticipantID, a.ParticipantID}] {
				standings[i], standings[i+1] = b, a
			}
		}

		for i := range standings {
			standings[i].Rank = i + 1
		}
		result[group] = standings
	}
	return result
}

// SelectQualifiers picks the top-K of each group and orders them into a
// deterministic knockout seed list: by group rank first, then points, then
// normalized score differential, then participant id. Seed 1 is the
// strongest qualifier; pairing is best-vs-worst downstream.
func SelectQualifiers(standings map[string][]models.GroupStanding, perGroup int) []models.Qualifier {
	qualifiers := make([]models.Qualifier, 0)
	type seedInfo struct {
		q      models.Qualifier
		points int
		margin float64
	}
	seeds := make([]seedInfo, 0)

	groups := make([]string, 0, len(standings))
	for g := range standings {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	for _, g := range groups {
		table := standings[g]
		for i := 0; i < perGroup && i < len(table); i++ {
			s := table[i]
			seeds = append(seeds, seedInfo{
				q: models.Qualifier{
					ParticipantID: s.ParticipantID,
					GroupKey:      g,
					GroupRank:     s.Rank,
				},
				points: s.Points,
				margin: s.ScoreDifference,
			})
		}
	}

	sort.Slice(seeds, func(i, j int) bool {
		a, b := seeds[i], seeds[j]
		if a.q.GroupRank != b.q.GroupRank {
			return a.q.GroupRank < b.q.GroupRank
		}
		if a.points != b.points {
			return a.points > b.points
		}
		if a.margin != b.margin {
			return a.margin > b.margin
		}
		return a.q.ParticipantID < b.q.ParticipantID
	})

	for i, s := range seeds {
		s.q.Seed = i + 1
		qualifiers = append(qualifiers, s.q)
	}
	return qualifiers
}

// FlattenStandings merges per-group tables into one slice, ordered by group
// key then rank, for snapshot storage.
func FlattenStandings(standings map[string][]models.GroupStanding) []models.GroupStanding {
	groups := make([]string, 0, len(standings))
	for g := range standings {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	flat := make([]models.GroupStanding, 0)
	for _, g := range groups {
		flat = append(flat, standings[g]...)
	}
	return flat
}

// ComputePlacements derives every enrolled participant's final placement
// (1 = best) from the tournament's matches once they are all resolved.
func ComputePlacements(t *models.Tournament, matches []*models.Match, snapshot *models.FinalizationSnapshot) (map[int]int, error) {
	if t.Config == nil {
		return nil, fmt.Errorf("tournament %d config not loaded", t.ID)
	}

	switch t.Format {
	case models.FormatLeague:
		return leaguePlacements(matches, t.Config.Scoring), nil
	case models.FormatIndividualRanking:
		return individualPlacements(matches, t.Config.Individual.Order), nil
	case models.FormatKnockout:
		return knockoutPlacements(matches, nil), nil
	case models.FormatGroupAndKnockout:
		return knockoutPlacements(matches, snapshot), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, t.Format)
}

func leaguePlacements(matches []*models.Match, order models.ScoringOrder) map[int]int {
	standings := ComputeGroupStandings(matches, order)
	placements := make(map[int]int)
	for _, table := range standings {
		for _, s := range table {
			placements[s.ParticipantID] = s.Rank
		}
	}
	return placements
}

func individualPlacements(matches []*models.Match, order models.ScoringOrder) map[int]int {
	totals := make(map[int]float64)
	for _, m := range matches {
		if !m.Completed() || m.Slot1ID == nil || m.Score1 == nil {
			continue
		}
		totals[*m.Slot1ID] += *m.Score1
	}

	participants := make([]int, 0, len(totals))
	for pid := range totals {
		participants = append(participants, pid)
	}
	sort.Slice(participants, func(i, j int) bool {
		a, b := participants[i], participants[j]
		if totals[a] != totals[b] {
			if order == models.ScoreAscending {
				return totals[a] < totals[b]
			}
			return totals[a] > totals[b]
		}
		return a < b
	})

	placements := make(map[int]int, len(participants))
	for i, pid := range participants {
		placements[pid] = i + 1
	}
	return placements
}

// knockoutPlacements places the final winner first, the final loser second,
// then losers of earlier rounds in descending round order. Non-qualifiers of
// a group stage follow, ordered by their group standings.
func knockoutPlacements(matches []*models.Match, snapshot *models.FinalizationSnapshot) map[int]int {
	knockout := make([]*models.Match, 0, len(matches))
	maxRound := 0
	for _, m := range matches {
		if m.Phase == models.MatchPhaseKnockout && m.Completed() {
			knockout = append(knockout, m)
			if m.Round > maxRound {
				maxRound = m.Round
			}
		}
	}

	sort.Slice(knockout, func(i, j int) bool {
		if knockout[i].Round != knockout[j].Round {
			return knockout[i].Round > knockout[j].Round
		}
		return knockout[i].OrderInRound < knockout[j].OrderInRound
	})

	placements := make(map[int]int)
	next := 1
	for _, m := range knockout {
		if m.WinnerID == nil || m.Slot1ID == nil || m.Slot2ID == nil {
			continue
		}
		if m.Round == maxRound {
			placements[*m.WinnerID] = next
			next++
		}
		loser := *m.Slot1ID
		if loser == *m.WinnerID {
			loser = *m.Slot2ID
		}
		if _, placed := placements[loser]; !placed {
			placements[loser] = next
			next++
		}
	}

	if snapshot != nil {
		qualified := make(map[int]bool, len(snapshot.Qualifiers))
		for _, q := range snapshot.Qualifiers {
			qualified[q.ParticipantID] = true
		}

		type leftover struct {
			pid    int
			rank   int
			points int
			margin float64
		}
		rest := make([]leftover, 0)
		for _, s := range snapshot.Standings {
			if qualified[s.ParticipantID] {
				continue
			}
			rest = append(rest, leftover{pid: s.ParticipantID, rank: s.Rank, points: s.Points, margin: s.ScoreDifference})
		}
		sort.Slice(rest, func(i, j int) bool {
			a, b := rest[i], rest[j]
			if a.rank != b.rank {
				return a.rank < b.rank
			}
			if a.points != b.points {
				return a.points > b.points
			}
			if a.margin != b.margin {
				return a.margin > b.margin
			}
			return a.pid < b.pid
		})
		for _, l := range rest {
			placements[l.pid] = next
			next++
		}
	}
	return placements
}
