package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/athleon/academy-engine/live"
	"github.com/athleon/academy-engine/models"
	"github.com/athleon/academy-engine/repositories"
)

// The fakes below back the service tests with in-memory state. They honor
// the same sentinel errors and uniqueness rules as the Postgres
// implementations, minus the locking.

type fakeTxRunner struct{}

func (fakeTxRunner) WithinTx(ctx context.Context, fn func(tx repositories.SQLExecutor) error) error {
	return fn(nil)
}

type memTournamentRepo struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]*models.Tournament
}

func newMemTournamentRepo() *memTournamentRepo {
	return &memTournamentRepo{rows: make(map[int]*models.Tournament)}
}

func copyTournament(t *models.Tournament) *models.Tournament {
	c := *t
	c.Config = nil
	c.EnrollmentSnapshot = append([]int(nil), t.EnrollmentSnapshot...)
	return &c
}

func (r *memTournamentRepo) Create(_ context.Context, _ repositories.SQLExecutor, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Name == t.Name {
			return repositories.ErrTournamentNameConflict
		}
	}
	r.nextID++
	t.ID = r.nextID
	t.CreatedAt = time.Now()
	r.rows[t.ID] = copyTournament(t)
	return nil
}

func (r *memTournamentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return copyTournament(row), nil
}

func (r *memTournamentRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *memTournamentRepo) UpdatePhase(_ context.Context, _ repositories.SQLExecutor, id int, expected, next models.TournamentPhase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.Phase != expected {
		return repositories.ErrPhaseConflict
	}
	row.Phase = next
	return nil
}

func (r *memTournamentRepo) SetEnrollmentSnapshot(_ context.Context, _ repositories.SQLExecutor, id int, participantIDs []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if row.EnrollmentSnapshot != nil {
		return repositories.ErrSnapshotAlreadyWritten
	}
	row.EnrollmentSnapshot = append([]int(nil), participantIDs...)
	return nil
}

func (r *memTournamentRepo) ListByPhase(_ context.Context, _ repositories.SQLExecutor, phase models.TournamentPhase) ([]*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Tournament, 0)
	for _, row := range r.rows {
		if row.Phase == phase {
			out = append(out, copyTournament(row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memMatchRepo struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]*models.Match
}

func newMemMatchRepo() *memMatchRepo {
	return &memMatchRepo{rows: make(map[int]*models.Match)}
}

func copyMatch(m *models.Match) *models.Match {
	c := *m
	return &c
}

func (r *memMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if match.BracketUID != nil {
		for _, row := range r.rows {
			if row.TournamentID == match.TournamentID && row.BracketUID != nil && *row.BracketUID == *match.BracketUID {
				return repositories.ErrMatchUIDConflict
			}
		}
	}
	r.nextID++
	match.ID = r.nextID
	match.CreatedAt = time.Now()
	r.rows[match.ID] = copyMatch(match)
	return nil
}

func (r *memMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return copyMatch(row), nil
}

func (r *memMatchRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int, filter repositories.MatchFilter) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, row := range r.rows {
		if row.TournamentID != tournamentID {
			continue
		}
		if filter.Phase != nil && row.Phase != *filter.Phase {
			continue
		}
		if filter.Round != nil && row.Round != *filter.Round {
			continue
		}
		if filter.Status != nil && row.Status != *filter.Status {
			continue
		}
		out = append(out, copyMatch(row))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		if out[i].OrderInRound != out[j].OrderInRound {
			return out[i].OrderInRound < out[j].OrderInRound
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memMatchRepo) UpdateResult(_ context.Context, _ repositories.SQLExecutor, id int, score1, score2 *float64, winnerID *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	row.Score1 = score1
	row.Score2 = score2
	row.WinnerID = winnerID
	row.Status = models.MatchStatusCompleted
	return nil
}

func (r *memMatchRepo) UpdateSlots(_ context.Context, _ repositories.SQLExecutor, id int, slot1ID, slot2ID *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	row.Slot1ID = slot1ID
	row.Slot2ID = slot2ID
	return nil
}

func (r *memMatchRepo) UpdateNextMatchInfo(_ context.Context, _ repositories.SQLExecutor, id int, nextMatchID, winnerToSlot *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	row.NextMatchID = nextMatchID
	row.WinnerToSlot = winnerToSlot
	return nil
}

type memSnapshotRepo struct {
	mu   sync.Mutex
	rows map[int]*models.FinalizationSnapshot
}

func newMemSnapshotRepo() *memSnapshotRepo {
	return &memSnapshotRepo{rows: make(map[int]*models.FinalizationSnapshot)}
}

func (r *memSnapshotRepo) Create(_ context.Context, _ repositories.SQLExecutor, snapshot *models.FinalizationSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rows[snapshot.TournamentID]; exists {
		return repositories.ErrSnapshotConflict
	}
	snapshot.CreatedAt = time.Now()
	c := *snapshot
	r.rows[snapshot.TournamentID] = &c
	return nil
}

func (r *memSnapshotRepo) GetByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (*models.FinalizationSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[tournamentID]
	if !ok {
		return nil, repositories.ErrSnapshotNotFound
	}
	c := *row
	return &c, nil
}

type memParticipationRepo struct {
	mu     sync.Mutex
	nextID int
	rows   []*models.ParticipationRecord
}

func newMemParticipationRepo() *memParticipationRepo {
	return &memParticipationRepo{}
}

func (r *memParticipationRepo) Create(_ context.Context, _ repositories.SQLExecutor, record *models.ParticipationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UserID == record.UserID && row.TournamentID == record.TournamentID {
			return repositories.ErrParticipationConflict
		}
	}
	r.nextID++
	record.ID = r.nextID
	record.CreatedAt = time.Now()
	c := *record
	r.rows = append(r.rows, &c)
	return nil
}

func (r *memParticipationRepo) GetByUserAndTournament(_ context.Context, _ repositories.SQLExecutor, userID, tournamentID int) (*models.ParticipationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UserID == userID && row.TournamentID == tournamentID {
			c := *row
			return &c, nil
		}
	}
	return nil, repositories.ErrParticipationNotFound
}

func (r *memParticipationRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]*models.ParticipationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.ParticipationRecord, 0)
	for _, row := range r.rows {
		if row.TournamentID == tournamentID {
			c := *row
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memParticipationRepo) ListByUser(_ context.Context, _ repositories.SQLExecutor, userID int) ([]*models.ParticipationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.ParticipationRecord, 0)
	for _, row := range r.rows {
		if row.UserID == userID {
			c := *row
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memParticipationRepo) CountByUser(_ context.Context, _ repositories.SQLExecutor, userID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, row := range r.rows {
		if row.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *memParticipationRepo) RecentPlacements(_ context.Context, _ repositories.SQLExecutor, userID, limit int) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	placements := make([]int, 0)
	for i := len(r.rows) - 1; i >= 0 && len(placements) < limit; i-- {
		if r.rows[i].UserID == userID {
			placements = append(placements, r.rows[i].Placement)
		}
	}
	return placements, nil
}

type memBadgeRepo struct {
	mu     sync.Mutex
	nextID int
	rows   []*models.Badge
}

func newMemBadgeRepo() *memBadgeRepo {
	return &memBadgeRepo{}
}

func (r *memBadgeRepo) Create(_ context.Context, _ repositories.SQLExecutor, badge *models.Badge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UserID == badge.UserID && row.TournamentID == badge.TournamentID && row.Type == badge.Type {
			return repositories.ErrBadgeConflict
		}
	}
	r.nextID++
	badge.ID = r.nextID
	badge.AwardedAt = time.Now()
	c := *badge
	r.rows = append(r.rows, &c)
	return nil
}

func (r *memBadgeRepo) Exists(_ context.Context, _ repositories.SQLExecutor, userID, tournamentID int, badgeType models.BadgeType) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UserID == userID && row.TournamentID == tournamentID && row.Type == badgeType {
			return true, nil
		}
	}
	return false, nil
}

func (r *memBadgeRepo) ListByUserAndTournament(_ context.Context, _ repositories.SQLExecutor, userID, tournamentID int) ([]*models.Badge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Badge, 0)
	for _, row := range r.rows {
		if row.UserID == userID && row.TournamentID == tournamentID {
			c := *row
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memBadgeRepo) ListByUser(_ context.Context, _ repositories.SQLExecutor, userID int) ([]*models.Badge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Badge, 0)
	for _, row := range r.rows {
		if row.UserID == userID {
			c := *row
			out = append(out, &c)
		}
	}
	return out, nil
}

type memSkillRepo struct {
	mu   sync.Mutex
	rows map[int]map[string]*models.SkillProfile
}

func newMemSkillRepo() *memSkillRepo {
	return &memSkillRepo{rows: make(map[int]map[string]*models.SkillProfile)}
}

func (r *memSkillRepo) Get(_ context.Context, _ repositories.SQLExecutor, userID int, skill string) (*models.SkillProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile, ok := r.rows[userID][skill]
	if !ok {
		return nil, repositories.ErrSkillProfileNotFound
	}
	c := *profile
	return &c, nil
}

func (r *memSkillRepo) ListByUser(_ context.Context, _ repositories.SQLExecutor, userID int) ([]*models.SkillProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.SkillProfile, 0)
	for _, profile := range r.rows[userID] {
		c := *profile
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Skill < out[j].Skill })
	return out, nil
}

func (r *memSkillRepo) Upsert(_ context.Context, _ repositories.SQLExecutor, profile *models.SkillProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rows[profile.UserID] == nil {
		r.rows[profile.UserID] = make(map[string]*models.SkillProfile)
	}
	profile.UpdatedAt = time.Now()
	c := *profile
	r.rows[profile.UserID][profile.Skill] = &c
	return nil
}

// fakeLocker grants every lock unless told otherwise.
type fakeLocker struct {
	mu     sync.Mutex
	denied map[int]bool
}

func (l *fakeLocker) TryLock(_ context.Context, _ repositories.SQLExecutor, key1, _ int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.denied[key1], nil
}

// recordingBroadcaster captures published events for assertions.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []live.Event
}

func (b *recordingBroadcaster) Publish(event live.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBroadcaster) eventTypes() []live.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	types := make([]live.EventType, len(b.events))
	for i, e := range b.events {
		types[i] = e.Type
	}
	return types
}
