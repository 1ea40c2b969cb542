package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/athleon/academy-engine/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchTournamentInvalid = errors.New("match tournament conflict or invalid")
	ErrMatchUIDConflict       = errors.New("bracket uid already exists for this tournament")
)

// MatchFilter narrows ListByTournament. Nil fields mean no filtering.
type MatchFilter struct {
	Phase  *models.MatchPhase
	Round  *int
	Status *models.MatchStatus
}

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, filter MatchFilter) ([]*models.Match, error)
	// UpdateResult writes scores and winner and marks the match completed.
	UpdateResult(ctx context.Context, exec SQLExecutor, id int, score1, score2 *float64, winnerID *int) error
	// UpdateSlots fills participant slots on a future-round match.
	UpdateSlots(ctx context.Context, exec SQLExecutor, id int, slot1ID, slot2ID *int) error
	UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, id int, nextMatchID, winnerToSlot *int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) executor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `id, tournament_id, phase, round, order_in_round, group_key, bracket_uid,
	slot1_id, slot2_id, score1, score2, status, winner_id, next_match_id, winner_to_slot, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches
			(tournament_id, phase, round, order_in_round, group_key, bracket_uid,
			 slot1_id, slot2_id, score1, score2, status, winner_id, next_match_id, winner_to_slot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at`

	err := r.executor(exec).QueryRowContext(ctx, query,
		match.TournamentID, match.Phase, match.Round, match.OrderInRound,
		match.GroupKey, match.BracketUID,
		match.Slot1ID, match.Slot2ID, match.Score1, match.Score2,
		match.Status, match.WinnerID, match.NextMatchID, match.WinnerToSlot,
	).Scan(&match.ID, &match.CreatedAt)
	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var m models.Match
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.Phase, &m.Round, &m.OrderInRound,
		&m.GroupKey, &m.BracketUID,
		&m.Slot1ID, &m.Slot2ID, &m.Score1, &m.Score2,
		&m.Status, &m.WinnerID, &m.NextMatchID, &m.WinnerToSlot, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match: %w", err)
	}
	return &m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	return r.scanMatch(r.executor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, filter MatchFilter) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	placeholder := 2

	if filter.Phase != nil {
		queryBuilder.WriteString(" AND phase = $" + strconv.Itoa(placeholder))
		args = append(args, *filter.Phase)
		placeholder++
	}
	if filter.Round != nil {
		queryBuilder.WriteString(" AND round = $" + strconv.Itoa(placeholder))
		args = append(args, *filter.Round)
		placeholder++
	}
	if filter.Status != nil {
		queryBuilder.WriteString(" AND status = $" + strconv.Itoa(placeholder))
		args = append(args, *filter.Status)
		placeholder++
	}

	queryBuilder.WriteString(" ORDER BY round ASC, order_in_round ASC, id ASC")

	rows, err := r.executor(exec).QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := r.scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, id int, score1, score2 *float64, winnerID *int) error {
	query := `
		UPDATE matches
		SET score1 = $1, score2 = $2, status = $3, winner_id = $4
		WHERE id = $5`
	result, err := r.executor(exec).ExecContext(ctx, query, score1, score2, models.MatchStatusCompleted, winnerID, id)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateSlots(ctx context.Context, exec SQLExecutor, id int, slot1ID, slot2ID *int) error {
	query := `UPDATE matches SET slot1_id = $1, slot2_id = $2 WHERE id = $3`
	result, err := r.executor(exec).ExecContext(ctx, query, slot1ID, slot2ID, id)
	if err != nil {
		return fmt.Errorf("UpdateSlots: failed to execute query for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, id int, nextMatchID, winnerToSlot *int) error {
	query := `UPDATE matches SET next_match_id = $1, winner_to_slot = $2 WHERE id = $3`
	result, err := r.executor(exec).ExecContext(ctx, query, nextMatchID, winnerToSlot, id)
	if err != nil {
		return fmt.Errorf("UpdateNextMatchInfo: failed to execute query for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Constraint {
		case "matches_tournament_id_fkey":
			return ErrMatchTournamentInvalid
		case "matches_tournament_id_bracket_uid_key":
			return ErrMatchUIDConflict
		}
	}
	return err
}
