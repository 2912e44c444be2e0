package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/campusfest/tournament-live/models"
)

var ErrMatchNotFound = errors.New("match not found")

// MatchStateUpdate carries the optional fields of a live state change. Nil
// fields are left untouched by the UPDATE.
type MatchStateUpdate struct {
	Status     *models.MatchStatus
	Team1Score *int
	Team2Score *int
	WinnerTeam *string
}

type MatchRepository interface {
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	List(ctx context.Context) ([]*models.Match, error)
	CountByStatus(ctx context.Context) (map[models.MatchStatus]int, error)
	UpdateDetails(ctx context.Context, id int, match *models.Match) (*models.Match, error)
	UpdateState(ctx context.Context, id int, upd MatchStateUpdate) (*models.Match, error)
	Delete(ctx context.Context, id int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

// matchColumns is the SELECT list shared by every read. Dates and times come
// back as text so the JSON shape matches what the frontend sends.
const matchColumns = `
	match_id, team1_name, team2_name,
	to_char(match_date, 'YYYY-MM-DD'), to_char(match_time, 'HH24:MI'),
	venue, sport, status, team1_score, team2_score, winner_team, version, created_at`

func scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	match := &models.Match{}
	err := row.Scan(
		&match.ID,
		&match.Team1Name,
		&match.Team2Name,
		&match.MatchDate,
		&match.MatchTime,
		&match.Venue,
		&match.Sport,
		&match.Status,
		&match.Team1Score,
		&match.Team2Score,
		&match.WinnerTeam,
		&match.Version,
		&match.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return match, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, match *models.Match) error {
	query := `
		INSERT INTO matches
			(team1_name, team2_name, match_date, match_time, venue, sport, status, team1_score, team2_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING match_id, version, created_at`

	err := r.db.QueryRowContext(ctx, query,
		match.Team1Name,
		match.Team2Name,
		match.MatchDate,
		match.MatchTime,
		match.Venue,
		match.Sport,
		match.Status,
		match.Team1Score,
		match.Team2Score,
	).Scan(&match.ID, &match.Version, &match.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE match_id = $1`

	match, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) List(ctx context.Context) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches ORDER BY match_date ASC, match_time ASC, match_id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match rows: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) CountByStatus(ctx context.Context) (map[models.MatchStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM matches GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count matches by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.MatchStatus]int)
	for rows.Next() {
		var status models.MatchStatus
		var count int
		if scanErr := rows.Scan(&status, &count); scanErr != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", scanErr)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status counts: %w", err)
	}
	return counts, nil
}

func (r *postgresMatchRepository) UpdateDetails(ctx context.Context, id int, match *models.Match) (*models.Match, error) {
	query := `
		UPDATE matches
		SET team1_name = $2, team2_name = $3, match_date = $4, match_time = $5, venue = $6, sport = $7
		WHERE match_id = $1
		RETURNING ` + matchColumns

	updated, err := scanMatch(r.db.QueryRowContext(ctx, query,
		id,
		match.Team1Name,
		match.Team2Name,
		match.MatchDate,
		match.MatchTime,
		match.Venue,
		match.Sport,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to update match %d details: %w", id, err)
	}
	return updated, nil
}

// UpdateState applies a partial status/score/winner update. Unset fields keep
// their current value via COALESCE, and version is bumped in the same
// statement so every committed change produces exactly one new version.
func (r *postgresMatchRepository) UpdateState(ctx context.Context, id int, upd MatchStateUpdate) (*models.Match, error) {
	query := `
		UPDATE matches
		SET status      = COALESCE($2, status),
		    team1_score = COALESCE($3, team1_score),
		    team2_score = COALESCE($4, team2_score),
		    winner_team = COALESCE($5, winner_team),
		    version     = version + 1
		WHERE match_id = $1
		RETURNING ` + matchColumns

	updated, err := scanMatch(r.db.QueryRowContext(ctx, query,
		id,
		upd.Status,
		upd.Team1Score,
		upd.Team2Score,
		upd.WinnerTeam,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to update match %d state: %w", id, err)
	}
	return updated, nil
}

func (r *postgresMatchRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE match_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}
