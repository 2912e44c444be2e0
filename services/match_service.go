package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/campusfest/tournament-live/live"
	"github.com/campusfest/tournament-live/models"
	"github.com/campusfest/tournament-live/repositories"
)

// SnapshotPublisher is the broadcast side of the live channel, satisfied by
// *live.Hub. The service only ever publishes after a confirmed write.
type SnapshotPublisher interface {
	Publish(event string, payload interface{}) error
}

// CreateMatchInput carries the schedule fields, named as the frontend sends
// them. The same shape is reused for full detail updates.
type CreateMatchInput struct {
	Team1Name string `json:"team1Name"`
	Team2Name string `json:"team2Name"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Venue     string `json:"venue"`
	Sport     string `json:"sport"`
}

// UpdateMatchStateInput is the partial live-state update. Nil fields are
// left unchanged.
type UpdateMatchStateInput struct {
	Status     *string `json:"status"`
	Team1Score *int    `json:"team1_score"`
	Team2Score *int    `json:"team2_score"`
	WinnerTeam *string `json:"winner_team"`
}

type MatchService interface {
	CreateMatch(ctx context.Context, input CreateMatchInput) (*models.Match, error)
	GetMatch(ctx context.Context, id int) (*models.Match, error)
	ListMatches(ctx context.Context) (*models.MatchList, error)
	UpdateMatchDetails(ctx context.Context, id int, input CreateMatchInput) (*models.Match, error)
	UpdateMatchState(ctx context.Context, id int, input UpdateMatchStateInput) (*models.Match, error)
	DeleteMatch(ctx context.Context, id int) error

	// ApplyScoreUpdate lets socket-originated admin updates take the same
	// validated path as the REST PATCH (live.ScoreUpdater).
	ApplyScoreUpdate(ctx context.Context, upd live.ScoreUpdate) error
}

type matchService struct {
	matchRepo         repositories.MatchRepository
	publisher         SnapshotPublisher
	strictTransitions bool
	logger            *slog.Logger
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	publisher SnapshotPublisher,
	strictTransitions bool,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		matchRepo:         matchRepo,
		publisher:         publisher,
		strictTransitions: strictTransitions,
		logger:            logger,
	}
}

func validateScheduleInput(input *CreateMatchInput) error {
	input.Team1Name = strings.TrimSpace(input.Team1Name)
	input.Team2Name = strings.TrimSpace(input.Team2Name)
	input.Date = strings.TrimSpace(input.Date)
	input.Time = strings.TrimSpace(input.Time)
	input.Venue = strings.TrimSpace(input.Venue)
	input.Sport = strings.TrimSpace(input.Sport)

	if input.Team1Name == "" || input.Team2Name == "" || input.Date == "" ||
		input.Time == "" || input.Venue == "" || input.Sport == "" {
		return ErrMatchFieldsRequired
	}
	if strings.EqualFold(input.Team1Name, input.Team2Name) {
		return ErrTeamNamesIdentical
	}
	if _, err := time.Parse("2006-01-02", input.Date); err != nil {
		return ErrInvalidMatchDate
	}
	if _, err := time.Parse("15:04", input.Time); err != nil {
		return ErrInvalidMatchTime
	}
	return nil
}

func (s *matchService) CreateMatch(ctx context.Context, input CreateMatchInput) (*models.Match, error) {
	if err := validateScheduleInput(&input); err != nil {
		return nil, err
	}

	match := &models.Match{
		Team1Name:  input.Team1Name,
		Team2Name:  input.Team2Name,
		MatchDate:  input.Date,
		MatchTime:  input.Time,
		Venue:      input.Venue,
		Sport:      input.Sport,
		Status:     models.StatusScheduled,
		Team1Score: 0,
		Team2Score: 0,
	}
	if err := s.matchRepo.Create(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	// Schedule changes are picked up on the next page load; only live state
	// updates broadcast.
	return match, nil
}

func (s *matchService) GetMatch(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %d: %w", id, err)
	}
	return match, nil
}

func (s *matchService) ListMatches(ctx context.Context) (*models.MatchList, error) {
	var (
		matches []*models.Match
		counts  map[models.MatchStatus]int
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.List(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = s.matchRepo.CountByStatus(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	return &models.MatchList{
		Matches:        matches,
		TotalMatches:   len(matches),
		ScheduledCount: counts[models.StatusScheduled],
		OngoingCount:   counts[models.StatusOngoing],
		CompletedCount: counts[models.StatusCompleted],
		CancelledCount: counts[models.StatusCancelled],
	}, nil
}

func (s *matchService) UpdateMatchDetails(ctx context.Context, id int, input CreateMatchInput) (*models.Match, error) {
	if err := validateScheduleInput(&input); err != nil {
		return nil, err
	}

	match := &models.Match{
		Team1Name: input.Team1Name,
		Team2Name: input.Team2Name,
		MatchDate: input.Date,
		MatchTime: input.Time,
		Venue:     input.Venue,
		Sport:     input.Sport,
	}
	updated, err := s.matchRepo.UpdateDetails(ctx, id, match)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to update match %d details: %w", id, err)
	}
	return updated, nil
}

// allowedTransitions is only consulted in strict mode. Re-setting the
// current status is always accepted.
var allowedTransitions = map[models.MatchStatus][]models.MatchStatus{
	models.StatusScheduled: {models.StatusOngoing, models.StatusCancelled},
	models.StatusOngoing:   {models.StatusCompleted, models.StatusCancelled},
	models.StatusCompleted: {},
	models.StatusCancelled: {},
}

func transitionAllowed(from, to models.MatchStatus) bool {
	if from == to {
		return true
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s *matchService) UpdateMatchState(ctx context.Context, id int, input UpdateMatchStateInput) (*models.Match, error) {
	upd := repositories.MatchStateUpdate{
		Team1Score: input.Team1Score,
		Team2Score: input.Team2Score,
		WinnerTeam: input.WinnerTeam,
	}

	if input.Status != nil {
		status := models.MatchStatus(strings.TrimSpace(*input.Status))
		if !status.IsValid() {
			return nil, ErrInvalidMatchStatus
		}
		if s.strictTransitions {
			current, err := s.GetMatch(ctx, id)
			if err != nil {
				return nil, err
			}
			if !transitionAllowed(current.Status, status) {
				return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, current.Status, status)
			}
		}
		upd.Status = &status
	}

	updated, err := s.matchRepo.UpdateState(ctx, id, upd)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to update match %d state: %w", id, err)
	}

	// The write is committed; the broadcast is best-effort and must not fail
	// the request.
	if err := s.publisher.Publish(live.EventLiveScores, updated); err != nil {
		s.logger.Error("failed to publish match snapshot",
			slog.Int("match_id", updated.ID),
			slog.Int("version", updated.Version),
			slog.Any("error", err))
	}
	return updated, nil
}

func (s *matchService) DeleteMatch(ctx context.Context, id int) error {
	if err := s.matchRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return fmt.Errorf("failed to delete match %d: %w", id, err)
	}
	return nil
}

func (s *matchService) ApplyScoreUpdate(ctx context.Context, upd live.ScoreUpdate) error {
	_, err := s.UpdateMatchState(ctx, upd.MatchID, UpdateMatchStateInput{
		Status:     upd.Status,
		Team1Score: upd.Team1Score,
		Team2Score: upd.Team2Score,
		WinnerTeam: upd.WinnerTeam,
	})
	return err
}
