package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/campusfest/tournament-live/live"
	"github.com/campusfest/tournament-live/models"
	"github.com/campusfest/tournament-live/repositories"
)

type stubMatchRepo struct {
	nextID  int
	matches map[int]*models.Match
}

func newStubMatchRepo() *stubMatchRepo {
	return &stubMatchRepo{nextID: 1, matches: make(map[int]*models.Match)}
}

func copyMatch(m *models.Match) *models.Match {
	cp := *m
	if m.WinnerTeam != nil {
		winner := *m.WinnerTeam
		cp.WinnerTeam = &winner
	}
	return &cp
}

func (r *stubMatchRepo) Create(_ context.Context, match *models.Match) error {
	match.ID = r.nextID
	match.Version = 1
	match.CreatedAt = time.Now()
	r.nextID++
	r.matches[match.ID] = copyMatch(match)
	return nil
}

func (r *stubMatchRepo) GetByID(_ context.Context, id int) (*models.Match, error) {
	match, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return copyMatch(match), nil
}

func (r *stubMatchRepo) List(_ context.Context) ([]*models.Match, error) {
	out := make([]*models.Match, 0, len(r.matches))
	for _, m := range r.matches {
		out = append(out, copyMatch(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MatchDate != out[j].MatchDate {
			return out[i].MatchDate < out[j].MatchDate
		}
		if out[i].MatchTime != out[j].MatchTime {
			return out[i].MatchTime < out[j].MatchTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *stubMatchRepo) CountByStatus(_ context.Context) (map[models.MatchStatus]int, error) {
	counts := make(map[models.MatchStatus]int)
	for _, m := range r.matches {
		counts[m.Status]++
	}
	return counts, nil
}

func (r *stubMatchRepo) UpdateDetails(_ context.Context, id int, match *models.Match) (*models.Match, error) {
	existing, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	existing.Team1Name = match.Team1Name
	existing.Team2Name = match.Team2Name
	existing.MatchDate = match.MatchDate
	existing.MatchTime = match.MatchTime
	existing.Venue = match.Venue
	existing.Sport = match.Sport
	return copyMatch(existing), nil
}

func (r *stubMatchRepo) UpdateState(_ context.Context, id int, upd repositories.MatchStateUpdate) (*models.Match, error) {
	existing, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	if upd.Status != nil {
		existing.Status = *upd.Status
	}
	if upd.Team1Score != nil {
		existing.Team1Score = *upd.Team1Score
	}
	if upd.Team2Score != nil {
		existing.Team2Score = *upd.Team2Score
	}
	if upd.WinnerTeam != nil {
		winner := *upd.WinnerTeam
		existing.WinnerTeam = &winner
	}
	existing.Version++
	return copyMatch(existing), nil
}

func (r *stubMatchRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.matches[id]; !ok {
		return repositories.ErrMatchNotFound
	}
	delete(r.matches, id)
	return nil
}

type recordingPublisher struct {
	events    []string
	snapshots []*models.Match
	err       error
}

func (p *recordingPublisher) Publish(event string, payload interface{}) error {
	p.events = append(p.events, event)
	if match, ok := payload.(*models.Match); ok {
		p.snapshots = append(p.snapshots, match)
	}
	return p.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(strict bool) (MatchService, *stubMatchRepo, *recordingPublisher) {
	repo := newStubMatchRepo()
	pub := &recordingPublisher{}
	svc := NewMatchService(repo, pub, strict, testLogger())
	return svc, repo, pub
}

func validInput() CreateMatchInput {
	return CreateMatchInput{
		Team1Name: "Team A",
		Team2Name: "Team B",
		Date:      "2025-01-10",
		Time:      "15:00",
		Venue:     "Court 1",
		Sport:     "Table Tennis",
	}
}

func TestCreateMatchDefaults(t *testing.T) {
	svc, _, pub := newTestService(false)

	match, err := svc.CreateMatch(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	if match.Status != models.StatusScheduled {
		t.Errorf("status = %s, want scheduled", match.Status)
	}
	if match.Team1Score != 0 || match.Team2Score != 0 {
		t.Errorf("scores = %d-%d, want 0-0", match.Team1Score, match.Team2Score)
	}
	if match.WinnerTeam != nil {
		t.Errorf("winner = %v, want nil", *match.WinnerTeam)
	}
	if match.Version != 1 {
		t.Errorf("version = %d, want 1", match.Version)
	}
	if len(pub.events) != 0 {
		t.Errorf("create published %d events, want 0", len(pub.events))
	}
}

func TestCreateMatchRoundTrip(t *testing.T) {
	svc, _, _ := newTestService(false)

	created, err := svc.CreateMatch(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}

	fetched, err := svc.GetMatch(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetMatch: %v", err)
	}
	if fetched.Team1Name != "Team A" || fetched.Team2Name != "Team B" ||
		fetched.MatchDate != "2025-01-10" || fetched.MatchTime != "15:00" ||
		fetched.Venue != "Court 1" || fetched.Sport != "Table Tennis" {
		t.Errorf("fetched match does not equal created input: %+v", fetched)
	}
}

func TestCreateMatchValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateMatchInput)
		wantErr error
	}{
		{"identical team names", func(in *CreateMatchInput) { in.Team2Name = "Team A" }, ErrTeamNamesIdentical},
		{"identical after trim and fold", func(in *CreateMatchInput) { in.Team2Name = "  team a " }, ErrTeamNamesIdentical},
		{"missing team1", func(in *CreateMatchInput) { in.Team1Name = "  " }, ErrMatchFieldsRequired},
		{"missing venue", func(in *CreateMatchInput) { in.Venue = "" }, ErrMatchFieldsRequired},
		{"missing sport", func(in *CreateMatchInput) { in.Sport = "" }, ErrMatchFieldsRequired},
		{"bad date", func(in *CreateMatchInput) { in.Date = "10/01/2025" }, ErrInvalidMatchDate},
		{"bad time", func(in *CreateMatchInput) { in.Time = "3pm" }, ErrInvalidMatchTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newTestService(false)
			input := validInput()
			tt.mutate(&input)

			_, err := svc.CreateMatch(context.Background(), input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
			if len(repo.matches) != 0 {
				t.Errorf("%d matches persisted after failed create, want 0", len(repo.matches))
			}
		})
	}
}

func TestUpdateMatchDetailsDoesNotTouchStateOrPublish(t *testing.T) {
	svc, _, pub := newTestService(false)

	created, _ := svc.CreateMatch(context.Background(), validInput())
	score := 5
	status := "ongoing"
	if _, err := svc.UpdateMatchState(context.Background(), created.ID, UpdateMatchStateInput{Status: &status, Team1Score: &score}); err != nil {
		t.Fatalf("UpdateMatchState: %v", err)
	}
	publishesBefore := len(pub.events)

	input := validInput()
	input.Venue = "Court 2"
	updated, err := svc.UpdateMatchDetails(context.Background(), created.ID, input)
	if err != nil {
		t.Fatalf("UpdateMatchDetails: %v", err)
	}
	if updated.Venue != "Court 2" {
		t.Errorf("venue = %s, want Court 2", updated.Venue)
	}
	if updated.Status != models.StatusOngoing || updated.Team1Score != 5 {
		t.Errorf("detail update changed live state: status=%s score=%d", updated.Status, updated.Team1Score)
	}
	if len(pub.events) != publishesBefore {
		t.Error("detail update must not broadcast")
	}
}

func TestUpdateMatchStatePartialUpdate(t *testing.T) {
	svc, _, pub := newTestService(false)
	created, _ := svc.CreateMatch(context.Background(), validInput())

	status := "ongoing"
	updated, err := svc.UpdateMatchState(context.Background(), created.ID, UpdateMatchStateInput{Status: &status})
	if err != nil {
		t.Fatalf("UpdateMatchState: %v", err)
	}
	if updated.Status != models.StatusOngoing {
		t.Errorf("status = %s, want ongoing", updated.Status)
	}
	if updated.Team1Score != 0 || updated.Team2Score != 0 || updated.WinnerTeam != nil {
		t.Error("fields omitted from the update must be unchanged")
	}
	if updated.Version != 2 {
		t.Errorf("version = %d, want 2", updated.Version)
	}

	if len(pub.events) != 1 || pub.events[0] != live.EventLiveScores {
		t.Fatalf("events = %v, want exactly one %s", pub.events, live.EventLiveScores)
	}
	snapshot := pub.snapshots[0]
	if snapshot.ID != updated.ID || snapshot.Status != updated.Status || snapshot.Version != updated.Version {
		t.Errorf("published snapshot %+v does not match persisted row %+v", snapshot, updated)
	}
}

func TestUpdateMatchStateFullScenario(t *testing.T) {
	svc, _, pub := newTestService(false)
	created, _ := svc.CreateMatch(context.Background(), validInput())

	status := "completed"
	s1, s2 := 11, 7
	winner := "Team A"
	updated, err := svc.UpdateMatchState(context.Background(), created.ID, UpdateMatchStateInput{
		Status:     &status,
		Team1Score: &s1,
		Team2Score: &s2,
		WinnerTeam: &winner,
	})
	if err != nil {
		t.Fatalf("UpdateMatchState: %v", err)
	}
	if updated.Status != models.StatusCompleted || updated.Team1Score != 11 || updated.Team2Score != 7 {
		t.Errorf("final state = %s %d-%d, want completed 11-7", updated.Status, updated.Team1Score, updated.Team2Score)
	}
	if updated.WinnerTeam == nil || *updated.WinnerTeam != "Team A" {
		t.Errorf("winner = %v, want Team A", updated.WinnerTeam)
	}

	last := pub.snapshots[len(pub.snapshots)-1]
	if last.Team1Score != 11 || last.Team2Score != 7 || last.Status != models.StatusCompleted {
		t.Errorf("published snapshot %+v does not match final state", last)
	}
}

func TestUpdateMatchStateNotFound(t *testing.T) {
	svc, _, pub := newTestService(false)

	status := "ongoing"
	_, err := svc.UpdateMatchState(context.Background(), 42, UpdateMatchStateInput{Status: &status})
	if !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("got %v, want ErrMatchNotFound", err)
	}
	if len(pub.events) != 0 {
		t.Error("failed update must not broadcast")
	}
}

func TestUpdateMatchStateInvalidStatus(t *testing.T) {
	svc, _, pub := newTestService(false)
	created, _ := svc.CreateMatch(context.Background(), validInput())

	status := "paused"
	_, err := svc.UpdateMatchState(context.Background(), created.ID, UpdateMatchStateInput{Status: &status})
	if !errors.Is(err, ErrInvalidMatchStatus) {
		t.Fatalf("got %v, want ErrInvalidMatchStatus", err)
	}
	if len(pub.events) != 0 {
		t.Error("rejected update must not broadcast")
	}
}

func TestStatusTransitionsFreeFormByDefault(t *testing.T) {
	svc, _, _ := newTestService(false)
	created, _ := svc.CreateMatch(context.Background(), validInput())

	// The operator may correct any status to any other when strict mode is
	// off, completed back to scheduled included.
	for _, status := range []string{"completed", "scheduled", "cancelled", "ongoing"} {
		s := status
		if _, err := svc.UpdateMatchState(context.Background(), created.ID, UpdateMatchStateInput{Status: &s}); err != nil {
			t.Fatalf("free-form transition to %s rejected: %v", status, err)
		}
	}
}

func TestStatusTransitionsStrictMode(t *testing.T) {
	svc, _, _ := newTestService(true)
	created, _ := svc.CreateMatch(context.Background(), validInput())

	ongoing := "ongoing"
	if _, err := svc.UpdateMatchState(context.Background(), created.ID, UpdateMatchStateInput{Status: &ongoing}); err != nil {
		t.Fatalf("scheduled→ongoing should be allowed: %v", err)
	}

	completed := "completed"
	if _, err := svc.UpdateMatchState(context.Background(), created.ID, UpdateMatchStateInput{Status: &completed}); err != nil {
		t.Fatalf("ongoing→completed should be allowed: %v", err)
	}

	scheduled := "scheduled"
	_, err := svc.UpdateMatchState(context.Background(), created.ID, UpdateMatchStateInput{Status: &scheduled})
	if !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("completed→scheduled: got %v, want ErrInvalidStatusTransition", err)
	}
}

func TestPublishFailureDoesNotFailTheUpdate(t *testing.T) {
	repo := newStubMatchRepo()
	pub := &recordingPublisher{err: errors.New("hub down")}
	svc := NewMatchService(repo, pub, false, testLogger())

	created, _ := svc.CreateMatch(context.Background(), validInput())
	status := "ongoing"
	updated, err := svc.UpdateMatchState(context.Background(), created.ID, UpdateMatchStateInput{Status: &status})
	if err != nil {
		t.Fatalf("update must succeed even when the broadcast fails: %v", err)
	}
	if updated.Status != models.StatusOngoing {
		t.Errorf("status = %s, want ongoing", updated.Status)
	}
}

func TestDeleteMatch(t *testing.T) {
	svc, repo, pub := newTestService(false)
	created, _ := svc.CreateMatch(context.Background(), validInput())

	if err := svc.DeleteMatch(context.Background(), created.ID); err != nil {
		t.Fatalf("DeleteMatch: %v", err)
	}
	if len(repo.matches) != 0 {
		t.Error("match still persisted after delete")
	}
	if len(pub.events) != 0 {
		t.Error("delete must not broadcast")
	}

	if err := svc.DeleteMatch(context.Background(), created.ID); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("second delete: got %v, want ErrMatchNotFound", err)
	}
}

func TestListMatchesOrderAndCounts(t *testing.T) {
	svc, _, _ := newTestService(false)

	late := validInput()
	late.Date = "2025-01-12"
	early := validInput()
	early.Date = "2025-01-10"
	sameDayLater := validInput()
	sameDayLater.Date = "2025-01-10"
	sameDayLater.Time = "18:30"

	m1, _ := svc.CreateMatch(context.Background(), late)
	m2, _ := svc.CreateMatch(context.Background(), early)
	m3, _ := svc.CreateMatch(context.Background(), sameDayLater)

	status := "ongoing"
	if _, err := svc.UpdateMatchState(context.Background(), m1.ID, UpdateMatchStateInput{Status: &status}); err != nil {
		t.Fatalf("UpdateMatchState: %v", err)
	}

	list, err := svc.ListMatches(context.Background())
	if err != nil {
		t.Fatalf("ListMatches: %v", err)
	}
	if list.TotalMatches != 3 {
		t.Fatalf("total = %d, want 3", list.TotalMatches)
	}
	gotOrder := []int{list.Matches[0].ID, list.Matches[1].ID, list.Matches[2].ID}
	wantOrder := []int{m2.ID, m3.ID, m1.ID}
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Fatalf("order = %v, want %v", gotOrder, wantOrder)
		}
	}
	if list.ScheduledCount != 2 || list.OngoingCount != 1 || list.CompletedCount != 0 || list.CancelledCount != 0 {
		t.Errorf("counts = %d/%d/%d/%d, want 2/1/0/0",
			list.ScheduledCount, list.OngoingCount, list.CompletedCount, list.CancelledCount)
	}
}

func TestApplyScoreUpdateRoutesThroughTheStore(t *testing.T) {
	svc, _, pub := newTestService(false)
	created, _ := svc.CreateMatch(context.Background(), validInput())

	score := 9
	status := "ongoing"
	err := svc.ApplyScoreUpdate(context.Background(), live.ScoreUpdate{
		MatchID:    created.ID,
		Status:     &status,
		Team1Score: &score,
	})
	if err != nil {
		t.Fatalf("ApplyScoreUpdate: %v", err)
	}

	stored, _ := svc.GetMatch(context.Background(), created.ID)
	if stored.Status != models.StatusOngoing || stored.Team1Score != 9 {
		t.Errorf("stored state = %s %d, want ongoing 9", stored.Status, stored.Team1Score)
	}
	if len(pub.events) != 1 {
		t.Fatalf("socket update published %d events, want 1", len(pub.events))
	}

	if err := svc.ApplyScoreUpdate(context.Background(), live.ScoreUpdate{MatchID: 99}); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("unknown match: got %v, want ErrMatchNotFound", err)
	}
}
