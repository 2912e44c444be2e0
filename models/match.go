package models

import "time"

type MatchStatus string

const (
	StatusScheduled MatchStatus = "scheduled"
	StatusOngoing   MatchStatus = "ongoing"
	StatusCompleted MatchStatus = "completed"
	StatusCancelled MatchStatus = "cancelled"
)

// IsValid reports whether s is one of the four known match statuses.
func (s MatchStatus) IsValid() bool {
	switch s {
	case StatusScheduled, StatusOngoing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Match is the authoritative record of one contest. Version increments on
// every state update so viewers can discard snapshots that arrive out of
// order.
type Match struct {
	ID         int         `json:"id"`
	Team1Name  string      `json:"team1_name"`
	Team2Name  string      `json:"team2_name"`
	MatchDate  string      `json:"match_date"` // YYYY-MM-DD
	MatchTime  string      `json:"match_time"` // HH:MM
	Venue      string      `json:"venue"`
	Sport      string      `json:"sport"`
	Status     MatchStatus `json:"status"`
	Team1Score int         `json:"team1_score"`
	Team2Score int         `json:"team2_score"`
	WinnerTeam *string     `json:"winner_team,omitempty"`
	Version    int         `json:"version"`
	CreatedAt  time.Time   `json:"created_at"`
}

// MatchList is the list payload with the per-status counts the schedule and
// dashboard pages derive from.
type MatchList struct {
	Matches        []*Match `json:"matches"`
	TotalMatches   int      `json:"total_matches"`
	ScheduledCount int      `json:"scheduled_count"`
	OngoingCount   int      `json:"ongoing_count"`
	CompletedCount int      `json:"completed_count"`
	CancelledCount int      `json:"cancelled_count"`
}
