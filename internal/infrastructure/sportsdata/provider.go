package sportsdata

import (
	"context"

	"github.com/leaguedesk/leaguedesk/internal/domain/valueobject"
)

// LeagueInfo is the roster-level view of a league season.
type LeagueInfo struct {
	LeagueID    string            `json:"league_id"`
	SeasonID    string            `json:"season_id"`
	Name        string            `json:"name"`
	CurrentWeek int               `json:"current_week"`
	TeamByUser  map[string]string `json:"team_by_user"` // userID -> teamID
}

// MemberUserIDs lists the league's users in no particular order.
func (l *LeagueInfo) MemberUserIDs() []string {
	out := make([]string, 0, len(l.TeamByUser))
	for userID := range l.TeamByUser {
		out = append(out, userID)
	}
	return out
}

// LeagueProvider resolves league membership.
type LeagueProvider interface {
	League(ctx context.Context, leagueID, seasonID string) (*LeagueInfo, error)
}

// StandingsProvider resolves the league table for a week.
type StandingsProvider interface {
	Standings(ctx context.Context, leagueID, seasonID string, week int) ([]valueobject.StandingsRow, error)
}

// MatchupProvider resolves head-to-head pairings for a week.
type MatchupProvider interface {
	Matchups(ctx context.Context, leagueID, seasonID string, week int) ([]valueobject.Matchup, error)
}

// TeamPerformanceProvider resolves one team's season summary.
type TeamPerformanceProvider interface {
	TeamPerformance(ctx context.Context, leagueID, seasonID, teamID string) (*valueobject.TeamPerformance, error)
}

// Provider is the full read-only data surface. All league data enters the
// engine through this; nothing in the engine writes back.
type Provider interface {
	LeagueProvider
	StandingsProvider
	MatchupProvider
	TeamPerformanceProvider
}
