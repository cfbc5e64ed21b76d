package sportsdata

import (
	"context"
	"fmt"

	"github.com/leaguedesk/leaguedesk/internal/domain/valueobject"
)

// StaticProvider serves fixed league data. Dev mode and tests run against it
// so the engine works without a live sports API.
type StaticProvider struct {
	Leagues      map[string]*LeagueInfo                   // key: leagueID
	Tables       map[string][]valueobject.StandingsRow    // key: leagueID
	Games        map[string][]valueobject.Matchup         // key: leagueID
	Performances map[string]*valueobject.TeamPerformance  // key: teamID
}

// NewStaticProvider creates a provider with one sample league.
func NewStaticProvider() *StaticProvider {
	p := &StaticProvider{
		Leagues:      make(map[string]*LeagueInfo),
		Tables:       make(map[string][]valueobject.StandingsRow),
		Games:        make(map[string][]valueobject.Matchup),
		Performances: make(map[string]*valueobject.TeamPerformance),
	}
	p.seed()
	return p
}

var _ Provider = (*StaticProvider)(nil)

func (p *StaticProvider) League(ctx context.Context, leagueID, seasonID string) (*LeagueInfo, error) {
	league, ok := p.Leagues[leagueID]
	if !ok {
		return nil, fmt.Errorf("league %s not found", leagueID)
	}
	return league, nil
}

func (p *StaticProvider) Standings(ctx context.Context, leagueID, seasonID string, week int) ([]valueobject.StandingsRow, error) {
	return p.Tables[leagueID], nil
}

func (p *StaticProvider) Matchups(ctx context.Context, leagueID, seasonID string, week int) ([]valueobject.Matchup, error) {
	return p.Games[leagueID], nil
}

func (p *StaticProvider) TeamPerformance(ctx context.Context, leagueID, seasonID, teamID string) (*valueobject.TeamPerformance, error) {
	perf, ok := p.Performances[teamID]
	if !ok {
		return nil, fmt.Errorf("team %s not found", teamID)
	}
	return perf, nil
}

func (p *StaticProvider) seed() {
	leagueID := "demo-league"
	p.Leagues[leagueID] = &LeagueInfo{
		LeagueID:    leagueID,
		SeasonID:    "2026",
		Name:        "Demo Keeper League",
		CurrentWeek: 9,
		TeamByUser: map[string]string{
			"user-alex":  "team-1",
			"user-blake": "team-2",
			"user-casey": "team-3",
			"user-drew":  "team-4",
		},
	}
	p.Tables[leagueID] = []valueobject.StandingsRow{
		{Rank: 1, TeamID: "team-2", TeamName: "Gridlock", Wins: 7, Losses: 1, Points: 1012.4},
		{Rank: 2, TeamID: "team-1", TeamName: "Mudcats", Wins: 5, Losses: 3, Points: 940.1},
		{Rank: 3, TeamID: "team-4", TeamName: "Night Shift", Wins: 4, Losses: 4, Points: 899.8},
		{Rank: 4, TeamID: "team-3", TeamName: "Benchwarmers", Wins: 0, Losses: 8, Points: 701.2},
	}
	p.Games[leagueID] = []valueobject.Matchup{
		{Week: 9, HomeTeamID: "team-1", AwayTeamID: "team-2"},
		{Week: 9, HomeTeamID: "team-3", AwayTeamID: "team-4"},
	}
	p.Performances["team-1"] = &valueobject.TeamPerformance{TeamID: "team-1", TeamName: "Mudcats", Wins: 5, Losses: 3, PointsFor: 940.1, PointsAgainst: 880.5, Streak: "W2"}
	p.Performances["team-2"] = &valueobject.TeamPerformance{TeamID: "team-2", TeamName: "Gridlock", Wins: 7, Losses: 1, PointsFor: 1012.4, PointsAgainst: 822.9, Streak: "W5"}
	p.Performances["team-3"] = &valueobject.TeamPerformance{TeamID: "team-3", TeamName: "Benchwarmers", Wins: 0, Losses: 8, PointsFor: 701.2, PointsAgainst: 1004.3, Streak: "L8"}
	p.Performances["team-4"] = &valueobject.TeamPerformance{TeamID: "team-4", TeamName: "Night Shift", Wins: 4, Losses: 4, PointsFor: 899.8, PointsAgainst: 901.0, Streak: "L1"}
}
