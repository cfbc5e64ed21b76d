package valueobject

// TeamPerformance summarizes one team's recent results for prompt context.
type TeamPerformance struct {
	TeamID        string  `json:"team_id"`
	TeamName      string  `json:"team_name"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	PointsFor     float64 `json:"points_for"`
	PointsAgainst float64 `json:"points_against"`
	Streak        string  `json:"streak,omitempty"`
}

// StandingsRow is one row of the league table.
type StandingsRow struct {
	Rank     int     `json:"rank"`
	TeamID   string  `json:"team_id"`
	TeamName string  `json:"team_name"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	Points   float64 `json:"points"`
}

// Matchup is a single head-to-head pairing for a week.
type Matchup struct {
	Week       int     `json:"week"`
	HomeTeamID string  `json:"home_team_id"`
	AwayTeamID string  `json:"away_team_id"`
	HomeScore  float64 `json:"home_score"`
	AwayScore  float64 `json:"away_score"`
	Final      bool    `json:"final"`
}

// ConversationContext is the structured league situation handed to the
// language model when asking a user for commentary. Built read-only from the
// data collaborators; the core never mutates league data.
type ConversationContext struct {
	LeagueID      string           `json:"league_id"`
	SeasonID      string           `json:"season_id"`
	Week          int              `json:"week"`
	ContentType   string           `json:"content_type"`
	UserTeam      *TeamPerformance `json:"user_team,omitempty"`
	Standings     []StandingsRow   `json:"standings,omitempty"`
	Matchups      []Matchup        `json:"matchups,omitempty"`
	PlayoffStakes string           `json:"playoff_stakes,omitempty"`
}
