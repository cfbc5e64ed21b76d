package sportsdata

import (
	"context"
	"fmt"
	"sync"

	"github.com/leaguedesk/leaguedesk/internal/domain/valueobject"
)

// Bundle is everything a content type needs to generate, assembled once
// during data preparation and persisted on the content request so later
// stages never re-fetch.
type Bundle struct {
	League       *LeagueInfo                   `json:"league"`
	Week         int                           `json:"week"`
	Standings    []valueobject.StandingsRow    `json:"standings,omitempty"`
	Matchups     []valueobject.Matchup         `json:"matchups,omitempty"`
	Performances []valueobject.TeamPerformance `json:"performances,omitempty"`
}

// Fetcher assembles the bundle one content type wants.
type Fetcher func(ctx context.Context, p Provider, leagueID, seasonID string, week int) (*Bundle, error)

// FetcherRegistry maps content types to fetchers. Content types without a
// registered fetcher fall back to the full bundle.
type FetcherRegistry struct {
	mu       sync.RWMutex
	fetchers map[string]Fetcher
}

// NewFetcherRegistry creates a registry preloaded with the built-in content
// types.
func NewFetcherRegistry() *FetcherRegistry {
	r := &FetcherRegistry{fetchers: make(map[string]Fetcher)}
	r.Register("weekly_recap", fetchFull)
	r.Register("power_rankings", fetchStandingsAndPerformances)
	r.Register("matchup_preview", fetchMatchupsAndStandings)
	r.Register("season_outlook", fetchStandingsAndPerformances)
	return r
}

// Register binds a fetcher to a content type, replacing any previous binding.
func (r *FetcherRegistry) Register(contentType string, fetcher Fetcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchers[contentType] = fetcher
}

// Fetch assembles the bundle for a content type.
func (r *FetcherRegistry) Fetch(ctx context.Context, provider Provider, contentType, leagueID, seasonID string, week int) (*Bundle, error) {
	r.mu.RLock()
	fetcher, ok := r.fetchers[contentType]
	r.mu.RUnlock()
	if !ok {
		fetcher = fetchFull
	}

	bundle, err := fetcher(ctx, provider, leagueID, seasonID, week)
	if err != nil {
		return nil, fmt.Errorf("fetch data for %s: %w", contentType, err)
	}
	return bundle, nil
}

func fetchFull(ctx context.Context, p Provider, leagueID, seasonID string, week int) (*Bundle, error) {
	bundle, err := fetchStandingsAndPerformances(ctx, p, leagueID, seasonID, week)
	if err != nil {
		return nil, err
	}
	matchups, err := p.Matchups(ctx, leagueID, seasonID, week)
	if err != nil {
		return nil, err
	}
	bundle.Matchups = matchups
	return bundle, nil
}

func fetchStandingsAndPerformances(ctx context.Context, p Provider, leagueID, seasonID string, week int) (*Bundle, error) {
	league, err := p.League(ctx, leagueID, seasonID)
	if err != nil {
		return nil, err
	}
	standings, err := p.Standings(ctx, leagueID, seasonID, week)
	if err != nil {
		return nil, err
	}

	bundle := &Bundle{League: league, Week: week, Standings: standings}
	for _, row := range standings {
		perf, err := p.TeamPerformance(ctx, leagueID, seasonID, row.TeamID)
		if err != nil {
			return nil, err
		}
		bundle.Performances = append(bundle.Performances, *perf)
	}
	return bundle, nil
}

func fetchMatchupsAndStandings(ctx context.Context, p Provider, leagueID, seasonID string, week int) (*Bundle, error) {
	league, err := p.League(ctx, leagueID, seasonID)
	if err != nil {
		return nil, err
	}
	matchups, err := p.Matchups(ctx, leagueID, seasonID, week)
	if err != nil {
		return nil, err
	}
	standings, err := p.Standings(ctx, leagueID, seasonID, week)
	if err != nil {
		return nil, err
	}
	return &Bundle{League: league, Week: week, Matchups: matchups, Standings: standings}, nil
}
