package sportsdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/leaguedesk/leaguedesk/internal/domain/valueobject"
)

// HTTPConfig configures the JSON API client.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPProvider reads league data from a JSON API.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPProvider creates the client.
func NewHTTPProvider(cfg HTTPConfig, logger *zap.Logger) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPProvider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With(zap.String("component", "sportsdata")),
	}
}

var _ Provider = (*HTTPProvider)(nil)

func (p *HTTPProvider) League(ctx context.Context, leagueID, seasonID string) (*LeagueInfo, error) {
	var info LeagueInfo
	path := fmt.Sprintf("/leagues/%s?season=%s", leagueID, seasonID)
	if err := p.get(ctx, path, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (p *HTTPProvider) Standings(ctx context.Context, leagueID, seasonID string, week int) ([]valueobject.StandingsRow, error) {
	var rows []valueobject.StandingsRow
	path := fmt.Sprintf("/leagues/%s/standings?season=%s&week=%s", leagueID, seasonID, strconv.Itoa(week))
	if err := p.get(ctx, path, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (p *HTTPProvider) Matchups(ctx context.Context, leagueID, seasonID string, week int) ([]valueobject.Matchup, error) {
	var matchups []valueobject.Matchup
	path := fmt.Sprintf("/leagues/%s/matchups?season=%s&week=%s", leagueID, seasonID, strconv.Itoa(week))
	if err := p.get(ctx, path, &matchups); err != nil {
		return nil, err
	}
	return matchups, nil
}

func (p *HTTPProvider) TeamPerformance(ctx context.Context, leagueID, seasonID, teamID string) (*valueobject.TeamPerformance, error) {
	var perf valueobject.TeamPerformance
	path := fmt.Sprintf("/leagues/%s/teams/%s/performance?season=%s", leagueID, teamID, seasonID)
	if err := p.get(ctx, path, &perf); err != nil {
		return nil, err
	}
	return &perf, nil
}

func (p *HTTPProvider) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sports API error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
