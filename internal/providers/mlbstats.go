package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/stitts-dev/dfs-showdown/internal/overunder"
)

var (
	ErrUpstreamUnavailable = errors.New("stats provider unavailable")
	ErrNotFound            = errors.New("stats provider resource not found")
)

const (
	statusFinal = "Final"
	mphToKph    = 1.609344
)

type MLBStatsConfig struct {
	BaseURL          string
	RateLimit        int
	Timeout          time.Duration
	FailureThreshold int
}

// MLBStatsClient reads schedules, team stats and game-day conditions from the
// MLB stats API.
type MLBStatsClient struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
	logger      *logrus.Entry
}

func NewMLBStatsClient(cfg MLBStatsConfig, logger *logrus.Entry) *MLBStatsClient {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	threshold := uint32(cfg.FailureThreshold)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "mlb-stats",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A missing game is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"provider":   name,
				"from_state": from.String(),
				"to_state":   to.String(),
			}).Warn("Stats provider circuit breaker state changed")
		},
	})

	return &MLBStatsClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit),
		breaker:     breaker,
		logger:      logger,
	}
}

// Game is one scheduled game. Scores are set once the game is final.
type Game struct {
	GamePK     int       `json:"game_pk"`
	GameDate   time.Time `json:"game_date"`
	Status     string    `json:"status"`
	HomeTeamID int       `json:"home_team_id"`
	HomeTeam   string    `json:"home_team"`
	AwayTeamID int       `json:"away_team_id"`
	AwayTeam   string    `json:"away_team"`
	Venue      string    `json:"venue"`
	HomeScore  *int      `json:"home_score,omitempty"`
	AwayScore  *int      `json:"away_score,omitempty"`
}

func (g Game) IsFinal() bool {
	return g.Status == statusFinal && g.HomeScore != nil && g.AwayScore != nil
}

// TotalRuns is the combined final score, or false when the game is not over.
func (g Game) TotalRuns() (float64, bool) {
	if !g.IsFinal() {
		return 0, false
	}
	return float64(*g.HomeScore + *g.AwayScore), true
}

type TeamStats struct {
	TeamID      int     `json:"team_id"`
	GamesPlayed int     `json:"games_played"`
	AvgRuns     float64 `json:"avg_runs"`
	ERA         float64 `json:"era"`
	WHIP        float64 `json:"whip"`
}

type GameConditions struct {
	Venue       string  `json:"venue"`
	IsDome      bool    `json:"is_dome"`
	TempCelsius float64 `json:"temp_celsius"`
	WindKPH     float64 `json:"wind_kph"`
	Condition   string  `json:"condition"`
}

type scheduleResponse struct {
	Dates []struct {
		Games []struct {
			GamePK   int       `json:"gamePk"`
			GameDate time.Time `json:"gameDate"`
			Status   struct {
				DetailedState string `json:"detailedState"`
			} `json:"status"`
			Teams struct {
				Home scheduleTeam `json:"home"`
				Away scheduleTeam `json:"away"`
			} `json:"teams"`
			Venue struct {
				Name string `json:"name"`
			} `json:"venue"`
		} `json:"games"`
	} `json:"dates"`
}

type scheduleTeam struct {
	Score *int `json:"score"`
	Team  struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"team"`
}

type teamStatsResponse struct {
	Stats []struct {
		Group struct {
			DisplayName string `json:"displayName"`
		} `json:"group"`
		Splits []struct {
			Stat map[string]interface{} `json:"stat"`
		} `json:"splits"`
	} `json:"stats"`
}

type liveFeedResponse struct {
	GameData struct {
		Venue struct {
			Name      string `json:"name"`
			FieldInfo struct {
				RoofType string `json:"roofType"`
			} `json:"fieldInfo"`
		} `json:"venue"`
		Weather struct {
			Condition string `json:"condition"`
			Temp      string `json:"temp"`
			Wind      string `json:"wind"`
		} `json:"weather"`
	} `json:"gameData"`
}

// Schedule lists the games on date (YYYY-MM-DD).
func (c *MLBStatsClient) Schedule(ctx context.Context, date string) ([]Game, error) {
	var resp scheduleResponse
	path := fmt.Sprintf("/v1/schedule?sportId=1&date=%s", date)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}

	var games []Game
	for _, d := range resp.Dates {
		for _, g := range d.Games {
			games = append(games, Game{
				GamePK:     g.GamePK,
				GameDate:   g.GameDate,
				Status:     g.Status.DetailedState,
				HomeTeamID: g.Teams.Home.Team.ID,
				HomeTeam:   g.Teams.Home.Team.Name,
				AwayTeamID: g.Teams.Away.Team.ID,
				AwayTeam:   g.Teams.Away.Team.Name,
				Venue:      g.Venue.Name,
				HomeScore:  g.Teams.Home.Score,
				AwayScore:  g.Teams.Away.Score,
			})
		}
	}
	return games, nil
}

// TeamSeasonStats returns scoring and pitching averages for a team's season.
func (c *MLBStatsClient) TeamSeasonStats(ctx context.Context, teamID, season int) (*TeamStats, error) {
	var resp teamStatsResponse
	path := fmt.Sprintf("/v1/teams/%d/stats?stats=season&group=hitting,pitching&season=%d", teamID, season)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}

	stats := &TeamStats{TeamID: teamID}
	for _, group := range resp.Stats {
		if len(group.Splits) == 0 {
			continue
		}
		stat := group.Splits[0].Stat
		switch group.Group.DisplayName {
		case "hitting":
			runs := number(stat["runs"])
			stats.GamesPlayed = int(number(stat["gamesPlayed"]))
			if stats.GamesPlayed > 0 {
				stats.AvgRuns = runs / float64(stats.GamesPlayed)
			}
		case "pitching":
			stats.ERA = number(stat["era"])
			stats.WHIP = number(stat["whip"])
		}
	}
	if stats.GamesPlayed == 0 {
		return nil, fmt.Errorf("%w: no season stats for team %d", ErrNotFound, teamID)
	}
	return stats, nil
}

// GameConditions returns venue and weather for a game, converted to metric.
func (c *MLBStatsClient) GameConditions(ctx context.Context, gamePK int) (*GameConditions, error) {
	var resp liveFeedResponse
	if err := c.get(ctx, fmt.Sprintf("/v1.1/game/%d/feed/live", gamePK), &resp); err != nil {
		return nil, err
	}

	gd := resp.GameData
	cond := &GameConditions{
		Venue:       gd.Venue.Name,
		Condition:   gd.Weather.Condition,
		TempCelsius: overunder.DefaultGameFeatures().TempCelsius,
	}
	roof := strings.ToLower(gd.Venue.FieldInfo.RoofType)
	weather := strings.ToLower(gd.Weather.Condition)
	cond.IsDome = roof == "dome" || weather == "dome" || weather == "roof closed"

	if f, err := strconv.ParseFloat(strings.TrimSpace(gd.Weather.Temp), 64); err == nil {
		cond.TempCelsius = (f - 32) * 5 / 9
	}
	cond.WindKPH = parseWindMPH(gd.Weather.Wind) * mphToKph
	return cond, nil
}

// GameFeatures assembles model inputs for a game. Pieces the API cannot
// supply keep their defaults; an open breaker is returned as an error.
func (c *MLBStatsClient) GameFeatures(ctx context.Context, game Game) (overunder.GameFeatures, error) {
	features := overunder.DefaultGameFeatures()
	season := game.GameDate.Year()
	if season < 1900 {
		season = time.Now().Year()
	}

	if home, err := c.TeamSeasonStats(ctx, game.HomeTeamID, season); err == nil {
		features.HomeAvgRuns, features.HomeERA, features.HomeWHIP = home.AvgRuns, home.ERA, home.WHIP
	} else if errors.Is(err, ErrUpstreamUnavailable) {
		return features, err
	} else {
		c.logger.WithError(err).WithField("team_id", game.HomeTeamID).Warn("Using default home team stats")
	}

	if away, err := c.TeamSeasonStats(ctx, game.AwayTeamID, season); err == nil {
		features.AwayAvgRuns, features.AwayERA, features.AwayWHIP = away.AvgRuns, away.ERA, away.WHIP
	} else if errors.Is(err, ErrUpstreamUnavailable) {
		return features, err
	} else {
		c.logger.WithError(err).WithField("team_id", game.AwayTeamID).Warn("Using default away team stats")
	}

	if cond, err := c.GameConditions(ctx, game.GamePK); err == nil {
		features.TempCelsius, features.WindKPH, features.IsDome = cond.TempCelsius, cond.WindKPH, cond.IsDome
	} else if errors.Is(err, ErrUpstreamUnavailable) {
		return features, err
	} else {
		c.logger.WithError(err).WithField("game_pk", game.GamePK).Warn("Using default game conditions")
	}
	return features, nil
}

func (c *MLBStatsClient) State() gobreaker.State {
	return c.breaker.State()
}

func (c *MLBStatsClient) get(ctx context.Context, path string, dest interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return nil, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return err
}

// parseWindMPH reads the leading speed from strings like "8 mph, Out To CF".
func parseWindMPH(wind string) float64 {
	fields := strings.Fields(wind)
	if len(fields) == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0
	}
	return v
}

// number accepts the API's habit of sending some figures as strings.
func number(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
