// Package simulate generates a synthetic league season, submits it to a
// running placar server and checks the published statistics against the
// aggregation engine run locally on the same data.
package simulate

import (
	"errors"
	"time"
)

// Defaults used when a Config field is zero.
const (
	DefaultTeams          = 8
	DefaultRounds         = 2
	DefaultPlayersPerTeam = 11
	DefaultWorkers        = 8
	DefaultLimit          = 10
	DefaultWindow         = 1000
	DefaultTimeout        = 10 * time.Second
	DefaultDrainTimeout   = 30 * time.Second

	maxGoalsPerSide = 5
	matchMinutes    = 90
)

// Sentinel error kinds for this package.
var (
	ErrInvalidConfig = errors.New("invalid simulation config")
	ErrUnhealthy     = errors.New("server is not healthy")
	ErrRejected      = errors.New("submission rejected")
	ErrDrainTimeout  = errors.New("intake did not drain in time")
	ErrMismatch      = errors.New("statistics mismatch")
)

// Config holds the season shape and the client settings.
type Config struct {
	BaseURL string

	// ChampionshipID scopes the whole season; generated when empty.
	ChampionshipID string

	Teams          int
	Rounds         int // full round-robins; 2 plays home and away
	PlayersPerTeam int

	// Unplayed leaves the last N fixtures scheduled without a score.
	Unplayed int
	// Duplicates resubmits the first N events with the same id.
	Duplicates int

	Workers      int
	Limit        int
	Window       int // server event_window; scorer checks are skipped past it
	Timeout      time.Duration
	DrainTimeout time.Duration

	// Seed makes scores and scorers reproducible; 0 picks one from the clock.
	Seed uint64
}

func (c Config) withDefaults() Config {
	if c.Teams == 0 {
		c.Teams = DefaultTeams
	}
	if c.Rounds == 0 {
		c.Rounds = DefaultRounds
	}
	if c.PlayersPerTeam == 0 {
		c.PlayersPerTeam = DefaultPlayersPerTeam
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.Limit == 0 {
		c.Limit = DefaultLimit
	}
	if c.Window == 0 {
		c.Window = DefaultWindow
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.DrainTimeout == 0 {
		c.DrainTimeout = DefaultDrainTimeout
	}
	if c.Seed == 0 {
		c.Seed = uint64(time.Now().UnixNano())
	}
	return c
}

func (c Config) validate() error {
	switch {
	case c.BaseURL == "":
		return errors.Join(ErrInvalidConfig, errors.New("base url is required"))
	case c.Teams < 2:
		return errors.Join(ErrInvalidConfig, errors.New("at least two teams are required"))
	case c.Rounds < 1, c.PlayersPerTeam < 1, c.Workers < 1, c.Limit < 1:
		return errors.Join(ErrInvalidConfig, errors.New("rounds, players, workers and limit must be positive"))
	case c.Unplayed < 0, c.Duplicates < 0, c.Window < 0:
		return errors.Join(ErrInvalidConfig, errors.New("unplayed, duplicates and window must not be negative"))
	}
	return nil
}
