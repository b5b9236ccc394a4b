// Package stats derives the league leaderboards (top scorers, best defenses,
// best attacks) from match results and match events.
//
// Every operation is a pure single pass over its input: nothing is mutated,
// nothing is shared between calls, and the same input always yields the same
// output in the same order. Ties keep first-encounter order.
package stats

import (
	"fmt"
	"sort"

	"github.com/okian/placar/internal/domain/model"
)

// Default engine configuration.
const (
	DefaultLimit             = 10
	DefaultUnknownPlayerName = "Jogador desconhecido"
	DefaultUnknownTeamName   = "Equipe desconhecida"
)

// Engine computes leaderboards. The zero value is not usable; call New.
type Engine struct {
	defaultLimit  int
	strict        bool
	unknownPlayer string
	unknownTeam   string
}

// New creates an Engine with configuration options.
func New(opts ...Option) *Engine {
	e := &Engine{
		defaultLimit:  DefaultLimit,
		unknownPlayer: DefaultUnknownPlayerName,
		unknownTeam:   DefaultUnknownTeamName,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = New()

// TopScorers ranks players by goals using the default engine.
func TopScorers(events []model.GoalEvent, limit int) []model.ScorerEntry {
	return defaultEngine.TopScorers(events, limit)
}

// TeamTallies accumulates per-team results using the default engine.
func TeamTallies(matches []model.MatchRecord) map[string]model.TeamTally {
	return defaultEngine.TeamTallies(matches)
}

// BestDefenses ranks teams by goals conceded per match using the default engine.
func BestDefenses(matches []model.MatchRecord, limit int) []model.TeamRateEntry {
	return defaultEngine.BestDefenses(matches, limit)
}

// BestAttacks ranks teams by goals scored per match using the default engine.
func BestAttacks(matches []model.MatchRecord, limit int) []model.TeamRateEntry {
	return defaultEngine.BestAttacks(matches, limit)
}

// DefaultLimit returns the board length used for limit <= 0.
func (e *Engine) DefaultLimit() int { return e.defaultLimit }

func (e *Engine) resolveLimit(limit int) int {
	if limit <= 0 {
		return e.defaultLimit
	}
	return limit
}

// TopScorers groups qualifying goal events by player and ranks the players by
// goal count, highest first. A player's names both come from the first
// qualifying event seen for that player, with the fallback labels standing in
// for blanks; later events never change them.
func (e *Engine) TopScorers(events []model.GoalEvent, limit int) []model.ScorerEntry {
	limit = e.resolveLimit(limit)

	index := make(map[string]int)
	scorers := make([]model.ScorerEntry, 0)
	for i := range events {
		ev := &events[i]
		if !ev.Qualifies() {
			continue
		}
		pos, ok := index[ev.PlayerID]
		if !ok {
			pos = len(scorers)
			index[ev.PlayerID] = pos
			scorers = append(scorers, model.ScorerEntry{
				PlayerID:   ev.PlayerID,
				PlayerName: orDefault(ev.PlayerName, e.unknownPlayer),
				TeamName:   orDefault(ev.TeamName, e.unknownTeam),
			})
		}
		scorers[pos].Goals++
	}

	sort.SliceStable(scorers, func(i, j int) bool {
		return scorers[i].Goals > scorers[j].Goals
	})
	if len(scorers) > limit {
		scorers = scorers[:limit]
	}
	return scorers
}

func orDefault(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

// TeamTallies accumulates goals for, goals against and matches played per team
// key over the qualifying matches. Teams without a qualifying match are absent.
func (e *Engine) TeamTallies(matches []model.MatchRecord) map[string]model.TeamTally {
	ordered := e.collectTallies(matches)
	out := make(map[string]model.TeamTally, len(ordered))
	for _, t := range ordered {
		out[t.TeamID] = t
	}
	return out
}

// collectTallies returns the tallies in first-encounter order, which is the
// tie-break order for the rate boards. A team's name is fixed by the first
// qualifying match it appears in.
func (e *Engine) collectTallies(matches []model.MatchRecord) []model.TeamTally {
	index := make(map[string]int)
	tallies := make([]model.TeamTally, 0)

	touch := func(teamID, teamName string) *model.TeamTally {
		pos, ok := index[teamID]
		if !ok {
			pos = len(tallies)
			index[teamID] = pos
			tallies = append(tallies, model.TeamTally{TeamID: teamID, TeamName: orDefault(teamName, e.unknownTeam)})
		}
		return &tallies[pos]
	}

	for i := range matches {
		m := &matches[i]
		if !m.Qualifies() {
			continue
		}
		home, away := *m.HomeScore, *m.AwayScore

		h := touch(m.HomeTeamID, m.HomeTeamName)
		h.GoalsScored += home
		h.GoalsConceded += away
		h.Matches++

		a := touch(m.AwayTeamID, m.AwayTeamName)
		a.GoalsScored += away
		a.GoalsConceded += home
		a.Matches++
	}
	return tallies
}

// BestDefenses ranks teams by goals conceded per match, lowest first.
func (e *Engine) BestDefenses(matches []model.MatchRecord, limit int) []model.TeamRateEntry {
	return e.rank(matches, limit, func(t model.TeamTally) int { return t.GoalsConceded }, true)
}

// BestAttacks ranks teams by goals scored per match, highest first.
func (e *Engine) BestAttacks(matches []model.MatchRecord, limit int) []model.TeamRateEntry {
	return e.rank(matches, limit, func(t model.TeamTally) int { return t.GoalsScored }, false)
}

func (e *Engine) rank(matches []model.MatchRecord, limit int, goals func(model.TeamTally) int, ascending bool) []model.TeamRateEntry {
	limit = e.resolveLimit(limit)
	tallies := e.collectTallies(matches)

	entries := make([]model.TeamRateEntry, 0, len(tallies))
	for _, t := range tallies {
		if t.Matches == 0 {
			continue
		}
		g := goals(t)
		entries = append(entries, model.TeamRateEntry{
			TeamID:   t.TeamID,
			TeamName: t.TeamName,
			Matches:  t.Matches,
			Goals:    g,
			Rate:     float64(g) / float64(t.Matches),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if ascending {
			return entries[i].Rate < entries[j].Rate
		}
		return entries[i].Rate > entries[j].Rate
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// Compute builds all three boards from one data set. It only fails in strict
// mode, when a qualifying match carries a negative score.
func (e *Engine) Compute(matches []model.MatchRecord, events []model.GoalEvent, limit int) (model.Leaderboards, error) {
	if e.strict {
		if err := checkScores(matches); err != nil {
			return model.Leaderboards{}, err
		}
	}
	return model.Leaderboards{
		TopScorers:   e.TopScorers(events, limit),
		BestDefenses: e.BestDefenses(matches, limit),
		BestAttacks:  e.BestAttacks(matches, limit),
	}, nil
}

func checkScores(matches []model.MatchRecord) error {
	for i := range matches {
		m := &matches[i]
		if !m.Qualifies() {
			continue
		}
		if *m.HomeScore < 0 || *m.AwayScore < 0 {
			return fmt.Errorf("match %s: %d-%d: %w", m.ID, *m.HomeScore, *m.AwayScore, ErrNegativeScore)
		}
	}
	return nil
}
