package simulate

import (
	"errors"
	"fmt"

	"github.com/okian/placar/internal/domain/model"
	"github.com/okian/placar/internal/domain/stats"
)

// verify compares the server boards with the local ones. The server writes
// submissions in arrival order, so entries tied on value may be ordered or
// cut differently. Each board is therefore checked by its value sequence and
// by every listed entry's own total.
func verify(season *Season, got model.Statistics, want model.Leaderboards, engine *stats.Engine, scorers bool) error {
	var errs []error

	completed := 0
	for _, m := range season.Matches {
		if m.Qualifies() {
			completed++
		}
	}
	if got.Overview.Matches != len(season.Matches) {
		errs = append(errs, fmt.Errorf("overview matches: got %d want %d", got.Overview.Matches, len(season.Matches)))
	}
	if got.Overview.Teams != len(season.Teams) {
		errs = append(errs, fmt.Errorf("overview teams: got %d want %d", got.Overview.Teams, len(season.Teams)))
	}
	if got.Overview.Championships != 1 {
		errs = append(errs, fmt.Errorf("overview championships: got %d want 1", got.Overview.Championships))
	}

	if scorers {
		goals := make(map[string]int)
		for _, e := range engine.TopScorers(season.Events, len(season.Events)+1) {
			goals[e.PlayerID] = e.Goals
		}
		errs = append(errs, compare("top_scorers", got.TopScorers, want.TopScorers,
			func(e model.ScorerEntry) string { return e.PlayerID },
			func(e model.ScorerEntry) float64 { return float64(e.Goals) },
			func(id string) (float64, bool) { g, ok := goals[id]; return float64(g), ok },
		)...)
	}

	tallies := engine.TeamTallies(season.Matches)
	errs = append(errs, compare("best_defenses", got.BestDefenses, want.BestDefenses,
		teamID, rate, rateOf(tallies, func(t model.TeamTally) int { return t.GoalsConceded }))...)
	errs = append(errs, compare("best_attacks", got.BestAttacks, want.BestAttacks,
		teamID, rate, rateOf(tallies, func(t model.TeamTally) int { return t.GoalsScored }))...)

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w (%d completed matches): %w", ErrMismatch, completed, errors.Join(errs...))
}

func compare[T any](board string, got, want []T, key func(T) string, value func(T) float64, truth func(string) (float64, bool)) []error {
	if len(got) != len(want) {
		return []error{fmt.Errorf("%s: got %d entries want %d", board, len(got), len(want))}
	}
	var errs []error
	for i := range got {
		if gv, wv := value(got[i]), value(want[i]); gv != wv {
			errs = append(errs, fmt.Errorf("%s[%d]: value %v want %v", board, i, gv, wv))
		}
		tv, ok := truth(key(got[i]))
		if !ok {
			errs = append(errs, fmt.Errorf("%s[%d]: unknown id %s", board, i, key(got[i])))
			continue
		}
		if tv != value(got[i]) {
			errs = append(errs, fmt.Errorf("%s[%d]: %s has %v want %v", board, i, key(got[i]), value(got[i]), tv))
		}
	}
	return errs
}

func teamID(e model.TeamRateEntry) string { return e.TeamID }
func rate(e model.TeamRateEntry) float64  { return e.Rate }

func rateOf(tallies map[string]model.TeamTally, goals func(model.TeamTally) int) func(string) (float64, bool) {
	return func(id string) (float64, bool) {
		t, ok := tallies[id]
		if !ok || t.Matches == 0 {
			return 0, false
		}
		return float64(goals(t)) / float64(t.Matches), true
	}
}
