package simulate

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/placar/internal/domain/model"
)

// Season is a generated championship ready to submit.
type Season struct {
	ChampionshipID string
	Teams          []Team
	Matches        []model.MatchRecord
	Events         []model.GoalEvent
}

// Team is a generated club with its roster.
type Team struct {
	ID      string
	Name    string
	Players []Player
}

// Player is a roster entry.
type Player struct {
	ID   string
	Name string
}

// Goals returns how many goal events the season carries.
func (s *Season) Goals() int {
	n := 0
	for _, e := range s.Events {
		if e.Kind == model.EventGoal {
			n++
		}
	}
	return n
}

// Generate builds a round-robin season. Fixtures follow the circle method;
// odd team counts get a bye each round.
func Generate(cfg Config) *Season {
	cfg = cfg.withDefaults()
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	season := &Season{ChampionshipID: cfg.ChampionshipID}
	if season.ChampionshipID == "" {
		season.ChampionshipID = uuid.NewString()
	}

	season.Teams = make([]Team, cfg.Teams)
	for i := range season.Teams {
		t := Team{ID: uuid.NewString(), Name: fmt.Sprintf("Equipe %02d", i+1)}
		t.Players = make([]Player, cfg.PlayersPerTeam)
		for j := range t.Players {
			t.Players[j] = Player{ID: uuid.NewString(), Name: fmt.Sprintf("Jogador %02d %s", j+1, t.Name)}
		}
		season.Teams[i] = t
	}

	fixtures := roundRobin(len(season.Teams), cfg.Rounds)
	for i, f := range fixtures {
		home, away := season.Teams[f[0]], season.Teams[f[1]]
		m := model.MatchRecord{
			ID:             uuid.NewString(),
			ChampionshipID: season.ChampionshipID,
			HomeTeamID:     home.ID,
			HomeTeamName:   home.Name,
			AwayTeamID:     away.ID,
			AwayTeamName:   away.Name,
			Status:         model.MatchScheduled,
		}
		if i >= len(fixtures)-cfg.Unplayed {
			season.Matches = append(season.Matches, m)
			continue
		}

		hs, as := rng.IntN(maxGoalsPerSide), rng.IntN(maxGoalsPerSide)
		m.HomeScore, m.AwayScore = model.Score(hs), model.Score(as)
		m.Status, m.Completed = model.MatchCompleted, true
		season.Matches = append(season.Matches, m)

		season.Events = append(season.Events, goals(rng, m.ID, home, hs)...)
		season.Events = append(season.Events, goals(rng, m.ID, away, as)...)
		if rng.IntN(3) == 0 {
			season.Events = append(season.Events, card(rng, m.ID, home))
		}
		if rng.IntN(3) == 0 {
			season.Events = append(season.Events, card(rng, m.ID, away))
		}
	}
	return season
}

// goals emits one goal event per goal. Roughly one in fifteen is left
// unattributed, as an own goal would be.
func goals(rng *rand.Rand, matchID string, team Team, n int) []model.GoalEvent {
	out := make([]model.GoalEvent, 0, n)
	for range n {
		e := model.GoalEvent{
			ID:       uuid.NewString(),
			MatchID:  matchID,
			Kind:     model.EventGoal,
			TeamID:   team.ID,
			TeamName: team.Name,
			Minute:   minute(rng),
		}
		if rng.IntN(15) != 0 {
			p := team.Players[rng.IntN(len(team.Players))]
			e.PlayerID, e.PlayerName = p.ID, p.Name
		}
		out = append(out, e)
	}
	return out
}

func card(rng *rand.Rand, matchID string, team Team) model.GoalEvent {
	kind := model.EventYellowCard
	if rng.IntN(6) == 0 {
		kind = model.EventRedCard
	}
	p := team.Players[rng.IntN(len(team.Players))]
	return model.GoalEvent{
		ID:         uuid.NewString(),
		MatchID:    matchID,
		Kind:       kind,
		TeamID:     team.ID,
		TeamName:   team.Name,
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Minute:     minute(rng),
	}
}

func minute(rng *rand.Rand) *int {
	return model.Score(1 + rng.IntN(matchMinutes))
}

// roundRobin returns [home, away] index pairs for the given number of full
// cycles. Even cycles swap home and away.
func roundRobin(teams, cycles int) [][2]int {
	slots := make([]int, 0, teams+1)
	for i := range teams {
		slots = append(slots, i)
	}
	if teams%2 == 1 {
		slots = append(slots, -1)
	}
	n := len(slots)

	var single [][2]int
	for round := 0; round < n-1; round++ {
		for i := 0; i < n/2; i++ {
			a, b := slots[i], slots[n-1-i]
			if a < 0 || b < 0 {
				continue
			}
			if round%2 == 1 {
				a, b = b, a
			}
			single = append(single, [2]int{a, b})
		}
		// Rotate everything but the first slot.
		last := slots[n-1]
		copy(slots[2:], slots[1:n-1])
		slots[1] = last
	}

	out := make([][2]int, 0, len(single)*cycles)
	for c := range cycles {
		for _, f := range single {
			if c%2 == 1 {
				f[0], f[1] = f[1], f[0]
			}
			out = append(out, f)
		}
	}
	return out
}
