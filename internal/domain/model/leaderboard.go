package model

// ScorerEntry is one row of the top-scorers board.
type ScorerEntry struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	TeamName   string `json:"team_name"`
	Goals      int    `json:"goals"`
}

// TeamTally accumulates a team's results over qualifying matches.
type TeamTally struct {
	TeamID        string `json:"team_id"`
	TeamName      string `json:"team_name"`
	GoalsScored   int    `json:"goals_scored"`
	GoalsConceded int    `json:"goals_conceded"`
	Matches       int    `json:"matches"`
}

// TeamRateEntry is one row of the defense or attack board. Goals is the
// numerator of Rate: conceded for defenses, scored for attacks.
type TeamRateEntry struct {
	TeamID   string  `json:"team_id"`
	TeamName string  `json:"team_name"`
	Matches  int     `json:"matches"`
	Goals    int     `json:"goals"`
	Rate     float64 `json:"rate"`
}

// Overview holds the headline counters of the statistics page.
type Overview struct {
	Championships int `json:"championships"`
	Matches       int `json:"matches"`
	Teams         int `json:"teams"`
}

// Leaderboards bundles the three boards computed from one data set.
type Leaderboards struct {
	TopScorers   []ScorerEntry   `json:"top_scorers"`
	BestDefenses []TeamRateEntry `json:"best_defenses"`
	BestAttacks  []TeamRateEntry `json:"best_attacks"`
}

// Statistics is everything the statistics page renders.
type Statistics struct {
	Overview Overview `json:"overview"`
	Leaderboards
}
