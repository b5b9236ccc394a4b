package model

import "strings"

// EventKind classifies a match event.
type EventKind string

// Event kinds recorded by match officials.
const (
	EventGoal         EventKind = "goal"
	EventYellowCard   EventKind = "yellow_card"
	EventRedCard      EventKind = "red_card"
	EventSubstitution EventKind = "substitution"
	EventInjury       EventKind = "injury"
	EventOther        EventKind = "other"
)

// ParseEventKind normalizes s and reports whether it is a known kind.
func ParseEventKind(s string) (EventKind, bool) {
	k := EventKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case EventGoal, EventYellowCard, EventRedCard, EventSubstitution, EventInjury, EventOther:
		return k, true
	}
	return "", false
}

// GoalEvent is a match event. Only goals attributed to a player feed the
// scorer leaderboard; the other kinds are carried so a single event log can
// be passed around unfiltered.
type GoalEvent struct {
	ID         string
	MatchID    string
	Kind       EventKind
	TeamID     string
	TeamName   string
	PlayerID   string // empty when the event is not attributed
	PlayerName string
	Minute     *int
}

// Qualifies reports whether the event counts as an attributable goal.
func (e GoalEvent) Qualifies() bool {
	return e.Kind == EventGoal && e.PlayerID != ""
}
