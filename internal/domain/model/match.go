// Package model contains domain models passed between layers.
package model

import "strings"

// MatchStatus is the lifecycle state of a scheduled match.
type MatchStatus string

// Match statuses.
const (
	MatchScheduled  MatchStatus = "scheduled"
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
	MatchPostponed  MatchStatus = "postponed"
	MatchCancelled  MatchStatus = "cancelled"
)

// ParseMatchStatus normalizes s and reports whether it is a known status.
func ParseMatchStatus(s string) (MatchStatus, bool) {
	st := MatchStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case MatchScheduled, MatchInProgress, MatchCompleted, MatchPostponed, MatchCancelled:
		return st, true
	}
	return "", false
}

// MatchRecord is a match as read from the persistence layer.
type MatchRecord struct {
	ID             string
	ChampionshipID string
	HomeTeamID     string
	HomeTeamName   string
	AwayTeamID     string
	AwayTeamName   string
	HomeScore      *int // nil while unplayed
	AwayScore      *int // nil while unplayed
	Status         MatchStatus
	Completed      bool
}

// Qualifies reports whether the match counts towards team tallies:
// it must be completed and carry both scores.
func (m MatchRecord) Qualifies() bool {
	return m.Completed && m.HomeScore != nil && m.AwayScore != nil
}

// Score returns a pointer to v, for building records with literal scores.
func Score(v int) *int { return &v }
