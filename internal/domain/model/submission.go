package model

// Submission is the intake payload carried by the queue. Exactly one of
// Match and Event is set.
type Submission struct {
	ID    string
	Match *MatchRecord
	Event *GoalEvent
}

// Kind names the payload for logs and metrics.
func (s Submission) Kind() string {
	switch {
	case s.Match != nil:
		return "match"
	case s.Event != nil:
		return "event"
	default:
		return "empty"
	}
}

// Receipt acknowledges an accepted submission.
type Receipt struct {
	ID        string `json:"id"`
	Duplicate bool   `json:"duplicate"`
}

// Query selects what a statistics read covers.
type Query struct {
	ChampionshipID string
	// Limit <= 0 selects the default board length.
	Limit int
}
