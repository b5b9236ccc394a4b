// Package repository persists matches and match events and reads them back
// for aggregation.
package repository

import (
	"context"

	"github.com/okian/placar/internal/domain/model"
)

// Scope narrows a read.
type Scope struct {
	// ChampionshipID restricts reads to one championship when set.
	ChampionshipID string
	// Window caps Events to the most recent N rows. <= 0 means all.
	Window int
	// Kind restricts Events to one event kind when set.
	Kind model.EventKind
}

// Store provides read/write access to league data.
type Store interface {
	// SaveMatch inserts or replaces a match by id. Both teams and the
	// championship are recorded as a side effect.
	SaveMatch(ctx context.Context, m model.MatchRecord) error
	// SaveEvent inserts an event. It returns false when the id already exists.
	SaveEvent(ctx context.Context, e model.GoalEvent) (bool, error)

	// CompletedMatches returns completed matches in insertion order.
	CompletedMatches(ctx context.Context, scope Scope) ([]model.MatchRecord, error)
	// Events returns the most recent scope.Window events, oldest first.
	Events(ctx context.Context, scope Scope) ([]model.GoalEvent, error)
	// Match returns one match or ErrNotFound.
	Match(ctx context.Context, id string) (model.MatchRecord, error)
	// Overview counts championships, matches and teams.
	Overview(ctx context.Context, scope Scope) (model.Overview, error)

	Close() error
}
