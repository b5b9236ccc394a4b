// Package service wires the store, the intake pipeline and the aggregation
// engine behind the operations the HTTP API and the CLI need.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	eventqueue "github.com/okian/placar/internal/adapters/mq/queue"
	workerpool "github.com/okian/placar/internal/adapters/mq/worker"
	"github.com/okian/placar/internal/adapters/repository"
	"github.com/okian/placar/internal/domain/dedupe"
	"github.com/okian/placar/internal/domain/model"
	"github.com/okian/placar/internal/domain/stats"
	"github.com/okian/placar/pkg/logger"
	"github.com/okian/placar/pkg/metrics"
)

const (
	defaultQueueSize   = 10000
	defaultEventWindow = 1000
	stopTimeout        = 30 * time.Second
)

type (
	Query   = model.Query
	Receipt = model.Receipt
)

// Service implements the dependencies of the HTTP API and the CLI.
type Service struct {
	mu sync.RWMutex

	store   repository.Store
	engine  *stats.Engine
	deduper dedupe.Deduper
	queue   *eventqueue.InMemoryQueue
	pool    *workerpool.Pool

	workerCount int
	queueSize   int
	dedupeSize  int
	eventWindow int
	engineOpts  []stats.Option

	started  bool
	cancel   context.CancelFunc
	accepted atomic.Int64

	logger logger.Logger
}

// New constructs a Service on top of store. The caller owns the store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:       store,
		workerCount: runtime.NumCPU(),
		queueSize:   defaultQueueSize,
		dedupeSize:  dedupe.DefaultMaxSize,
		eventWindow: defaultEventWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.engine = stats.New(s.engineOpts...)
	return s
}

// Start creates the intake pipeline and starts the writers. Reads work
// without Start; submissions do not.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.accepted.Store(0)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.store,
		workerpool.WithPoolLogger(s.logger.Named("writer")),
		workerpool.WithPoolFailureHandler(s.forget),
	)

	// Writers outlive the caller's context; Stop ends them.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "statistics service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Int("event_window", s.eventWindow),
	)
	return nil
}

// Stop closes intake, waits for accepted submissions to be written and
// stops the writers.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping statistics service", logger.Int("pending", s.queue.Len(ctx)))
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "writers did not drain", logger.Error(err))
	}
	s.cancel()
	s.started = false
	s.logger.Info(ctx, "statistics service stopped")
}

// forget lets a client retry a submission the store rejected.
func (s *Service) forget(ctx context.Context, sub model.Submission, _ error) {
	if sub.Event != nil && s.deduper != nil {
		s.deduper.Unrecord(ctx, sub.ID)
	}
}

// SubmitMatch validates a match result and queues it for storage.
func (s *Service) SubmitMatch(ctx context.Context, m model.MatchRecord) (Receipt, error) { //nolint:gocritic // hugeParam: records are values across layers
	if err := validateMatch(&m); err != nil {
		metrics.RecordSubmissionRejected("invalid")
		return Receipt{}, err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return Receipt{}, ErrNotStarted
	}

	// Counted before the enqueue so a fast writer never drives pending below zero.
	s.accepted.Add(1)
	if !s.queue.Enqueue(ctx, model.Submission{ID: m.ID, Match: &m}) {
		s.accepted.Add(-1)
		metrics.RecordSubmissionRejected("backpressure")
		return Receipt{}, fmt.Errorf("match %s: %w", m.ID, ErrBackpressure)
	}
	metrics.RecordSubmissionAccepted("match")
	s.logger.Debug(ctx, "match accepted", logger.String("match_id", m.ID), logger.String("status", string(m.Status)))
	return Receipt{ID: m.ID}, nil
}

// SubmitEvent validates a match event and queues it for storage. Events that
// carry a client id are deduplicated; the others get a fresh id.
func (s *Service) SubmitEvent(ctx context.Context, e model.GoalEvent) (Receipt, error) { //nolint:gocritic // hugeParam: records are values across layers
	if err := validateEvent(&e); err != nil {
		metrics.RecordSubmissionRejected("invalid")
		return Receipt{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return Receipt{}, ErrNotStarted
	}

	clientID := e.ID != ""
	if !clientID {
		e.ID = uuid.NewString()
	}
	if clientID && s.deduper.SeenAndRecord(ctx, e.ID) {
		metrics.RecordSubmissionDuplicate()
		s.logger.Debug(ctx, "duplicate event skipped", logger.String("event_id", e.ID))
		return Receipt{ID: e.ID, Duplicate: true}, nil
	}

	s.accepted.Add(1)
	if !s.queue.Enqueue(ctx, model.Submission{ID: e.ID, Event: &e}) {
		s.accepted.Add(-1)
		if clientID {
			s.deduper.Unrecord(ctx, e.ID)
		}
		metrics.RecordSubmissionRejected("backpressure")
		return Receipt{}, fmt.Errorf("event %s: %w", e.ID, ErrBackpressure)
	}
	metrics.RecordSubmissionAccepted("event")
	metrics.UpdateDedupeSize(s.deduper.Size())
	return Receipt{ID: e.ID}, nil
}

func validateMatch(m *model.MatchRecord) error {
	if m.HomeTeamID == "" || m.AwayTeamID == "" {
		return fmt.Errorf("match needs both team ids: %w", ErrInvalidSubmission)
	}
	if m.HomeTeamID == m.AwayTeamID {
		return fmt.Errorf("team %s cannot play itself: %w", m.HomeTeamID, ErrInvalidSubmission)
	}
	if m.Status == "" {
		m.Status = model.MatchScheduled
		if m.Completed {
			m.Status = model.MatchCompleted
		}
	}
	st, ok := model.ParseMatchStatus(string(m.Status))
	if !ok {
		return fmt.Errorf("unknown match status %q: %w", m.Status, ErrInvalidSubmission)
	}
	m.Status = st
	m.Completed = st == model.MatchCompleted
	if m.Completed && (m.HomeScore == nil || m.AwayScore == nil) {
		return fmt.Errorf("completed match needs both scores: %w", ErrInvalidSubmission)
	}
	if (m.HomeScore != nil && *m.HomeScore < 0) || (m.AwayScore != nil && *m.AwayScore < 0) {
		return fmt.Errorf("scores cannot be negative: %w", ErrInvalidSubmission)
	}
	return nil
}

func validateEvent(e *model.GoalEvent) error {
	if e.MatchID == "" {
		return fmt.Errorf("event needs a match id: %w", ErrInvalidSubmission)
	}
	kind, ok := model.ParseEventKind(string(e.Kind))
	if !ok {
		return fmt.Errorf("unknown event kind %q: %w", e.Kind, ErrInvalidSubmission)
	}
	e.Kind = kind
	if e.Minute != nil && *e.Minute < 0 {
		return fmt.Errorf("minute cannot be negative: %w", ErrInvalidSubmission)
	}
	return nil
}

func (s *Service) limit(q Query) int {
	if q.Limit <= 0 {
		return s.engine.DefaultLimit()
	}
	return q.Limit
}

func (s *Service) goalScope(q Query) repository.Scope {
	return repository.Scope{ChampionshipID: q.ChampionshipID, Window: s.eventWindow, Kind: model.EventGoal}
}

// Statistics reads matches, goals and counters concurrently and computes
// every board.
func (s *Service) Statistics(ctx context.Context, q Query) (model.Statistics, error) {
	var (
		matches  []model.MatchRecord
		events   []model.GoalEvent
		overview model.Overview
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		matches, err = s.store.CompletedMatches(gctx, repository.Scope{ChampionshipID: q.ChampionshipID})
		return err
	})
	g.Go(func() (err error) {
		events, err = s.store.Events(gctx, s.goalScope(q))
		return err
	})
	g.Go(func() (err error) {
		overview, err = s.store.Overview(gctx, repository.Scope{ChampionshipID: q.ChampionshipID})
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Statistics{}, fmt.Errorf("load statistics: %w", err)
	}
	metrics.UpdateAggregationInputs(len(matches), len(events))

	start := time.Now()
	boards, err := s.engine.Compute(matches, events, s.limit(q))
	if err != nil {
		s.logger.Error(ctx, "aggregation rejected data", logger.Error(err))
		return model.Statistics{}, err
	}
	ms := float64(time.Since(start).Microseconds()) / 1000
	metrics.RecordAggregation("all", ms, len(boards.TopScorers)+len(boards.BestDefenses)+len(boards.BestAttacks))

	return model.Statistics{Overview: overview, Leaderboards: boards}, nil
}

// Match returns one stored match.
func (s *Service) Match(ctx context.Context, id string) (model.MatchRecord, error) {
	return s.store.Match(ctx, id)
}

// TopScorers computes the scorer board only.
func (s *Service) TopScorers(ctx context.Context, q Query) ([]model.ScorerEntry, error) {
	events, err := s.store.Events(ctx, s.goalScope(q))
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	start := time.Now()
	board := s.engine.TopScorers(events, s.limit(q))
	metrics.RecordAggregation("scorers", float64(time.Since(start).Microseconds())/1000, len(board))
	return board, nil
}

// BestDefenses computes the defense board only.
func (s *Service) BestDefenses(ctx context.Context, q Query) ([]model.TeamRateEntry, error) {
	return s.rateBoard(ctx, q, "defenses", s.engine.BestDefenses)
}

// BestAttacks computes the attack board only.
func (s *Service) BestAttacks(ctx context.Context, q Query) ([]model.TeamRateEntry, error) {
	return s.rateBoard(ctx, q, "attacks", s.engine.BestAttacks)
}

func (s *Service) rateBoard(ctx context.Context, q Query, name string, rank func([]model.MatchRecord, int) []model.TeamRateEntry) ([]model.TeamRateEntry, error) {
	matches, err := s.store.CompletedMatches(ctx, repository.Scope{ChampionshipID: q.ChampionshipID})
	if err != nil {
		return nil, fmt.Errorf("load matches: %w", err)
	}
	start := time.Now()
	board := rank(matches, s.limit(q))
	metrics.RecordAggregation(name, float64(time.Since(start).Microseconds())/1000, len(board))
	return board, nil
}

// Pending returns how many accepted submissions have not reached the store.
func (s *Service) Pending() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return 0
	}
	return s.pending()
}

func (s *Service) pending() int64 {
	c := s.pool.Counters()
	return s.accepted.Load() - c.Processed() - c.Failed()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"eventWindow": s.eventWindow,
	}
	if !s.started {
		return out
	}

	ctx := context.Background()
	queueLen := s.queue.Len(ctx)
	c := s.pool.Counters()
	out["queueLength"] = queueLen
	out["inFlight"] = c.InFlight()
	out["accepted"] = s.accepted.Load()
	out["pending"] = s.pending()
	out["processed"] = c.Processed()
	out["duplicates"] = c.Duplicates()
	out["failed"] = c.Failed()
	out["dedupeEntries"] = s.deduper.Size()

	metrics.UpdateDedupeSize(s.deduper.Size())
	return out
}
