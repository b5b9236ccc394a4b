package simulate

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/placar/internal/domain/model"
	"github.com/okian/placar/internal/domain/stats"
	"github.com/okian/placar/pkg/logger"
)

const drainPollInterval = 50 * time.Millisecond

// Report summarizes one simulation run.
type Report struct {
	Seed             uint64
	ChampionshipID   string
	Matches          int
	Events           int
	Goals            int
	Accepted         int64
	Duplicates       int64
	Retries          int64
	ScorersVerified  bool
	Duration         time.Duration
	Statistics       model.Statistics
	LocalLeaderboard model.Leaderboards
}

// Option applies a configuration option to the Runner.
type Option func(*Runner)

// WithLogger sets the logger used for progress output.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithEngine sets the engine used for the local reference computation. It
// should carry the same labels and default limit as the server.
func WithEngine(e *stats.Engine) Option {
	return func(r *Runner) {
		if e != nil {
			r.engine = e
		}
	}
}

// Runner drives a season through a live server.
type Runner struct {
	cfg    Config
	client *Client
	engine *stats.Engine
	logger logger.Logger
}

// New validates cfg and creates a Runner.
func New(cfg Config, opts ...Option) (*Runner, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	r := &Runner{
		cfg:    cfg,
		client: NewClient(cfg.BaseURL, cfg.Timeout),
		engine: stats.New(),
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run generates a season, submits it, waits for the intake to drain and
// verifies the published statistics.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	r.logger.Info(ctx, "starting simulation",
		logger.String("url", r.cfg.BaseURL),
		logger.Int("teams", r.cfg.Teams),
		logger.Int("rounds", r.cfg.Rounds),
		logger.Int("workers", r.cfg.Workers),
		logger.Any("seed", r.cfg.Seed))

	if err := r.client.Health(ctx); err != nil {
		return nil, err
	}

	season := Generate(r.cfg)
	report := &Report{
		Seed:           r.cfg.Seed,
		ChampionshipID: season.ChampionshipID,
		Matches:        len(season.Matches),
		Events:         len(season.Events),
		Goals:          season.Goals(),
	}
	r.logger.Info(ctx, "season generated",
		logger.String("championship", season.ChampionshipID),
		logger.Int("matches", report.Matches),
		logger.Int("events", report.Events),
		logger.Int("goals", report.Goals))

	if err := r.submit(ctx, season, report); err != nil {
		return report, err
	}
	if err := r.drain(ctx); err != nil {
		return report, err
	}

	got, err := r.client.Statistics(ctx, season.ChampionshipID, r.cfg.Limit)
	if err != nil {
		return report, fmt.Errorf("fetch statistics: %w", err)
	}
	report.Statistics = got

	want, err := r.engine.Compute(season.Matches, season.Events, r.cfg.Limit)
	if err != nil {
		return report, fmt.Errorf("local compute: %w", err)
	}
	report.LocalLeaderboard = want

	report.ScorersVerified = r.cfg.Window == 0 || report.Goals <= r.cfg.Window
	if !report.ScorersVerified {
		r.logger.Warn(ctx, "goal count exceeds the server event window; skipping scorer checks",
			logger.Int("goals", report.Goals), logger.Int("window", r.cfg.Window))
	}
	err = verify(season, got, want, r.engine, report.ScorersVerified)
	report.Duration = time.Since(start)
	if err != nil {
		return report, err
	}

	r.logger.Info(ctx, "simulation verified",
		logger.Int64("accepted", report.Accepted),
		logger.Int64("duplicates", report.Duplicates),
		logger.Int64("retries", report.Retries),
		logger.Duration("duration", report.Duration))
	return report, nil
}

// submit posts every match, then every event, then the configured
// duplicates. Each phase runs on a bounded errgroup.
func (r *Runner) submit(ctx context.Context, season *Season, report *Report) error {
	var accepted, duplicates, retries atomic.Int64
	defer func() {
		report.Accepted = accepted.Load()
		report.Duplicates = duplicates.Load()
		report.Retries = retries.Load()
	}()

	record := func(o outcome, n int) {
		retries.Add(int64(n))
		if o == outcomeDuplicate {
			duplicates.Add(1)
			return
		}
		accepted.Add(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for _, m := range season.Matches {
		g.Go(func() error {
			n, err := r.client.SubmitMatch(gctx, m)
			if err != nil {
				return fmt.Errorf("match %s: %w", m.ID, err)
			}
			record(outcomeAccepted, n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	events := season.Events
	if d := min(r.cfg.Duplicates, len(season.Events)); d > 0 {
		events = append(events[:len(events):len(events)], season.Events[:d]...)
	}
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, e := range events {
		// Resubmissions wait for the originals so they land as duplicates.
		if i == len(season.Events) {
			if err := g.Wait(); err != nil {
				return err
			}
			g, gctx = errgroup.WithContext(ctx)
			g.SetLimit(r.cfg.Workers)
		}
		g.Go(func() error {
			o, n, err := r.client.SubmitEvent(gctx, e)
			if err != nil {
				return fmt.Errorf("event %s: %w", e.ID, err)
			}
			record(o, n)
			return nil
		})
	}
	return g.Wait()
}

// drain polls GET /stats until nothing is pending.
func (r *Runner) drain(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.DrainTimeout)
	defer cancel()

	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()
	for {
		pending, err := r.client.Pending(ctx)
		if err == nil && pending == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("%w: %w", ErrDrainTimeout, err)
			}
			return fmt.Errorf("%w: %d pending", ErrDrainTimeout, pending)
		case <-ticker.C:
		}
	}
}
