// Package api exposes the statistics boards and the intake endpoints over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/placar/internal/domain/model"
	"github.com/okian/placar/pkg/logger"
)

const (
	defaultMaxLimit = 100
	maxBodyBytes    = 1 << 20
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	SubmitMatch(ctx context.Context, m model.MatchRecord) (model.Receipt, error)
	SubmitEvent(ctx context.Context, e model.GoalEvent) (model.Receipt, error)
	Match(ctx context.Context, id string) (model.MatchRecord, error)

	Statistics(ctx context.Context, q model.Query) (model.Statistics, error)
	TopScorers(ctx context.Context, q model.Query) ([]model.ScorerEntry, error)
	BestDefenses(ctx context.Context, q model.Query) ([]model.TeamRateEntry, error)
	BestAttacks(ctx context.Context, q model.Query) ([]model.TeamRateEntry, error)
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxLimit caps the limit query parameter.
func WithMaxLimit(limit int) Option {
	return func(s *Server) {
		if limit > 0 {
			s.maxLimit = limit
		}
	}
}

// WithLogger sets the logger used by the handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server wires HTTP routes for the statistics API.
type Server struct {
	maxLimit int
	logger   logger.Logger

	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	statisticsHandler *StatisticsHandler
	matchesHandler    *MatchesHandler
	eventsHandler     *EventsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{maxLimit: defaultMaxLimit, logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.statisticsHandler = NewStatisticsHandler(deps, s.maxLimit, s.logger)
	s.matchesHandler = NewMatchesHandler(deps, s.logger)
	s.eventsHandler = NewEventsHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /statistics", MetricsMiddleware(s.statisticsHandler.HandleStatistics, "statistics"))
	mux.HandleFunc("GET /statistics/scorers", MetricsMiddleware(s.statisticsHandler.HandleScorers, "statistics_scorers"))
	mux.HandleFunc("GET /statistics/defenses", MetricsMiddleware(s.statisticsHandler.HandleDefenses, "statistics_defenses"))
	mux.HandleFunc("GET /statistics/attacks", MetricsMiddleware(s.statisticsHandler.HandleAttacks, "statistics_attacks"))

	mux.HandleFunc("POST /matches", MetricsMiddleware(s.matchesHandler.HandlePostMatch, "matches"))
	mux.HandleFunc("GET /matches/{id}", MetricsMiddleware(s.matchesHandler.HandleGetMatch, "match"))
	mux.HandleFunc("POST /events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
}

type ackResponse struct {
	Status    string `json:"status"`
	ID        string `json:"id"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads a bounded JSON body and rejects unknown fields.
func decodeJSON(r *http.Request, w http.ResponseWriter, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// parseQuery reads ?championship= and ?limit=. A present limit must be an
// integer in [1, maxLimit].
func parseQuery(r *http.Request, maxLimit int) (model.Query, error) {
	values := r.URL.Query()
	q := model.Query{ChampionshipID: strings.TrimSpace(values.Get("championship"))}

	raw := strings.TrimSpace(values.Get("limit"))
	if raw == "" {
		return q, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return q, errors.New("limit must be a positive integer")
	}
	if n > maxLimit {
		return q, ErrLimitExceeded
	}
	q.Limit = n
	return q, nil
}
