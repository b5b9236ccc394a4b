package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/placar/internal/domain/model"
	"github.com/okian/placar/pkg/logger"
)

// StatisticsHandler serves the leaderboards.
type StatisticsHandler struct {
	deps     Dependencies
	maxLimit int
	logger   logger.Logger
}

// NewStatisticsHandler creates a new statistics handler.
func NewStatisticsHandler(deps Dependencies, maxLimit int, l logger.Logger) *StatisticsHandler {
	return &StatisticsHandler{deps: deps, maxLimit: maxLimit, logger: l}
}

// HandleStatistics handles GET /statistics.
func (h *StatisticsHandler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	serveBoard(h, w, r, "api.statistics", h.deps.Statistics)
}

// HandleScorers handles GET /statistics/scorers.
func (h *StatisticsHandler) HandleScorers(w http.ResponseWriter, r *http.Request) {
	serveBoard(h, w, r, "api.statistics_scorers", h.deps.TopScorers)
}

// HandleDefenses handles GET /statistics/defenses.
func (h *StatisticsHandler) HandleDefenses(w http.ResponseWriter, r *http.Request) {
	serveBoard(h, w, r, "api.statistics_defenses", h.deps.BestDefenses)
}

// HandleAttacks handles GET /statistics/attacks.
func (h *StatisticsHandler) HandleAttacks(w http.ResponseWriter, r *http.Request) {
	serveBoard(h, w, r, "api.statistics_attacks", h.deps.BestAttacks)
}

func serveBoard[T any](h *StatisticsHandler, w http.ResponseWriter, r *http.Request, op string, read func(context.Context, model.Query) (T, error)) {
	q, err := parseQuery(r, h.maxLimit)
	if err != nil {
		if errors.Is(err, ErrLimitExceeded) {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrLimitExceeded))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	out, err := read(r.Context(), q)
	if err != nil {
		h.logger.Error(r.Context(), "statistics read failed", logger.Error(Wrap(op, err)))
		writeError(w, http.StatusInternalServerError, "internal", NewKind(op, ErrInternal))
		return
	}
	writeJSON(w, http.StatusOK, out)
}
