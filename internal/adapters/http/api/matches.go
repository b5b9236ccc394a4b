package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/okian/placar/internal/adapters/repository"
	"github.com/okian/placar/internal/domain/model"
	"github.com/okian/placar/pkg/logger"
)

// MatchesHandler accepts match results.
type MatchesHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps Dependencies, l logger.Logger) *MatchesHandler {
	return &MatchesHandler{deps: deps, logger: l}
}

// matchRequest mirrors the OpenAPI schema for POST /matches.
type matchRequest struct {
	ID             string `json:"id"`
	ChampionshipID string `json:"championship_id"`
	HomeTeamID     string `json:"home_team_id"`
	HomeTeamName   string `json:"home_team_name"`
	AwayTeamID     string `json:"away_team_id"`
	AwayTeamName   string `json:"away_team_name"`
	HomeScore      *int   `json:"home_score"`
	AwayScore      *int   `json:"away_score"`
	Status         string `json:"status"`
}

func (m matchRequest) validate() error {
	switch {
	case strings.TrimSpace(m.HomeTeamID) == "":
		return errors.New("missing home_team_id")
	case strings.TrimSpace(m.AwayTeamID) == "":
		return errors.New("missing away_team_id")
	case strings.TrimSpace(m.Status) == "":
		return errors.New("missing status")
	}
	if _, ok := model.ParseMatchStatus(m.Status); !ok {
		return errors.New("unknown status")
	}
	return nil
}

func (m matchRequest) record() model.MatchRecord {
	status, _ := model.ParseMatchStatus(m.Status)
	return model.MatchRecord{
		ID:             strings.TrimSpace(m.ID),
		ChampionshipID: strings.TrimSpace(m.ChampionshipID),
		HomeTeamID:     strings.TrimSpace(m.HomeTeamID),
		HomeTeamName:   strings.TrimSpace(m.HomeTeamName),
		AwayTeamID:     strings.TrimSpace(m.AwayTeamID),
		AwayTeamName:   strings.TrimSpace(m.AwayTeamName),
		HomeScore:      m.HomeScore,
		AwayScore:      m.AwayScore,
		Status:         status,
		Completed:      status == model.MatchCompleted,
	}
}

type matchResponse struct {
	ID             string `json:"id"`
	ChampionshipID string `json:"championship_id"`
	HomeTeamID     string `json:"home_team_id"`
	HomeTeamName   string `json:"home_team_name"`
	AwayTeamID     string `json:"away_team_id"`
	AwayTeamName   string `json:"away_team_name"`
	HomeScore      *int   `json:"home_score"`
	AwayScore      *int   `json:"away_score"`
	Status         string `json:"status"`
}

// HandlePostMatch handles POST /matches.
func (h *MatchesHandler) HandlePostMatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_match"
	var req matchRequest
	if err := decodeJSON(r, w, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	receipt, err := h.deps.SubmitMatch(r.Context(), req.record())
	if err != nil {
		writeSubmitError(w, r, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", ID: receipt.ID})
}

// HandleGetMatch handles GET /matches/{id}.
func (h *MatchesHandler) HandleGetMatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_match"
	id := r.PathValue("id")
	m, err := h.deps.Match(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
			return
		}
		h.logger.Error(r.Context(), "match read failed", logger.String("match_id", id), logger.Error(Wrap(op, err)))
		writeError(w, http.StatusInternalServerError, "internal", NewKind(op, ErrInternal))
		return
	}
	writeJSON(w, http.StatusOK, matchResponse{
		ID:             m.ID,
		ChampionshipID: m.ChampionshipID,
		HomeTeamID:     m.HomeTeamID,
		HomeTeamName:   m.HomeTeamName,
		AwayTeamID:     m.AwayTeamID,
		AwayTeamName:   m.AwayTeamName,
		HomeScore:      m.HomeScore,
		AwayScore:      m.AwayScore,
		Status:         string(m.Status),
	})
}
