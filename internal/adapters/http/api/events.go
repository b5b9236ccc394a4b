package api

import (
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/placar/internal/app"
	"github.com/okian/placar/internal/domain/model"
	"github.com/okian/placar/pkg/logger"
)

// EventsHandler accepts match events.
type EventsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies, l logger.Logger) *EventsHandler {
	return &EventsHandler{deps: deps, logger: l}
}

// eventRequest mirrors the OpenAPI schema for POST /events.
type eventRequest struct {
	EventID    string `json:"event_id"`
	MatchID    string `json:"match_id"`
	Kind       string `json:"kind"`
	TeamID     string `json:"team_id"`
	TeamName   string `json:"team_name"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Minute     *int   `json:"minute"`
}

func (e eventRequest) validate() error {
	switch {
	case strings.TrimSpace(e.MatchID) == "":
		return errors.New("missing match_id")
	case strings.TrimSpace(e.Kind) == "":
		return errors.New("missing kind")
	}
	if _, ok := model.ParseEventKind(e.Kind); !ok {
		return errors.New("unknown kind")
	}
	if e.Minute != nil && *e.Minute < 0 {
		return errors.New("minute must not be negative")
	}
	return nil
}

func (e eventRequest) record() model.GoalEvent {
	kind, _ := model.ParseEventKind(e.Kind)
	return model.GoalEvent{
		ID:         strings.TrimSpace(e.EventID),
		MatchID:    strings.TrimSpace(e.MatchID),
		Kind:       kind,
		TeamID:     strings.TrimSpace(e.TeamID),
		TeamName:   strings.TrimSpace(e.TeamName),
		PlayerID:   strings.TrimSpace(e.PlayerID),
		PlayerName: strings.TrimSpace(e.PlayerName),
		Minute:     e.Minute,
	}
}

// HandlePostEvent handles POST /events.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	var req eventRequest
	if err := decodeJSON(r, w, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	receipt, err := h.deps.SubmitEvent(r.Context(), req.record())
	if err != nil {
		writeSubmitError(w, r, h.logger, op, err)
		return
	}
	if receipt.Duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", ID: receipt.ID, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", ID: receipt.ID})
}

func writeSubmitError(w http.ResponseWriter, r *http.Request, l logger.Logger, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidSubmission):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
	default:
		l.Error(r.Context(), "submission failed", logger.Error(Wrap(op, err)))
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrInternal, err))
	}
}
