package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/placar/internal/adapters/http/api"
	"github.com/okian/placar/internal/adapters/repository"
	service "github.com/okian/placar/internal/app"
	"github.com/okian/placar/internal/domain/model"
	"github.com/okian/placar/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// recordingLogger keeps the error fields passed to Error.
type recordingLogger struct {
	errs []error
}

func (l *recordingLogger) Info(context.Context, string, ...logger.Field)  {}
func (l *recordingLogger) Debug(context.Context, string, ...logger.Field) {}
func (l *recordingLogger) Warn(context.Context, string, ...logger.Field)  {}
func (l *recordingLogger) Fatal(context.Context, string, ...logger.Field) {}
func (l *recordingLogger) Named(string) logger.Logger                     { return l }

func (l *recordingLogger) Error(_ context.Context, _ string, fields ...logger.Field) {
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			l.errs = append(l.errs, err)
		}
	}
}

type mockDependencies struct {
	lastQuery  model.Query
	lastMatch  model.MatchRecord
	lastEvent  model.GoalEvent
	submitErr  error
	readErr    error
	duplicate  bool
	statistics model.Statistics
	matches    map[string]model.MatchRecord
}

func (m *mockDependencies) SubmitMatch(_ context.Context, rec model.MatchRecord) (model.Receipt, error) {
	m.lastMatch = rec
	if m.submitErr != nil {
		return model.Receipt{}, m.submitErr
	}
	id := rec.ID
	if id == "" {
		id = "generated"
	}
	return model.Receipt{ID: id}, nil
}

func (m *mockDependencies) SubmitEvent(_ context.Context, e model.GoalEvent) (model.Receipt, error) {
	m.lastEvent = e
	if m.submitErr != nil {
		return model.Receipt{}, m.submitErr
	}
	return model.Receipt{ID: e.ID, Duplicate: m.duplicate}, nil
}

func (m *mockDependencies) Match(_ context.Context, id string) (model.MatchRecord, error) {
	rec, ok := m.matches[id]
	if !ok {
		return model.MatchRecord{}, fmt.Errorf("match %s: %w", id, repository.ErrNotFound)
	}
	return rec, nil
}

func (m *mockDependencies) Statistics(_ context.Context, q model.Query) (model.Statistics, error) {
	m.lastQuery = q
	return m.statistics, m.readErr
}

func (m *mockDependencies) TopScorers(_ context.Context, q model.Query) ([]model.ScorerEntry, error) {
	m.lastQuery = q
	return m.statistics.TopScorers, m.readErr
}

func (m *mockDependencies) BestDefenses(_ context.Context, q model.Query) ([]model.TeamRateEntry, error) {
	m.lastQuery = q
	return m.statistics.BestDefenses, m.readErr
}

func (m *mockDependencies) BestAttacks(_ context.Context, q model.Query) ([]model.TeamRateEntry, error) {
	m.lastQuery = q
	return m.statistics.BestAttacks, m.readErr
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any { return m.stats }

func newMux(deps *mockDependencies) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]any{"started": true}}, api.WithMaxLimit(50))
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func sampleStatistics() model.Statistics {
	return model.Statistics{
		Overview: model.Overview{Championships: 1, Matches: 2, Teams: 3},
		Leaderboards: model.Leaderboards{
			TopScorers:   []model.ScorerEntry{{PlayerID: "p1", PlayerName: "Alice", TeamName: "A", Goals: 2}},
			BestDefenses: []model.TeamRateEntry{{TeamID: "A", TeamName: "A", Matches: 1, Goals: 1, Rate: 1}},
			BestAttacks:  []model.TeamRateEntry{{TeamID: "A", TeamName: "A", Matches: 1, Goals: 3, Rate: 3}},
		},
	}
}

func TestStatisticsRoutes(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := &mockDependencies{statistics: sampleStatistics()}
		mux := newMux(deps)

		Convey("When GET /statistics is called with a scope and limit", func() {
			w := do(mux, http.MethodGet, "/statistics?championship=liga&limit=5", "")

			Convey("Then the full payload is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastQuery, ShouldResemble, model.Query{ChampionshipID: "liga", Limit: 5})

				var body map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body, ShouldContainKey, "overview")
				So(body, ShouldContainKey, "top_scorers")
				So(body, ShouldContainKey, "best_defenses")
				So(body, ShouldContainKey, "best_attacks")
			})
		})

		Convey("When a single board is requested", func() {
			w := do(mux, http.MethodGet, "/statistics/scorers", "")

			Convey("Then only that board is returned with the default limit", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastQuery.Limit, ShouldEqual, 0)
				var board []model.ScorerEntry
				So(json.Unmarshal(w.Body.Bytes(), &board), ShouldBeNil)
				So(board, ShouldHaveLength, 1)
				So(board[0].PlayerName, ShouldEqual, "Alice")
			})

			Convey("And the rate boards answer too", func() {
				So(do(mux, http.MethodGet, "/statistics/defenses", "").Code, ShouldEqual, http.StatusOK)
				So(do(mux, http.MethodGet, "/statistics/attacks?limit=1", "").Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When the limit is invalid", func() {
			Convey("Then non-numeric and zero limits are bad requests", func() {
				for _, q := range []string{"abc", "0", "-3"} {
					w := do(mux, http.MethodGet, "/statistics?limit="+q, "")
					So(w.Code, ShouldEqual, http.StatusBadRequest)
					So(w.Body.String(), ShouldContainSubstring, `"bad_request"`)
				}
			})

			Convey("Then a limit above the maximum is reported as such", func() {
				w := do(mux, http.MethodGet, "/statistics/attacks?limit=51", "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, `"limit_exceeded"`)
			})
		})

		Convey("When the store fails", func() {
			deps.readErr = errors.New("database is locked")
			w := do(mux, http.MethodGet, "/statistics", "")

			Convey("Then a 500 is returned without leaking the cause", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(w.Body.String(), ShouldNotContainSubstring, "locked")
			})
		})

		Convey("When the store fails on a board read", func() {
			cause := errors.New("database is locked")
			deps.readErr = cause
			rec := &recordingLogger{}
			server := api.NewServer(deps, &mockStatsProvider{}, api.WithLogger(rec))
			logged := http.NewServeMux()
			server.Register(context.Background(), logged)
			w := do(logged, http.MethodGet, "/statistics/scorers", "")

			Convey("Then the logged error names the operation and keeps the cause", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(rec.errs, ShouldHaveLength, 1)
				So(errors.Is(rec.errs[0], cause), ShouldBeTrue)
				var opErr *api.OpError
				So(errors.As(rec.errs[0], &opErr), ShouldBeTrue)
				So(opErr.Op, ShouldEqual, "api.statistics_scorers")
			})
		})

		Convey("When the wrong method is used", func() {
			w := do(mux, http.MethodPost, "/statistics", "{}")

			Convey("Then the mux refuses it", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})

		Convey("When the service endpoints are called", func() {
			Convey("Then /healthz exposes metrics", func() {
				w := do(mux, http.MethodGet, "/healthz", "")
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("Then /stats returns the provider's map", func() {
				w := do(mux, http.MethodGet, "/stats", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"started":true`)
			})
		})
	})
}

func TestMatchRoutes(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := &mockDependencies{matches: map[string]model.MatchRecord{
			"m1": {ID: "m1", HomeTeamID: "A", AwayTeamID: "B", HomeScore: model.Score(2), AwayScore: model.Score(1), Status: model.MatchCompleted},
		}}
		mux := newMux(deps)

		Convey("When a completed match is posted", func() {
			w := do(mux, http.MethodPost, "/matches", `{"id":"m2","championship_id":"liga","home_team_id":"A","home_team_name":"Alpha","away_team_id":"B","away_team_name":"Beta","home_score":1,"away_score":0,"status":"Completed"}`)

			Convey("Then it is accepted and normalized", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Body.String(), ShouldContainSubstring, `"id":"m2"`)
				So(deps.lastMatch.Status, ShouldEqual, model.MatchCompleted)
				So(deps.lastMatch.Completed, ShouldBeTrue)
				So(*deps.lastMatch.HomeScore, ShouldEqual, 1)
			})
		})

		Convey("When the body is malformed", func() {
			Convey("Then bad JSON, unknown fields and missing teams are rejected", func() {
				So(do(mux, http.MethodPost, "/matches", `{`).Code, ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodPost, "/matches", `{"home_team_id":"A","away_team_id":"B","status":"scheduled","venue":"x"}`).Code, ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodPost, "/matches", `{"away_team_id":"B","status":"scheduled"}`).Code, ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodPost, "/matches", `{"home_team_id":"A","away_team_id":"B","status":"abandoned"}`).Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the service rejects the match", func() {
			deps.submitErr = fmt.Errorf("scores: %w", service.ErrInvalidSubmission)
			w := do(mux, http.MethodPost, "/matches", `{"home_team_id":"A","away_team_id":"B","status":"completed"}`)

			Convey("Then a 400 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the intake is full", func() {
			deps.submitErr = fmt.Errorf("match: %w", service.ErrBackpressure)
			w := do(mux, http.MethodPost, "/matches", `{"home_team_id":"A","away_team_id":"B","status":"scheduled"}`)

			Convey("Then a 429 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(w.Body.String(), ShouldContainSubstring, `"backpressure"`)
			})
		})

		Convey("When a stored match is read", func() {
			w := do(mux, http.MethodGet, "/matches/m1", "")

			Convey("Then it is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"home_score":2`)
				So(w.Body.String(), ShouldContainSubstring, `"status":"completed"`)
			})
		})

		Convey("When an unknown match is read", func() {
			w := do(mux, http.MethodGet, "/matches/nope", "")

			Convey("Then a 404 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestEventRoutes(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)
		body := `{"event_id":"e1","match_id":"m1","kind":"goal","team_id":"A","team_name":"Alpha","player_id":"p1","player_name":"Alice","minute":12}`

		Convey("When a goal is posted", func() {
			w := do(mux, http.MethodPost, "/events", body)

			Convey("Then it is accepted", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(deps.lastEvent.Kind, ShouldEqual, model.EventGoal)
				So(*deps.lastEvent.Minute, ShouldEqual, 12)
			})
		})

		Convey("When the service reports a duplicate", func() {
			deps.duplicate = true
			w := do(mux, http.MethodPost, "/events", body)

			Convey("Then 200 duplicate is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)
			})
		})

		Convey("When the event is invalid", func() {
			Convey("Then it is rejected", func() {
				So(do(mux, http.MethodPost, "/events", `{}`).Code, ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodPost, "/events", `{"match_id":"m1","kind":"penalty"}`).Code, ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodPost, "/events", `{"match_id":"m1","kind":"goal","minute":-1}`).Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the intake is full", func() {
			deps.submitErr = service.ErrBackpressure
			w := do(mux, http.MethodPost, "/events", body)

			Convey("Then a 429 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			})
		})

		Convey("When the service fails for another reason", func() {
			deps.submitErr = service.ErrNotStarted
			w := do(mux, http.MethodPost, "/events", body)

			Convey("Then a 503 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})
	})
}

func TestOpError(t *testing.T) {
	Convey("Given op errors", t, func() {
		cause := errors.New("boom")

		Convey("WrapKind matches both kind and cause", func() {
			err := api.WrapKind("api.x", api.ErrBadRequest, cause)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.x: bad request: boom")
		})

		Convey("NewKind carries only the kind", func() {
			err := api.NewKind("api.y", api.ErrBackpressure)
			So(errors.Is(err, api.ErrBackpressure), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.y: backpressure")
		})

		Convey("Wrap keeps nil as nil", func() {
			So(api.Wrap("api.z", nil), ShouldBeNil)
			So(errors.Is(api.Wrap("api.z", cause), cause), ShouldBeTrue)
		})
	})
}
