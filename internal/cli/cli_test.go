package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/okian/placar/internal/adapters/http/api"
	"github.com/okian/placar/internal/adapters/repository"
	service "github.com/okian/placar/internal/app"
	"github.com/okian/placar/internal/domain/model"
	"github.com/okian/placar/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func run(args ...string) (string, error) {
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func seed(t *testing.T, dsn string) {
	t.Helper()
	ctx := context.Background()
	store, err := repository.Open(ctx, repository.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = store.Close() }()

	matches := []model.MatchRecord{
		{ID: "m1", ChampionshipID: "c1", HomeTeamID: "lions", HomeTeamName: "Lions", AwayTeamID: "hawks", AwayTeamName: "Hawks",
			HomeScore: model.Score(3), AwayScore: model.Score(1), Status: model.MatchCompleted, Completed: true},
		{ID: "m2", ChampionshipID: "c1", HomeTeamID: "hawks", HomeTeamName: "Hawks", AwayTeamID: "lions", AwayTeamName: "Lions",
			Status: model.MatchScheduled},
	}
	for _, m := range matches {
		if err := store.SaveMatch(ctx, m); err != nil {
			t.Fatalf("save match: %v", err)
		}
	}
	for i, p := range []string{"Ana", "Ana", "Bia"} {
		e := model.GoalEvent{ID: "g" + string(rune('1'+i)), MatchID: "m1", Kind: model.EventGoal, TeamID: "lions", TeamName: "Lions", PlayerID: p, PlayerName: p}
		if _, err := store.SaveEvent(ctx, e); err != nil {
			t.Fatalf("save event: %v", err)
		}
	}
}

func TestReportCommand(t *testing.T) {
	Convey("Given a database with one played match", t, func() {
		dsn := "file:" + filepath.Join(t.TempDir(), "placar.db")
		seed(t, dsn)

		Convey("When report runs", func() {
			out, err := run("report", "--driver", "sqlite", "--dsn", dsn, "--limit", "5")

			Convey("Then every board is printed", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "Artilheiros")
				So(out, ShouldContainSubstring, "Ana")
				So(out, ShouldContainSubstring, "Melhores defesas")
				So(out, ShouldContainSubstring, "Hawks")
				So(out, ShouldContainSubstring, "3.00")
			})
		})

		Convey("When report is scoped to an unknown championship", func() {
			out, err := run("report", "--dsn", dsn, "--championship", "nope")

			Convey("Then the boards are empty", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, emptyBoard)
			})
		})

		Convey("When the limit is invalid", func() {
			_, err := run("report", "--dsn", dsn, "--limit", "0")
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given an unsupported driver", t, func() {
		_, err := run("report", "--driver", "mysql", "--dsn", "x")
		So(err, ShouldNotBeNil)
	})
}

func TestSimulateCommand(t *testing.T) {
	Convey("Given a running server", t, func() {
		store, err := repository.Open(context.Background(), repository.DriverSQLite, ":memory:")
		So(err, ShouldBeNil)
		defer func() { _ = store.Close() }()
		svc := service.New(store, service.WithWorkerCount(2), service.WithQueueSize(256), service.WithLogger(logger.Nop()))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(context.Background(), mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When simulate runs against it", func() {
			out, err := run("simulate", "--url", srv.URL, "--teams", "4", "--rounds", "1", "--workers", "2", "--seed", "11")

			Convey("Then the season verifies and is summarized", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "Simulação")
				So(out, ShouldContainSubstring, "Artilheiros")
			})
		})
	})
}
