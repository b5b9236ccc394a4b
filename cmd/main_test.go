package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/placar/internal/adapters/repository"
	"github.com/okian/placar/internal/config"
	"github.com/okian/placar/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.DBDSN = "file:" + filepath.Join(t.TempDir(), "placar.db")
	cfg.WorkerCount = 2
	cfg.QueueSize = 100
	cfg.MetricsIntervalSeconds = 1
	cfg.ShutdownTimeoutSeconds = 2
	return cfg
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func TestMainWiring(t *testing.T) {
	if err := logger.Init(); err != nil {
		t.Fatalf("init logger: %v", err)
	}
	_ = logger.SetLevelString("error")

	convey.Convey("Given the wired application", t, func() {
		ctx := context.Background()
		cfg := testConfig(t)

		store, err := repository.Open(ctx, cfg.DBDriver, cfg.DBDSN)
		convey.So(err, convey.ShouldBeNil)
		defer func() { _ = store.Close() }()

		svc := newService(store, cfg, logger.Get())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		srv := httptest.NewServer(newMux(ctx, svc, cfg, logger.Get()))
		defer srv.Close()

		convey.Convey("When the public routes are requested", func() {
			for _, path := range []string{"/", "/healthz", "/stats", "/statistics", "/statistics/scorers", "/api-docs", "/openapi.yaml"} {
				resp, err := http.Get(srv.URL + path)
				convey.So(err, convey.ShouldBeNil)
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("When the limit exceeds the configured maximum", func() {
			resp, err := http.Get(srv.URL + "/statistics?limit=101")
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusBadRequest)
		})

		convey.Convey("When the scheduler is built", func() {
			sched, err := newScheduler(cfg, svc, logger.Get())
			convey.So(err, convey.ShouldBeNil)
			convey.So(sched.Jobs(), convey.ShouldEqual, 3)
			sched.Start()
			convey.So(sched.Stop(), convey.ShouldBeNil)
		})

		convey.Convey("When the intake summary is disabled", func() {
			cfg.SummaryCron = ""
			sched, err := newScheduler(cfg, svc, logger.Get())
			convey.So(err, convey.ShouldBeNil)
			convey.So(sched.Jobs(), convey.ShouldEqual, 2)
			convey.So(sched.Stop(), convey.ShouldBeNil)
		})

		convey.Convey("When the summary schedule is malformed", func() {
			cfg.SummaryCron = "every hour"
			_, err := newScheduler(cfg, svc, logger.Get())
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the intake summary is logged", func() {
			convey.So(func() { logIntakeSummary(ctx, svc, logger.Get()) }, convey.ShouldNotPanic)
		})

		convey.Convey("When the gauges are refreshed directly", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})
	})
}

func TestRun(t *testing.T) {
	if err := logger.Init(); err != nil {
		t.Fatalf("init logger: %v", err)
	}
	_ = logger.SetLevelString("error")

	convey.Convey("Given a config on a free port", t, func() {
		cfg := testConfig(t)
		cfg.Addr = freeAddr(t)

		convey.Convey("When run is cancelled after the server is up", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- run(ctx, cfg) }()

			up := false
			for i := 0; i < 100 && !up; i++ {
				resp, err := http.Get("http://" + cfg.Addr + "/healthz")
				if err == nil {
					_ = resp.Body.Close()
					up = resp.StatusCode == http.StatusOK
				}
				if !up {
					time.Sleep(20 * time.Millisecond)
				}
			}
			cancel()

			convey.Convey("Then it served and shut down cleanly", func() {
				convey.So(up, convey.ShouldBeTrue)
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(10 * time.Second):
					t.Fatal("run did not return after cancel")
				}
			})
		})

		convey.Convey("When the store cannot be opened", func() {
			cfg.DBDriver = "mysql"
			err := run(context.Background(), cfg)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
