package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/placar/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.DBDriver, convey.ShouldEqual, config.DriverSQLite)
			convey.So(cfg.DBDSN, convey.ShouldNotBeEmpty)
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			convey.So(cfg.DefaultLimit, convey.ShouldEqual, 10)
			convey.So(cfg.MaxLimit, convey.ShouldEqual, 100)
			convey.So(cfg.EventWindow, convey.ShouldEqual, 1000)
			convey.So(cfg.StrictScores, convey.ShouldBeFalse)
			convey.So(cfg.MetricsInterval(), convey.ShouldEqual, 15*time.Second)
			convey.So(cfg.SummaryCron, convey.ShouldEqual, "0 * * * *")
			convey.So(cfg.ShutdownTimeout(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one invalid field", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":           func(c *config.Config) { c.Addr = " " },
			"unknown driver":       func(c *config.Config) { c.DBDriver = "mysql" },
			"empty dsn":            func(c *config.Config) { c.DBDSN = "" },
			"zero default limit":   func(c *config.Config) { c.DefaultLimit = 0 },
			"max below default":    func(c *config.Config) { c.MaxLimit = 5 },
			"negative window":      func(c *config.Config) { c.EventWindow = -1 },
			"zero metrics refresh": func(c *config.Config) { c.MetricsIntervalSeconds = 0 },
		}
		for name, mutate := range cases {
			cfg := config.New()
			mutate(cfg)
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(name, convey.ShouldNotBeEmpty)
		}

		convey.Convey("Driver aliases are accepted", func() {
			for _, d := range []string{"sqlite3", "Postgres", "postgresql", "pq"} {
				cfg := config.New()
				cfg.DBDriver = d
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			}
		})
	})
}
