package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithRegistry(registry))

			Convey("Then collectors should be registered under the default namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.queueCapacity.Set(3)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "placar_stats_queue_capacity")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("league"),
				WithSubsystem("board"),
				WithNamePrefix("test_"),
				WithLatencyBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithRegistry(registry),
			)

			Convey("Then names and constant labels should follow the options", func() {
				manager.workerCount.Set(4)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, f := range families {
					if f.GetName() != "league_board_test_worker_count" {
						continue
					}
					found = true
					So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
					So(f.GetMetric()[0].GetGauge().GetValue(), ShouldEqual, 4)
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When registering twice on the same registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithRegistry(registry))

			Convey("Then promauto should panic on the duplicate", func() {
				So(func() { NewManager(WithRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording intake metrics", func() {
			before := testutil.ToFloat64(globalManager.submissionsAccepted.WithLabelValues("event"))
			RecordSubmissionAccepted("event")
			RecordSubmissionAccepted("event")
			RecordSubmissionDuplicate()
			RecordSubmissionRejected("backpressure")
			UpdateDedupeSize(12)

			Convey("Then counters and gauges should move", func() {
				So(testutil.ToFloat64(globalManager.submissionsAccepted.WithLabelValues("event")), ShouldEqual, before+2)
				So(testutil.ToFloat64(globalManager.dedupeSize), ShouldEqual, 12)
			})
		})

		Convey("When recording aggregation metrics", func() {
			RecordAggregation("scorers", 0.4, 7)
			UpdateAggregationInputs(20, 55)

			Convey("Then the board gauges should hold the last values", func() {
				So(testutil.ToFloat64(globalManager.leaderboardEntries.WithLabelValues("scorers")), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.aggregationInputs.WithLabelValues("matches")), ShouldEqual, 20)
				So(testutil.ToFloat64(globalManager.aggregationInputs.WithLabelValues("events")), ShouldEqual, 55)
			})
		})

		Convey("When recording queue, worker and store metrics", func() {
			So(func() {
				UpdateQueueSize(10)
				UpdateQueueCapacity(100)
				UpdateQueueUtilization(0.1)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueProcessingLatency(0.2)
				UpdateWorkerCount(4)
				RecordWorkerProcessingLatency(3)
				RecordWorkerError()
				RecordStoreWrite("event", "stored")
				RecordStoreQueryLatency("events", 1.5)
				RecordStoreError("events")
			}, ShouldNotPanic)
			So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 10)
		})

		Convey("When recording HTTP, error and system metrics", func() {
			So(func() {
				RecordHTTPRequest("statistics", "GET", "200")
				RecordHTTPRequestDuration("statistics", "GET", "200", 2)
				RecordErrorByComponent("queue", "queue_full")
				RecordErrorByType("server_error", "high")
				RecordErrorByEndpoint("events", "POST", "client_error")
				RecordErrorLatency("http", "client_error", 1)
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent writers", t, func() {
		before := testutil.ToFloat64(globalManager.queueEnqueued)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					RecordQueueEnqueue()
				}
			}()
		}
		wg.Wait()

		So(testutil.ToFloat64(globalManager.queueEnqueued), ShouldEqual, before+1000)
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("The global registry should be the custom one", t, func() {
		So(GetRegistry(), ShouldEqual, customRegistry)
	})
}
