package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/placar/internal/adapters/mq/queue"
	worker "github.com/okian/placar/internal/adapters/mq/worker"
	model "github.com/okian/placar/internal/domain/model"
	logging "github.com/okian/placar/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	ch chan model.Submission
}

func newMockQueue() *mockQueue {
	return &mockQueue{ch: make(chan model.Submission, 100)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan model.Submission { return mq.ch }

func (mq *mockQueue) Close() error {
	close(mq.ch)
	return nil
}

type mockWriter struct {
	mu      sync.Mutex
	matches map[string]model.MatchRecord
	events  map[string]model.GoalEvent
	fail    map[string]error
}

func newMockWriter() *mockWriter {
	return &mockWriter{
		matches: make(map[string]model.MatchRecord),
		events:  make(map[string]model.GoalEvent),
		fail:    make(map[string]error),
	}
}

func (mw *mockWriter) SaveMatch(ctx context.Context, m model.MatchRecord) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if err := mw.fail[m.ID]; err != nil {
		return err
	}
	mw.matches[m.ID] = m
	return nil
}

func (mw *mockWriter) SaveEvent(ctx context.Context, e model.GoalEvent) (bool, error) {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if err := mw.fail[e.ID]; err != nil {
		return false, err
	}
	if _, ok := mw.events[e.ID]; ok {
		return false, nil
	}
	mw.events[e.ID] = e
	return true, nil
}

func (mw *mockWriter) setError(id string, err error) {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	mw.fail[id] = err
}

func (mw *mockWriter) counts() (int, int) {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return len(mw.matches), len(mw.events)
}

func matchSubmission(id string) model.Submission {
	return model.Submission{ID: id, Match: &model.MatchRecord{
		ID: id, HomeTeamID: "a", AwayTeamID: "b",
		HomeScore: model.Score(1), AwayScore: model.Score(0),
		Status: model.MatchCompleted, Completed: true,
	}}
}

func eventSubmission(id string) model.Submission {
	return model.Submission{ID: id, Event: &model.GoalEvent{ID: id, MatchID: "m1", Kind: model.EventGoal, PlayerID: "p1"}}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a new InMemoryWorker", t, func() {
		_ = logging.Init()
		q := newMockQueue()
		w := newMockWriter()

		convey.Convey("When running a worker", func() {
			var mu sync.Mutex
			var failed []string
			wk := worker.NewInMemoryWorker(q, w,
				worker.WithName("test-worker"),
				worker.WithLogger(logging.Nop()),
				worker.WithFailureHandler(func(ctx context.Context, s model.Submission, err error) {
					mu.Lock()
					failed = append(failed, s.ID)
					mu.Unlock()
				}),
			)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go wk.Run(ctx)

			convey.Convey("And when processing matches and events", func() {
				q.ch <- matchSubmission("m1")
				q.ch <- eventSubmission("e1")

				convey.Convey("Then both are written", func() {
					convey.So(waitFor(func() bool { m, e := w.counts(); return m == 1 && e == 1 }), convey.ShouldBeTrue)
					convey.So(waitFor(func() bool { return wk.Counters().Processed() == 2 }), convey.ShouldBeTrue)
				})
			})

			convey.Convey("And when an event is already stored", func() {
				q.ch <- eventSubmission("e1")
				q.ch <- eventSubmission("e1")

				convey.Convey("Then it counts as a duplicate, not a failure", func() {
					convey.So(waitFor(func() bool { return wk.Counters().Duplicates() == 1 }), convey.ShouldBeTrue)
					convey.So(wk.Counters().Failed(), convey.ShouldEqual, 0)
				})
			})

			convey.Convey("And when the writer fails", func() {
				w.setError("m2", errors.New("disk full"))
				q.ch <- matchSubmission("m2")

				convey.Convey("Then the failure handler sees the submission", func() {
					convey.So(waitFor(func() bool { return wk.Counters().Failed() == 1 }), convey.ShouldBeTrue)
					mu.Lock()
					defer mu.Unlock()
					convey.So(failed, convey.ShouldResemble, []string{"m2"})
				})
			})

			convey.Convey("And when the submission is empty", func() {
				q.ch <- model.Submission{ID: "x"}

				convey.Convey("Then it is counted as failed", func() {
					convey.So(waitFor(func() bool { return wk.Counters().Failed() == 1 }), convey.ShouldBeTrue)
				})
			})

			convey.Convey("And when shutting down", func() {
				sctx, scancel := context.WithTimeout(context.Background(), time.Second)
				defer scancel()

				convey.Convey("Then it should shutdown gracefully", func() {
					convey.So(wk.Shutdown(sctx), convey.ShouldBeNil)
					convey.So(wk.Shutdown(sctx), convey.ShouldBeNil)
				})
			})
		})

		convey.Convey("When the queue channel is closed", func() {
			wk := worker.NewInMemoryWorker(q, w, worker.WithLogger(logging.Nop()))
			done := make(chan struct{})
			go func() {
				wk.Run(context.Background())
				close(done)
			}()
			_ = q.Close()

			convey.Convey("Then the worker should stop", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					t.Error("worker did not stop")
				}
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a worker pool on a real queue", t, func() {
		_ = logging.Init()
		q := queue.NewInMemoryQueue(queue.WithCapacity(1000))
		w := newMockWriter()

		convey.Convey("When creating a pool with the default count", func() {
			p := worker.NewPool(0, q, w, worker.WithPoolLogger(logging.Nop()))

			convey.Convey("Then it has at least one worker", func() {
				convey.So(p.Size(), convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When many submissions are processed concurrently", func() {
			p := worker.NewPool(4, q, w, worker.WithPoolLogger(logging.Nop()))
			ctx := context.Background()
			p.Start(ctx)

			for i := 0; i < 200; i++ {
				convey.So(q.Enqueue(ctx, eventSubmission(fmt.Sprintf("e-%d", i))), convey.ShouldBeTrue)
			}
			for i := 0; i < 50; i++ {
				convey.So(q.Enqueue(ctx, matchSubmission(fmt.Sprintf("m-%d", i))), convey.ShouldBeTrue)
			}

			sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			err := p.Shutdown(sctx)

			convey.Convey("Then shutdown drains everything that was accepted", func() {
				convey.So(err, convey.ShouldBeNil)
				m, e := w.counts()
				convey.So(m, convey.ShouldEqual, 50)
				convey.So(e, convey.ShouldEqual, 200)
				convey.So(p.Counters().Processed(), convey.ShouldEqual, 250)
				convey.So(p.Counters().InFlight(), convey.ShouldEqual, 0)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When stopping a running pool", func() {
			p := worker.NewPool(2, q, w, worker.WithPoolLogger(logging.Nop()))
			p.Start(context.Background())

			convey.Convey("Then all workers stop", func() {
				done := make(chan struct{})
				go func() {
					p.Stop()
					close(done)
				}()
				select {
				case <-done:
				case <-time.After(2 * time.Second):
					t.Error("pool did not stop")
				}
			})
		})
	})
}
