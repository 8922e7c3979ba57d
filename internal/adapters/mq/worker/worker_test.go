package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	queue "github.com/okian/endurank/internal/adapters/mq/queue"
	worker "github.com/okian/endurank/internal/adapters/mq/worker"
	model "github.com/okian/endurank/internal/domain/model"
	logging "github.com/okian/endurank/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	records chan queue.Record
}

func newMockQueue() *mockQueue {
	return &mockQueue{records: make(chan queue.Record, 128)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.Record { return mq.records }

func (mq *mockQueue) Close() error {
	close(mq.records)
	return nil
}

func (mq *mockQueue) add(name string) {
	mq.records <- queue.Record{RunID: "run-1", Source: "test", Raw: model.RawRace{Name: name, State: "TX", Distance: model.DistanceHalf}}
}

type mockApplier struct {
	mu      sync.Mutex
	applied map[string]model.SyncAction
	errors  map[string]error
}

func newMockApplier() *mockApplier {
	return &mockApplier{applied: make(map[string]model.SyncAction), errors: make(map[string]error)}
}

func (m *mockApplier) Apply(ctx context.Context, rec model.SyncRecord) (model.SyncAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.errors[rec.Raw.Name]; ok {
		return "", err
	}
	action := model.SyncAdded
	if _, seen := m.applied[rec.Raw.Name]; seen {
		action = model.SyncSkipped
	}
	m.applied[rec.Raw.Name] = action
	return action, nil
}

func (m *mockApplier) setError(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[name] = err
}

func (m *mockApplier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.applied)
}

func (m *mockApplier) action(name string) (model.SyncAction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.applied[name]
	return a, ok
}

// blockingApplier holds each record until its context ends.
type blockingApplier struct {
	started   chan struct{}
	cancelled atomic.Bool
}

func (b *blockingApplier) Apply(ctx context.Context, _ model.SyncRecord) (model.SyncAction, error) {
	b.started <- struct{}{}
	<-ctx.Done()
	b.cancelled.Store(true)
	return "", ctx.Err()
}

// waitFor polls cond for up to a second.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		applier := newMockApplier()

		var mu sync.Mutex
		var observed []model.SyncAction
		var failures int
		w := worker.NewInMemoryWorker(q, applier,
			worker.WithName("test-worker"),
			worker.WithOnApplied(func(rec model.SyncRecord, action model.SyncAction, err error) {
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failures++
					return
				}
				observed = append(observed, action)
			}),
		)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a record arrives", func() {
			q.add("IRONMAN 70.3 Waco")

			convey.Convey("Then it is applied and observed", func() {
				convey.So(waitFor(func() bool { return applier.count() == 1 }), convey.ShouldBeTrue)
				action, ok := applier.action("IRONMAN 70.3 Waco")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(action, convey.ShouldEqual, model.SyncAdded)
				convey.So(waitFor(func() bool {
					mu.Lock()
					defer mu.Unlock()
					return len(observed) == 1
				}), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When applying fails", func() {
			applier.setError("Broken Race", errors.New("store down"))
			q.add("Broken Race")
			q.add("Good Race")

			convey.Convey("Then the worker reports it and keeps going", func() {
				convey.So(waitFor(func() bool { _, ok := applier.action("Good Race"); return ok }), convey.ShouldBeTrue)
				_, ok := applier.action("Broken Race")
				convey.So(ok, convey.ShouldBeFalse)
				mu.Lock()
				convey.So(failures, convey.ShouldEqual, 1)
				mu.Unlock()
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer shutdownCancel()

			convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a worker whose queue closes", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		w := worker.NewInMemoryWorker(q, newMockApplier())
		done := make(chan struct{})
		go func() {
			w.Run(context.Background())
			close(done)
		}()

		_ = q.Close()

		convey.Convey("Then Run returns", func() {
			select {
			case <-done:
				convey.So(true, convey.ShouldBeTrue)
			case <-time.After(time.Second):
				convey.So("worker still running", convey.ShouldBeEmpty)
			}
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a worker pool", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		applier := newMockApplier()

		convey.Convey("When created with no explicit count", func() {
			pool := worker.NewPool(0, q, applier)
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		})

		convey.Convey("When many records are enqueued concurrently", func() {
			pool := worker.NewPool(4, q, applier)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			pool.Start(ctx)

			var wg sync.WaitGroup
			for p := 0; p < 5; p++ {
				wg.Add(1)
				go func(p int) {
					defer wg.Done()
					for j := 0; j < 20; j++ {
						q.add(fmt.Sprintf("race-%d-%d", p, j))
					}
				}(p)
			}
			wg.Wait()

			convey.Convey("Then every record is applied exactly once", func() {
				convey.So(waitFor(func() bool { return applier.count() == 100 }), convey.ShouldBeTrue)
			})

			convey.Convey("And shutdown drains and returns", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
				defer shutdownCancel()
				convey.So(pool.Shutdown(shutdownCtx), convey.ShouldBeNil)
				convey.So(applier.count(), convey.ShouldEqual, 100)
				convey.So(pool.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the start context is cancelled", func() {
			pool := worker.NewPool(2, q, applier)
			ctx, cancel := context.WithCancel(context.Background())
			pool.Start(ctx)
			cancel()
			for i := 0; i < 10; i++ {
				q.add(fmt.Sprintf("after-cancel-%d", i))
			}

			convey.Convey("Then shutdown still drains every queued record", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
				defer shutdownCancel()
				convey.So(pool.Shutdown(shutdownCtx), convey.ShouldBeNil)
				convey.So(applier.count(), convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When stopped without draining", func() {
			pool := worker.NewPool(2, q, applier)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			pool.Start(ctx)

			pool.Stop()
			pool.Stop()

			convey.Convey("Then later records are not applied", func() {
				q.add("late")
				time.Sleep(20 * time.Millisecond)
				_, ok := applier.action("late")
				convey.So(ok, convey.ShouldBeFalse)
			})
		})
	})
}

func TestWorkerPoolStuck(t *testing.T) {
	convey.Convey("Given a pool whose only worker is stuck on a record", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		applier := &blockingApplier{started: make(chan struct{}, 1)}
		pool := worker.NewPool(1, q, applier)
		pool.Start(context.Background())
		defer pool.Stop()
		q.add("slow")
		<-applier.started

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		err := pool.Shutdown(shutdownCtx)

		convey.Convey("Then shutdown gives up at its deadline", func() {
			convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
		})

		convey.Convey("Then stop cancels the record and ends the worker", func() {
			done := make(chan struct{})
			go func() {
				pool.Stop()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				convey.So("pool still running", convey.ShouldBeEmpty)
			}
			convey.So(applier.cancelled.Load(), convey.ShouldBeTrue)
		})
	})
}
