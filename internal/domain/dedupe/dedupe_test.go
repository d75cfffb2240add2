package dedupe_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	dedupe "github.com/okian/buffcal/internal/domain/dedupe"
	"github.com/okian/buffcal/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fakeStore struct {
	mu      sync.Mutex
	records map[string]time.Time
	loadErr error
	saveErr error
	saves   int
}

func (s *fakeStore) Load(context.Context) (map[string]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := make(map[string]time.Time, len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out, nil
}

func (s *fakeStore) Save(_ context.Context, records map[string]time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.records = records
	return nil
}

func TestTracker(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 2, 27, 18, 0, 0, 0, time.UTC)

	Convey("Given a new tracker without a store", t, func() {
		d := dedupe.NewTracker(ctx)

		Convey("Then it starts empty", func() {
			So(d.Size(), ShouldEqual, 0)
			So(d.ShouldProcess(ctx, "m-1"), ShouldBeTrue)
		})

		Convey("When a message is marked processed", func() {
			d.MarkProcessed(ctx, "m-1", now)

			Convey("Then it should not be processed again", func() {
				So(d.ShouldProcess(ctx, "m-1"), ShouldBeFalse)
				So(d.ShouldProcess(ctx, "m-2"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
				at, ok := d.ProcessedAt("m-1")
				So(ok, ShouldBeTrue)
				So(at.Equal(now), ShouldBeTrue)
			})
		})

		Convey("When SeenAndRecord is called twice", func() {
			first := d.SeenAndRecord(ctx, "m-1", now)
			second := d.SeenAndRecord(ctx, "m-1", now.Add(time.Minute))

			Convey("Then only the first call claims the id", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				at, _ := d.ProcessedAt("m-1")
				So(at.Equal(now), ShouldBeTrue)
			})
		})

		Convey("When an id is unrecorded", func() {
			d.SeenAndRecord(ctx, "m-1", now)
			d.Unrecord(ctx, "m-1")
			d.Unrecord(ctx, "missing")

			Convey("Then it can be claimed again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "m-1", now), ShouldBeFalse)
			})
		})

		Convey("When records age past the retention window", func() {
			d.MarkProcessed(ctx, "old", now.Add(-2*time.Hour))
			d.MarkProcessed(ctx, "edge", now.Add(-time.Hour))
			d.MarkProcessed(ctx, "fresh", now.Add(-time.Minute))

			evicted := d.EvictOlderThan(ctx, now.Add(-time.Hour))

			Convey("Then only records strictly older than the cutoff go", func() {
				So(evicted, ShouldEqual, 1)
				So(d.ShouldProcess(ctx, "old"), ShouldBeTrue)
				So(d.ShouldProcess(ctx, "edge"), ShouldBeFalse)
				So(d.ShouldProcess(ctx, "fresh"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 2)
			})

			Convey("And a second eviction is a no-op", func() {
				So(d.EvictOlderThan(ctx, now.Add(-time.Hour)), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a bounded tracker", t, func() {
		d := dedupe.NewTracker(ctx, dedupe.WithMaxSize(2))

		Convey("When the cap is reached", func() {
			d.MarkProcessed(ctx, "a", now)
			d.MarkProcessed(ctx, "b", now.Add(time.Minute))
			d.MarkProcessed(ctx, "c", now.Add(2*time.Minute))

			Convey("Then the oldest record is evicted", func() {
				So(d.Size(), ShouldEqual, 2)
				So(d.ShouldProcess(ctx, "a"), ShouldBeTrue)
				So(d.ShouldProcess(ctx, "b"), ShouldBeFalse)
				So(d.ShouldProcess(ctx, "c"), ShouldBeFalse)
			})
		})

		Convey("When an existing id is marked again at the cap", func() {
			d.MarkProcessed(ctx, "a", now)
			d.MarkProcessed(ctx, "b", now.Add(time.Minute))
			d.MarkProcessed(ctx, "a", now.Add(2*time.Minute))

			Convey("Then nothing is evicted", func() {
				So(d.Size(), ShouldEqual, 2)
				So(d.ShouldProcess(ctx, "b"), ShouldBeFalse)
			})
		})
	})
}

func TestTrackerPersistence(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 2, 27, 18, 0, 0, 0, time.UTC)

	Convey("Given a store with existing records", t, func() {
		store := &fakeStore{records: map[string]time.Time{"m-1": now}}
		d := dedupe.NewTracker(ctx, dedupe.WithStore(store))

		Convey("Then the records survive a restart", func() {
			So(d.Size(), ShouldEqual, 1)
			So(d.ShouldProcess(ctx, "m-1"), ShouldBeFalse)
		})

		Convey("When the tracker changes", func() {
			d.MarkProcessed(ctx, "m-2", now)
			d.Unrecord(ctx, "m-1")

			Convey("Then every mutation is written through", func() {
				So(store.saves, ShouldEqual, 2)
				So(store.records, ShouldHaveLength, 1)
				_, ok := store.records["m-2"]
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When a duplicate is seen", func() {
			d.SeenAndRecord(ctx, "m-1", now)

			Convey("Then nothing is written", func() {
				So(store.saves, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a store that cannot be read", t, func() {
		store := &fakeStore{loadErr: errors.New("corrupt file")}
		d := dedupe.NewTracker(ctx, dedupe.WithStore(store))

		Convey("Then the tracker starts empty and keeps working", func() {
			So(d.Size(), ShouldEqual, 0)
			So(d.SeenAndRecord(ctx, "m-1", now), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "m-1", now), ShouldBeTrue)
		})
	})

	Convey("Given a store that cannot be written", t, func() {
		store := &fakeStore{saveErr: errors.New("disk full")}
		d := dedupe.NewTracker(ctx, dedupe.WithStore(store))

		Convey("When a message is recorded", func() {
			claimed := !d.SeenAndRecord(ctx, "m-1", now)

			Convey("Then the in-memory state is kept", func() {
				So(claimed, ShouldBeTrue)
				So(store.saves, ShouldEqual, 1)
				So(d.ShouldProcess(ctx, "m-1"), ShouldBeFalse)
			})
		})
	})
}

func TestTrackerConcurrency(t *testing.T) {
	Convey("Given a tracker with concurrent access", t, func() {
		ctx := context.Background()
		d := dedupe.NewTracker(ctx)
		const numGoroutines = 10
		const idsPerGoroutine = 100

		Convey("When every goroutine races to claim the same ids", func() {
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				claimed = make(map[string]int)
			)
			for i := 0; i < numGoroutines; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < idsPerGoroutine; j++ {
						id := fmt.Sprintf("m-%d", j)
						if !d.SeenAndRecord(ctx, id, time.Now()) {
							mu.Lock()
							claimed[id]++
							mu.Unlock()
						}
					}
				}()
			}
			wg.Wait()

			Convey("Then each id is claimed exactly once", func() {
				So(d.Size(), ShouldEqual, idsPerGoroutine)
				So(claimed, ShouldHaveLength, idsPerGoroutine)
				for _, n := range claimed {
					So(n, ShouldEqual, 1)
				}
			})
		})
	})
}
