package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/buffcal/internal/app"
	"github.com/okian/buffcal/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

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

func TestService_Lifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service that has not been started", t, func() {
		f := newFixture()

		Convey("When a message is submitted", func() {
			err := f.svc.Submit(ctx, message("l-0", victory), model.TriggerCreate)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When stopped", func() {
			Convey("Then stopping is a no-op", func() {
				So(f.svc.Stop(ctx), ShouldBeNil)
			})
		})
	})

	Convey("Given a started service", t, func() {
		f := newFixture(service.WithSyncInterval(time.Hour))
		So(f.svc.Start(ctx), ShouldBeNil)
		defer func() { _ = f.svc.Stop(ctx) }()

		Convey("Then a startup sweep runs", func() {
			So(waitFor(func() bool { return f.svc.GetStats().LastSweep != nil }), ShouldBeTrue)
			So(f.svc.GetStats().Started, ShouldBeTrue)
		})

		Convey("When the same message is delivered twice", func() {
			So(f.svc.Submit(ctx, message("l-1", victory), model.TriggerCreate), ShouldBeNil)
			So(f.svc.Submit(ctx, message("l-1", victory), model.TriggerUpdate), ShouldBeNil)

			Convey("Then its events are created once", func() {
				So(waitFor(func() bool { return len(f.cal.Entries()) == 2 }), ShouldBeTrue)
				So(waitFor(func() bool { return f.svc.GetStats().QueueLength == 0 }), ShouldBeTrue)
				time.Sleep(20 * time.Millisecond)
				So(f.cal.Entries(), ShouldHaveLength, 2)
				So(f.svc.GetStats().TrackedIDs, ShouldEqual, 1)
			})
		})

		Convey("When started a second time", func() {
			Convey("Then nothing changes", func() {
				So(f.svc.Start(ctx), ShouldBeNil)
				So(f.svc.GetStats().Started, ShouldBeTrue)
			})
		})

		Convey("When stopped", func() {
			So(f.svc.Stop(ctx), ShouldBeNil)

			Convey("Then submissions are rejected", func() {
				So(f.svc.GetStats().Started, ShouldBeFalse)
				err := f.svc.Submit(ctx, message("l-2", victory), model.TriggerCreate)
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})

	Convey("Given startup sweeps are disabled", t, func() {
		f := newFixture(service.WithStartupSweep(false), service.WithSyncInterval(time.Hour))
		So(f.svc.Start(ctx), ShouldBeNil)
		defer func() { _ = f.svc.Stop(ctx) }()

		Convey("Then no history is requested on start", func() {
			time.Sleep(20 * time.Millisecond)
			f.source.mu.Lock()
			defer f.source.mu.Unlock()
			So(f.source.historyCalls, ShouldBeEmpty)
		})
	})
}
