package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then every collector is registered", func() {
				So(manager, ShouldNotBeNil)
				manager.eventsCreated.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 2}),
				WithConstLabels(map[string]string{"channel": "123"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then names use the custom namespace", func() {
				manager.messagesDuplicate.Inc()
				count, err := testutil.GatherAndCount(registry, "test_unit_messages_duplicate_total")
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 1)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording pipeline counters", func() {
			before := testutil.ToFloat64(globalManager.eventsCreated)
			RecordEventCreated()
			RecordEventCreated()

			Convey("Then the counter advances", func() {
				So(testutil.ToFloat64(globalManager.eventsCreated)-before, ShouldEqual, 2)
			})
		})

		Convey("When recording reconciliation", func() {
			before := testutil.ToFloat64(globalManager.reconcileDeleted)
			RecordReconcile(2, 3)

			Convey("Then groups is a gauge and deletions accumulate", func() {
				So(testutil.ToFloat64(globalManager.reconcileGroups), ShouldEqual, 2)
				So(testutil.ToFloat64(globalManager.reconcileDeleted)-before, ShouldEqual, 3)
			})
		})

		Convey("When recording the remaining metrics", func() {
			So(func() {
				RecordMessageReceived("create")
				RecordMessageReceived("catchup")
				RecordMessageDuplicate()
				RecordMessageUnparsed()
				RecordEventsSkipped(2)
				RecordCollaboratorError("calendar_insert")
				UpdateTrackerSize(10)
				RecordTrackerEvicted(4)
				RecordTrackerPersistError()
				UpdateQueueSize(3)
				RecordQueueRejected()
				RecordSweepDuration(12.5)
				RecordHTTPRequest("healthz", "GET", "200")
				RecordHTTPRequestDuration("healthz", "GET", "200", 1.5)
			}, ShouldNotPanic)

			Convey("Then the registry exposes them", func() {
				So(testutil.ToFloat64(globalManager.trackerSize), ShouldEqual, 10)
				So(GetRegistry(), ShouldNotBeNil)
			})
		})
	})
}
