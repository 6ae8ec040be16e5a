package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

// gathered returns the first sample value of the named family.
func gathered(reg *prometheus.Registry, name string) (float64, bool) {
	families, err := reg.Gather()
	if err != nil {
		return 0, false
	}
	for _, f := range families {
		if f.GetName() != name || len(f.GetMetric()) == 0 {
			continue
		}
		m := f.GetMetric()[0]
		switch {
		case m.GetCounter() != nil:
			return m.GetCounter().GetValue(), true
		case m.GetGauge() != nil:
			return m.GetGauge().GetValue(), true
		}
	}
	return 0, false
}

func TestManagerCreation(t *testing.T) {
	Convey("Given a private registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 1}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			m.tagsSaved.Inc()
			m.tagsSaved.Inc()
			m.activeSessions.Set(4)

			Convey("Then collectors are registered under the namespace", func() {
				v, ok := gathered(registry, "test_unit_tags_saved_total")
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 2)

				v, ok = gathered(registry, "test_unit_active_sessions")
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 4)
			})
		})
	})
}

func TestRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording tagging metrics", func() {
			So(func() {
				RecordTagSaved()
				RecordTagStarted()
				RecordTagRejected()
				RecordTagCancelled()
				RecordValidationIssue("possession", "error")
				RecordAutoGenerated("Turnover")
				RecordEventsDeleted(3)
				UpdateActiveSessions(2)
				RecordMarkerHandoff("published")
				RecordIdempotentReplay()
			}, ShouldNotPanic)

			Convey("Then they show up in the custom registry", func() {
				v, ok := gathered(GetRegistry(), "matchtag_tagging_active_sessions")
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 2)
			})
		})

		Convey("When recording plumbing metrics", func() {
			So(func() {
				RecordPersistenceLatency(3)
				RecordPersistenceError()
				RecordPersistenceStale()
				UpdateQueueSize(1)
				UpdateQueueCapacity(10)
				UpdateQueueUtilization(0.1)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerActiveCount(4)
				RecordWorkerProcessingLatency(2)
				RecordWorkerError()
				RecordHTTPRequest("/matches/{id}", "GET", "200")
				RecordHTTPRequestDuration("/matches/{id}", "GET", "200", 0.01)
				UpdateLiveClients(1)
				RecordLiveBroadcast()
				RecordErrorByComponent("api", "bad_request")
			}, ShouldNotPanic)

			v, ok := gathered(GetRegistry(), "matchtag_tagging_queue_capacity")
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 10)
		})
	})
}
