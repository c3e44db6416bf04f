// Package metrics holds the prometheus collectors for the intake loop.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IntakeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollcall_intake_total",
			Help: "Attendee taps by intake outcome",
		},
		[]string{"outcome"}, // new_check_in, duplicate_in_session, duplicate_confirmed, unregistered
	)

	VerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollcall_verifications_total",
			Help: "Finished verifications by status",
		},
		[]string{"status"},
	)

	VerificationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rollcall_verification_duration_seconds",
			Help:    "Time spent in one identity's capture window",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30, 45},
		},
	)

	LocalWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rollcall_local_write_failures_total",
			Help: "Attendance records lost because the local store write failed",
		},
	)

	MirrorFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollcall_mirror_failures_total",
			Help: "Remote mirror writes that failed and were dropped",
		},
		[]string{"operation"}, // put_session, close_session, put_attendance
	)

	SessionsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rollcall_sessions_opened_total",
			Help: "Sessions opened by owner taps",
		},
	)

	PendingCheckIns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rollcall_pending_check_ins",
			Help: "Attendees tapped since the last rollover",
		},
	)

	TapsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollcall_taps_rejected_total",
			Help: "Taps from reader modules refused before intake",
		},
		[]string{"reason"},
	)
)

func TrackIntake(outcome string) {
	IntakeTotal.WithLabelValues(outcome).Inc()
}

// TrackVerification records one finished capture window.
func TrackVerification(status string, took time.Duration) {
	VerificationsTotal.WithLabelValues(status).Inc()
	VerificationDuration.Observe(took.Seconds())
}

func TrackMirrorFailure(op string) {
	MirrorFailures.WithLabelValues(op).Inc()
}

func TrackTapRejected(reason string) {
	TapsRejected.WithLabelValues(reason).Inc()
}
