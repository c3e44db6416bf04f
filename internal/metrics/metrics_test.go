package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/BrandonDHaskell/rollcall/internal/metrics"
)

func TestTrackHelpers(t *testing.T) {
	before := testutil.ToFloat64(metrics.IntakeTotal.WithLabelValues("unregistered"))
	metrics.TrackIntake("unregistered")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.IntakeTotal.WithLabelValues("unregistered")))

	before = testutil.ToFloat64(metrics.VerificationsTotal.WithLabelValues("partial"))
	metrics.TrackVerification("partial", 30*time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.VerificationsTotal.WithLabelValues("partial")))

	before = testutil.ToFloat64(metrics.MirrorFailures.WithLabelValues("put_attendance"))
	metrics.TrackMirrorFailure("put_attendance")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.MirrorFailures.WithLabelValues("put_attendance")))
}
