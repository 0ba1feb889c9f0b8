package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SessionStarted("play")
	m.SessionStarted("play")
	m.SessionStopped("play", "eof")
	m.Transferred("play", 100)
	m.Transferred("play", 0)
	m.Completion("record")
	m.FileError("record", "write")
	m.DeviceError("play", "enqueue")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessionsStarted.WithLabelValues("play")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsStopped.WithLabelValues("play", "eof")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeSessions.WithLabelValues("play")))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.bytesTransferred.WithLabelValues("play")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.completions.WithLabelValues("record")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fileErrors.WithLabelValues("record", "write")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deviceErrors.WithLabelValues("play", "enqueue")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.SessionStarted("play")
	m.SessionStopped("play", "stop")
	m.Transferred("play", 1)
	m.Completion("play")
	m.FileError("play", "open")
	m.DeviceError("play", "open")
}

func TestHandler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.SessionStarted("record")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `voicebox_sessions_started_total{direction="record"} 1`)
}
