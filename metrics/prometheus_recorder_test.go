package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder_Counters(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.IncAccrualTick(TickCommitted)
	r.IncAccrualTick(TickCommitted)
	r.IncAccrualTick(TickFailed)
	r.AddAccruedSeconds(120)
	r.AddAccruedSeconds(-5)
	r.SetObservedParticipants(2)
	r.IncSessionStarted()
	r.IncPhase("work")
	r.SetSessionActive(true)
	r.IncAnnounceFailure()

	assert.InDelta(t, 2, testutil.ToFloat64(r.accrualTicks.WithLabelValues(string(TickCommitted))), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.accrualTicks.WithLabelValues(string(TickFailed))), 0)
	assert.InDelta(t, 120, testutil.ToFloat64(r.accruedSeconds), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(r.observed), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.sessionsStarted), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.phases.WithLabelValues("work")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.sessionActive), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.announceFailures), 0)

	r.SetSessionActive(false)
	assert.InDelta(t, 0, testutil.ToFloat64(r.sessionActive), 0)
}

func TestPrometheusRecorder_NilReceiver(t *testing.T) {
	var r *PrometheusRecorder
	require.NotPanics(t, func() {
		r.IncAccrualTick(TickEmpty)
		r.AddAccruedSeconds(60)
		r.SetObservedParticipants(1)
		r.IncSessionStarted()
		r.IncPhase("break")
		r.SetSessionActive(true)
		r.IncAnnounceFailure()
	})
}

func TestHTTPHandler_ServesRegistry(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)
	r.IncSessionStarted()

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "pomobot_sessions_started_total 1"))
}
