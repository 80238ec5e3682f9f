package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pomobot"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	accrualTicks     *prom.CounterVec
	accruedSeconds   prom.Counter
	observed         prom.Gauge
	sessionsStarted  prom.Counter
	phases           *prom.CounterVec
	sessionActive    prom.Gauge
	announceFailures prom.Counter
}

// NewPrometheusRecorder constructs and registers the metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		accrualTicks: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "accrual_ticks_total",
			Help:      "Presence accrual ticks by outcome",
		}, []string{"result"}),
		accruedSeconds: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "accrued_seconds_total",
			Help:      "Presence seconds committed to the store",
		}),
		observed: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "observed_participants",
			Help:      "Participants credited by the last committed tick",
		}),
		sessionsStarted: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Pomodoro sessions started",
		}),
		phases: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "session_phases_total",
			Help:      "Session phase transitions by phase",
		}, []string{"phase"}),
		sessionActive: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "session_active",
			Help:      "1 while a session loop is running",
		}),
		announceFailures: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "announce_failures_total",
			Help:      "Channel notices that could not be delivered",
		}),
	}
	reg.MustRegister(pr.accrualTicks, pr.accruedSeconds, pr.observed, pr.sessionsStarted,
		pr.phases, pr.sessionActive, pr.announceFailures)
	return pr
}

func (p *PrometheusRecorder) IncAccrualTick(result TickResult) {
	if p == nil {
		return
	}
	p.accrualTicks.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) AddAccruedSeconds(seconds float64) {
	if p == nil || seconds <= 0 {
		return
	}
	p.accruedSeconds.Add(seconds)
}

func (p *PrometheusRecorder) SetObservedParticipants(n int) {
	if p == nil {
		return
	}
	p.observed.Set(float64(n))
}

func (p *PrometheusRecorder) IncSessionStarted() {
	if p == nil {
		return
	}
	p.sessionsStarted.Inc()
}

func (p *PrometheusRecorder) IncPhase(phase string) {
	if p == nil {
		return
	}
	p.phases.WithLabelValues(phase).Inc()
}

func (p *PrometheusRecorder) SetSessionActive(active bool) {
	if p == nil {
		return
	}
	if active {
		p.sessionActive.Set(1)
		return
	}
	p.sessionActive.Set(0)
}

func (p *PrometheusRecorder) IncAnnounceFailure() {
	if p == nil {
		return
	}
	p.announceFailures.Inc()
}

// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
