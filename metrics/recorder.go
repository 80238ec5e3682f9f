package metrics

// TickResult labels the outcome of one accrual tick.
type TickResult string

const (
	TickCommitted  TickResult = "committed"
	TickEmpty      TickResult = "empty"
	TickUnbound    TickResult = "unbound"
	TickUnresolved TickResult = "unresolved"
	TickStale      TickResult = "stale"
	TickOverlap    TickResult = "overlap"
	TickFailed     TickResult = "failed"
)

// Recorder defines observability hooks for sessions and presence accrual.
// The Prometheus implementation tolerates a nil receiver so callers may
// leave a Recorder unset.
type Recorder interface {
	IncAccrualTick(result TickResult)
	AddAccruedSeconds(seconds float64)
	SetObservedParticipants(n int)
	IncSessionStarted()
	IncPhase(phase string)
	SetSessionActive(active bool)
	IncAnnounceFailure()
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncAccrualTick(TickResult)  {}
func (NoopRecorder) AddAccruedSeconds(float64)  {}
func (NoopRecorder) SetObservedParticipants(int) {}
func (NoopRecorder) IncSessionStarted()          {}
func (NoopRecorder) IncPhase(string)             {}
func (NoopRecorder) SetSessionActive(bool)       {}
func (NoopRecorder) IncAnnounceFailure()         {}
