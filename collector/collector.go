// Package collector accrues per-participant presence time for the bound
// channel on a fixed interval.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	"github.com/vainnor/pomobot/binding"
	"github.com/vainnor/pomobot/logfields"
	"github.com/vainnor/pomobot/metrics"
	"github.com/vainnor/pomobot/types"
)

const (
	// DefaultInterval is the accrual resolution: one minute per tick.
	DefaultInterval = time.Minute

	jobName = "presence-accrual"
)

// Directory enumerates the participants present in a channel.
type Directory interface {
	Observers(ctx context.Context, channel types.ChannelID) ([]types.Participant, error)
}

// Store applies one tick's deltas atomically.
type Store interface {
	ApplyBatch(ctx context.Context, updates map[types.ParticipantID]float64) error
}

// Collector is the presence accrual scheduler.
type Collector struct {
	registry  *binding.Registry
	directory Directory
	store     Store
	interval  time.Duration
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   metrics.Recorder

	// tick serialises accrual evaluations; overlapping runs are skipped
	tick sync.Mutex

	statsMu sync.RWMutex
	stats   types.AccrualStats

	scheduler gocron.Scheduler
	cancel    context.CancelFunc
}

// Option configures a Collector.
type Option func(*Collector)

// WithInterval sets the tick period. Each tick credits the interval length.
func WithInterval(d time.Duration) Option {
	return func(c *Collector) { c.interval = d }
}

// WithClock replaces the wall clock used for scheduling and stats.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Collector) { c.clock = clock }
}

// WithLogger sets the collector logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Collector) { c.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(c *Collector) { c.metrics = r }
}

// NewCollector wires the accrual scheduler. It does not start ticking until
// Start is called.
func NewCollector(registry *binding.Registry, directory Directory, store Store, opts ...Option) (*Collector, error) {
	c := &Collector{
		registry:  registry,
		directory: directory,
		store:     store,
		interval:  DefaultInterval,
		clock:     clockwork.NewRealClock(),
		logger:    slog.Default(),
		metrics:   metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.interval <= 0 {
		return nil, fmt.Errorf("accrual interval must be positive, got %s", c.interval)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.metrics == nil {
		c.metrics = metrics.NoopRecorder{}
	}
	c.stats.StartTime = c.clock.Now()

	s, err := gocron.NewScheduler(gocron.WithClock(c.clock))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	c.scheduler = s
	return c, nil
}

// Start schedules the recurring accrual job. The first tick fires one
// interval after Start; missed ticks are never replayed.
func (c *Collector) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	_, err := c.scheduler.NewJob(
		gocron.DurationJob(c.interval),
		gocron.NewTask(func() {
			tickCtx, done := context.WithTimeout(ctx, c.interval)
			defer done()
			if err := c.Tick(tickCtx); err != nil {
				c.logger.Warn("Presence accrual tick failed",
					logfields.Job(jobName),
					logfields.Error(err))
			}
		}),
		gocron.WithName(jobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create accrual job: %w", err)
	}

	c.logger.Info("Starting presence collector", slog.Duration("interval", c.interval))
	c.scheduler.Start()
	return nil
}

// Stop shuts the scheduler down, waiting for a running tick to finish.
func (c *Collector) Stop() error {
	c.logger.Info("Stopping presence collector")
	if c.cancel != nil {
		c.cancel()
	}
	return c.scheduler.Shutdown()
}

// GetStats returns collection statistics.
func (c *Collector) GetStats() types.AccrualStats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return c.stats
}

// Tick performs one accrual evaluation. With no bound channel it does
// nothing. An unresolvable channel or a store failure aborts this tick only;
// a stale binding (changed while the tick ran) is dropped silently.
func (c *Collector) Tick(ctx context.Context) error {
	if !c.tick.TryLock() {
		c.record(metrics.TickOverlap, 0, 0)
		c.logger.Warn("Previous accrual tick still running, skipping", logfields.Job(jobName))
		return nil
	}
	defer c.tick.Unlock()

	start := c.clock.Now()
	snap, ok := c.registry.Current()
	if !ok {
		c.record(metrics.TickUnbound, 0, 0)
		return nil
	}

	observers, err := c.directory.Observers(ctx, snap.Channel)
	if err != nil {
		c.record(metrics.TickUnresolved, 0, 0)
		return fmt.Errorf("resolve channel %s: %w", snap.Channel, err)
	}

	delta := c.interval.Seconds()
	updates := make(map[types.ParticipantID]float64, len(observers))
	for _, p := range observers {
		if p.Automated {
			continue
		}
		updates[p.ID] = delta
	}
	if len(updates) == 0 {
		c.record(metrics.TickEmpty, 0, 0)
		return nil
	}

	err = c.registry.Commit(snap, func() error {
		return c.store.ApplyBatch(ctx, updates)
	})
	switch {
	case errors.Is(err, binding.ErrStale):
		c.record(metrics.TickStale, 0, 0)
		c.logger.Info("Binding changed during accrual tick, discarding",
			logfields.Channel(string(snap.Channel)))
		return nil
	case err != nil:
		c.record(metrics.TickFailed, 0, 0)
		return fmt.Errorf("apply accrual batch: %w", err)
	}

	c.record(metrics.TickCommitted, len(updates), delta*float64(len(updates)))
	c.logger.Debug("Presence accrued",
		logfields.Channel(string(snap.Channel)),
		logfields.Count(len(updates)),
		logfields.Duration(c.clock.Since(start)))
	return nil
}

func (c *Collector) record(result metrics.TickResult, observed int, seconds float64) {
	c.metrics.IncAccrualTick(result)

	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats.TotalTicks++
	c.stats.LastTick = c.clock.Now()
	switch result {
	case metrics.TickCommitted:
		c.stats.LastObserved = observed
		c.stats.AccruedSeconds += seconds
		c.metrics.SetObservedParticipants(observed)
		c.metrics.AddAccruedSeconds(seconds)
	case metrics.TickFailed, metrics.TickUnresolved:
		c.stats.FailedTicks++
	case metrics.TickOverlap, metrics.TickStale:
		c.stats.SkippedTicks++
	case metrics.TickEmpty:
		c.stats.LastObserved = 0
		c.metrics.SetObservedParticipants(0)
	}
}
