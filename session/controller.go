// Package session runs pomodoro work/break loops for the bound channel.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/vainnor/pomobot/binding"
	"github.com/vainnor/pomobot/logfields"
	"github.com/vainnor/pomobot/metrics"
	"github.com/vainnor/pomobot/types"
)

const (
	defaultRetryDelay    = 30 * time.Second
	defaultNoticeTimeout = 10 * time.Second
)

// Directory enumerates the participants present in a channel.
type Directory interface {
	Observers(ctx context.Context, channel types.ChannelID) ([]types.Participant, error)
}

// Notifier posts a notice to a channel.
type Notifier interface {
	Announce(ctx context.Context, channel types.ChannelID, text string) error
}

// Controller starts, runs and cancels the single session allowed by the
// registry.
type Controller struct {
	registry      *binding.Registry
	directory     Directory
	notifier      Notifier
	clock         clockwork.Clock
	logger        *slog.Logger
	metrics       metrics.Recorder
	retryDelay    time.Duration
	noticeTimeout time.Duration

	base     context.Context
	stopBase context.CancelFunc
	wg       sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(ctrl *Controller) { ctrl.clock = c }
}

// WithLogger sets the controller logger.
func WithLogger(l *slog.Logger) Option {
	return func(ctrl *Controller) { ctrl.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(ctrl *Controller) { ctrl.metrics = r }
}

// WithRetryDelay sets how long a cycle waits when the channel cannot be resolved.
func WithRetryDelay(d time.Duration) Option {
	return func(ctrl *Controller) { ctrl.retryDelay = d }
}

// WithNoticeTimeout bounds each announcement.
func WithNoticeTimeout(d time.Duration) Option {
	return func(ctrl *Controller) { ctrl.noticeTimeout = d }
}

// NewController wires a controller to the registry and platform collaborators.
func NewController(registry *binding.Registry, directory Directory, notifier Notifier, opts ...Option) *Controller {
	c := &Controller{
		registry:      registry,
		directory:     directory,
		notifier:      notifier,
		clock:         clockwork.NewRealClock(),
		logger:        slog.Default(),
		metrics:       metrics.NoopRecorder{},
		retryDelay:    defaultRetryDelay,
		noticeTimeout: defaultNoticeTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.metrics == nil {
		c.metrics = metrics.NoopRecorder{}
	}
	if c.retryDelay <= 0 {
		c.retryDelay = defaultRetryDelay
	}
	if c.noticeTimeout <= 0 {
		c.noticeTimeout = defaultNoticeTimeout
	}
	c.base, c.stopBase = context.WithCancel(context.Background())
	return c
}

// Start registers a new session for the bound channel and launches its loop.
// It returns once the session is registered; the loop runs on its own
// goroutine.
func (c *Controller) Start(workMinutes, breakMinutes int) (*Session, error) {
	if c.base.Err() != nil {
		return nil, fmt.Errorf("controller is shut down")
	}

	h, err := c.registry.Acquire(func(channel types.ChannelID) (binding.Handle, error) {
		if workMinutes <= 0 || breakMinutes <= 0 {
			return nil, fmt.Errorf("work=%d break=%d: %w", workMinutes, breakMinutes, types.ErrInvalidDuration)
		}
		ctx, cancel := context.WithCancel(c.base)
		now := c.clock.Now()
		return &Session{
			ID:           uuid.New(),
			Channel:      channel,
			WorkMinutes:  workMinutes,
			BreakMinutes: breakMinutes,
			StartedAt:    now,
			ctx:          ctx,
			cancel:       cancel,
			done:         make(chan struct{}),
			phase:        PhaseStarting,
			phaseSince:   now,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s := h.(*Session)
	c.metrics.IncSessionStarted()
	c.metrics.SetSessionActive(true)
	c.logger.Info("Pomodoro session started",
		logfields.SessionID(s.ID.String()),
		logfields.Channel(string(s.Channel)),
		slog.Int("work_minutes", workMinutes),
		slog.Int("break_minutes", breakMinutes))

	c.wg.Add(1)
	go c.run(s)
	return s, nil
}

// Stop signals the running session to end. It does not wait for the loop.
func (c *Controller) Stop() error {
	if err := c.registry.CancelActive(); err != nil {
		return err
	}
	c.logger.Info("Pomodoro session stop requested")
	return nil
}

// Active returns the running session, or nil.
func (c *Controller) Active() *Session {
	s, _ := c.registry.Active().(*Session)
	return s
}

// Shutdown cancels any running loop and waits for it to exit or for ctx.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.stopBase()
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) run(s *Session) {
	defer c.wg.Done()
	defer close(s.done)
	defer c.teardown(s)

	c.announce(s.ctx, s, startedNotice(s))
	for c.live(s) {
		observers, err := c.directory.Observers(s.ctx, s.Channel)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			c.logger.Warn("Skipping session cycle",
				logfields.SessionID(s.ID.String()),
				logfields.Channel(string(s.Channel)),
				logfields.Error(err))
			if !c.wait(s.ctx, c.retryDelay) {
				return
			}
			continue
		}

		c.enter(s, PhaseWork)
		c.announce(s.ctx, s, workNotice(s, observers))
		if !c.wait(s.ctx, minutes(s.WorkMinutes)) {
			return
		}

		c.enter(s, PhaseBreak)
		c.announce(s.ctx, s, breakNotice(s, observers))
		if !c.wait(s.ctx, minutes(s.BreakMinutes)) {
			return
		}
		s.completeCycle()
	}
}

// teardown runs on every exit path of the loop.
func (c *Controller) teardown(s *Session) {
	s.cancel()
	s.setPhase(PhaseStopped, c.clock.Now())

	c.announce(context.WithoutCancel(s.ctx), s, stoppedNotice())
	released := c.registry.Release(s)
	if c.registry.Active() == nil {
		c.metrics.SetSessionActive(false)
	}
	c.logger.Info("Pomodoro session cleaned up",
		logfields.SessionID(s.ID.String()),
		logfields.Channel(string(s.Channel)),
		slog.Bool("released", released))
}

// live reports whether the loop should run another cycle: not cancelled and
// the registry is still bound to the session's channel.
func (c *Controller) live(s *Session) bool {
	if s.ctx.Err() != nil {
		return false
	}
	channel, ok := c.registry.CurrentChannel()
	return ok && channel == s.Channel
}

func (c *Controller) enter(s *Session, p Phase) {
	s.setPhase(p, c.clock.Now())
	c.metrics.IncPhase(string(p))
	c.logger.Debug("Session phase changed",
		logfields.SessionID(s.ID.String()),
		logfields.Phase(string(p)))
}

func (c *Controller) announce(ctx context.Context, s *Session, text string) {
	ctx, cancel := context.WithTimeout(ctx, c.noticeTimeout)
	defer cancel()
	if err := c.notifier.Announce(ctx, s.Channel, text); err != nil {
		c.metrics.IncAnnounceFailure()
		c.logger.Warn("Failed to announce",
			logfields.SessionID(s.ID.String()),
			logfields.Channel(string(s.Channel)),
			logfields.Error(err))
	}
}

// wait blocks for d or until ctx is done. It reports whether d elapsed.
func (c *Controller) wait(ctx context.Context, d time.Duration) bool {
	t := c.clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.Chan():
		return ctx.Err() == nil
	}
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}
