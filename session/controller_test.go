package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vainnor/pomobot/binding"
	"github.com/vainnor/pomobot/types"
)

type fakeDirectory struct {
	mu        sync.Mutex
	failFirst int
	calls     int
	observers []types.Participant
}

func (d *fakeDirectory) Observers(context.Context, types.ChannelID) ([]types.Participant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.calls <= d.failFirst {
		return nil, types.ErrChannelUnresolvable
	}
	return d.observers, nil
}

type recordingNotifier struct {
	msgs chan string
	err  error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{msgs: make(chan string, 64)}
}

func (n *recordingNotifier) Announce(_ context.Context, _ types.ChannelID, text string) error {
	n.msgs <- text
	return n.err
}

func (n *recordingNotifier) next(t *testing.T) string {
	t.Helper()
	select {
	case m := <-n.msgs:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notice")
		return ""
	}
}

func (n *recordingNotifier) none(t *testing.T) {
	t.Helper()
	select {
	case m := <-n.msgs:
		t.Fatalf("unexpected notice: %q", m)
	case <-time.After(50 * time.Millisecond):
	}
}

type fixture struct {
	clock    *clockwork.FakeClock
	registry *binding.Registry
	dir      *fakeDirectory
	notifier *recordingNotifier
	ctrl     *Controller
}

func newFixture(t *testing.T, bind bool, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		clock:    clockwork.NewFakeClock(),
		registry: binding.NewRegistry(nil),
		dir: &fakeDirectory{observers: []types.Participant{
			{ID: "a", Name: "Ada"},
			{ID: "b", Name: "Bob"},
		}},
		notifier: newRecordingNotifier(),
	}
	if bind {
		_, err := f.registry.Bind("c1")
		require.NoError(t, err)
	}
	opts = append([]Option{WithClock(f.clock)}, opts...)
	f.ctrl = NewController(f.registry, f.dir, f.notifier, opts...)
	t.Cleanup(func() { _ = f.ctrl.Shutdown(context.Background()) })
	return f
}

func (f *fixture) blockUntilTimer(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session loop did not exit")
	}
}

func TestController_StartPreconditions(t *testing.T) {
	t.Run("no channel bound", func(t *testing.T) {
		f := newFixture(t, false)
		_, err := f.ctrl.Start(25, 5)
		require.ErrorIs(t, err, types.ErrNoChannelBound)
		require.ErrorIs(t, f.ctrl.Stop(), types.ErrNoChannelBound)
	})

	t.Run("invalid durations", func(t *testing.T) {
		f := newFixture(t, true)
		for _, d := range [][2]int{{0, 5}, {5, 0}, {-1, 5}, {5, -3}} {
			_, err := f.ctrl.Start(d[0], d[1])
			require.ErrorIs(t, err, types.ErrInvalidDuration)
		}
		assert.False(t, f.registry.HasActiveSession())
	})

	t.Run("already running", func(t *testing.T) {
		f := newFixture(t, true)
		_, err := f.ctrl.Start(25, 5)
		require.NoError(t, err)

		_, err = f.ctrl.Start(10, 2)
		require.ErrorIs(t, err, types.ErrSessionAlreadyRunning)
		_, err = f.ctrl.Start(0, 0)
		require.ErrorIs(t, err, types.ErrSessionAlreadyRunning)
	})

	t.Run("stop without session", func(t *testing.T) {
		f := newFixture(t, true)
		require.ErrorIs(t, f.ctrl.Stop(), types.ErrNoSessionRunning)
	})
}

func TestController_AlternatesWorkAndBreak(t *testing.T) {
	f := newFixture(t, true)

	s, err := f.ctrl.Start(25, 5)
	require.NoError(t, err)
	assert.True(t, f.registry.HasActiveSession())
	assert.Same(t, s, f.ctrl.Active())

	assert.Equal(t, "Pomodoro session started for 25 minutes of work and 5 minutes of break time.", f.notifier.next(t))
	assert.Equal(t, "<@a> <@b> Pomodoro session started for 25 minute(s)!", f.notifier.next(t))

	f.blockUntilTimer(t)
	assert.Equal(t, PhaseWork, s.Phase())

	f.clock.Advance(25*time.Minute - time.Second)
	f.notifier.none(t)
	f.clock.Advance(time.Second)
	assert.Equal(t, "<@a> <@b> Pomodoro session ended! Break time for 5 minute(s)!", f.notifier.next(t))

	f.blockUntilTimer(t)
	assert.Equal(t, PhaseBreak, s.Phase())

	f.clock.Advance(5*time.Minute - time.Second)
	f.notifier.none(t)
	f.clock.Advance(time.Second)
	assert.Equal(t, "<@a> <@b> Pomodoro session started for 25 minute(s)!", f.notifier.next(t))
	assert.Equal(t, 1, s.Info().Cycles)

	require.NoError(t, f.ctrl.Stop())
	assert.False(t, f.registry.HasActiveSession())
	waitDone(t, s)
	assert.Equal(t, "Pomodoro session was stopped.", f.notifier.next(t))
	assert.Equal(t, PhaseStopped, s.Phase())
	assert.True(t, s.Cancelled())
}

func TestController_StopDuringBreakThenRestart(t *testing.T) {
	f := newFixture(t, true)

	s, err := f.ctrl.Start(1, 1)
	require.NoError(t, err)
	f.notifier.next(t)
	f.notifier.next(t)
	f.blockUntilTimer(t)
	f.clock.Advance(time.Minute)
	f.notifier.next(t)
	f.blockUntilTimer(t)
	require.Equal(t, PhaseBreak, s.Phase())

	require.NoError(t, f.ctrl.Stop())
	waitDone(t, s)
	assert.False(t, f.registry.HasActiveSession())

	next, err := f.ctrl.Start(1, 1)
	require.NoError(t, err)
	assert.NotEqual(t, s.ID, next.ID)
}

func TestController_UnbindCancelsSession(t *testing.T) {
	f := newFixture(t, true)

	s, err := f.ctrl.Start(25, 5)
	require.NoError(t, err)
	f.blockUntilTimer(t)

	require.NoError(t, f.registry.Unbind(context.Background()))
	waitDone(t, s)

	assert.False(t, f.registry.HasActiveSession())
	_, ok := f.registry.CurrentChannel()
	assert.False(t, ok)
}

func TestController_RebindCancelsSession(t *testing.T) {
	f := newFixture(t, true)

	s, err := f.ctrl.Start(25, 5)
	require.NoError(t, err)

	stopped, err := f.registry.Bind("c2")
	require.NoError(t, err)
	require.True(t, stopped)
	waitDone(t, s)
	assert.False(t, f.registry.HasActiveSession())
}

func TestController_NotifierFailuresDoNotStopLoop(t *testing.T) {
	f := newFixture(t, true)
	f.notifier.err = errors.New("discord down")

	s, err := f.ctrl.Start(1, 1)
	require.NoError(t, err)
	f.notifier.next(t)
	f.notifier.next(t)
	f.blockUntilTimer(t)
	f.clock.Advance(time.Minute)

	assert.Contains(t, f.notifier.next(t), "Break time")
	assert.False(t, s.Cancelled())
}

func TestController_UnresolvableChannelSkipsCycle(t *testing.T) {
	f := newFixture(t, true, WithRetryDelay(10*time.Second))
	f.dir.failFirst = 1

	s, err := f.ctrl.Start(1, 1)
	require.NoError(t, err)
	f.notifier.next(t)

	f.blockUntilTimer(t)
	assert.Equal(t, PhaseStarting, s.Phase())
	f.notifier.none(t)

	f.clock.Advance(10 * time.Second)
	assert.Contains(t, f.notifier.next(t), "started for 1 minute(s)")
	f.blockUntilTimer(t)
	assert.Equal(t, PhaseWork, s.Phase())
}

func TestController_Shutdown(t *testing.T) {
	f := newFixture(t, true)

	s, err := f.ctrl.Start(25, 5)
	require.NoError(t, err)
	f.blockUntilTimer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.ctrl.Shutdown(ctx))

	waitDone(t, s)
	assert.False(t, f.registry.HasActiveSession())

	_, err = f.ctrl.Start(25, 5)
	require.Error(t, err)
}
