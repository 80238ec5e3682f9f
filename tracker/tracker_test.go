package tracker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vainnor/pomobot/binding"
	"github.com/vainnor/pomobot/collector"
	"github.com/vainnor/pomobot/db"
	"github.com/vainnor/pomobot/session"
	"github.com/vainnor/pomobot/types"
)

type voiceChannel struct {
	observers []types.Participant
}

func (v *voiceChannel) Observers(context.Context, types.ChannelID) ([]types.Participant, error) {
	return v.observers, nil
}

type discardNotifier struct{}

func (discardNotifier) Announce(context.Context, types.ChannelID, string) error { return nil }

type harness struct {
	store     *db.Store
	registry  *binding.Registry
	collector *collector.Collector
	service   *Service
	channel   *voiceChannel
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := db.Open(context.Background(), db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	h := &harness{
		store:    store,
		registry: binding.NewRegistry(store),
		channel: &voiceChannel{observers: []types.Participant{
			{ID: "a", Name: "Ada"},
			{ID: "b", Name: "Bob"},
		}},
	}
	ctrl := session.NewController(h.registry, h.channel, discardNotifier{},
		session.WithClock(clockwork.NewFakeClock()))
	t.Cleanup(func() { _ = ctrl.Shutdown(context.Background()) })

	h.collector, err = collector.NewCollector(h.registry, h.channel, store)
	require.NoError(t, err)
	h.service = New(h.registry, ctrl, store, nil)
	return h
}

func TestService_QueriesRequireBinding(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.service.TimeSpent(ctx, "a")
	require.ErrorIs(t, err, types.ErrNoChannelBound)
	_, err = h.service.Leaderboard(ctx)
	require.ErrorIs(t, err, types.ErrNoChannelBound)
	require.ErrorIs(t, h.service.Unbind(ctx), types.ErrNoChannelBound)
	require.ErrorIs(t, h.service.Stop(), types.ErrNoChannelBound)
	_, err = h.service.Start(25, 5)
	require.ErrorIs(t, err, types.ErrNoChannelBound)
}

func TestService_ThreeTicksThenQuery(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.service.Bind("C")
	require.NoError(t, err)
	for range 3 {
		require.NoError(t, h.collector.Tick(ctx))
	}

	for _, id := range []types.ParticipantID{"a", "b"} {
		spent, err := h.service.TimeSpent(ctx, id)
		require.NoError(t, err)
		assert.True(t, spent.Found)
		assert.InDelta(t, 180, spent.TotalSeconds, 0)
		assert.InDelta(t, 3, spent.Minutes(), 0)
	}

	spent, err := h.service.TimeSpent(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, spent.Found)
	assert.Zero(t, spent.TotalSeconds)
}

func TestService_LeaderboardTopTen(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.service.Bind("C")
	require.NoError(t, err)

	// participant i is present for the first i+1 ticks
	all := make([]types.Participant, 0, 15)
	for i := range 15 {
		all = append(all, types.Participant{ID: types.ParticipantID(fmt.Sprintf("u%02d", i))})
	}
	for tick := range 15 {
		h.channel.observers = all[tick:]
		require.NoError(t, h.collector.Tick(ctx))
	}

	board, err := h.service.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, board, LeaderboardSize)
	assert.Equal(t, types.ParticipantID("u14"), board[0].ParticipantID)
	assert.InDelta(t, 15*60, board[0].TotalSeconds, 0)
	for i := 1; i < len(board); i++ {
		assert.GreaterOrEqual(t, board[i-1].TotalSeconds, board[i].TotalSeconds)
	}
}

func TestService_UnbindResetsEverything(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.service.Bind("C")
	require.NoError(t, err)
	require.NoError(t, h.collector.Tick(ctx))
	s, err := h.service.Start(25, 5)
	require.NoError(t, err)

	st := h.service.Status()
	require.True(t, st.Bound)
	require.NotNil(t, st.Session)
	assert.Equal(t, s.ID.String(), st.Session.ID)

	require.NoError(t, h.service.Unbind(ctx))
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop on unbind")
	}

	st = h.service.Status()
	assert.False(t, st.Bound)
	assert.Nil(t, st.Session)

	_, err = h.service.Bind("C")
	require.NoError(t, err)
	spent, err := h.service.TimeSpent(ctx, "a")
	require.NoError(t, err)
	assert.False(t, spent.Found)
}

func TestService_StartStop(t *testing.T) {
	h := newHarness(t)
	_, err := h.service.Bind("C")
	require.NoError(t, err)

	_, err = h.service.Start(0, 5)
	require.ErrorIs(t, err, types.ErrInvalidDuration)

	s, err := h.service.Start(1, 1)
	require.NoError(t, err)
	_, err = h.service.Start(1, 1)
	require.ErrorIs(t, err, types.ErrSessionAlreadyRunning)

	require.NoError(t, h.service.Stop())
	require.ErrorIs(t, h.service.Stop(), types.ErrNoSessionRunning)
	<-s.Done()

	stopped, err := h.service.Bind("C2")
	require.NoError(t, err)
	assert.False(t, stopped)
}
