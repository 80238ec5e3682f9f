// Package tracker is the operator-facing surface over the binding registry,
// the session controller and the presence store.
//
// Callers of the mutating operations are expected to have performed their own
// capability check.
package tracker

import (
	"context"
	"log/slog"

	"github.com/vainnor/pomobot/binding"
	"github.com/vainnor/pomobot/logfields"
	"github.com/vainnor/pomobot/session"
	"github.com/vainnor/pomobot/types"
)

// LeaderboardSize is the number of rows returned by Leaderboard.
const LeaderboardSize = 10

// Store is the read side of the presence store.
type Store interface {
	GetTotal(ctx context.Context, participant types.ParticipantID) (float64, bool, error)
	Top(ctx context.Context, limit int) ([]types.PresenceTotal, error)
}

// Status describes the binding and the running session.
type Status struct {
	Bound   bool            `json:"bound"`
	Channel types.ChannelID `json:"channel_id,omitempty"`
	Session *session.Info   `json:"session,omitempty"`
}

// TimeSpent is the result of a presence query.
type TimeSpent struct {
	ParticipantID types.ParticipantID `json:"participant_id"`
	TotalSeconds  float64             `json:"total_seconds"`
	Found         bool                `json:"found"`
}

// Minutes returns the total expressed in minutes.
func (t TimeSpent) Minutes() float64 {
	return t.TotalSeconds / 60
}

// Service implements bind, unbind, start, stop and the presence queries.
type Service struct {
	registry *binding.Registry
	sessions *session.Controller
	store    Store
	logger   *slog.Logger
}

// New assembles a Service. logger may be nil.
func New(registry *binding.Registry, sessions *session.Controller, store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{registry: registry, sessions: sessions, store: store, logger: logger}
}

// Bind designates channel for tracking. A session running for a different
// channel is stopped; stopped reports whether that happened.
func (s *Service) Bind(channel types.ChannelID) (stopped bool, err error) {
	stopped, err = s.registry.Bind(channel)
	if err != nil {
		return false, err
	}
	s.logger.Info("Bot bound to channel",
		logfields.Channel(string(channel)),
		slog.Bool("stopped_session", stopped))
	return stopped, nil
}

// Unbind releases the channel, stops any session and resets all totals.
func (s *Service) Unbind(ctx context.Context) error {
	if err := s.registry.Unbind(ctx); err != nil {
		return err
	}
	s.logger.Info("Bot unbound and presence totals reset")
	return nil
}

// Start begins a session on the bound channel.
func (s *Service) Start(workMinutes, breakMinutes int) (*session.Session, error) {
	return s.sessions.Start(workMinutes, breakMinutes)
}

// Stop cancels the running session.
func (s *Service) Stop() error {
	return s.sessions.Stop()
}

// Status reports the binding and the running session.
func (s *Service) Status() Status {
	channel, bound := s.registry.CurrentChannel()
	st := Status{Bound: bound, Channel: channel}
	if active := s.sessions.Active(); active != nil {
		info := active.Info()
		st.Session = &info
	}
	return st
}

// TimeSpent returns the accumulated presence of participant.
func (s *Service) TimeSpent(ctx context.Context, participant types.ParticipantID) (TimeSpent, error) {
	if _, ok := s.registry.CurrentChannel(); !ok {
		return TimeSpent{}, types.ErrNoChannelBound
	}
	seconds, found, err := s.store.GetTotal(ctx, participant)
	if err != nil {
		return TimeSpent{}, err
	}
	return TimeSpent{ParticipantID: participant, TotalSeconds: seconds, Found: found}, nil
}

// Leaderboard returns the top participants by presence, highest first.
func (s *Service) Leaderboard(ctx context.Context) ([]types.PresenceTotal, error) {
	if _, ok := s.registry.CurrentChannel(); !ok {
		return nil, types.ErrNoChannelBound
	}
	return s.store.Top(ctx, LeaderboardSize)
}
