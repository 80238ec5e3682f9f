package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vainnor/pomobot/types"
)

// Phase is the current step of a session.
type Phase string

const (
	PhaseStarting Phase = "starting"
	PhaseWork     Phase = "work"
	PhaseBreak    Phase = "break"
	PhaseStopped  Phase = "stopped"
)

// Session is one running work/break alternation. It is created by
// Controller.Start and lives until its loop exits.
type Session struct {
	ID           uuid.UUID
	Channel      types.ChannelID
	WorkMinutes  int
	BreakMinutes int
	StartedAt    time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu         sync.Mutex
	phase      Phase
	phaseSince time.Time
	cycles     int
}

// Info is a point-in-time view of a session.
type Info struct {
	ID           string          `json:"id"`
	Channel      types.ChannelID `json:"channel_id"`
	WorkMinutes  int             `json:"work_minutes"`
	BreakMinutes int             `json:"break_minutes"`
	Phase        Phase           `json:"phase"`
	PhaseSince   time.Time       `json:"phase_since"`
	Cycles       int             `json:"completed_cycles"`
	StartedAt    time.Time       `json:"started_at"`
}

// Cancel signals the loop to stop. It is safe to call more than once.
func (s *Session) Cancel() {
	s.cancel()
}

// Cancelled reports whether cancellation was signalled.
func (s *Session) Cancelled() bool {
	return s.ctx.Err() != nil
}

// Done is closed once the loop has exited and released the session.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Info returns a snapshot of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:           s.ID.String(),
		Channel:      s.Channel,
		WorkMinutes:  s.WorkMinutes,
		BreakMinutes: s.BreakMinutes,
		Phase:        s.phase,
		PhaseSince:   s.phaseSince,
		Cycles:       s.cycles,
		StartedAt:    s.StartedAt,
	}
}

func (s *Session) setPhase(p Phase, at time.Time) {
	s.mu.Lock()
	s.phase = p
	s.phaseSince = at
	s.mu.Unlock()
}

func (s *Session) completeCycle() {
	s.mu.Lock()
	s.cycles++
	s.mu.Unlock()
}
