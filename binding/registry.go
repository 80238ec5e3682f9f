// Package binding holds the single channel designated for session and
// presence tracking, together with the handle of the running session.
//
// Every exported method runs as one critical section. A session handle may be
// registered only while a channel is bound.
package binding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vainnor/pomobot/types"
)

// ErrStale is returned by Commit when the binding changed since the snapshot
// was taken.
var ErrStale = errors.New("binding changed since snapshot")

// Handle is the registry's view of a running session.
type Handle interface {
	Cancel()
}

// Resetter clears persisted presence totals when a channel is unbound.
type Resetter interface {
	DeleteAll(ctx context.Context) error
}

// Snapshot identifies one binding generation. The epoch advances every time
// the bound channel changes or is cleared.
type Snapshot struct {
	Channel types.ChannelID
	Epoch   uint64
}

// Registry is the process-wide binding state.
type Registry struct {
	mu      sync.Mutex
	channel types.ChannelID
	bound   bool
	epoch   uint64
	active  Handle
	reset   Resetter
}

// NewRegistry returns an empty registry. reset may be nil when no presence
// store is attached.
func NewRegistry(reset Resetter) *Registry {
	return &Registry{reset: reset}
}

// Bind points the registry at channel. Rebinding overwrites the previous
// channel. When the channel changes while a session is running, that session
// is cancelled and released; stopped reports whether that happened.
func (r *Registry) Bind(channel types.ChannelID) (stopped bool, err error) {
	if channel == "" {
		return false, fmt.Errorf("bind empty channel id: %w", types.ErrChannelUnresolvable)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bound && r.channel == channel {
		return false, nil
	}
	if r.active != nil {
		r.active.Cancel()
		r.active = nil
		stopped = true
	}
	r.channel = channel
	r.bound = true
	r.epoch++
	return stopped, nil
}

// Unbind deletes all presence totals, cancels any running session and clears
// the bound channel. If the reset fails the registry is left untouched.
func (r *Registry) Unbind(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.bound {
		return types.ErrNoChannelBound
	}
	if r.reset != nil {
		if err := r.reset.DeleteAll(ctx); err != nil {
			return fmt.Errorf("reset presence totals: %w", err)
		}
	}
	if r.active != nil {
		r.active.Cancel()
		r.active = nil
	}
	r.channel = ""
	r.bound = false
	r.epoch++
	return nil
}

// CurrentChannel returns the bound channel, if any.
func (r *Registry) CurrentChannel() (types.ChannelID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channel, r.bound
}

// Current returns a snapshot of the binding for use with Commit.
func (r *Registry) Current() (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{Channel: r.channel, Epoch: r.epoch}, r.bound
}

// HasActiveSession reports whether a session handle is registered.
func (r *Registry) HasActiveSession() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Active returns the registered session handle, or nil.
func (r *Registry) Active() Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Acquire registers the handle built by newHandle for the bound channel.
// newHandle runs inside the critical section; its error is returned as is.
func (r *Registry) Acquire(newHandle func(channel types.ChannelID) (Handle, error)) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.bound {
		return nil, types.ErrNoChannelBound
	}
	if r.active != nil {
		return nil, types.ErrSessionAlreadyRunning
	}
	h, err := newHandle(r.channel)
	if err != nil {
		return nil, err
	}
	r.active = h
	return h, nil
}

// Release clears h if it is still the registered session. It reports whether
// anything was cleared.
func (r *Registry) Release(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h == nil || r.active != h {
		return false
	}
	r.active = nil
	return true
}

// CancelActive cancels and releases the running session.
func (r *Registry) CancelActive() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.bound {
		return types.ErrNoChannelBound
	}
	if r.active == nil {
		return types.ErrNoSessionRunning
	}
	r.active.Cancel()
	r.active = nil
	return nil
}

// Commit runs fn while holding the registry lock, provided the binding still
// matches snap. Unbind cannot interleave with fn.
func (r *Registry) Commit(snap Snapshot, fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.bound || r.epoch != snap.Epoch {
		return ErrStale
	}
	return fn()
}
