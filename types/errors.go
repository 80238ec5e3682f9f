package types

import "errors"

var (
	// ErrNoChannelBound is returned by operations that need a bound channel.
	ErrNoChannelBound = errors.New("no channel is bound")

	// ErrSessionAlreadyRunning is returned when a session is started while another is active.
	ErrSessionAlreadyRunning = errors.New("a session is already running")

	// ErrNoSessionRunning is returned when stopping without an active session.
	ErrNoSessionRunning = errors.New("no session is running")

	// ErrInvalidDuration is returned for work or break lengths that are not positive minutes.
	ErrInvalidDuration = errors.New("durations must be positive whole minutes")

	// ErrChannelUnresolvable is returned when a channel cannot be looked up on the platform.
	ErrChannelUnresolvable = errors.New("channel cannot be resolved")

	// ErrStoreUnavailable wraps every presence store failure.
	ErrStoreUnavailable = errors.New("presence store unavailable")
)
