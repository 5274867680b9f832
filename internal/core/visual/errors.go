package visual

import "errors"

var (
	// ErrInvalidConfiguration reports out-of-range engine or LOD settings.
	// Configuration is rejected before the engine starts; it is never a
	// runtime failure.
	ErrInvalidConfiguration = errors.New("visual: invalid configuration")

	// ErrInvalidState reports a lifecycle call that is not legal in the
	// engine's current state.
	ErrInvalidState = errors.New("visual: invalid engine state")

	// ErrMissingWorld reports a start attempt without a backing world.
	ErrMissingWorld = errors.New("visual: missing world reference")

	// ErrEntityLimit marks a visual creation skipped because the configured
	// maximum live entity count was reached.
	ErrEntityLimit = errors.New("visual: entity limit exceeded")
)
