package player

import "errors"

// ErrAutoplayBlocked is returned by Transport.Play when the environment
// refuses to start audio without a user gesture. It is a recoverable
// condition, not a playback failure.
var ErrAutoplayBlocked = errors.New("playback blocked until a user gesture")

// Transport abstracts the local audio element the reconciliation engine
// drives. Implementations report readiness and end-of-track through the
// callbacks registered with SetCallbacks; seeking before the metadata-loaded
// callback fired for the current source is unsafe and may be ignored.
type Transport interface {
	// Load switches the transport to a new media source.
	Load(url string) error

	Play() error
	Pause()

	Seek(seconds float64) error

	// Position reports the current play position in seconds.
	Position() float64

	// SetCallbacks registers the metadata-loaded and track-ended hooks.
	// Either may be nil.
	SetCallbacks(onReady, onEnded func())
}
