package player

import "github.com/okutsev/TuneRoom/internal/domain/room"

// Controller gates local user input by role. The variant is selected once,
// when the server assigns the role, instead of checking the role on every
// input path.
type Controller interface {
	PlayPause()
	NextTrack()
	PrevTrack()
	SelectTrack(index int)
	Seek(seconds float64)
	ToggleLoop()

	// UnlockPlayback is the user gesture that clears an autoplay block. It
	// replays the current state and never mutates room state.
	UnlockPlayback()
}

// hostController applies input locally and emits it to the room.
type hostController struct {
	engine *Engine
}

func (c *hostController) PlayPause() {
	e := c.engine

	e.mu.Lock()
	defer e.mu.Unlock()

	newPlaying := !e.state.IsPlaying
	position := e.transport.Position()

	e.applyDeltaLocked(room.ActionPlayPause, room.StateDelta{
		IsPlaying:   &newPlaying,
		CurrentTime: &position,
	}, originLocal)
}

func (c *hostController) NextTrack() {
	e := c.engine

	e.mu.Lock()
	defer e.mu.Unlock()

	e.advanceTrackLocked(1)
}

func (c *hostController) PrevTrack() {
	e := c.engine

	e.mu.Lock()
	defer e.mu.Unlock()

	e.advanceTrackLocked(-1)
}

func (c *hostController) SelectTrack(index int) {
	e := c.engine

	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index >= len(e.catalog) {
		return
	}

	e.applyDeltaLocked(room.ActionChangeTrack, room.StateDelta{TrackIndex: &index}, originLocal)
}

func (c *hostController) Seek(seconds float64) {
	e := c.engine

	e.mu.Lock()
	defer e.mu.Unlock()

	if seconds < 0 {
		seconds = 0
	}

	e.applyDeltaLocked(room.ActionSeek, room.StateDelta{CurrentTime: &seconds}, originLocal)
}

func (c *hostController) ToggleLoop() {
	e := c.engine

	e.mu.Lock()
	defer e.mu.Unlock()

	newLooping := !e.state.IsLooping

	e.applyDeltaLocked(room.ActionToggleLoop, room.StateDelta{IsLooping: &newLooping}, originLocal)
}

func (c *hostController) UnlockPlayback() {
	c.engine.unlockPlayback()
}

// listenerController rejects all playback input; listeners are purely
// reactive. The unlock gesture is the one exception.
type listenerController struct {
	engine *Engine
}

func (c *listenerController) PlayPause()      {}
func (c *listenerController) NextTrack()      {}
func (c *listenerController) PrevTrack()      {}
func (c *listenerController) SelectTrack(int) {}
func (c *listenerController) Seek(float64)    {}
func (c *listenerController) ToggleLoop()     {}

func (c *listenerController) UnlockPlayback() {
	c.engine.unlockPlayback()
}

func (e *Engine) unlockPlayback() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.transport.Play(); err != nil {
		return
	}

	e.autoplayBlocked = false

	// The gesture only grants permission; replay whatever the room state
	// says, it does not start playback on its own.
	if !e.state.IsPlaying {
		e.transport.Pause()
	}
}
