package room

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNotHost         = errors.New("acting connection is not the room host")
	ErrUnknownAction   = errors.New("unknown playback action")
	ErrMalformedAction = errors.New("playback action is missing required fields")
	ErrTrackOutOfRange = errors.New("track index out of range")
)

// Member is one connection's identity inside a room.
type Member struct {
	ConnID      uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Role        Role      `json:"role"`
}

// Room is a single shared-listening session: ordered membership plus the
// authoritative playback state. The host is the single writer of the state;
// listeners are purely reactive, so correctness reduces to last host write
// wins.
type Room struct {
	code       string
	hostConnID uuid.UUID
	trackCount int

	mu      sync.RWMutex
	members []Member
	state   PlaybackState
}

// New creates a room with the creator as host and default playback state.
// trackCount is the external catalog length used for bounds checks; zero
// disables the check.
func New(code string, hostConnID uuid.UUID, hostName string, trackCount int) *Room {
	return &Room{
		code:       code,
		hostConnID: hostConnID,
		trackCount: trackCount,
		members: []Member{
			{ConnID: hostConnID, DisplayName: hostName, Role: RoleHost},
		},
	}
}

func (r *Room) Code() string {
	return r.code
}

func (r *Room) HostConnID() uuid.UUID {
	return r.hostConnID
}

// AddListener appends a listener member. Re-joining with a connection that is
// already a member is a no-op; the return reports whether membership changed.
func (r *Room) AddListener(connID uuid.UUID, displayName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.members {
		if m.ConnID == connID {
			return false
		}
	}

	r.members = append(r.members, Member{
		ConnID:      connID,
		DisplayName: displayName,
		Role:        RoleListener,
	})

	return true
}

// RemoveMember drops a member by connection id. Removing the host this way is
// not supported; a host departure destroys the room at the registry level.
func (r *Room) RemoveMember(connID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, m := range r.members {
		if m.ConnID == connID {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return true
		}
	}

	return false
}

func (r *Room) HasMember(connID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.members {
		if m.ConnID == connID {
			return true
		}
	}

	return false
}

// Members returns a copy of the membership list in join order.
func (r *Room) Members() []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]Member, len(r.members))
	copy(members, r.members)

	return members
}

// Snapshot returns the current playback state verbatim. This is how a
// late-joining listener is caught up.
func (r *Room) Snapshot() PlaybackState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.state
}

// ApplyHostAction validates and merges a host-issued playback mutation.
// Actions from any other connection never mutate state, regardless of what
// the client claims. On success the applied delta is returned for broadcast.
func (r *Room) ApplyHostAction(connID uuid.UUID, action Action, delta StateDelta) (StateDelta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if connID != r.hostConnID {
		return StateDelta{}, ErrNotHost
	}

	applied := StateDelta{}

	switch action {
	case ActionPlayPause:
		if delta.IsPlaying == nil || delta.CurrentTime == nil {
			return StateDelta{}, ErrMalformedAction
		}
		if *delta.CurrentTime < 0 {
			return StateDelta{}, ErrMalformedAction
		}
		applied.IsPlaying = delta.IsPlaying
		applied.CurrentTime = delta.CurrentTime

	case ActionChangeTrack:
		if delta.TrackIndex == nil {
			return StateDelta{}, ErrMalformedAction
		}
		if *delta.TrackIndex < 0 || (r.trackCount > 0 && *delta.TrackIndex >= r.trackCount) {
			return StateDelta{}, ErrTrackOutOfRange
		}
		applied.TrackIndex = delta.TrackIndex

	case ActionSeek:
		if delta.CurrentTime == nil || *delta.CurrentTime < 0 {
			return StateDelta{}, ErrMalformedAction
		}
		applied.CurrentTime = delta.CurrentTime

	case ActionToggleLoop:
		if delta.IsLooping == nil {
			return StateDelta{}, ErrMalformedAction
		}
		applied.IsLooping = delta.IsLooping

	default:
		return StateDelta{}, ErrUnknownAction
	}

	r.state.Merge(applied)

	return applied, nil
}
