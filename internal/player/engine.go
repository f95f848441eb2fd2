package player

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/okutsev/TuneRoom/internal/domain/events"
	"github.com/okutsev/TuneRoom/internal/domain/models"
	"github.com/okutsev/TuneRoom/internal/domain/room"
)

// Emitter sends client events to the synchronization channel.
type Emitter interface {
	Emit(msg events.Message) error
}

// origin tags every state mutation with where it came from. Mutations of
// network origin are never re-emitted, which is what breaks the broadcast
// feedback loop.
type origin int

const (
	originLocal origin = iota
	originNetwork
)

// Engine owns the local playback state mirror and converges the audio
// transport to the host's authoritative state.
type Engine struct {
	mu        sync.Mutex
	emitter   Emitter
	transport Transport
	catalog   []models.Track

	code       string
	role       room.Role
	users      []room.Member
	state      room.PlaybackState
	controller Controller

	// pendingSeek holds a position that must wait for the new source's
	// metadata before it can be applied.
	pendingSeek *float64

	// loadedIndex is the catalog index the transport currently has as its
	// source, nil until the first Load. The state mirror starts at track
	// zero, so it cannot double as the loaded-source record.
	loadedIndex *int

	autoplayBlocked bool
	lastError       string
}

func NewEngine(emitter Emitter, transport Transport, catalog []models.Track) *Engine {
	e := &Engine{
		emitter:   emitter,
		transport: transport,
		catalog:   catalog,
	}

	// Input stays listener-gated until the server assigns a role.
	e.controller = &listenerController{engine: e}

	return e
}

// CreateRoom asks the server to open a room with this client as host.
func (e *Engine) CreateRoom(displayName string) error {
	return e.emit(events.TypeCreateRoom, events.CreateRoomEvent{DisplayName: displayName})
}

// JoinRoom asks the server to join an existing room as listener. Codes are
// upper-cased client-side by convention.
func (e *Engine) JoinRoom(code, displayName string) error {
	return e.emit(events.TypeJoinRoom, events.JoinRoomEvent{
		Code:        room.NormalizeCode(code),
		DisplayName: displayName,
	})
}

// HandleServerEvent dispatches one inbound synchronization event.
func (e *Engine) HandleServerEvent(msg events.Message) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch msg.Type {
	case events.TypeRoomCreated:
		var event events.RoomCreatedEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return fmt.Errorf("unmarshal room-created: %w", err)
		}

		e.code = event.Code
		e.role = room.RoleHost
		e.controller = &hostController{engine: e}

	case events.TypeRoomJoined:
		var event events.RoomJoinedEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return fmt.Errorf("unmarshal room-joined: %w", err)
		}

		e.code = event.Code
		e.role = room.RoleListener
		e.controller = &listenerController{engine: e}

	case events.TypeRoomUsersUpdate:
		var event events.RoomUsersUpdateEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return fmt.Errorf("unmarshal room-users-update: %w", err)
		}

		e.users = event.Users

	case events.TypeRequestSync:
		var event events.RequestSyncEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return fmt.Errorf("unmarshal request-sync: %w", err)
		}

		// Only the host answers; the server addresses this event to the
		// host alone, so anything else is a stray.
		if e.role != room.RoleHost {
			return nil
		}

		snapshot := e.state
		snapshot.CurrentTime = e.transport.Position()

		return e.emitLocked(events.TypeSendSync, events.SendSyncEvent{
			RequesterID: event.RequesterID,
			State:       snapshot,
		})

	case events.TypeSyncState:
		var event events.SyncStateEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return fmt.Errorf("unmarshal sync-state: %w", err)
		}

		e.adoptStateLocked(event.State)

	case events.TypeSyncAction:
		var event events.SyncActionEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return fmt.Errorf("unmarshal sync-action: %w", err)
		}

		e.applyDeltaLocked(event.Action, event.Data, originNetwork)

	case events.TypeError:
		var event events.ErrorEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return fmt.Errorf("unmarshal error event: %w", err)
		}

		e.lastError = event.Message

	default:
		return fmt.Errorf("unknown server event type %q", msg.Type)
	}

	return nil
}

// adoptStateLocked applies a full catch-up snapshot: all four fields at once.
func (e *Engine) adoptStateLocked(s room.PlaybackState) {
	trackChanged := e.loadedIndex == nil || *e.loadedIndex != s.TrackIndex

	e.state = s

	if trackChanged {
		e.loadTrackLocked(s.TrackIndex)

		// Seeking before the new source's metadata is loaded is ignored by
		// audio transports; park the position until then.
		seekTo := s.CurrentTime
		e.pendingSeek = &seekTo
	} else {
		e.transport.Seek(s.CurrentTime)
	}

	if s.IsPlaying {
		e.playLocked()
	} else {
		e.transport.Pause()
	}
}

// applyDeltaLocked applies an incremental update: only the fields named by
// the action kind. Local host mutations are additionally emitted to the
// channel; network mutations never are.
func (e *Engine) applyDeltaLocked(action room.Action, delta room.StateDelta, org origin) {
	switch action {
	case room.ActionPlayPause:
		if delta.IsPlaying == nil || delta.CurrentTime == nil {
			return
		}

		e.state.IsPlaying = *delta.IsPlaying
		e.state.CurrentTime = *delta.CurrentTime

		if org == originNetwork {
			// Adopt the host-reported clock; locally the delta was computed
			// from our own transport position.
			e.transport.Seek(*delta.CurrentTime)
		}

		if e.state.IsPlaying {
			e.playLocked()
		} else {
			e.transport.Pause()
		}

	case room.ActionChangeTrack:
		if delta.TrackIndex == nil {
			return
		}

		e.state.TrackIndex = *delta.TrackIndex
		// A host pushing a new track implies intent to play it.
		e.state.IsPlaying = true
		e.state.CurrentTime = 0
		e.pendingSeek = nil

		e.loadTrackLocked(*delta.TrackIndex)
		e.playLocked()

	case room.ActionSeek:
		if delta.CurrentTime == nil {
			return
		}

		e.state.CurrentTime = *delta.CurrentTime
		e.transport.Seek(*delta.CurrentTime)

	case room.ActionToggleLoop:
		if delta.IsLooping == nil {
			return
		}

		e.state.IsLooping = *delta.IsLooping
	}

	if org == originLocal && e.role == room.RoleHost {
		if err := e.emitLocked(events.TypePlaybackAction, events.PlaybackActionEvent{
			Code:   e.code,
			Action: action,
			Data:   delta,
		}); err != nil {
			e.lastError = err.Error()
		}
	}
}

func (e *Engine) loadTrackLocked(index int) {
	if len(e.catalog) == 0 {
		return
	}

	// Out-of-range indices from the wire are clamped rather than trusted.
	if index < 0 {
		index = 0
	}
	if index >= len(e.catalog) {
		index = len(e.catalog) - 1
	}

	if err := e.transport.Load(e.catalog[index].AudioURL); err != nil {
		e.lastError = fmt.Sprintf("failed to load %q: %v", e.catalog[index].Title, err)
		e.state.IsPlaying = false
		e.loadedIndex = nil
		return
	}

	e.loadedIndex = &index
}

func (e *Engine) playLocked() {
	// The transport has no source until the first Load; playing the initial
	// track must load it first.
	if e.loadedIndex == nil {
		e.loadTrackLocked(e.state.TrackIndex)
		if e.loadedIndex == nil {
			return
		}
	}

	err := e.transport.Play()
	if err == nil {
		e.autoplayBlocked = false
		return
	}

	if err == ErrAutoplayBlocked {
		e.autoplayBlocked = true
		return
	}

	// Anything else is a media failure: playback halts locally, room
	// membership and host status stay untouched.
	e.lastError = err.Error()
	e.state.IsPlaying = false
}

// OnMetadataLoaded must be wired to the transport's metadata-loaded callback.
func (e *Engine) OnMetadataLoaded() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pendingSeek != nil {
		e.transport.Seek(*e.pendingSeek)
		e.pendingSeek = nil
	}

	if e.state.IsPlaying {
		e.playLocked()
	}
}

// OnTrackEnded must be wired to the transport's track-ended callback.
// Listeners wait for the host to advance.
func (e *Engine) OnTrackEnded() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.IsLooping {
		e.state.CurrentTime = 0
		e.transport.Seek(0)
		e.playLocked()
		return
	}

	if e.role == room.RoleHost {
		e.advanceTrackLocked(1)
	}
}

func (e *Engine) advanceTrackLocked(step int) {
	if len(e.catalog) == 0 {
		return
	}

	next := (e.state.TrackIndex + step + len(e.catalog)) % len(e.catalog)

	e.applyDeltaLocked(room.ActionChangeTrack, room.StateDelta{TrackIndex: &next}, originLocal)
}

func (e *Engine) emit(eventType string, payload any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.emitLocked(eventType, payload)
}

func (e *Engine) emitLocked(eventType string, payload any) error {
	msg, err := events.NewMessage(eventType, payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	return e.emitter.Emit(msg)
}

// Controller returns the role-selected input gate.
func (e *Engine) Controller() Controller {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.controller
}

func (e *Engine) Role() room.Role {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.role
}

func (e *Engine) Code() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.code
}

func (e *Engine) Users() []room.Member {
	e.mu.Lock()
	defer e.mu.Unlock()

	users := make([]room.Member, len(e.users))
	copy(users, e.users)

	return users
}

func (e *Engine) State() room.PlaybackState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

func (e *Engine) AutoplayBlocked() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.autoplayBlocked
}

func (e *Engine) LastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.lastError
}
