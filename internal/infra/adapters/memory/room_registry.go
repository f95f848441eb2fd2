package memory

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/okutsev/TuneRoom/internal/application/metric"
	"github.com/okutsev/TuneRoom/internal/domain/room"
)

var ErrRoomNotFound = errors.New("room not found")

// Departure describes what happened to one room when a connection dropped.
// WasHost means the room was destroyed; otherwise only membership changed.
type Departure struct {
	Room    *room.Room
	WasHost bool
}

// RoomRegistry is the process-wide table of live rooms, keyed by room code.
// State lives for the process lifetime only; a restart drops every room.
type RoomRegistry interface {
	// CreateRoom allocates a room with a fresh code and the creator as host.
	CreateRoom(connID uuid.UUID, displayName string, trackCount int) *room.Room

	// JoinRoom appends a listener. Joining twice with the same connection is
	// idempotent for membership.
	JoinRoom(code string, connID uuid.UUID, displayName string) (*room.Room, error)

	Get(code string) (*room.Room, bool)

	// FindByHost returns the room hosted by the connection, if any.
	FindByHost(connID uuid.UUID) (*room.Room, bool)

	// RemoveConnection drops the connection from every room containing it.
	// Host departure destroys the room. Safe to call for connections that are
	// in no room.
	RemoveConnection(connID uuid.UUID) []Departure
}

type roomRegistry struct {
	rooms map[string]*room.Room
	mu    sync.RWMutex
}

func NewRoomRegistry() RoomRegistry {
	return &roomRegistry{
		rooms: make(map[string]*room.Room),
	}
}

func (r *roomRegistry) CreateRoom(connID uuid.UUID, displayName string, trackCount int) *room.Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Codes are random; regenerate on the rare collision with a live room.
	code := room.GenerateCode()
	for _, taken := r.rooms[code]; taken; _, taken = r.rooms[code] {
		code = room.GenerateCode()
	}

	rm := room.New(code, connID, displayName, trackCount)
	r.rooms[code] = rm

	metric.SetActiveRooms(len(r.rooms))

	return rm
}

func (r *roomRegistry) JoinRoom(code string, connID uuid.UUID, displayName string) (*room.Room, error) {
	r.mu.RLock()
	rm, ok := r.rooms[code]
	r.mu.RUnlock()

	if !ok {
		return nil, ErrRoomNotFound
	}

	rm.AddListener(connID, displayName)

	return rm, nil
}

func (r *roomRegistry) Get(code string) (*room.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[code]

	return rm, ok
}

func (r *roomRegistry) FindByHost(connID uuid.UUID) (*room.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rm := range r.rooms {
		if rm.HostConnID() == connID {
			return rm, true
		}
	}

	return nil, false
}

func (r *roomRegistry) RemoveConnection(connID uuid.UUID) []Departure {
	r.mu.Lock()
	defer r.mu.Unlock()

	var departures []Departure

	for code, rm := range r.rooms {
		if rm.HostConnID() == connID {
			delete(r.rooms, code)
			departures = append(departures, Departure{Room: rm, WasHost: true})
			continue
		}

		if rm.RemoveMember(connID) {
			departures = append(departures, Departure{Room: rm})
		}
	}

	metric.SetActiveRooms(len(r.rooms))

	return departures
}
