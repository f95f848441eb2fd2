package events

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/okutsev/TuneRoom/internal/domain/room"
)

// Inbound event types (client -> server).
const (
	TypeCreateRoom     = "create-room"
	TypeJoinRoom       = "join-room"
	TypeSendSync       = "send-sync"
	TypePlaybackAction = "playback-action"
)

// Outbound event types (server -> client).
const (
	TypeRoomCreated     = "room-created"
	TypeRoomJoined      = "room-joined"
	TypeRoomUsersUpdate = "room-users-update"
	TypeRequestSync     = "request-sync"
	TypeSyncState       = "sync-state"
	TypeSyncAction      = "sync-action"
	TypeError           = "error"
)

// Message is the generic envelope carried over the websocket in both
// directions.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewMessage wraps a payload into an envelope.
func NewMessage(eventType string, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}

	return Message{Type: eventType, Data: data}, nil
}

// CreateRoomEvent - request to open a new room with the sender as host.
type CreateRoomEvent struct {
	DisplayName string `json:"display_name"`
}

// JoinRoomEvent - request to join an existing room as listener.
type JoinRoomEvent struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
}

// SendSyncEvent - the host's answer to a request-sync, addressed to exactly
// one connection.
type SendSyncEvent struct {
	RequesterID uuid.UUID          `json:"requester_id"`
	State       room.PlaybackState `json:"state"`
}

// PlaybackActionEvent - host-issued playback mutation.
type PlaybackActionEvent struct {
	Code   string          `json:"code"`
	Action room.Action     `json:"action"`
	Data   room.StateDelta `json:"data"`
}

// RoomCreatedEvent - reply to create-room.
type RoomCreatedEvent struct {
	Code string    `json:"code"`
	Role room.Role `json:"role"`
}

// RoomJoinedEvent - reply to join-room.
type RoomJoinedEvent struct {
	Code string    `json:"code"`
	Role room.Role `json:"role"`
}

// RoomUsersUpdateEvent - full membership list in join order.
type RoomUsersUpdateEvent struct {
	Users []room.Member `json:"users"`
}

// RequestSyncEvent - delivered to the host only, asking it to send its
// current state to the named requester.
type RequestSyncEvent struct {
	RequesterID uuid.UUID `json:"requester_id"`
}

// SyncStateEvent - full catch-up snapshot for a late joiner.
type SyncStateEvent struct {
	State room.PlaybackState `json:"state"`
}

// SyncActionEvent - incremental playback update broadcast to listeners.
type SyncActionEvent struct {
	Action room.Action     `json:"action"`
	Data   room.StateDelta `json:"data"`
}

// ErrorEvent - user-visible error, unicast or room-wide depending on scope.
type ErrorEvent struct {
	Message string `json:"message"`
}
