package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/okutsev/TuneRoom/internal/application/constant"
	"github.com/okutsev/TuneRoom/internal/application/metric"
	"github.com/okutsev/TuneRoom/internal/domain/events"
	"github.com/okutsev/TuneRoom/internal/domain/room"
	"github.com/okutsev/TuneRoom/internal/infra/adapters/memory"
	"github.com/okutsev/TuneRoom/internal/infra/adapters/postgres/repository"
)

const hostDisconnectedMessage = "Host disconnected. Room closed."

// SyncUsecase routes synchronization events between room members: room-scoped
// broadcast, point-to-point delivery, and host action validation. Each
// handler runs to completion before the connection's next event is read, so
// per-sender ordering holds end to end.
type SyncUsecase interface {
	HandleCreateRoom(ctx context.Context, connID uuid.UUID, event events.CreateRoomEvent) error
	HandleJoinRoom(ctx context.Context, connID uuid.UUID, event events.JoinRoomEvent) error
	HandleSendSync(ctx context.Context, connID uuid.UUID, event events.SendSyncEvent) error
	HandlePlaybackAction(ctx context.Context, connID uuid.UUID, event events.PlaybackActionEvent) error
	HandleDisconnect(ctx context.Context, connID uuid.UUID) error
}

type syncUsecase struct {
	registry  memory.RoomRegistry
	wsRepo    memory.WebsocketConnectionRepository
	trackRepo repository.TrackRepository
}

func NewSyncUsecase(
	registry memory.RoomRegistry,
	wsRepo memory.WebsocketConnectionRepository,
	trackRepo repository.TrackRepository,
) SyncUsecase {
	return &syncUsecase{
		registry:  registry,
		wsRepo:    wsRepo,
		trackRepo: trackRepo,
	}
}

func (s *syncUsecase) HandleCreateRoom(ctx context.Context, connID uuid.UUID, event events.CreateRoomEvent) error {
	displayName := event.DisplayName
	if displayName == "" {
		displayName = "Host"
	}

	trackCount, err := s.trackRepo.CountTracks(ctx)
	if err != nil {
		// The room can still work without a bounds check.
		slog.Error("count tracks for new room", slog.Any(constant.Error, err))
		trackCount = 0
	}

	rm := s.registry.CreateRoom(connID, displayName, trackCount)

	slog.Info(
		"room created",
		slog.String(constant.RoomCode, rm.Code()),
		slog.Any(constant.ConnID, connID),
	)

	if err := s.writeEvent(connID, events.TypeRoomCreated, events.RoomCreatedEvent{
		Code: rm.Code(),
		Role: room.RoleHost,
	}); err != nil {
		return err
	}

	return s.broadcastRoomUsers(rm)
}

func (s *syncUsecase) HandleJoinRoom(ctx context.Context, connID uuid.UUID, event events.JoinRoomEvent) error {
	if event.Code == "" {
		return s.writeEvent(connID, events.TypeError, events.ErrorEvent{Message: "Room code required"})
	}

	code := room.NormalizeCode(event.Code)

	displayName := event.DisplayName
	if displayName == "" {
		displayName = "Guest"
	}

	rm, err := s.registry.JoinRoom(code, connID, displayName)
	if err != nil {
		if errors.Is(err, memory.ErrRoomNotFound) {
			return s.writeEvent(connID, events.TypeError, events.ErrorEvent{Message: "Room not found"})
		}
		return fmt.Errorf("join room: %w", err)
	}

	slog.Info(
		"listener joined room",
		slog.String(constant.RoomCode, code),
		slog.Any(constant.ConnID, connID),
	)

	if err := s.writeEvent(connID, events.TypeRoomJoined, events.RoomJoinedEvent{
		Code: code,
		Role: room.RoleListener,
	}); err != nil {
		return err
	}

	if err := s.broadcastRoomUsers(rm); err != nil {
		return err
	}

	// Ask the host to catch the joiner up. Repeated even on idempotent
	// re-join, so a reconnecting listener converges again.
	return s.writeEvent(rm.HostConnID(), events.TypeRequestSync, events.RequestSyncEvent{
		RequesterID: connID,
	})
}

func (s *syncUsecase) HandleSendSync(ctx context.Context, connID uuid.UUID, event events.SendSyncEvent) error {
	if event.RequesterID == uuid.Nil {
		return s.writeEvent(connID, events.TypeError, events.ErrorEvent{Message: "Requester id required"})
	}

	// Snapshots may only flow from a host to a member of its own room;
	// anything else would let a connection push arbitrary state anywhere.
	rm, ok := s.registry.FindByHost(connID)
	if !ok || !rm.HasMember(event.RequesterID) {
		slog.Warn(
			"sync snapshot from non-host dropped",
			slog.Any(constant.ConnID, connID),
		)
		return nil
	}

	// Point-to-point: only the named requester receives the snapshot.
	return s.writeEvent(event.RequesterID, events.TypeSyncState, events.SyncStateEvent{
		State: event.State,
	})
}

func (s *syncUsecase) HandlePlaybackAction(ctx context.Context, connID uuid.UUID, event events.PlaybackActionEvent) error {
	rm, ok := s.registry.Get(room.NormalizeCode(event.Code))
	if !ok {
		return nil
	}

	applied, err := rm.ApplyHostAction(connID, event.Action, event.Data)
	if err != nil {
		switch {
		case errors.Is(err, room.ErrNotHost):
			// Dropped without a reply; the sender's UI should not have
			// offered the control in the first place.
			metric.IncrementRejectedPlaybackActions()
			slog.Warn(
				"playback action from non-host dropped",
				slog.String(constant.RoomCode, rm.Code()),
				slog.Any(constant.ConnID, connID),
				slog.String(constant.Action, string(event.Action)),
			)
			return nil

		case errors.Is(err, room.ErrUnknownAction),
			errors.Is(err, room.ErrMalformedAction),
			errors.Is(err, room.ErrTrackOutOfRange):
			return s.writeEvent(connID, events.TypeError, events.ErrorEvent{Message: err.Error()})

		default:
			return fmt.Errorf("apply host action: %w", err)
		}
	}

	metric.IncrementPlaybackActions(string(event.Action))

	// Broadcast to everyone but the host; the host already applied locally.
	for _, member := range rm.Members() {
		if member.ConnID == connID {
			continue
		}

		if err := s.writeEvent(member.ConnID, events.TypeSyncAction, events.SyncActionEvent{
			Action: event.Action,
			Data:   applied,
		}); err != nil {
			return err
		}
	}

	return nil
}

func (s *syncUsecase) HandleDisconnect(ctx context.Context, connID uuid.UUID) error {
	departures := s.registry.RemoveConnection(connID)

	for _, dep := range departures {
		if dep.WasHost {
			slog.Info(
				"host disconnected, room closed",
				slog.String(constant.RoomCode, dep.Room.Code()),
				slog.Any(constant.ConnID, connID),
			)

			for _, member := range dep.Room.Members() {
				if member.ConnID == connID {
					continue
				}

				if err := s.writeEvent(member.ConnID, events.TypeError, events.ErrorEvent{
					Message: hostDisconnectedMessage,
				}); err != nil {
					return err
				}
			}

			continue
		}

		if err := s.broadcastRoomUsers(dep.Room); err != nil {
			return err
		}
	}

	return nil
}

func (s *syncUsecase) broadcastRoomUsers(rm *room.Room) error {
	members := rm.Members()

	msg, err := events.NewMessage(events.TypeRoomUsersUpdate, events.RoomUsersUpdateEvent{Users: members})
	if err != nil {
		return fmt.Errorf("marshal room users update: %w", err)
	}

	for _, member := range members {
		s.wsRepo.Write(member.ConnID, msg)
	}

	return nil
}

func (s *syncUsecase) writeEvent(connID uuid.UUID, eventType string, payload any) error {
	msg, err := events.NewMessage(eventType, payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	s.wsRepo.Write(connID, msg)

	return nil
}
