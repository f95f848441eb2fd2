package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/okutsev/TuneRoom/internal/application/config"
	"github.com/okutsev/TuneRoom/internal/domain/events"
	"github.com/okutsev/TuneRoom/internal/domain/models"
	"github.com/okutsev/TuneRoom/internal/domain/room"
	"github.com/okutsev/TuneRoom/internal/infra/adapters/memory"
	"github.com/okutsev/TuneRoom/internal/usecase"
)

type staticTrackRepo struct {
	count int
}

func (s *staticTrackRepo) ListTracks(context.Context) ([]models.Track, error) { return nil, nil }
func (s *staticTrackRepo) CountTracks(context.Context) (int, error)           { return s.count, nil }
func (s *staticTrackRepo) CreateTrack(context.Context, *models.Track) error   { return nil }

func newWSTestServer(t *testing.T) string {
	t.Helper()

	cfg := &config.Config{Debug: true}
	wsRepo := memory.NewWSConnectionRepository()
	registry := memory.NewRoomRegistry()
	syncUsecase := usecase.NewSyncUsecase(registry, wsRepo, &staticTrackRepo{count: 3})

	handler := NewWebSocketHandler(cfg, syncUsecase, wsRepo)

	e := echo.New()
	e.GET("/ws", handler.Handle)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dialWS(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, eventType string, payload any) {
	t.Helper()

	msg, err := events.NewMessage(eventType, payload)
	if err != nil {
		t.Fatalf("build %s: %v", eventType, err)
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", eventType, err)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) events.Message {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg events.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}

	return msg
}

func decodeEvent[T any](t *testing.T, msg events.Message) T {
	t.Helper()

	var payload T
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		t.Fatalf("decode %s: %v", msg.Type, err)
	}

	return payload
}

func TestWebSocketHandler(t *testing.T) {
	wsURL := newWSTestServer(t)

	host := dialWS(t, wsURL)

	sendEvent(t, host, events.TypeCreateRoom, events.CreateRoomEvent{DisplayName: "alice"})

	created := readEvent(t, host)
	if created.Type != events.TypeRoomCreated {
		t.Fatalf("expected room-created, got %s", created.Type)
	}
	code := decodeEvent[events.RoomCreatedEvent](t, created).Code
	if len(code) != room.CodeLength {
		t.Fatalf("unexpected code %q", code)
	}

	if msg := readEvent(t, host); msg.Type != events.TypeRoomUsersUpdate {
		t.Fatalf("expected room-users-update, got %s", msg.Type)
	}

	listener := dialWS(t, wsURL)

	sendEvent(t, listener, events.TypeJoinRoom, events.JoinRoomEvent{Code: code, DisplayName: "bob"})

	if msg := readEvent(t, listener); msg.Type != events.TypeRoomJoined {
		t.Fatalf("expected room-joined, got %s", msg.Type)
	}

	update := readEvent(t, listener)
	if update.Type != events.TypeRoomUsersUpdate {
		t.Fatalf("expected room-users-update, got %s", update.Type)
	}
	if users := decodeEvent[events.RoomUsersUpdateEvent](t, update).Users; len(users) != 2 {
		t.Fatalf("expected 2 users, got %+v", users)
	}

	if msg := readEvent(t, host); msg.Type != events.TypeRoomUsersUpdate {
		t.Fatalf("expected room-users-update, got %s", msg.Type)
	}

	request := readEvent(t, host)
	if request.Type != events.TypeRequestSync {
		t.Fatalf("expected request-sync, got %s", request.Type)
	}
	requesterID := decodeEvent[events.RequestSyncEvent](t, request).RequesterID
	if requesterID == uuid.Nil {
		t.Fatal("request-sync carries no requester id")
	}

	// The host's catch-up snapshot lands on the joiner only.
	sendEvent(t, host, events.TypeSendSync, events.SendSyncEvent{
		RequesterID: requesterID,
		State:       room.PlaybackState{TrackIndex: 1, CurrentTime: 12.5, IsPlaying: true},
	})

	snapshot := readEvent(t, listener)
	if snapshot.Type != events.TypeSyncState {
		t.Fatalf("expected sync-state, got %s", snapshot.Type)
	}
	if state := decodeEvent[events.SyncStateEvent](t, snapshot).State; state.TrackIndex != 1 || !state.IsPlaying {
		t.Fatalf("unexpected state: %+v", state)
	}
}
