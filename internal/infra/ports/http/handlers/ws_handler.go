package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/okutsev/TuneRoom/internal/application/config"
	"github.com/okutsev/TuneRoom/internal/application/constant"
	"github.com/okutsev/TuneRoom/internal/domain/events"
	"github.com/okutsev/TuneRoom/internal/infra/adapters/memory"
	"github.com/okutsev/TuneRoom/internal/usecase"
)

type WebSocketHandler struct {
	upgrader *websocket.Upgrader

	syncUsecase usecase.SyncUsecase

	wsConnRepo memory.WebsocketConnectionRepository
}

func NewWebSocketHandler(cfg *config.Config, syncUsecase usecase.SyncUsecase, wsConnRepo memory.WebsocketConnectionRepository) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.Debug {
					return true
				}

				return r.Header.Get("Origin") == cfg.Domain
			},
		},
		syncUsecase: syncUsecase,
		wsConnRepo:  wsConnRepo,
	}
}

func (h *WebSocketHandler) Handle(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"WebSocket upgrade error",
			slog.Any(constant.Error, err),
		)
		return err
	}
	defer ws.Close()

	// Connection identity is server-assigned and ephemeral; it is the key
	// for room membership, not the account id.
	connID := uuid.New()

	h.wsConnRepo.Add(connID, ws)
	defer h.wsConnRepo.Remove(connID)

	slog.Info("websocket connected", slog.Any(constant.ConnID, connID))

	err = ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	if err != nil {
		return err
	}
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				// WriteControl is safe alongside the repository's serialized
				// data writes; WriteMessage is not.
				if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					slog.Error("ping failed", slog.Any(constant.Error, err))
					return
				}
			case <-c.Request().Context().Done():
				return
			}
		}
	}()

	// Events are read and handled one at a time, which gives every
	// connection in-order processing of its own events.
	for {
		select {
		case <-c.Request().Context().Done():
			return h.disconnect(c.Request().Context(), connID)
		default:
			_, msg, err := ws.ReadMessage()
			if err != nil {
				h.handleWebsocketError(connID, err)
				return h.disconnect(c.Request().Context(), connID)
			}

			syncMessage := new(events.Message)

			if err = json.Unmarshal(msg, &syncMessage); err != nil {
				slog.Error("unmarshal websocket message", slog.Any(constant.Error, err))

				continue
			}

			if err = h.handleMessage(c.Request().Context(), connID, syncMessage); err != nil {
				slog.Error("handle message", slog.Any(constant.Error, err))
			}
		}
	}
}

func (h *WebSocketHandler) handleMessage(
	ctx context.Context,
	connID uuid.UUID,
	msg *events.Message,
) error {
	switch msg.Type {
	case events.TypeCreateRoom:
		var createEvent events.CreateRoomEvent

		if err := json.Unmarshal(msg.Data, &createEvent); err != nil {
			return fmt.Errorf("unmarshal create-room event: %w", err)
		}

		if err := h.syncUsecase.HandleCreateRoom(ctx, connID, createEvent); err != nil {
			return fmt.Errorf("handle create-room: %w", err)
		}

	case events.TypeJoinRoom:
		var joinEvent events.JoinRoomEvent

		if err := json.Unmarshal(msg.Data, &joinEvent); err != nil {
			return fmt.Errorf("unmarshal join-room event: %w", err)
		}

		if err := h.syncUsecase.HandleJoinRoom(ctx, connID, joinEvent); err != nil {
			return fmt.Errorf("handle join-room: %w", err)
		}

	case events.TypeSendSync:
		var sendSyncEvent events.SendSyncEvent

		if err := json.Unmarshal(msg.Data, &sendSyncEvent); err != nil {
			return fmt.Errorf("unmarshal send-sync event: %w", err)
		}

		if err := h.syncUsecase.HandleSendSync(ctx, connID, sendSyncEvent); err != nil {
			return fmt.Errorf("handle send-sync: %w", err)
		}

	case events.TypePlaybackAction:
		var actionEvent events.PlaybackActionEvent

		if err := json.Unmarshal(msg.Data, &actionEvent); err != nil {
			return fmt.Errorf("unmarshal playback-action event: %w", err)
		}

		if err := h.syncUsecase.HandlePlaybackAction(ctx, connID, actionEvent); err != nil {
			return fmt.Errorf("handle playback-action: %w", err)
		}

	default:
		return errors.New("unknown message type")
	}

	return nil
}

func (h *WebSocketHandler) disconnect(ctx context.Context, connID uuid.UUID) error {
	if err := h.syncUsecase.HandleDisconnect(ctx, connID); err != nil {
		slog.Error(
			"handle disconnect",
			slog.Any(constant.Error, err),
			slog.Any(constant.ConnID, connID),
		)
	}

	return nil
}

func (h *WebSocketHandler) handleWebsocketError(connID uuid.UUID, err error) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case websocket.CloseNormalClosure, websocket.CloseGoingAway:
			slog.Info("client disconnected from websocket", slog.Any(constant.ConnID, connID))
		default:
			slog.Error("websocket close error", slog.Any(constant.ConnID, connID))
		}
	} else {
		slog.Error(
			"websocket read",
			slog.Any(constant.Error, err),
		)
	}
}
