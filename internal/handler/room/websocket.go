package room

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/connect-therapy/session-chat/internal/config"
	sessionHandler "github.com/connect-therapy/session-chat/internal/handler/session"
	"github.com/connect-therapy/session-chat/internal/hub"
	"github.com/connect-therapy/session-chat/internal/model/signal"
	sessionService "github.com/connect-therapy/session-chat/internal/service/session"
	pkglog "github.com/connect-therapy/session-chat/pkg/log"
	"github.com/connect-therapy/session-chat/pkg/utils"
)

// WebSocketHandler 会话房间的WebSocket处理器
type WebSocketHandler struct {
	sessionSvc *sessionService.Service
	hub        *hub.Hub
	cfg        config.WebSocketConfig
	upgrader   websocket.Upgrader
	logger     zerolog.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(sessionSvc *sessionService.Service, h *hub.Hub, cfg config.WebSocketConfig) *WebSocketHandler {
	return &WebSocketHandler{
		sessionSvc: sessionSvc,
		hub:        h,
		cfg:        cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: pkglog.Component("room"),
	}
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	participantID := strings.TrimSpace(r.URL.Query().Get("participant"))
	if participantID == "" {
		utils.RespondError(w, http.StatusBadRequest, "participant query parameter is required")
		return
	}

	access, err := h.sessionSvc.Authorize(r.Context(), sessionID, participantID)
	if err != nil {
		utils.RespondError(w, sessionHandler.StatusFor(err), err.Error())
		return
	}

	logger := pkglog.Ctx(r.Context())
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.NewString(), sessionID, access.Participant.ID, h.hub, conn, h.cfg)
	if err := h.hub.Register(client); err != nil {
		logger.Error().Err(err).Msg("hub unavailable")
		conn.Close()
		return
	}

	logger.Info().
		Str(pkglog.FieldSessionID, sessionID).
		Str(pkglog.FieldParticipantID, access.Participant.ID).
		Str(pkglog.FieldClientID, client.ID).
		Msg("websocket connected")

	ready := signal.NewFrame(signal.TypeReady)
	ready.Room = sessionID
	ready.PeerID = client.ID
	client.SendFrame(ready)

	go client.WritePump()
	client.ReadPump(h.handleMessage)
}

// handleMessage 分发客户端消息
func (h *WebSocketHandler) handleMessage(client *hub.Client, raw []byte) {
	var msg signal.Frame
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.sendError(client, signal.CodeBadRequest, "invalid message")
		return
	}

	switch msg.Type {
	case signal.TypeJoin:
		h.handleJoin(client, msg)
	case signal.TypeLeave:
		h.hub.Leave(client)
	case signal.TypeMessage:
		h.handleRelay(client, msg)
	case signal.TypePing:
		client.SendFrame(signal.NewFrame(signal.TypePong))
	default:
		h.sendError(client, signal.CodeUnsupported, fmt.Sprintf("unsupported message type: %s", msg.Type))
	}
}

func (h *WebSocketHandler) handleJoin(client *hub.Client, msg signal.Frame) {
	if msg.Room != client.SessionID {
		h.sendError(client, signal.CodeMismatch, "session mismatch")
		return
	}

	peers, err := h.hub.Join(client, msg.Room)
	if err != nil {
		h.logger.Warn().Err(err).Str(pkglog.FieldClientID, client.ID).Msg("join not announced")
	}

	joined := signal.NewFrame(signal.TypeJoined)
	joined.Room = msg.Room
	joined.PeerID = client.ID
	joined.Peers = peers
	client.SendFrame(joined)
}

func (h *WebSocketHandler) handleRelay(client *hub.Client, msg signal.Frame) {
	if len(msg.Data) == 0 || !json.Valid(msg.Data) {
		h.sendError(client, signal.CodeBadRequest, "message data must be json")
		return
	}

	if err := h.hub.Relay(client, msg.Data); err != nil {
		if errors.Is(err, hub.ErrNotJoined) {
			h.sendError(client, signal.CodeNotJoined, "join the session room first")
			return
		}
		h.logger.Warn().Err(err).Str(pkglog.FieldClientID, client.ID).Msg("relay failed")
	}
}

// sendError 发送错误消息
func (h *WebSocketHandler) sendError(client *hub.Client, code, message string) {
	client.SendFrame(signal.NewError(code, message))
}
