package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/tabletop-tools/brackets"
	"github.com/Dosada05/tabletop-tools/services"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	sessionLoader
	hub      *brackets.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler serves session rooms on hub. Connections end when the
// hub stops. checkOrigin may be nil to accept any origin.
func NewWebSocketHandler(sessions services.SessionService, hub *brackets.Hub, checkOrigin func(*http.Request) bool, logger *slog.Logger) *WebSocketHandler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{
		sessionLoader: sessionLoader{sessions: sessions},
		hub:           hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

// ServeWs joins the caller to its session room. The current state of every
// tool is sent first, followed by each change as it happens.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("session_id", session.ID), slog.Any("error", err))
		return
	}

	client := &brackets.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: session.ID,
	}
	select {
	case h.hub.Register <- client:
	case <-h.hub.Done():
		_ = conn.Close()
		return
	}

	for _, msg := range []brackets.WebSocketMessage{
		{Type: brackets.MessageBracketUpdated, Payload: session.Bracket.State(), RoomID: session.ID},
		{Type: brackets.MessageLifeUpdated, Payload: session.Life.State(), RoomID: session.ID},
		{Type: brackets.MessageDungeonUpdated, Payload: session.Dungeon.State(), RoomID: session.ID},
		{Type: brackets.MessageRandomizerUpdated, Payload: session.Randomizer.State(), RoomID: session.ID},
	} {
		client.Enqueue(msg)
	}

	go client.WritePump()
	go client.ReadPump()

	h.logger.Info("websocket client connected", slog.String("session_id", session.ID))
}
