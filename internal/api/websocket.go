package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"supportdesk/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	hub *ws.Hub
}

func NewWebSocketHandler(hub *ws.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "component", "api", "error", err)
		return
	}

	client := ws.NewClient(h.hub, conn)
	h.hub.Register(client)

	client.SendHello()

	go client.WritePump()
	go client.ReadPump()
}
