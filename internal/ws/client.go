package ws

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ClientState represents the lifecycle state of a WebSocket client
type ClientState int32

const (
	ClientStateConnected ClientState = iota
	ClientStateClosing
	ClientStateClosed
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 15 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	clientSendBufferSize = 64
)

// Client represents a single WebSocket connection. The stream is
// one-way: the server dispatches store events, the console only reads.
type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan *WSMessage
	remoteAddr    string
	connCloseOnce sync.Once

	state atomic.Int32

	// DroppedMessages tracks how many messages have been dropped due to full buffer
	DroppedMessages int64
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	c := &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan *WSMessage, clientSendBufferSize),
		remoteAddr: conn.RemoteAddr().String(),
	}
	c.state.Store(int32(ClientStateConnected))
	return c
}

// Close performs cleanup for the client, ensuring it only happens once
func (c *Client) Close() {
	if !c.transitionTo(ClientStateClosing) {
		c.connCloseOnce.Do(func() { c.conn.Close() })
		return
	}
	c.connCloseOnce.Do(func() { c.conn.Close() })
	c.transitionTo(ClientStateClosed)
}

// SendHello sends the HELLO message to initiate the connection
func (c *Client) SendHello() {
	c.send <- &WSMessage{
		Op:   OpHello,
		Data: HelloPayload{ServerName: c.hub.serverName},
	}
}

// ReadPump drains the connection so pongs and close frames are
// processed. Inbound frames carry no commands and are discarded.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("websocket read error", "component", "ws", "remote", c.remoteAddr, "error", err)
			}
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if c.IsClosed() {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				slog.Debug("websocket write error", "component", "ws", "remote", c.remoteAddr, "error", err)
				return
			}

		case <-ticker.C:
			if c.IsClosed() {
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// State returns the current client state
func (c *Client) State() ClientState {
	return ClientState(c.state.Load())
}

// IsClosed returns true if the client is closing or closed
func (c *Client) IsClosed() bool {
	state := c.State()
	return state == ClientStateClosing || state == ClientStateClosed
}

func isValidClientTransition(from, to ClientState) bool {
	switch from {
	case ClientStateConnected:
		return to == ClientStateClosing
	case ClientStateClosing:
		return to == ClientStateClosed
	case ClientStateClosed:
		return false
	}
	return false
}

// transitionTo atomically transitions to a new state if valid
func (c *Client) transitionTo(newState ClientState) bool {
	for {
		current := ClientState(c.state.Load())
		if !isValidClientTransition(current, newState) {
			return false
		}
		if c.state.CompareAndSwap(int32(current), int32(newState)) {
			return true
		}
	}
}

// CloseSend closes the send channel (called by hub during cleanup)
func (c *Client) CloseSend() {
	if c.transitionTo(ClientStateClosing) {
		close(c.send)
		c.connCloseOnce.Do(func() { c.conn.Close() })
		c.transitionTo(ClientStateClosed)
	}
}
