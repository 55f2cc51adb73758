package ws

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"supportdesk/internal/store"
)

const (
	// maxDroppedMessagesBeforeDisconnect is the threshold for disconnecting slow clients
	maxDroppedMessagesBeforeDisconnect = 100

	broadcastBufferSize = 256
)

// Hub fans store mutations out to connected operator consoles. Every
// console sees the same event stream; per-dialog filtering happens
// client-side.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *WSMessage
	register   chan *Client
	unregister chan *Client
	shutdown   chan struct{}
	messages   *store.Store
	serverName string
	sequence   int64
	mu         sync.RWMutex
}

func NewHub(messages *store.Store, serverName string) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *WSMessage, broadcastBufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		shutdown:   make(chan struct{}),
		messages:   messages,
		serverName: serverName,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.shutdown:
			h.mu.Lock()
			for client := range h.clients {
				client.CloseSend()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			slog.Info("shutdown complete", "component", "hub")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.CloseSend()
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				h.sendToClientLocked(client, message)
			}
			h.mu.RUnlock()
		}
	}
}

// Caller must hold at least a read lock on h.mu.
func (h *Hub) sendToClientLocked(client *Client, msg *WSMessage) {
	select {
	case client.send <- msg:
	default:
		// Client buffer full - track the drop
		dropped := atomic.AddInt64(&client.DroppedMessages, 1)

		if dropped%10 == 1 {
			slog.Warn("dropped messages for slow client", "component", "hub", "dropped", dropped, "remote", client.remoteAddr)
		}

		if dropped >= maxDroppedMessagesBeforeDisconnect {
			slog.Warn("disconnecting slow client", "component", "hub", "remote", client.remoteAddr, "dropped", dropped)
			client.Close()
		}
	}
}

func (h *Hub) nextSequence() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sequence++
	return h.sequence
}

// BroadcastDispatch sends a DISPATCH message to all clients with sequence number
func (h *Hub) BroadcastDispatch(eventType string, data any) {
	seq := h.nextSequence()
	h.broadcast <- &WSMessage{
		Op:   OpDispatch,
		Type: eventType,
		Data: data,
		Seq:  &seq,
	}
}

// OnStoreEvent adapts a store notification into a wire dispatch. Wire it
// up with store.Subscribe(hub.OnStoreEvent).
func (h *Hub) OnStoreEvent(ev store.Event) {
	eventType := eventName(ev.Kind)
	if eventType == "" {
		return
	}

	switch ev.Kind {
	case store.EventBatch:
		h.BroadcastDispatch(eventType, MessageBatchPayload{
			DialogID:   ev.DialogID,
			MessageIDs: ev.AddedIDs,
		})

	case store.EventAdd:
		msg, ok := h.messages.Get(ev.DialogID, ev.MessageID)
		if !ok {
			return
		}
		h.BroadcastDispatch(eventType, MessageAddPayload{
			DialogID: ev.DialogID,
			Message:  msg,
			Local:    ev.Local,
		})

	case store.EventStatus:
		msg, ok := h.messages.Get(ev.DialogID, ev.MessageID)
		if !ok {
			return
		}
		h.BroadcastDispatch(eventType, MessageStatusPayload{
			DialogID:  ev.DialogID,
			MessageID: ev.MessageID,
			Status:    msg.Status,
		})

	case store.EventAttachmentUpdate:
		msg, ok := h.messages.Get(ev.DialogID, ev.MessageID)
		if !ok {
			return
		}
		for _, att := range msg.Attachments {
			if att.ID == ev.AttachmentID {
				h.BroadcastDispatch(eventType, AttachmentUpdatePayload{
					DialogID:     ev.DialogID,
					MessageID:    ev.MessageID,
					AttachmentID: ev.AttachmentID,
					Attachment:   att,
				})
				return
			}
		}
	}
}

// Register queues a client for addition to the broadcast set.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

func (h *Hub) Shutdown() {
	close(h.shutdown)
}
