package ws

import (
	"encoding/json"
	"sync"

	"preflight/internal/logger"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Connection is one socket of an owner. An owner may have several open tabs.
type Connection struct {
	OwnerID string
	Send    chan []byte
}

type ownerMessage struct {
	ownerID string
	data    []byte
}

// Hub fans events out to every connection of an owner
type Hub struct {
	conns map[string]map[*Connection]struct{}
	mu    sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan ownerMessage
	done       chan struct{}
	stopped    chan struct{}
	stopOnce   sync.Once

	log *logger.Logger
}

// NewHub creates a hub and starts its run loop
func NewHub(log *logger.Logger) *Hub {
	h := &Hub{
		conns:      make(map[string]map[*Connection]struct{}),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan ownerMessage, 256),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
		log:        log,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	defer close(h.stopped)
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.conns[conn.OwnerID] == nil {
				h.conns[conn.OwnerID] = make(map[*Connection]struct{})
			}
			h.conns[conn.OwnerID][conn] = struct{}{}
			h.mu.Unlock()
			h.log.Debug("websocket connected", "ownerId", conn.OwnerID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if set, ok := h.conns[conn.OwnerID]; ok {
				if _, ok := set[conn]; ok {
					delete(set, conn)
					close(conn.Send)
					if len(set) == 0 {
						delete(h.conns, conn.OwnerID)
					}
				}
			}
			h.mu.Unlock()
			h.log.Debug("websocket disconnected", "ownerId", conn.OwnerID)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for conn := range h.conns[msg.ownerID] {
				select {
				case conn.Send <- msg.data:
				default:
					// Slow client, drop
				}
			}
			h.mu.RUnlock()

		case <-h.done:
			h.mu.Lock()
			for _, set := range h.conns {
				for conn := range set {
					close(conn.Send)
				}
			}
			h.conns = make(map[string]map[*Connection]struct{})
			h.mu.Unlock()
			return
		}
	}
}

// Register adds a connection. It is a no-op once the hub is stopped.
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		close(conn.Send)
	}
}

func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// BroadcastToOwner pushes an event to all of the owner's sockets
// (implements service.Broadcaster)
func (h *Hub) BroadcastToOwner(ownerID, msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Warn("failed to encode websocket payload", "type", msgType, "error", err)
		return
	}
	frame, err := json.Marshal(&Message{Type: msgType, Payload: data})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- ownerMessage{ownerID: ownerID, data: frame}:
	case <-h.done:
	}
}

// Connections reports how many sockets an owner has open
func (h *Hub) Connections(ownerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[ownerID])
}

// Stop closes every connection and ends the run loop
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
	<-h.stopped
}
