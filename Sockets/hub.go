package Sockets

import (
	"context"
	"sync"

	"LiveSupport/Metrics"

	"github.com/sirupsen/logrus"
)

type broadcastEvent struct {
	data     interface{}
	exceptID string
}

// Room owns the fan-out for one session. A single goroutine drains the
// broadcast channel, which makes delivery order match invocation order for
// that session. Membership is mutated by the hub under its own lock, never by
// the room goroutine racing it.
type Room struct {
	ID        string
	clients   map[string]*Client
	mu        sync.RWMutex
	broadcast chan broadcastEvent
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *logrus.Logger
	hub       *Hub
}

// Hub is the Channel Router: it maps session ids to rooms and keeps the
// registry of every live connection. It is injected into handlers, never
// reached as ambient global state.
//
// Lock order is hub before room. Subscribe, Unsubscribe and room teardown all
// run under the hub lock, so a room found in the map is always live: the
// empty-check and the map removal are one critical section and no subscriber
// can be handed a room whose goroutine is about to exit.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]*Room
	clients map[string]*Client
	logger  *logrus.Logger
	metrics *Metrics.Metrics
}

func NewHub(logger *logrus.Logger, metrics *Metrics.Metrics) *Hub {
	return &Hub{
		rooms:   make(map[string]*Room),
		clients: make(map[string]*Client),
		logger:  logger,
		metrics: metrics,
	}
}

func (room *Room) run() {
	for {
		select {
		case <-room.ctx.Done():
			return

		case event := <-room.broadcast:
			room.mu.RLock()
			clients := make([]*Client, 0, len(room.clients))
			for _, client := range room.clients {
				clients = append(clients, client)
			}
			room.mu.RUnlock()

			var slow []*Client
			for _, client := range clients {
				if event.exceptID != "" && client.ID == event.exceptID {
					continue
				}
				select {
				case client.Send <- event.data:
				default:
					// A slow subscriber must not block delivery to others.
					room.logger.WithField("conn_id", client.ID).Warn("send buffer full, dropping subscriber")
					slow = append(slow, client)
				}
			}
			for _, client := range slow {
				room.hub.Unsubscribe(client, room.ID)
				client.close()
			}
		}
	}
}

// AddClient registers a live connection with the hub.
func (h *Hub) AddClient(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
	h.metrics.ConnectedClients.Inc()
}

// RemoveClient drops the connection from the hub and from every room it
// joined. Sessions are untouched: ending a chat is always explicit.
func (h *Hub) RemoveClient(client *Client) {
	h.mu.Lock()
	delete(h.clients, client.ID)
	h.mu.Unlock()

	for _, sessionID := range client.joinedSessions() {
		h.Unsubscribe(client, sessionID)
	}
	h.metrics.ConnectedClients.Dec()
}

// Subscribe adds the connection to the session's room, creating the room and
// its fan-out goroutine on first join.
func (h *Hub) Subscribe(client *Client, sessionID string) {
	h.mu.Lock()
	room, exists := h.rooms[sessionID]
	if !exists {
		ctx, cancel := context.WithCancel(context.Background())
		room = &Room{
			ID:        sessionID,
			clients:   make(map[string]*Client),
			broadcast: make(chan broadcastEvent, 256),
			ctx:       ctx,
			cancel:    cancel,
			logger:    h.logger,
			hub:       h,
		}
		h.rooms[sessionID] = room
		go room.run()
	}
	room.mu.Lock()
	room.clients[client.ID] = client
	room.mu.Unlock()
	h.mu.Unlock()

	client.joinSession(sessionID)
	h.logger.WithFields(logrus.Fields{
		"conn_id":    client.ID,
		"session_id": sessionID,
	}).Debug("connection subscribed")
}

// Unsubscribe removes the connection from the session's room, explicitly or
// on disconnect. The last leaver tears the room down; a later join simply
// creates a fresh room for the same session id.
func (h *Hub) Unsubscribe(client *Client, sessionID string) {
	client.leaveSession(sessionID)

	h.mu.Lock()
	room, exists := h.rooms[sessionID]
	if !exists {
		h.mu.Unlock()
		return
	}
	room.mu.Lock()
	delete(room.clients, client.ID)
	empty := len(room.clients) == 0
	room.mu.Unlock()
	if empty {
		delete(h.rooms, sessionID)
		room.cancel()
	}
	h.mu.Unlock()
}

// Broadcast delivers the event to every subscriber of the session except the
// originating connection when exceptConnID is set. Broadcasting to a session
// nobody joined is a no-op.
func (h *Hub) Broadcast(sessionID string, event interface{}, exceptConnID string) {
	h.mu.RLock()
	room, exists := h.rooms[sessionID]
	h.mu.RUnlock()
	if !exists {
		return
	}
	room.broadcast <- broadcastEvent{data: event, exceptID: exceptConnID}
}

// BroadcastAll delivers the event to every live connection. Used for agent
// presence changes, which are not scoped to one session.
func (h *Hub) BroadcastAll(event interface{}, exceptConnID string) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if exceptConnID != "" && client.ID == exceptConnID {
			continue
		}
		select {
		case client.Send <- event:
		default:
			h.logger.WithField("conn_id", client.ID).Warn("send buffer full, skipping global event")
		}
	}
}

// Clients reports how many live connections the hub tracks.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Subscribers reports how many connections are in the session's room.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	room, exists := h.rooms[sessionID]
	h.mu.RUnlock()
	if !exists {
		return 0
	}
	room.mu.RLock()
	defer room.mu.RUnlock()
	return len(room.clients)
}
