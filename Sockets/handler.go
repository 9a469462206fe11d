package Sockets

import (
	"context"
	"errors"
	"net/http"
	"time"

	"LiveSupport/Metrics"
	"LiveSupport/Models"
	"LiveSupport/Services"
	"LiveSupport/Storage"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler drives the channel protocol for one websocket endpoint.
type Handler struct {
	hub      *Hub
	sessions *Services.SessionService
	presence *Services.PresenceCoordinator
	store    Storage.Store
	logger   *logrus.Logger
	metrics  *Metrics.Metrics
}

func NewHandler(hub *Hub, sessions *Services.SessionService, presence *Services.PresenceCoordinator, store Storage.Store, logger *logrus.Logger, metrics *Metrics.Metrics) *Handler {
	return &Handler{
		hub:      hub,
		sessions: sessions,
		presence: presence,
		store:    store,
		logger:   logger,
		metrics:  metrics,
	}
}

// ServeWS upgrades the request and runs the read loop on the request
// goroutine, the write loop on its own.
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := NewClient(conn, h.logger)
	h.hub.AddClient(client)

	go client.writePump()
	h.readPump(client)
}

func (h *Handler) readPump(client *Client) {
	defer func() {
		h.hub.RemoveClient(client)
		client.close()
		h.logger.WithField("conn_id", client.ID).Debug("connection closed")
	}()

	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var event Models.ClientEvent
		if err := client.Conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.WithError(err).WithField("conn_id", client.ID).Debug("read error")
			}
			return
		}
		h.handleEvent(client, event)
	}
}

func (h *Handler) handleEvent(client *Client, event Models.ClientEvent) {
	switch event.Type {
	case Models.EventJoin:
		if event.SessionID == "" {
			return
		}
		h.hub.Subscribe(client, event.SessionID)

	case Models.EventSendMessage:
		h.handleSendMessage(client, event)

	case Models.EventTyping:
		if event.SessionID == "" || !Models.ValidSenderKind(event.SenderKind) {
			return
		}
		h.presence.SetTyping(event.SessionID, event.SenderKind, event.SenderName, client.ID)
		h.metrics.EventsBroadcast.WithLabelValues(Models.EventUserTyping).Inc()

	case Models.EventStopTyping:
		if event.SessionID == "" || !Models.ValidSenderKind(event.SenderKind) {
			return
		}
		h.presence.ClearTyping(event.SessionID, event.SenderKind, client.ID)

	case Models.EventAgentOnline:
		h.handleAgentStatus(client, event.AgentID, true)

	case Models.EventAgentOffline:
		h.handleAgentStatus(client, event.AgentID, false)

	default:
		h.logger.WithFields(logrus.Fields{
			"conn_id": client.ID,
			"type":    event.Type,
		}).Debug("ignoring unknown event")
	}
}

// handleSendMessage runs the ordered path: validate state, persist, then
// broadcast the persisted message. A failed persist suppresses the broadcast
// and answers the sender alone, so nothing reaches a client that a later
// history fetch could not reproduce.
func (h *Handler) handleSendMessage(client *Client, event Models.ClientEvent) {
	sessionID, err := primitive.ObjectIDFromHex(event.SessionID)
	if err != nil {
		h.sendError(client, "invalid-session-id")
		return
	}
	senderID, err := primitive.ObjectIDFromHex(event.SenderID)
	if err != nil {
		h.sendError(client, "invalid-sender-id")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg, err := h.sessions.PostMessage(ctx, sessionID, event.SenderKind, senderID, event.Content)
	if err != nil {
		reason := messageErrorReason(err)
		h.metrics.MessageErrors.WithLabelValues(reason).Inc()
		h.sendError(client, reason)
		return
	}

	// A delivered message makes any live typing indicator of the sender
	// stale; clear it before the message lands.
	h.presence.ClearTyping(event.SessionID, event.SenderKind, client.ID)

	h.hub.Broadcast(event.SessionID, Models.NewMessageEvent{
		Type:       Models.EventNewMessage,
		ID:         msg.ID,
		SessionID:  event.SessionID,
		SenderKind: msg.SenderKind,
		SenderName: msg.SenderName,
		Content:    msg.Content,
		Timestamp:  msg.Timestamp,
	}, "")
	h.metrics.EventsBroadcast.WithLabelValues(Models.EventNewMessage).Inc()
}

func (h *Handler) handleAgentStatus(client *Client, agentID string, online bool) {
	id, err := primitive.ObjectIDFromHex(agentID)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.store.SetAgentOnline(ctx, id, online); err != nil {
		h.logger.WithError(err).WithField("agent_id", agentID).Error("failed to update agent status")
		return
	}

	h.hub.BroadcastAll(Models.AgentStatusEvent{
		Type:    Models.EventAgentStatusChanged,
		AgentID: agentID,
		Online:  online,
	}, client.ID)
	h.metrics.EventsBroadcast.WithLabelValues(Models.EventAgentStatusChanged).Inc()
}

func (h *Handler) sendError(client *Client, reason string) {
	select {
	case client.Send <- Models.MessageErrorEvent{Type: Models.EventMessageError, Reason: reason}:
	default:
	}
}

func messageErrorReason(err error) string {
	switch {
	case errors.Is(err, Services.ErrSessionNotActive):
		return "session-not-active"
	case errors.Is(err, Services.ErrSessionNotFound):
		return "session-not-found"
	case errors.Is(err, Services.ErrInvalidSender), errors.Is(err, Services.ErrMissingFields):
		return "invalid-message"
	default:
		return "store-unavailable"
	}
}
