package Models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Client -> server event types.
const (
	EventJoin         = "join"
	EventSendMessage  = "send-message"
	EventTyping       = "typing"
	EventStopTyping   = "stop-typing"
	EventAgentOnline  = "agent-online"
	EventAgentOffline = "agent-offline"
)

// Server -> client event types.
const (
	EventNewMessage         = "new-message"
	EventUserTyping         = "user-typing"
	EventUserStopTyping     = "user-stop-typing"
	EventMessageError       = "message-error"
	EventAgentStatusChanged = "agent-status-changed"
	EventChatEnded          = "chat-ended"
)

// ClientEvent is the envelope read from a websocket connection.
type ClientEvent struct {
	Type       string `json:"type"`
	SessionID  string `json:"sessionId,omitempty"`
	Content    string `json:"content,omitempty"`
	SenderKind string `json:"senderKind,omitempty"`
	SenderID   string `json:"senderId,omitempty"`
	SenderName string `json:"senderName,omitempty"`
	AgentID    string `json:"agentId,omitempty"`
}

type NewMessageEvent struct {
	Type       string             `json:"type"`
	ID         primitive.ObjectID `json:"id"`
	SessionID  string             `json:"sessionId"`
	SenderKind string             `json:"senderKind"`
	SenderName string             `json:"senderName"`
	Content    string             `json:"content"`
	Timestamp  time.Time          `json:"timestamp"`
}

type TypingEvent struct {
	Type       string `json:"type"`
	SessionID  string `json:"sessionId"`
	SenderKind string `json:"senderKind"`
	SenderName string `json:"senderName,omitempty"`
}

type MessageErrorEvent struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type AgentStatusEvent struct {
	Type    string `json:"type"`
	AgentID string `json:"agentId"`
	Online  bool   `json:"online"`
}

type ChatEndedEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}
