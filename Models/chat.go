package Models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session states. Waiting is kept as an extension point for queued
// admission; the broker currently creates sessions already active.
const (
	SessionWaiting = "waiting"
	SessionActive  = "active"
	SessionEnded   = "ended"
)

const (
	SenderAgent    = "agent"
	SenderCustomer = "customer"
)

func ValidSenderKind(kind string) bool {
	return kind == SenderAgent || kind == SenderCustomer
}

type ChatSession struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AgentID    primitive.ObjectID `bson:"agent_id,omitempty" json:"agent_id,omitempty"`
	CustomerID primitive.ObjectID `bson:"customer_id" json:"customer_id"`
	State      string             `bson:"state" json:"state"`
	StartedAt  time.Time          `bson:"started_at" json:"started_at"`
	EndedAt    *time.Time         `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
}

type Message struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatSessionID primitive.ObjectID `bson:"chat_session_id" json:"chat_session_id"`
	SenderKind    string             `bson:"sender_kind" json:"sender_kind"`
	SenderID      primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	SenderName    string             `bson:"sender_name,omitempty" json:"sender_name,omitempty"`
	Content       string             `bson:"content" json:"content"`
	Timestamp     time.Time          `bson:"timestamp" json:"timestamp"`
}

// SessionDetail is the joined view returned by the session info endpoint
// and the agent dashboard.
type SessionDetail struct {
	ChatSession   `bson:",inline"`
	AgentName     string `bson:"agent_name" json:"agent_name"`
	AgentEmail    string `bson:"agent_email" json:"agent_email"`
	CustomerName  string `bson:"customer_name" json:"customer_name"`
	CustomerEmail string `bson:"customer_email" json:"customer_email"`
}
