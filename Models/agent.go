package Models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultMaxSessions = 4

type Agent struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                string             `bson:"name" json:"name"`
	Email               string             `bson:"email" json:"email"`
	Password            string             `bson:"password" json:"-"`
	Online              bool               `bson:"online" json:"online"`
	CurrentSessionCount int                `bson:"current_session_count" json:"current_session_count"`
	MaxSessions         int                `bson:"max_sessions" json:"max_sessions" default:"4"`
	LastAssignedAt      time.Time          `bson:"last_assigned_at" json:"last_assigned_at"`
	CreatedAt           time.Time          `bson:"created_at" json:"created_at"`
}

// HasCapacity reports whether the agent can take one more session.
func (a *Agent) HasCapacity() bool {
	return a.Online && a.CurrentSessionCount < a.MaxSessions
}
