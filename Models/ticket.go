package Models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketResolved   = "resolved"
)

const (
	CategoryPCC    = "PCC"
	CategoryOCI    = "OCI"
	CategoryOthers = "Others"
)

type Ticket struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Email       string             `bson:"email" json:"email"`
	Category    string             `bson:"category" json:"category"`
	Description string             `bson:"description" json:"description"`
	Status      string             `bson:"status" json:"status"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

func ValidTicketCategory(category string) bool {
	switch category {
	case CategoryPCC, CategoryOCI, CategoryOthers:
		return true
	}
	return false
}

func ValidTicketStatus(status string) bool {
	switch status {
	case TicketOpen, TicketInProgress, TicketResolved:
		return true
	}
	return false
}
