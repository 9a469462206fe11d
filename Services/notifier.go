package Services

import (
	"context"

	"LiveSupport/Models"

	"github.com/sirupsen/logrus"
)

// Notifier is the ticket-confirmation sender, consumed as an external
// fire-and-forget collaborator: its failure never rolls back or delays the
// ticket itself.
type Notifier interface {
	SendTicketConfirmation(ctx context.Context, ticket Models.Ticket) error
}

// LogNotifier is the default implementation; the real mail sender lives
// outside this service and plugs in through the interface.
type LogNotifier struct {
	Logger *logrus.Logger
}

func (n *LogNotifier) SendTicketConfirmation(ctx context.Context, ticket Models.Ticket) error {
	n.Logger.WithFields(logrus.Fields{
		"ticket_id": ticket.ID.Hex(),
		"email":     ticket.Email,
		"category":  ticket.Category,
	}).Info("ticket confirmation queued")
	return nil
}
