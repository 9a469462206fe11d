package Services

import (
	"context"
	"strings"
	"time"

	"LiveSupport/Metrics"
	"LiveSupport/Models"
	"LiveSupport/Storage"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TicketService creates the asynchronous fallback when no agent has capacity.
// Tickets live outside the chat session graph.
type TicketService struct {
	store    Storage.Store
	notifier Notifier
	logger   *logrus.Logger
	metrics  *Metrics.Metrics
}

func NewTicketService(store Storage.Store, notifier Notifier, logger *logrus.Logger, metrics *Metrics.Metrics) *TicketService {
	return &TicketService{store: store, notifier: notifier, logger: logger, metrics: metrics}
}

func (s *TicketService) Create(ctx context.Context, name, email, category, description string) (Models.Ticket, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	description = strings.TrimSpace(description)
	if name == "" || email == "" || category == "" || description == "" {
		return Models.Ticket{}, ErrMissingFields
	}
	if !ValidEmail(email) {
		return Models.Ticket{}, ErrInvalidEmail
	}
	if !Models.ValidTicketCategory(category) {
		return Models.Ticket{}, ErrInvalidCategory
	}

	ticket, err := s.store.InsertTicket(ctx, Models.Ticket{
		Name:        name,
		Email:       email,
		Category:    category,
		Description: description,
	})
	if err != nil {
		return Models.Ticket{}, err
	}

	s.metrics.TicketsCreated.WithLabelValues(category).Inc()
	s.logger.WithFields(logrus.Fields{
		"ticket_id": ticket.ID.Hex(),
		"category":  category,
	}).Info("support ticket created")

	// Confirmation runs after the ticket committed and off the request path.
	go func(t Models.Ticket) {
		sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.notifier.SendTicketConfirmation(sendCtx, t); err != nil {
			s.logger.WithError(err).WithField("ticket_id", t.ID.Hex()).Warn("ticket confirmation failed")
		}
	}(ticket)

	return ticket, nil
}

func (s *TicketService) List(ctx context.Context, status string) ([]Models.Ticket, error) {
	if status != "" && !Models.ValidTicketStatus(status) {
		return nil, ErrInvalidStatus
	}
	return s.store.ListTickets(ctx, status)
}

func (s *TicketService) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	if !Models.ValidTicketStatus(status) {
		return ErrInvalidStatus
	}
	return s.store.UpdateTicketStatus(ctx, id, status)
}
