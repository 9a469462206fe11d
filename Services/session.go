package Services

import (
	"context"
	"errors"
	"strings"

	"LiveSupport/Metrics"
	"LiveSupport/Models"
	"LiveSupport/Storage"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionService owns the session lifecycle: admission creates sessions
// directly in the active state, end is terminal and idempotent, and message
// posting is only permitted while active.
type SessionService struct {
	store    Storage.Store
	capacity *CapacityManager
	logger   *logrus.Logger
	metrics  *Metrics.Metrics
}

func NewSessionService(store Storage.Store, capacity *CapacityManager, logger *logrus.Logger, metrics *Metrics.Metrics) *SessionService {
	return &SessionService{store: store, capacity: capacity, logger: logger, metrics: metrics}
}

// StartResult carries what the admission response needs.
type StartResult struct {
	Session  Models.ChatSession
	Agent    Models.Agent
	Customer Models.Customer
}

// Start admits a customer: validates input before touching the store, claims
// capacity, then creates the session. If the session insert fails the claimed
// capacity is released again so no phantom charge survives.
func (s *SessionService) Start(ctx context.Context, customerName, customerEmail string) (StartResult, error) {
	customerName = strings.TrimSpace(customerName)
	customerEmail = strings.TrimSpace(customerEmail)
	if customerName == "" || customerEmail == "" {
		return StartResult{}, ErrMissingFields
	}
	if !ValidEmail(customerEmail) {
		return StartResult{}, ErrInvalidEmail
	}

	customer, err := s.store.UpsertCustomer(ctx, customerName, customerEmail)
	if err != nil {
		return StartResult{}, err
	}

	agent, err := s.capacity.Assign(ctx)
	if err != nil {
		if errors.Is(err, ErrNoAgentAvailable) {
			s.metrics.AdmissionsRejected.Inc()
		}
		return StartResult{}, err
	}

	session, err := s.store.InsertSession(ctx, Models.ChatSession{
		AgentID:    agent.ID,
		CustomerID: customer.ID,
		State:      Models.SessionActive,
	})
	if err != nil {
		// Compensating decrement: the claim committed but the session did
		// not, and the customer never got a chat.
		if relErr := s.capacity.Release(ctx, agent.ID); relErr != nil {
			s.logger.WithError(relErr).WithField("agent_id", agent.ID.Hex()).
				Error("compensating release failed, capacity counter may drift")
		}
		return StartResult{}, err
	}

	s.metrics.SessionsStarted.Inc()
	s.metrics.ActiveSessions.Inc()
	s.logger.WithFields(logrus.Fields{
		"session_id": session.ID.Hex(),
		"agent_id":   agent.ID.Hex(),
	}).Info("chat session started")

	return StartResult{Session: session, Agent: agent, Customer: customer}, nil
}

// End transitions the session to ended and releases the agent's capacity.
// The store only matches an active session, so a second End reports
// ErrSessionNotFound and releases nothing.
func (s *SessionService) End(ctx context.Context, sessionID primitive.ObjectID) (Models.ChatSession, error) {
	session, err := s.store.EndSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, Storage.ErrNotFound) {
			return Models.ChatSession{}, ErrSessionNotFound
		}
		return Models.ChatSession{}, err
	}

	if session.AgentID != primitive.NilObjectID {
		if err := s.capacity.Release(ctx, session.AgentID); err != nil {
			s.logger.WithError(err).WithField("session_id", sessionID.Hex()).
				Error("session ended but capacity release failed")
		}
	}

	s.metrics.SessionsEnded.Inc()
	s.metrics.ActiveSessions.Dec()
	s.logger.WithField("session_id", sessionID.Hex()).Info("chat session ended")
	return session, nil
}

// PostMessage validates the session state, then persists the message with a
// server-assigned id and timestamp. The sender name is resolved from the
// session participants, never trusted from the wire.
func (s *SessionService) PostMessage(ctx context.Context, sessionID primitive.ObjectID, senderKind string, senderID primitive.ObjectID, content string) (Models.Message, error) {
	if !Models.ValidSenderKind(senderKind) {
		return Models.Message{}, ErrInvalidSender
	}
	if strings.TrimSpace(content) == "" {
		return Models.Message{}, ErrMissingFields
	}

	detail, err := s.store.GetSessionDetail(ctx, sessionID)
	if err != nil {
		if errors.Is(err, Storage.ErrNotFound) {
			return Models.Message{}, ErrSessionNotFound
		}
		return Models.Message{}, err
	}
	if detail.State != Models.SessionActive {
		return Models.Message{}, ErrSessionNotActive
	}

	senderName := detail.CustomerName
	if senderKind == Models.SenderAgent {
		senderName = detail.AgentName
	}

	msg, err := s.store.InsertMessage(ctx, Models.Message{
		ChatSessionID: sessionID,
		SenderKind:    senderKind,
		SenderID:      senderID,
		SenderName:    senderName,
		Content:       content,
	})
	if err != nil {
		// The store rejects writes to sessions that ended after the state
		// check above.
		if errors.Is(err, Storage.ErrNotFound) {
			return Models.Message{}, ErrSessionNotActive
		}
		return Models.Message{}, err
	}

	s.metrics.MessagesPersisted.Inc()
	return msg, nil
}

// History returns the session's messages in non-decreasing timestamp order.
func (s *SessionService) History(ctx context.Context, sessionID primitive.ObjectID) ([]Models.Message, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		if errors.Is(err, Storage.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return s.store.ListMessages(ctx, sessionID)
}

// Detail returns the session joined with agent and customer identities.
func (s *SessionService) Detail(ctx context.Context, sessionID primitive.ObjectID) (Models.SessionDetail, error) {
	detail, err := s.store.GetSessionDetail(ctx, sessionID)
	if err != nil {
		if errors.Is(err, Storage.ErrNotFound) {
			return Models.SessionDetail{}, ErrSessionNotFound
		}
		return Models.SessionDetail{}, err
	}
	return detail, nil
}
