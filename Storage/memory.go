package Storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"LiveSupport/Models"

	"github.com/creasty/defaults"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore implements Store with the same conditional-update semantics as
// the Mongo implementation. It backs tests and the STORE_DRIVER=memory dev
// mode.
type MemoryStore struct {
	mu        sync.Mutex
	agents    map[primitive.ObjectID]*Models.Agent
	customers map[primitive.ObjectID]*Models.Customer
	sessions  map[primitive.ObjectID]*Models.ChatSession
	messages  map[primitive.ObjectID][]Models.Message
	tickets   map[primitive.ObjectID]*Models.Ticket
	lastSent  map[primitive.ObjectID]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		agents:    make(map[primitive.ObjectID]*Models.Agent),
		customers: make(map[primitive.ObjectID]*Models.Customer),
		sessions:  make(map[primitive.ObjectID]*Models.ChatSession),
		messages:  make(map[primitive.ObjectID][]Models.Message),
		tickets:   make(map[primitive.ObjectID]*Models.Ticket),
		lastSent:  make(map[primitive.ObjectID]time.Time),
	}
}

func (s *MemoryStore) InsertSession(ctx context.Context, session Models.ChatSession) (Models.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session.ID = primitive.NewObjectID()
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now().UTC()
	}
	copied := session
	s.sessions[session.ID] = &copied
	return session, nil
}

func (s *MemoryStore) GetSession(ctx context.Context, id primitive.ObjectID) (Models.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return Models.ChatSession{}, ErrNotFound
	}
	return *session, nil
}

func (s *MemoryStore) GetSessionDetail(ctx context.Context, id primitive.ObjectID) (Models.SessionDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return Models.SessionDetail{}, ErrNotFound
	}
	detail := Models.SessionDetail{ChatSession: *session}
	if agent, ok := s.agents[session.AgentID]; ok {
		detail.AgentName = agent.Name
		detail.AgentEmail = agent.Email
	}
	if customer, ok := s.customers[session.CustomerID]; ok {
		detail.CustomerName = customer.Name
		detail.CustomerEmail = customer.Email
	}
	return detail, nil
}

func (s *MemoryStore) EndSession(ctx context.Context, id primitive.ObjectID) (Models.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok || session.State != Models.SessionActive {
		return Models.ChatSession{}, ErrNotFound
	}
	now := time.Now().UTC()
	session.State = Models.SessionEnded
	session.EndedAt = &now
	delete(s.lastSent, id)
	return *session, nil
}

func (s *MemoryStore) CountActiveSessions(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, session := range s.sessions {
		if session.State == Models.SessionActive {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) InsertMessage(ctx context.Context, msg Models.Message) (Models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Writes are gated on the session still being active, so an end racing a
	// send cannot grow the frozen history.
	session, ok := s.sessions[msg.ChatSessionID]
	if !ok || session.State != Models.SessionActive {
		return Models.Message{}, ErrNotFound
	}

	msg.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	if last, ok := s.lastSent[msg.ChatSessionID]; ok && now.Before(last) {
		now = last
	}
	s.lastSent[msg.ChatSessionID] = now
	msg.Timestamp = now

	s.messages[msg.ChatSessionID] = append(s.messages[msg.ChatSessionID], msg)
	return msg, nil
}

func (s *MemoryStore) ListMessages(ctx context.Context, sessionID primitive.ObjectID) ([]Models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages := append([]Models.Message{}, s.messages[sessionID]...)
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
	return messages, nil
}

func (s *MemoryStore) InsertAgent(ctx context.Context, agent Models.Agent) (Models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agent.ID = primitive.NewObjectID()
	agent.CreatedAt = time.Now().UTC()
	if err := defaults.Set(&agent); err != nil {
		return Models.Agent{}, err
	}
	copied := agent
	s.agents[agent.ID] = &copied
	return agent, nil
}

func (s *MemoryStore) GetAgent(ctx context.Context, id primitive.ObjectID) (Models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agent, ok := s.agents[id]
	if !ok {
		return Models.Agent{}, ErrNotFound
	}
	return *agent, nil
}

func (s *MemoryStore) ClaimAgent(ctx context.Context) (Models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *Models.Agent
	for _, agent := range s.agents {
		if !agent.HasCapacity() {
			continue
		}
		if best == nil ||
			agent.CurrentSessionCount < best.CurrentSessionCount ||
			(agent.CurrentSessionCount == best.CurrentSessionCount &&
				agent.LastAssignedAt.Before(best.LastAssignedAt)) {
			best = agent
		}
	}
	if best == nil {
		return Models.Agent{}, ErrNoAgentAvailable
	}
	best.CurrentSessionCount++
	best.LastAssignedAt = time.Now().UTC()
	return *best, nil
}

func (s *MemoryStore) ReleaseAgent(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if agent, ok := s.agents[id]; ok && agent.CurrentSessionCount > 0 {
		agent.CurrentSessionCount--
	}
	return nil
}

func (s *MemoryStore) SetAgentOnline(ctx context.Context, id primitive.ObjectID, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	agent, ok := s.agents[id]
	if !ok {
		return ErrNotFound
	}
	agent.Online = online
	return nil
}

func (s *MemoryStore) ListAgentSessions(ctx context.Context, agentID primitive.ObjectID) ([]Models.SessionDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	details := []Models.SessionDetail{}
	for _, session := range s.sessions {
		if session.AgentID != agentID || session.State != Models.SessionActive {
			continue
		}
		detail := Models.SessionDetail{ChatSession: *session}
		if customer, ok := s.customers[session.CustomerID]; ok {
			detail.CustomerName = customer.Name
			detail.CustomerEmail = customer.Email
		}
		details = append(details, detail)
	}
	sort.Slice(details, func(i, j int) bool {
		return details[i].StartedAt.Before(details[j].StartedAt)
	})
	return details, nil
}

func (s *MemoryStore) UpsertCustomer(ctx context.Context, name, email string) (Models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, customer := range s.customers {
		if customer.Email == email {
			customer.Name = name
			return *customer, nil
		}
	}
	customer := &Models.Customer{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	s.customers[customer.ID] = customer
	return *customer, nil
}

func (s *MemoryStore) InsertTicket(ctx context.Context, ticket Models.Ticket) (Models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket.ID = primitive.NewObjectID()
	ticket.Status = Models.TicketOpen
	ticket.CreatedAt = time.Now().UTC()
	copied := ticket
	s.tickets[ticket.ID] = &copied
	return ticket, nil
}

func (s *MemoryStore) ListTickets(ctx context.Context, status string) ([]Models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tickets := []Models.Ticket{}
	for _, ticket := range s.tickets {
		if status != "" && ticket.Status != status {
			continue
		}
		tickets = append(tickets, *ticket)
	}
	sort.Slice(tickets, func(i, j int) bool {
		return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
	})
	return tickets, nil
}

func (s *MemoryStore) UpdateTicketStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.tickets[id]
	if !ok {
		return ErrNotFound
	}
	ticket.Status = status
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
