package Storage

import (
	"context"
	"errors"

	"LiveSupport/Models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrNoAgentAvailable = errors.New("no agent available")
)

// Store is the durable contract the broker components consume. Every method
// is atomic at the single-document level; multi-step sequences (claim+create,
// end+release) are composed by the services on top and must tolerate partial
// failure by re-checking state.
type Store interface {
	// Sessions
	InsertSession(ctx context.Context, session Models.ChatSession) (Models.ChatSession, error)
	GetSession(ctx context.Context, id primitive.ObjectID) (Models.ChatSession, error)
	GetSessionDetail(ctx context.Context, id primitive.ObjectID) (Models.SessionDetail, error)
	// EndSession transitions active -> ended exactly once. It returns
	// ErrNotFound when the session is missing or already ended, so callers
	// can gate the capacity release on the transition itself.
	EndSession(ctx context.Context, id primitive.ObjectID) (Models.ChatSession, error)
	CountActiveSessions(ctx context.Context) (int64, error)

	// Messages
	InsertMessage(ctx context.Context, msg Models.Message) (Models.Message, error)
	ListMessages(ctx context.Context, sessionID primitive.ObjectID) ([]Models.Message, error)

	// Agents
	InsertAgent(ctx context.Context, agent Models.Agent) (Models.Agent, error)
	GetAgent(ctx context.Context, id primitive.ObjectID) (Models.Agent, error)
	// ClaimAgent atomically picks the online agent with the smallest
	// current_session_count below its ceiling (ties broken by least-recent
	// assignment) and increments the count in the same operation.
	ClaimAgent(ctx context.Context) (Models.Agent, error)
	// ReleaseAgent decrements the count, clamped at zero.
	ReleaseAgent(ctx context.Context, id primitive.ObjectID) error
	SetAgentOnline(ctx context.Context, id primitive.ObjectID, online bool) error
	ListAgentSessions(ctx context.Context, agentID primitive.ObjectID) ([]Models.SessionDetail, error)

	// Customers
	UpsertCustomer(ctx context.Context, name, email string) (Models.Customer, error)

	// Tickets
	InsertTicket(ctx context.Context, ticket Models.Ticket) (Models.Ticket, error)
	ListTickets(ctx context.Context, status string) ([]Models.Ticket, error)
	UpdateTicketStatus(ctx context.Context, id primitive.ObjectID, status string) error

	Ping(ctx context.Context) error
}
