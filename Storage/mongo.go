package Storage

import (
	"context"
	"sync"
	"time"

	"LiveSupport/Config"
	"LiveSupport/Models"

	"github.com/creasty/defaults"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoStore struct {
	db      *mongo.Database
	timeout time.Duration
	logger  *logrus.Logger

	// Message timestamps are server-assigned and must be non-decreasing per
	// session. The broker is a single process, so the clamp lives here.
	mu       sync.Mutex
	lastSent map[primitive.ObjectID]time.Time
}

func NewMongoStore(ctx context.Context, cfg *Config.Config, logger *logrus.Logger) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}
	return &MongoStore{
		db:       client.Database(cfg.MongoDB),
		timeout:  cfg.MongoTimeout(),
		logger:   logger,
		lastSent: make(map[primitive.ObjectID]time.Time),
	}, nil
}

func (s *MongoStore) sessions() *mongo.Collection  { return s.db.Collection("chat_sessions") }
func (s *MongoStore) messages() *mongo.Collection  { return s.db.Collection("messages") }
func (s *MongoStore) agents() *mongo.Collection    { return s.db.Collection("agents") }
func (s *MongoStore) customers() *mongo.Collection { return s.db.Collection("customers") }
func (s *MongoStore) tickets() *mongo.Collection   { return s.db.Collection("tickets") }

func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *MongoStore) InsertSession(ctx context.Context, session Models.ChatSession) (Models.ChatSession, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	session.ID = primitive.NewObjectID()
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now().UTC()
	}
	if _, err := s.sessions().InsertOne(ctx, session); err != nil {
		return Models.ChatSession{}, err
	}
	return session, nil
}

func (s *MongoStore) GetSession(ctx context.Context, id primitive.ObjectID) (Models.ChatSession, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var session Models.ChatSession
	err := s.sessions().FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return Models.ChatSession{}, ErrNotFound
	}
	return session, err
}

func (s *MongoStore) GetSessionDetail(ctx context.Context, id primitive.ObjectID) (Models.SessionDetail, error) {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return Models.SessionDetail{}, err
	}

	detail := Models.SessionDetail{ChatSession: session}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if session.AgentID != primitive.NilObjectID {
		var agent Models.Agent
		if err := s.agents().FindOne(ctx, bson.M{"_id": session.AgentID}).Decode(&agent); err == nil {
			detail.AgentName = agent.Name
			detail.AgentEmail = agent.Email
		}
	}
	var customer Models.Customer
	if err := s.customers().FindOne(ctx, bson.M{"_id": session.CustomerID}).Decode(&customer); err == nil {
		detail.CustomerName = customer.Name
		detail.CustomerEmail = customer.Email
	}
	return detail, nil
}

func (s *MongoStore) EndSession(ctx context.Context, id primitive.ObjectID) (Models.ChatSession, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{"state": Models.SessionEnded, "ended_at": now}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var session Models.ChatSession
	err := s.sessions().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "state": Models.SessionActive},
		update, opts).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return Models.ChatSession{}, ErrNotFound
	}
	if err != nil {
		return Models.ChatSession{}, err
	}

	s.mu.Lock()
	delete(s.lastSent, id)
	s.mu.Unlock()

	return session, nil
}

func (s *MongoStore) CountActiveSessions(ctx context.Context) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.sessions().CountDocuments(ctx, bson.M{"state": Models.SessionActive})
}

func (s *MongoStore) InsertMessage(ctx context.Context, msg Models.Message) (Models.Message, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	msg.ID = primitive.NewObjectID()
	msg.Timestamp = s.assignTimestamp(msg.ChatSessionID)

	if _, err := s.messages().InsertOne(ctx, msg); err != nil {
		return Models.Message{}, err
	}

	// An end can commit between the caller's state check and the insert.
	// Re-read the session after the write and take the message back out if it
	// is no longer active, so an ended session's history stays frozen.
	count, err := s.sessions().CountDocuments(ctx,
		bson.M{"_id": msg.ChatSessionID, "state": Models.SessionActive})
	if err != nil {
		return Models.Message{}, err
	}
	if count == 0 {
		if _, err := s.messages().DeleteOne(ctx, bson.M{"_id": msg.ID}); err != nil {
			s.logger.WithError(err).WithField("message_id", msg.ID.Hex()).
				Error("failed to retract message from ended session")
		}
		return Models.Message{}, ErrNotFound
	}
	return msg, nil
}

func (s *MongoStore) assignTimestamp(sessionID primitive.ObjectID) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if last, ok := s.lastSent[sessionID]; ok && now.Before(last) {
		now = last
	}
	s.lastSent[sessionID] = now
	return now
}

func (s *MongoStore) ListMessages(ctx context.Context, sessionID primitive.ObjectID) ([]Models.Message, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.messages().Find(ctx, bson.M{"chat_session_id": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	messages := []Models.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *MongoStore) InsertAgent(ctx context.Context, agent Models.Agent) (Models.Agent, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	agent.ID = primitive.NewObjectID()
	agent.CreatedAt = time.Now().UTC()
	if err := defaults.Set(&agent); err != nil {
		return Models.Agent{}, err
	}
	if _, err := s.agents().InsertOne(ctx, agent); err != nil {
		return Models.Agent{}, err
	}
	return agent, nil
}

func (s *MongoStore) GetAgent(ctx context.Context, id primitive.ObjectID) (Models.Agent, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var agent Models.Agent
	err := s.agents().FindOne(ctx, bson.M{"_id": id}).Decode(&agent)
	if err == mongo.ErrNoDocuments {
		return Models.Agent{}, ErrNotFound
	}
	return agent, err
}

// ClaimAgent is the single conditional update that keeps the capacity
// invariant under concurrent admission: the ceiling check and the increment
// happen in one server-side operation, never read-then-write.
func (s *MongoStore) ClaimAgent(ctx context.Context) (Models.Agent, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter := bson.M{
		"online": true,
		"$expr":  bson.M{"$lt": bson.A{"$current_session_count", "$max_sessions"}},
	}
	update := bson.M{
		"$inc": bson.M{"current_session_count": 1},
		"$set": bson.M{"last_assigned_at": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "current_session_count", Value: 1}, {Key: "last_assigned_at", Value: 1}}).
		SetReturnDocument(options.After)

	var agent Models.Agent
	err := s.agents().FindOneAndUpdate(ctx, filter, update, opts).Decode(&agent)
	if err == mongo.ErrNoDocuments {
		return Models.Agent{}, ErrNoAgentAvailable
	}
	if err != nil {
		return Models.Agent{}, err
	}
	return agent, nil
}

func (s *MongoStore) ReleaseAgent(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	// Filter clamps at zero and makes double-release a no-op.
	_, err := s.agents().UpdateOne(ctx,
		bson.M{"_id": id, "current_session_count": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"current_session_count": -1}})
	return err
}

func (s *MongoStore) SetAgentOnline(ctx context.Context, id primitive.ObjectID, online bool) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.agents().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"online": online}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ListAgentSessions(ctx context.Context, agentID primitive.ObjectID) ([]Models.SessionDetail, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: 1}})
	cursor, err := s.sessions().Find(ctx, bson.M{"agent_id": agentID, "state": Models.SessionActive}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []Models.ChatSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}

	details := make([]Models.SessionDetail, 0, len(sessions))
	for _, session := range sessions {
		detail := Models.SessionDetail{ChatSession: session}
		var customer Models.Customer
		if err := s.customers().FindOne(ctx, bson.M{"_id": session.CustomerID}).Decode(&customer); err == nil {
			detail.CustomerName = customer.Name
			detail.CustomerEmail = customer.Email
		}
		details = append(details, detail)
	}
	return details, nil
}

func (s *MongoStore) UpsertCustomer(ctx context.Context, name, email string) (Models.Customer, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	update := bson.M{
		"$set":         bson.M{"name": name},
		"$setOnInsert": bson.M{"created_at": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var customer Models.Customer
	if err := s.customers().FindOneAndUpdate(ctx, bson.M{"email": email}, update, opts).Decode(&customer); err != nil {
		return Models.Customer{}, err
	}
	return customer, nil
}

func (s *MongoStore) InsertTicket(ctx context.Context, ticket Models.Ticket) (Models.Ticket, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ticket.ID = primitive.NewObjectID()
	ticket.Status = Models.TicketOpen
	ticket.CreatedAt = time.Now().UTC()
	if _, err := s.tickets().InsertOne(ctx, ticket); err != nil {
		return Models.Ticket{}, err
	}
	return ticket, nil
}

func (s *MongoStore) ListTickets(ctx context.Context, status string) ([]Models.Ticket, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.tickets().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	tickets := []Models.Ticket{}
	if err := cursor.All(ctx, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *MongoStore) UpdateTicketStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.tickets().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.db.Client().Ping(ctx, readpref.Primary())
}
