package Sockets

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"LiveSupport/Metrics"
	"LiveSupport/Models"
	"LiveSupport/Services"
	"LiveSupport/Storage"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsFixture struct {
	store    *Storage.MemoryStore
	sessions *Services.SessionService
	presence *Services.PresenceCoordinator
	hub      *Hub
	server   *httptest.Server
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := Storage.NewMemoryStore()
	logger := testLogger()
	metrics := Metrics.Default()
	hub := NewHub(logger, metrics)
	capacity := Services.NewCapacityManager(store, logger, 3)
	sessions := Services.NewSessionService(store, capacity, logger, metrics)
	presence := Services.NewPresenceCoordinator(time.Second, hub, logger)
	handler := NewHandler(hub, sessions, presence, store, logger, metrics)

	router := gin.New()
	router.GET("/ws", handler.ServeWS)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &wsFixture{store: store, sessions: sessions, presence: presence, hub: hub, server: server}
}

func (f *wsFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (f *wsFixture) startSession(t *testing.T) Services.StartResult {
	t.Helper()
	_, err := f.store.InsertAgent(context.Background(), Models.Agent{
		Name:        "Sam Support",
		Email:       "sam@example.com",
		Online:      true,
		MaxSessions: 4,
	})
	require.NoError(t, err)
	result, err := f.sessions.Start(context.Background(), "Jo", "jo@example.com")
	require.NoError(t, err)
	return result
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event map[string]interface{}
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func expectNoEvent(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	var event map[string]interface{}
	err := conn.ReadJSON(&event)
	require.Error(t, err, "unexpected event: %v", event)
}

func join(t *testing.T, conn *websocket.Conn, sessionID string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(Models.ClientEvent{Type: Models.EventJoin, SessionID: sessionID}))
}

func TestSendMessagePersistsThenBroadcastsToRoom(t *testing.T) {
	f := newWSFixture(t)
	result := f.startSession(t)
	sessionID := result.Session.ID.Hex()

	customer := f.dial(t)
	agent := f.dial(t)
	join(t, customer, sessionID)
	join(t, agent, sessionID)
	waitSubscribers(t, f.hub, sessionID, 2)

	require.NoError(t, customer.WriteJSON(Models.ClientEvent{
		Type:       Models.EventSendMessage,
		SessionID:  sessionID,
		SenderKind: Models.SenderCustomer,
		SenderID:   result.Customer.ID.Hex(),
		Content:    "Hello",
	}))

	for _, conn := range []*websocket.Conn{customer, agent} {
		event := readEvent(t, conn)
		assert.Equal(t, Models.EventNewMessage, event["type"])
		assert.Equal(t, "Hello", event["content"])
		assert.Equal(t, "Jo", event["senderName"])
		assert.NotEmpty(t, event["id"], "server assigns the message id")
		assert.NotEmpty(t, event["timestamp"])
	}

	// The broadcast matches what a history fetch returns.
	history, err := f.sessions.History(context.Background(), result.Session.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Hello", history[0].Content)
	assert.False(t, history[0].Timestamp.Before(result.Session.StartedAt))
}

func TestTypingFlowsToOtherPartyAndClearsOnSend(t *testing.T) {
	f := newWSFixture(t)
	result := f.startSession(t)
	sessionID := result.Session.ID.Hex()

	customer := f.dial(t)
	agent := f.dial(t)
	join(t, customer, sessionID)
	join(t, agent, sessionID)
	waitSubscribers(t, f.hub, sessionID, 2)

	require.NoError(t, customer.WriteJSON(Models.ClientEvent{
		Type:       Models.EventTyping,
		SessionID:  sessionID,
		SenderKind: Models.SenderCustomer,
		SenderName: "Jo",
	}))

	event := readEvent(t, agent)
	assert.Equal(t, Models.EventUserTyping, event["type"])
	assert.Equal(t, "Jo", event["senderName"])

	// The sender never sees its own indicator.
	expectNoEvent(t, customer)

	require.NoError(t, customer.WriteJSON(Models.ClientEvent{
		Type:       Models.EventSendMessage,
		SessionID:  sessionID,
		SenderKind: Models.SenderCustomer,
		SenderID:   result.Customer.ID.Hex(),
		Content:    "done typing",
	}))

	// Message send implies stop-typing, delivered before the message.
	event = readEvent(t, agent)
	assert.Equal(t, Models.EventUserStopTyping, event["type"])
	event = readEvent(t, agent)
	assert.Equal(t, Models.EventNewMessage, event["type"])
}

func TestTypingWithUnknownSenderKindIsIgnored(t *testing.T) {
	f := newWSFixture(t)
	result := f.startSession(t)
	sessionID := result.Session.ID.Hex()

	customer := f.dial(t)
	agent := f.dial(t)
	join(t, customer, sessionID)
	join(t, agent, sessionID)
	waitSubscribers(t, f.hub, sessionID, 2)

	require.NoError(t, customer.WriteJSON(Models.ClientEvent{
		Type:       Models.EventTyping,
		SessionID:  sessionID,
		SenderKind: "observer",
		SenderName: "Jo",
	}))

	// An unrecognized sender kind never creates typing state or reaches the
	// other party.
	expectNoEvent(t, agent)
	assert.False(t, f.presence.IsTyping(sessionID, "observer"))
}

func TestSendToEndedSessionYieldsErrorAndNoBroadcast(t *testing.T) {
	f := newWSFixture(t)
	result := f.startSession(t)
	sessionID := result.Session.ID.Hex()

	customer := f.dial(t)
	agent := f.dial(t)
	join(t, customer, sessionID)
	join(t, agent, sessionID)
	waitSubscribers(t, f.hub, sessionID, 2)

	_, err := f.sessions.End(context.Background(), result.Session.ID)
	require.NoError(t, err)

	require.NoError(t, customer.WriteJSON(Models.ClientEvent{
		Type:       Models.EventSendMessage,
		SessionID:  sessionID,
		SenderKind: Models.SenderCustomer,
		SenderID:   result.Customer.ID.Hex(),
		Content:    "anyone there?",
	}))

	event := readEvent(t, customer)
	assert.Equal(t, Models.EventMessageError, event["type"])
	assert.Equal(t, "session-not-active", event["reason"])

	// The error goes to the sender only and nothing was stored.
	expectNoEvent(t, agent)
	history, err := f.sessions.History(context.Background(), result.Session.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestAgentStatusChangeIsGlobal(t *testing.T) {
	f := newWSFixture(t)
	agentRecord, err := f.store.InsertAgent(context.Background(), Models.Agent{
		Name:        "Sam Support",
		Email:       "sam@example.com",
		Online:      false,
		MaxSessions: 4,
	})
	require.NoError(t, err)

	agentConn := f.dial(t)
	watcher := f.dial(t)
	require.Eventually(t, func() bool {
		return f.hub.Clients() == 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, agentConn.WriteJSON(Models.ClientEvent{
		Type:    Models.EventAgentOnline,
		AgentID: agentRecord.ID.Hex(),
	}))

	event := readEvent(t, watcher)
	assert.Equal(t, Models.EventAgentStatusChanged, event["type"])
	assert.Equal(t, true, event["online"])

	updated, err := f.store.GetAgent(context.Background(), agentRecord.ID)
	require.NoError(t, err)
	assert.True(t, updated.Online)
}

func TestDisconnectLeavesSessionRunning(t *testing.T) {
	f := newWSFixture(t)
	result := f.startSession(t)
	sessionID := result.Session.ID.Hex()

	customer := f.dial(t)
	agent := f.dial(t)
	join(t, customer, sessionID)
	join(t, agent, sessionID)
	waitSubscribers(t, f.hub, sessionID, 2)

	customer.Close()
	waitSubscribers(t, f.hub, sessionID, 1)

	// The session is still active: dropping a transport never ends a chat.
	session, err := f.store.GetSession(context.Background(), result.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, Models.SessionActive, session.State)

	// A reconnecting customer can rejoin and receive events again.
	reconnected := f.dial(t)
	join(t, reconnected, sessionID)
	waitSubscribers(t, f.hub, sessionID, 2)

	_, err = f.sessions.PostMessage(context.Background(), result.Session.ID,
		Models.SenderAgent, result.Agent.ID, "still with me?")
	require.NoError(t, err)
	f.hub.Broadcast(sessionID, Models.NewMessageEvent{
		Type:      Models.EventNewMessage,
		SessionID: sessionID,
		Content:   "still with me?",
	}, "")

	event := readEvent(t, reconnected)
	assert.Equal(t, Models.EventNewMessage, event["type"])
}
