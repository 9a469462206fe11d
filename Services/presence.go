package Services

import (
	"sync"
	"time"

	"LiveSupport/Models"

	"github.com/sirupsen/logrus"
)

// Broadcaster fans an event out to every subscriber of a session, optionally
// excluding the originating connection. Implemented by the socket hub.
type Broadcaster interface {
	Broadcast(sessionID string, event interface{}, exceptConnID string)
}

type typingEntry struct {
	senderName string
	originConn string
	timer      *time.Timer
	updatedAt  time.Time
}

// PresenceCoordinator keeps the ephemeral per-session typing state. Nothing
// here is persisted; a process restart loses it and that is intentional.
// Expiry is driven primarily by the client's own debounce, the server timer
// only prevents indicators from sticking when a stop signal never arrives.
type PresenceCoordinator struct {
	mu          sync.Mutex
	entries     map[string]*typingEntry
	ttl         time.Duration
	broadcaster Broadcaster
	logger      *logrus.Logger
}

func NewPresenceCoordinator(ttl time.Duration, broadcaster Broadcaster, logger *logrus.Logger) *PresenceCoordinator {
	return &PresenceCoordinator{
		entries:     make(map[string]*typingEntry),
		ttl:         ttl,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

func typingKey(sessionID, senderKind string) string {
	return sessionID + "/" + senderKind
}

// SetTyping records or refreshes the typing state and notifies the other
// party. The originating connection never sees its own indicator.
func (p *PresenceCoordinator) SetTyping(sessionID, senderKind, senderName, originConnID string) {
	p.mu.Lock()
	key := typingKey(sessionID, senderKind)
	entry, exists := p.entries[key]
	if exists {
		entry.timer.Stop()
	} else {
		entry = &typingEntry{}
		p.entries[key] = entry
	}
	entry.senderName = senderName
	entry.originConn = originConnID
	entry.updatedAt = time.Now()
	entry.timer = time.AfterFunc(p.ttl, func() {
		p.expire(sessionID, senderKind)
	})
	p.mu.Unlock()

	p.broadcaster.Broadcast(sessionID, Models.TypingEvent{
		Type:       Models.EventUserTyping,
		SessionID:  sessionID,
		SenderKind: senderKind,
		SenderName: senderName,
	}, originConnID)
}

// ClearTyping is the explicit stop signal. A message send calls it too, so an
// indicator never outlives the message it announced.
func (p *PresenceCoordinator) ClearTyping(sessionID, senderKind, originConnID string) {
	p.mu.Lock()
	key := typingKey(sessionID, senderKind)
	entry, exists := p.entries[key]
	if exists {
		entry.timer.Stop()
		delete(p.entries, key)
	}
	p.mu.Unlock()

	if !exists {
		return
	}
	p.broadcaster.Broadcast(sessionID, Models.TypingEvent{
		Type:       Models.EventUserStopTyping,
		SessionID:  sessionID,
		SenderKind: senderKind,
	}, originConnID)
}

func (p *PresenceCoordinator) expire(sessionID, senderKind string) {
	p.mu.Lock()
	key := typingKey(sessionID, senderKind)
	entry, exists := p.entries[key]
	var origin string
	if exists {
		origin = entry.originConn
		delete(p.entries, key)
	}
	p.mu.Unlock()

	if !exists {
		return
	}
	p.logger.WithFields(logrus.Fields{
		"session_id":  sessionID,
		"sender_kind": senderKind,
	}).Debug("typing state expired")
	p.broadcaster.Broadcast(sessionID, Models.TypingEvent{
		Type:       Models.EventUserStopTyping,
		SessionID:  sessionID,
		SenderKind: senderKind,
	}, origin)
}

// IsTyping reports whether the given party currently has live typing state.
func (p *PresenceCoordinator) IsTyping(sessionID, senderKind string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.entries[typingKey(sessionID, senderKind)]
	return ok
}
