package Services

import (
	"sync"
	"testing"
	"time"

	"LiveSupport/Models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	sessionID string
	event     interface{}
	exceptID  string
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingBroadcaster) Broadcast(sessionID string, event interface{}, exceptConnID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{sessionID: sessionID, event: event, exceptID: exceptConnID})
}

func (r *recordingBroadcaster) snapshot() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEvent{}, r.events...)
}

func TestSetTypingBroadcastsToOthersOnly(t *testing.T) {
	broadcaster := &recordingBroadcaster{}
	presence := NewPresenceCoordinator(time.Hour, broadcaster, testLogger())

	presence.SetTyping("s1", Models.SenderCustomer, "Jo", "conn-1")

	events := broadcaster.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, "conn-1", events[0].exceptID, "sender never sees its own indicator")

	typing, ok := events[0].event.(Models.TypingEvent)
	require.True(t, ok)
	assert.Equal(t, Models.EventUserTyping, typing.Type)
	assert.Equal(t, "Jo", typing.SenderName)
	assert.True(t, presence.IsTyping("s1", Models.SenderCustomer))
}

func TestExplicitStopClearsAndBroadcasts(t *testing.T) {
	broadcaster := &recordingBroadcaster{}
	presence := NewPresenceCoordinator(time.Hour, broadcaster, testLogger())

	presence.SetTyping("s1", Models.SenderAgent, "Sam", "conn-2")
	presence.ClearTyping("s1", Models.SenderAgent, "conn-2")

	events := broadcaster.snapshot()
	require.Len(t, events, 2)
	stop, ok := events[1].event.(Models.TypingEvent)
	require.True(t, ok)
	assert.Equal(t, Models.EventUserStopTyping, stop.Type)
	assert.False(t, presence.IsTyping("s1", Models.SenderAgent))
}

func TestClearWithoutTypingIsSilent(t *testing.T) {
	broadcaster := &recordingBroadcaster{}
	presence := NewPresenceCoordinator(time.Hour, broadcaster, testLogger())

	presence.ClearTyping("s1", Models.SenderCustomer, "conn-1")
	assert.Empty(t, broadcaster.snapshot())
}

func TestTypingExpiresWithoutStopSignal(t *testing.T) {
	broadcaster := &recordingBroadcaster{}
	presence := NewPresenceCoordinator(50*time.Millisecond, broadcaster, testLogger())

	presence.SetTyping("s1", Models.SenderCustomer, "Jo", "conn-1")

	assert.Eventually(t, func() bool {
		return !presence.IsTyping("s1", Models.SenderCustomer)
	}, time.Second, 10*time.Millisecond, "state must auto-expire after the quiet interval")

	events := broadcaster.snapshot()
	require.Len(t, events, 2)
	stop, ok := events[1].event.(Models.TypingEvent)
	require.True(t, ok)
	assert.Equal(t, Models.EventUserStopTyping, stop.Type)
}

func TestRefreshExtendsTypingWindow(t *testing.T) {
	broadcaster := &recordingBroadcaster{}
	presence := NewPresenceCoordinator(80*time.Millisecond, broadcaster, testLogger())

	presence.SetTyping("s1", Models.SenderCustomer, "Jo", "conn-1")
	time.Sleep(50 * time.Millisecond)
	presence.SetTyping("s1", Models.SenderCustomer, "Jo", "conn-1")
	time.Sleep(50 * time.Millisecond)

	// First window has elapsed but the refresh keeps the state alive.
	assert.True(t, presence.IsTyping("s1", Models.SenderCustomer))

	assert.Eventually(t, func() bool {
		return !presence.IsTyping("s1", Models.SenderCustomer)
	}, time.Second, 10*time.Millisecond)
}

func TestFreshTypingAfterExpiryYieldsDiscreteIndications(t *testing.T) {
	broadcaster := &recordingBroadcaster{}
	presence := NewPresenceCoordinator(40*time.Millisecond, broadcaster, testLogger())

	presence.SetTyping("s1", Models.SenderCustomer, "Jo", "conn-1")
	require.Eventually(t, func() bool {
		return !presence.IsTyping("s1", Models.SenderCustomer)
	}, time.Second, 5*time.Millisecond)

	presence.SetTyping("s1", Models.SenderCustomer, "Jo", "conn-1")
	presence.ClearTyping("s1", Models.SenderCustomer, "conn-1")

	var typings, stops int
	for _, recorded := range broadcaster.snapshot() {
		event := recorded.event.(Models.TypingEvent)
		switch event.Type {
		case Models.EventUserTyping:
			typings++
		case Models.EventUserStopTyping:
			stops++
		}
	}
	// Two discrete indications, each closed by a stop: never a stuck state.
	assert.Equal(t, 2, typings)
	assert.Equal(t, 2, stops)
	assert.False(t, presence.IsTyping("s1", Models.SenderCustomer))
}
