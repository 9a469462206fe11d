package Services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"LiveSupport/Metrics"
	"LiveSupport/Models"
	"LiveSupport/Storage"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func newTestServices(t *testing.T) (*Storage.MemoryStore, *CapacityManager, *SessionService) {
	t.Helper()
	store := Storage.NewMemoryStore()
	logger := testLogger()
	capacity := NewCapacityManager(store, logger, 3)
	sessions := NewSessionService(store, capacity, logger, Metrics.Default())
	return store, capacity, sessions
}

func addAgent(t *testing.T, store *Storage.MemoryStore, name string, online bool, max int) Models.Agent {
	t.Helper()
	agent, err := store.InsertAgent(context.Background(), Models.Agent{
		Name:        name,
		Email:       name + "@example.com",
		Online:      online,
		MaxSessions: max,
	})
	require.NoError(t, err)
	return agent
}

func TestAssignNoAgentsOnline(t *testing.T) {
	store, capacity, _ := newTestServices(t)
	addAgent(t, store, "offline", false, 4)

	_, err := capacity.Assign(context.Background())
	assert.ErrorIs(t, err, ErrNoAgentAvailable)
}

func TestAssignPicksLeastBusyAgent(t *testing.T) {
	store, capacity, _ := newTestServices(t)
	busy := addAgent(t, store, "busy", true, 4)
	idle := addAgent(t, store, "idle", true, 4)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := store.ClaimAgent(ctx)
		require.NoError(t, err)
	}
	// busy and idle have been leveled by the claims above; force a skew.
	require.NoError(t, store.ReleaseAgent(ctx, idle.ID))
	require.NoError(t, store.ReleaseAgent(ctx, idle.ID))

	got, err := capacity.Assign(ctx)
	require.NoError(t, err)
	assert.Equal(t, "idle", got.Name)

	updated, err := store.GetAgent(ctx, busy.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, updated.CurrentSessionCount, updated.MaxSessions)
}

func TestConcurrentAdmissionNeverExceedsCeiling(t *testing.T) {
	store, _, sessions := newTestServices(t)
	agent := addAgent(t, store, "solo", true, 4)

	const attempts = 32
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sessions.Start(context.Background(), "Customer", "customer@example.com")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrNoAgentAvailable):
			rejected++
		default:
			t.Fatalf("unexpected admission error: %v", err)
		}
	}

	assert.Equal(t, 4, succeeded, "exactly max_sessions admissions succeed")
	assert.Equal(t, attempts-4, rejected)

	updated, err := store.GetAgent(context.Background(), agent.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.CurrentSessionCount)
	assert.GreaterOrEqual(t, updated.CurrentSessionCount, 0)
	assert.LessOrEqual(t, updated.CurrentSessionCount, updated.MaxSessions)
}

func TestLastFreeSlotGoesToExactlyOneOfTwoCustomers(t *testing.T) {
	store, _, sessions := newTestServices(t)
	agent := addAgent(t, store, "nearly-full", true, 4)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := store.ClaimAgent(ctx)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := sessions.Start(ctx, "Racer", "racer@example.com")
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		if err == nil {
			succeeded++
		} else if errors.Is(err, ErrNoAgentAvailable) {
			rejected++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	updated, err := store.GetAgent(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.CurrentSessionCount)
}

func TestReleaseClampsAtZero(t *testing.T) {
	store, capacity, _ := newTestServices(t)
	agent := addAgent(t, store, "calm", true, 4)

	ctx := context.Background()
	require.NoError(t, capacity.Release(ctx, agent.ID))
	require.NoError(t, capacity.Release(ctx, agent.ID))

	updated, err := store.GetAgent(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.CurrentSessionCount)
}
