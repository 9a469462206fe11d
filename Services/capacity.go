package Services

import (
	"context"
	"errors"

	"LiveSupport/Models"
	"LiveSupport/Storage"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CapacityManager charges and releases agent capacity. The ceiling check and
// the increment are a single conditional update in the store, so concurrent
// admissions can never push an agent past max_sessions.
type CapacityManager struct {
	store   Storage.Store
	logger  *logrus.Logger
	retries int
}

func NewCapacityManager(store Storage.Store, logger *logrus.Logger, retries int) *CapacityManager {
	if retries < 1 {
		retries = 1
	}
	return &CapacityManager{store: store, logger: logger, retries: retries}
}

// Assign claims the least-busy online agent under its ceiling. Transient
// store failures are retried against a fresh snapshot; a genuine lack of
// capacity is returned as ErrNoAgentAvailable immediately.
func (m *CapacityManager) Assign(ctx context.Context) (Models.Agent, error) {
	var lastErr error
	for attempt := 0; attempt < m.retries; attempt++ {
		agent, err := m.store.ClaimAgent(ctx)
		if err == nil {
			m.logger.WithFields(logrus.Fields{
				"agent_id": agent.ID.Hex(),
				"count":    agent.CurrentSessionCount,
			}).Debug("agent capacity claimed")
			return agent, nil
		}
		if errors.Is(err, Storage.ErrNoAgentAvailable) {
			return Models.Agent{}, err
		}
		lastErr = err
		m.logger.WithError(err).WithField("attempt", attempt+1).Warn("agent claim failed, retrying")
	}
	return Models.Agent{}, lastErr
}

// Release decrements the agent's session count. The store clamps at zero, so
// a double release for the same session-end event is harmless.
func (m *CapacityManager) Release(ctx context.Context, agentID primitive.ObjectID) error {
	if err := m.store.ReleaseAgent(ctx, agentID); err != nil {
		m.logger.WithError(err).WithField("agent_id", agentID.Hex()).Error("failed to release agent capacity")
		return err
	}
	return nil
}
