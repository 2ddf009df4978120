package repo

import (
	"context"
	"sync"

	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/model"
)

// MemoryCheckpointStore keeps states in process memory. It is used when no
// Redis URL is configured and in tests.
type MemoryCheckpointStore struct {
	mu     sync.RWMutex
	states map[string]*model.ConversationState
}

func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{states: make(map[string]*model.ConversationState)}
}

func (m *MemoryCheckpointStore) Load(_ context.Context, threadID string) (*model.ConversationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.states[threadID].Clone(), nil
}

func (m *MemoryCheckpointStore) Save(_ context.Context, threadID string, _, next *model.ConversationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[threadID] = next.Clone()
	return nil
}

func (m *MemoryCheckpointStore) Clear(_ context.Context, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, threadID)
	return nil
}

var _ model.CheckpointStore = (*MemoryCheckpointStore)(nil)
