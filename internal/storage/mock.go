package storage

import (
	"context"
	"sync"
	"time"

	"github.com/tutienrpg/turn-engine/pkg/state"
	"github.com/tutienrpg/turn-engine/pkg/world"
)

// MockStorage is an in-memory Storage for testing. Individual methods
// can be overridden per test.
type MockStorage struct {
	PingFunc   func(ctx context.Context) error
	SaveFunc   func(ctx context.Context, id string, gs *state.GameState) error
	LoadFunc   func(ctx context.Context, id string) (*state.GameState, error)
	DeleteFunc func(ctx context.Context, id string) error

	Templates []*world.Template

	mu     sync.Mutex
	states map[string]*state.GameState
	locks  map[string]bool
}

var _ Storage = (*MockStorage)(nil)

func NewMockStorage() *MockStorage {
	return &MockStorage{
		states: make(map[string]*state.GameState),
		locks:  make(map[string]bool),
	}
}

func (m *MockStorage) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *MockStorage) Close() error { return nil }

func (m *MockStorage) SaveGameState(ctx context.Context, id string, gs *state.GameState) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, id, gs)
	}
	copied, err := gs.DeepCopy()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[id] = copied
	return nil
}

func (m *MockStorage) LoadGameState(ctx context.Context, id string) (*state.GameState, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	gs, ok := m.states[id]
	if !ok {
		return nil, nil
	}
	return gs.DeepCopy()
}

func (m *MockStorage) DeleteGameState(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, id)
	return nil
}

func (m *MockStorage) ListWorldTemplates(ctx context.Context) ([]*world.Template, error) {
	return m.Templates, nil
}

func (m *MockStorage) GetWorldTemplate(ctx context.Context, name string) (*world.Template, error) {
	for _, t := range m.Templates {
		if t.FileName == name {
			return t, nil
		}
	}
	return nil, nil
}

func (m *MockStorage) AcquireTurnLock(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[id] {
		return false, nil
	}
	m.locks[id] = true
	return true, nil
}

func (m *MockStorage) ReleaseTurnLock(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, id)
	return nil
}
