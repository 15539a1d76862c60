package storage

import (
	"context"
	"sync"

	"github.com/yourusername/cartech-bot/internal/domain/repository"
)

type memoryStateRepository struct {
	mu     sync.RWMutex
	states map[int64]repository.ChatState
}

// NewMemoryStateRepository in-memory chat holati. Restartda yo'qoladi.
func NewMemoryStateRepository() repository.StateRepository {
	return &memoryStateRepository{states: make(map[int64]repository.ChatState)}
}

func (m *memoryStateRepository) Get(_ context.Context, chatID int64) (repository.ChatState, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[chatID]
	return st, ok, nil
}

func (m *memoryStateRepository) Set(_ context.Context, chatID int64, state repository.ChatState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[chatID] = state
	return nil
}

func (m *memoryStateRepository) Delete(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, chatID)
	return nil
}

// Reset barcha holatlarni tozalash
func (m *memoryStateRepository) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = make(map[int64]repository.ChatState)
	return nil
}
