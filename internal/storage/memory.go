package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/codecraft-ai/backend/internal/shared/types"
)

// Memory is an in-process Persistence implementation. It backs development
// setups without a database and the test suites of everything above the
// storage layer.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]types.SessionRecord
	users    map[string]types.User
}

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]types.SessionRecord),
		users:    make(map[string]types.User),
	}
}

func (m *Memory) GetSession(_ context.Context, id string) (*types.SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (m *Memory) PutSession(_ context.Context, rec *types.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[rec.ID] = *rec
	return nil
}

func (m *Memory) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *Memory) ListSessions(_ context.Context, userID string) ([]types.SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var recs []types.SessionRecord
	for _, rec := range m.sessions {
		if rec.UserID == userID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].UpdatedAt.After(recs[j].UpdatedAt)
	})
	return recs, nil
}

func (m *Memory) CreateUser(_ context.Context, user *types.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return ErrEmailTaken
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *Memory) UserByEmail(_ context.Context, email string) (*types.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UserByID(_ context.Context, id string) (*types.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}
