package storage

import (
	"context"

	"github.com/codecraft-ai/backend/internal/shared/types"
)

// Persistence is what the store needs from the system of record. *Mongo
// satisfies it; tests substitute an in-memory implementation.
type Persistence interface {
	GetSession(ctx context.Context, id string) (*types.SessionRecord, error)
	PutSession(ctx context.Context, rec *types.SessionRecord) error
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context, userID string) ([]types.SessionRecord, error)
	CreateUser(ctx context.Context, user *types.User) error
	UserByEmail(ctx context.Context, email string) (*types.User, error)
	UserByID(ctx context.Context, id string) (*types.User, error)
}

// SessionCache is the optional read cache. *Cache satisfies it.
type SessionCache interface {
	GetSession(ctx context.Context, id string) (*types.SessionRecord, bool)
	SetSession(ctx context.Context, rec *types.SessionRecord)
	Invalidate(ctx context.Context, id string)
}

// Store combines persistence with the read cache. A nil cache degrades to
// direct reads.
type Store struct {
	db    Persistence
	cache SessionCache
}

func NewStore(db Persistence, cache SessionCache) *Store {
	return &Store{db: db, cache: cache}
}

// GetSession reads through the cache.
func (s *Store) GetSession(ctx context.Context, id string) (*types.SessionRecord, error) {
	if s.cache != nil {
		if rec, ok := s.cache.GetSession(ctx, id); ok {
			return rec, nil
		}
	}
	rec, err := s.db.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetSession(ctx, rec)
	}
	return rec, nil
}

// SaveSession writes to the record system and invalidates the cache entry.
func (s *Store) SaveSession(ctx context.Context, rec *types.SessionRecord) error {
	if err := s.db.PutSession(ctx, rec); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, rec.ID)
	}
	return nil
}

// DeleteSession removes a session everywhere.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := s.db.DeleteSession(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
	return nil
}

// ListSessions bypasses the cache: listings are always fresh.
func (s *Store) ListSessions(ctx context.Context, userID string) ([]types.SessionRecord, error) {
	return s.db.ListSessions(ctx, userID)
}

func (s *Store) CreateUser(ctx context.Context, user *types.User) error {
	return s.db.CreateUser(ctx, user)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*types.User, error) {
	return s.db.UserByEmail(ctx, email)
}

func (s *Store) UserByID(ctx context.Context, id string) (*types.User, error) {
	return s.db.UserByID(ctx, id)
}
