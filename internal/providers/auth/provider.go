// Package auth implements account registration and bearer-token sessions.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/codecraft-ai/backend/internal/shared/id"
	"github.com/codecraft-ai/backend/internal/shared/types"
	"github.com/codecraft-ai/backend/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// tokenTTL matches how long a login stays valid.
const tokenTTL = 7 * 24 * time.Hour

// bcrypt rejects inputs over 72 bytes; cap well before that.
const maxPasswordLength = 64

// Store is what the provider needs from persistence.
type Store interface {
	CreateUser(ctx context.Context, user *types.User) error
	UserByEmail(ctx context.Context, email string) (*types.User, error)
	UserByID(ctx context.Context, id string) (*types.User, error)
}

type session struct {
	userID    string
	expiresAt time.Time
}

// Provider issues and verifies opaque bearer tokens. Tokens live in memory:
// a restart logs everyone out, which is acceptable for week-long sessions.
type Provider struct {
	store  Store
	tokens sync.Map
}

func NewProvider(store Store) *Provider {
	return &Provider{store: store}
}

// Register creates an account and returns the new user.
func (p *Provider) Register(ctx context.Context, email, password string) (*types.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.New("valid email required")
	}
	if len(password) < 6 {
		return nil, errors.New("password must be at least 6 characters")
	}
	if len(password) > maxPasswordLength {
		return nil, errors.New("password too long")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &types.User{
		ID:           id.NewUserID().String(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := p.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a token. All failure modes collapse
// into the same error so responses do not reveal which field was wrong.
func (p *Provider) Login(ctx context.Context, email, password string) (string, *types.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" || len(password) > maxPasswordLength {
		return "", nil, ErrInvalidCredentials
	}

	user, err := p.store.UserByEmail(ctx, email)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	token := generateToken()
	p.tokens.Store(token, session{
		userID:    user.ID,
		expiresAt: time.Now().Add(tokenTTL),
	})
	return token, user, nil
}

// Verify resolves a token to its user ID.
func (p *Provider) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	val, ok := p.tokens.Load(token)
	if !ok {
		return "", ErrInvalidToken
	}
	sess := val.(session)
	if time.Now().After(sess.expiresAt) {
		p.tokens.Delete(token)
		return "", ErrInvalidToken
	}
	return sess.userID, nil
}

// Logout invalidates a token. Unknown tokens are a no-op.
func (p *Provider) Logout(token string) {
	p.tokens.Delete(token)
}

// User loads the account behind a verified token.
func (p *Provider) User(ctx context.Context, token string) (*types.User, error) {
	userID, err := p.Verify(token)
	if err != nil {
		return nil, err
	}
	user, err := p.store.UserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	return user, err
}

func generateToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// If crypto/rand fails there is no safe fallback.
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return base64.URLEncoding.EncodeToString(b)
}
