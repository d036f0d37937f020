package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/codecraft-ai/backend/internal/shared/types"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrEmailTaken is returned when registering an email that already has an
// account.
var ErrEmailTaken = errors.New("email already registered")

// Mongo is the system of record for sessions and users.
type Mongo struct {
	client   *mongo.Client
	sessions *mongo.Collection
	users    *mongo.Collection
}

// NewMongo connects to the given URI and pings it before returning.
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	return &Mongo{
		client:   client,
		sessions: db.Collection("sessions"),
		users:    db.Collection("users"),
	}, nil
}

// Close disconnects the underlying client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// GetSession loads one session by ID.
func (m *Mongo) GetSession(ctx context.Context, id string) (*types.SessionRecord, error) {
	var rec types.SessionRecord
	err := m.sessions.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &rec, nil
}

// PutSession upserts a session record.
func (m *Mongo) PutSession(ctx context.Context, rec *types.SessionRecord) error {
	_, err := m.sessions.ReplaceOne(ctx,
		bson.M{"_id": rec.ID},
		rec,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// DeleteSession removes a session.
func (m *Mongo) DeleteSession(ctx context.Context, id string) error {
	res, err := m.sessions.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSessions returns a user's sessions, most recently updated first.
func (m *Mongo) ListSessions(ctx context.Context, userID string) ([]types.SessionRecord, error) {
	cur, err := m.sessions.Find(ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer cur.Close(ctx)

	var recs []types.SessionRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	return recs, nil
}

// CreateUser inserts a new user, failing when the email is taken.
func (m *Mongo) CreateUser(ctx context.Context, user *types.User) error {
	count, err := m.users.CountDocuments(ctx, bson.M{"email": user.Email})
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return ErrEmailTaken
	}
	if _, err := m.users.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UserByEmail loads a user by email.
func (m *Mongo) UserByEmail(ctx context.Context, email string) (*types.User, error) {
	var user types.User
	err := m.users.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// UserByID loads a user by ID.
func (m *Mongo) UserByID(ctx context.Context, id string) (*types.User, error) {
	var user types.User
	err := m.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}
