// Package mongostore stores users in a MongoDB collection.
//
// Email uniqueness is enforced by a unique index, so concurrent
// registrations of one address cannot both succeed.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authflow"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const DefaultCollection = "users"

// Store is an authflow.UserStore over one MongoDB collection.
type Store struct {
	coll *mongo.Collection
	now  func() time.Time
}

// New returns a Store over db.collection. Call EnsureIndexes once at
// startup before serving traffic.
func New(db *mongo.Database, collection string) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{coll: db.Collection(collection), now: time.Now}
}

// Connect dials uri and verifies the deployment is reachable.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the unique email index if it is missing.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("mongo ensure indexes: %w", err)
	}
	return nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*authflow.User, error) {
	return s.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (s *Store) FindByID(ctx context.Context, id string) (*authflow.User, error) {
	return s.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (s *Store) CountAll(ctx context.Context) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("mongo count users: %w", err)
	}
	return n, nil
}

// Create inserts a user with a UUID string id. A duplicate email fails
// with authflow.ErrDuplicateEmail.
func (s *Store) Create(ctx context.Context, in authflow.CreateUserInput) (*authflow.User, error) {
	now := s.now().UTC().Truncate(time.Millisecond)
	u := &authflow.User{
		ID:                uuid.NewString(),
		Email:             in.Email,
		Name:              in.Name,
		PasswordHash:      in.PasswordHash,
		Role:              in.Role,
		VerificationToken: in.VerificationToken,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if _, err := s.coll.InsertOne(ctx, toDocument(u)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, authflow.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("mongo insert user: %w", err)
	}
	return u, nil
}

// Save replaces the stored document, so fields cleared on u are removed.
func (s *Store) Save(ctx context.Context, u *authflow.User) error {
	u.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)

	res, err := s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: u.ID}}, toDocument(u))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return authflow.ErrDuplicateEmail
		}
		return fmt.Errorf("mongo save user: %w", err)
	}
	if res.MatchedCount == 0 {
		return authflow.ErrUserNotFound
	}
	return nil
}

func (s *Store) findOne(ctx context.Context, filter bson.D) (*authflow.User, error) {
	var doc userDocument
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, authflow.ErrUserNotFound
		}
		return nil, fmt.Errorf("mongo find user: %w", err)
	}
	return doc.user(), nil
}
