// This file contains the Manager implementation, which is responsible for interacting
// with the MongoDB users collection. Interaction is by ID or username; the only
// mutable fields are the username and password.

package user

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/frankk00/gaetools/internal/log"
)

var (
	// ErrUserNotFound is returned when a requested user is not found in the database.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when a username is already taken.
	ErrUsernameTaken = errors.New("username is already taken")
)

type Manager struct {
	collection *mongo.Collection
	logger     *log.Logger
}

// NewManager creates a new Manager backed by the gaetools.users collection.
func NewManager(client *mongo.Client, logger *log.Logger) *Manager {
	db := client.Database("gaetools")
	return &Manager{
		collection: db.Collection("users"),
		logger:     logger,
	}
}

// SetUser updates or inserts a user document in the database.
func (m *Manager) SetUser(ctx context.Context, user *User) error {
	_, err := m.collection.UpdateOne(
		ctx,
		bson.M{"_id": user.ID},
		bson.M{"$set": user},
		options.Update().SetUpsert(true),
	)
	return err
}

// GenerateUser creates a new user with the given username and password and inserts
// it into the database. Returns ErrUsernameTaken when the username exists already.
func (m *Manager) GenerateUser(ctx context.Context, username, password string) (*User, error) {
	_, err := m.GetUserByUsername(ctx, username)
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	user := &User{
		ID:       primitive.NewObjectID(),
		Username: username,
	}
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}
	if err := m.SetUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user from the database based on the given ID.
func (m *Manager) GetUserByID(ctx context.Context, userID primitive.ObjectID) (*User, error) {
	var user User
	err := m.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername retrieves a user from the database based on the given username.
func (m *Manager) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := m.collection.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdatePassword updates the user's password. Verifies the old password before
// setting the new one.
func (m *Manager) UpdatePassword(ctx context.Context, userID primitive.ObjectID, oldPassword, newPassword string) error {
	user, err := m.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := user.CheckPassword(oldPassword); err != nil {
		return err
	}
	if err := user.SetPassword(newPassword); err != nil {
		return err
	}
	return m.SetUser(ctx, user)
}
