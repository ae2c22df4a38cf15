// This file contains the Manager implementation, which is responsible for interacting
// with the MongoDB auth_requests collection. Tokens are looked up by request key when
// completing the OAuth dance, and by user name when a caller wants the latest access
// token for an account.

package token

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/frankk00/gaetools/internal/log"
)

var (
	// ErrTokenNotFound is returned when no auth request matches the lookup.
	ErrTokenNotFound = errors.New("auth request not found")
)

// DefaultPartnerID is recorded when no partner is specified for a new request.
const DefaultPartnerID = "Unspecified"

type Manager struct {
	collection *mongo.Collection
	logger     *log.Logger
}

// NewManager creates a new Manager backed by the gaetools.auth_requests collection.
func NewManager(client *mongo.Client, logger *log.Logger) *Manager {
	db := client.Database("gaetools")
	return &Manager{
		collection: db.Collection("auth_requests"),
		logger:     logger,
	}
}

// FindByRequestKey retrieves the auth request with the given request key.
func (m *Manager) FindByRequestKey(ctx context.Context, key string) (*AuthRequest, error) {
	var request AuthRequest
	err := m.collection.FindOne(ctx, bson.M{"request_key": key}).Decode(&request)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &request, nil
}

// FindByUserName retrieves the most recently created auth request for the given
// user name (hopefully it's still valid).
func (m *Manager) FindByUserName(ctx context.Context, username string) (*AuthRequest, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "create_date", Value: -1}})

	var request AuthRequest
	err := m.collection.FindOne(ctx, bson.M{"user_name": username}, opts).Decode(&request)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &request, nil
}

// FindOrCreate looks up the auth request for the given request key, creating a new
// unsaved record when none exists. The caller is expected to Save once the token
// details are filled in.
func (m *Manager) FindOrCreate(ctx context.Context, key, partnerID string) (*AuthRequest, error) {
	request, err := m.FindByRequestKey(ctx, key)
	if err == nil {
		return request, nil
	}
	if !errors.Is(err, ErrTokenNotFound) {
		return nil, err
	}

	if partnerID == "" {
		partnerID = DefaultPartnerID
	}
	return &AuthRequest{
		PartnerID:  partnerID,
		RequestKey: key,
		CreateDate: time.Now().UTC(),
	}, nil
}

// Save upserts the auth request by request key.
func (m *Manager) Save(ctx context.Context, request *AuthRequest) error {
	if request.ID.IsZero() {
		request.ID = primitive.NewObjectID()
	}

	_, err := m.collection.UpdateOne(
		ctx,
		bson.M{"request_key": request.RequestKey},
		bson.M{"$set": request},
		options.Update().SetUpsert(true),
	)
	return err
}
