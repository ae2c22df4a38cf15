// This file contains the Manager implementation, which is responsible for interacting
// with the MongoDB tweets and twitter_users collections. Twitter users are resolved by
// their numeric id and created on first sight; a user record found with an empty name
// is backfilled when a later tweet supplies one. Users are deliberately not cached:
// the number of distinct users seen while twawling makes a cache of little value.

package tweet

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/frankk00/gaetools/internal/log"
	"github.com/frankk00/gaetools/internal/twitter"
)

type Manager struct {
	tweets *mongo.Collection
	users  *mongo.Collection
	logger *log.Logger
}

// NewManager creates a new Manager backed by the gaetools.tweets and
// gaetools.twitter_users collections.
func NewManager(client *mongo.Client, logger *log.Logger) *Manager {
	db := client.Database("gaetools")
	return &Manager{
		tweets: db.Collection("tweets"),
		users:  db.Collection("twitter_users"),
		logger: logger,
	}
}

// FindOrCreateUser resolves the twitter user with the given numeric id, creating
// a record when none exists. An id of 0 means "no user" and resolves to nil.
func (m *Manager) FindOrCreateUser(ctx context.Context, id int64, name, imageURL string) (*TwitterUser, error) {
	if id == 0 {
		return nil, nil
	}

	var user TwitterUser
	err := m.users.FindOne(ctx, bson.M{"user_id": id}).Decode(&user)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}

		user = TwitterUser{
			ID:              primitive.NewObjectID(),
			UserID:          id,
			UserName:        name,
			ProfileImageURL: imageURL,
		}
		if _, err := m.users.InsertOne(ctx, &user); err != nil {
			return nil, err
		}
		return &user, nil
	}

	// backfill the name and avatar once we learn them
	if user.UserName == "" && name != "" {
		user.UserName = name
		user.ProfileImageURL = imageURL
		_, err := m.users.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": &user})
		if err != nil {
			return nil, err
		}
	}

	return &user, nil
}

// SaveTweet persists a search result against the rule that found it, resolving
// the sending and receiving users.
func (m *Manager) SaveTweet(ctx context.Context, t *twitter.Tweet, ruleName string) error {
	fromUser, err := m.FindOrCreateUser(ctx, t.FromUserID, t.FromUser, t.ProfileImageURL)
	if err != nil {
		return err
	}

	toUser, err := m.FindOrCreateUser(ctx, t.ToUserID, "", "")
	if err != nil {
		return err
	}

	record := Tweet{
		ID:              primitive.NewObjectID(),
		TweetID:         t.ID,
		CreatedAt:       t.CreatedAt,
		RuleName:        strings.ToLower(ruleName),
		FromUserName:    t.FromUser,
		ProfileImageURL: t.ProfileImageURL,
		Text:            t.Text,
		ISOLanguageCode: t.ISOLanguageCode,
	}
	if fromUser != nil {
		record.FromUser = fromUser.ID
	}
	if toUser != nil {
		record.ToUser = toUser.ID
	}

	_, err = m.tweets.InsertOne(ctx, &record)
	return err
}

// CountForRule returns the number of stored tweets for a rule.
func (m *Manager) CountForRule(ctx context.Context, ruleName string) (int64, error) {
	return m.tweets.CountDocuments(ctx, bson.M{"rule_name": strings.ToLower(ruleName)})
}
