// This file contains the Manager implementation, which is responsible for interacting
// with the MongoDB twawl_rules collection. Rule names are case-insensitive and stored
// lowercased. FindOrCreate checks the cache before the database; Update persists and
// then deletes the cached copy so the next read sees the new watermark.

package rule

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/frankk00/gaetools/internal/cache"
	"github.com/frankk00/gaetools/internal/log"
)

var (
	// ErrRuleNotFound is returned when a requested rule is not in the database.
	ErrRuleNotFound = errors.New("twawl rule not found")
)

const (
	cachePrefix  = "twawlrule"
	ruleCacheTTL = 10 * time.Minute
)

type Manager struct {
	collection *mongo.Collection
	store      cache.Store
	logger     *log.Logger
}

// NewManager creates a new Manager backed by the gaetools.twawl_rules collection.
func NewManager(client *mongo.Client, store cache.Store, logger *log.Logger) *Manager {
	db := client.Database("gaetools")
	return &Manager{
		collection: db.Collection("twawl_rules"),
		store:      store,
		logger:     logger,
	}
}

// Find retrieves the rule with the given name, checking the cache first.
func (m *Manager) Find(ctx context.Context, name string) (*TwawlRule, error) {
	name = strings.ToLower(name)
	cacheKey := cache.Key(cachePrefix, name)

	if cached, found, err := m.store.Get(ctx, cacheKey); err == nil && found {
		var rule TwawlRule
		if err := json.Unmarshal([]byte(cached), &rule); err == nil {
			m.logger.Debugf("returned twawl rule %s from the cache", name)
			return &rule, nil
		}
		// a malformed cache entry falls through to the database
	}

	var rule TwawlRule
	err := m.collection.FindOne(ctx, bson.M{"rule_name": name}).Decode(&rule)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}

	m.cacheRule(ctx, &rule)
	return &rule, nil
}

// FindOrCreate retrieves the rule with the given name, creating and persisting a
// fresh one when none exists.
func (m *Manager) FindOrCreate(ctx context.Context, name string) (*TwawlRule, error) {
	rule, err := m.Find(ctx, name)
	if err == nil {
		return rule, nil
	}
	if !errors.Is(err, ErrRuleNotFound) {
		return nil, err
	}

	rule = &TwawlRule{
		ID:       primitive.NewObjectID(),
		RuleName: strings.ToLower(name),
	}
	if err := m.save(ctx, rule); err != nil {
		return nil, err
	}

	m.cacheRule(ctx, rule)
	return rule, nil
}

// Save persists the rule and invalidates the cached copy. Used by the admin
// surface when the query or language of a rule changes.
func (m *Manager) Save(ctx context.Context, rule *TwawlRule) error {
	rule.RuleName = strings.ToLower(rule.RuleName)
	if rule.ID.IsZero() {
		rule.ID = primitive.NewObjectID()
	}

	if err := m.save(ctx, rule); err != nil {
		return err
	}
	return m.store.Delete(ctx, cache.Key(cachePrefix, rule.RuleName))
}

// Update records the results of a twawl run against the rule: the new high tweet
// watermark, the number of tweets processed and the search time. The cached copy
// is invalidated afterwards.
func (m *Manager) Update(ctx context.Context, rule *TwawlRule, highTweetID, tweetsIncrement int64) error {
	rule.LastSearch = time.Now().UTC()
	rule.HighTweetID = highTweetID
	rule.TotalTweets += tweetsIncrement

	if err := m.save(ctx, rule); err != nil {
		return err
	}

	m.logger.Infof("successfully processed %d tweets, high tweet id now %d", tweetsIncrement, highTweetID)

	return m.store.Delete(ctx, cache.Key(cachePrefix, rule.RuleName))
}

// List returns all rules, most recently searched first.
func (m *Manager) List(ctx context.Context) ([]TwawlRule, error) {
	opts := options.Find().SetSort(bson.D{{Key: "last_search", Value: -1}})
	cursor, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rules []TwawlRule
	if err := cursor.All(ctx, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func (m *Manager) save(ctx context.Context, rule *TwawlRule) error {
	_, err := m.collection.UpdateOne(
		ctx,
		bson.M{"rule_name": rule.RuleName},
		bson.M{"$set": rule},
		options.Update().SetUpsert(true),
	)
	return err
}

func (m *Manager) cacheRule(ctx context.Context, rule *TwawlRule) {
	encoded, err := json.Marshal(rule)
	if err != nil {
		return
	}
	if err := m.store.Set(ctx, cache.Key(cachePrefix, rule.RuleName), string(encoded), ruleCacheTTL); err != nil {
		m.logger.Errorf("unable to write the twawl rule %s to the cache: %v", rule.RuleName, err)
	}
}
