// This file contains the Manager implementation, which is responsible for interacting
// with the MongoDB twawl_history collection. FindOrCreateToday deliberately does not
// write the new record; the twawl task saves once at the end of a run to keep the
// number of writes down.

package history

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
	// ErrHistoryNotFound is returned when no history record matches the lookup.
	ErrHistoryNotFound = errors.New("twawl history not found")
)

const (
	cachePrefix     = "twawlHistory"
	historyCacheTTL = 5 * time.Minute
)

type Manager struct {
	collection *mongo.Collection
	store      cache.Store
	logger     *log.Logger
}

// NewManager creates a new Manager backed by the gaetools.twawl_history collection.
func NewManager(client *mongo.Client, store cache.Store, logger *log.Logger) *Manager {
	db := client.Database("gaetools")
	return &Manager{
		collection: db.Collection("twawl_history"),
		store:      store,
		logger:     logger,
	}
}

// Find retrieves the history record for a rule on a given day, checking the cache
// before the database.
func (m *Manager) Find(ctx context.Context, ruleName string, day time.Time) (*TwawlHistory, error) {
	ruleName = strings.ToLower(ruleName)
	dateKey := DateKey(day)
	cacheKey := cache.Key(cachePrefix, ruleName, dateKey)

	if cached, found, err := m.store.Get(ctx, cacheKey); err == nil && found {
		var record TwawlHistory
		if err := json.Unmarshal([]byte(cached), &record); err == nil {
			m.logger.Debugf("returned twawl history %s/%s from the cache", ruleName, dateKey)
			return &record, nil
		}
	}

	var record TwawlHistory
	err := m.collection.FindOne(ctx, bson.M{"rule_name": ruleName, "search_date": dateKey}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrHistoryNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindOrCreateToday returns today's history record for the rule. A new record is
// NOT persisted here; a write happens at the end of the twawl run via Save, so we
// should leave it until then.
func (m *Manager) FindOrCreateToday(ctx context.Context, ruleName string) (*TwawlHistory, error) {
	record, err := m.Find(ctx, ruleName, time.Now().UTC())
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, ErrHistoryNotFound) {
		return nil, err
	}

	return &TwawlHistory{
		RuleName:   strings.ToLower(ruleName),
		SearchDate: DateKey(time.Now().UTC()),
	}, nil
}

// Save upserts the history record and refreshes the cached copy.
func (m *Manager) Save(ctx context.Context, record *TwawlHistory) error {
	if record.ID.IsZero() {
		record.ID = primitive.NewObjectID()
	}

	_, err := m.collection.UpdateOne(
		ctx,
		bson.M{"rule_name": record.RuleName, "search_date": record.SearchDate},
		bson.M{"$set": record},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(record)
	if err == nil {
		cacheKey := cache.Key(cachePrefix, record.RuleName, record.SearchDate)
		if err := m.store.Set(ctx, cacheKey, string(encoded), historyCacheTTL); err != nil {
			m.logger.Errorf("unable to write twawl history %s/%s to the cache: %v", record.RuleName, record.SearchDate, err)
		}
	}
	return nil
}

// ListForRule returns the most recent history records for a rule, newest first.
func (m *Manager) ListForRule(ctx context.Context, ruleName string, limit int64) ([]TwawlHistory, error) {
	if limit <= 0 {
		limit = 30
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "search_date", Value: -1}}).
		SetLimit(limit)

	cursor, err := m.collection.Find(ctx, bson.M{"rule_name": strings.ToLower(ruleName)}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []TwawlHistory
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
