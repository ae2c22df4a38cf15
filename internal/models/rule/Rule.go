package rule

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TwawlRule defines one search the system is running. Rules group together the
// history records for a search and carry the high tweet watermark.
type TwawlRule struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	RuleName string             `bson:"rule_name" json:"rule_name"`
	// Query is the search term. When empty the rule name itself is searched.
	Query    string `bson:"query,omitempty" json:"query,omitempty"`
	Language string `bson:"language,omitempty" json:"language,omitempty"`

	LastSearch  time.Time `bson:"last_search,omitempty" json:"last_search,omitempty"`
	HighTweetID int64     `bson:"high_tweet_id" json:"high_tweet_id"`
	TotalTweets int64     `bson:"total_tweets" json:"total_tweets"`
}

// SearchQuery returns the term to search for under this rule.
func (r *TwawlRule) SearchQuery() string {
	if r.Query != "" {
		return r.Query
	}
	return r.RuleName
}
