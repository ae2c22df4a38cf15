package history

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DateFormat is the layout used for the search_date field.
const DateFormat = "2006-01-02"

// TwawlHistory is the daily aggregate for one rule: the number of tweets found
// and the high tweet watermark for that day.
type TwawlHistory struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	RuleName    string             `bson:"rule_name" json:"rule_name"`
	SearchDate  string             `bson:"search_date" json:"search_date"`
	TotalTweets int64              `bson:"total_tweets" json:"total_tweets"`
	HighTweetID int64              `bson:"high_tweet_id" json:"high_tweet_id"`
}

// DateKey formats a time as a history search date (UTC calendar day).
func DateKey(t time.Time) string {
	return t.UTC().Format(DateFormat)
}
