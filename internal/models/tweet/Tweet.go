package tweet

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TwitterUser represents a user in twitter as seen through search results.
type TwitterUser struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	UserID          int64              `bson:"user_id"`
	UserName        string             `bson:"user_name,omitempty"`
	ProfileImageURL string             `bson:"profile_image_url,omitempty"`
}

// Tweet is the persisted form of a search result worth keeping.
type Tweet struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	TweetID         int64              `bson:"tweet_id"`
	CreatedAt       time.Time          `bson:"created_at"`
	RuleName        string             `bson:"rule_name"`
	FromUser        primitive.ObjectID `bson:"from_user"`
	FromUserName    string             `bson:"from_user_name"`
	ProfileImageURL string             `bson:"profile_image_url,omitempty"`
	ToUser          primitive.ObjectID `bson:"to_user,omitempty"`
	Text            string             `bson:"text"`
	ISOLanguageCode string             `bson:"iso_language_code,omitempty"`
}
