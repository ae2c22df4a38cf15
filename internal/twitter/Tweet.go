package twitter

import (
	"strconv"
	"time"
)

// DateTimeFormat is the timestamp layout used by the twitter search API.
const DateTimeFormat = "Mon, 02 Jan 2006 15:04:05 +0000"

// Tweet is a lightweight value representing one search result. It is intentionally
// not the persistence model; the tweet model manager converts worthwhile tweets
// into database documents.
type Tweet struct {
	ID              int64
	CreatedAt       time.Time
	FromUser        string
	FromUserID      int64
	ToUserID        int64
	Text            string
	ProfileImageURL string
	Source          string
	ISOLanguageCode string

	// WorthSaving is the verdict of the tweet inspectors. Tweets start out as
	// worth saving and inspectors veto them.
	WorthSaving bool
}

func (t *Tweet) String() string {
	return "[" + strconv.FormatInt(t.ID, 10) + "] " + t.FromUser + ": " + t.Text
}

// parseTimestamp parses the search API timestamp format, falling back to the
// current time when the value is missing or malformed.
func parseTimestamp(value string) time.Time {
	createdAt, err := time.Parse(DateTimeFormat, value)
	if err != nil {
		return time.Now().UTC()
	}
	return createdAt
}
