// This file contains the SearchRequest, which wraps the search.json endpoint. The
// request carries a since_id watermark so repeated searches only return tweets newer
// than what has already been processed, and a next_page continuation for walking
// multi-page result sets.

package twitter

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/frankk00/gaetools/internal/log"
)

const (
	searchAction = "search.json"

	// DefaultPageSize is the number of results requested per page.
	DefaultPageSize = 50
)

type SearchRequest struct {
	// Query is the search term.
	Query string
	// HighTweetID is the since_id watermark; only newer tweets are returned.
	HighTweetID int64
	// Language restricts results to an ISO 639-1 language code when set.
	Language string
	// NextPage is a continuation fragment from a previous response. When set it
	// takes precedence over the other parameters. After execution it holds the
	// continuation for the following page, or "" when the results are exhausted.
	NextPage string
	// PageSize overrides DefaultPageSize when positive.
	PageSize int

	// Tweets collects the parsed results.
	Tweets []Tweet
	// Successful records whether the API call returned a usable response.
	Successful bool

	logger *log.Logger
	// callback receives each tweet as it is parsed
	callback func(*Tweet)
}

type searchResponse struct {
	Results  []searchResult `json:"results"`
	NextPage string         `json:"next_page"`
}

type searchResult struct {
	ID              int64  `json:"id"`
	CreatedAt       string `json:"created_at"`
	FromUser        string `json:"from_user"`
	FromUserID      int64  `json:"from_user_id"`
	ToUserID        int64  `json:"to_user_id"`
	Text            string `json:"text"`
	ProfileImageURL string `json:"profile_image_url"`
	Source          string `json:"source"`
	ISOLanguageCode string `json:"iso_language_code"`
}

// Search executes a search request. Each parsed tweet is passed to the callback
// (which may be nil) before being appended to req.Tweets.
func (c *Client) Search(ctx context.Context, req *SearchRequest, callback func(*Tweet)) error {
	req.logger = c.logger
	req.callback = callback
	return c.do(ctx, req, RequestOptions{})
}

// SearchWithOptions is Search with explicit authentication options, used when a
// trigger supplies its own request token or permits OAuth initialisation.
func (c *Client) SearchWithOptions(ctx context.Context, req *SearchRequest, callback func(*Tweet), opts RequestOptions) error {
	req.logger = c.logger
	req.callback = callback
	return c.do(ctx, req, opts)
}

func (r *SearchRequest) requestURL(config *Config) string {
	base := config.SearchBaseURL + searchAction

	// a continuation already encodes the full query string
	if r.NextPage != "" {
		return base + r.NextPage
	}

	pageSize := r.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	values := url.Values{}
	values.Set("rpp", strconv.Itoa(pageSize))
	values.Set("q", r.Query)
	values.Set("since_id", strconv.FormatInt(r.HighTweetID, 10))
	if r.Language != "" {
		values.Set("lang", r.Language)
	}

	return base + "?" + values.Encode()
}

func (r *SearchRequest) processResponse(body []byte) error {
	var response searchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return err
	}

	r.NextPage = response.NextPage
	if r.NextPage != "" {
		r.logger.Info("another page of results found, will continue search")
	}

	for _, result := range response.Results {
		tweet := result.toTweet()

		if r.callback != nil {
			r.callback(&tweet)
		}
		r.Tweets = append(r.Tweets, tweet)
	}

	return nil
}

func (r *SearchRequest) markResult(successful bool) {
	r.Successful = successful
}

func (sr *searchResult) toTweet() Tweet {
	tweet := Tweet{
		ID:              sr.ID,
		FromUser:        sr.FromUser,
		FromUserID:      sr.FromUserID,
		ToUserID:        sr.ToUserID,
		Text:            sr.Text,
		ProfileImageURL: sr.ProfileImageURL,
		Source:          sr.Source,
		ISOLanguageCode: sr.ISOLanguageCode,
		WorthSaving:     true,
	}
	tweet.CreatedAt = parseTimestamp(sr.CreatedAt)
	return tweet
}
