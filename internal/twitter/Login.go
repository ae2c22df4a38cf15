// This file contains the LoginRequest, which wraps account/verify_credentials.json
// and populates profile details for the authenticated account.

package twitter

import (
	"context"
	"encoding/json"
	"strings"
)

const verifyCredentialsAction = "account/verify_credentials.json"

// DefaultLocation is reported for accounts that have no location in their profile.
const DefaultLocation = "The Twitterverse"

type LoginRequest struct {
	TwitterID       int64
	ScreenName      string
	RealName        string
	ProfileImageURL string
	Location        string
	FollowersCount  int
	DateCreated     string
	UTCOffset       int

	// Successful records whether the API call returned a usable response.
	Successful bool
}

type verifyCredentialsResponse struct {
	ID              int64  `json:"id"`
	ScreenName      string `json:"screen_name"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profile_image_url"`
	Location        string `json:"location"`
	FollowersCount  int    `json:"followers_count"`
	CreatedAt       string `json:"created_at"`
	UTCOffset       int    `json:"utc_offset"`
}

// VerifyCredentials executes a login request using the token identified by the
// given options.
func (c *Client) VerifyCredentials(ctx context.Context, req *LoginRequest, opts RequestOptions) error {
	return c.do(ctx, req, opts)
}

func (r *LoginRequest) requestURL(config *Config) string {
	return config.APIBaseURL + verifyCredentialsAction
}

func (r *LoginRequest) processResponse(body []byte) error {
	var response verifyCredentialsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return err
	}

	r.TwitterID = response.ID
	r.ScreenName = response.ScreenName
	r.RealName = response.Name
	r.FollowersCount = response.FollowersCount
	r.DateCreated = response.CreatedAt
	r.UTCOffset = response.UTCOffset

	// swap the standard avatar for the larger variant
	r.ProfileImageURL = strings.Replace(response.ProfileImageURL, "_normal.jpg", "_bigger.jpg", 1)

	r.Location = response.Location
	if r.Location == "" {
		r.Location = DefaultLocation
	}

	return nil
}

func (r *LoginRequest) markResult(successful bool) {
	r.Successful = successful
}
