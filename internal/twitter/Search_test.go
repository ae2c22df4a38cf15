package twitter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/frankk00/gaetools/internal/log"
)

// passthroughAuth satisfies Authorizer without any OAuth signing, for tests that
// only exercise the request/response handling.
type passthroughAuth struct{}

func (passthroughAuth) HTTPClient(ctx context.Context, allowInit bool, requestKey string) (*http.Client, error) {
	return http.DefaultClient, nil
}

func testClient(baseURL string) *Client {
	config := &Config{
		SearchBaseURL: baseURL + "/",
		APIBaseURL:    baseURL + "/",
	}
	config.applyDefaults()
	return NewClient(config, passthroughAuth{}, log.NewNop())
}

func TestSearchRequestURL(t *testing.T) {
	config := &Config{SearchBaseURL: "https://search.example.com/"}

	req := &SearchRequest{
		Query:       "#golang",
		HighTweetID: 1234,
		Language:    "en",
	}

	got := req.requestURL(config)
	if !strings.HasPrefix(got, "https://search.example.com/search.json?") {
		t.Fatalf("unexpected URL: %s", got)
	}
	for _, want := range []string{"q=%23golang", "since_id=1234", "lang=en", "rpp=50"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected URL to contain %s, got %s", want, got)
		}
	}
}

func TestSearchRequestURLUsesNextPage(t *testing.T) {
	config := &Config{SearchBaseURL: "https://search.example.com/"}

	req := &SearchRequest{
		Query:    "ignored",
		NextPage: "?page=2&max_id=99&q=%23golang",
	}

	got := req.requestURL(config)
	if got != "https://search.example.com/search.json?page=2&max_id=99&q=%23golang" {
		t.Errorf("expected the continuation to be used verbatim, got %s", got)
	}
}

func TestSearchParsesResults(t *testing.T) {
	const responseBody = `{
		"results": [
			{
				"id": 101,
				"created_at": "Sat, 30 Aug 2026 10:15:00 +0000",
				"from_user": "gopher",
				"from_user_id": 7,
				"to_user_id": 0,
				"text": "slices of time",
				"profile_image_url": "http://img.example.com/gopher_normal.jpg",
				"iso_language_code": "en"
			},
			{
				"id": 102,
				"created_at": "Sat, 30 Aug 2026 10:16:00 +0000",
				"from_user": "ferret",
				"from_user_id": 9,
				"text": "more tweets",
				"iso_language_code": "en"
			}
		],
		"next_page": "?page=2&max_id=102&q=%23golang"
	}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search.json" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(responseBody))
	}))
	defer server.Close()

	client := testClient(server.URL)

	var seen []string
	req := &SearchRequest{Query: "#golang"}
	err := client.Search(context.Background(), req, func(tweet *Tweet) {
		seen = append(seen, tweet.FromUser)
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if !req.Successful {
		t.Error("expected the search to be marked successful")
	}
	if len(req.Tweets) != 2 {
		t.Fatalf("expected 2 tweets, got %d", len(req.Tweets))
	}
	if req.NextPage != "?page=2&max_id=102&q=%23golang" {
		t.Errorf("unexpected next page: %s", req.NextPage)
	}
	if len(seen) != 2 || seen[0] != "gopher" || seen[1] != "ferret" {
		t.Errorf("callback saw unexpected users: %v", seen)
	}

	first := req.Tweets[0]
	if first.ID != 101 || first.Text != "slices of time" {
		t.Errorf("unexpected first tweet: %+v", first)
	}
	if !first.WorthSaving {
		t.Error("tweets should default to worth saving")
	}
	if first.CreatedAt.Day() != 30 || first.CreatedAt.Hour() != 10 {
		t.Errorf("unexpected created at: %v", first.CreatedAt)
	}
}

func TestSearchNon200IsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := testClient(server.URL)

	req := &SearchRequest{Query: "anything"}
	if err := client.Search(context.Background(), req, nil); err != nil {
		t.Fatalf("expected a failed search to be reported via Successful, got error: %v", err)
	}
	if req.Successful {
		t.Error("expected the search to be marked unsuccessful")
	}
	if len(req.Tweets) != 0 {
		t.Errorf("expected no tweets, got %d", len(req.Tweets))
	}
}

func TestVerifyCredentialsParsesProfile(t *testing.T) {
	const responseBody = `{
		"id": 42,
		"screen_name": "gopher",
		"name": "Go Pher",
		"profile_image_url": "http://img.example.com/gopher_normal.jpg",
		"location": "",
		"followers_count": 12,
		"created_at": "Sat, 01 Aug 2026 00:00:00 +0000",
		"utc_offset": 36000
	}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/account/verify_credentials.json" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(responseBody))
	}))
	defer server.Close()

	client := testClient(server.URL)

	req := &LoginRequest{}
	if err := client.VerifyCredentials(context.Background(), req, RequestOptions{}); err != nil {
		t.Fatalf("VerifyCredentials failed: %v", err)
	}

	if !req.Successful {
		t.Error("expected the login to be marked successful")
	}
	if req.TwitterID != 42 || req.ScreenName != "gopher" {
		t.Errorf("unexpected identity: %+v", req)
	}
	if req.ProfileImageURL != "http://img.example.com/gopher_bigger.jpg" {
		t.Errorf("expected the bigger avatar variant, got %s", req.ProfileImageURL)
	}
	if req.Location != DefaultLocation {
		t.Errorf("expected the default location, got %s", req.Location)
	}
	if req.UTCOffset != 36000 {
		t.Errorf("unexpected utc offset: %d", req.UTCOffset)
	}
}
