package twitter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/frankk00/gaetools/internal/log"
	"github.com/frankk00/gaetools/internal/models/token"
)

// memoryTokenStore keeps auth requests in a map, standing in for the mongo-backed
// token manager.
type memoryTokenStore struct {
	records map[string]*token.AuthRequest
}

func newMemoryTokenStore() *memoryTokenStore {
	return &memoryTokenStore{records: make(map[string]*token.AuthRequest)}
}

func (s *memoryTokenStore) FindByRequestKey(ctx context.Context, key string) (*token.AuthRequest, error) {
	record, ok := s.records[key]
	if !ok {
		return nil, token.ErrTokenNotFound
	}
	return record, nil
}

func (s *memoryTokenStore) FindOrCreate(ctx context.Context, key, partnerID string) (*token.AuthRequest, error) {
	if record, ok := s.records[key]; ok {
		return record, nil
	}
	if partnerID == "" {
		partnerID = token.DefaultPartnerID
	}
	return &token.AuthRequest{
		PartnerID:  partnerID,
		RequestKey: key,
		CreateDate: time.Now().UTC(),
	}, nil
}

func (s *memoryTokenStore) Save(ctx context.Context, request *token.AuthRequest) error {
	s.records[request.RequestKey] = request
	return nil
}

func TestTokenEncodeDecodeRoundTrip(t *testing.T) {
	encoded := encodeToken("tok-1", "secret-1")

	tok, secret, err := decodeToken(encoded)
	if err != nil {
		t.Fatalf("decodeToken failed: %v", err)
	}
	if tok != "tok-1" || secret != "secret-1" {
		t.Errorf("round trip mismatch: %s / %s", tok, secret)
	}
}

func TestDecodeTokenRejectsMissingToken(t *testing.T) {
	if _, _, err := decodeToken("oauth_token_secret=only"); err == nil {
		t.Error("expected an error for a missing oauth_token")
	}
}

func TestBeginAuthorizationPersistsRequestToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/request_token" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte("oauth_token=req1&oauth_token_secret=sec1&oauth_callback_confirmed=true"))
	}))
	defer server.Close()

	config := &Config{
		ConsumerKey:     "ck",
		ConsumerSecret:  "cs",
		CallbackURL:     "oob",
		RequestTokenURL: server.URL + "/oauth/request_token",
		AuthorizeURL:    server.URL + "/oauth/authorize",
		AccessTokenURL:  server.URL + "/oauth/access_token",
	}

	store := newMemoryTokenStore()
	auth := NewAuth(config, store, log.NewNop())

	authURL, err := auth.BeginAuthorization(context.Background(), "partner-a")
	if err != nil {
		t.Fatalf("BeginAuthorization failed: %v", err)
	}

	if !strings.Contains(authURL, "oauth_token=req1") {
		t.Errorf("expected the authorization URL to carry the request token, got %s", authURL)
	}

	record, ok := store.records["req1"]
	if !ok {
		t.Fatal("expected the request token to be persisted")
	}
	if record.PartnerID != "partner-a" {
		t.Errorf("unexpected partner: %s", record.PartnerID)
	}

	tok, secret, err := decodeToken(record.RequestKeyEncoded)
	if err != nil {
		t.Fatalf("stored request token is malformed: %v", err)
	}
	if tok != "req1" || secret != "sec1" {
		t.Errorf("unexpected stored token: %s / %s", tok, secret)
	}
}

func TestAccessTokenReturnsStoredToken(t *testing.T) {
	store := newMemoryTokenStore()
	store.records["rk"] = &token.AuthRequest{
		RequestKey:       "rk",
		AccessKeyEncoded: encodeToken("at", "as"),
	}

	config := &Config{ConsumerKey: "ck", ConsumerSecret: "cs"}
	config.applyDefaults()
	auth := NewAuth(config, store, log.NewNop())

	tok, err := auth.AccessToken(context.Background(), false, "rk")
	if err != nil {
		t.Fatalf("AccessToken failed: %v", err)
	}
	if tok.Token != "at" || tok.TokenSecret != "as" {
		t.Errorf("unexpected token: %+v", tok)
	}
}

func TestAccessTokenWithoutInitFails(t *testing.T) {
	config := &Config{ConsumerKey: "ck", ConsumerSecret: "cs"}
	config.applyDefaults()
	auth := NewAuth(config, newMemoryTokenStore(), log.NewNop())

	_, err := auth.AccessToken(context.Background(), false, "")
	if !errors.Is(err, ErrNoAccessToken) {
		t.Fatalf("expected ErrNoAccessToken, got %v", err)
	}
}

func TestAccessTokenWithInitSurfacesAuthorizationURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("oauth_token=req2&oauth_token_secret=sec2&oauth_callback_confirmed=true"))
	}))
	defer server.Close()

	config := &Config{
		ConsumerKey:     "ck",
		ConsumerSecret:  "cs",
		CallbackURL:     "oob",
		RequestTokenURL: server.URL + "/oauth/request_token",
		AuthorizeURL:    server.URL + "/oauth/authorize",
		AccessTokenURL:  server.URL + "/oauth/access_token",
	}
	auth := NewAuth(config, newMemoryTokenStore(), log.NewNop())

	_, err := auth.AccessToken(context.Background(), true, "")

	var authErr *AuthRequiredError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthRequiredError, got %v", err)
	}
	if !strings.Contains(authErr.AuthorizationURL, "oauth_token=req2") {
		t.Errorf("unexpected authorization URL: %s", authErr.AuthorizationURL)
	}
}
