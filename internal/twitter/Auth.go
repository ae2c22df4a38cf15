// This file contains the OAuth 1.0a support for the twitter wrapper. The actual
// signing is handled by dghubble/oauth1; this layer persists the request and access
// tokens through the token manager so a background service can reuse an authorized
// token across runs, and surfaces AuthRequiredError when user interaction is needed.

package twitter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dghubble/oauth1"

	"github.com/frankk00/gaetools/internal/log"
	"github.com/frankk00/gaetools/internal/models/token"
)

var (
	// ErrNoAccessToken is returned when no usable access token is available and
	// initialising a new one was not permitted.
	ErrNoAccessToken = errors.New("no twitter access token available")
)

// AuthRequiredError is returned when an OAuth authorization step needs user
// interaction. It carries the URL the user has to visit to authorize the request
// token, so callers can bubble it right up to the surface and redirect.
type AuthRequiredError struct {
	AuthorizationURL string
}

func (e *AuthRequiredError) Error() string {
	return "twitter authorization required: visit " + e.AuthorizationURL
}

// TokenStore is the persistence interface Auth needs; satisfied by *token.Manager.
type TokenStore interface {
	FindByRequestKey(ctx context.Context, key string) (*token.AuthRequest, error)
	FindOrCreate(ctx context.Context, key, partnerID string) (*token.AuthRequest, error)
	Save(ctx context.Context, request *token.AuthRequest) error
}

// Auth wraps the twitter OAuth dance and makes it very simple to obtain a signed
// HTTP client for API calls.
type Auth struct {
	config *Config
	oauth  *oauth1.Config
	tokens TokenStore
	logger *log.Logger
}

func NewAuth(config *Config, tokens TokenStore, logger *log.Logger) *Auth {
	return &Auth{
		config: config,
		oauth: &oauth1.Config{
			ConsumerKey:    config.ConsumerKey,
			ConsumerSecret: config.ConsumerSecret,
			CallbackURL:    config.CallbackURL,
			Endpoint: oauth1.Endpoint{
				RequestTokenURL: config.RequestTokenURL,
				AuthorizeURL:    config.AuthorizeURL,
				AccessTokenURL:  config.AccessTokenURL,
			},
		},
		tokens: tokens,
		logger: logger,
	}
}

// BeginAuthorization obtains a new request token, persists it and returns the URL
// the user must visit to authorize it.
func (a *Auth) BeginAuthorization(ctx context.Context, partnerID string) (string, error) {
	requestToken, requestSecret, err := a.oauth.RequestToken()
	if err != nil {
		return "", fmt.Errorf("unable to obtain request token: %w", err)
	}
	a.logger.Debugf("received request token %s", requestToken)

	record, err := a.tokens.FindOrCreate(ctx, requestToken, partnerID)
	if err != nil {
		return "", err
	}
	record.RequestKeyEncoded = encodeToken(requestToken, requestSecret)
	if err := a.tokens.Save(ctx, record); err != nil {
		return "", err
	}

	authorizationURL, err := a.oauth.AuthorizationURL(requestToken)
	if err != nil {
		return "", err
	}

	a.logger.Debugf("need to call: %s", authorizationURL.String())
	return authorizationURL.String(), nil
}

// CompleteAuthorization exchanges an authorized request token and verifier for an
// access token, persisting it against the original auth request.
func (a *Auth) CompleteAuthorization(ctx context.Context, requestToken, verifier string) (*oauth1.Token, error) {
	record, err := a.tokens.FindByRequestKey(ctx, requestToken)
	if err != nil {
		return nil, err
	}

	_, requestSecret, err := decodeToken(record.RequestKeyEncoded)
	if err != nil {
		return nil, fmt.Errorf("stored request token is malformed: %w", err)
	}

	accessToken, accessSecret, err := a.oauth.AccessToken(requestToken, requestSecret, verifier)
	if err != nil {
		return nil, fmt.Errorf("unable to obtain access token: %w", err)
	}

	record.AccessKeyEncoded = encodeToken(accessToken, accessSecret)
	if err := a.tokens.Save(ctx, record); err != nil {
		return nil, err
	}

	a.logger.Infof("access token stored for request key %s", requestToken)
	return oauth1.NewToken(accessToken, accessSecret), nil
}

// AccessToken resolves the access token to use for an API call.
//
// When requestKey is set the persisted token for that key is returned. Otherwise,
// if allowInit is set, a fresh authorization is started and AuthRequiredError is
// returned carrying the authorization URL; if not, ErrNoAccessToken.
func (a *Auth) AccessToken(ctx context.Context, allowInit bool, requestKey string) (*oauth1.Token, error) {
	a.logger.Debugf("access token requested: allowInit = %v, request key = %s", allowInit, requestKey)

	if requestKey != "" {
		record, err := a.tokens.FindByRequestKey(ctx, requestKey)
		if err != nil {
			return nil, err
		}
		if record.Authorized() {
			accessToken, accessSecret, err := decodeToken(record.AccessKeyEncoded)
			if err != nil {
				return nil, fmt.Errorf("stored access token is malformed: %w", err)
			}
			a.logger.Debugf("access token for request key %s retrieved from the database", requestKey)
			return oauth1.NewToken(accessToken, accessSecret), nil
		}
	}

	if !allowInit {
		a.logger.Error("unable to contact twitter, access token unknown")
		return nil, ErrNoAccessToken
	}

	authorizationURL, err := a.BeginAuthorization(ctx, "")
	if err != nil {
		return nil, err
	}
	return nil, &AuthRequiredError{AuthorizationURL: authorizationURL}
}

// HTTPClient returns an HTTP client that signs requests with the resolved access
// token. The same error semantics as AccessToken apply.
func (a *Auth) HTTPClient(ctx context.Context, allowInit bool, requestKey string) (*http.Client, error) {
	tok, err := a.AccessToken(ctx, allowInit, requestKey)
	if err != nil {
		return nil, err
	}
	return a.oauth.Client(ctx, tok), nil
}

// encodeToken serializes a token pair in the classic oauth_token form, matching
// what older twitter tooling stored.
func encodeToken(tok, secret string) string {
	values := url.Values{}
	values.Set("oauth_token", tok)
	values.Set("oauth_token_secret", secret)
	return values.Encode()
}

func decodeToken(encoded string) (tok, secret string, err error) {
	values, err := url.ParseQuery(encoded)
	if err != nil {
		return "", "", err
	}
	tok = values.Get("oauth_token")
	secret = values.Get("oauth_token_secret")
	if tok == "" {
		return "", "", errors.New("missing oauth_token")
	}
	return tok, secret, nil
}
