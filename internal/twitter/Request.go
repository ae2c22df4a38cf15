// This file contains the Client that executes API requests. Individual request types
// (search, verify credentials) implement the apiRequest interface; the client takes
// care of resolving an access token, signing and the HTTP round trip.

package twitter

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/frankk00/gaetools/internal/log"
)

// Authorizer supplies signed HTTP clients; satisfied by *Auth.
type Authorizer interface {
	HTTPClient(ctx context.Context, allowInit bool, requestKey string) (*http.Client, error)
}

// apiRequest is implemented by each wrapped API call.
type apiRequest interface {
	// requestURL returns the full URL of the resource being accessed.
	requestURL(config *Config) string
	// processResponse parses a successful (200) response body.
	processResponse(body []byte) error
	// markResult records whether the round trip succeeded.
	markResult(successful bool)
}

// RequestOptions carry the per-call authentication behaviour. AllowInit permits
// starting a fresh OAuth authorization when no token is available; RequestKey
// selects a previously persisted token.
type RequestOptions struct {
	AllowInit  bool
	RequestKey string
}

type Client struct {
	config *Config
	auth   Authorizer
	logger *log.Logger
}

func NewClient(config *Config, auth Authorizer, logger *log.Logger) *Client {
	return &Client{
		config: config,
		auth:   auth,
		logger: logger,
	}
}

// do executes the request. A non-200 response is logged and reflected in the
// request's Successful flag but is not an error; transport and auth failures are.
func (c *Client) do(ctx context.Context, req apiRequest, opts RequestOptions) error {
	req.markResult(false)

	httpClient, err := c.auth.HTTPClient(ctx, opts.AllowInit, opts.RequestKey)
	if err != nil {
		return err
	}

	target := req.requestURL(c.config)
	c.logger.Debugf("attempting to perform twitter api call: %s", target)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("twitter api call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warnf("twitter api call failed, status code = %d", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if err := req.processResponse(body); err != nil {
		return err
	}
	req.markResult(true)
	return nil
}
