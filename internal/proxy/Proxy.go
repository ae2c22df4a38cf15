// This file contains the ContentProxy and its caching variant. The caching proxy is
// pretty much mandatory for production use; background processes can clear cache
// entries when the proxy should refresh particular objects.

package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/frankk00/gaetools/internal/cache"
	"github.com/frankk00/gaetools/internal/log"
)

var (
	// ErrNoProxyMatch is returned when no configuration entry matches the URI.
	ErrNoProxyMatch = errors.New("no proxy configuration matches the requested uri")
)

// Content is a fetched response body with its content type.
type Content struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type ContentProxy struct {
	config     *Config
	httpClient *http.Client
	logger     *log.Logger
}

func NewContentProxy(config *Config, logger *log.Logger) *ContentProxy {
	return &ContentProxy{
		config:     config,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		logger:     logger,
	}
}

// Get fetches the content for the given uri through the first matching
// configuration entry.
func (p *ContentProxy) Get(ctx context.Context, uri string) (*Content, error) {
	p.logger.Debugf("requested %s", uri)

	for _, entry := range p.config.Entries {
		if strings.HasPrefix(uri, entry.Match) {
			target := entry.BaseURL + strings.TrimPrefix(uri, entry.Match)
			return p.fetch(ctx, target)
		}
	}

	return nil, ErrNoProxyMatch
}

func (p *ContentProxy) fetch(ctx context.Context, target string) (*Content, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("proxy fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("proxy fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Content{
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// CachingContentProxy extends the ContentProxy with cache-aside retrieval.
type CachingContentProxy struct {
	*ContentProxy
	store  cache.Store
	ttl    time.Duration
	logger *log.Logger
}

func NewCachingContentProxy(config *Config, store cache.Store, ttl time.Duration, logger *log.Logger) *CachingContentProxy {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachingContentProxy{
		ContentProxy: NewContentProxy(config, logger),
		store:        store,
		ttl:          ttl,
		logger:       logger,
	}
}

// Get returns the cached content for the uri, fetching and caching on a miss.
func (p *CachingContentProxy) Get(ctx context.Context, uri string) (*Content, error) {
	cacheKey := cache.Key("proxy", uri)

	if cached, found, err := p.store.Get(ctx, cacheKey); err == nil && found {
		var content Content
		if err := json.Unmarshal([]byte(cached), &content); err == nil {
			p.logger.Debugf("returned proxied content for %s from the cache", uri)
			return &content, nil
		}
	}

	content, err := p.ContentProxy.Get(ctx, uri)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(content); err == nil {
		if err := p.store.Set(ctx, cacheKey, string(encoded), p.ttl); err != nil {
			p.logger.Errorf("unable to cache proxied content for %s: %v", uri, err)
		}
	}

	return content, nil
}
