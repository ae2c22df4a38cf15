// This file contains the Config struct and its YAML loader. Configurations are small
// and read often (every request construction), so the raw file content is kept in the
// cache and only read from disk on a miss.

package twitter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/frankk00/gaetools/internal/cache"
	"github.com/frankk00/gaetools/internal/log"
)

// Default endpoint locations. These can be overridden per configuration file,
// which is also how tests point the client at a local server.
const (
	DefaultRequestTokenURL = "https://api.twitter.com/oauth/request_token"
	DefaultAccessTokenURL  = "https://api.twitter.com/oauth/access_token"
	DefaultAuthorizeURL    = "https://api.twitter.com/oauth/authorize"
	DefaultSearchBaseURL   = "https://search.twitter.com/"
	DefaultAPIBaseURL      = "https://api.twitter.com/"
)

// DefaultConfigName is the configuration loaded when no name is specified.
const DefaultConfigName = "twitter"

const configCacheTTL = 10 * time.Minute

// Config holds the consumer credentials and endpoint locations for a twitter
// configuration. One application may carry several (one per partner account).
type Config struct {
	ConsumerKey    string `yaml:"consumerKey"`
	ConsumerSecret string `yaml:"consumerSecret"`
	CallbackURL    string `yaml:"callbackUrl"`

	RequestTokenURL string `yaml:"requestTokenUrl"`
	AccessTokenURL  string `yaml:"accessTokenUrl"`
	AuthorizeURL    string `yaml:"authorizeUrl"`
	SearchBaseURL   string `yaml:"searchBaseUrl"`
	APIBaseURL      string `yaml:"apiBaseUrl"`
}

// LoadConfig reads the named configuration from <dir>/<name>.yaml, going through
// the cache first. Endpoint fields left empty in the file get the defaults.
func LoadConfig(ctx context.Context, name, dir string, store cache.Store, logger *log.Logger) (*Config, error) {
	if name == "" {
		name = DefaultConfigName
	}

	cacheKey := cache.Key("twitter-config", name)

	raw, found, err := store.Get(ctx, cacheKey)
	if err != nil {
		logger.Errorf("unable to read twitter config %s from the cache: %v", name, err)
	}

	if !found {
		data, err := os.ReadFile(filepath.Join(dir, name+".yaml"))
		if err != nil {
			return nil, fmt.Errorf("failed to read twitter config %s: %w", name, err)
		}
		raw = string(data)

		if err := store.Set(ctx, cacheKey, raw, configCacheTTL); err != nil {
			logger.Errorf("unable to write twitter config %s to the cache: %v", name, err)
		}
	} else {
		logger.Debugf("returned twitter config %s from the cache", name)
	}

	var config Config
	if err := yaml.Unmarshal([]byte(raw), &config); err != nil {
		return nil, fmt.Errorf("failed to parse twitter config %s: %w", name, err)
	}
	config.applyDefaults()

	logger.Debugf("loaded twitter config %s, consumerKey = %s", name, config.ConsumerKey)
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.RequestTokenURL == "" {
		c.RequestTokenURL = DefaultRequestTokenURL
	}
	if c.AccessTokenURL == "" {
		c.AccessTokenURL = DefaultAccessTokenURL
	}
	if c.AuthorizeURL == "" {
		c.AuthorizeURL = DefaultAuthorizeURL
	}
	if c.SearchBaseURL == "" {
		c.SearchBaseURL = DefaultSearchBaseURL
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
}
