// This file contains the proxy configuration loader. The configuration is a YAML
// list of match/baseUrl pairs; the raw file content goes through the cache the same
// way the twitter configuration does.

package proxy

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

// DefaultConfigName is the configuration loaded when no name is specified.
const DefaultConfigName = "proxy"

const configCacheTTL = 10 * time.Minute

// Entry maps a request prefix onto an upstream base URL.
type Entry struct {
	Match   string `yaml:"match"`
	BaseURL string `yaml:"baseUrl"`
}

type Config struct {
	Entries []Entry
}

// LoadConfig reads the named proxy configuration from <dir>/<name>.yaml, going
// through the cache first, and validates it.
func LoadConfig(ctx context.Context, name, dir string, store cache.Store, logger *log.Logger) (*Config, error) {
	if name == "" {
		name = DefaultConfigName
	}

	cacheKey := cache.Key("proxy-config", name)

	raw, found, err := store.Get(ctx, cacheKey)
	if err != nil {
		logger.Errorf("unable to read proxy config %s from the cache: %v", name, err)
	}

	if !found {
		data, err := os.ReadFile(filepath.Join(dir, name+".yaml"))
		if err != nil {
			return nil, fmt.Errorf("failed to read proxy config %s: %w", name, err)
		}
		raw = string(data)
	}

	var entries []Entry
	if err := yaml.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("failed to parse proxy config %s: %w", name, err)
	}

	config := &Config{Entries: entries}
	if err := config.validate(logger); err != nil {
		return nil, err
	}

	if !found {
		if err := store.Set(ctx, cacheKey, raw, configCacheTTL); err != nil {
			logger.Errorf("unable to write proxy config %s to the cache: %v", name, err)
		}
	}

	return config, nil
}

// validate checks the configuration for errors in the format. An empty
// configuration is not an error, the proxy just won't match anything.
func (c *Config) validate(logger *log.Logger) error {
	if len(c.Entries) == 0 {
		logger.Warn("the proxy configuration is empty, the content proxy will behave similar to an inert gas")
		return nil
	}

	for i, entry := range c.Entries {
		if entry.Match == "" {
			return fmt.Errorf("proxy config entry %d: missing match", i)
		}
		if entry.BaseURL == "" {
			return fmt.Errorf("proxy config entry %d: missing baseUrl", i)
		}
	}
	return nil
}
