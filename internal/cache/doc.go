// Package cache provides the caching layer shared by the model managers, the twitter
// configuration loader and the content proxy. A Store is a simple string key/value
// interface with TTL support; RedisStore is the deployment implementation and
// MemoryStore is an in-process fallback used when no Redis address is configured
// (and by tests). Composite cache keys are built with Key.
package cache
