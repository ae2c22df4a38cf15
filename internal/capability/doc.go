// Package capability proactively probes the services the application depends on,
// so degraded dependencies show up in a status report instead of as scattered
// exceptions in request handlers. Checks are plain probe functions; the default
// set covers the database, the cache, the message broker and the search API.
package capability
