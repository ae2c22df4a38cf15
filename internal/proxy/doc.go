// Package proxy implements a configurable content proxy: requests matching a
// configured prefix are rewritten against a base URL and fetched, which lets an
// application pull remote content through its own origin. The caching variant
// stores fetched bodies so repeated requests do not hit the upstream. Please use
// this for good and not evil.
package proxy
