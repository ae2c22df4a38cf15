// Package twitter is a thin wrapper around the twitter HTTP API, covering the
// pieces the twawler needs: the search endpoint, credential verification and the
// OAuth 1.0a token dance. It is deliberately not a full client library; request
// signing is delegated to dghubble/oauth1 and tokens are persisted through the
// token model manager so a background service can reuse them across runs.
package twitter
