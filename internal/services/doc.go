// Package services contains the broker integration for the twawler.
//
// The MQService is an amqp 0.9.1 broker-agnostic handler with two jobs: publishing
// every saved tweet to the tweets.found queue for downstream consumers, and
// consuming twawl.requests so other systems can trigger an on-demand twawl for a
// rule without going through the HTTP surface.
package services
