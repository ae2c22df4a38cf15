// Package tweet contains the implementation of interacting with the MongoDB tweets and
// twitter_users collections. The Manager converts search results into persisted documents,
// resolving the sending and receiving twitter users (created on first sight) by their
// numeric twitter ids. BSON is used to interact with the database.
package tweet
