// Package token contains the implementation of interacting with the MongoDB auth_requests collection.
// The Manager struct is responsible for persisting OAuth request and access tokens so a background
// service can reuse an authorized token across runs. Interaction is primarily by request key.
// BSON is used to interact with the database.
package token
