// Package history contains the implementation of interacting with the MongoDB twawl_history collection.
// A history record is a daily log per rule of the number of tweets found and the id of the last tweet
// processed for that day, which lets the search routine pick up from where the day's crawling stopped.
// BSON is used to interact with the database.
package history
