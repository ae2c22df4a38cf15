// Package rule contains the implementation of interacting with the MongoDB twawl_rules collection.
// A twawl rule names a search the system is running and carries its high-water mark, so repeated
// searches only process tweets that have not been seen before. Rules are read on every twawl step,
// so lookups go through the cache first; updates write through and invalidate the cached copy.
// BSON is used to interact with the database.
package rule
