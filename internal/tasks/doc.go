// Package tasks contains the twawl task: the sliced background job that calls the
// twitter search API for a rule, inspects the returned tweets, persists the ones
// worth keeping and maintains the rule's high-water mark and daily history.
// The Service wraps task construction and execution behind a single Twawl call so
// the web surface, the scheduler and the broker consumer all trigger runs the same way.
package tasks
