// Package slicer provides time-sliced execution of long-running background work.
//
// Some tasks have far more data to get through than fits in a single bounded run
// (a web request handling a cron trigger, for example, has a hard deadline). A
// Task breaks its work into steps; the Runner executes steps only while the slice
// interval has time remaining, so a task makes incremental progress on every
// invocation and picks up where it left off on the next one.
//
// The Scheduler complements the Runner by invoking named jobs at fixed intervals
// with overlap protection: a tick that arrives while the previous run of the same
// job is still in flight is dropped.
package slicer
