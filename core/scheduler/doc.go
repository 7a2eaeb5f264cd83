// Package scheduler runs tracker cycles on independent cron cadences.
//
// A Trigger wraps one tracker and drops firings that overlap a running cycle.
package scheduler
