// Package pebblesink is an embedded index sink on a pebble key-value store.
//
// Documents live under "d/<key>" as JSON, watermarks under "w/<space>" and the
// commit generation under "g". A commit is one synced pebble batch.
package pebblesink
