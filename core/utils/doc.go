// Package utils holds small conversion helpers shared by the SQL change source
// (raw driver values) and the admin surfaces (ids from paths and arguments).
package utils
