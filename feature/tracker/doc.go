// Package tracker is the admin HTTP surface of a hosted core: tracker state and
// cycles, reindex and purge maintenance, range expansion, reports and document
// queries.
package tracker
