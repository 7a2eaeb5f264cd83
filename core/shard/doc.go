// Package shard decides which shard instance owns a node.
//
// MOD, DATE, PROPERTY and EXPLICIT_ID are stateless. DB_ID_RANGE keeps a
// mutable range for the local instance: it can be expanded once by an operator
// and is read through a per-cycle snapshot by the metadata tracker.
package shard
