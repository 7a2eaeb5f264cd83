// Package repo defines the change source: the repository of record whose two
// append-only logs (transactions of node mutations, and ACL change-sets) the
// trackers reconcile into the index.
//
// Source is the interface every tracker consumes. Two implementations live in
// subpackages:
//
//   - memory: an in-process fake with failure injection, used by tests.
//   - sqlsource: a gorm reader over the repository database tables.
//
// ContentSource and ModelSource are optional capabilities; a Source that also
// implements them feeds the content and model trackers.
//
// Errors from the transport are wrapped in FetchError. Lookups of unknown ids
// return a NotFoundError, which matches ErrNotFound.
package repo
