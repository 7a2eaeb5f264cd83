// Package metadata tracks transactions and writes the node documents owned by
// the local shard instance.
//
// A node that cannot be indexed is recorded as an error marker instead of a
// document; the two never coexist. The rest of its transaction is indexed and
// the watermark advances past it. Retry and reindex replace the marker once
// the node indexes cleanly.
package metadata
