// Package content extracts the text of content properties for node documents
// the metadata tracker marked dirty, caching it in a content store.
package content
