// Package index defines the document sink the trackers write to.
//
// Documents are addressed by typed keys (NODE!, ERROR!, ACL!, ...). Writes are
// staged in a Batch and applied atomically by a sink; the watermark of an id
// space is part of the same commit and is applied after every document, so a
// reader never observes a watermark ahead of the documents it covers.
//
// Three sinks are provided: MemorySink here, sqlsink on top of gorm and
// pebblesink on top of pebble.
package index
