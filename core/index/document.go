package index

import (
	"strconv"
	"strings"
	"time"
)

// DocType classifies index documents.
type DocType string

const (
	// DocNode is the searchable document of an owned node.
	DocNode DocType = "node"
	// DocError marks a node that failed to index. It never coexists with the DocNode of the same id.
	DocError DocType = "error"
	// DocAcl carries the reader and denied authorities of one ACL.
	DocAcl DocType = "acl"
	// DocAclTx records that an ACL change-set was indexed.
	DocAclTx DocType = "acltx"
	// DocTx records that a transaction was indexed.
	DocTx DocType = "tx"
	// DocModel stores one data-model definition.
	DocModel DocType = "model"
	// DocState holds tracker state such as the published range cap.
	DocState DocType = "state"
)

// Key prefixes, one per document type.
const (
	PrefixNode  = "NODE!"
	PrefixError = "ERROR!"
	PrefixAcl   = "ACL!"
	PrefixAclTx = "ACLTX!"
	PrefixTx    = "TX!"
	PrefixModel = "MODEL!"
	PrefixState = "TRACKER!STATE!"
)

// CapKey holds the upper DBID bound published after a range expansion.
const CapKey = PrefixState + "CAP"

func NodeKey(id int64) string { return PrefixNode + strconv.FormatInt(id, 10) }
func ErrorKey(id int64) string { return PrefixError + strconv.FormatInt(id, 10) }
func AclKey(id int64) string { return PrefixAcl + strconv.FormatInt(id, 10) }
func AclTxKey(id int64) string { return PrefixAclTx + strconv.FormatInt(id, 10) }
func TxKey(id int64) string { return PrefixTx + strconv.FormatInt(id, 10) }
func ModelKey(name string) string { return PrefixModel + name }

// ContentStatus tracks extraction of a node's content properties.
type ContentStatus string

const (
	// ContentNone means the node has no indexable content.
	ContentNone ContentStatus = ""
	// ContentDirty means the content tracker still has to fetch the text.
	ContentDirty ContentStatus = "dirty"
	// ContentClean means the extracted text is current.
	ContentClean ContentStatus = "clean"
)

// Document is the unit the sinks store. Fields unused by a type stay zero.
type Document struct {
	Key  string  `json:"key"`
	Type DocType `json:"type"`

	NodeID         int64  `json:"node_id,omitempty"`
	NodeRef        string `json:"node_ref,omitempty"`
	TxnID          int64  `json:"txn_id,omitempty"`
	AclID          int64  `json:"acl_id,omitempty"`
	AclChangeSetID int64  `json:"acl_change_set_id,omitempty"`
	CommitTimeMs   int64  `json:"commit_time_ms,omitempty"`

	NodeType   string              `json:"node_type,omitempty"`
	Owner      string              `json:"owner,omitempty"`
	Ancestors  []string            `json:"ancestors,omitempty"`
	Properties map[string][]string `json:"properties,omitempty"`

	// ContentProps are the content-bearing qnames; empty when content is not indexed.
	ContentProps  []string      `json:"content_props,omitempty"`
	ContentStatus ContentStatus `json:"content_status,omitempty"`
	// ContentURLs maps each content qname to the URL of its current version.
	ContentURLs map[string]string `json:"content_urls,omitempty"`
	// Content is the extracted text, keyed by qname.
	Content map[string]string `json:"content,omitempty"`
	// ContentRef locates the compressed text in the content store, when one is configured.
	ContentRef string `json:"content_ref,omitempty"`

	// CascadePending is set when the ancestor path changed and descendants need rewriting.
	CascadePending bool `json:"cascade_pending,omitempty"`

	Readers []string `json:"readers,omitempty"`
	Denied  []string `json:"denied,omitempty"`

	// Error and Attempts describe a failed node on DocError documents.
	Error    string `json:"error,omitempty"`
	Attempts int    `json:"attempts,omitempty"`

	// Value carries scalar state, e.g. the range cap.
	Value    int64  `json:"value,omitempty"`
	Checksum string `json:"checksum,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
	// Revision is the generation of the commit that last wrote the document.
	Revision int64 `json:"revision,omitempty"`
}

// HasReader reports whether authority is an allowed, non-denied reader.
func (d *Document) HasReader(authority string) bool {
	for _, x := range d.Denied {
		if x == authority {
			return false
		}
	}
	for _, x := range d.Readers {
		if x == authority {
			return true
		}
	}
	return false
}

// HasAncestor reports whether nodeRef is on the document's ancestor path.
func (d *Document) HasAncestor(nodeRef string) bool {
	for _, a := range d.Ancestors {
		if a == nodeRef {
			return true
		}
	}
	return false
}

// ContainsText reports whether text occurs, case-insensitively, in any property
// value or extracted content.
func (d *Document) ContainsText(text string) bool {
	needle := strings.ToLower(text)
	for _, vs := range d.Properties {
		for _, v := range vs {
			if strings.Contains(strings.ToLower(v), needle) {
				return true
			}
		}
	}
	for _, c := range d.Content {
		if strings.Contains(strings.ToLower(c), needle) {
			return true
		}
	}
	return false
}
