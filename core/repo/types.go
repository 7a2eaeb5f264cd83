package repo

import "sort"

// AclChangeSet is an atomic batch of permission mutations.
type AclChangeSet struct {
	// ID is the monotonic change-set id.
	ID int64 `json:"id"`
	// CommitTimeMs is the upstream commit time in epoch milliseconds.
	CommitTimeMs int64 `json:"commit_time_ms"`
	// AclCount is the number of ACLs in the change-set.
	AclCount int `json:"acl_count"`
}

// Acl belongs to exactly one change-set.
type Acl struct {
	ID          int64 `json:"id"`
	ChangeSetID int64 `json:"change_set_id"`
}

// AclReaders is the full reader and denied authority lists of one ACL.
// A later fetch for the same ACL replaces both lists.
type AclReaders struct {
	AclID   int64    `json:"acl_id"`
	Readers []string `json:"readers"`
	Denied  []string `json:"denied"`
}

// Transaction is an atomic batch of node mutations.
type Transaction struct {
	// ID is the monotonic transaction id.
	ID int64 `json:"id"`
	// CommitTimeMs is the upstream commit time in epoch milliseconds.
	CommitTimeMs int64 `json:"commit_time_ms"`
	// NodeCount is the number of nodes touched by the transaction.
	NodeCount int `json:"node_count"`
}

// NodeStatus is the mutation kind of a node within a transaction.
type NodeStatus string

const (
	StatusUpdated NodeStatus = "u"
	StatusDeleted NodeStatus = "d"
)

// Node is one node mutation.
type Node struct {
	// ID is the DBID, globally unique and monotonically assigned upstream.
	ID int64 `json:"id"`
	// NodeRef is the logical identity, stable across DBIDs.
	NodeRef string     `json:"node_ref"`
	TxnID   int64      `json:"txn_id"`
	AclID   int64      `json:"acl_id"`
	Status  NodeStatus `json:"status"`
	// ShardPropertyValue is an optional routing hint computed upstream.
	ShardPropertyValue *string `json:"shard_property_value,omitempty"`
}

// PropertyKind discriminates PropertyValue.
type PropertyKind string

const (
	KindText    PropertyKind = "text"
	KindContent PropertyKind = "content"
	KindMulti   PropertyKind = "multi"
)

// ContentDescriptor describes a binary content property without its bytes.
type ContentDescriptor struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
	Encoding string `json:"encoding"`
	Locale   string `json:"locale"`
}

// PropertyValue is a text, content or multi-valued property.
type PropertyValue struct {
	Kind    PropertyKind       `json:"kind"`
	Text    string             `json:"text,omitempty"`
	Content *ContentDescriptor `json:"content,omitempty"`
	Values  []string           `json:"values,omitempty"`
}

// Text returns a single-valued text property.
func Text(s string) PropertyValue { return PropertyValue{Kind: KindText, Text: s} }

// Multi returns a multi-valued property.
func Multi(vs ...string) PropertyValue { return PropertyValue{Kind: KindMulti, Values: vs} }

// Content returns a content property.
func Content(d ContentDescriptor) PropertyValue { return PropertyValue{Kind: KindContent, Content: &d} }

// Strings flattens the value into the strings that get indexed.
func (v PropertyValue) Strings() []string {
	switch v.Kind {
	case KindMulti:
		return v.Values
	case KindContent:
		if v.Content == nil {
			return nil
		}
		return []string{v.Content.MimeType}
	default:
		if v.Text == "" {
			return nil
		}
		return []string{v.Text}
	}
}

// First returns the first indexed string, or "" when there is none.
func (v PropertyValue) First() string {
	if s := v.Strings(); len(s) > 0 {
		return s[0]
	}
	return ""
}

// NodeMetadata is the indexable state of a node.
type NodeMetadata struct {
	NodeID  int64  `json:"node_id"`
	NodeRef string `json:"node_ref"`
	Type    string `json:"type"`
	Owner   string `json:"owner"`
	// Ancestors are ordered from the root down to the direct parent.
	Ancestors  []string                 `json:"ancestors"`
	Properties map[string]PropertyValue `json:"properties"`
	// IsContentIndexed false means content properties are never indexed.
	IsContentIndexed bool `json:"is_content_indexed"`
}

// ContentProperties returns the qnames of content-bearing properties, sorted.
func (m NodeMetadata) ContentProperties() []string {
	var out []string
	for qname, v := range m.Properties {
		if v.Kind == KindContent {
			out = append(out, qname)
		}
	}
	sort.Strings(out)
	return out
}

// PropertyDef describes one property of a data model.
type PropertyDef struct {
	QName    string `json:"qname"`
	DataType string `json:"data_type"`
	// Indexed false keeps the property out of node documents.
	Indexed bool `json:"indexed"`
}

// Model is a data-model definition.
type Model struct {
	Name       string        `json:"name"`
	Checksum   string        `json:"checksum"`
	Properties []PropertyDef `json:"properties"`
}
