package index

import "sort"

// Query selects documents. Zero-valued fields do not constrain the result.
type Query struct {
	Type           DocType
	NodeID         int64
	NodeRef        string
	TxnID          int64
	AclID          int64
	AclChangeSetID int64
	// Reader matches documents that grant read to this authority.
	Reader string
	// Ancestor matches documents with this nodeRef on their ancestor path.
	Ancestor string
	// Text matches property values and extracted content.
	Text          string
	ContentStatus ContentStatus
	// CascadePending restricts to documents awaiting a cascade.
	CascadePending bool
	// AfterNodeID pages by node id: only NodeID > AfterNodeID is returned.
	AfterNodeID int64
	// Limit caps the result size; 0 means unbounded.
	Limit int
}

// Matches reports whether d satisfies every set field of q.
func (q Query) Matches(d *Document) bool {
	switch {
	case q.Type != "" && d.Type != q.Type:
		return false
	case q.NodeID != 0 && d.NodeID != q.NodeID:
		return false
	case q.NodeRef != "" && d.NodeRef != q.NodeRef:
		return false
	case q.TxnID != 0 && d.TxnID != q.TxnID:
		return false
	case q.AclID != 0 && d.AclID != q.AclID:
		return false
	case q.AclChangeSetID != 0 && d.AclChangeSetID != q.AclChangeSetID:
		return false
	case q.ContentStatus != "" && d.ContentStatus != q.ContentStatus:
		return false
	case q.CascadePending && !d.CascadePending:
		return false
	case q.AfterNodeID != 0 && d.NodeID <= q.AfterNodeID:
		return false
	case q.Reader != "" && !d.HasReader(q.Reader):
		return false
	case q.Ancestor != "" && !d.HasAncestor(q.Ancestor):
		return false
	case q.Text != "" && !d.ContainsText(q.Text):
		return false
	}
	return true
}

// SortAndLimit orders docs by node id then key and applies q.Limit.
func (q Query) SortAndLimit(docs []Document) []Document {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].NodeID != docs[j].NodeID {
			return docs[i].NodeID < docs[j].NodeID
		}
		return docs[i].Key < docs[j].Key
	})
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs
}
