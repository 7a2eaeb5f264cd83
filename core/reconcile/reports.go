package reconcile

import (
	"context"
	"errors"

	"github.com/Alfresco/SearchServices-sub009/core/index"
	"github.com/Alfresco/SearchServices-sub009/core/repo"
	"github.com/Alfresco/SearchServices-sub009/core/shard"
)

// NodeReport compares one node in the repository with its state in the index.
type NodeReport struct {
	NodeID        int64               `json:"node_id"`
	DBTxID        int64               `json:"db_tx_id,omitempty"`
	DBStatus      repo.NodeStatus     `json:"db_status,omitempty"`
	Owned         bool                `json:"owned"`
	Indexed       bool                `json:"indexed"`
	IndexTxID     int64               `json:"index_tx_id,omitempty"`
	ContentStatus index.ContentStatus `json:"content_status,omitempty"`
	Error         string              `json:"error,omitempty"`
}

// TxReport compares one transaction with its indexed node documents.
type TxReport struct {
	TxID           int64 `json:"tx_id"`
	DBNodeCount    int   `json:"db_node_count"`
	IndexedNodes   int   `json:"indexed_nodes"`
	ErrorNodes     int   `json:"error_nodes"`
	MarkerIndexed  bool  `json:"marker_indexed"`
	BelowWatermark bool  `json:"below_watermark"`
}

// AclReport is the indexed state of one ACL.
type AclReport struct {
	AclID       int64    `json:"acl_id"`
	Indexed     bool     `json:"indexed"`
	ChangeSetID int64    `json:"change_set_id,omitempty"`
	Readers     []string `json:"readers,omitempty"`
	Denied      []string `json:"denied,omitempty"`
}

// AclTxReport compares one ACL change-set with its indexed ACL documents.
type AclTxReport struct {
	AclTxID        int64 `json:"acl_tx_id"`
	DBAclCount     int   `json:"db_acl_count"`
	IndexedAcls    int   `json:"indexed_acls"`
	MarkerIndexed  bool  `json:"marker_indexed"`
	BelowWatermark bool  `json:"below_watermark"`
}

func (c *Core) lookup(ctx context.Context, key string) (index.Document, bool, error) {
	d, err := c.sink.Get(ctx, key)
	if errors.Is(err, index.ErrNotFound) {
		return index.Document{}, false, nil
	}
	return d, err == nil, err
}

// NodeReport reports the repository and index state of node id.
func (c *Core) NodeReport(ctx context.Context, id int64) (NodeReport, error) {
	r := NodeReport{NodeID: id}

	n, err := c.source.GetNode(ctx, id)
	switch {
	case err == nil:
		r.DBTxID = n.TxnID
		r.DBStatus = n.Status
		p := shard.Stable(c.policy)
		var md *repo.NodeMetadata
		if p.NeedsMetadata() && n.Status != repo.StatusDeleted {
			if m, err := c.source.GetNodeMetadata(ctx, n.NodeRef); err == nil {
				md = &m
			}
		}
		r.Owned = p.Owns(c.instance, n, md)
	case !errors.Is(err, repo.ErrNotFound):
		return r, err
	}

	doc, ok, err := c.lookup(ctx, index.NodeKey(id))
	if err != nil {
		return r, err
	}
	if ok {
		r.Indexed = true
		r.IndexTxID = doc.TxnID
		r.ContentStatus = doc.ContentStatus
	}
	marker, ok, err := c.lookup(ctx, index.ErrorKey(id))
	if err != nil {
		return r, err
	}
	if ok {
		r.Error = marker.Error
	}
	return r, nil
}

// TxReport reports the repository and index state of transaction id.
func (c *Core) TxReport(ctx context.Context, id int64) (TxReport, error) {
	r := TxReport{TxID: id}

	nodes, err := c.source.GetNodes(ctx, id)
	if err != nil {
		return r, err
	}
	r.DBNodeCount = len(nodes)

	if r.IndexedNodes, err = c.sink.Count(ctx, index.Query{Type: index.DocNode, TxnID: id}); err != nil {
		return r, err
	}
	if r.ErrorNodes, err = c.sink.Count(ctx, index.Query{Type: index.DocError, TxnID: id}); err != nil {
		return r, err
	}
	if _, r.MarkerIndexed, err = c.lookup(ctx, index.TxKey(id)); err != nil {
		return r, err
	}
	w, err := c.sink.Watermark(ctx, index.SpaceTx)
	if err != nil {
		return r, err
	}
	r.BelowWatermark = id <= w.LastIndexedID
	return r, nil
}

// AclReport reports the indexed reader lists of ACL id.
func (c *Core) AclReport(ctx context.Context, id int64) (AclReport, error) {
	r := AclReport{AclID: id}
	doc, ok, err := c.lookup(ctx, index.AclKey(id))
	if err != nil || !ok {
		return r, err
	}
	r.Indexed = true
	r.ChangeSetID = doc.AclChangeSetID
	r.Readers = doc.Readers
	r.Denied = doc.Denied
	return r, nil
}

// AclTxReport reports the repository and index state of ACL change-set id.
func (c *Core) AclTxReport(ctx context.Context, id int64) (AclTxReport, error) {
	r := AclTxReport{AclTxID: id}

	acls, err := c.source.GetAcls(ctx, id)
	if err != nil {
		return r, err
	}
	r.DBAclCount = len(acls)

	if r.IndexedAcls, err = c.sink.Count(ctx, index.Query{Type: index.DocAcl, AclChangeSetID: id}); err != nil {
		return r, err
	}
	if _, r.MarkerIndexed, err = c.lookup(ctx, index.AclTxKey(id)); err != nil {
		return r, err
	}
	w, err := c.sink.Watermark(ctx, index.SpaceAclTx)
	if err != nil {
		return r, err
	}
	r.BelowWatermark = id <= w.LastIndexedID
	return r, nil
}
