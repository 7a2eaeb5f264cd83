package repo

import (
	"context"
	"io"
)

// Source is the repository of record feeding the trackers.
// Every fromID is exclusive: results start strictly above it, in ascending id order.
type Source interface {
	GetAclChangeSets(ctx context.Context, fromID int64, limit int) ([]AclChangeSet, error)
	GetAcls(ctx context.Context, changeSetID int64) ([]Acl, error)
	GetAclReaders(ctx context.Context, aclID int64) (AclReaders, error)
	GetTransactions(ctx context.Context, fromID int64, limit int) ([]Transaction, error)
	GetNodes(ctx context.Context, txnID int64) ([]Node, error)
	GetNodeMetadata(ctx context.Context, nodeRef string) (NodeMetadata, error)
	// GetNode refetches a single node by DBID, in its most recent transaction.
	GetNode(ctx context.Context, id int64) (Node, error)
}

// ContentSource extracts the text of content properties.
type ContentSource interface {
	GetTextContent(ctx context.Context, nodeID int64, qname string) (io.ReadCloser, error)
}

// ModelSource lists the data models known to the repository.
type ModelSource interface {
	GetModels(ctx context.Context) ([]Model, error)
}

// GetTransaction refetches one historical transaction by id.
func GetTransaction(ctx context.Context, src Source, id int64) (Transaction, error) {
	txns, err := src.GetTransactions(ctx, id-1, 1)
	if err != nil {
		return Transaction{}, err
	}
	if len(txns) == 0 || txns[0].ID != id {
		return Transaction{}, &NotFoundError{Kind: "transaction", ID: id}
	}
	return txns[0], nil
}

// GetAclChangeSet refetches one historical ACL change-set by id.
func GetAclChangeSet(ctx context.Context, src Source, id int64) (AclChangeSet, error) {
	sets, err := src.GetAclChangeSets(ctx, id-1, 1)
	if err != nil {
		return AclChangeSet{}, err
	}
	if len(sets) == 0 || sets[0].ID != id {
		return AclChangeSet{}, &NotFoundError{Kind: "acl change-set", ID: id}
	}
	return sets[0], nil
}
