package repo

import (
	"context"

	"golang.org/x/time/rate"
)

// WithRateLimit throttles every call to src through limiter.
// A nil limiter returns src unchanged.
func WithRateLimit(src Source, limiter *rate.Limiter) Source {
	if limiter == nil {
		return src
	}
	return &limitedSource{src: src, limiter: limiter}
}

type limitedSource struct {
	src     Source
	limiter *rate.Limiter
}

func (l *limitedSource) GetAclChangeSets(ctx context.Context, fromID int64, limit int) ([]AclChangeSet, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.src.GetAclChangeSets(ctx, fromID, limit)
}

func (l *limitedSource) GetAcls(ctx context.Context, changeSetID int64) ([]Acl, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.src.GetAcls(ctx, changeSetID)
}

func (l *limitedSource) GetAclReaders(ctx context.Context, aclID int64) (AclReaders, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return AclReaders{}, err
	}
	return l.src.GetAclReaders(ctx, aclID)
}

func (l *limitedSource) GetTransactions(ctx context.Context, fromID int64, limit int) ([]Transaction, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.src.GetTransactions(ctx, fromID, limit)
}

func (l *limitedSource) GetNodes(ctx context.Context, txnID int64) ([]Node, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.src.GetNodes(ctx, txnID)
}

func (l *limitedSource) GetNodeMetadata(ctx context.Context, nodeRef string) (NodeMetadata, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return NodeMetadata{}, err
	}
	return l.src.GetNodeMetadata(ctx, nodeRef)
}

func (l *limitedSource) GetNode(ctx context.Context, id int64) (Node, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return Node{}, err
	}
	return l.src.GetNode(ctx, id)
}
