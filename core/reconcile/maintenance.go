package reconcile

import (
	"context"
	"fmt"

	"github.com/Alfresco/SearchServices-sub009/core/index"
	"github.com/Alfresco/SearchServices-sub009/core/shard"

	"go.uber.org/zap"
)

func (c *Core) reindexerFor(kind TargetKind) (Reindexer, error) {
	for _, a := range c.adapters {
		if r, ok := a.(Reindexer); ok && r.Handles(kind) {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoHandler, kind)
}

// coalesce runs fn once for concurrent callers with the same key.
func (c *Core) coalesce(key string, fn func() (MaintenanceResult, error)) (MaintenanceResult, error) {
	v, err, shared := c.sf.Do(key, func() (interface{}, error) {
		return fn()
	})
	if shared {
		c.log.Debug("Coalesced maintenance request", zap.String("key", key))
	}
	res, _ := v.(MaintenanceResult)
	return res, err
}

func (c *Core) reindex(ctx context.Context, op string, target Target, mode Mode) (MaintenanceResult, error) {
	key := fmt.Sprintf("%s:%s:%d", op, target.Kind, target.ID)
	return c.coalesce(key, func() (MaintenanceResult, error) {
		res := MaintenanceResult{Op: op, Target: &target, Status: StatusFailed}

		r, err := c.reindexerFor(target.Kind)
		if err != nil {
			res.Message = err.Error()
			return res, err
		}
		batch := c.sink.NewBatch()
		out, err := r.Reindex(ctx, target, mode, batch)
		if err == nil {
			res.Generation, err = batch.Commit(ctx)
		}
		c.metrics.ObserveMaintenance(c.name, op, err)
		if err != nil {
			res.Message = err.Error()
			c.log.Warn("Maintenance failed", zap.String("op", op), zap.Int64("id", target.ID), zap.Error(err))
			return res, err
		}
		res.Status = StatusOK
		res.Outcome = out
		c.log.Info("Maintenance complete", zap.String("op", op), zap.Int64("id", target.ID),
			zap.Int("written", out.Written), zap.Int("deleted", out.Deleted), zap.Int("errors", out.Errors))
		return res, nil
	})
}

// ReindexTransactionID rewrites every node of a transaction, replacing any
// stored document or error marker.
func (c *Core) ReindexTransactionID(ctx context.Context, id int64) (MaintenanceResult, error) {
	return c.reindex(ctx, "reindex_transaction", Target{Kind: TargetTransaction, ID: id}, ModeReindex)
}

// ReindexNodeID rewrites one node.
func (c *Core) ReindexNodeID(ctx context.Context, id int64) (MaintenanceResult, error) {
	return c.reindex(ctx, "reindex_node", Target{Kind: TargetNode, ID: id}, ModeReindex)
}

// IndexAclID fetches the reader lists of an ACL and writes its document.
func (c *Core) IndexAclID(ctx context.Context, id int64) (MaintenanceResult, error) {
	return c.reindex(ctx, "index_acl", Target{Kind: TargetAcl, ID: id}, ModeIndex)
}

// ReindexAclID fully replaces the reader document of an ACL.
func (c *Core) ReindexAclID(ctx context.Context, id int64) (MaintenanceResult, error) {
	return c.reindex(ctx, "reindex_acl", Target{Kind: TargetAcl, ID: id}, ModeReindex)
}

// ReindexAclChangeSetID reindexes every ACL of a change-set.
func (c *Core) ReindexAclChangeSetID(ctx context.Context, id int64) (MaintenanceResult, error) {
	return c.reindex(ctx, "reindex_aclchangeset", Target{Kind: TargetAclChangeSet, ID: id}, ModeReindex)
}

// Reindex dispatches on target kind.
func (c *Core) Reindex(ctx context.Context, target Target) (MaintenanceResult, error) {
	switch target.Kind {
	case TargetTransaction:
		return c.ReindexTransactionID(ctx, target.ID)
	case TargetNode:
		return c.ReindexNodeID(ctx, target.ID)
	case TargetAcl:
		return c.ReindexAclID(ctx, target.ID)
	case TargetAclChangeSet:
		return c.ReindexAclChangeSetID(ctx, target.ID)
	}
	return MaintenanceResult{}, fmt.Errorf("%w: %s", ErrNoHandler, target.Kind)
}

// Retry reindexes every node that has an error marker. Nodes that index
// cleanly lose their marker; the rest keep it.
func (c *Core) Retry(ctx context.Context) (RetryResult, error) {
	v, err, _ := c.sf.Do("retry", func() (interface{}, error) {
		return c.retry(ctx)
	})
	res, _ := v.(RetryResult)
	return res, err
}

func (c *Core) retry(ctx context.Context) (RetryResult, error) {
	res := RetryResult{Fixed: []int64{}, Failing: []int64{}}

	markers, err := c.sink.Find(ctx, index.Query{Type: index.DocError})
	if err != nil {
		return res, err
	}
	if len(markers) == 0 {
		return res, nil
	}
	r, err := c.reindexerFor(TargetNode)
	if err != nil {
		return res, err
	}

	batch := c.sink.NewBatch()
	for _, m := range markers {
		res.Attempted++
		err := c.retryNode(ctx, r, m.NodeID, batch)
		if err != nil {
			c.log.Warn("Retry aborted", zap.Int64("node", m.NodeID), zap.Error(err))
			c.metrics.ObserveMaintenance(c.name, "retry", err)
			return res, err
		}
		if doc, staged := batch.Lookup(index.ErrorKey(m.NodeID)); staged && doc != nil {
			res.Failing = append(res.Failing, m.NodeID)
		} else {
			res.Fixed = append(res.Fixed, m.NodeID)
		}
	}

	_, err = batch.Commit(ctx)
	c.metrics.ObserveMaintenance(c.name, "retry", err)
	if err != nil {
		return RetryResult{Attempted: res.Attempted, Fixed: []int64{}, Failing: []int64{}}, err
	}
	if n, err := c.sink.Count(ctx, index.Query{Type: index.DocError}); err == nil {
		c.metrics.SetErrorNodes(c.name, n)
	}
	c.log.Info("Retried error nodes", zap.Int("attempted", res.Attempted), zap.Int("fixed", len(res.Fixed)), zap.Int("failing", len(res.Failing)))
	return res, nil
}

// retryNode reindexes one node and lets every Completer finish it in the same batch.
func (c *Core) retryNode(ctx context.Context, r Reindexer, id int64, batch *index.Batch) error {
	if _, err := r.Reindex(ctx, Target{Kind: TargetNode, ID: id}, ModeReindex, batch); err != nil {
		return err
	}
	for _, a := range c.adapters {
		if cp, ok := a.(Completer); ok {
			if _, err := cp.Complete(ctx, id, batch); err != nil {
				return fmt.Errorf("%s: %w", a.Name(), err)
			}
		}
	}
	return nil
}

// RangeCheck reports the density of the local DB_ID_RANGE shard.
func (c *Core) RangeCheck(ctx context.Context) (shard.RangeCheck, error) {
	rp, ok := c.policy.(*shard.RangePolicy)
	if !ok {
		return shard.RangeCheck{Expand: -1}, fmt.Errorf("%w: %s", shard.ErrNotRangePolicy, c.policy.Method())
	}
	if err := c.RefreshRange(ctx); err != nil {
		return shard.RangeCheck{}, err
	}
	return rp.RangeCheck()
}

// Expand grows the range of instance by delta and publishes the new cap.
// It returns the new end, or -1 with the rejection reason.
func (c *Core) Expand(ctx context.Context, instance int, delta int64) (int64, error) {
	rp, ok := c.policy.(*shard.RangePolicy)
	if !ok {
		return -1, fmt.Errorf("%w: %s", shard.ErrNotRangePolicy, c.policy.Method())
	}
	if instance != c.instance {
		return -1, &shard.ExpansionError{Reason: fmt.Sprintf("shard instance %d is not hosted by core %s", instance, c.name)}
	}
	if err := c.RefreshRange(ctx); err != nil {
		return -1, err
	}

	end, err := rp.Expand(delta, func(end int64) error {
		batch := c.sink.NewBatch()
		batch.Upsert(index.Document{Key: index.CapKey, Type: index.DocState, Value: end})
		_, err := batch.Commit(ctx)
		return err
	})
	c.metrics.ObserveMaintenance(c.name, "expand", err)
	if err != nil {
		c.log.Warn("Range expansion rejected", zap.Int64("delta", delta), zap.Error(err))
		return -1, err
	}
	if end > 0 {
		c.log.Info("Range expanded", zap.Int64("end", end))
	}
	return end, nil
}
