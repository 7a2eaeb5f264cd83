package reconcile

import (
	"context"
	"fmt"
	"sort"

	"github.com/Alfresco/SearchServices-sub009/core/index"

	"go.uber.org/zap"
)

// purgeQuery selects every document derived from target:
//   - acl: the ACL document and every node or error document carrying the ACL
//   - aclchangeset: the ACL documents of the change-set and its ACLTX marker
//   - transaction: the node and error documents of the transaction and its TX marker
//   - node: the node document and its error marker
func purgeQuery(target Target) (index.Query, error) {
	switch target.Kind {
	case TargetAcl:
		return index.Query{AclID: target.ID}, nil
	case TargetAclChangeSet:
		return index.Query{AclChangeSetID: target.ID}, nil
	case TargetTransaction:
		return index.Query{TxnID: target.ID}, nil
	case TargetNode:
		return index.Query{NodeID: target.ID}, nil
	}
	return index.Query{}, fmt.Errorf("%w: %s", ErrNoHandler, target.Kind)
}

// PlanPurge lists the documents a purge of target would remove. It does not
// modify the index.
func (c *Core) PlanPurge(ctx context.Context, target Target) (PurgePlan, error) {
	plan := PurgePlan{Target: target, Keys: []string{}}
	if target.ID <= 0 {
		return plan, fmt.Errorf("invalid %s id %d", target.Kind, target.ID)
	}
	q, err := purgeQuery(target)
	if err != nil {
		return plan, err
	}
	docs, err := c.sink.Find(ctx, q)
	if err != nil {
		return plan, err
	}

	nodes := make(map[int64]struct{})
	for _, d := range docs {
		plan.Keys = append(plan.Keys, d.Key)
		if d.Type == index.DocNode || d.Type == index.DocError {
			nodes[d.NodeID] = struct{}{}
		}
	}
	if target.Kind == TargetNode {
		nodes[target.ID] = struct{}{}
	}
	for id := range nodes {
		plan.NodeIDs = append(plan.NodeIDs, id)
	}
	sort.Strings(plan.Keys)
	sort.Slice(plan.NodeIDs, func(i, j int) bool { return plan.NodeIDs[i] < plan.NodeIDs[j] })
	return plan, nil
}

// ApplyPurge deletes the documents of plan in one commit and drops the cached
// content text of its nodes. Nothing is deleted unless opts.Confirmed is set
// and opts.DryRun is not.
func (c *Core) ApplyPurge(ctx context.Context, plan PurgePlan, opts PurgeOptions) (MaintenanceResult, error) {
	op := "purge_" + string(plan.Target.Kind)
	target := plan.Target
	res := MaintenanceResult{Op: op, Target: &target}

	if opts.DryRun {
		res.Status = StatusDryRun
		res.Message = fmt.Sprintf("would delete %d documents", len(plan.Keys))
		return res, nil
	}
	if !opts.Confirmed {
		res.Status = StatusFailed
		res.Message = ErrNotConfirmed.Error()
		return res, ErrNotConfirmed
	}

	batch := c.sink.NewBatch()
	for _, k := range plan.Keys {
		batch.Delete(k)
	}
	gen, err := c.commitPurge(ctx, batch)
	if err == nil && c.content != nil {
		for _, id := range plan.NodeIDs {
			if err = c.content.DeleteNode(ctx, id); err != nil {
				err = fmt.Errorf("drop content of node %d: %w", id, err)
				break
			}
		}
	}
	c.metrics.ObserveMaintenance(c.name, op, err)
	if err != nil {
		res.Status = StatusFailed
		res.Message = err.Error()
		c.log.Warn("Purge failed", zap.String("op", op), zap.Int64("id", target.ID), zap.Error(err))
		return res, err
	}

	res.Status = StatusOK
	res.Generation = gen
	res.Outcome.Deleted = len(plan.Keys)
	c.log.Info("Purge complete", zap.String("op", op), zap.Int64("id", target.ID), zap.Int("deleted", len(plan.Keys)))
	return res, nil
}

func (c *Core) commitPurge(ctx context.Context, batch *index.Batch) (int64, error) {
	if batch.Empty() {
		return c.sink.LastCommittedGeneration(ctx)
	}
	return batch.Commit(ctx)
}

type purgeOutcome struct {
	plan PurgePlan
	res  MaintenanceResult
}

// Purge plans and applies a purge of target.
func (c *Core) Purge(ctx context.Context, target Target, opts PurgeOptions) (PurgePlan, MaintenanceResult, error) {
	key := fmt.Sprintf("purge:%s:%d:%t:%t", target.Kind, target.ID, opts.DryRun, opts.Confirmed)
	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		plan, err := c.PlanPurge(ctx, target)
		if err != nil {
			t := target
			return purgeOutcome{plan: plan, res: MaintenanceResult{
				Op: "purge_" + string(target.Kind), Target: &t, Status: StatusFailed, Message: err.Error(),
			}}, err
		}
		res, err := c.ApplyPurge(ctx, plan, opts)
		return purgeOutcome{plan: plan, res: res}, err
	})
	out, _ := v.(purgeOutcome)
	return out.plan, out.res, err
}

var confirmed = PurgeOptions{Confirmed: true}

// PurgeAclID removes the ACL document and every document carrying the ACL.
func (c *Core) PurgeAclID(ctx context.Context, id int64) (MaintenanceResult, error) {
	_, res, err := c.Purge(ctx, Target{Kind: TargetAcl, ID: id}, confirmed)
	return res, err
}

// PurgeNodeID removes the node document, its error marker and its cached content.
func (c *Core) PurgeNodeID(ctx context.Context, id int64) (MaintenanceResult, error) {
	_, res, err := c.Purge(ctx, Target{Kind: TargetNode, ID: id}, confirmed)
	return res, err
}

// PurgeTransactionID removes every document of the transaction and its marker.
func (c *Core) PurgeTransactionID(ctx context.Context, id int64) (MaintenanceResult, error) {
	_, res, err := c.Purge(ctx, Target{Kind: TargetTransaction, ID: id}, confirmed)
	return res, err
}

// PurgeAclChangeSetID removes the ACL documents of the change-set and its marker.
func (c *Core) PurgeAclChangeSetID(ctx context.Context, id int64) (MaintenanceResult, error) {
	_, res, err := c.Purge(ctx, Target{Kind: TargetAclChangeSet, ID: id}, confirmed)
	return res, err
}
