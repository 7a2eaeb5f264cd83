package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/Alfresco/SearchServices-sub009/core/index"
	"github.com/Alfresco/SearchServices-sub009/core/metrics"
	"github.com/Alfresco/SearchServices-sub009/core/reconcile"
	"github.com/Alfresco/SearchServices-sub009/core/shard"

	"go.uber.org/zap"
)

// ErrReadOnly is returned for writes on a node that does not track.
var ErrReadOnly = errors.New("tracker: node does not track, index is replicated")

// DefaultDocumentLimit caps document queries without an explicit limit.
const DefaultDocumentLimit = 100

// Service exposes one hosted core to the admin API.
type Service struct {
	core    *reconcile.Core
	metrics *metrics.Metrics
	logger  *zap.Logger
	tracks  bool
}

// NewService creates a tracker service. When tracks is false every operation
// that writes to the index is refused.
func NewService(core *reconcile.Core, m *metrics.Metrics, logger *zap.Logger, tracks bool) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{core: core, metrics: m, logger: logger, tracks: tracks}
}

func (s *Service) writable() error {
	if !s.tracks {
		return ErrReadOnly
	}
	return nil
}

func (s *Service) Summary(ctx context.Context) (reconcile.Summary, error) {
	return s.core.Summary(ctx)
}

func (s *Service) Tracker(ctx context.Context, name string) (reconcile.TrackerState, error) {
	return s.core.TrackerState(ctx, name)
}

// Run starts one cycle of the named tracker and waits for it.
func (s *Service) Run(ctx context.Context, name string) (reconcile.CycleResult, error) {
	if err := s.writable(); err != nil {
		return reconcile.CycleResult{}, err
	}
	return s.core.Run(ctx, name)
}

// Reindex dispatches a reindex to the tracker that handles target.
func (s *Service) Reindex(ctx context.Context, target reconcile.Target) (reconcile.MaintenanceResult, error) {
	if err := s.writable(); err != nil {
		return reconcile.MaintenanceResult{}, err
	}
	return s.core.Reindex(ctx, target)
}

// IndexAcl writes an ACL without dropping its stored document first.
func (s *Service) IndexAcl(ctx context.Context, id int64) (reconcile.MaintenanceResult, error) {
	if err := s.writable(); err != nil {
		return reconcile.MaintenanceResult{}, err
	}
	return s.core.IndexAclID(ctx, id)
}

func (s *Service) Purge(ctx context.Context, target reconcile.Target, opts reconcile.PurgeOptions) (reconcile.PurgePlan, reconcile.MaintenanceResult, error) {
	if !opts.DryRun {
		if err := s.writable(); err != nil {
			return reconcile.PurgePlan{}, reconcile.MaintenanceResult{}, err
		}
	}
	return s.core.Purge(ctx, target, opts)
}

func (s *Service) Retry(ctx context.Context) (reconcile.RetryResult, error) {
	if err := s.writable(); err != nil {
		return reconcile.RetryResult{}, err
	}
	return s.core.Retry(ctx)
}

func (s *Service) RangeCheck(ctx context.Context) (shard.RangeCheck, error) {
	return s.core.RangeCheck(ctx)
}

// Expand grows the local range by delta.
func (s *Service) Expand(ctx context.Context, delta int64) (int64, error) {
	if err := s.writable(); err != nil {
		return -1, err
	}
	return s.core.Expand(ctx, s.core.Instance(), delta)
}

// Report returns the comparison report of one entity.
func (s *Service) Report(ctx context.Context, kind string, id int64) (any, error) {
	switch kind {
	case "node":
		return s.core.NodeReport(ctx, id)
	case "tx":
		return s.core.TxReport(ctx, id)
	case "acl":
		return s.core.AclReport(ctx, id)
	case "acltx":
		return s.core.AclTxReport(ctx, id)
	}
	return nil, fmt.Errorf("%w: unknown report %q", errBadRequest, kind)
}

// Documents runs a query against the index.
func (s *Service) Documents(ctx context.Context, q index.Query) ([]index.Document, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultDocumentLimit
	}
	return s.core.Sink().Find(ctx, q)
}
