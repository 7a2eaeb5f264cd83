package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/Alfresco/SearchServices-sub009/core/content"
	"github.com/Alfresco/SearchServices-sub009/core/index"
	"github.com/Alfresco/SearchServices-sub009/core/metrics"
	"github.com/Alfresco/SearchServices-sub009/core/repo"
	"github.com/Alfresco/SearchServices-sub009/core/shard"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// CoreConfig describes one hosted shard instance.
type CoreConfig struct {
	Name     string
	Instance int
	Count    int
	Options  Options
}

// Core hosts the trackers of one shard instance and its maintenance surface.
type Core struct {
	name     string
	instance int
	count    int

	sink     index.Sink
	source   repo.Source
	policy   shard.Policy
	content  content.Store
	engine   *Engine
	adapters []Adapter
	log      *zap.Logger
	metrics  *metrics.Metrics

	// sf coalesces identical concurrent maintenance requests.
	sf singleflight.Group
}

// NewCore wires a core. content may be nil when no content store is configured.
func NewCore(cfg CoreConfig, sink index.Sink, source repo.Source, policy shard.Policy, store content.Store, log *zap.Logger, m *metrics.Metrics) *Core {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Count < 1 {
		cfg.Count = 1
	}
	return &Core{
		name:     cfg.Name,
		instance: cfg.Instance,
		count:    cfg.Count,
		sink:     sink,
		source:   source,
		policy:   policy,
		content:  store,
		engine:   NewEngine(cfg.Name, sink, cfg.Options, log, m),
		log:      log.With(zap.String("core", cfg.Name)),
		metrics:  m,
	}
}

// Register adds tracker adapters in the order they are reported.
func (c *Core) Register(adapters ...Adapter) {
	c.adapters = append(c.adapters, adapters...)
}

func (c *Core) Name() string         { return c.name }
func (c *Core) Instance() int        { return c.instance }
func (c *Core) Policy() shard.Policy { return c.policy }
func (c *Core) Sink() index.Sink     { return c.sink }
func (c *Core) Source() repo.Source  { return c.source }
func (c *Core) Adapters() []Adapter  { return c.adapters }

// Adapter returns the tracker registered under name.
func (c *Core) Adapter(name string) (Adapter, error) {
	for _, a := range c.adapters {
		if a.Name() == name {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTracker, name)
}

// Init restores the published range cap and node statistics. It is safe to
// call more than once.
func (c *Core) Init(ctx context.Context) error {
	rp, ok := c.policy.(*shard.RangePolicy)
	if !ok {
		return nil
	}
	cap := int64(-1)
	doc, err := c.sink.Get(ctx, index.CapKey)
	switch {
	case err == nil:
		cap = doc.Value
	case !errors.Is(err, index.ErrNotFound):
		return fmt.Errorf("read range cap: %w", err)
	}
	rp.RestoreCap(cap)
	return c.RefreshRange(ctx)
}

// RefreshRange recomputes range statistics from the node documents in the index.
func (c *Core) RefreshRange(ctx context.Context) error {
	rp, ok := c.policy.(*shard.RangePolicy)
	if !ok {
		return nil
	}
	ids, err := index.NodeIDs(ctx, c.sink)
	if err != nil {
		return fmt.Errorf("collect node ids: %w", err)
	}
	rp.Refresh(shard.StatsOf(ids))
	return nil
}

// Run performs one cycle of the named tracker.
func (c *Core) Run(ctx context.Context, name string) (CycleResult, error) {
	a, err := c.Adapter(name)
	if err != nil {
		return CycleResult{}, err
	}
	if a.Kind() == KindMetadata {
		if rp, ok := c.policy.(*shard.RangePolicy); ok && !rp.Initialized() {
			if err := c.Init(ctx); err != nil {
				return CycleResult{Tracker: name}, err
			}
		}
	}
	res, err := c.engine.RunCycle(ctx, a)
	if err != nil {
		return res, err
	}
	if a.Kind() == KindMetadata {
		if err := c.RefreshRange(ctx); err != nil {
			c.log.Warn("Range statistics refresh failed", zap.Error(err))
		}
	}
	if n, err := c.sink.Count(ctx, index.Query{Type: index.DocError}); err == nil {
		c.metrics.SetErrorNodes(c.name, n)
	}
	return res, nil
}

// RunAll runs one cycle of every tracker concurrently.
func (c *Core) RunAll(ctx context.Context) ([]CycleResult, error) {
	results := make([]CycleResult, len(c.adapters))
	g, ctx := errgroup.WithContext(ctx)
	for i, a := range c.adapters {
		g.Go(func() error {
			res, err := c.Run(ctx, a.Name())
			results[i] = res
			if err != nil && !errors.Is(err, ErrBusy) {
				return fmt.Errorf("%s: %w", a.Name(), err)
			}
			return nil
		})
	}
	return results, g.Wait()
}

// states is the single source of tracker state for Summary and TrackerState.
func (c *Core) states(ctx context.Context) ([]TrackerState, error) {
	out := make([]TrackerState, 0, len(c.adapters))
	for _, a := range c.adapters {
		s := c.engine.Status(a)
		if space, ok := a.Space(); ok {
			w, err := c.sink.Watermark(ctx, space)
			if err != nil {
				return nil, fmt.Errorf("read %s watermark: %w", space, err)
			}
			s.Watermark = w.LastIndexedID
		}
		out = append(out, s)
	}
	return out, nil
}

// TrackerState returns the state of one tracker.
func (c *Core) TrackerState(ctx context.Context, name string) (TrackerState, error) {
	if _, err := c.Adapter(name); err != nil {
		return TrackerState{}, err
	}
	states, err := c.states(ctx)
	if err != nil {
		return TrackerState{}, err
	}
	for _, s := range states {
		if s.Name == name {
			return s, nil
		}
	}
	return TrackerState{}, fmt.Errorf("%w: %s", ErrUnknownTracker, name)
}

var summaryTypes = []index.DocType{
	index.DocNode, index.DocError, index.DocAcl, index.DocAclTx, index.DocTx, index.DocModel,
}

// Summary reports watermarks, error nodes, document counts and the range.
func (c *Core) Summary(ctx context.Context) (Summary, error) {
	states, err := c.states(ctx)
	if err != nil {
		return Summary{}, err
	}
	gen, err := c.sink.LastCommittedGeneration(ctx)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{
		Core:       c.name,
		Instance:   c.instance,
		Count:      c.count,
		Method:     c.policy.Method(),
		Generation: gen,
		Documents:  make(map[string]int, len(summaryTypes)),
		Trackers:   states,
	}
	for _, t := range summaryTypes {
		n, err := c.sink.Count(ctx, index.Query{Type: t})
		if err != nil {
			return Summary{}, err
		}
		s.Documents[string(t)] = n
	}
	s.ErrorNodes = s.Documents[string(index.DocError)]

	if rp, ok := c.policy.(*shard.RangePolicy); ok {
		if check, err := rp.RangeCheck(); err == nil {
			s.Range = &check
		}
	}
	return s, nil
}
