package shard

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/Alfresco/SearchServices-sub009/core/repo"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Range is a half-open DBID interval [Start, End).
type Range struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

func (r Range) Contains(id int64) bool {
	return r.Start <= id && id < r.End
}

// ParseRange parses "start-end".
func ParseRange(s string) (Range, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	if len(parts) != 2 {
		return Range{}, fmt.Errorf("shard: range %q is not start-end", s)
	}
	start, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return Range{}, fmt.Errorf("shard: range start: %w", err)
	}
	end, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return Range{}, fmt.Errorf("shard: range end: %w", err)
	}
	if start < 0 || end <= start {
		return Range{}, fmt.Errorf("shard: range %q is empty", s)
	}
	return Range{Start: start, End: end}, nil
}

// NodeStats summarises the node ids present in the local index.
type NodeStats struct {
	Count int64
	Min   int64
	Max   int64
}

// StatsOf computes NodeStats from a node id bitmap.
func StatsOf(ids *roaring64.Bitmap) NodeStats {
	if ids == nil || ids.IsEmpty() {
		return NodeStats{}
	}
	return NodeStats{
		Count: int64(ids.GetCardinality()),
		Min:   int64(ids.Minimum()),
		Max:   int64(ids.Maximum()),
	}
}

// RangeCheck is the density report of the local range.
type RangeCheck struct {
	Start     int64   `json:"start"`
	End       int64   `json:"end"`
	NodeCount int64   `json:"nodeCount"`
	MinDbid   int64   `json:"minDbid"`
	MaxDbid   int64   `json:"maxDbid"`
	Density   float64 `json:"density"`
	// Expand is the suggested delta; 0 means none is needed yet and -1 means
	// the range cannot be expanded.
	Expand   int64 `json:"expand"`
	Expanded bool  `json:"expanded"`
}

// RangePolicy is DB_ID_RANGE. The local instance's range may grow once
// through Expand; the mutex guards it against concurrent ownership checks.
type RangePolicy struct {
	instance   int
	targetSize int64

	mu          sync.RWMutex
	rng         Range
	stats       NodeStats
	initialized bool
	expanded    bool
}

// NewRangePolicy builds DB_ID_RANGE from cfg.
func NewRangePolicy(cfg Config) (*RangePolicy, error) {
	p := &RangePolicy{instance: cfg.Instance, targetSize: cfg.TargetSize}
	if p.targetSize <= 0 {
		return nil, fmt.Errorf("shard: target size must be positive, got %d", p.targetSize)
	}
	p.rng = p.defaultRange(cfg.Instance)
	if cfg.Range != "" {
		r, err := ParseRange(cfg.Range)
		if err != nil {
			return nil, err
		}
		p.rng = r
	}
	return p, nil
}

func (p *RangePolicy) defaultRange(instance int) Range {
	return Range{Start: int64(instance) * p.targetSize, End: int64(instance+1) * p.targetSize}
}

func (p *RangePolicy) Method() Method      { return MethodDBIDRange }
func (p *RangePolicy) NeedsMetadata() bool { return false }

func (p *RangePolicy) rangeOf(instance int) Range {
	if instance == p.instance {
		p.mu.RLock()
		defer p.mu.RUnlock()
		return p.rng
	}
	return p.defaultRange(instance)
}

func (p *RangePolicy) Owns(instance int, node repo.Node, _ *repo.NodeMetadata) bool {
	return p.rangeOf(instance).Contains(node.ID)
}

// RangeState returns the current range of the local instance.
func (p *RangePolicy) RangeState() Range {
	return p.rangeOf(p.instance)
}

// Snapshot freezes the local range for one cycle.
func (p *RangePolicy) Snapshot() Policy {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return rangeSnapshot{parent: p, rng: p.rng}
}

// RestoreCap applies a published cap at startup and marks the policy initialized.
// A cap at or below the configured end is ignored.
func (p *RangePolicy) RestoreCap(end int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if end > p.rng.End {
		p.rng.End = end
		p.expanded = true
	}
	p.initialized = true
}

// Refresh records the node statistics of the local index.
func (p *RangePolicy) Refresh(stats NodeStats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats = stats
}

// Initialized reports whether RestoreCap has run.
func (p *RangePolicy) Initialized() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.initialized
}

// RangeCheck reports density and the suggested expansion.
func (p *RangePolicy) RangeCheck() (RangeCheck, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.initialized {
		return RangeCheck{}, &ExpansionError{Reason: ReasonNotInitialized}
	}

	start, end := p.rng.Start, p.rng.End
	span := end - start
	midpoint := start + int64(float64(span)*.5)
	safe := start + int64(float64(span)*.75)
	offset := p.stats.Max - start

	density := 0.0
	if offset > 0 {
		density = float64(p.stats.Count) / float64(offset)
	}

	guess := int64(-1)
	if !p.expanded && p.stats.Max <= safe {
		switch {
		case p.stats.Max < midpoint:
			guess = 0
		case density >= 1 || density == 0:
			guess = 0
		default:
			guess = int64(float64(span)*(1/density)) - span
		}
	}

	return RangeCheck{
		Start:     start,
		End:       end,
		NodeCount: p.stats.Count,
		MinDbid:   p.stats.Min,
		MaxDbid:   p.stats.Max,
		Density:   density,
		Expand:    guess,
		Expanded:  p.expanded,
	}, nil
}

// Expand grows the local range end by delta. publish must durably record the
// new end; the range only changes when it succeeds. A delta of zero or less is
// a dry run and returns -1 without error.
func (p *RangePolicy) Expand(delta int64, publish func(end int64) error) (int64, error) {
	if delta <= 0 {
		return -1, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return -1, &ExpansionError{Reason: ReasonNotInitialized}
	}
	if p.expanded {
		return -1, &ExpansionError{Reason: ReasonAlreadyExpanded}
	}
	span := p.rng.End - p.rng.Start
	safe := p.rng.Start + int64(float64(span)*.75)
	if p.stats.Max > safe {
		return -1, &ExpansionError{Reason: ReasonAboveSafe}
	}

	end := p.rng.End + delta
	if publish != nil {
		if err := publish(end); err != nil {
			return -1, &ExpansionError{Reason: "publishing range cap failed", Err: err}
		}
	}
	p.rng.End = end
	p.expanded = true
	return end, nil
}

type rangeSnapshot struct {
	parent *RangePolicy
	rng    Range
}

func (rangeSnapshot) Method() Method      { return MethodDBIDRange }
func (rangeSnapshot) NeedsMetadata() bool { return false }

func (s rangeSnapshot) Owns(instance int, node repo.Node, _ *repo.NodeMetadata) bool {
	if instance == s.parent.instance {
		return s.rng.Contains(node.ID)
	}
	return s.parent.defaultRange(instance).Contains(node.ID)
}
