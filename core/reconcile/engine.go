package reconcile

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Alfresco/SearchServices-sub009/core/index"
	"github.com/Alfresco/SearchServices-sub009/core/logger"
	"github.com/Alfresco/SearchServices-sub009/core/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options tunes the engine.
type Options struct {
	// BatchSize bounds the units fetched per call.
	BatchSize int
	// HoleScanIDs re-examines this many ids below the watermark each cycle
	// and indexes units whose marker document is missing. 0 disables it.
	HoleScanIDs int64
	// HoleRetention limits the hole scan to units committed at most this long
	// before the watermark's commit time. 0 means no time bound.
	HoleRetention time.Duration
}

const defaultBatchSize = 1000

// Engine runs tracker cycles against one sink.
type Engine struct {
	core    string
	sink    index.Sink
	opts    Options
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	statuses map[string]*TrackerState
}

// NewEngine returns an engine for the core named core.
func NewEngine(core string, sink index.Sink, opts Options, log *zap.Logger, m *metrics.Metrics) *Engine {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		core:     core,
		sink:     sink,
		opts:     opts,
		log:      log,
		metrics:  m,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
		statuses: make(map[string]*TrackerState),
	}
}

func (e *Engine) lockFor(name string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[name]
	if !ok {
		l = &sync.Mutex{}
		e.locks[name] = l
	}
	return l
}

func (e *Engine) status(a Adapter) *TrackerState {
	s, ok := e.statuses[a.Name()]
	if !ok {
		s = &TrackerState{Name: a.Name(), Kind: a.Kind(), State: StateIdle}
		if space, ok := a.Space(); ok {
			s.Space = space
		}
		e.statuses[a.Name()] = s
	}
	return s
}

func (e *Engine) setState(a Adapter, st State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status(a).State = st
}

// Status returns a copy of the in-memory state of a; the watermark is not filled in.
func (e *Engine) Status(a Adapter) TrackerState {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := *e.status(a)
	if s.LastResult != nil {
		r := *s.LastResult
		s.LastResult = &r
	}
	return s
}

func (e *Engine) finish(a Adapter, started time.Time, res *CycleResult, err error) {
	res.Duration = e.now().Sub(started)
	if err != nil {
		res.Error = err.Error()
	}

	e.mu.Lock()
	s := e.status(a)
	s.State = StateIdle
	s.Cycles++
	t := started.UTC()
	s.LastRun = &t
	r := *res
	s.LastResult = &r
	s.LastError = res.Error
	e.mu.Unlock()

	e.metrics.ObserveCycle(e.core, a.Name(), res.Duration, res.Units, err)
	if space, ok := a.Space(); ok && err == nil {
		e.metrics.SetWatermark(e.core, string(space), res.Watermark)
	}
}

// RunCycle fetches and applies batches until the adapter has nothing left.
// A cycle of the same adapter never overlaps itself; a concurrent call
// returns ErrBusy.
func (e *Engine) RunCycle(ctx context.Context, a Adapter) (res CycleResult, err error) {
	lock := e.lockFor(a.Name())
	if !lock.TryLock() {
		return CycleResult{Tracker: a.Name()}, ErrBusy
	}
	defer lock.Unlock()

	started := e.now()
	res = CycleResult{Tracker: a.Name(), Iteration: uuid.NewString()}
	log := logger.ForTracker(e.log, e.core, a.Name()).With(zap.String("iteration", res.Iteration))
	defer func() { e.finish(a, started, &res, err) }()

	if h, ok := a.(CycleHooks); ok {
		if err := h.BeforeCycle(ctx); err != nil {
			e.setState(a, StateErroring)
			log.Warn("Cycle preparation failed", zap.Error(err))
			return res, fmt.Errorf("before cycle: %w", err)
		}
	}

	space, hasSpace := a.Space()
	var after int64
	if hasSpace {
		w, err := e.sink.Watermark(ctx, space)
		if err != nil {
			e.setState(a, StateErroring)
			return res, fmt.Errorf("read watermark: %w", err)
		}
		after = w.LastIndexedID
		res.Watermark = after

		if e.opts.HoleScanIDs > 0 && after > 0 {
			holes, out, err := e.fillHoles(ctx, a, space, w)
			if err != nil {
				e.setState(a, StateErroring)
				log.Warn("Hole scan failed", zap.Error(err))
				return res, err
			}
			res.Holes = holes
			res.Outcome.Add(out)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		e.setState(a, StateFetching)
		units, err := a.Fetch(ctx, after, e.opts.BatchSize)
		if err != nil {
			e.setState(a, StateErroring)
			log.Warn("Fetch failed, retrying next cycle", zap.Int64("after", after), zap.Error(err))
			return res, fmt.Errorf("fetch after %d: %w", after, err)
		}
		if len(units) == 0 {
			break
		}
		sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })

		e.setState(a, StateApplying)
		batch := e.sink.NewBatch()
		var out Outcome
		for _, u := range units {
			o, err := a.Apply(ctx, u, batch)
			if err != nil {
				e.setState(a, StateErroring)
				log.Warn("Apply failed, batch discarded", zap.Int64("unit", u.ID), zap.Error(err))
				return res, fmt.Errorf("apply %d: %w", u.ID, err)
			}
			out.Add(o)
		}

		last := units[len(units)-1]
		if hasSpace {
			batch.SetWatermark(index.Watermark{Space: space, LastIndexedID: last.ID, LastCommitTimeMs: last.CommitTimeMs})
		}

		e.setState(a, StateCommitting)
		if err := e.commit(ctx, batch); err != nil {
			e.setState(a, StateErroring)
			log.Error("Commit failed, watermark unchanged", zap.Int64("from", units[0].ID), zap.Int64("to", last.ID), zap.Error(err))
			return res, err
		}

		after = last.ID
		res.Units += len(units)
		res.Batches++
		res.Outcome.Add(out)
		if hasSpace {
			res.Watermark = after
		}
		log.Debug("Batch committed",
			zap.Int("units", len(units)),
			zap.Int64("last", last.ID),
			zap.Int("written", out.Written),
			zap.Int("errors", out.Errors),
		)
	}

	if h, ok := a.(CycleHooks); ok {
		if err := h.AfterCycle(ctx, res); err != nil {
			log.Warn("Cycle finalisation failed", zap.Error(err))
			return res, fmt.Errorf("after cycle: %w", err)
		}
	}

	if res.Units > 0 || res.Holes > 0 {
		log.Info("Cycle complete",
			zap.Int("units", res.Units),
			zap.Int("holes", res.Holes),
			zap.Int("errors", res.Outcome.Errors),
			zap.Int64("watermark", res.Watermark),
		)
	}
	return res, nil
}

// commit applies batch and confirms the sink reports the new generation.
func (e *Engine) commit(ctx context.Context, batch *index.Batch) error {
	if batch.Empty() {
		return nil
	}
	gen, err := batch.Commit(ctx)
	if err != nil {
		return err
	}
	last, err := e.sink.LastCommittedGeneration(ctx)
	if err != nil {
		return fmt.Errorf("read generation: %w", err)
	}
	if last < gen {
		return &GenerationError{Want: gen, Got: last}
	}
	return nil
}

func markerKey(space index.IDSpace, id int64) string {
	if space == index.SpaceAclTx {
		return index.AclTxKey(id)
	}
	return index.TxKey(id)
}

// fillHoles indexes units at or below the watermark whose marker is missing.
// The watermark itself is left alone.
func (e *Engine) fillHoles(ctx context.Context, a Adapter, space index.IDSpace, w index.Watermark) (int, Outcome, error) {
	from := w.LastIndexedID - e.opts.HoleScanIDs
	if from < 0 {
		from = 0
	}

	e.setState(a, StateFetching)
	units, err := a.Fetch(ctx, from, int(e.opts.HoleScanIDs))
	if err != nil {
		return 0, Outcome{}, fmt.Errorf("hole scan fetch after %d: %w", from, err)
	}

	e.setState(a, StateApplying)
	batch := e.sink.NewBatch()
	var out Outcome
	holes := 0
	for _, u := range units {
		if u.ID > w.LastIndexedID {
			break
		}
		if e.opts.HoleRetention > 0 && w.LastCommitTimeMs-u.CommitTimeMs > e.opts.HoleRetention.Milliseconds() {
			continue
		}
		present, err := index.Exists(ctx, e.sink, markerKey(space, u.ID))
		if err != nil {
			return 0, Outcome{}, err
		}
		if present {
			continue
		}
		o, err := a.Apply(ctx, u, batch)
		if err != nil {
			return 0, Outcome{}, fmt.Errorf("hole %d: %w", u.ID, err)
		}
		out.Add(o)
		holes++
	}

	e.setState(a, StateCommitting)
	if err := e.commit(ctx, batch); err != nil {
		return 0, Outcome{}, err
	}
	return holes, out, nil
}
