package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Scheduler fires triggers on cron specs.
type Scheduler struct {
	cron   *cron.Cron
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	triggers []*Trigger
}

// New returns a stopped scheduler. Specs accept an optional seconds field and
// descriptors such as "@every 10s".
func New(log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithParser(cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor))),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add schedules t on spec.
func (s *Scheduler) Add(spec string, t *Trigger) error {
	_, err := s.cron.AddFunc(spec, func() {
		err := t.Fire(s.ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrSkipped):
			s.log.Debug("Skipped overlapping run", zap.String("tracker", t.Name()))
		default:
			s.log.Warn("Scheduled run failed", zap.String("tracker", t.Name()), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("scheduler: invalid spec %q for %s: %w", spec, t.Name(), err)
	}
	s.mu.Lock()
	s.triggers = append(s.triggers, t)
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new firings, cancels active runs and waits for them to return.
func (s *Scheduler) Stop() {
	stopped := s.cron.Stop()
	s.cancel()
	<-stopped.Done()
}

// RunOnce fires every trigger concurrently and returns the first error.
func RunOnce(ctx context.Context, triggers ...*Trigger) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range triggers {
		g.Go(func() error {
			if err := t.Fire(ctx); err != nil && !errors.Is(err, ErrSkipped) {
				return fmt.Errorf("%s: %w", t.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
