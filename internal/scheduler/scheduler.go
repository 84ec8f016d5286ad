// Package scheduler runs named recurring jobs on an injected clock. Each task
// runs its job on a single goroutine, so a task never overlaps itself.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

var ErrAlreadyScheduled = errors.New("task already scheduled")

// Recurrence computes the tick after prev.
type Recurrence func(prev time.Time) time.Time

var (
	EveryDay   Recurrence = func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	EveryWeek  Recurrence = func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }
	EveryMonth Recurrence = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
)

// Job is invoked once per tick; ctx is not cancelled by Unschedule.
type Job func(ctx context.Context, tick time.Time)

// Trigger is the scheduling surface the export depends on.
type Trigger interface {
	IsScheduled(name string) bool
	Schedule(name string, firstRun time.Time, recurrence Recurrence, job Job) error
	Unschedule(name string) bool
	NextRun(name string) (time.Time, bool)
}

type task struct {
	next   time.Time
	cancel context.CancelFunc
}

type Scheduler struct {
	ctx    context.Context
	clock  clockwork.Clock
	logger *zap.Logger

	mu    sync.Mutex
	tasks map[string]*task
	wg    sync.WaitGroup
}

func New(ctx context.Context, clock clockwork.Clock, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		ctx:    ctx,
		clock:  clock,
		logger: logger,
		tasks:  make(map[string]*task),
	}
}

func (s *Scheduler) IsScheduled(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[name]
	return ok
}

func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[name]
	if !ok {
		return time.Time{}, false
	}
	return t.next, true
}

func (s *Scheduler) Schedule(name string, firstRun time.Time, recurrence Recurrence, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[name]; ok {
		return ErrAlreadyScheduled
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.tasks[name] = &task{next: firstRun, cancel: cancel}

	s.logger.Info("Task scheduled",
		zap.String("task", name),
		zap.Time("first_run", firstRun),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx, name, firstRun, recurrence, job)
	}()
	return nil
}

func (s *Scheduler) Unschedule(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[name]
	if !ok {
		return false
	}
	t.cancel()
	delete(s.tasks, name)

	s.logger.Info("Task unscheduled", zap.String("task", name))
	return true
}

// Stop cancels every task and waits for running jobs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for name, t := range s.tasks {
		t.cancel()
		delete(s.tasks, name)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, name string, next time.Time, recurrence Recurrence, job Job) {
	for {
		if wait := next.Sub(s.clock.Now()); wait > 0 {
			timer := s.clock.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.Chan():
			}
		} else if ctx.Err() != nil {
			return
		}

		s.logger.Info("Task fired", zap.String("task", name), zap.Time("tick", next))
		job(context.WithoutCancel(ctx), next)

		// Ticks missed while the job ran are skipped.
		now := s.clock.Now()
		for next = recurrence(next); !next.After(now); next = recurrence(next) {
		}

		s.mu.Lock()
		if t, ok := s.tasks[name]; ok && ctx.Err() == nil {
			t.next = next
		}
		s.mu.Unlock()
	}
}
