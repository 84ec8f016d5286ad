package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"formexport/internal/export"
	"formexport/internal/options"
	"formexport/internal/scheduler"
	"formexport/pkg/trace"
)

// ExportTaskName names the recurring export-and-send task.
const ExportTaskName = "send_export_email"

// ScheduleStateKey is the option key holding the persisted next run.
const ScheduleStateKey = "export_schedule"

// OptionsLoader loads the effective options for one run.
type OptionsLoader interface {
	Load(ctx context.Context) (options.Options, error)
}

// TickGuard reports whether this process owns a tick; nil means always.
type TickGuard interface {
	AcquireOnce(ctx context.Context, task string, tick time.Time) bool
}

// StateStore persists the schedule cursor across restarts; options.Store fits.
type StateStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type scheduleState struct {
	Frequency options.Frequency `json:"frequency"`
	NextRun   time.Time         `json:"next_run"`
}

// Exporter is the part of ExportService the scheduled job needs.
type Exporter interface {
	RunExportAndSend(ctx context.Context, trigger Trigger, opts options.Options, limit int) (*RunResult, error)
}

type ExportScheduler struct {
	trigger  scheduler.Trigger
	options  OptionsLoader
	exporter Exporter
	guard    TickGuard
	state    StateStore
	clock    clockwork.Clock
	logger   *zap.Logger
}

// NewExportScheduler builds the schedule controller. A nil state keeps the
// cursor in memory only, so every restart starts a fresh cadence.
func NewExportScheduler(
	trigger scheduler.Trigger,
	loader OptionsLoader,
	exporter Exporter,
	guard TickGuard,
	state StateStore,
	clock clockwork.Clock,
	logger *zap.Logger,
) *ExportScheduler {
	return &ExportScheduler{
		trigger:  trigger,
		options:  loader,
		exporter: exporter,
		guard:    guard,
		state:    state,
		clock:    clock,
		logger:   logger,
	}
}

// FirstRun returns when a newly started schedule first fires: daily runs
// right away, weekly on the next Monday at midnight, monthly on the first
// day of the next month at midnight.
func FirstRun(freq options.Frequency, now time.Time) time.Time {
	switch freq {
	case options.Daily:
		return now
	case options.Weekly:
		days := (8 - int(now.Weekday())) % 7
		if days == 0 {
			days = 7
		}
		return time.Date(now.Year(), now.Month(), now.Day()+days, 0, 0, 0, 0, now.Location())
	default:
		return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
	}
}

// RecurrenceFor maps a frequency to its scheduler recurrence.
func RecurrenceFor(freq options.Frequency) scheduler.Recurrence {
	switch freq {
	case options.Daily:
		return scheduler.EveryDay
	case options.Weekly:
		return scheduler.EveryWeek
	default:
		return scheduler.EveryMonth
	}
}

// Start schedules the export task unless it is already scheduled. Scheduling
// is refused when no recipient is configured. A persisted next run with the
// same frequency is resumed, so a restart does not fire an extra tick.
func (s *ExportScheduler) Start(ctx context.Context, opts options.Options) error {
	if len(opts.Recipients()) == 0 {
		s.logger.Warn("No email address provided for export, schedule not started")
		return &export.ConfigurationError{Reason: "no email address provided for export"}
	}
	if s.trigger.IsScheduled(ExportTaskName) {
		return nil
	}

	freq := opts.ScheduleFrequency
	first := s.resume(ctx, freq)
	err := s.trigger.Schedule(ExportTaskName, first, RecurrenceFor(freq), func(ctx context.Context, tick time.Time) {
		s.fire(ctx, freq, tick)
	})
	if errors.Is(err, scheduler.ErrAlreadyScheduled) {
		return nil
	}
	if err != nil {
		return err
	}
	s.saveState(ctx, freq, first)
	return nil
}

// Stop cancels the export task and forgets its cursor; it reports whether
// one was scheduled.
func (s *ExportScheduler) Stop(ctx context.Context) bool {
	stopped := s.trigger.Unschedule(ExportTaskName)
	if s.state != nil {
		if err := s.state.Delete(ctx, ScheduleStateKey); err != nil {
			s.logger.Warn("Failed to clear schedule state", zap.Error(err))
		}
	}
	return stopped
}

// Toggle stops a running schedule or starts a stopped one.
func (s *ExportScheduler) Toggle(ctx context.Context, opts options.Options) (bool, error) {
	if s.Stop(ctx) {
		return false, nil
	}
	if err := s.Start(ctx, opts); err != nil {
		return false, err
	}
	return true, nil
}

// Reschedule restarts an active schedule so a new frequency takes effect.
func (s *ExportScheduler) Reschedule(ctx context.Context, opts options.Options) error {
	if !s.trigger.IsScheduled(ExportTaskName) {
		return nil
	}
	s.Stop(ctx)
	return s.Start(ctx, opts)
}

// Status reports whether the task is scheduled and its next run.
func (s *ExportScheduler) Status() (bool, time.Time) {
	next, ok := s.trigger.NextRun(ExportTaskName)
	return ok, next
}

// resume returns the persisted next run when it belongs to freq. An overdue
// one is returned as is and fires once straight away.
func (s *ExportScheduler) resume(ctx context.Context, freq options.Frequency) time.Time {
	now := s.clock.Now()
	if s.state == nil {
		return FirstRun(freq, now)
	}

	raw, err := s.state.Get(ctx, ScheduleStateKey)
	if err != nil {
		if !errors.Is(err, options.ErrNotFound) {
			s.logger.Warn("Failed to load schedule state, starting fresh", zap.Error(err))
		}
		return FirstRun(freq, now)
	}

	var st scheduleState
	if err := json.Unmarshal(raw, &st); err != nil || st.Frequency != freq || st.NextRun.IsZero() {
		return FirstRun(freq, now)
	}
	s.logger.Info("Resuming export schedule", zap.Time("next_run", st.NextRun))
	return st.NextRun
}

func (s *ExportScheduler) saveState(ctx context.Context, freq options.Frequency, next time.Time) {
	if s.state == nil {
		return
	}
	raw, err := json.Marshal(scheduleState{Frequency: freq, NextRun: next})
	if err == nil {
		err = s.state.Set(ctx, ScheduleStateKey, raw)
	}
	if err != nil {
		s.logger.Warn("Failed to persist schedule state", zap.Time("next_run", next), zap.Error(err))
	}
}

func (s *ExportScheduler) fire(ctx context.Context, freq options.Frequency, tick time.Time) {
	ctx, runID := trace.Ensure(ctx)
	log := s.logger.With(zap.String("trace_id", runID), zap.Time("tick", tick))

	if s.guard != nil && !s.guard.AcquireOnce(ctx, ExportTaskName, tick) {
		return
	}

	// 先记录下一次执行时间，进程在发送途中重启也不会重发本次
	recurrence := RecurrenceFor(freq)
	now := s.clock.Now()
	next := recurrence(tick)
	for !next.After(now) {
		next = recurrence(next)
	}
	s.saveState(ctx, freq, next)

	opts, err := s.options.Load(ctx)
	if err != nil {
		log.Error("Failed to load options for scheduled export", zap.Error(err))
		return
	}

	if _, err := s.exporter.RunExportAndSend(ctx, TriggerSchedule, opts, 0); err != nil {
		log.Error("Scheduled export failed", zap.Error(err))
	}
}
