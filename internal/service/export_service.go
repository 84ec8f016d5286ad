package service

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	mqcontracts "formexport/contracts/mq"
	"formexport/internal/export"
	"formexport/internal/mailer"
	"formexport/internal/model"
	"formexport/internal/options"
	"formexport/pkg/logger"
	"formexport/pkg/metrics"
	"formexport/pkg/trace"
)

type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerTest     Trigger = "test"
	TriggerManual   Trigger = "manual"
	TriggerMQ       Trigger = "mq"
)

// EventPublisher publishes run events; nil disables events.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// RunResult describes one export-and-send run.
type RunResult struct {
	RunID       string
	Files       []string
	Forms       []export.FormSummary
	Submissions int
	Recipients  []string
	Delivered   bool
}

type ExportService struct {
	fetcher   *export.Fetcher
	titles    *export.TitleResolver
	writer    *export.CSVWriter
	mailer    mailer.Mailer
	publisher EventPublisher
	siteName  string
	clock     clockwork.Clock
	logger    *zap.Logger
}

func NewExportService(
	fetcher *export.Fetcher,
	titles *export.TitleResolver,
	writer *export.CSVWriter,
	sender mailer.Mailer,
	publisher EventPublisher,
	siteName string,
	clock clockwork.Clock,
	logger *zap.Logger,
) *ExportService {
	return &ExportService{
		fetcher:   fetcher,
		titles:    titles,
		writer:    writer,
		mailer:    sender,
		publisher: publisher,
		siteName:  siteName,
		clock:     clock,
		logger:    logger,
	}
}

// RunExport writes one CSV per form with data in the window and returns the
// file paths. A positive limit caps the submissions per form.
func (s *ExportService) RunExport(ctx context.Context, opts options.Options, limit int) ([]string, error) {
	ctx, _ = trace.Ensure(ctx)
	start := s.clock.Now()

	forms, err := s.fetcher.Fetch(ctx, opts.ScheduleFrequency, limit)
	if err != nil {
		metrics.RecordExportRun(string(TriggerManual), "failed", s.clock.Since(start))
		return nil, err
	}

	files, _, err := s.writeForms(ctx, forms)
	status := "success"
	if err != nil {
		status = "failed"
	}
	metrics.RecordExportRun(string(TriggerManual), status, s.clock.Since(start))
	return files, err
}

// RunExportAndSend exports and emails the files to the configured recipients.
// Files are written even when there are no recipients; delivery is then skipped.
func (s *ExportService) RunExportAndSend(ctx context.Context, trigger Trigger, opts options.Options, limit int) (*RunResult, error) {
	return s.run(ctx, trigger, opts, limit, opts.Recipients())
}

// SendTest runs a capped export and emails it to the test address only.
func (s *ExportService) SendTest(ctx context.Context, opts options.Options) (*RunResult, error) {
	if opts.TestEmail == "" {
		return nil, &export.ConfigurationError{Reason: "no test email address provided"}
	}
	return s.run(ctx, TriggerTest, opts, opts.TestLimit, []string{opts.TestEmail})
}

func (s *ExportService) run(ctx context.Context, trigger Trigger, opts options.Options, limit int, recipients []string) (*RunResult, error) {
	ctx, runID := trace.Ensure(ctx)
	log := logger.WithTrace(ctx, s.logger).With(zap.String("trigger", string(trigger)))
	start := s.clock.Now()

	log.Info("Export run started",
		zap.String("frequency", string(opts.ScheduleFrequency)),
		zap.Int("limit", limit),
		zap.Int("recipients", len(recipients)),
	)

	result := &RunResult{RunID: runID, Recipients: recipients}

	forms, err := s.fetcher.Fetch(ctx, opts.ScheduleFrequency, limit)
	if err != nil {
		return nil, s.fail(ctx, log, trigger, runID, start, err)
	}

	files, summaries, err := s.writeForms(ctx, forms)
	result.Files = files
	if err != nil {
		return result, s.fail(ctx, log, trigger, runID, start, err)
	}
	result.Forms = summaries
	for _, f := range summaries {
		result.Submissions += f.Submissions
	}

	if len(recipients) == 0 {
		log.Warn("No recipients configured, skipping delivery", zap.Int("files", len(files)))
		metrics.IncrementEmailDelivery("skipped")
		s.complete(ctx, log, trigger, start, result)
		return result, nil
	}

	subject, body, err := export.ComposeSummary(export.SummaryInput{
		Frequency:    opts.ScheduleFrequency,
		SiteName:     s.siteName,
		ContactEmail: opts.TestEmail,
		Forms:        summaries,
	})
	if err != nil {
		return result, s.fail(ctx, log, trigger, runID, start, err)
	}

	err = s.mailer.Send(ctx, mailer.Message{
		To:          recipients,
		Subject:     subject,
		HTMLBody:    body,
		Attachments: files,
	})
	if err != nil {
		metrics.IncrementEmailDelivery("failed")
		log.Error("Export email delivery failed", zap.Strings("to", recipients), zap.Error(err))
		s.complete(ctx, log, trigger, start, result)
		return result, &export.DeliveryError{Recipients: recipients, Err: err}
	}

	metrics.IncrementEmailDelivery("success")
	result.Delivered = true
	s.complete(ctx, log, trigger, start, result)
	return result, nil
}

// writeForms pivots and writes each form in order. The first failure stops
// the run; files already written stay in place.
func (s *ExportService) writeForms(ctx context.Context, forms []model.FormData) ([]string, []export.FormSummary, error) {
	log := logger.WithTrace(ctx, s.logger)

	files := make([]string, 0, len(forms))
	summaries := make([]export.FormSummary, 0, len(forms))
	for _, form := range forms {
		title := s.titles.Resolve(ctx, form.FormID)
		table := export.Pivot(form.Fields)
		if table.Duplicates > 0 {
			log.Warn("Repeated field names in submissions, last value kept",
				zap.Int64("form_id", form.FormID),
				zap.Int("duplicates", table.Duplicates),
			)
		}

		path, err := s.writer.Write(form.FormID, title, table)
		if err != nil {
			return files, summaries, err
		}

		entries := form.EntryCount()
		files = append(files, path)
		summaries = append(summaries, export.FormSummary{Title: title, Submissions: entries})
		metrics.AddExported(1, entries)

		log.Info("Form exported",
			zap.Int64("form_id", form.FormID),
			zap.String("title", title),
			zap.String("path", path),
			zap.Int("submissions", entries),
			zap.Int("columns", len(table.Header)),
		)
	}
	return files, summaries, nil
}

func (s *ExportService) complete(ctx context.Context, log *zap.Logger, trigger Trigger, start time.Time, result *RunResult) {
	metrics.RecordExportRun(string(trigger), "success", s.clock.Since(start))
	log.Info("Export run finished",
		zap.Int("forms", len(result.Forms)),
		zap.Int("submissions", result.Submissions),
		zap.Bool("delivered", result.Delivered),
		zap.Duration("took", s.clock.Since(start)),
	)

	s.publish(ctx, log, mqcontracts.RoutingExportCompleted, mqcontracts.ExportCompletedPayload{
		RunID:       result.RunID,
		Trigger:     string(trigger),
		Forms:       len(result.Forms),
		Submissions: result.Submissions,
		Files:       result.Files,
		Recipients:  result.Recipients,
		Delivered:   result.Delivered,
		FinishedAt:  s.clock.Now(),
	})
}

func (s *ExportService) fail(ctx context.Context, log *zap.Logger, trigger Trigger, runID string, start time.Time, err error) error {
	metrics.RecordExportRun(string(trigger), "failed", s.clock.Since(start))

	var fsErr *export.FilesystemError
	if errors.As(err, &fsErr) {
		log.Error("Export run aborted while writing CSV",
			zap.Int64("form_id", fsErr.FormID),
			zap.String("path", fsErr.Path),
			zap.Error(err),
		)
	} else {
		log.Error("Export run failed", zap.Error(err))
	}

	s.publish(ctx, log, mqcontracts.RoutingExportFailed, mqcontracts.ExportFailedPayload{
		RunID:    runID,
		Trigger:  string(trigger),
		Error:    err.Error(),
		FailedAt: s.clock.Now(),
	})
	return err
}

func (s *ExportService) publish(ctx context.Context, log *zap.Logger, routingKey string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, routingKey, payload); err != nil {
		log.Error("Failed to publish export event",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
	}
}
