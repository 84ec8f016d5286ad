package export

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"formexport/internal/model"
	"formexport/internal/options"
)

// SubmissionSource is the read side of the submission repository.
type SubmissionSource interface {
	DistinctFormIDs(ctx context.Context) ([]int64, error)
	ListFormFields(ctx context.Context, formID int64, since time.Time) ([]model.SubmissionField, error)
}

type Fetcher struct {
	source SubmissionSource
	clock  clockwork.Clock
	logger *zap.Logger
}

func NewFetcher(source SubmissionSource, clock clockwork.Clock, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		source: source,
		clock:  clock,
		logger: logger,
	}
}

// Fetch returns the field rows of every form with submissions inside the
// frequency's window. A positive limit keeps only the limit most recent
// submissions per form. Forms without rows are left out.
func (f *Fetcher) Fetch(ctx context.Context, freq options.Frequency, limit int) ([]model.FormData, error) {
	since := freq.Since(f.clock.Now())

	formIDs, err := f.source.DistinctFormIDs(ctx)
	if err != nil {
		return nil, &RepositoryError{Op: "list form ids", Err: err}
	}

	var forms []model.FormData
	for _, formID := range formIDs {
		fields, err := f.source.ListFormFields(ctx, formID, since)
		if err != nil {
			return nil, &RepositoryError{Op: "list form fields", FormID: formID, Err: err}
		}
		if limit > 0 {
			fields = capEntries(fields, limit)
		}
		if len(fields) == 0 {
			continue
		}
		forms = append(forms, model.FormData{FormID: formID, Fields: fields})
	}

	f.logger.Info("Fetched form submissions",
		zap.String("frequency", string(freq)),
		zap.Time("since", since),
		zap.Int("limit", limit),
		zap.Int("forms_checked", len(formIDs)),
		zap.Int("forms_with_data", len(forms)),
	)
	return forms, nil
}

// capEntries keeps the rows of the first limit distinct entries. Rows arrive
// newest first, so those are the most recent submissions.
func capEntries(fields []model.SubmissionField, limit int) []model.SubmissionField {
	keep := make(map[int64]struct{}, limit)
	for _, field := range fields {
		if len(keep) == limit {
			break
		}
		keep[field.EntryID] = struct{}{}
	}

	out := fields[:0:0]
	for _, field := range fields {
		if _, ok := keep[field.EntryID]; ok {
			out = append(out, field)
		}
	}
	return out
}
