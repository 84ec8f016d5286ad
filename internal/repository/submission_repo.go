package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"formexport/internal/model"
	"formexport/pkg/db"
	"formexport/pkg/metrics"
)

type SubmissionRepository struct {
	db     db.Querier
	logger *zap.Logger
}

func NewSubmissionRepository(db db.Querier, logger *zap.Logger) *SubmissionRepository {
	return &SubmissionRepository{
		db:     db,
		logger: logger,
	}
}

// DistinctFormIDs returns every form id that has at least one stored field value.
func (r *SubmissionRepository) DistinctFormIDs(ctx context.Context) ([]int64, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("distinct_form_ids", "submission_fields", time.Since(start))
	}()

	query := `
        SELECT DISTINCT form_id
        FROM submission_fields
        ORDER BY form_id
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListFormFields returns the field rows of a form's submissions created at or
// after since, newest submission first.
func (r *SubmissionRepository) ListFormFields(ctx context.Context, formID int64, since time.Time) ([]model.SubmissionField, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("list_form_fields", "submissions", time.Since(start))
	}()

	query := `
        SELECT s.id, s.created_at, f.name, f.value
        FROM submissions AS s
        JOIN submission_fields AS f ON s.id = f.submission_id
        WHERE f.form_id = $1
          AND s.created_at >= $2
        ORDER BY s.created_at DESC, s.id DESC, f.id ASC
    `
	rows, err := r.db.Query(ctx, query, formID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []model.SubmissionField
	for rows.Next() {
		f := model.SubmissionField{FormID: formID}
		if err := rows.Scan(
			&f.EntryID,
			&f.CreatedAt,
			&f.FieldName,
			&f.FieldValue,
		); err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

// FormTitle returns the form's title, or "" when the form is unknown.
func (r *SubmissionRepository) FormTitle(ctx context.Context, formID int64) (string, error) {
	query := `
        SELECT COALESCE(title, '')
        FROM forms
        WHERE id = $1
    `
	var title string
	err := r.db.QueryRow(ctx, query, formID).Scan(&title)
	if errors.Is(err, pgx.ErrNoRows) {
		r.logger.Debug("Form title not found", zap.Int64("form_id", formID))
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return title, nil
}
