package model

import "time"

// SubmissionField is one field value of a submission joined with its header.
type SubmissionField struct {
	EntryID    int64
	FormID     int64
	CreatedAt  time.Time
	FieldName  string
	FieldValue string
}

// FormData holds the fetched field rows of one form, newest submission first.
type FormData struct {
	FormID int64
	Fields []SubmissionField
}

// EntryCount returns the number of distinct submissions in the rows.
func (f FormData) EntryCount() int {
	seen := make(map[int64]struct{})
	for _, field := range f.Fields {
		seen[field.EntryID] = struct{}{}
	}
	return len(seen)
}
