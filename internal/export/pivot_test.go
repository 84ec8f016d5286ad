package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formexport/internal/model"
)

func TestPivot_Scenario(t *testing.T) {
	t1 := time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)
	t2 := time.Date(2026, 10, 2, 14, 0, 5, 0, time.UTC)
	fields := []model.SubmissionField{
		field(2, t2, "name", "Bo"),
		field(2, t2, "email", "b@x.com"),
		field(1, t1, "name", "Ann"),
	}

	table := Pivot(fields)

	assert.Equal(t, []string{"Entry ID", "Submission Date", "email", "name"}, table.Header)
	assert.Equal(t, [][]string{
		{"2", "2026-10-02 14:00:05", "b@x.com", "Bo"},
		{"1", "2026-10-01 09:30:00", "", "Ann"},
	}, table.Rows)
	assert.Zero(t, table.Duplicates)
}

func TestPivot_OneRowPerEntryAndFullWidth(t *testing.T) {
	fields := entries(4)
	fields = append(fields, field(2, now, "phone", "123"))

	table := Pivot(fields)

	require.Len(t, table.Rows, 4)
	for _, row := range table.Rows {
		assert.Len(t, row, len(table.Header))
	}
	assert.Equal(t, []string{"Entry ID", "Submission Date", "email", "name", "phone"}, table.Header)
}

func TestPivot_HeaderIsStable(t *testing.T) {
	fields := []model.SubmissionField{
		field(1, now, "zeta", "z"),
		field(1, now, "Alpha", "a"),
		field(1, now, "beta", "b"),
	}
	first := Pivot(fields).Header
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Pivot(fields).Header)
	}
	assert.Equal(t, []string{"Entry ID", "Submission Date", "Alpha", "beta", "zeta"}, first)
}

func TestPivot_DuplicateFieldLastValueWins(t *testing.T) {
	fields := []model.SubmissionField{
		field(1, now, "name", "first"),
		field(1, now, "name", "second"),
	}

	table := Pivot(fields)

	assert.Equal(t, "second", table.Rows[0][2])
	assert.Equal(t, 1, table.Duplicates)
}

func TestPivot_Empty(t *testing.T) {
	table := Pivot(nil)
	assert.Equal(t, []string{"Entry ID", "Submission Date"}, table.Header)
	assert.Empty(t, table.Rows)
}
