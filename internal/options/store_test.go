package options

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewManager(NewRedisStore(rdb, "formexport:")), mr
}

func TestManager_LoadWithoutSavedOptions(t *testing.T) {
	m, _ := newRedisManager(t)

	opts, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Monthly, opts.ScheduleFrequency)
	assert.Equal(t, 1, opts.TestLimit)
}

func TestManager_SaveLoadClear(t *testing.T) {
	m, mr := newRedisManager(t)
	ctx := context.Background()

	saved, err := m.Save(ctx, Input{
		ExportEmails:      "a@x.com",
		TestEmail:         "t@x.com",
		TestLimit:         "0",
		ScheduleFrequency: "weekly",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, saved.TestLimit)
	assert.True(t, mr.Exists("formexport:"+OptionsKey))

	loaded, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)

	require.NoError(t, m.Clear(ctx))
	loaded, err = m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), loaded)
}

func TestManager_LoadCoercesStoredFrequency(t *testing.T) {
	m, mr := newRedisManager(t)
	require.NoError(t, mr.Set("formexport:"+OptionsKey, `{"export_emails":"a@x.com","test_limit":4}`))

	opts, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Monthly, opts.ScheduleFrequency)
	assert.Equal(t, 4, opts.TestLimit)
}

func TestPGStore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPGStore(mock)
	ctx := context.Background()
	raw, _ := json.Marshal(Options{ExportEmails: "a@x.com", TestLimit: 2, ScheduleFrequency: Daily})

	mock.ExpectQuery(`SELECT value\s+FROM options`).WithArgs(OptionsKey).WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO options`).WithArgs(OptionsKey, raw).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT value\s+FROM options`).WithArgs(OptionsKey).
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(raw))
	mock.ExpectExec(`DELETE FROM options`).WithArgs(OptionsKey).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	_, err = store.Get(ctx, OptionsKey)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, OptionsKey, raw))

	got, err := store.Get(ctx, OptionsKey)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(got))

	require.NoError(t, store.Delete(ctx, OptionsKey))
	assert.NoError(t, mock.ExpectationsWereMet())
}
