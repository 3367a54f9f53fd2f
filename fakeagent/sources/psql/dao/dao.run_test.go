package dao

import (
	"context"
	"fakeagent/fakeagent/sources/psql"
	"fakeagent/fakeagent/sources/psql/models"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupRunDAO(t *testing.T) *RunDAO {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// every pooled connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	db, err := psql.Open(context.Background(), gdb)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return NewRunDAO(db.DB)
}

func TestCreateAndListRuns(t *testing.T) {
	d := setupRunDAO(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, outcome := range []string{"completed", "injected_error", "failed"} {
		run := &models.RunRecord{
			ThreadID:   "thread-1",
			Mode:       "stream",
			Outcome:    outcome,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + 3*time.Second),
		}
		require.NoError(t, d.CreateRun(ctx, run))
		assert.NotEqual(t, uuid.Nil, run.ID)
	}
	require.NoError(t, d.CreateRun(ctx, &models.RunRecord{ThreadID: "other", Mode: "buffered", Outcome: "completed", StartedAt: base, FinishedAt: base}))

	runs, err := d.ListRunsByThread(ctx, "thread-1", 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "failed", runs[0].Outcome)
	assert.Equal(t, "completed", runs[2].Outcome)

	runs, err = d.ListRunsByThread(ctx, "thread-1", 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	got, err := d.GetRunByID(ctx, runs[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "thread-1", got.ThreadID)

	missing, err := d.GetRunByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}
