package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tgrelay/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "relay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sentRecord(msgID int) *models.ForwardRecord {
	return &models.ForwardRecord{
		SourceChatID: -100111,
		SourceMsgID:  msgID,
		MediaGroupID: "g1",
		UnitSize:     3,
		Caption:      "trip photos",
		Attempts:     1,
		Status:       models.ForwardStatusSent,
		ForwardedAt:  time.Now(),
	}
}

func TestNew_RejectsInvalidPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	_, err = New("../../../etc/passwd")
	assert.Error(t, err)
}

func TestDatabase_SaveAndGetBySource(t *testing.T) {
	db := setupTestDatabase(t)
	ctx := context.Background()

	require.NoError(t, db.SaveForwardRecord(ctx, sentRecord(42)))

	records, err := db.GetForwardRecordsBySource(ctx, -100111, 42)
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, int64(-100111), record.SourceChatID)
	assert.Equal(t, 42, record.SourceMsgID)
	assert.Equal(t, "g1", record.MediaGroupID)
	assert.Equal(t, 3, record.UnitSize)
	assert.Equal(t, "trip photos", record.Caption)
	assert.Equal(t, models.ForwardStatusSent, record.Status)
	assert.False(t, record.CreatedAt.IsZero())
}

func TestDatabase_GetBySourceNoMatch(t *testing.T) {
	db := setupTestDatabase(t)

	records, err := db.GetForwardRecordsBySource(context.Background(), -100111, 999)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDatabase_SaveFailedRecord(t *testing.T) {
	db := setupTestDatabase(t)
	ctx := context.Background()

	record := sentRecord(7)
	record.Status = models.ForwardStatusExhausted
	record.Attempts = 3
	record.Error = "forward failed after 3 attempts"
	require.NoError(t, db.SaveForwardRecord(ctx, record))

	records, err := db.GetForwardRecordsBySource(ctx, -100111, 7)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.ForwardStatusExhausted, records[0].Status)
	assert.Equal(t, 3, records[0].Attempts)
	assert.Contains(t, records[0].Error, "3 attempts")
}

func TestDatabase_GetRecentRespectsLimit(t *testing.T) {
	db := setupTestDatabase(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, db.SaveForwardRecord(ctx, sentRecord(i)))
	}

	records, err := db.GetRecentForwardRecords(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestDatabase_CleanupOldRecords(t *testing.T) {
	db := setupTestDatabase(t)
	ctx := context.Background()

	require.NoError(t, db.SaveForwardRecord(ctx, sentRecord(1)))

	// Backdate the row past the retention window
	_, err := db.db.ExecContext(ctx,
		`UPDATE forward_records SET created_at = ? WHERE source_msg_id = 1`,
		time.Now().AddDate(0, 0, -40))
	require.NoError(t, err)

	require.NoError(t, db.SaveForwardRecord(ctx, sentRecord(2)))

	require.NoError(t, db.CleanupOldRecords(ctx, 30))

	records, err := db.GetRecentForwardRecords(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].SourceMsgID)
}

func TestDatabase_CleanupRejectsNonPositiveRetention(t *testing.T) {
	db := setupTestDatabase(t)

	assert.Error(t, db.CleanupOldRecords(context.Background(), 0))
	assert.Error(t, db.CleanupOldRecords(context.Background(), -5))
}

func TestDatabase_ReopenSeesExistingRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.db")

	db, err := New(path)
	require.NoError(t, err)
	require.NoError(t, db.SaveForwardRecord(context.Background(), sentRecord(1)))
	require.NoError(t, db.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()

	records, err := reopened.GetRecentForwardRecords(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
