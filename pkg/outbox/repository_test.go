package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/veritrace/veritrace-backend/pkg/db/models"
	"github.com/veritrace/veritrace-backend/pkg/enums"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	events := `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	dlq := `
CREATE TABLE IF NOT EXISTS outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(events).Error)
	require.NoError(t, db.Exec(dlq).Error)
	return db
}

func newOutboxEvent(createdAt time.Time) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventClaimSubmitted,
		AggregateType: enums.AggregateClaim,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"version":1}`),
		CreatedAt:     createdAt,
	}
}

func TestRepositoryInsertAndFetchUnpublished(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	older := newOutboxEvent(time.Now().Add(-2 * time.Minute))
	newer := newOutboxEvent(time.Now().Add(-time.Minute))
	require.NoError(t, repo.Insert(db, older))
	require.NoError(t, repo.Insert(db, newer))

	rows, err := repo.FetchUnpublished(10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, older.ID, rows[0].ID)
	assert.Equal(t, newer.ID, rows[1].ID)
}

func TestRepositoryInsertRequiresTx(t *testing.T) {
	repo := NewRepository(setupOutboxTestDB(t))
	err := repo.Insert(nil, newOutboxEvent(time.Now()))
	require.Error(t, err)
}

func TestRepositoryMarkPublishedHidesRow(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	event := newOutboxEvent(time.Now())
	require.NoError(t, repo.Insert(db, event))
	require.NoError(t, repo.MarkPublishedTx(db, event.ID))

	rows, err := repo.FetchUnpublished(10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRepositoryMarkFailedIncrementsAttempts(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	event := newOutboxEvent(time.Now())
	require.NoError(t, repo.Insert(db, event))
	require.NoError(t, repo.MarkFailedTx(db, event.ID, errors.New("publish blew up")))
	require.NoError(t, repo.MarkFailedTx(db, event.ID, errors.New("still down")))

	var row models.OutboxEvent
	require.NoError(t, db.First(&row, "id = ?", event.ID).Error)
	assert.Equal(t, 2, row.AttemptCount)
	require.NotNil(t, row.LastError)
	assert.Equal(t, "still down", *row.LastError)
}

func TestRepositoryMarkTerminalPinsAttempts(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	event := newOutboxEvent(time.Now())
	require.NoError(t, repo.Insert(db, event))
	require.NoError(t, repo.MarkTerminalTx(db, event.ID, errors.New("poison"), 10))

	var row models.OutboxEvent
	require.NoError(t, db.First(&row, "id = ?", event.ID).Error)
	assert.Equal(t, 10, row.AttemptCount)
}

func TestRepositoryDeletePublishedBefore(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	stale := newOutboxEvent(time.Now().Add(-48 * time.Hour))
	require.NoError(t, repo.Insert(db, stale))
	require.NoError(t, repo.MarkPublishedTx(db, stale.ID))
	require.NoError(t, db.Model(&models.OutboxEvent{}).
		Where("id = ?", stale.ID).
		Update("published_at", time.Now().Add(-40*24*time.Hour)).Error)

	fresh := newOutboxEvent(time.Now())
	require.NoError(t, repo.Insert(db, fresh))
	require.NoError(t, repo.MarkPublishedTx(db, fresh.ID))

	unpublished := newOutboxEvent(time.Now().Add(-60 * 24 * time.Hour))
	require.NoError(t, repo.Insert(db, unpublished))

	deleted, err := repo.DeletePublishedBefore(ctx, db, time.Now().Add(-30*24*time.Hour), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&remaining).Error)
	assert.Equal(t, int64(2), remaining)
}

func TestDLQRepositoryInsertAndFind(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewDLQRepository(db)
	ctx := context.Background()

	eventID := uuid.New()
	message := "decoding envelope: unexpected end of JSON input"
	entry := models.OutboxDLQ{
		ID:            uuid.New(),
		EventID:       eventID,
		EventType:     enums.EventClaimSubmitted,
		AggregateType: enums.AggregateClaim,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"broken":`),
		ErrorReason:   enums.OutboxDLQReasonNonRetryable,
		ErrorMessage:  &message,
		AttemptCount:  1,
		FailedAt:      time.Now(),
	}
	require.NoError(t, repo.InsertTx(db, entry))

	found, err := repo.FindByEventID(ctx, eventID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, found.ErrorReason)
	require.NotNil(t, found.ErrorMessage)
	assert.Equal(t, message, *found.ErrorMessage)

	missing, err := repo.FindByEventID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDLQRepositoryTruncatesLongErrors(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewDLQRepository(db)

	long := make([]byte, maxDLQErrorLen*2)
	for i := range long {
		long[i] = 'x'
	}
	message := string(long)
	entry := models.OutboxDLQ{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		EventType:     enums.EventClaimSubmitted,
		AggregateType: enums.AggregateClaim,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &message,
		FailedAt:      time.Now(),
	}
	require.NoError(t, repo.InsertTx(db, entry))

	found, err := repo.FindByEventID(context.Background(), entry.EventID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.NotNil(t, found.ErrorMessage)
	assert.Len(t, *found.ErrorMessage, maxDLQErrorLen)
}

func TestDLQRepositoryDeleteFailedBefore(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewDLQRepository(db)
	ctx := context.Background()

	stale := models.OutboxDLQ{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		EventType:     enums.EventClaimSubmitted,
		AggregateType: enums.AggregateClaim,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		FailedAt:      time.Now().Add(-120 * 24 * time.Hour),
	}
	fresh := stale
	fresh.ID = uuid.New()
	fresh.EventID = uuid.New()
	fresh.FailedAt = time.Now()

	require.NoError(t, repo.InsertTx(db, stale))
	require.NoError(t, repo.InsertTx(db, fresh))

	deleted, err := repo.DeleteFailedBefore(ctx, db, time.Now().Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, fresh.EventID, remaining[0].EventID)
}
