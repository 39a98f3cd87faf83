package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/swiftpdv/pdv-backend/pkg/db/models"
	"github.com/swiftpdv/pdv-backend/pkg/enums"
)

func insertRow(t *testing.T, conn *gorm.DB, attempts int, created time.Time) models.OutboxEvent {
	t.Helper()
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventSaleCreated,
		AggregateType: enums.AggregateSale,
		AggregateID:   "1",
		Payload:       json.RawMessage(`{"eventId":"x"}`),
		CreatedAt:     created,
		AttemptCount:  attempts,
	}
	require.NoError(t, conn.Create(&row).Error)
	return row
}

func claim(t *testing.T, conn *gorm.DB, repo *Repository, limit, maxAttempts int) []models.OutboxEvent {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		rows, err = repo.Claim(tx, limit, maxAttempts)
		return err
	}))
	return rows
}

func TestClaimOrdersOldestFirstAndSkipsSettledRows(t *testing.T) {
	conn := newOutboxDB(t)
	repo := NewRepository(conn)
	now := time.Now().UTC()

	fresh := insertRow(t, conn, 0, now.Add(-time.Minute))
	retrying := insertRow(t, conn, 2, now.Add(-2*time.Minute))
	insertRow(t, conn, 5, now.Add(-3*time.Minute))
	delivered := insertRow(t, conn, 0, now.Add(-4*time.Minute))
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return repo.MarkDelivered(tx, delivered.ID, now)
	}))

	rows := claim(t, conn, repo, 10, 5)
	require.Len(t, rows, 2)
	assert.Equal(t, retrying.ID, rows[0].ID)
	assert.Equal(t, fresh.ID, rows[1].ID)

	assert.Len(t, claim(t, conn, repo, 1, 5), 1)

	pending, err := repo.CountPending(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, pending)
}

func TestRecordFailureAndRetire(t *testing.T) {
	conn := newOutboxDB(t)
	repo := NewRepository(conn)
	row := insertRow(t, conn, 0, time.Now().UTC())

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return repo.RecordFailure(tx, row.ID, errors.New("topic unavailable"))
	}))
	var stored models.OutboxEvent
	require.NoError(t, conn.First(&stored, "id = ?", row.ID).Error)
	assert.Equal(t, 1, stored.AttemptCount)
	require.NotNil(t, stored.LastError)
	assert.Equal(t, "topic unavailable", *stored.LastError)
	assert.Nil(t, stored.PublishedAt)

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return repo.Retire(tx, row.ID, nil, 3)
	}))
	assert.Empty(t, claim(t, conn, repo, 10, 3))
	require.NoError(t, conn.First(&stored, "id = ?", row.ID).Error)
	assert.Equal(t, "unknown error", *stored.LastError)
}

func TestRepositoryRequiresTransaction(t *testing.T) {
	repo := NewRepository(nil)
	id := uuid.New()
	assert.ErrorIs(t, repo.Append(nil, models.OutboxEvent{}), errNoTx)
	assert.ErrorIs(t, repo.MarkDelivered(nil, id, time.Now()), errNoTx)
	assert.ErrorIs(t, repo.RecordFailure(nil, id, nil), errNoTx)
	assert.ErrorIs(t, repo.Retire(nil, id, nil, 1), errNoTx)
	_, err := repo.Claim(nil, 1, 1)
	assert.ErrorIs(t, err, errNoTx)
}
