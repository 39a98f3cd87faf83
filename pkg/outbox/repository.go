package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/swiftpdv/pdv-backend/pkg/db/models"
)

var errNoTx = errors.New("outbox: transaction required")

// Repository reads and writes outbox_events. Everything except CountPending
// runs on a caller-supplied transaction.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Append(tx *gorm.DB, row models.OutboxEvent) error {
	if tx == nil {
		return errNoTx
	}
	return tx.Create(&row).Error
}

// Claim returns up to limit undelivered rows with attempts left, oldest
// first. Postgres locks them FOR UPDATE SKIP LOCKED so concurrent relays
// never claim the same row.
func (r *Repository) Claim(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if tx == nil {
		return nil, errNoTx
	}
	q := tx.Model(&models.OutboxEvent{}).Where("published_at IS NULL")
	if maxAttempts > 0 {
		q = q.Where("attempt_count < ?", maxAttempts)
	}
	if tx.Dialector != nil && tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate, Options: clause.LockingOptionsSkipLocked})
	}
	var rows []models.OutboxEvent
	err := q.Order("created_at, id").Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkDelivered(tx *gorm.DB, id uuid.UUID, at time.Time) error {
	return r.update(tx, id, map[string]any{"published_at": at.UTC(), "last_error": nil})
}

// RecordFailure bumps attempt_count and keeps the latest error text.
func (r *Repository) RecordFailure(tx *gorm.DB, id uuid.UUID, cause error) error {
	return r.update(tx, id, map[string]any{
		"attempt_count": gorm.Expr("attempt_count + 1"),
		"last_error":    errText(cause),
	})
}

// Retire parks a row that can never be delivered by setting attempt_count to
// the ceiling Claim filters on. The row stays for inspection.
func (r *Repository) Retire(tx *gorm.DB, id uuid.UUID, cause error, maxAttempts int) error {
	return r.update(tx, id, map[string]any{"attempt_count": maxAttempts, "last_error": errText(cause)})
}

func (r *Repository) update(tx *gorm.DB, id uuid.UUID, values map[string]any) error {
	if tx == nil {
		return errNoTx
	}
	return tx.Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(values).Error
}

// CountPending counts undelivered rows, retired ones included.
func (r *Repository) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.OutboxEvent{}).Where("published_at IS NULL").Count(&n).Error
	return n, err
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
