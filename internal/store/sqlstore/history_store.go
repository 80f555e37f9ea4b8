// GORM-backed HistoryStore.

package sqlstore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/devports/go-lending-backend/internal/domain"
	"github.com/devports/go-lending-backend/internal/store"
)

// HistoryStore implements store.HistoryStore over a GORM handle.
type HistoryStore struct {
	db *gorm.DB
}

// NewHistoryStore returns a HistoryStore bound to db.
func NewHistoryStore(db *gorm.DB) *HistoryStore { return &HistoryStore{db: db} }

// Append inserts a new history record.
func (s *HistoryStore) Append(ctx context.Context, rec *domain.RentalHistoryRecord) error {
	return translate(s.db.WithContext(ctx).Create(rec).Error)
}

// CloseOpen stamps the most recent open record for deviceID as returned.
// The lookup and the update run in one transaction so two concurrent returns
// cannot close the same record twice.
func (s *HistoryStore) CloseOpen(ctx context.Context, deviceID string, at time.Time) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec domain.RentalHistoryRecord
		err := tx.
			Where("device_id = ? AND status = ?", deviceID, domain.RentalBorrowed).
			Order("borrowed_at DESC").
			First(&rec).Error
		if err != nil {
			return err
		}
		return tx.Model(&rec).Updates(map[string]any{
			"status":      domain.RentalReturned,
			"returned_at": at,
		}).Error
	})
	return translate(err)
}

// Delete removes a single record by ID.
func (s *HistoryStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&domain.RentalHistoryRecord{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListRecent returns up to limit records, newest borrow first.
func (s *HistoryStore) ListRecent(ctx context.Context, limit int) ([]domain.RentalHistoryRecord, error) {
	var out []domain.RentalHistoryRecord
	err := s.db.WithContext(ctx).
		Order("borrowed_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// Count returns the total number of history records.
func (s *HistoryStore) Count(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&domain.RentalHistoryRecord{}).
		Count(&total).Error
	return total, translate(err)
}

// PruneOldest deletes records oldest-first (by creation time) until at most
// max remain.
func (s *HistoryStore) PruneOldest(ctx context.Context, max int) (int64, error) {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var total int64
		if err := tx.Model(&domain.RentalHistoryRecord{}).Count(&total).Error; err != nil {
			return err
		}
		excess := total - int64(max)
		if excess <= 0 {
			return nil
		}

		var ids []string
		err := tx.Model(&domain.RentalHistoryRecord{}).
			Order("created_at ASC").
			Limit(int(excess)).
			Pluck("id", &ids).Error
		if err != nil {
			return err
		}

		res := tx.Delete(&domain.RentalHistoryRecord{}, "id IN ?", ids)
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, translate(err)
	}
	return removed, nil
}
