// GORM-backed DeviceStore.
//
// Status transitions are single conditional UPDATEs guarded by the current
// status column, so two concurrent borrowers cannot both observe "available"
// and both win: exactly one UPDATE matches, the other sees zero rows affected
// and reports a conflict.

package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/devports/go-lending-backend/internal/domain"
	"github.com/devports/go-lending-backend/internal/store"
)

// DeviceStore implements store.DeviceStore over a GORM handle.
type DeviceStore struct {
	db *gorm.DB
}

// NewDeviceStore returns a DeviceStore bound to db.
func NewDeviceStore(db *gorm.DB) *DeviceStore { return &DeviceStore{db: db} }

// Get fetches a device by its stable ID.
func (s *DeviceStore) Get(ctx context.Context, id string) (*domain.Device, error) {
	var d domain.Device
	if err := s.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

// GetByUUID fetches a device by its hardware UUID.
func (s *DeviceStore) GetByUUID(ctx context.Context, uuid string) (*domain.Device, error) {
	var d domain.Device
	if err := s.db.WithContext(ctx).First(&d, "uuid = ?", uuid).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

// Create inserts a new device row.
func (s *DeviceStore) Create(ctx context.Context, d *domain.Device) error {
	return translate(s.db.WithContext(ctx).Create(d).Error)
}

// Update applies the non-nil fields of upd and bumps updated_at.
func (s *DeviceStore) Update(ctx context.Context, id string, upd domain.DeviceUpdate) error {
	changes := map[string]any{}
	if upd.ModelName != nil {
		changes["model_name"] = *upd.ModelName
	}
	if upd.OSName != nil {
		changes["os_name"] = *upd.OSName
	}
	if upd.OSVersion != nil {
		changes["os_version"] = *upd.OSVersion
	}
	if upd.Manufacturer != nil {
		changes["manufacturer"] = *upd.Manufacturer
	}
	if upd.ScreenSize != nil {
		changes["screen_size"] = *upd.ScreenSize
	}
	if upd.PhysicalMemory != nil {
		changes["physical_memory"] = *upd.PhysicalMemory
	}
	if upd.Memo != nil {
		changes["memo"] = *upd.Memo
	}
	if len(changes) == 0 {
		_, err := s.Get(ctx, id)
		return err
	}
	changes["updated_at"] = time.Now().UTC()

	res := s.db.WithContext(ctx).
		Model(&domain.Device{}).
		Where("id = ?", id).
		Updates(changes)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// MarkBorrowed flips the device to in_use and records the holder triple,
// guarded by status = available.
func (s *DeviceStore) MarkBorrowed(ctx context.Context, id string, actor domain.Actor, at time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&domain.Device{}).
		Where("id = ? AND status = ?", id, domain.StatusAvailable).
		Updates(map[string]any{
			"status":            domain.StatusInUse,
			"current_user_id":   actor.ID,
			"current_user_name": actor.Name,
			"borrowed_at":       at,
			"updated_at":        at,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return s.missOrConflict(ctx, id)
	}
	return nil
}

// MarkReturned flips the device back to available and clears the holder
// triple, guarded by status = in_use.
func (s *DeviceStore) MarkReturned(ctx context.Context, id string, at time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&domain.Device{}).
		Where("id = ? AND status = ?", id, domain.StatusInUse).
		Updates(map[string]any{
			"status":            domain.StatusAvailable,
			"current_user_id":   nil,
			"current_user_name": nil,
			"borrowed_at":       nil,
			"updated_at":        at,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return s.missOrConflict(ctx, id)
	}
	return nil
}

// missOrConflict disambiguates a zero-row guarded update: the device either
// does not exist or sits in the wrong state.
func (s *DeviceStore) missOrConflict(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return store.ErrConflict
}

// Delete removes the device row. Rental history is untouched.
func (s *DeviceStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&domain.Device{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// List returns devices matching the filter, most recently updated first.
func (s *DeviceStore) List(ctx context.Context, f domain.DeviceFilter) ([]domain.Device, error) {
	q := s.db.WithContext(ctx).Model(&domain.Device{}).Order("updated_at DESC")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.OSName != "" {
		q = q.Where("os_name = ?", f.OSName)
	}
	if f.Manufacturer != "" {
		q = q.Where("manufacturer = ?", f.Manufacturer)
	}
	if f.UserID != "" {
		q = q.Where("current_user_id = ?", f.UserID)
	}
	if f.Search != "" {
		needle := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where(
			"LOWER(model_name) LIKE ? OR LOWER(os_version) LIKE ? OR LOWER(manufacturer) LIKE ?",
			needle, needle, needle,
		)
	}

	var out []domain.Device
	if err := q.Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// NextDisplayID issues the next sequential display ID for the OS family.
// The counter increment and read-back run in one transaction so concurrent
// registrations never share a number.
func (s *DeviceStore) NextDisplayID(ctx context.Context, osName string) (string, error) {
	prefix := displayPrefix(osName)

	var value int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&deviceIDCounter{}).
			Where("prefix = ?", prefix).
			Updates(map[string]any{
				"value":      gorm.Expr("value + 1"),
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			c := deviceIDCounter{Prefix: prefix, Value: 1, OSName: osName, UpdatedAt: time.Now().UTC()}
			if err := tx.Create(&c).Error; err != nil {
				return err
			}
			value = 1
			return nil
		}

		var c deviceIDCounter
		if err := tx.First(&c, "prefix = ?", prefix).Error; err != nil {
			return err
		}
		value = c.Value
		return nil
	})
	if err != nil {
		return "", translate(err)
	}
	return fmt.Sprintf("%s%05d", prefix, value), nil
}

// displayPrefix maps an OS name to its display-ID letter: "I" for iOS,
// "A" for everything else (Android fleet).
func displayPrefix(osName string) string {
	if strings.EqualFold(osName, "iOS") {
		return "I"
	}
	return "A"
}
