package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/devports/go-lending-backend/internal/domain"
	"github.com/devports/go-lending-backend/internal/store"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:sqlstore_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedDevice(t *testing.T, db *gorm.DB, mutate func(*domain.Device)) *domain.Device {
	t.Helper()
	now := time.Now().UTC()
	d := &domain.Device{
		ID:           uuid.NewString(),
		DisplayID:    "A" + uuid.NewString()[:5],
		ModelName:    "Pixel 8",
		OSName:       "Android",
		OSVersion:    "14",
		Manufacturer: "Google",
		UUID:         uuid.NewString(),
		Status:       domain.StatusAvailable,
		RegisteredBy: "admin-1",
		RegisteredAt: now,
		UpdatedAt:    now,
	}
	if mutate != nil {
		mutate(d)
	}
	if err := db.Create(d).Error; err != nil {
		t.Fatalf("seed device: %v", err)
	}
	return d
}

func TestDeviceStore_GetNotFound(t *testing.T) {
	s := NewDeviceStore(newTestDB(t))
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeviceStore_CreateAndGetByUUID(t *testing.T) {
	db := newTestDB(t)
	s := NewDeviceStore(db)
	d := seedDevice(t, db, nil)

	got, err := s.GetByUUID(context.Background(), d.UUID)
	if err != nil {
		t.Fatalf("GetByUUID: %v", err)
	}
	if got.ID != d.ID {
		t.Fatalf("GetByUUID returned %s, want %s", got.ID, d.ID)
	}
}

func TestDeviceStore_CreateDuplicateDisplayID(t *testing.T) {
	db := newTestDB(t)
	s := NewDeviceStore(db)
	d := seedDevice(t, db, nil)

	dup := *d
	dup.ID = uuid.NewString()
	dup.UUID = "some-other-hw-uuid"
	err := s.Create(context.Background(), &dup)
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate display id, got %v", err)
	}
}

func TestDeviceStore_MarkBorrowed(t *testing.T) {
	db := newTestDB(t)
	s := NewDeviceStore(db)
	d := seedDevice(t, db, nil)

	actor := domain.Actor{ID: "u-42", Name: "Alice"}
	at := time.Now().UTC()
	if err := s.MarkBorrowed(context.Background(), d.ID, actor, at); err != nil {
		t.Fatalf("MarkBorrowed: %v", err)
	}

	got, err := s.Get(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.StatusInUse {
		t.Fatalf("status = %s, want in_use", got.Status)
	}
	if got.CurrentUserID == nil || *got.CurrentUserID != "u-42" {
		t.Fatalf("holder not recorded: %+v", got.CurrentUserID)
	}
	if got.BorrowedAt == nil {
		t.Fatalf("borrowedAt not recorded")
	}
}

func TestDeviceStore_MarkBorrowed_Conflict(t *testing.T) {
	db := newTestDB(t)
	s := NewDeviceStore(db)
	d := seedDevice(t, db, nil)

	actor := domain.Actor{ID: "u-1", Name: "A"}
	if err := s.MarkBorrowed(context.Background(), d.ID, actor, time.Now().UTC()); err != nil {
		t.Fatalf("first MarkBorrowed: %v", err)
	}

	// Second transition on the same device loses the guard.
	err := s.MarkBorrowed(context.Background(), d.ID, domain.Actor{ID: "u-2", Name: "B"}, time.Now().UTC())
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestDeviceStore_MarkBorrowed_NotFound(t *testing.T) {
	s := NewDeviceStore(newTestDB(t))
	err := s.MarkBorrowed(context.Background(), "missing", domain.Actor{ID: "u"}, time.Now().UTC())
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeviceStore_MarkReturned_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	s := NewDeviceStore(db)
	d := seedDevice(t, db, nil)

	if err := s.MarkBorrowed(context.Background(), d.ID, domain.Actor{ID: "u-1", Name: "A"}, time.Now().UTC()); err != nil {
		t.Fatalf("MarkBorrowed: %v", err)
	}
	if err := s.MarkReturned(context.Background(), d.ID, time.Now().UTC()); err != nil {
		t.Fatalf("MarkReturned: %v", err)
	}

	got, err := s.Get(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.StatusAvailable {
		t.Fatalf("status = %s, want available", got.Status)
	}
	if got.CurrentUserID != nil || got.CurrentUserName != nil || got.BorrowedAt != nil {
		t.Fatalf("holder triple not cleared: %+v", got)
	}
}

func TestDeviceStore_MarkReturned_NotInUse(t *testing.T) {
	db := newTestDB(t)
	s := NewDeviceStore(db)
	d := seedDevice(t, db, nil)

	err := s.MarkReturned(context.Background(), d.ID, time.Now().UTC())
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestDeviceStore_Update(t *testing.T) {
	db := newTestDB(t)
	s := NewDeviceStore(db)
	d := seedDevice(t, db, nil)

	name := "Pixel 8 Pro"
	memo := "screen scratch"
	if err := s.Update(context.Background(), d.ID, domain.DeviceUpdate{ModelName: &name, Memo: &memo}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := s.Get(context.Background(), d.ID)
	if got.ModelName != "Pixel 8 Pro" || got.Memo != "screen scratch" {
		t.Fatalf("update not applied: %+v", got)
	}
	if got.OSVersion != "14" {
		t.Fatalf("untouched field changed: %s", got.OSVersion)
	}
}

func TestDeviceStore_Update_NotFound(t *testing.T) {
	s := NewDeviceStore(newTestDB(t))
	name := "x"
	err := s.Update(context.Background(), "missing", domain.DeviceUpdate{ModelName: &name})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeviceStore_Delete(t *testing.T) {
	db := newTestDB(t)
	s := NewDeviceStore(db)
	d := seedDevice(t, db, nil)

	if err := s.Delete(context.Background(), d.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(context.Background(), d.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("device still present after delete: %v", err)
	}
	if err := s.Delete(context.Background(), d.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete expected ErrNotFound, got %v", err)
	}
}

func TestDeviceStore_List_Filters(t *testing.T) {
	db := newTestDB(t)
	s := NewDeviceStore(db)

	seedDevice(t, db, func(d *domain.Device) {
		d.ModelName = "iPad Pro"
		d.OSName = "iOS"
		d.Manufacturer = "Apple"
	})
	inUse := seedDevice(t, db, func(d *domain.Device) {
		d.ModelName = "Galaxy S24"
		d.Manufacturer = "Samsung"
	})
	uid := "u-7"
	if err := s.MarkBorrowed(context.Background(), inUse.ID, domain.Actor{ID: uid, Name: "Bob"}, time.Now().UTC()); err != nil {
		t.Fatalf("MarkBorrowed: %v", err)
	}

	all, err := s.List(context.Background(), domain.DeviceFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("List returned %d devices, want 2", len(all))
	}

	ios, err := s.List(context.Background(), domain.DeviceFilter{OSName: "iOS"})
	if err != nil || len(ios) != 1 || ios[0].ModelName != "iPad Pro" {
		t.Fatalf("os filter failed: %v %+v", err, ios)
	}

	busy, err := s.List(context.Background(), domain.DeviceFilter{Status: domain.StatusInUse})
	if err != nil || len(busy) != 1 || busy[0].ID != inUse.ID {
		t.Fatalf("status filter failed: %v %+v", err, busy)
	}

	mine, err := s.List(context.Background(), domain.DeviceFilter{UserID: uid})
	if err != nil || len(mine) != 1 || mine[0].ID != inUse.ID {
		t.Fatalf("user filter failed: %v %+v", err, mine)
	}

	found, err := s.List(context.Background(), domain.DeviceFilter{Search: "galaxy"})
	if err != nil || len(found) != 1 || found[0].ID != inUse.ID {
		t.Fatalf("search filter failed: %v %+v", err, found)
	}
}

func TestDeviceStore_NextDisplayID(t *testing.T) {
	db := newTestDB(t)
	s := NewDeviceStore(db)
	ctx := context.Background()

	first, err := s.NextDisplayID(ctx, "Android")
	if err != nil {
		t.Fatalf("NextDisplayID: %v", err)
	}
	if first != "A00001" {
		t.Fatalf("first android id = %q, want A00001", first)
	}

	second, err := s.NextDisplayID(ctx, "Android")
	if err != nil {
		t.Fatalf("NextDisplayID: %v", err)
	}
	if second != "A00002" {
		t.Fatalf("second android id = %q, want A00002", second)
	}

	// iOS runs on its own counter.
	ios, err := s.NextDisplayID(ctx, "iOS")
	if err != nil {
		t.Fatalf("NextDisplayID: %v", err)
	}
	if ios != "I00001" {
		t.Fatalf("first ios id = %q, want I00001", ios)
	}
}
