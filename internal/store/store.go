// Package store defines the persistence contracts consumed by the service
// layer, together with the error sentinels every backend maps its driver
// errors onto. Two interchangeable implementations exist: sqlstore (GORM over
// SQLite or Postgres) and fsstore (Firestore). The backend is selected by
// configuration at startup, never by runtime fallback.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/devports/go-lending-backend/internal/domain"
)

// Sentinel errors shared by all backends. Services check these with
// errors.Is and translate them into their own error taxonomy.
var (
	// ErrNotFound indicates the referenced device or history record does
	// not exist.
	ErrNotFound = errors.New("store: record not found")

	// ErrConflict indicates a guarded write lost: the row/document was not
	// in the expected state (concurrent transition) or violated a unique
	// constraint (duplicate hardware UUID or display ID).
	ErrConflict = errors.New("store: conflicting state")

	// ErrUnavailable indicates the backing store connection could not be
	// established. Distinct from a timeout: no response attempt was possible.
	ErrUnavailable = errors.New("store: backend unavailable")
)

// DeviceStore persists device records.
//
// MarkBorrowed and MarkReturned are guarded transitions: they must perform
// the status flip and the holder-triple update atomically, conditional on the
// current status, and return ErrConflict when a concurrent caller won the
// race. This closes the lost-update window between a service-level
// precondition read and the write.
type DeviceStore interface {
	// Get fetches a device by its stable ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Device, error)

	// GetByUUID fetches a device by its hardware UUID, or ErrNotFound.
	GetByUUID(ctx context.Context, uuid string) (*domain.Device, error)

	// Create inserts a new device. ErrConflict on duplicate UUID/display ID.
	Create(ctx context.Context, d *domain.Device) error

	// Update applies an explicit edit of descriptive fields and bumps
	// UpdatedAt. ErrNotFound when the device does not exist.
	Update(ctx context.Context, id string, upd domain.DeviceUpdate) error

	// MarkBorrowed atomically sets status=in_use and the holder triple,
	// conditional on status==available. ErrConflict when already in use.
	MarkBorrowed(ctx context.Context, id string, actor domain.Actor, at time.Time) error

	// MarkReturned atomically sets status=available and clears the holder
	// triple, conditional on status==in_use. ErrConflict when not in use.
	MarkReturned(ctx context.Context, id string, at time.Time) error

	// Delete removes the device record. History records are untouched.
	Delete(ctx context.Context, id string) error

	// List returns devices matching the filter, most recently updated first.
	List(ctx context.Context, f domain.DeviceFilter) ([]domain.Device, error)

	// NextDisplayID issues the next sequential display ID for the OS family
	// ("A00001", "I00002", ...). Each call consumes one number.
	NextDisplayID(ctx context.Context, osName string) (string, error)
}

// HistoryStore persists the append-only rental audit trail.
type HistoryStore interface {
	// Append inserts a new history record.
	Append(ctx context.Context, rec *domain.RentalHistoryRecord) error

	// CloseOpen locates the most recent open (borrowed) record for deviceID
	// and stamps it returned at the given time. ErrNotFound when the device
	// has no open record.
	CloseOpen(ctx context.Context, deviceID string, at time.Time) error

	// Delete removes a single record by ID, or ErrNotFound.
	Delete(ctx context.Context, id string) error

	// ListRecent returns up to limit records, newest borrow first.
	ListRecent(ctx context.Context, limit int) ([]domain.RentalHistoryRecord, error)

	// Count returns the total number of records.
	Count(ctx context.Context) (int64, error)

	// PruneOldest deletes records oldest-first until at most max remain,
	// returning how many were removed.
	PruneOldest(ctx context.Context, max int) (int64, error)
}

// Stores bundles the two stores a backend provides, plus its teardown.
type Stores struct {
	Devices DeviceStore
	History HistoryStore

	// Close releases backend resources (connection pools, gRPC clients).
	Close func() error
}
