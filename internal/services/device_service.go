// Package services – DeviceService
//
// This file implements the DeviceService, which manages the device registry.
// It validates registration input, assigns stable identifiers (an internal
// UUID plus a human-readable per-OS display ID such as "A00001"), and
// coordinates store operations for creating, listing, updating, and deleting
// devices.
//
// Service-level errors (e.g., ErrDeviceNotFound) are returned for predictable
// cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/devports/go-lending-backend/internal/domain"
	"github.com/devports/go-lending-backend/internal/store"
)

// DefaultStoreTimeout bounds individual store operations when the caller did
// not configure one.
const DefaultStoreTimeout = 5 * time.Second

// DeviceService provides registry-level operations: registering new devices,
// looking them up, updating metadata, and removing them from the fleet.
type DeviceService struct {
	// Devices is the device store backing this service.
	Devices store.DeviceStore

	// StoreTimeout caps the duration of each store call.
	StoreTimeout time.Duration
}

// NewDeviceService constructs a DeviceService with the default store timeout.
func NewDeviceService(devices store.DeviceStore) *DeviceService {
	return &DeviceService{Devices: devices, StoreTimeout: DefaultStoreTimeout}
}

func (s *DeviceService) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return opCtx(ctx, s.StoreTimeout)
}

// Register validates the form, assigns identifiers, and persists the device.
// The internal ID and display ID are assigned here and never change afterwards.
func (s *DeviceService) Register(ctx context.Context, actor domain.Actor, form domain.DeviceForm) (*domain.Device, error) {
	form.ModelName = strings.TrimSpace(form.ModelName)
	form.OSName = strings.TrimSpace(form.OSName)
	form.OSVersion = strings.TrimSpace(form.OSVersion)
	form.UUID = strings.TrimSpace(form.UUID)
	if form.ModelName == "" {
		return nil, fmt.Errorf("%w: model_name is required", ErrValidation)
	}
	if form.OSName == "" {
		return nil, fmt.Errorf("%w: os_name is required", ErrValidation)
	}
	if form.OSVersion == "" {
		return nil, fmt.Errorf("%w: os_version is required", ErrValidation)
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if form.UUID != "" {
		if _, err := s.Devices.GetByUUID(ctx, form.UUID); err == nil {
			return nil, ErrDuplicateDevice
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	displayID, err := s.Devices.NextDisplayID(ctx, form.OSName)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	d := &domain.Device{
		ID:             uuid.NewString(),
		DisplayID:      displayID,
		ModelName:      form.ModelName,
		OSName:         form.OSName,
		OSVersion:      form.OSVersion,
		Manufacturer:   strings.TrimSpace(form.Manufacturer),
		ScreenSize:     strings.TrimSpace(form.ScreenSize),
		PhysicalMemory: strings.TrimSpace(form.PhysicalMemory),
		UUID:           form.UUID,
		Memo:           form.Memo,
		Status:         domain.StatusAvailable,
		RegisteredBy:   actor.ID,
		RegisteredAt:   now,
		UpdatedAt:      now,
	}
	if err := s.Devices.Create(ctx, d); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrDuplicateDevice
		}
		return nil, err
	}
	return d, nil
}

// Get fetches a single device by its internal ID.
func (s *DeviceService) Get(ctx context.Context, id string) (*domain.Device, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	d, err := s.Devices.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	return d, nil
}

// List returns devices matching the filter.
func (s *DeviceService) List(ctx context.Context, filter domain.DeviceFilter) ([]domain.Device, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.Devices.List(ctx, filter)
}

// Update applies a partial metadata update. Lending state is never touched
// here; borrow and return go through LendingService.
func (s *DeviceService) Update(ctx context.Context, id string, upd domain.DeviceUpdate) (*domain.Device, error) {
	if upd.ModelName != nil && strings.TrimSpace(*upd.ModelName) == "" {
		return nil, fmt.Errorf("%w: model_name cannot be empty", ErrValidation)
	}
	if upd.OSName != nil && strings.TrimSpace(*upd.OSName) == "" {
		return nil, fmt.Errorf("%w: os_name cannot be empty", ErrValidation)
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.Devices.Update(ctx, id, upd); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	return s.Devices.Get(ctx, id)
}

// Delete removes a device from the registry. Devices that are currently
// borrowed cannot be deleted; the holder must return (or an admin
// force-return) first. History records referencing the device are kept.
func (s *DeviceService) Delete(ctx context.Context, id string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	d, err := s.Devices.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrDeviceNotFound
		}
		return err
	}
	if !d.Available() {
		return ErrDeviceInUse
	}
	if err := s.Devices.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrDeviceNotFound
		}
		return err
	}
	return nil
}

// opCtx derives a deadline-bounded context for a single store call. A zero
// timeout falls back to DefaultStoreTimeout.
func opCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
