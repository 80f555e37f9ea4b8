// Package services – LendingService
//
// This file implements the LendingService, which drives the device lending
// state machine (available ↔ in_use). Transitions are guarded at the store
// layer: a borrow only succeeds against an available device and a return only
// against a borrowed one, so two racing requests cannot both win.
//
// History is secondary to the device record. After a transition commits, the
// service appends or closes a rental history record and prunes the log to the
// retention cap; failures there are logged and swallowed rather than failing
// the lending operation that already took effect.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/devports/go-lending-backend/internal/domain"
	"github.com/devports/go-lending-backend/internal/store"
)

// DefaultRetention is the number of rental history records kept when no cap
// is configured.
const DefaultRetention = 100

// LendingService coordinates borrow, return, and admin force-return across
// the device store and the rental history log.
type LendingService struct {
	// Devices is the device store backing lending transitions.
	Devices store.DeviceStore
	// History is the rental history log.
	History store.HistoryStore

	// Retention caps the history log; older records are pruned past it.
	Retention int
	// StoreTimeout caps the duration of each store call.
	StoreTimeout time.Duration
	// Log receives warnings for non-fatal history failures.
	Log zerolog.Logger
}

// NewLendingService constructs a LendingService with default retention and
// store timeout.
func NewLendingService(devices store.DeviceStore, history store.HistoryStore, log zerolog.Logger) *LendingService {
	return &LendingService{
		Devices:      devices,
		History:      history,
		Retention:    DefaultRetention,
		StoreTimeout: DefaultStoreTimeout,
		Log:          log,
	}
}

func (s *LendingService) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return opCtx(ctx, s.StoreTimeout)
}

// Borrow transitions the device to in_use on behalf of the actor and opens a
// rental history record. Borrowing a device that is already in use returns
// ErrDeviceInUse, including when the actor is the current holder.
func (s *LendingService) Borrow(ctx context.Context, deviceID string, actor domain.Actor) (*domain.Device, error) {
	if actor.ID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	at := time.Now().UTC()
	if err := s.Devices.MarkBorrowed(ctx, deviceID, actor, at); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrDeviceNotFound
		case errors.Is(err, store.ErrConflict):
			return nil, ErrDeviceInUse
		}
		return nil, err
	}

	d, err := s.Devices.Get(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	s.appendHistory(ctx, d, actor, at)
	return d, nil
}

// Return transitions the device back to available. Only the current holder
// may return; anyone else gets ErrNotHolder. Admins should use ForceReturn.
func (s *LendingService) Return(ctx context.Context, deviceID string, actor domain.Actor) (*domain.Device, error) {
	if actor.ID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	d, err := s.Devices.Get(ctx, deviceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	if d.Available() {
		return nil, ErrDeviceNotInUse
	}
	if !d.HeldBy(actor.ID) {
		return nil, ErrNotHolder
	}

	return s.finishReturn(ctx, deviceID)
}

// ForceReturn is the admin override: it returns the device regardless of who
// holds it. The holder check is the only difference from Return; the state
// transition and history handling are identical.
func (s *LendingService) ForceReturn(ctx context.Context, deviceID string, actor domain.Actor) (*domain.Device, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotHolder
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	d, err := s.Devices.Get(ctx, deviceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	if d.Available() {
		return nil, ErrDeviceNotInUse
	}

	return s.finishReturn(ctx, deviceID)
}

// finishReturn performs the guarded available transition and closes the open
// history record.
func (s *LendingService) finishReturn(ctx context.Context, deviceID string) (*domain.Device, error) {
	at := time.Now().UTC()
	if err := s.Devices.MarkReturned(ctx, deviceID, at); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrDeviceNotFound
		case errors.Is(err, store.ErrConflict):
			return nil, ErrDeviceNotInUse
		}
		return nil, err
	}

	d, err := s.Devices.Get(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	if err := s.History.CloseOpen(ctx, deviceID, at); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Log.Warn().Str("device_id", deviceID).Msg("no open history record to close on return")
		} else {
			s.Log.Warn().Err(err).Str("device_id", deviceID).Msg("failed to close history record")
		}
	}
	return d, nil
}

// appendHistory records a borrow event with a snapshot of the device and
// borrower, then prunes the log. Both steps are best effort.
func (s *LendingService) appendHistory(ctx context.Context, d *domain.Device, actor domain.Actor, at time.Time) {
	rec := &domain.RentalHistoryRecord{
		ID:             uuid.NewString(),
		DeviceID:       d.ID,
		DeviceName:     d.ModelName,
		Manufacturer:   d.Manufacturer,
		OSName:         d.OSName,
		OSVersion:      d.OSVersion,
		PhysicalMemory: d.PhysicalMemory,
		UserID:         actor.ID,
		UserName:       actor.Name,
		Status:         domain.RentalBorrowed,
		BorrowedAt:     at,
		CreatedAt:      at,
	}
	if err := s.History.Append(ctx, rec); err != nil {
		s.Log.Warn().Err(err).Str("device_id", d.ID).Msg("failed to append history record")
		return
	}

	keep := s.Retention
	if keep <= 0 {
		keep = DefaultRetention
	}
	if removed, err := s.History.PruneOldest(ctx, keep); err != nil {
		s.Log.Warn().Err(err).Msg("failed to prune history log")
	} else if removed > 0 {
		s.Log.Debug().Int64("removed", removed).Msg("pruned history log")
	}
}
