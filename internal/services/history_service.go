// Package services – HistoryService
//
// This file implements the HistoryService, a thin read/admin surface over the
// rental history log. Writes to the log happen in LendingService as part of
// borrow/return; this service only lists records and supports per-record
// admin deletion.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/devports/go-lending-backend/internal/domain"
	"github.com/devports/go-lending-backend/internal/store"
)

// HistoryService exposes the rental history log to handlers.
type HistoryService struct {
	// History is the rental history store.
	History store.HistoryStore

	// StoreTimeout caps the duration of each store call.
	StoreTimeout time.Duration
}

// NewHistoryService constructs a HistoryService with the default store timeout.
func NewHistoryService(history store.HistoryStore) *HistoryService {
	return &HistoryService{History: history, StoreTimeout: DefaultStoreTimeout}
}

func (s *HistoryService) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return opCtx(ctx, s.StoreTimeout)
}

// ListRecent returns the most recent records, newest first. A non-positive
// limit falls back to the retention cap.
func (s *HistoryService) ListRecent(ctx context.Context, limit int) ([]domain.RentalHistoryRecord, error) {
	if limit <= 0 || limit > DefaultRetention {
		limit = DefaultRetention
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.History.ListRecent(ctx, limit)
}

// Delete removes a single history record by ID.
func (s *HistoryService) Delete(ctx context.Context, id string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.History.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrRecordNotFound
		}
		return err
	}
	return nil
}
