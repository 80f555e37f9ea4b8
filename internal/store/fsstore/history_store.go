// Firestore-backed HistoryStore.

package fsstore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/devports/go-lending-backend/internal/domain"
	"github.com/devports/go-lending-backend/internal/store"
)

// HistoryStore implements store.HistoryStore on the rentalHistory collection.
type HistoryStore struct {
	client *firestore.Client
}

// NewHistoryStore returns a HistoryStore bound to client.
func NewHistoryStore(client *firestore.Client) *HistoryStore {
	return &HistoryStore{client: client}
}

func (s *HistoryStore) col() *firestore.CollectionRef {
	return s.client.Collection(historyCollection)
}

func docToRecord(doc *firestore.DocumentSnapshot) (*domain.RentalHistoryRecord, error) {
	var rec domain.RentalHistoryRecord
	if err := doc.DataTo(&rec); err != nil {
		return nil, err
	}
	rec.ID = doc.Ref.ID
	return &rec, nil
}

// Append writes a new history document keyed by the record ID.
func (s *HistoryStore) Append(ctx context.Context, rec *domain.RentalHistoryRecord) error {
	_, err := s.col().Doc(rec.ID).Create(ctx, rec)
	return translate(err)
}

// CloseOpen stamps the most recent open record for deviceID as returned.
// The query and the update run in one transaction.
func (s *HistoryStore) CloseOpen(ctx context.Context, deviceID string, at time.Time) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		q := s.col().
			Where("deviceId", "==", deviceID).
			Where("status", "==", domain.RentalBorrowed).
			OrderBy("borrowedAt", firestore.Desc).
			Limit(1)
		iter := tx.Documents(q)
		defer iter.Stop()

		doc, err := iter.Next()
		if err == iterator.Done {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		return tx.Update(doc.Ref, []firestore.Update{
			{Path: "status", Value: domain.RentalReturned},
			{Path: "returnedAt", Value: at},
		})
	})
	return translate(err)
}

// Delete removes a single record by ID.
func (s *HistoryStore) Delete(ctx context.Context, id string) error {
	ref := s.col().Doc(id)
	if _, err := ref.Get(ctx); err != nil {
		return translate(err)
	}
	_, err := ref.Delete(ctx)
	return translate(err)
}

// ListRecent returns up to limit records, newest borrow first.
func (s *HistoryStore) ListRecent(ctx context.Context, limit int) ([]domain.RentalHistoryRecord, error) {
	iter := s.col().OrderBy("borrowedAt", firestore.Desc).Limit(limit).Documents(ctx)
	defer iter.Stop()

	var out []domain.RentalHistoryRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, translate(err)
		}
		rec, err := docToRecord(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// Count returns the total number of history records via a keys-only scan;
// the collection is bounded by the retention cap, so this stays cheap.
func (s *HistoryStore) Count(ctx context.Context) (int64, error) {
	iter := s.col().Select().Documents(ctx)
	defer iter.Stop()

	var total int64
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, translate(err)
		}
		total++
	}
	return total, nil
}

// PruneOldest deletes records oldest-first (by creation time) until at most
// max remain.
func (s *HistoryStore) PruneOldest(ctx context.Context, max int) (int64, error) {
	total, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	excess := total - int64(max)
	if excess <= 0 {
		return 0, nil
	}

	iter := s.col().
		OrderBy("createdAt", firestore.Asc).
		Limit(int(excess)).
		Select().
		Documents(ctx)
	defer iter.Stop()

	bw := s.client.BulkWriter(ctx)
	var removed int64
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return removed, translate(err)
		}
		if _, err := bw.Delete(doc.Ref); err != nil {
			return removed, translate(err)
		}
		removed++
	}
	bw.End()
	return removed, nil
}
