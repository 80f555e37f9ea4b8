// Firestore-backed DeviceStore.

package fsstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/devports/go-lending-backend/internal/domain"
	"github.com/devports/go-lending-backend/internal/store"
)

// DeviceStore implements store.DeviceStore on the devices collection.
type DeviceStore struct {
	client *firestore.Client
}

// NewDeviceStore returns a DeviceStore bound to client.
func NewDeviceStore(client *firestore.Client) *DeviceStore {
	return &DeviceStore{client: client}
}

func (s *DeviceStore) col() *firestore.CollectionRef {
	return s.client.Collection(devicesCollection)
}

func docToDevice(doc *firestore.DocumentSnapshot) (*domain.Device, error) {
	var d domain.Device
	if err := doc.DataTo(&d); err != nil {
		return nil, err
	}
	d.ID = doc.Ref.ID
	return &d, nil
}

// Get fetches a device by its stable ID.
func (s *DeviceStore) Get(ctx context.Context, id string) (*domain.Device, error) {
	doc, err := s.col().Doc(id).Get(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return docToDevice(doc)
}

// GetByUUID fetches a device by its hardware UUID.
func (s *DeviceStore) GetByUUID(ctx context.Context, uuid string) (*domain.Device, error) {
	iter := s.col().Where("uuid", "==", uuid).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, translate(err)
	}
	return docToDevice(doc)
}

// Create writes a new device document keyed by the assigned device ID.
func (s *DeviceStore) Create(ctx context.Context, d *domain.Device) error {
	_, err := s.col().Doc(d.ID).Create(ctx, d)
	return translate(err)
}

// Update applies the non-nil fields of upd and bumps updatedAt.
func (s *DeviceStore) Update(ctx context.Context, id string, upd domain.DeviceUpdate) error {
	var updates []firestore.Update
	add := func(path string, v *string) {
		if v != nil {
			updates = append(updates, firestore.Update{Path: path, Value: *v})
		}
	}
	add("modelName", upd.ModelName)
	add("osName", upd.OSName)
	add("osVersion", upd.OSVersion)
	add("manufacturer", upd.Manufacturer)
	add("screenSize", upd.ScreenSize)
	add("physicalMemory", upd.PhysicalMemory)
	add("memo", upd.Memo)
	if len(updates) == 0 {
		_, err := s.Get(ctx, id)
		return err
	}
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: time.Now().UTC()})

	_, err := s.col().Doc(id).Update(ctx, updates)
	return translate(err)
}

// MarkBorrowed flips the device to in_use inside a transaction, guarded by
// the status read within that transaction.
func (s *DeviceStore) MarkBorrowed(ctx context.Context, id string, actor domain.Actor, at time.Time) error {
	ref := s.col().Doc(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return err
		}
		d, err := docToDevice(doc)
		if err != nil {
			return err
		}
		if d.Status != domain.StatusAvailable {
			return store.ErrConflict
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: domain.StatusInUse},
			{Path: "currentUserId", Value: actor.ID},
			{Path: "currentUserName", Value: actor.Name},
			{Path: "borrowedAt", Value: at},
			{Path: "updatedAt", Value: at},
		})
	})
	return translate(err)
}

// MarkReturned flips the device back to available inside a transaction and
// nulls the holder triple.
func (s *DeviceStore) MarkReturned(ctx context.Context, id string, at time.Time) error {
	ref := s.col().Doc(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return err
		}
		d, err := docToDevice(doc)
		if err != nil {
			return err
		}
		if d.Status != domain.StatusInUse {
			return store.ErrConflict
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: domain.StatusAvailable},
			{Path: "currentUserId", Value: nil},
			{Path: "currentUserName", Value: nil},
			{Path: "borrowedAt", Value: nil},
			{Path: "updatedAt", Value: at},
		})
	})
	return translate(err)
}

// Delete removes the device document. History documents are untouched.
func (s *DeviceStore) Delete(ctx context.Context, id string) error {
	ref := s.col().Doc(id)
	// Firestore deletes are idempotent; probe first so a missing device
	// still reports ErrNotFound like the relational backend.
	if _, err := ref.Get(ctx); err != nil {
		return translate(err)
	}
	_, err := ref.Delete(ctx)
	return translate(err)
}

// List returns devices matching the filter, most recently updated first.
// Equality filters run server-side; the free-text search filters the page
// client-side, as the document model has no LIKE equivalent.
func (s *DeviceStore) List(ctx context.Context, f domain.DeviceFilter) ([]domain.Device, error) {
	q := s.col().Query
	if f.Status != "" {
		q = q.Where("status", "==", f.Status)
	}
	if f.OSName != "" {
		q = q.Where("osName", "==", f.OSName)
	}
	if f.Manufacturer != "" {
		q = q.Where("manufacturer", "==", f.Manufacturer)
	}
	if f.UserID != "" {
		q = q.Where("currentUserId", "==", f.UserID)
	}
	q = q.OrderBy("updatedAt", firestore.Desc)

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []domain.Device
	needle := strings.ToLower(f.Search)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, translate(err)
		}
		d, err := docToDevice(doc)
		if err != nil {
			return nil, err
		}
		if needle != "" && !matchesSearch(d, needle) {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func matchesSearch(d *domain.Device, needle string) bool {
	return strings.Contains(strings.ToLower(d.ModelName), needle) ||
		strings.Contains(strings.ToLower(d.OSVersion), needle) ||
		strings.Contains(strings.ToLower(d.Manufacturer), needle)
}

// NextDisplayID issues the next sequential display ID for the OS family from
// the deviceIdCounters/{A_counter,I_counter} documents.
func (s *DeviceStore) NextDisplayID(ctx context.Context, osName string) (string, error) {
	prefix := displayPrefix(osName)
	ref := s.client.Collection(countersCollection).Doc(prefix + "_counter")

	var value int64
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		switch {
		case err == nil:
			v, err := doc.DataAt("value")
			if err != nil {
				return err
			}
			n, _ := v.(int64)
			value = n + 1
		case status.Code(err) == codes.NotFound:
			value = 1
		default:
			return err
		}
		return tx.Set(ref, map[string]any{
			"value":     value,
			"osName":    osName,
			"updatedAt": time.Now().UTC(),
		}, firestore.MergeAll)
	})
	if err != nil {
		return "", translate(err)
	}
	return fmt.Sprintf("%s%05d", prefix, value), nil
}
