// Package fsstore implements the store contracts on Firestore. Devices,
// history records, and display-ID counters live in the devices,
// rentalHistory, and deviceIdCounters collections; document IDs double as
// entity IDs. Status transitions run in Firestore transactions so a
// concurrent borrower cannot slip between the read and the write.
package fsstore

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/devports/go-lending-backend/internal/store"
)

const (
	devicesCollection  = "devices"
	historyCollection  = "rentalHistory"
	countersCollection = "deviceIdCounters"
)

// Open initializes the Firebase app and returns Firestore-backed stores.
// An empty credentialsFile falls back to application-default credentials.
func Open(ctx context.Context, projectID, credentialsFile string) (store.Stores, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return store.Stores{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return store.Stores{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	return store.Stores{
		Devices: NewDeviceStore(client),
		History: NewHistoryStore(client),
		Close:   client.Close,
	}, nil
}

// translate maps gRPC status codes onto the store sentinels. Deadline
// expiry surfaces as context.DeadlineExceeded so callers treat both
// client-side and server-side timeouts uniformly.
func translate(err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return store.ErrNotFound
	case codes.AlreadyExists, codes.Aborted, codes.FailedPrecondition:
		return store.ErrConflict
	case codes.Unavailable:
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	}
	return err
}

// displayPrefix maps an OS name to its display-ID letter: "I" for iOS,
// "A" for everything else (Android fleet).
func displayPrefix(osName string) string {
	if strings.EqualFold(osName, "iOS") {
		return "I"
	}
	return "A"
}
