// Package domain defines the persistence models for devices and rental
// history. These types are mapped with GORM for the relational backends and
// carry firestore tags for the document backend, forming the core data layer
// of the device-lending application.
package domain

import (
	"time"
)

// DeviceStatus is the lifecycle state of a device.
type DeviceStatus string

const (
	// StatusAvailable means the device sits on the shelf and may be borrowed.
	StatusAvailable DeviceStatus = "available"
	// StatusInUse means the device is currently borrowed by a user.
	StatusInUse DeviceStatus = "in_use"
)

// RentalStatus is the state of a rental history record.
type RentalStatus string

const (
	// RentalBorrowed marks an open record: the device has not come back yet.
	RentalBorrowed RentalStatus = "borrowed"
	// RentalReturned marks a closed record with a ReturnedAt timestamp.
	RentalReturned RentalStatus = "returned"
)

// Actor roles, as supplied by the (external) auth layer.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Actor is the authenticated identity performing a lifecycle operation.
// The service trusts it as already authenticated; role checks happen at the
// transport layer.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Device represents one physical hardware unit tracked by the system.
//
// Fields:
//   - ID: stable UUID primary key assigned at creation.
//   - DisplayID: human-facing sequential identifier issued per OS family
//     at registration ("A00001" for Android, "I00001" for iOS).
//   - UUID: optional hardware-derived identifier. Uniqueness across devices
//     is enforced at registration, not by the schema, so both backends
//     behave identically.
//   - Status: available or in_use; governs whether borrow/return is legal.
//   - CurrentUserID / CurrentUserName / BorrowedAt: set together when the
//     device transitions to in_use, all nil while available. The triple
//     changes atomically with Status.
//   - RegisteredBy / RegisteredAt / UpdatedAt: provenance and audit fields.
type Device struct {
	ID             string       `json:"id"              gorm:"type:char(36);primaryKey" firestore:"-"`
	DisplayID      string       `json:"display_id"      gorm:"type:varchar(16);uniqueIndex;not null" firestore:"displayId"`
	ModelName      string       `json:"model_name"      gorm:"type:varchar(255);not null" firestore:"modelName"`
	OSName         string       `json:"os_name"         gorm:"column:os_name;type:varchar(100);not null" firestore:"osName"`
	OSVersion      string       `json:"os_version"      gorm:"column:os_version;type:varchar(100);not null" firestore:"osVersion"`
	Manufacturer   string       `json:"manufacturer"    gorm:"type:varchar(100);not null" firestore:"manufacturer"`
	ScreenSize     string       `json:"screen_size,omitempty"     gorm:"type:varchar(100)" firestore:"screenSize"`
	PhysicalMemory string       `json:"physical_memory,omitempty" gorm:"type:varchar(100)" firestore:"physicalMemory"`
	UUID           string       `json:"uuid,omitempty"  gorm:"column:uuid;type:varchar(255);index" firestore:"uuid"`
	Status         DeviceStatus `json:"status"          gorm:"type:varchar(16);not null;default:'available';check:status IN ('available','in_use')" firestore:"status"`

	CurrentUserID   *string    `json:"current_user_id,omitempty"   gorm:"type:varchar(64)" firestore:"currentUserId"`
	CurrentUserName *string    `json:"current_user_name,omitempty" gorm:"type:varchar(255)" firestore:"currentUserName"`
	BorrowedAt      *time.Time `json:"borrowed_at,omitempty" firestore:"borrowedAt"`

	Memo         string    `json:"memo,omitempty" gorm:"type:text" firestore:"memo"`
	RegisteredBy string    `json:"registered_by"  gorm:"type:varchar(64);not null" firestore:"registeredBy"`
	RegisteredAt time.Time `json:"registered_at"  firestore:"registeredAt"`
	UpdatedAt    time.Time `json:"updated_at"     gorm:"index" firestore:"updatedAt"`
}

// TableName returns the database table name for Device.
func (Device) TableName() string { return "devices" }

// Available reports whether the device may be borrowed.
func (d *Device) Available() bool { return d.Status == StatusAvailable }

// HeldBy reports whether userID is the current holder of the device.
func (d *Device) HeldBy(userID string) bool {
	return d.Status == StatusInUse && d.CurrentUserID != nil && *d.CurrentUserID == userID
}

// RentalHistoryRecord is one audit-trail entry capturing a borrow-to-return
// cycle (or an open borrow). Device identity fields are snapshots taken at
// borrow time, not live references: renaming a device later does not
// retroactively alter history. Records outlive the device they reference.
//
// Invariant: Status == RentalReturned exactly when ReturnedAt is non-nil.
type RentalHistoryRecord struct {
	ID             string       `json:"id"            gorm:"type:char(36);primaryKey" firestore:"-"`
	DeviceID       string       `json:"device_id"     gorm:"type:char(36);index;not null" firestore:"deviceId"`
	DeviceName     string       `json:"device_name"   gorm:"type:varchar(255);not null" firestore:"deviceName"`
	Manufacturer   string       `json:"manufacturer"  gorm:"type:varchar(100)" firestore:"manufacturer"`
	OSName         string       `json:"os_name"       gorm:"column:os_name;type:varchar(100)" firestore:"osName"`
	OSVersion      string       `json:"os_version"    gorm:"column:os_version;type:varchar(100)" firestore:"osVersion"`
	PhysicalMemory string       `json:"physical_memory,omitempty" gorm:"type:varchar(100)" firestore:"physicalMemory"`
	UserID         string       `json:"user_id"       gorm:"type:varchar(64);not null;index" firestore:"userId"`
	UserName       string       `json:"user_name"     gorm:"type:varchar(255);not null" firestore:"userName"`
	Status         RentalStatus `json:"status"        gorm:"type:varchar(16);not null;index;check:status IN ('borrowed','returned')" firestore:"status"`
	BorrowedAt     time.Time    `json:"borrowed_at"   gorm:"index;not null" firestore:"borrowedAt"`
	ReturnedAt     *time.Time   `json:"returned_at,omitempty" firestore:"returnedAt"`
	CreatedAt      time.Time    `json:"created_at"    gorm:"index" firestore:"createdAt"`
}

// TableName returns the database table name for RentalHistoryRecord.
func (RentalHistoryRecord) TableName() string { return "rental_history" }

// Open reports whether the record still awaits its return event.
func (r *RentalHistoryRecord) Open() bool { return r.Status == RentalBorrowed }

// DeviceForm carries the caller-supplied fields for device registration.
type DeviceForm struct {
	ModelName      string `json:"model_name"`
	OSName         string `json:"os_name"`
	OSVersion      string `json:"os_version"`
	Manufacturer   string `json:"manufacturer"`
	ScreenSize     string `json:"screen_size,omitempty"`
	PhysicalMemory string `json:"physical_memory,omitempty"`
	UUID           string `json:"uuid"`
	Memo           string `json:"memo,omitempty"`
}

// DeviceUpdate carries an explicit edit of descriptive device fields.
// Nil pointers leave the corresponding column untouched; status and holder
// fields are deliberately absent, those change only through the lifecycle
// operations.
type DeviceUpdate struct {
	ModelName      *string `json:"model_name,omitempty"`
	OSName         *string `json:"os_name,omitempty"`
	OSVersion      *string `json:"os_version,omitempty"`
	Manufacturer   *string `json:"manufacturer,omitempty"`
	ScreenSize     *string `json:"screen_size,omitempty"`
	PhysicalMemory *string `json:"physical_memory,omitempty"`
	Memo           *string `json:"memo,omitempty"`
}

// DeviceFilter narrows device listings. Zero values mean "no constraint".
// Search matches model name, OS version, or manufacturer case-insensitively.
type DeviceFilter struct {
	Status       DeviceStatus
	OSName       string
	Manufacturer string
	UserID       string
	Search       string
}
