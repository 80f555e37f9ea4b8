// Device HTTP handlers.
//
// This file exposes REST endpoints for device registry resources:
//   - POST   /devices             (register, admin)
//   - GET    /devices             (list, filterable)
//   - GET    /devices/{id}        (fetch one)
//   - PUT    /devices/{id}        (update metadata, admin)
//   - DELETE /devices/{id}        (remove, admin)
//   - GET    /devices/export.csv  (fleet report, admin)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/devports/go-lending-backend/internal/domain"
	"github.com/devports/go-lending-backend/internal/export"
	"github.com/devports/go-lending-backend/internal/http/middleware"
)

//
// Service contracts (context-aware)
//

// DeviceService defines registry operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type DeviceService interface {
	// Register validates and persists a new device.
	Register(ctx context.Context, actor domain.Actor, form domain.DeviceForm) (*domain.Device, error)
	// Get fetches a device by its internal ID.
	Get(ctx context.Context, id string) (*domain.Device, error)
	// List returns devices matching the filter.
	List(ctx context.Context, filter domain.DeviceFilter) ([]domain.Device, error)
	// Update applies a partial metadata update.
	Update(ctx context.Context, id string, upd domain.DeviceUpdate) (*domain.Device, error)
	// Delete removes a device that is not currently borrowed.
	Delete(ctx context.Context, id string) error
}

// LendingService defines lending transitions consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type LendingService interface {
	// Borrow transitions a device to in_use on behalf of the actor.
	Borrow(ctx context.Context, deviceID string, actor domain.Actor) (*domain.Device, error)
	// Return transitions a device back to available for its holder.
	Return(ctx context.Context, deviceID string, actor domain.Actor) (*domain.Device, error)
	// ForceReturn returns a device regardless of the holder (admin).
	ForceReturn(ctx context.Context, deviceID string, actor domain.Actor) (*domain.Device, error)
}

// HistoryService defines rental history access consumed by HTTP handlers.
type HistoryService interface {
	// ListRecent returns the most recent records, newest first.
	ListRecent(ctx context.Context, limit int) ([]domain.RentalHistoryRecord, error)
	// Delete removes a single record by ID.
	Delete(ctx context.Context, id string) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for devices, lending, and rental history.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	deviceSvc  DeviceService
	lendingSvc LendingService
	historySvc HistoryService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(deviceSvc DeviceService, lendingSvc LendingService, historySvc HistoryService) *Handlers {
	return &Handlers{deviceSvc: deviceSvc, lendingSvc: lendingSvc, historySvc: historySvc}
}

//
// DTOs
//

// RegisterDeviceRequest is the JSON payload for registering a device.
type RegisterDeviceRequest struct {
	ModelName      string `json:"model_name" binding:"required"`
	OSName         string `json:"os_name" binding:"required"`
	OSVersion      string `json:"os_version" binding:"required"`
	Manufacturer   string `json:"manufacturer"`
	ScreenSize     string `json:"screen_size"`
	PhysicalMemory string `json:"physical_memory"`
	UUID           string `json:"uuid"`
	Memo           string `json:"memo"`
}

// UpdateDeviceRequest is the JSON payload for a partial device update.
// Absent fields are left untouched.
type UpdateDeviceRequest struct {
	ModelName      *string `json:"model_name"`
	OSName         *string `json:"os_name"`
	OSVersion      *string `json:"os_version"`
	Manufacturer   *string `json:"manufacturer"`
	ScreenSize     *string `json:"screen_size"`
	PhysicalMemory *string `json:"physical_memory"`
	Memo           *string `json:"memo"`
}

// ListDevicesResponse wraps the device list.
type ListDevicesResponse struct {
	Devices []domain.Device `json:"devices"`
	Total   int             `json:"total"`
}

//
// Handlers
//

// RegisterDevice registers a new device and returns the created resource.
func (h *Handlers) RegisterDevice(c *gin.Context) {
	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "model_name, os_name, and os_version are required")
		return
	}

	actor := middleware.ActorFrom(c)
	d, err := h.deviceSvc.Register(c.Request.Context(), actor, domain.DeviceForm{
		ModelName:      req.ModelName,
		OSName:         req.OSName,
		OSVersion:      req.OSVersion,
		Manufacturer:   req.Manufacturer,
		ScreenSize:     req.ScreenSize,
		PhysicalMemory: req.PhysicalMemory,
		UUID:           req.UUID,
		Memo:           req.Memo,
	})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusCreated, d)
}

// GetDevice returns a single device by internal ID.
func (h *Handlers) GetDevice(c *gin.Context) {
	d, err := h.deviceSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, d)
}

// ListDevices returns devices, optionally filtered by status, os, manufacturer,
// holder, or a free-text search over model name, OS version, and manufacturer.
func (h *Handlers) ListDevices(c *gin.Context) {
	filter := domain.DeviceFilter{
		Status:       domain.DeviceStatus(strings.TrimSpace(c.Query("status"))),
		OSName:       strings.TrimSpace(c.Query("os")),
		Manufacturer: strings.TrimSpace(c.Query("manufacturer")),
		UserID:       strings.TrimSpace(c.Query("user_id")),
		Search:       strings.TrimSpace(c.Query("q")),
	}
	switch filter.Status {
	case "", domain.StatusAvailable, domain.StatusInUse:
	default:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status must be available or in_use")
		return
	}

	items, err := h.deviceSvc.List(c.Request.Context(), filter)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, ListDevicesResponse{Devices: items, Total: len(items)})
}

// UpdateDevice applies a partial metadata update to a device.
func (h *Handlers) UpdateDevice(c *gin.Context) {
	var req UpdateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	d, err := h.deviceSvc.Update(c.Request.Context(), c.Param("id"), domain.DeviceUpdate{
		ModelName:      req.ModelName,
		OSName:         req.OSName,
		OSVersion:      req.OSVersion,
		Manufacturer:   req.Manufacturer,
		ScreenSize:     req.ScreenSize,
		PhysicalMemory: req.PhysicalMemory,
		Memo:           req.Memo,
	})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, d)
}

// DeleteDevice removes a device from the registry.
func (h *Handlers) DeleteDevice(c *gin.Context) {
	if err := h.deviceSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		failFromService(c, err)
		return
	}
	noContent(c)
}

// ExportDevicesCSV streams the full fleet as a CSV download.
func (h *Handlers) ExportDevicesCSV(c *gin.Context) {
	items, err := h.deviceSvc.List(c.Request.Context(), domain.DeviceFilter{})
	if err != nil {
		failFromService(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="devices.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(export.DevicesCSV(items)))
}
