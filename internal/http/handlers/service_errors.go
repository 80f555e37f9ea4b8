package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/devports/go-lending-backend/internal/services"
	"github.com/devports/go-lending-backend/internal/store"
)

// failFromService maps service-level errors onto the HTTP error taxonomy.
// All handlers funnel service failures through here so the same sentinel
// always produces the same status and code.
func failFromService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrDeviceNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "device not found")
	case errors.Is(err, services.ErrRecordNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "history record not found")
	case errors.Is(err, services.ErrDeviceInUse):
		fail(c, http.StatusConflict, ErrCodeDeviceInUse, "device is in use")
	case errors.Is(err, services.ErrDeviceNotInUse):
		fail(c, http.StatusConflict, ErrCodeDeviceNotInUse, "device is not in use")
	case errors.Is(err, services.ErrDuplicateDevice):
		fail(c, http.StatusConflict, ErrCodeDuplicateDevice, "device already registered")
	case errors.Is(err, services.ErrNotHolder):
		fail(c, http.StatusForbidden, ErrCodeNotHolder, "device is held by another user")
	case errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusGatewayTimeout, ErrCodeTimeout, "store operation timed out")
	case errors.Is(err, store.ErrUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "store unavailable")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
