// Lending HTTP handlers.
//
// This file exposes REST endpoints for the lending state machine:
//   - POST /devices/{id}/borrow        (borrow as current user)
//   - POST /devices/{id}/return        (return as current holder)
//   - POST /devices/{id}/force-return  (admin override)
//
// All three respond with the device in its new state so clients can refresh
// without a second round trip.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/devports/go-lending-backend/internal/http/middleware"
)

// BorrowDevice marks the device as borrowed by the acting user.
func (h *Handlers) BorrowDevice(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	if actor.ID == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	d, err := h.lendingSvc.Borrow(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, d)
}

// ReturnDevice marks the device as returned by its current holder.
func (h *Handlers) ReturnDevice(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	if actor.ID == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	d, err := h.lendingSvc.Return(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, d)
}

// ForceReturnDevice returns a device on behalf of whoever holds it. The route
// is admin-gated by middleware; the service re-checks the role.
func (h *Handlers) ForceReturnDevice(c *gin.Context) {
	d, err := h.lendingSvc.ForceReturn(c.Request.Context(), c.Param("id"), middleware.ActorFrom(c))
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, d)
}
