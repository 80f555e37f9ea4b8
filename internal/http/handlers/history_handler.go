// Rental history HTTP handlers.
//
//   - GET    /history       (recent records, newest first)
//   - DELETE /history/{id}  (admin, remove one record)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/devports/go-lending-backend/internal/domain"
	"github.com/devports/go-lending-backend/internal/utils"
)

// ListHistoryResponse wraps a slice of rental history records.
type ListHistoryResponse struct {
	Records []domain.RentalHistoryRecord `json:"records"`
	Total   int                          `json:"total"`
}

// ListHistory returns the most recent rental history records. The optional
// "limit" query parameter bounds the result; the service clamps it to the
// retention cap.
func (h *Handlers) ListHistory(c *gin.Context) {
	limit := utils.AtoiDefault(c.Query("limit"), 0)

	recs, err := h.historySvc.ListRecent(c.Request.Context(), limit)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, ListHistoryResponse{Records: recs, Total: len(recs)})
}

// DeleteHistory removes a single rental history record.
func (h *Handlers) DeleteHistory(c *gin.Context) {
	if err := h.historySvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		failFromService(c, err)
		return
	}
	noContent(c)
}
