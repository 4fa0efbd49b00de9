package reports

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sharath018/event-escrow-backend/internal/ledger"
	"github.com/sharath018/event-escrow-backend/middleware"
)

type Handler struct {
	Service   *Service
	LedgerSvc *ledger.Service
}

func NewHandler(s *Service, ledgerSvc *ledger.Service) *Handler {
	return &Handler{Service: s, LedgerSvc: ledgerSvc}
}

func eventIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return 0, false
	}
	return id, true
}

// ===========================
// 🧾 My Receipt - GET /events/:id/receipt
func (h *Handler) Receipt(c *gin.Context) {
	accessContext, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}
	id, ok := eventIDParam(c)
	if !ok {
		return
	}

	pdf, err := h.Service.RegistrationReceipt(c.Request.Context(), id, accessContext.UserID)
	if err != nil {
		if errors.Is(err, ledger.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no registration found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render receipt"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=receipt-event-%d.pdf", id))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// ===========================
// 📊 Roster Export - GET /events/:id/export?format=xlsx|csv
//
// Only the event creator or the owner may export the roster.
func (h *Handler) Export(c *gin.Context) {
	accessContext, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}
	id, ok := eventIDParam(c)
	if !ok {
		return
	}

	event, err := h.LedgerSvc.GetEvent(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	if event.CreatorID != accessContext.UserID && !accessContext.IsOwner() {
		c.JSON(http.StatusForbidden, gin.H{"error": "unauthorized"})
		return
	}

	format := c.DefaultQuery("format", "xlsx")
	switch format {
	case "xlsx":
		data, err := h.Service.ParticipantsXLSX(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export roster"})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=participants-event-%d.xlsx", id))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)

	case "csv":
		data, err := h.Service.ParticipantsCSV(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export roster"})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=participants-event-%d.csv", id))
		c.Data(http.StatusOK, "text/csv", data)

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported format: " + format})
	}
}
