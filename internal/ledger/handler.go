package ledger

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sharath018/event-escrow-backend/internal/treasury"
	"github.com/sharath018/event-escrow-backend/middleware"
	"github.com/sharath018/event-escrow-backend/utils"
)

type Handler struct {
	Service     *Service
	Gateway     treasury.Gateway
	razorpayKey string
}

func NewHandler(s *Service, gateway treasury.Gateway, razorpayKey string) *Handler {
	return &Handler{Service: s, Gateway: gateway, razorpayKey: razorpayKey}
}

const participantsCacheTTL = 30 * time.Second

func participantsCacheKey(eventID uint64) string {
	return fmt.Sprintf("ledger:participants:%d", eventID)
}

// statusFor maps ledger errors onto HTTP statuses so clients can branch
// on kind.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrInsufficientPayment):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrDeadlineExceeded):
		return http.StatusGone
	case errors.Is(err, ErrReentrantCall):
		return http.StatusLocked
	case errors.Is(err, ErrAlreadyOpen),
		errors.Is(err, ErrAlreadyClosed),
		errors.Is(err, ErrRegistrationClosed),
		errors.Is(err, ErrCapacityExceeded),
		errors.Is(err, ErrAlreadyRegistered),
		errors.Is(err, ErrNothingToWithdraw):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func abortWith(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
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
// 🎯 Create Event - POST /events
func (h *Handler) CreateEvent(c *gin.Context) {
	accessContext, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}

	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}

	event, err := h.Service.CreateEvent(c.Request.Context(), accessContext.UserID, req, middleware.GetIPFromContext(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

// ===========================
// 📄 List Events - GET /events
func (h *Handler) ListEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	search := c.Query("search")

	events, err := h.Service.ListEvents(c.Request.Context(), limit, offset, search)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": events})
}

// ===========================
// 🔍 Get Event - GET /events/:id
func (h *Handler) GetEvent(c *gin.Context) {
	id, ok := eventIDParam(c)
	if !ok {
		return
	}

	event, err := h.Service.GetEvent(c.Request.Context(), id)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// ===========================
// 🔓 Open Registration - POST /events/:id/open
func (h *Handler) OpenRegistration(c *gin.Context) {
	accessContext, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}
	id, ok := eventIDParam(c)
	if !ok {
		return
	}

	if err := h.Service.OpenRegistration(c.Request.Context(), accessContext.UserID, id, middleware.GetIPFromContext(c)); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "registration opened"})
}

// ===========================
// 🔒 Close Registration - POST /events/:id/close
func (h *Handler) CloseRegistration(c *gin.Context) {
	accessContext, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}
	id, ok := eventIDParam(c)
	if !ok {
		return
	}

	if err := h.Service.CloseRegistration(c.Request.Context(), accessContext.UserID, id, middleware.GetIPFromContext(c)); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "registration closed"})
}

// ===========================
// 💳 Start Registration - POST /events/:id/register/start
//
// Bootstraps the Razorpay order the client pays against. The ledger is
// not touched until the paid registration comes back verified.
func (h *Handler) StartRegistration(c *gin.Context) {
	accessContext, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}
	id, ok := eventIDParam(c)
	if !ok {
		return
	}

	var req StartRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}

	event, err := h.Service.GetEvent(c.Request.Context(), id)
	if err != nil {
		abortWith(c, err)
		return
	}
	if req.AmountPaid < event.RegistrationFee {
		abortWith(c, ErrInsufficientPayment)
		return
	}

	orderID, err := h.Gateway.CreateOrder(c.Request.Context(), req.AmountPaid, map[string]interface{}{
		"event_id": id,
		"user_id":  accessContext.UserID,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, StartRegistrationResponse{
		OrderID:     orderID,
		Amount:      req.AmountPaid,
		Currency:    "INR",
		RazorpayKey: h.razorpayKey,
	})
}

// ===========================
// 🧾 Register - POST /events/:id/register
func (h *Handler) Register(c *gin.Context) {
	accessContext, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}
	id, ok := eventIDParam(c)
	if !ok {
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}

	// Paid registrations must carry a verified checkout signature before
	// the ledger is touched.
	if req.AmountPaid > 0 {
		if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payment verification fields are required"})
			return
		}
		if !h.Gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment signature"})
			return
		}
	}

	reg, err := h.Service.RegisterForEvent(c.Request.Context(), accessContext.UserID, id, req.AmountPaid, req.PaymentID, middleware.GetIPFromContext(c))
	if err != nil {
		abortWith(c, err)
		return
	}

	utils.InvalidateCache(c.Request.Context(), participantsCacheKey(id))
	c.JSON(http.StatusCreated, reg)
}

// ===========================
// 👥 Get Participants - GET /events/:id/participants
func (h *Handler) GetParticipants(c *gin.Context) {
	id, ok := eventIDParam(c)
	if !ok {
		return
	}

	key := participantsCacheKey(id)
	var cached []Registration
	if hit, err := utils.GetCachedJSON(c.Request.Context(), key, &cached); err == nil && hit {
		c.JSON(http.StatusOK, gin.H{"data": cached, "cached": true})
		return
	}

	regs, err := h.Service.GetParticipants(c.Request.Context(), id)
	if err != nil {
		abortWith(c, err)
		return
	}

	_ = utils.CacheJSON(c.Request.Context(), key, regs, participantsCacheTTL)
	c.JSON(http.StatusOK, gin.H{"data": regs})
}

// ===========================
// 🏦 Withdraw Funds - POST /treasury/withdraw (owner only)
func (h *Handler) WithdrawFunds(c *gin.Context) {
	accessContext, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}

	amount, err := h.Service.WithdrawFunds(c.Request.Context(), accessContext.UserID, middleware.GetIPFromContext(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawn": amount})
}

// ===========================
// 💰 Balance - GET /treasury/balance (owner only)
func (h *Handler) Balance(c *gin.Context) {
	accessContext, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}

	balance, err := h.Service.Balance(c.Request.Context(), accessContext.UserID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// ===========================
// 🚫 Reject Deposit - POST /treasury/deposit
//
// There is no way to push value into custody outside registration.
func (h *Handler) RejectDeposit(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "unsolicited deposits are not accepted"})
}
