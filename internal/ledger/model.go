package ledger

import (
	"time"
)

// ============================
// 🔷 GORM Event Model
//
// Ids are dense and zero-based: valid ids are [0, EventCount). They are
// allocated from LedgerState inside the same transaction that inserts the
// event, so no two creations can share an id.
type Event struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name            string    `gorm:"type:varchar(255);not null" json:"name"`
	MaxParticipants int       `gorm:"not null" json:"max_participants"`
	RegistrationFee int64     `gorm:"not null" json:"registration_fee"` // smallest currency unit (paise)
	Deadline        time.Time `gorm:"not null;index" json:"deadline"`
	IsOpen          bool      `gorm:"not null;default:false" json:"is_open"`
	CreatorID       uint      `gorm:"not null;index" json:"creator_id"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`

	ParticipantCount int `gorm:"-" json:"participant_count"`
}

// Expired reports whether the deadline has passed at the given instant.
// Expiry is never stored — it is evaluated live, so closing and reopening
// an event cannot resurrect registration once the deadline is gone.
func (e *Event) Expired(now time.Time) bool {
	return now.After(e.Deadline)
}

// ============================
// 🔷 GORM Registration Model
//
// One row per registrant. The unique (event_id, user_id) index doubles as
// the O(1) "already registered" check; Position preserves registration
// order (0-based), so the participant list and the index always agree.
type Registration struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	EventID     uint64    `gorm:"not null;uniqueIndex:idx_event_user" json:"event_id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_event_user" json:"user_id"`
	Position    int       `gorm:"not null" json:"position"`
	AmountPaid  int64     `gorm:"not null" json:"amount_paid"`
	FeeRetained int64     `gorm:"not null" json:"fee_retained"`
	Refunded    int64     `gorm:"not null;default:0" json:"refunded"`
	PaymentRef  string    `gorm:"type:varchar(64)" json:"payment_ref,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ============================
// 🔷 Ledger State (single row)
//
// EventCount doubles as the next event id. ContractBalance is the sum of
// retained fees minus owner withdrawals; refunds of overpayment never
// enter it.
type LedgerState struct {
	ID              uint   `gorm:"primaryKey" json:"-"`
	EventCount      uint64 `gorm:"not null;default:0" json:"event_count"`
	ContractBalance int64  `gorm:"not null;default:0" json:"contract_balance"`
}

// TableName overrides table name for LedgerState
func (LedgerState) TableName() string {
	return "ledger_state"
}

// ============================
// 🟡 Create Event Request
type CreateEventRequest struct {
	Name              string `json:"name" binding:"required"`
	MaxParticipants   int    `json:"max_participants" binding:"required"`
	RegistrationFee   int64  `json:"registration_fee"`
	DaysUntilDeadline int    `json:"days_until_deadline" binding:"required"`
}

// ============================
// 🟡 Register Request
//
// OrderID/PaymentID/Signature carry the Razorpay checkout result for paid
// events; the handler verifies the signature before the ledger is touched.
type RegisterRequest struct {
	AmountPaid int64  `json:"amount_paid"`
	OrderID    string `json:"order_id,omitempty"`
	PaymentID  string `json:"payment_id,omitempty"`
	Signature  string `json:"signature,omitempty"`
}

// ============================
// 🟡 Start Registration Request
type StartRegistrationRequest struct {
	AmountPaid int64 `json:"amount_paid" binding:"required"`
}

// StartRegistrationResponse carries the Razorpay checkout bootstrap: the
// client pays against OrderID and comes back with a signature.
type StartRegistrationResponse struct {
	OrderID     string `json:"order_id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	RazorpayKey string `json:"razorpay_key"`
}
