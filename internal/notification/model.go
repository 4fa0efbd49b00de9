package notification

import "time"

// Ledger notification types published to Kafka.
const (
	TypeEventCreated          = "EVENT_CREATED"
	TypeRegistrationOpened    = "REGISTRATION_OPENED"
	TypeRegistrationClosed    = "REGISTRATION_CLOSED"
	TypeParticipantRegistered = "PARTICIPANT_REGISTERED"
	TypeRefundIssued          = "REFUND_ISSUED"
	TypeFundsWithdrawn        = "FUNDS_WITHDRAWN"
)

// LedgerEvent is the wire format of a ledger notification. The ledger
// core only emits; who listens (Kafka consumer, tests, nothing at all)
// never changes its contract.
type LedgerEvent struct {
	Type    string                 `json:"type"`
	At      time.Time              `json:"at"`
	Payload map[string]interface{} `json:"payload"`
}

// ============================
// 🔷 GORM In-App Notification Model
type InAppNotification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	Body      string    `gorm:"type:text" json:"body"`
	Type      string    `gorm:"type:varchar(50);index" json:"type"`
	IsRead    bool      `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName overrides table name for InAppNotification
func (InAppNotification) TableName() string {
	return "in_app_notifications"
}
