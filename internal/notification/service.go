package notification

import (
	"context"
	"fmt"
	"log"

	"github.com/sharath018/event-escrow-backend/internal/auth"
	"github.com/sharath018/event-escrow-backend/utils"
)

type Service interface {
	CreateInApp(ctx context.Context, userID uint, title, body, typ string) error
	ListByUser(ctx context.Context, userID uint, limit int) ([]InAppNotification, error)
	MarkRead(ctx context.Context, id uint, userID uint) error
	CountUnread(ctx context.Context, userID uint) (int64, error)

	// HandleLedgerEvent turns a consumed ledger event into in-app rows.
	HandleLedgerEvent(ctx context.Context, ev LedgerEvent) error
}

type service struct {
	repo  Repository
	users auth.Repository
}

// NewService wires the notification store and the user lookup used to
// resolve email recipients. users may be nil (no email delivery).
func NewService(repo Repository, users auth.Repository) Service {
	return &service{repo: repo, users: users}
}

func (s *service) CreateInApp(ctx context.Context, userID uint, title, body, typ string) error {
	return s.repo.Create(ctx, &InAppNotification{
		UserID: userID,
		Title:  title,
		Body:   body,
		Type:   typ,
	})
}

func (s *service) ListByUser(ctx context.Context, userID uint, limit int) ([]InAppNotification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

func (s *service) MarkRead(ctx context.Context, id uint, userID uint) error {
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *service) CountUnread(ctx context.Context, userID uint) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

// HandleLedgerEvent maps a ledger event to the user it concerns. Events
// without a concerned user (nothing in the payload) are dropped silently.
func (s *service) HandleLedgerEvent(ctx context.Context, ev LedgerEvent) error {
	userID, title, body := describe(ev)
	if userID == 0 {
		return nil
	}
	if err := s.CreateInApp(ctx, userID, title, body, ev.Type); err != nil {
		return err
	}

	// Best-effort email alongside the in-app row.
	if s.users != nil {
		if user, err := s.users.FindByID(userID); err == nil {
			if err := utils.SendEmail(user.Email, title, body); err != nil {
				log.Printf("⚠️ Email delivery failed for %s: %v", user.Email, err)
			}
		}
	}
	return nil
}

// describe picks the recipient and the human-readable text for an event.
func describe(ev LedgerEvent) (uint, string, string) {
	name, _ := ev.Payload["name"].(string)

	switch ev.Type {
	case TypeEventCreated:
		return payloadUint(ev.Payload, "creator_id"),
			"Event created",
			fmt.Sprintf("Your event %q is registered on the ledger (id %v)", name, ev.Payload["event_id"])
	case TypeRegistrationOpened:
		return payloadUint(ev.Payload, "creator_id"),
			"Registration opened",
			fmt.Sprintf("Registration window for event %v is now open", ev.Payload["event_id"])
	case TypeRegistrationClosed:
		return payloadUint(ev.Payload, "creator_id"),
			"Registration closed",
			fmt.Sprintf("Registration window for event %v is now closed", ev.Payload["event_id"])
	case TypeParticipantRegistered:
		return payloadUint(ev.Payload, "user_id"),
			"Registration confirmed",
			fmt.Sprintf("You are registered for event %v", ev.Payload["event_id"])
	case TypeRefundIssued:
		return payloadUint(ev.Payload, "user_id"),
			"Refund issued",
			fmt.Sprintf("Overpayment of %v was refunded for event %v", ev.Payload["excess"], ev.Payload["event_id"])
	case TypeFundsWithdrawn:
		return payloadUint(ev.Payload, "owner_id"),
			"Funds withdrawn",
			fmt.Sprintf("Withdrew %v from the ledger balance", ev.Payload["amount"])
	}
	return 0, "", ""
}

// payloadUint reads a numeric payload field. JSON round-trips numbers as
// float64; events emitted in-process may carry native integer types.
func payloadUint(payload map[string]interface{}, key string) uint {
	switch v := payload[key].(type) {
	case float64:
		return uint(v)
	case uint:
		return v
	case uint64:
		return uint(v)
	case int:
		return uint(v)
	case int64:
		return uint(v)
	}
	return 0
}
