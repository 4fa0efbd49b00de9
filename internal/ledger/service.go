package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sharath018/event-escrow-backend/internal/auditlog"
	"github.com/sharath018/event-escrow-backend/internal/notification"
	"github.com/sharath018/event-escrow-backend/internal/treasury"
)

// Service is the registration ledger: event store, registration window
// state machine, escrow accounting and the guards protecting custodied
// funds. Every public method either commits all of its effects or none.
type Service struct {
	repo     Repository
	gateway  treasury.Gateway
	emitter  notification.Emitter
	auditSvc auditlog.Service

	// ownerID is fixed at construction and never changes. Withdrawals pay
	// out to ownerAccount.
	ownerID      uint
	ownerAccount string

	guard transferGuard
	now   func() time.Time
}

func NewService(repo Repository, gateway treasury.Gateway, emitter notification.Emitter, auditSvc auditlog.Service, ownerID uint, ownerAccount string) *Service {
	return &Service{
		repo:         repo,
		gateway:      gateway,
		emitter:      emitter,
		auditSvc:     auditSvc,
		ownerID:      ownerID,
		ownerAccount: ownerAccount,
		now:          time.Now,
	}
}

const secondsPerDay = 86400

// ===========================
// 🎯 Create Event
//
// Allocates the next sequential id from the ledger state inside the same
// transaction that inserts the event, so ids stay dense and unique.
func (s *Service) CreateEvent(ctx context.Context, callerID uint, req CreateEventRequest, ip string) (*Event, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, s.createFailed(ctx, callerID, req, ip, fmt.Errorf("%w: event name is required", ErrValidation))
	}
	if req.MaxParticipants <= 0 {
		return nil, s.createFailed(ctx, callerID, req, ip, fmt.Errorf("%w: max_participants must be positive", ErrValidation))
	}
	if req.DaysUntilDeadline <= 0 {
		return nil, s.createFailed(ctx, callerID, req, ip, fmt.Errorf("%w: days_until_deadline must be positive", ErrValidation))
	}
	if req.RegistrationFee < 0 {
		return nil, s.createFailed(ctx, callerID, req, ip, fmt.Errorf("%w: registration_fee cannot be negative", ErrValidation))
	}

	deadline := s.now().Add(time.Duration(req.DaysUntilDeadline) * secondsPerDay * time.Second)

	var created *Event
	err := s.repo.Atomic(ctx, func(tx Repository) error {
		st, err := tx.State(ctx)
		if err != nil {
			return err
		}

		e := &Event{
			ID:              st.EventCount,
			Name:            name,
			MaxParticipants: req.MaxParticipants,
			RegistrationFee: req.RegistrationFee,
			Deadline:        deadline,
			IsOpen:          false,
			CreatorID:       callerID,
		}
		if err := tx.CreateEvent(ctx, e); err != nil {
			return err
		}

		st.EventCount++
		if err := tx.SaveState(ctx, st); err != nil {
			return err
		}

		created = e
		return nil
	})
	if err != nil {
		return nil, s.createFailed(ctx, callerID, req, ip, err)
	}

	s.auditSvc.LogAction(ctx, &callerID, &created.ID, "EVENT_CREATED", map[string]interface{}{
		"name":             created.Name,
		"max_participants": created.MaxParticipants,
		"registration_fee": created.RegistrationFee,
		"deadline":         created.Deadline,
	}, ip, "success")

	s.emit(ctx, notification.TypeEventCreated, map[string]interface{}{
		"event_id":         created.ID,
		"name":             created.Name,
		"max_participants": created.MaxParticipants,
		"registration_fee": created.RegistrationFee,
		"deadline":         created.Deadline,
		"creator_id":       created.CreatorID,
	})

	return created, nil
}

func (s *Service) createFailed(ctx context.Context, callerID uint, req CreateEventRequest, ip string, err error) error {
	s.auditSvc.LogAction(ctx, &callerID, nil, "EVENT_CREATED", map[string]interface{}{
		"name":  req.Name,
		"error": err.Error(),
	}, ip, "failure")
	return err
}

// ===========================
// 🔓 Open Registration — creator only, Closed→Open
func (s *Service) OpenRegistration(ctx context.Context, callerID uint, eventID uint64, ip string) error {
	err := s.repo.Atomic(ctx, func(tx Repository) error {
		e, err := tx.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if e.CreatorID != callerID {
			return ErrUnauthorized
		}
		if e.IsOpen {
			return ErrAlreadyOpen
		}
		e.IsOpen = true
		return tx.SaveEvent(ctx, e)
	})

	status := "success"
	details := map[string]interface{}{}
	if err != nil {
		status = "failure"
		details["error"] = err.Error()
	}
	s.auditSvc.LogAction(ctx, &callerID, &eventID, "REGISTRATION_OPENED", details, ip, status)
	if err != nil {
		return err
	}

	s.emit(ctx, notification.TypeRegistrationOpened, map[string]interface{}{
		"event_id":   eventID,
		"creator_id": callerID,
	})
	return nil
}

// ===========================
// 🔒 Close Registration — creator only, Open→Closed
func (s *Service) CloseRegistration(ctx context.Context, callerID uint, eventID uint64, ip string) error {
	err := s.repo.Atomic(ctx, func(tx Repository) error {
		e, err := tx.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if e.CreatorID != callerID {
			return ErrUnauthorized
		}
		if !e.IsOpen {
			return ErrAlreadyClosed
		}
		e.IsOpen = false
		return tx.SaveEvent(ctx, e)
	})

	status := "success"
	details := map[string]interface{}{}
	if err != nil {
		status = "failure"
		details["error"] = err.Error()
	}
	s.auditSvc.LogAction(ctx, &callerID, &eventID, "REGISTRATION_CLOSED", details, ip, status)
	if err != nil {
		return err
	}

	s.emit(ctx, notification.TypeRegistrationClosed, map[string]interface{}{
		"event_id":   eventID,
		"creator_id": callerID,
	})
	return nil
}

// ===========================
// 🧾 Register For Event
//
// Checks run in a fixed order so error precedence is deterministic:
// exists → open → capacity → payment → deadline → duplicate. Effects
// (participant append, balance credit) happen before the refund
// interaction; the refund runs last inside the same transaction so a
// failed transfer rolls everything back, and the guard held for the
// whole body keeps the mid-flight state invisible to reentrant calls.
func (s *Service) RegisterForEvent(ctx context.Context, callerID uint, eventID uint64, amountPaid int64, paymentRef string, ip string) (*Registration, error) {
	if err := s.guard.acquire(); err != nil {
		return nil, err
	}
	defer s.guard.release()

	var reg *Registration
	var excess int64

	err := s.repo.Atomic(ctx, func(tx Repository) error {
		e, err := tx.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if !e.IsOpen {
			return ErrRegistrationClosed
		}
		count, err := tx.CountRegistrations(ctx, eventID)
		if err != nil {
			return err
		}
		if count >= e.MaxParticipants {
			return ErrCapacityExceeded
		}
		if amountPaid < e.RegistrationFee {
			return ErrInsufficientPayment
		}
		if e.Expired(s.now()) {
			return ErrDeadlineExceeded
		}
		registered, err := tx.IsRegistered(ctx, eventID, callerID)
		if err != nil {
			return err
		}
		if registered {
			return ErrAlreadyRegistered
		}

		excess = amountPaid - e.RegistrationFee
		reg = &Registration{
			EventID:     eventID,
			UserID:      callerID,
			Position:    count,
			AmountPaid:  amountPaid,
			FeeRetained: e.RegistrationFee,
			Refunded:    excess,
			PaymentRef:  paymentRef,
		}
		if err := tx.AddRegistration(ctx, reg); err != nil {
			return err
		}

		st, err := tx.State(ctx)
		if err != nil {
			return err
		}
		st.ContractBalance += e.RegistrationFee
		if err := tx.SaveState(ctx, st); err != nil {
			return err
		}

		// Interaction last: state already reflects the registration
		// before any value leaves custody.
		if excess > 0 {
			if _, err := s.gateway.Refund(ctx, paymentRef, excess, map[string]interface{}{
				"event_id": eventID,
				"user_id":  callerID,
			}); err != nil {
				return fmt.Errorf("refund overpayment: %w", err)
			}
		}
		return nil
	})

	if err != nil {
		s.auditSvc.LogAction(ctx, &callerID, &eventID, "PARTICIPANT_REGISTERED", map[string]interface{}{
			"amount_paid": amountPaid,
			"error":       err.Error(),
		}, ip, "failure")
		return nil, err
	}

	s.auditSvc.LogAction(ctx, &callerID, &eventID, "PARTICIPANT_REGISTERED", map[string]interface{}{
		"amount_paid":  amountPaid,
		"fee_retained": reg.FeeRetained,
		"refunded":     reg.Refunded,
		"position":     reg.Position,
	}, ip, "success")

	s.emit(ctx, notification.TypeParticipantRegistered, map[string]interface{}{
		"event_id": eventID,
		"user_id":  callerID,
		"position": reg.Position,
	})
	if excess > 0 {
		s.emit(ctx, notification.TypeRefundIssued, map[string]interface{}{
			"event_id": eventID,
			"user_id":  callerID,
			"excess":   excess,
		})
	}

	return reg, nil
}

// ===========================
// 👥 Get Participants — ordered registrant list
func (s *Service) GetParticipants(ctx context.Context, eventID uint64) ([]Registration, error) {
	if _, err := s.repo.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.repo.ListRegistrations(ctx, eventID)
}

// ===========================
// 🔍 Get Event by ID (with participant count)
func (s *Service) GetEvent(ctx context.Context, eventID uint64) (*Event, error) {
	e, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountRegistrations(ctx, eventID)
	if err != nil {
		return nil, err
	}
	e.ParticipantCount = count
	return e, nil
}

// ===========================
// 📄 List Events with pagination & search
func (s *Service) ListEvents(ctx context.Context, limit, offset int, search string) ([]Event, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	events, err := s.repo.ListEvents(ctx, limit, offset, search)
	if err != nil {
		return nil, err
	}
	for i := range events {
		count, err := s.repo.CountRegistrations(ctx, events[i].ID)
		if err != nil {
			return nil, err
		}
		events[i].ParticipantCount = count
	}
	return events, nil
}

// ===========================
// 🏦 Withdraw Funds — owner only, full balance
func (s *Service) WithdrawFunds(ctx context.Context, callerID uint, ip string) (int64, error) {
	if err := s.guard.acquire(); err != nil {
		return 0, err
	}
	defer s.guard.release()

	var amount int64
	err := s.repo.Atomic(ctx, func(tx Repository) error {
		if callerID != s.ownerID {
			return ErrUnauthorized
		}

		st, err := tx.State(ctx)
		if err != nil {
			return err
		}
		if st.ContractBalance == 0 {
			return ErrNothingToWithdraw
		}

		amount = st.ContractBalance
		st.ContractBalance = 0
		if err := tx.SaveState(ctx, st); err != nil {
			return err
		}

		// Interaction last, under the guard.
		if _, err := s.gateway.Payout(ctx, s.ownerAccount, amount, uuid.NewString()); err != nil {
			return fmt.Errorf("payout withdrawal: %w", err)
		}
		return nil
	})

	if err != nil {
		s.auditSvc.LogAction(ctx, &callerID, nil, "FUNDS_WITHDRAWN", map[string]interface{}{
			"error": err.Error(),
		}, ip, "failure")
		return 0, err
	}

	s.auditSvc.LogAction(ctx, &callerID, nil, "FUNDS_WITHDRAWN", map[string]interface{}{
		"amount": amount,
	}, ip, "success")

	s.emit(ctx, notification.TypeFundsWithdrawn, map[string]interface{}{
		"owner_id": callerID,
		"amount":   amount,
	})

	return amount, nil
}

// ===========================
// 💰 Balance — owner only
func (s *Service) Balance(ctx context.Context, callerID uint) (int64, error) {
	if callerID != s.ownerID {
		return 0, ErrUnauthorized
	}
	st, err := s.repo.State(ctx)
	if err != nil {
		return 0, err
	}
	return st.ContractBalance, nil
}

// emit publishes to the notification side-channel. Delivery failures do
// not affect the committed operation.
func (s *Service) emit(ctx context.Context, typ string, payload map[string]interface{}) {
	_ = s.emitter.Emit(ctx, notification.LedgerEvent{
		Type:    typ,
		At:      s.now(),
		Payload: payload,
	})
}
