package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sharath018/event-escrow-backend/internal/auditlog"
	"github.com/sharath018/event-escrow-backend/internal/notification"
)

// ===========================
// test fakes

type refundCall struct {
	paymentID string
	amount    int64
}

type payoutCall struct {
	account string
	amount  int64
}

type fakeGateway struct {
	refunds   []refundCall
	payouts   []payoutCall
	refundErr error
	payoutErr error

	// hooks fire during the outbound transfer, simulating
	// recipient-controlled code calling back into the ledger.
	onRefund func()
	onPayout func()
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amount int64, notes map[string]interface{}) (string, error) {
	return "order_test", nil
}

func (g *fakeGateway) Refund(ctx context.Context, paymentID string, amount int64, notes map[string]interface{}) (string, error) {
	if g.onRefund != nil {
		g.onRefund()
	}
	if g.refundErr != nil {
		return "", g.refundErr
	}
	g.refunds = append(g.refunds, refundCall{paymentID: paymentID, amount: amount})
	return "rfnd_test", nil
}

func (g *fakeGateway) Payout(ctx context.Context, account string, amount int64, reference string) (string, error) {
	if g.onPayout != nil {
		g.onPayout()
	}
	if g.payoutErr != nil {
		return "", g.payoutErr
	}
	g.payouts = append(g.payouts, payoutCall{account: account, amount: amount})
	return "trf_test", nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return true
}

type captureEmitter struct {
	events []notification.LedgerEvent
}

func (e *captureEmitter) Emit(ctx context.Context, ev notification.LedgerEvent) error {
	e.events = append(e.events, ev)
	return nil
}

func (e *captureEmitter) typesEmitted() []string {
	out := make([]string, len(e.events))
	for i, ev := range e.events {
		out[i] = ev.Type
	}
	return out
}

type nopAudit struct{}

func (nopAudit) LogAction(ctx context.Context, userID *uint, eventID *uint64, action string, details map[string]interface{}, ip string, status string) error {
	return nil
}

func (nopAudit) GetAuditLogs(ctx context.Context, filter auditlog.AuditLogFilter) (*auditlog.PaginatedAuditLogs, error) {
	return nil, nil
}

func (nopAudit) GetAuditLogByID(ctx context.Context, id uint) (*auditlog.AuditLog, error) {
	return nil, nil
}

const (
	ownerID      = uint(1)
	creatorID    = uint(2)
	payerA       = uint(3)
	payerB       = uint(4)
	payerC       = uint(5)
	ownerAccount = "acc_owner"
)

type testEnv struct {
	svc     *Service
	gateway *fakeGateway
	emitter *captureEmitter
	repo    *InMemoryRepository
	clock   time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		gateway: &fakeGateway{},
		emitter: &captureEmitter{},
		repo:    NewInMemoryRepository(),
		clock:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	env.svc = NewService(env.repo, env.gateway, env.emitter, nopAudit{}, ownerID, ownerAccount)
	env.svc.now = func() time.Time { return env.clock }
	return env
}

func (env *testEnv) advance(d time.Duration) {
	env.clock = env.clock.Add(d)
}

// mustCreate creates an event and fails the test on error.
func (env *testEnv) mustCreate(t *testing.T, name string, max int, fee int64, days int) *Event {
	t.Helper()
	e, err := env.svc.CreateEvent(context.Background(), creatorID, CreateEventRequest{
		Name:              name,
		MaxParticipants:   max,
		RegistrationFee:   fee,
		DaysUntilDeadline: days,
	}, "127.0.0.1")
	if err != nil {
		t.Fatalf("CreateEvent(%q): %v", name, err)
	}
	return e
}

func (env *testEnv) mustOpen(t *testing.T, id uint64) {
	t.Helper()
	if err := env.svc.OpenRegistration(context.Background(), creatorID, id, "127.0.0.1"); err != nil {
		t.Fatalf("OpenRegistration(%d): %v", id, err)
	}
}

func (env *testEnv) balance(t *testing.T) int64 {
	t.Helper()
	st, err := env.repo.State(context.Background())
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	return st.ContractBalance
}

// ===========================
// creation

func TestCreateEventAssignsDenseIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.mustCreate(t, "First", 10, 100, 5)
	second := env.mustCreate(t, "Second", 10, 100, 5)

	if first.ID != 0 || second.ID != 1 {
		t.Fatalf("expected ids 0,1 got %d,%d", first.ID, second.ID)
	}
	if first.IsOpen {
		t.Fatal("new events must start closed")
	}
	if first.CreatorID != creatorID {
		t.Fatalf("creator = %d, want %d", first.CreatorID, creatorID)
	}

	wantDeadline := env.clock.Add(5 * secondsPerDay * time.Second)
	if !first.Deadline.Equal(wantDeadline) {
		t.Fatalf("deadline = %v, want %v", first.Deadline, wantDeadline)
	}

	st, _ := env.repo.State(ctx)
	if st.EventCount != 2 {
		t.Fatalf("event count = %d, want 2", st.EventCount)
	}
}

func TestCreateEventValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  CreateEventRequest
	}{
		{"empty name", CreateEventRequest{Name: "  ", MaxParticipants: 5, RegistrationFee: 10, DaysUntilDeadline: 1}},
		{"zero participants", CreateEventRequest{Name: "X", MaxParticipants: 0, RegistrationFee: 10, DaysUntilDeadline: 1}},
		{"negative participants", CreateEventRequest{Name: "X", MaxParticipants: -1, RegistrationFee: 10, DaysUntilDeadline: 1}},
		{"zero days", CreateEventRequest{Name: "X", MaxParticipants: 5, RegistrationFee: 10, DaysUntilDeadline: 0}},
		{"negative fee", CreateEventRequest{Name: "X", MaxParticipants: 5, RegistrationFee: -1, DaysUntilDeadline: 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.CreateEvent(ctx, creatorID, tc.req, "")
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}

	// Failed creations must not consume ids.
	st, _ := env.repo.State(ctx)
	if st.EventCount != 0 {
		t.Fatalf("event count = %d after failed creations, want 0", st.EventCount)
	}
}

// ===========================
// registration window

func TestOpenCloseTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	e := env.mustCreate(t, "Window", 5, 0, 10)

	if err := env.svc.OpenRegistration(ctx, payerA, e.ID, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-creator open: err = %v, want ErrUnauthorized", err)
	}

	env.mustOpen(t, e.ID)
	if err := env.svc.OpenRegistration(ctx, creatorID, e.ID, ""); !errors.Is(err, ErrAlreadyOpen) {
		t.Fatalf("second open: err = %v, want ErrAlreadyOpen", err)
	}

	if err := env.svc.CloseRegistration(ctx, payerA, e.ID, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-creator close: err = %v, want ErrUnauthorized", err)
	}
	if err := env.svc.CloseRegistration(ctx, creatorID, e.ID, ""); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := env.svc.CloseRegistration(ctx, creatorID, e.ID, ""); !errors.Is(err, ErrAlreadyClosed) {
		t.Fatalf("second close: err = %v, want ErrAlreadyClosed", err)
	}
}

func TestEveryOperationRejectsUnknownEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustCreate(t, "Only", 5, 0, 10)

	const missing = uint64(99)

	if err := env.svc.OpenRegistration(ctx, creatorID, missing, ""); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("open: err = %v, want ErrEventNotFound", err)
	}
	if err := env.svc.CloseRegistration(ctx, creatorID, missing, ""); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("close: err = %v, want ErrEventNotFound", err)
	}
	if _, err := env.svc.RegisterForEvent(ctx, payerA, missing, 0, "", ""); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("register: err = %v, want ErrEventNotFound", err)
	}
	if _, err := env.svc.GetParticipants(ctx, missing); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("participants: err = %v, want ErrEventNotFound", err)
	}
	if _, err := env.svc.GetEvent(ctx, missing); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("get: err = %v, want ErrEventNotFound", err)
	}
}

// ===========================
// registration + escrow

func TestRegisterWithOverpaymentRefundsExcess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	e := env.mustCreate(t, "Test", 2, 10, 10)
	env.mustOpen(t, e.ID)

	reg, err := env.svc.RegisterForEvent(ctx, payerA, e.ID, 15, "pay_A", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if reg.Position != 0 {
		t.Fatalf("position = %d, want 0", reg.Position)
	}
	if reg.FeeRetained != 10 || reg.Refunded != 5 {
		t.Fatalf("retained/refunded = %d/%d, want 10/5", reg.FeeRetained, reg.Refunded)
	}
	if got := env.balance(t); got != 10 {
		t.Fatalf("balance = %d, want 10", got)
	}

	if len(env.gateway.refunds) != 1 {
		t.Fatalf("refund calls = %d, want 1", len(env.gateway.refunds))
	}
	if rc := env.gateway.refunds[0]; rc.paymentID != "pay_A" || rc.amount != 5 {
		t.Fatalf("refund = %+v, want pay_A/5", rc)
	}

	want := []string{
		notification.TypeEventCreated,
		notification.TypeRegistrationOpened,
		notification.TypeParticipantRegistered,
		notification.TypeRefundIssued,
	}
	got := env.emitter.typesEmitted()
	if len(got) != len(want) {
		t.Fatalf("emitted %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("emitted %v, want %v", got, want)
		}
	}

	refund := env.emitter.events[3]
	if refund.Payload["excess"] != int64(5) {
		t.Fatalf("refund payload excess = %v, want 5", refund.Payload["excess"])
	}
}

func TestRegisterExactPaymentSkipsRefund(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	e := env.mustCreate(t, "Exact", 2, 10, 10)
	env.mustOpen(t, e.ID)

	if _, err := env.svc.RegisterForEvent(ctx, payerA, e.ID, 10, "pay_A", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(env.gateway.refunds) != 0 {
		t.Fatalf("refund calls = %d, want 0", len(env.gateway.refunds))
	}
	for _, ev := range env.emitter.events {
		if ev.Type == notification.TypeRefundIssued {
			t.Fatal("RefundIssued emitted for exact payment")
		}
	}
}

func TestRegisterCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	e := env.mustCreate(t, "Small", 1, 10, 10)
	env.mustOpen(t, e.ID)

	if _, err := env.svc.RegisterForEvent(ctx, payerA, e.ID, 10, "pay_A", ""); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := env.svc.RegisterForEvent(ctx, payerB, e.ID, 10, "pay_B", ""); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("second register: err = %v, want ErrCapacityExceeded", err)
	}

	regs, err := env.svc.GetParticipants(ctx, e.ID)
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	if len(regs) != 1 {
		t.Fatalf("participants = %d, want 1", len(regs))
	}
}

func TestRegisterErrorPrecedence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Closed window wins over every later check.
	closed := env.mustCreate(t, "Closed", 1, 10, 10)
	if _, err := env.svc.RegisterForEvent(ctx, payerA, closed.ID, 0, "", ""); !errors.Is(err, ErrRegistrationClosed) {
		t.Fatalf("closed: err = %v, want ErrRegistrationClosed", err)
	}

	// Full event reports capacity before underpayment.
	full := env.mustCreate(t, "Full", 1, 10, 10)
	env.mustOpen(t, full.ID)
	if _, err := env.svc.RegisterForEvent(ctx, payerA, full.ID, 10, "pay_A", ""); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if _, err := env.svc.RegisterForEvent(ctx, payerB, full.ID, 0, "", ""); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("full+underpaid: err = %v, want ErrCapacityExceeded", err)
	}

	// Underpayment reports before the deadline check.
	expired := env.mustCreate(t, "Expired", 5, 10, 1)
	env.mustOpen(t, expired.ID)
	env.advance(2 * secondsPerDay * time.Second)
	if _, err := env.svc.RegisterForEvent(ctx, payerA, expired.ID, 5, "pay_A", ""); !errors.Is(err, ErrInsufficientPayment) {
		t.Fatalf("underpaid+expired: err = %v, want ErrInsufficientPayment", err)
	}

	// Deadline reports before the duplicate check.
	if _, err := env.svc.RegisterForEvent(ctx, payerA, expired.ID, 10, "pay_A", ""); !errors.Is(err, ErrDeadlineExceeded) {
		t.Fatalf("expired: err = %v, want ErrDeadlineExceeded", err)
	}
}

func TestRegisterDuplicateRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	e := env.mustCreate(t, "Dup", 5, 10, 10)
	env.mustOpen(t, e.ID)

	if _, err := env.svc.RegisterForEvent(ctx, payerA, e.ID, 10, "pay_A", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := env.svc.RegisterForEvent(ctx, payerA, e.ID, 10, "pay_A2", ""); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("duplicate: err = %v, want ErrAlreadyRegistered", err)
	}
}

func TestDeadlineBlocksEvenWhileOpen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	e := env.mustCreate(t, "Deadline", 5, 10, 1)
	env.mustOpen(t, e.ID)

	env.advance(secondsPerDay*time.Second + time.Second)

	if _, err := env.svc.RegisterForEvent(ctx, payerA, e.ID, 10, "pay_A", ""); !errors.Is(err, ErrDeadlineExceeded) {
		t.Fatalf("err = %v, want ErrDeadlineExceeded", err)
	}

	// Cycling the window does not resurrect registration.
	if err := env.svc.CloseRegistration(ctx, creatorID, e.ID, ""); err != nil {
		t.Fatalf("close: %v", err)
	}
	env.mustOpen(t, e.ID)
	if _, err := env.svc.RegisterForEvent(ctx, payerA, e.ID, 10, "pay_A", ""); !errors.Is(err, ErrDeadlineExceeded) {
		t.Fatalf("after reopen: err = %v, want ErrDeadlineExceeded", err)
	}
}

func TestRegistrationOrderPreserved(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	e := env.mustCreate(t, "Order", 5, 0, 10)
	env.mustOpen(t, e.ID)

	for _, payer := range []uint{payerA, payerB, payerC} {
		if _, err := env.svc.RegisterForEvent(ctx, payer, e.ID, 0, "", ""); err != nil {
			t.Fatalf("register %d: %v", payer, err)
		}
	}

	regs, err := env.svc.GetParticipants(ctx, e.ID)
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	want := []uint{payerA, payerB, payerC}
	if len(regs) != len(want) {
		t.Fatalf("participants = %d, want %d", len(regs), len(want))
	}
	for i, payer := range want {
		if regs[i].UserID != payer || regs[i].Position != i {
			t.Fatalf("participant[%d] = user %d pos %d, want user %d pos %d",
				i, regs[i].UserID, regs[i].Position, payer, i)
		}
	}
}

func TestRefundFailureRollsBackRegistration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	e := env.mustCreate(t, "Rollback", 2, 10, 10)
	env.mustOpen(t, e.ID)

	env.gateway.refundErr = errors.New("provider down")
	if _, err := env.svc.RegisterForEvent(ctx, payerA, e.ID, 15, "pay_A", ""); err == nil {
		t.Fatal("expected refund failure to fail the registration")
	}

	regs, _ := env.svc.GetParticipants(ctx, e.ID)
	if len(regs) != 0 {
		t.Fatalf("participants = %d after rollback, want 0", len(regs))
	}
	if got := env.balance(t); got != 0 {
		t.Fatalf("balance = %d after rollback, want 0", got)
	}

	// The same caller can retry once the provider recovers.
	env.gateway.refundErr = nil
	if _, err := env.svc.RegisterForEvent(ctx, payerA, e.ID, 15, "pay_A", ""); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

// ===========================
// withdrawal

func TestWithdrawFunds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	e := env.mustCreate(t, "Paid", 2, 10, 10)
	env.mustOpen(t, e.ID)
	if _, err := env.svc.RegisterForEvent(ctx, payerA, e.ID, 10, "pay_A", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := env.svc.WithdrawFunds(ctx, payerA, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-owner withdraw: err = %v, want ErrUnauthorized", err)
	}

	amount, err := env.svc.WithdrawFunds(ctx, ownerID, "")
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if amount != 10 {
		t.Fatalf("withdrawn = %d, want 10", amount)
	}
	if got := env.balance(t); got != 0 {
		t.Fatalf("balance = %d after withdrawal, want 0", got)
	}
	if len(env.gateway.payouts) != 1 {
		t.Fatalf("payout calls = %d, want 1", len(env.gateway.payouts))
	}
	if pc := env.gateway.payouts[0]; pc.account != ownerAccount || pc.amount != 10 {
		t.Fatalf("payout = %+v, want %s/10", pc, ownerAccount)
	}

	if _, err := env.svc.WithdrawFunds(ctx, ownerID, ""); !errors.Is(err, ErrNothingToWithdraw) {
		t.Fatalf("empty withdraw: err = %v, want ErrNothingToWithdraw", err)
	}
}

func TestPayoutFailureRestoresBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	e := env.mustCreate(t, "Held", 2, 10, 10)
	env.mustOpen(t, e.ID)
	if _, err := env.svc.RegisterForEvent(ctx, payerA, e.ID, 10, "pay_A", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	env.gateway.payoutErr = errors.New("provider down")
	if _, err := env.svc.WithdrawFunds(ctx, ownerID, ""); err == nil {
		t.Fatal("expected payout failure to fail the withdrawal")
	}
	if got := env.balance(t); got != 10 {
		t.Fatalf("balance = %d after failed withdrawal, want 10", got)
	}
}

func TestBalanceAccountingAcrossEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.mustCreate(t, "A", 5, 10, 10)
	b := env.mustCreate(t, "B", 5, 25, 10)
	env.mustOpen(t, a.ID)
	env.mustOpen(t, b.ID)

	if _, err := env.svc.RegisterForEvent(ctx, payerA, a.ID, 10, "p1", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.RegisterForEvent(ctx, payerB, a.ID, 12, "p2", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.RegisterForEvent(ctx, payerA, b.ID, 25, "p3", ""); err != nil {
		t.Fatal(err)
	}

	// Only retained fees count: 10 + 10 + 25, the excess 2 was refunded.
	if got := env.balance(t); got != 45 {
		t.Fatalf("balance = %d, want 45", got)
	}

	if got, err := env.svc.Balance(ctx, ownerID); err != nil || got != 45 {
		t.Fatalf("Balance() = %d, %v; want 45, nil", got, err)
	}
	if _, err := env.svc.Balance(ctx, payerA); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-owner Balance: err = %v, want ErrUnauthorized", err)
	}
}

// ===========================
// reentrancy

func TestReentrantRefundCannotWithdraw(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	e := env.mustCreate(t, "Reentrant", 2, 10, 10)
	env.mustOpen(t, e.ID)

	var nested error
	env.gateway.onRefund = func() {
		_, nested = env.svc.WithdrawFunds(ctx, ownerID, "")
	}

	if _, err := env.svc.RegisterForEvent(ctx, payerA, e.ID, 15, "pay_A", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !errors.Is(nested, ErrReentrantCall) {
		t.Fatalf("nested withdraw: err = %v, want ErrReentrantCall", nested)
	}
	if len(env.gateway.payouts) != 0 {
		t.Fatal("nested withdraw must not move funds")
	}
	// The outer registration still committed.
	if got := env.balance(t); got != 10 {
		t.Fatalf("balance = %d, want 10", got)
	}
}

func TestReentrantPayoutCannotRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	e := env.mustCreate(t, "Reentrant", 2, 10, 10)
	env.mustOpen(t, e.ID)
	if _, err := env.svc.RegisterForEvent(ctx, payerA, e.ID, 10, "pay_A", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	var nested error
	env.gateway.onPayout = func() {
		_, nested = env.svc.RegisterForEvent(ctx, payerB, e.ID, 10, "pay_B", "")
	}

	if _, err := env.svc.WithdrawFunds(ctx, ownerID, ""); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !errors.Is(nested, ErrReentrantCall) {
		t.Fatalf("nested register: err = %v, want ErrReentrantCall", nested)
	}

	regs, _ := env.svc.GetParticipants(ctx, e.ID)
	if len(regs) != 1 {
		t.Fatalf("participants = %d, want 1", len(regs))
	}
}

func TestGuardReleasedAfterFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	e := env.mustCreate(t, "Release", 2, 10, 10)
	env.mustOpen(t, e.ID)

	env.gateway.refundErr = errors.New("provider down")
	if _, err := env.svc.RegisterForEvent(ctx, payerA, e.ID, 15, "pay_A", ""); err == nil {
		t.Fatal("expected failure")
	}

	// A failed guarded operation must not leave the guard held.
	env.gateway.refundErr = nil
	if _, err := env.svc.RegisterForEvent(ctx, payerA, e.ID, 10, "pay_A", ""); err != nil {
		t.Fatalf("register after failure: %v", err)
	}
	if _, err := env.svc.WithdrawFunds(ctx, ownerID, ""); err != nil {
		t.Fatalf("withdraw after failure: %v", err)
	}
}

// ===========================
// invariants

func TestCapacityInvariantUnderManyRegistrations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	e := env.mustCreate(t, "Invariant", 3, 0, 10)
	env.mustOpen(t, e.ID)

	for user := uint(10); user < 30; user++ {
		_, err := env.svc.RegisterForEvent(ctx, user, e.ID, 0, "", "")
		if err != nil && !errors.Is(err, ErrCapacityExceeded) {
			t.Fatalf("register %d: %v", user, err)
		}

		regs, _ := env.svc.GetParticipants(ctx, e.ID)
		if len(regs) > e.MaxParticipants {
			t.Fatalf("participants = %d exceeds capacity %d", len(regs), e.MaxParticipants)
		}
	}

	regs, _ := env.svc.GetParticipants(ctx, e.ID)
	if len(regs) != 3 {
		t.Fatalf("participants = %d, want 3", len(regs))
	}
}

func TestEventFieldsImmutableAfterCreation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	e := env.mustCreate(t, "Frozen", 3, 10, 10)

	deadline := e.Deadline
	creator := e.CreatorID

	env.mustOpen(t, e.ID)
	if err := env.svc.CloseRegistration(ctx, creatorID, e.ID, ""); err != nil {
		t.Fatal(err)
	}
	env.mustOpen(t, e.ID)
	if _, err := env.svc.RegisterForEvent(ctx, payerA, e.ID, 10, "pay_A", ""); err != nil {
		t.Fatal(err)
	}

	got, err := env.svc.GetEvent(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Deadline.Equal(deadline) {
		t.Fatalf("deadline changed: %v -> %v", deadline, got.Deadline)
	}
	if got.CreatorID != creator {
		t.Fatalf("creator changed: %d -> %d", creator, got.CreatorID)
	}
	if got.ParticipantCount != 1 {
		t.Fatalf("participant count = %d, want 1", got.ParticipantCount)
	}
}
