package reports

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/sharath018/event-escrow-backend/internal/auditlog"
	"github.com/sharath018/event-escrow-backend/internal/auth"
	"github.com/sharath018/event-escrow-backend/internal/ledger"
	"github.com/sharath018/event-escrow-backend/internal/notification"
)

type stubGateway struct{}

func (stubGateway) CreateOrder(ctx context.Context, amount int64, notes map[string]interface{}) (string, error) {
	return "order_test", nil
}

func (stubGateway) Refund(ctx context.Context, paymentID string, amount int64, notes map[string]interface{}) (string, error) {
	return "rfnd_test", nil
}

func (stubGateway) Payout(ctx context.Context, account string, amount int64, reference string) (string, error) {
	return "trf_test", nil
}

func (stubGateway) VerifySignature(orderID, paymentID, signature string) bool { return true }

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

type fakeUsers struct {
	byID map[uint]auth.User
}

func (r *fakeUsers) Create(user *auth.User) error { return errors.New("not implemented") }

func (r *fakeUsers) FindByEmail(email string) (*auth.User, error) {
	return nil, errors.New("record not found")
}

func (r *fakeUsers) FindByID(userID uint) (auth.User, error) {
	u, ok := r.byID[userID]
	if !ok {
		return auth.User{}, errors.New("record not found")
	}
	return u, nil
}

func (r *fakeUsers) FindRoleByName(name string) (*auth.UserRole, error) {
	return nil, errors.New("record not found")
}

// seedLedger builds a ledger with one open event and two registrations:
// user 3 paid exactly, user 4 overpaid by 5.
func seedLedger(t *testing.T) (*Service, uint64) {
	t.Helper()
	ctx := context.Background()

	ledgerSvc := ledger.NewService(
		ledger.NewInMemoryRepository(),
		stubGateway{},
		notification.NopEmitter{},
		nopAudit{},
		1,
		"acc_owner",
	)

	event, err := ledgerSvc.CreateEvent(ctx, 2, ledger.CreateEventRequest{
		Name:              "Summer Run",
		MaxParticipants:   10,
		RegistrationFee:   10,
		DaysUntilDeadline: 30,
	}, "")
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if err := ledgerSvc.OpenRegistration(ctx, 2, event.ID, ""); err != nil {
		t.Fatalf("OpenRegistration: %v", err)
	}
	if _, err := ledgerSvc.RegisterForEvent(ctx, 3, event.ID, 10, "pay_3", ""); err != nil {
		t.Fatalf("register user 3: %v", err)
	}
	if _, err := ledgerSvc.RegisterForEvent(ctx, 4, event.ID, 15, "pay_4", ""); err != nil {
		t.Fatalf("register user 4: %v", err)
	}

	users := &fakeUsers{byID: map[uint]auth.User{
		3: {ID: 3, FullName: "Asha Rao", Email: "asha@example.com"},
		4: {ID: 4, FullName: "Vikram Iyer", Email: "vikram@example.com"},
	}}

	return NewService(ledgerSvc, users), event.ID
}

func TestParticipantsCSV(t *testing.T) {
	svc, eventID := seedLedger(t)

	data, err := svc.ParticipantsCSV(context.Background(), eventID)
	if err != nil {
		t.Fatalf("ParticipantsCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("csv lines = %d, want header + 2 rows:\n%s", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], "position,user_id,name,email") {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "Asha Rao") || !strings.Contains(lines[1], "asha@example.com") {
		t.Fatalf("row 1 missing user 3 details: %s", lines[1])
	}
	// User 4 overpaid by 5: paid 15, retained 10, refunded 5.
	if !strings.Contains(lines[2], "15,10,5") {
		t.Fatalf("row 2 missing overpayment breakdown: %s", lines[2])
	}
}

func TestParticipantsXLSX(t *testing.T) {
	svc, eventID := seedLedger(t)

	data, err := svc.ParticipantsXLSX(context.Background(), eventID)
	if err != nil {
		t.Fatalf("ParticipantsXLSX: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	head, err := f.GetCellValue("Participants", "A1")
	if err != nil {
		t.Fatalf("read A1: %v", err)
	}
	if head != "Position" {
		t.Fatalf("A1 = %q, want Position", head)
	}

	name, _ := f.GetCellValue("Participants", "C2")
	if name != "Asha Rao" {
		t.Fatalf("C2 = %q, want Asha Rao", name)
	}
	refunded, _ := f.GetCellValue("Participants", "G3")
	if refunded != "5" {
		t.Fatalf("G3 = %q, want 5", refunded)
	}
}

func TestRegistrationReceipt(t *testing.T) {
	svc, eventID := seedLedger(t)
	ctx := context.Background()

	pdf, err := svc.RegistrationReceipt(ctx, eventID, 4)
	if err != nil {
		t.Fatalf("RegistrationReceipt: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("receipt does not look like a PDF: %q", pdf[:min(len(pdf), 8)])
	}

	// Only registered participants get a receipt.
	if _, err := svc.RegistrationReceipt(ctx, eventID, 99); !errors.Is(err, ledger.ErrEventNotFound) {
		t.Fatalf("unregistered user: err = %v, want ErrEventNotFound", err)
	}

	// Unknown event is indistinguishable from unregistered.
	if _, err := svc.RegistrationReceipt(ctx, 99, 4); !errors.Is(err, ledger.ErrEventNotFound) {
		t.Fatalf("unknown event: err = %v, want ErrEventNotFound", err)
	}
}
