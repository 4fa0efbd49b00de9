package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/sharath018/event-escrow-backend/internal/auth"
	"github.com/sharath018/event-escrow-backend/internal/ledger"
)

// Service renders registration receipts and participant rosters from the
// ledger's audit-trail state.
type Service struct {
	ledger *ledger.Service
	users  auth.Repository
}

func NewService(ledgerSvc *ledger.Service, users auth.Repository) *Service {
	return &Service{ledger: ledgerSvc, users: users}
}

// ===========================
// 🧾 Registration Receipt (PDF)
func (s *Service) RegistrationReceipt(ctx context.Context, eventID uint64, userID uint) ([]byte, error) {
	event, err := s.ledger.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	regs, err := s.ledger.GetParticipants(ctx, eventID)
	if err != nil {
		return nil, err
	}

	var reg *ledger.Registration
	for i := range regs {
		if regs[i].UserID == userID {
			reg = &regs[i]
			break
		}
	}
	if reg == nil {
		return nil, ledger.ErrEventNotFound
	}

	fullName := fmt.Sprintf("user %d", userID)
	if s.users != nil {
		if user, err := s.users.FindByID(userID); err == nil {
			fullName = user.FullName
		}
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 12, "Registration Receipt")
	pdf.Ln(16)

	pdf.SetFont("Arial", "", 11)
	rows := [][2]string{
		{"Receipt No", uuid.NewString()},
		{"Event", event.Name},
		{"Event ID", strconv.FormatUint(event.ID, 10)},
		{"Participant", fullName},
		{"Position", strconv.Itoa(reg.Position + 1)},
		{"Amount Paid", formatAmount(reg.AmountPaid)},
		{"Fee Retained", formatAmount(reg.FeeRetained)},
		{"Refunded", formatAmount(reg.Refunded)},
		{"Registered At", reg.CreatedAt.Format(time.RFC1123)},
		{"Deadline", event.Deadline.Format(time.RFC1123)},
	}
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(50, 8, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 8, row[1], "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

// ===========================
// 📊 Participants Roster (XLSX)
func (s *Service) ParticipantsXLSX(ctx context.Context, eventID uint64) ([]byte, error) {
	event, regs, err := s.roster(ctx, eventID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Participants"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Position", "User ID", "Name", "Email", "Amount Paid", "Fee Retained", "Refunded", "Registered At"}
	for i, head := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, head)
	}

	for row, reg := range regs {
		name, email := s.lookupUser(reg.UserID)
		values := []interface{}{
			reg.Position + 1,
			reg.UserID,
			name,
			email,
			reg.AmountPaid,
			reg.FeeRetained,
			reg.Refunded,
			reg.CreatedAt.Format(time.RFC3339),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	f.SetCellValue(sheet, "J1", "Event")
	f.SetCellValue(sheet, "K1", event.Name)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write roster: %w", err)
	}
	return buf.Bytes(), nil
}

// ===========================
// 📄 Participants Roster (CSV)
func (s *Service) ParticipantsCSV(ctx context.Context, eventID uint64) ([]byte, error) {
	_, regs, err := s.roster(ctx, eventID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	_ = w.Write([]string{"position", "user_id", "name", "email", "amount_paid", "fee_retained", "refunded", "registered_at"})
	for _, reg := range regs {
		name, email := s.lookupUser(reg.UserID)
		_ = w.Write([]string{
			strconv.Itoa(reg.Position + 1),
			strconv.FormatUint(uint64(reg.UserID), 10),
			name,
			email,
			strconv.FormatInt(reg.AmountPaid, 10),
			strconv.FormatInt(reg.FeeRetained, 10),
			strconv.FormatInt(reg.Refunded, 10),
			reg.CreatedAt.Format(time.RFC3339),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Service) roster(ctx context.Context, eventID uint64) (*ledger.Event, []ledger.Registration, error) {
	event, err := s.ledger.GetEvent(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	regs, err := s.ledger.GetParticipants(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	return event, regs, nil
}

func (s *Service) lookupUser(userID uint) (string, string) {
	if s.users == nil {
		return "", ""
	}
	user, err := s.users.FindByID(userID)
	if err != nil {
		return "", ""
	}
	return user.FullName, user.Email
}

// formatAmount renders a smallest-unit amount as rupees.
func formatAmount(paise int64) string {
	return fmt.Sprintf("₹%d.%02d", paise/100, paise%100)
}
