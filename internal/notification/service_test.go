package notification

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

type fakeRepo struct {
	created   []InAppNotification
	listLimit int
}

func (r *fakeRepo) Create(ctx context.Context, n *InAppNotification) error {
	r.created = append(r.created, *n)
	return nil
}

func (r *fakeRepo) ListByUser(ctx context.Context, userID uint, limit int) ([]InAppNotification, error) {
	r.listLimit = limit
	return nil, nil
}

func (r *fakeRepo) MarkRead(ctx context.Context, id uint, userID uint) error { return nil }

func (r *fakeRepo) CountUnread(ctx context.Context, userID uint) (int64, error) { return 0, nil }

func TestHandleLedgerEventRouting(t *testing.T) {
	cases := []struct {
		name      string
		ev        LedgerEvent
		wantUser  uint
		wantTitle string
	}{
		{
			"event created notifies creator",
			LedgerEvent{Type: TypeEventCreated, Payload: map[string]interface{}{
				"event_id": uint64(0), "creator_id": uint(7), "name": "Summer Run",
			}},
			7, "Event created",
		},
		{
			"registration opened notifies creator",
			LedgerEvent{Type: TypeRegistrationOpened, Payload: map[string]interface{}{
				"event_id": uint64(0), "creator_id": uint(7),
			}},
			7, "Registration opened",
		},
		{
			"registration closed notifies creator",
			LedgerEvent{Type: TypeRegistrationClosed, Payload: map[string]interface{}{
				"event_id": uint64(0), "creator_id": uint(7),
			}},
			7, "Registration closed",
		},
		{
			"participant registered notifies participant",
			LedgerEvent{Type: TypeParticipantRegistered, Payload: map[string]interface{}{
				"event_id": uint64(0), "user_id": uint(3), "position": 0,
			}},
			3, "Registration confirmed",
		},
		{
			"refund issued notifies payer",
			LedgerEvent{Type: TypeRefundIssued, Payload: map[string]interface{}{
				"event_id": uint64(0), "user_id": uint(3), "excess": int64(5),
			}},
			3, "Refund issued",
		},
		{
			"funds withdrawn notifies owner",
			LedgerEvent{Type: TypeFundsWithdrawn, Payload: map[string]interface{}{
				"owner_id": uint(1), "amount": int64(10),
			}},
			1, "Funds withdrawn",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeRepo{}
			svc := NewService(repo, nil)

			if err := svc.HandleLedgerEvent(context.Background(), tc.ev); err != nil {
				t.Fatalf("HandleLedgerEvent: %v", err)
			}
			if len(repo.created) != 1 {
				t.Fatalf("created %d rows, want 1", len(repo.created))
			}
			row := repo.created[0]
			if row.UserID != tc.wantUser {
				t.Fatalf("user = %d, want %d", row.UserID, tc.wantUser)
			}
			if row.Title != tc.wantTitle {
				t.Fatalf("title = %q, want %q", row.Title, tc.wantTitle)
			}
			if row.Type != tc.ev.Type {
				t.Fatalf("type = %q, want %q", row.Type, tc.ev.Type)
			}
		})
	}
}

func TestHandleLedgerEventDropsUnknownType(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, nil)

	ev := LedgerEvent{Type: "SOMETHING_ELSE", Payload: map[string]interface{}{"user_id": uint(3)}}
	if err := svc.HandleLedgerEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleLedgerEvent: %v", err)
	}
	if len(repo.created) != 0 {
		t.Fatalf("created %d rows for unknown type, want 0", len(repo.created))
	}
}

// Events arriving through Kafka carry JSON numbers, which unmarshal as
// float64. The recipient must still resolve.
func TestHandleLedgerEventAfterJSONRoundTrip(t *testing.T) {
	original := LedgerEvent{
		Type: TypeParticipantRegistered,
		At:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Payload: map[string]interface{}{
			"event_id": uint64(2),
			"user_id":  uint(3),
			"position": 1,
		},
	}

	raw, err := json.Marshal(original)
	if err != nil {
		t.Fatal(err)
	}
	var decoded LedgerEvent
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}

	repo := &fakeRepo{}
	svc := NewService(repo, nil)
	if err := svc.HandleLedgerEvent(context.Background(), decoded); err != nil {
		t.Fatalf("HandleLedgerEvent: %v", err)
	}
	if len(repo.created) != 1 || repo.created[0].UserID != 3 {
		t.Fatalf("created = %+v, want one row for user 3", repo.created)
	}
}

func TestListByUserClampsLimit(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, nil)
	ctx := context.Background()

	if _, err := svc.ListByUser(ctx, 1, 0); err != nil {
		t.Fatal(err)
	}
	if repo.listLimit != 50 {
		t.Fatalf("limit = %d for 0, want 50", repo.listLimit)
	}

	if _, err := svc.ListByUser(ctx, 1, 500); err != nil {
		t.Fatal(err)
	}
	if repo.listLimit != 50 {
		t.Fatalf("limit = %d for 500, want 50", repo.listLimit)
	}

	if _, err := svc.ListByUser(ctx, 1, 10); err != nil {
		t.Fatal(err)
	}
	if repo.listLimit != 10 {
		t.Fatalf("limit = %d for 10, want 10", repo.listLimit)
	}
}
