package ledger

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the transactional store behind the ledger. Every public
// operation runs inside Atomic: either all of its reads/writes commit, or
// none do and the prior state is restored exactly.
type Repository interface {
	// Atomic runs fn against a transactional view of the store. fn
	// returning an error discards every effect.
	Atomic(ctx context.Context, fn func(tx Repository) error) error

	State(ctx context.Context) (*LedgerState, error)
	SaveState(ctx context.Context, st *LedgerState) error

	CreateEvent(ctx context.Context, e *Event) error
	GetEvent(ctx context.Context, id uint64) (*Event, error)
	SaveEvent(ctx context.Context, e *Event) error
	ListEvents(ctx context.Context, limit, offset int, search string) ([]Event, error)

	AddRegistration(ctx context.Context, reg *Registration) error
	IsRegistered(ctx context.Context, eventID uint64, userID uint) (bool, error)
	ListRegistrations(ctx context.Context, eventID uint64) ([]Registration, error)
	CountRegistrations(ctx context.Context, eventID uint64) (int, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// ===========================
// ⚛️ Atomic — one gorm transaction per ledger operation
func (r *repository) Atomic(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}

// ===========================
// 🔢 Ledger State — single row, locked FOR UPDATE inside a transaction so
// concurrent creations/registrations serialize on id and balance updates.
func (r *repository) State(ctx context.Context) (*LedgerState, error) {
	var st LedgerState
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		st = LedgerState{ID: 1}
		if err := r.db.WithContext(ctx).Create(&st).Error; err != nil {
			return nil, err
		}
		return &st, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *repository) SaveState(ctx context.Context, st *LedgerState) error {
	return r.db.WithContext(ctx).Save(st).Error
}

// ===========================
// 🎯 Events
func (r *repository) CreateEvent(ctx context.Context, e *Event) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *repository) GetEvent(ctx context.Context, id uint64) (*Event, error) {
	var e Event
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repository) SaveEvent(ctx context.Context, e *Event) error {
	return r.db.WithContext(ctx).Save(e).Error
}

func (r *repository) ListEvents(ctx context.Context, limit, offset int, search string) ([]Event, error) {
	var events []Event

	query := r.db.WithContext(ctx).Model(&Event{})
	if search != "" {
		query = query.Where("name ILIKE ?", "%"+search+"%")
	}

	err := query.
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&events).Error
	return events, err
}

// ===========================
// 🧾 Registrations
func (r *repository) AddRegistration(ctx context.Context, reg *Registration) error {
	return r.db.WithContext(ctx).Create(reg).Error
}

func (r *repository) IsRegistered(ctx context.Context, eventID uint64, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Registration{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) ListRegistrations(ctx context.Context, eventID uint64) ([]Registration, error) {
	var regs []Registration
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("position ASC").
		Find(&regs).Error
	return regs, err
}

func (r *repository) CountRegistrations(ctx context.Context, eventID uint64) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Registration{}).
		Where("event_id = ?", eventID).
		Count(&count).Error
	return int(count), err
}
