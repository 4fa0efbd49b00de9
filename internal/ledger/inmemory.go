package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// InMemoryRepository keeps the whole ledger in process memory. It backs
// the test suite and the no-database dev mode. Atomic is implemented by
// cloning the data set, running the callback against the clone, and
// swapping the clone in only on success — a failed operation leaves the
// original byte-for-byte untouched.
type InMemoryRepository struct {
	mu   sync.Mutex
	data *memData
}

type memData struct {
	state  LedgerState
	events map[uint64]*Event
	regs   map[uint64][]Registration
	index  map[uint64]map[uint]bool
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		data: &memData{
			state:  LedgerState{ID: 1},
			events: map[uint64]*Event{},
			regs:   map[uint64][]Registration{},
			index:  map[uint64]map[uint]bool{},
		},
	}
}

func (d *memData) clone() *memData {
	out := &memData{
		state:  d.state,
		events: make(map[uint64]*Event, len(d.events)),
		regs:   make(map[uint64][]Registration, len(d.regs)),
		index:  make(map[uint64]map[uint]bool, len(d.index)),
	}
	for id, e := range d.events {
		cp := *e
		out.events[id] = &cp
	}
	for id, regs := range d.regs {
		cp := make([]Registration, len(regs))
		copy(cp, regs)
		out.regs[id] = cp
	}
	for id, set := range d.index {
		cp := make(map[uint]bool, len(set))
		for uid := range set {
			cp[uid] = true
		}
		out.index[id] = cp
	}
	return out
}

// Atomic clones, runs, and swaps on success.
func (r *InMemoryRepository) Atomic(ctx context.Context, fn func(tx Repository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	shadow := &memTx{data: r.data.clone()}
	if err := fn(shadow); err != nil {
		return err
	}
	r.data = shadow.data
	return nil
}

func (r *InMemoryRepository) State(ctx context.Context) (*LedgerState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.data.state
	return &st, nil
}

func (r *InMemoryRepository) SaveState(ctx context.Context, st *LedgerState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data.state = *st
	return nil
}

func (r *InMemoryRepository) CreateEvent(ctx context.Context, e *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data.createEvent(e)
}

func (r *InMemoryRepository) GetEvent(ctx context.Context, id uint64) (*Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data.getEvent(id)
}

func (r *InMemoryRepository) SaveEvent(ctx context.Context, e *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data.saveEvent(e)
}

func (r *InMemoryRepository) ListEvents(ctx context.Context, limit, offset int, search string) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data.listEvents(limit, offset, search)
}

func (r *InMemoryRepository) AddRegistration(ctx context.Context, reg *Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data.addRegistration(reg)
}

func (r *InMemoryRepository) IsRegistered(ctx context.Context, eventID uint64, userID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data.index[eventID][userID], nil
}

func (r *InMemoryRepository) ListRegistrations(ctx context.Context, eventID uint64) ([]Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data.listRegistrations(eventID)
}

func (r *InMemoryRepository) CountRegistrations(ctx context.Context, eventID uint64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data.regs[eventID]), nil
}

// memTx is the unlocked transactional view handed to Atomic callbacks.
// It must never be retained past the callback.
type memTx struct {
	data *memData
}

func (t *memTx) Atomic(ctx context.Context, fn func(tx Repository) error) error {
	// Nested Atomic joins the enclosing transaction.
	return fn(t)
}

func (t *memTx) State(ctx context.Context) (*LedgerState, error) {
	st := t.data.state
	return &st, nil
}

func (t *memTx) SaveState(ctx context.Context, st *LedgerState) error {
	t.data.state = *st
	return nil
}

func (t *memTx) CreateEvent(ctx context.Context, e *Event) error {
	return t.data.createEvent(e)
}

func (t *memTx) GetEvent(ctx context.Context, id uint64) (*Event, error) {
	return t.data.getEvent(id)
}

func (t *memTx) SaveEvent(ctx context.Context, e *Event) error {
	return t.data.saveEvent(e)
}

func (t *memTx) ListEvents(ctx context.Context, limit, offset int, search string) ([]Event, error) {
	return t.data.listEvents(limit, offset, search)
}

func (t *memTx) AddRegistration(ctx context.Context, reg *Registration) error {
	return t.data.addRegistration(reg)
}

func (t *memTx) IsRegistered(ctx context.Context, eventID uint64, userID uint) (bool, error) {
	return t.data.index[eventID][userID], nil
}

func (t *memTx) ListRegistrations(ctx context.Context, eventID uint64) ([]Registration, error) {
	return t.data.listRegistrations(eventID)
}

func (t *memTx) CountRegistrations(ctx context.Context, eventID uint64) (int, error) {
	return len(t.data.regs[eventID]), nil
}

// ===========================
// shared data operations

func (d *memData) createEvent(e *Event) error {
	cp := *e
	d.events[e.ID] = &cp
	return nil
}

func (d *memData) getEvent(id uint64) (*Event, error) {
	e, ok := d.events[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (d *memData) saveEvent(e *Event) error {
	if _, ok := d.events[e.ID]; !ok {
		return ErrEventNotFound
	}
	cp := *e
	d.events[e.ID] = &cp
	return nil
}

func (d *memData) listEvents(limit, offset int, search string) ([]Event, error) {
	ids := make([]uint64, 0, len(d.events))
	for id := range d.events {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []Event
	for _, id := range ids {
		e := d.events[id]
		if search != "" && !strings.Contains(strings.ToLower(e.Name), strings.ToLower(search)) {
			continue
		}
		out = append(out, *e)
	}

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (d *memData) addRegistration(reg *Registration) error {
	if d.index[reg.EventID] == nil {
		d.index[reg.EventID] = map[uint]bool{}
	}
	d.index[reg.EventID][reg.UserID] = true
	d.regs[reg.EventID] = append(d.regs[reg.EventID], *reg)
	return nil
}

func (d *memData) listRegistrations(eventID uint64) ([]Registration, error) {
	regs := d.regs[eventID]
	out := make([]Registration, len(regs))
	copy(out, regs)
	return out, nil
}
