package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Ananth-NQI/paypark-backend/internal/models"
	"github.com/Ananth-NQI/paypark-backend/internal/utils"
)

// MemoryStore holds all tickets in memory. Used by tests and local runs
// with USE_MEMORY_STORE=true.
type MemoryStore struct {
	mu      sync.RWMutex
	tickets map[string]*models.Ticket
	counter uint

	now func() time.Time
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tickets: make(map[string]*models.Ticket),
		now:     time.Now,
	}
}

// WithClock replaces the clock used for UpdatedAt.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

func (m *MemoryStore) Kind() string { return "memory" }

func (m *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (m *MemoryStore) Create(ctx context.Context, t *models.Ticket) (*models.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if t.Status == models.TicketStatusActive && m.activeByVehicle(t.VehicleNo) != nil {
		return nil, ErrActiveTicketExists
	}
	if _, exists := m.tickets[t.TicketID]; exists {
		return nil, ErrDuplicateTicketID
	}

	m.counter++
	stored := t.Clone()
	stored.ID = m.counter
	if stored.Version == 0 {
		stored.Version = 1
	}
	m.tickets[stored.TicketID] = stored
	return stored.Clone(), nil
}

func (m *MemoryStore) FindByTicketID(ctx context.Context, ticketID string) (*models.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tickets[ticketID]
	if !ok {
		return nil, ErrNotFound
	}
	return t.Clone(), nil
}

func (m *MemoryStore) FindActiveByVehicle(ctx context.Context, vehicleNo string) (*models.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	t := m.activeByVehicle(utils.NormalizeVehicleNo(vehicleNo))
	if t == nil {
		return nil, ErrNotFound
	}
	return t.Clone(), nil
}

// Update runs mutate on a copy under the store lock and swaps it in only
// when mutate succeeds. The map is re-keyed by the stored ticket id, never
// by ticketID, which may alias a request buffer.
func (m *MemoryStore) Update(ctx context.Context, ticketID string, mutate MutateFunc) (*models.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.tickets[ticketID]
	if !ok {
		return nil, ErrNotFound
	}

	next := current.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	if next.Status == models.TicketStatusActive && current.Status != models.TicketStatusActive {
		if other := m.activeByVehicle(next.VehicleNo); other != nil && other.TicketID != current.TicketID {
			return nil, ErrActiveTicketExists
		}
	}

	touch(next, m.now().UTC())
	m.tickets[current.TicketID] = next
	return next.Clone(), nil
}

func (m *MemoryStore) ListByMobile(ctx context.Context, mobileNo string, limit int) ([]*models.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []*models.Ticket
	for _, t := range m.tickets {
		if t.MobileNo == mobileNo {
			results = append(results, t.Clone())
		}
	}
	sortNewestFirst(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MemoryStore) List(ctx context.Context, filter TicketFilter, page Page) ([]*models.Ticket, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*models.Ticket
	for _, t := range m.tickets {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.VehicleNo != "" && t.VehicleNo != utils.NormalizeVehicleNo(filter.VehicleNo) {
			continue
		}
		if filter.From != nil && t.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && t.CreatedAt.After(*filter.To) {
			continue
		}
		matched = append(matched, t)
	}
	sortNewestFirst(matched)

	total := int64(len(matched))
	start := page.Offset()
	if start >= len(matched) {
		return []*models.Ticket{}, total, nil
	}
	end := len(matched)
	if page.Limit > 0 && start+page.Limit < end {
		end = start + page.Limit
	}

	results := make([]*models.Ticket, 0, end-start)
	for _, t := range matched[start:end] {
		results = append(results, t.Clone())
	}
	return results, total, nil
}

// activeByVehicle expects m.mu to be held.
func (m *MemoryStore) activeByVehicle(vehicleNo string) *models.Ticket {
	for _, t := range m.tickets {
		if t.VehicleNo == vehicleNo && t.Status == models.TicketStatusActive {
			return t
		}
	}
	return nil
}

func sortNewestFirst(tickets []*models.Ticket) {
	sort.Slice(tickets, func(i, j int) bool {
		if tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].ID > tickets[j].ID
		}
		return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
	})
}
