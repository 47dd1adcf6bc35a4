package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Ananth-NQI/paypark-backend/internal/models"
)

var (
	// ErrNotFound is returned when no ticket matches the lookup.
	ErrNotFound = errors.New("ticket not found")
	// ErrActiveTicketExists is returned by Create when the vehicle already
	// has an active ticket.
	ErrActiveTicketExists = errors.New("vehicle already has an active ticket")
	// ErrDuplicateTicketID is returned by Create when the generated ticket
	// id is already taken.
	ErrDuplicateTicketID = errors.New("ticket id already exists")
	// ErrConcurrentUpdate is returned when a row changed between read and write.
	ErrConcurrentUpdate = errors.New("concurrent update detected")
)

// MutateFunc changes a ticket in place. Returning an error aborts the update
// and nothing is written.
type MutateFunc func(t *models.Ticket) error

// TicketFilter narrows List. Zero values are ignored.
type TicketFilter struct {
	Status    models.TicketStatus
	VehicleNo string
	From      *time.Time
	To        *time.Time
}

// Page is 1-based.
type Page struct {
	Number int
	Limit  int
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Limit
}

// Store is the durable home of tickets. Update is the only way to modify an
// existing ticket; implementations serialize it per ticket so concurrent
// read-modify-write cycles never lose an update.
type Store interface {
	Create(ctx context.Context, t *models.Ticket) (*models.Ticket, error)
	FindByTicketID(ctx context.Context, ticketID string) (*models.Ticket, error)
	FindActiveByVehicle(ctx context.Context, vehicleNo string) (*models.Ticket, error)
	Update(ctx context.Context, ticketID string, mutate MutateFunc) (*models.Ticket, error)
	ListByMobile(ctx context.Context, mobileNo string, limit int) ([]*models.Ticket, error)
	List(ctx context.Context, filter TicketFilter, page Page) ([]*models.Ticket, int64, error)
	Ping(ctx context.Context) error
	Kind() string
}

// touch is the explicit save step shared by both stores.
func touch(t *models.Ticket, now time.Time) {
	t.UpdatedAt = now
	t.Version++
}
