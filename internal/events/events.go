// Package events publishes ticket lifecycle events for downstream consumers.
// Publishing is best effort: a failed publish never fails the request that
// triggered it.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Type string

const (
	TicketCreated    Type = "ticket.created"
	TicketDispatched Type = "ticket.dispatched"
	TicketCancelled  Type = "ticket.cancelled"
	PaymentCompleted Type = "payment.completed"
)

// TicketEvent is the JSON body sent to the broker.
type TicketEvent struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	TicketID   string    `json:"ticketId"`
	VehicleNo  string    `json:"vehicleNo"`
	Status     string    `json:"status"`
	Amount     *float64  `json:"amount,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// New stamps an event with a fresh id.
func New(typ Type, ticketID, vehicleNo, status string, at time.Time) TicketEvent {
	return TicketEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		TicketID:   ticketID,
		VehicleNo:  vehicleNo,
		Status:     status,
		OccurredAt: at.UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event TicketEvent) error
	Close() error
}

// LogPublisher only logs events. It is used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, event TicketEvent) error {
	logrus.WithFields(logrus.Fields{
		"event":     event.Type,
		"ticket_id": event.TicketID,
		"status":    event.Status,
	}).Debug("Ticket event")
	return nil
}

func (LogPublisher) Close() error { return nil }
