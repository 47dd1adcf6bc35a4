package services

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Ananth-NQI/paypark-backend/internal/apperr"
	"github.com/Ananth-NQI/paypark-backend/internal/events"
	"github.com/Ananth-NQI/paypark-backend/internal/models"
	"github.com/Ananth-NQI/paypark-backend/internal/storage"
	"github.com/Ananth-NQI/paypark-backend/internal/utils"
)

// PaymentService records simulated payments against tickets
type PaymentService struct {
	store     storage.Store
	publisher events.Publisher
	rates     models.Rates
	currency  string
	now       Clock
}

// NewPaymentService creates a new payment service
func NewPaymentService(store storage.Store, publisher events.Publisher, rates models.Rates, currency string, now Clock) *PaymentService {
	if now == nil {
		now = time.Now
	}
	if publisher == nil {
		publisher = events.LogPublisher{}
	}
	return &PaymentService{store: store, publisher: publisher, rates: rates, currency: currency, now: now}
}

// ProcessPaymentRequest settles a ticket. A missing amount means the fee due.
type ProcessPaymentRequest struct {
	TicketID         string   `json:"ticketId" validate:"required"`
	PaymentMethod    string   `json:"paymentMethod" validate:"required,paymentmethod"`
	PaymentAmount    *float64 `json:"paymentAmount" validate:"omitempty,gte=0"`
	PaymentReference string   `json:"paymentReference" validate:"max=64"`
}

type FeeQuote struct {
	TicketID  string              `json:"ticketId"`
	VehicleNo string              `json:"vehicleNo"`
	Status    models.TicketStatus `json:"status"`
	Currency  string              `json:"currency"`
	models.FeeBreakdown
}

type PaymentResult struct {
	TicketID      string               `json:"ticketId"`
	TransactionID string               `json:"transactionId"`
	Amount        float64              `json:"amount"`
	Method        models.PaymentMethod `json:"paymentMethod"`
	Status        models.PaymentStatus `json:"paymentStatus"`
	ProcessedAt   time.Time            `json:"processedAt"`
}

type Receipt struct {
	ReceiptNo       string               `json:"receiptNo"`
	TicketID        string               `json:"ticketId"`
	CustomerName    string               `json:"customerName"`
	VehicleNo       string               `json:"vehicleNo"`
	ParkingLocation string               `json:"parkingLocation"`
	InDateTime      time.Time            `json:"inDateTime"`
	OutDateTime     *time.Time           `json:"outDateTime,omitempty"`
	HoursParked     int                  `json:"hoursParked"`
	BaseRate        float64              `json:"baseRate"`
	AdditionalRate  float64              `json:"additionalHourRate"`
	AmountPaid      float64              `json:"amountPaid"`
	Currency        string               `json:"currency"`
	PaymentMethod   models.PaymentMethod `json:"paymentMethod"`
	TransactionID   string               `json:"transactionId"`
	PaidAt          time.Time            `json:"paidAt"`
	IssuedAt        time.Time            `json:"issuedAt"`
}

type PaymentStatusView struct {
	TicketID      string               `json:"ticketId"`
	TicketStatus  models.TicketStatus  `json:"ticketStatus"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	Amount        *float64             `json:"amount,omitempty"`
	TransactionID string               `json:"transactionId,omitempty"`
	ProcessedAt   *time.Time           `json:"processedAt,omitempty"`
}

// CalculateFee previews the fee of an unpaid ticket.
func (p *PaymentService) CalculateFee(ctx context.Context, ticketID string) (*FeeQuote, error) {
	ticket, err := p.find(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Payment.IsCompleted() {
		return nil, apperr.PreconditionFailed("This ticket has already been paid")
	}
	return &FeeQuote{
		TicketID:     ticket.TicketID,
		VehicleNo:    ticket.VehicleNo,
		Status:       ticket.Status,
		Currency:     p.currency,
		FeeBreakdown: ticket.Fee(p.now(), p.rates),
	}, nil
}

// ProcessPayment records a payment. It runs under the ticket's update lock so
// two concurrent payments cannot both succeed.
func (p *PaymentService) ProcessPayment(ctx context.Context, req ProcessPaymentRequest) (*PaymentResult, error) {
	req.TicketID = strings.TrimSpace(req.TicketID)
	req.PaymentReference = strings.TrimSpace(req.PaymentReference)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	updated, err := p.store.Update(ctx, req.TicketID, func(t *models.Ticket) error {
		now := p.now()
		amount := t.TotalFee(now, p.rates)
		if req.PaymentAmount != nil {
			amount = *req.PaymentAmount
		}
		return t.RecordPayment(models.PaymentMethod(req.PaymentMethod), amount, req.PaymentReference, now)
	})
	if err != nil {
		return nil, storeError(err, ticketNotFound)
	}

	logrus.WithFields(logrus.Fields{
		"ticket_id":      updated.TicketID,
		"transaction_id": updated.Payment.TransactionID,
		"amount":         *updated.Payment.Amount,
		"method":         updated.Payment.Method,
	}).Info("Payment recorded")

	event := events.New(events.PaymentCompleted, updated.TicketID, updated.VehicleNo, string(updated.Status), *updated.Payment.ProcessedAt)
	event.Amount = updated.Payment.Amount
	publish(ctx, p.publisher, event)

	return &PaymentResult{
		TicketID:      updated.TicketID,
		TransactionID: updated.Payment.TransactionID,
		Amount:        *updated.Payment.Amount,
		Method:        updated.Payment.Method,
		Status:        updated.Payment.Status,
		ProcessedAt:   *updated.Payment.ProcessedAt,
	}, nil
}

// GetReceipt renders the receipt of a paid ticket.
func (p *PaymentService) GetReceipt(ctx context.Context, ticketID string) (*Receipt, error) {
	ticket, err := p.find(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !ticket.Payment.IsCompleted() {
		return nil, apperr.PreconditionFailed("Payment not completed for this ticket")
	}

	now := p.now()
	fee := ticket.Fee(now, p.rates)
	return &Receipt{
		ReceiptNo:       utils.GenerateReceiptNo(ticket.TicketID, now),
		TicketID:        ticket.TicketID,
		CustomerName:    ticket.CustomerName,
		VehicleNo:       ticket.VehicleNo,
		ParkingLocation: ticket.ParkingLocation,
		InDateTime:      ticket.InDateTime,
		OutDateTime:     ticket.OutDateTime,
		HoursParked:     fee.HoursParked,
		BaseRate:        p.rates.BaseRate,
		AdditionalRate:  p.rates.AdditionalHourRate,
		AmountPaid:      *ticket.Payment.Amount,
		Currency:        p.currency,
		PaymentMethod:   ticket.Payment.Method,
		TransactionID:   ticket.Payment.TransactionID,
		PaidAt:          *ticket.Payment.ProcessedAt,
		IssuedAt:        now,
	}, nil
}

// GetPaymentStatus reports the payment record of a ticket.
func (p *PaymentService) GetPaymentStatus(ctx context.Context, ticketID string) (*PaymentStatusView, error) {
	ticket, err := p.find(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	status := ticket.Payment.Status
	if status == "" {
		status = models.PaymentStatusPending
	}
	return &PaymentStatusView{
		TicketID:      ticket.TicketID,
		TicketStatus:  ticket.Status,
		PaymentStatus: status,
		Amount:        ticket.Payment.Amount,
		TransactionID: ticket.Payment.TransactionID,
		ProcessedAt:   ticket.Payment.ProcessedAt,
	}, nil
}

func (p *PaymentService) find(ctx context.Context, ticketID string) (*models.Ticket, error) {
	if strings.TrimSpace(ticketID) == "" {
		return nil, apperr.InvalidInput(fieldMessages["TicketID"])
	}
	ticket, err := p.store.FindByTicketID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, ticketNotFound)
	}
	return ticket, nil
}
