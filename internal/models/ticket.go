package models

import (
	"time"

	"github.com/Ananth-NQI/paypark-backend/internal/apperr"
	"github.com/Ananth-NQI/paypark-backend/internal/utils"
)

type TicketStatus string

const (
	TicketStatusActive    TicketStatus = "active"
	TicketStatusCompleted TicketStatus = "completed"
	TicketStatusCancelled TicketStatus = "cancelled"
)

// Valid reports whether s is a known ticket status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusActive, TicketStatusCompleted, TicketStatusCancelled:
		return true
	}
	return false
}

const DefaultParkingLocation = "Main Parking Area"

// Ticket is a single parking session. TicketID is the public identifier;
// ID is internal to the database.
type Ticket struct {
	ID              uint          `json:"-" gorm:"primaryKey"`
	TicketID        string        `json:"ticketId" gorm:"size:40;uniqueIndex;not null"`
	CustomerName    string        `json:"customerName" gorm:"size:100;not null"`
	VehicleNo       string        `json:"vehicleNo" gorm:"size:20;not null;index:idx_tickets_vehicle_status,priority:1"`
	MobileNo        string        `json:"mobileNo" gorm:"size:24;not null;index"`
	InDateTime      time.Time     `json:"inDateTime" gorm:"not null"`
	OutDateTime     *time.Time    `json:"outDateTime,omitempty"`
	Status          TicketStatus  `json:"status" gorm:"size:16;not null;default:active;index:idx_tickets_vehicle_status,priority:2"`
	OTP             OTPRecord     `json:"-" gorm:"embedded;embeddedPrefix:otp_"`
	Payment         PaymentRecord `json:"payment" gorm:"embedded;embeddedPrefix:payment_"`
	ParkingLocation string        `json:"parkingLocation" gorm:"size:100;not null"`
	CreatedBy       *string       `json:"createdBy,omitempty" gorm:"size:64"`
	Version         int64         `json:"-" gorm:"not null;default:1"`
	CreatedAt       time.Time     `json:"createdAt" gorm:"autoCreateTime:false;index"`
	UpdatedAt       time.Time     `json:"updatedAt" gorm:"autoUpdateTime:false"`
}

// NewTicketInput carries the validated fields of a creation request.
type NewTicketInput struct {
	CustomerName    string
	VehicleNo       string
	MobileNo        string
	ParkingLocation string
	CreatedBy       string
}

// NewTicket builds an active ticket with a freshly issued OTP. All time
// dependent defaults derive from now.
func NewTicket(in NewTicketInput, now time.Time, code string, otpTTL time.Duration) *Ticket {
	location := in.ParkingLocation
	if location == "" {
		location = DefaultParkingLocation
	}

	t := &Ticket{
		TicketID:        utils.GenerateTicketID(now),
		CustomerName:    in.CustomerName,
		VehicleNo:       utils.NormalizeVehicleNo(in.VehicleNo),
		MobileNo:        in.MobileNo,
		InDateTime:      now,
		Status:          TicketStatusActive,
		Payment:         PaymentRecord{Status: PaymentStatusPending},
		ParkingLocation: location,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.CreatedBy != "" {
		createdBy := in.CreatedBy
		t.CreatedBy = &createdBy
	}
	t.IssueOTP(code, now, otpTTL)
	return t
}

// IssueOTP replaces the current code and resets its expiry. Any previous
// verification is cleared.
func (t *Ticket) IssueOTP(code string, now time.Time, ttl time.Duration) {
	t.OTP = OTPRecord{
		Code:      code,
		ExpiresAt: now.Add(ttl),
		Verified:  false,
	}
}

// VerifyOTP marks the ticket verified when code matches the current,
// unexpired OTP. With consume set the code cannot be used again.
func (t *Ticket) VerifyOTP(code string, now time.Time, consume bool) error {
	if !t.OTP.Matches(code, now) {
		return apperr.OTPInvalid("Invalid or expired OTP")
	}
	t.OTP.Verified = true
	if consume {
		t.OTP.Code = ""
	}
	return nil
}

// Complete moves an active, OTP verified ticket to completed. The
// verification gate is checked before the state.
func (t *Ticket) Complete(now time.Time) error {
	if !t.OTP.Verified {
		return apperr.PreconditionFailed("OTP must be verified before dispatching ticket")
	}
	if t.Status != TicketStatusActive {
		return apperr.InvalidState("Ticket is not active")
	}
	if t.OutDateTime == nil {
		out := now
		t.OutDateTime = &out
	}
	t.Status = TicketStatusCompleted
	return nil
}

// Cancel is the administrative exit from active.
func (t *Ticket) Cancel(now time.Time) error {
	if t.Status != TicketStatusActive {
		return apperr.InvalidState("Ticket is not active")
	}
	if t.OutDateTime == nil {
		out := now
		t.OutDateTime = &out
	}
	t.Status = TicketStatusCancelled
	return nil
}

// Fee computes the fee up to the exit time, or up to now while parked.
func (t *Ticket) Fee(now time.Time, rates Rates) FeeBreakdown {
	reference := now
	if t.OutDateTime != nil {
		reference = *t.OutDateTime
	}
	return CalculateFee(t.InDateTime, reference, rates)
}

// TotalFee is the recorded amount once the ticket is completed and paid for,
// the computed fee otherwise.
func (t *Ticket) TotalFee(now time.Time, rates Rates) float64 {
	if t.Status == TicketStatusCompleted && t.Payment.Amount != nil {
		return *t.Payment.Amount
	}
	return t.Fee(now, rates).TotalFee
}

// MarkPaymentPending records the amount due after dispatch. A completed
// payment is left untouched.
func (t *Ticket) MarkPaymentPending(amount float64) {
	if t.Payment.IsCompleted() {
		return
	}
	t.Payment.Status = PaymentStatusPending
	t.Payment.Amount = &amount
}

// RecordPayment settles the ticket. A completed payment is immutable.
func (t *Ticket) RecordPayment(method PaymentMethod, amount float64, reference string, now time.Time) error {
	if t.Payment.IsCompleted() {
		return apperr.PreconditionFailed("This ticket has already been paid")
	}
	if t.Status == TicketStatusCancelled {
		return apperr.InvalidState("Ticket has been cancelled")
	}
	if !method.Valid() {
		return apperr.InvalidInput("Payment method must be one of card, cash, digital_wallet, bank_transfer")
	}
	if amount < 0 {
		return apperr.InvalidInput("Payment amount must be a positive number")
	}
	if reference == "" {
		reference = utils.GenerateTransactionID(now)
	}

	processed := now
	t.Payment = PaymentRecord{
		Status:        PaymentStatusCompleted,
		Amount:        &amount,
		TransactionID: reference,
		Method:        method,
		ProcessedAt:   &processed,
	}
	return nil
}

// Clone returns a deep copy so callers never share pointer fields with a store.
func (t *Ticket) Clone() *Ticket {
	c := *t
	if t.OutDateTime != nil {
		out := *t.OutDateTime
		c.OutDateTime = &out
	}
	if t.CreatedBy != nil {
		by := *t.CreatedBy
		c.CreatedBy = &by
	}
	if t.Payment.Amount != nil {
		amount := *t.Payment.Amount
		c.Payment.Amount = &amount
	}
	if t.Payment.ProcessedAt != nil {
		at := *t.Payment.ProcessedAt
		c.Payment.ProcessedAt = &at
	}
	return &c
}
