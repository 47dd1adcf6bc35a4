package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Ananth-NQI/paypark-backend/internal/apperr"
	"github.com/Ananth-NQI/paypark-backend/internal/events"
	"github.com/Ananth-NQI/paypark-backend/internal/models"
	"github.com/Ananth-NQI/paypark-backend/internal/storage"
	"github.com/Ananth-NQI/paypark-backend/internal/utils"
)

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

const noActiveTicket = "No active ticket found for this vehicle"

// storeError maps storage failures onto the error taxonomy. Domain errors
// raised inside a mutation pass through unchanged.
func storeError(err error, notFoundMsg string) error {
	var appErr *apperr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, storage.ErrNotFound):
		return apperr.NotFound(notFoundMsg)
	case errors.Is(err, storage.ErrActiveTicketExists):
		return apperr.Conflict("Vehicle already has an active parking ticket")
	case errors.Is(err, storage.ErrConcurrentUpdate):
		return apperr.Conflict("Ticket was modified concurrently, please retry")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperr.Internal(err)
	default:
		logrus.WithError(err).Error("Storage operation failed")
		return apperr.Internal(err)
	}
}

// publish sends an event and only logs failures.
func publish(ctx context.Context, publisher events.Publisher, event events.TicketEvent) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"event":     event.Type,
			"ticket_id": event.TicketID,
		}).Warn("Failed to publish ticket event")
	}
}

// TicketView is the client facing rendering of a ticket. The mobile number
// is masked.
type TicketView struct {
	TicketID        string               `json:"ticketId"`
	CustomerName    string               `json:"customerName"`
	VehicleNo       string               `json:"vehicleNo"`
	MobileNo        string               `json:"mobileNo"`
	InDateTime      time.Time            `json:"inDateTime"`
	OutDateTime     *time.Time           `json:"outDateTime,omitempty"`
	Status          models.TicketStatus  `json:"status"`
	OTPVerified     bool                 `json:"otpVerified"`
	OTPExpiry       time.Time            `json:"otpExpiry"`
	ParkingLocation string               `json:"parkingLocation"`
	CreatedBy       *string              `json:"createdBy,omitempty"`
	Payment         models.PaymentRecord `json:"payment"`
	ParkingDuration int                  `json:"parkingDuration"`
	TotalFee        float64              `json:"totalFee"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

func newTicketView(t *models.Ticket, now time.Time, rates models.Rates) *TicketView {
	fee := t.Fee(now, rates)
	return &TicketView{
		TicketID:        t.TicketID,
		CustomerName:    t.CustomerName,
		VehicleNo:       t.VehicleNo,
		MobileNo:        utils.MaskMobileNumber(t.MobileNo),
		InDateTime:      t.InDateTime,
		OutDateTime:     t.OutDateTime,
		Status:          t.Status,
		OTPVerified:     t.OTP.Verified,
		OTPExpiry:       t.OTP.ExpiresAt,
		ParkingLocation: t.ParkingLocation,
		CreatedBy:       t.CreatedBy,
		Payment:         t.Payment,
		ParkingDuration: fee.HoursParked,
		TotalFee:        t.TotalFee(now, rates),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}
