package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Ananth-NQI/paypark-backend/internal/apperr"
	"github.com/Ananth-NQI/paypark-backend/internal/config"
	"github.com/Ananth-NQI/paypark-backend/internal/models"
	"github.com/Ananth-NQI/paypark-backend/internal/storage"
	"github.com/Ananth-NQI/paypark-backend/internal/utils"
)

const (
	otpPurpose    = "dispatch"
	resendPurpose = "resend"
)

// OTPService issues, delivers and verifies the dispatch code of a ticket.
type OTPService struct {
	store    storage.Store
	notifier Notifier
	cfg      config.OTPConfig
	rates    models.Rates
	now      Clock
}

// NewOTPService creates a new OTP service
func NewOTPService(store storage.Store, notifier Notifier, cfg config.OTPConfig, rates models.Rates, now Clock) *OTPService {
	if now == nil {
		now = time.Now
	}
	return &OTPService{store: store, notifier: notifier, cfg: cfg, rates: rates, now: now}
}

type OTPRequest struct {
	VehicleNo string `json:"vehicleNo" validate:"required,vehicleno"`
}

type OTPVerifyRequest struct {
	VehicleNo string `json:"vehicleNo" validate:"required,vehicleno"`
	Code      string `json:"otp" validate:"required,otpcode"`
}

// OTPDispatch is returned after a code has been handed to the notifier.
// DemoOTP is only set when no real SMS was sent.
type OTPDispatch struct {
	TicketID  string    `json:"ticketId"`
	MobileNo  string    `json:"mobileNo"`
	OTPExpiry time.Time `json:"otpExpiry"`
	IsDemo    bool      `json:"isDemo"`
	DemoOTP   string    `json:"demoOtp,omitempty"`
}

type OTPVerification struct {
	TicketID        string  `json:"ticketId"`
	VehicleNo       string  `json:"vehicleNo"`
	CustomerName    string  `json:"customerName"`
	ParkingDuration int     `json:"parkingDuration"`
	TotalFee        float64 `json:"totalFee"`
	OTPVerified     bool    `json:"otpVerified"`
}

type OTPStatus struct {
	HasActiveOTP bool      `json:"hasActiveOTP"`
	OTPVerified  bool      `json:"otpVerified"`
	OTPExpiry    time.Time `json:"otpExpiry"`
	IsExpired    bool      `json:"isExpired"`
	TicketID     string    `json:"ticketId"`
}

// RequestOTP issues a fresh code for the active ticket of a vehicle and
// delivers it. A failed delivery leaves the new code stored.
func (s *OTPService) RequestOTP(ctx context.Context, req OTPRequest) (*OTPDispatch, error) {
	return s.issueAndSend(ctx, req, false)
}

// ResendOTP is RequestOTP subject to the resend cooldown.
func (s *OTPService) ResendOTP(ctx context.Context, req OTPRequest) (*OTPDispatch, error) {
	return s.issueAndSend(ctx, req, true)
}

func (s *OTPService) issueAndSend(ctx context.Context, req OTPRequest, resend bool) (*OTPDispatch, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	ticket, err := s.activeTicket(ctx, req.VehicleNo)
	if err != nil {
		return nil, err
	}

	code, err := utils.GenerateSecureOTP(s.cfg.Length)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("generate otp: %w", err))
	}

	updated, err := s.store.Update(ctx, ticket.TicketID, func(t *models.Ticket) error {
		if t.Status != models.TicketStatusActive {
			return apperr.NotFound(noActiveTicket)
		}
		now := s.now()
		if resend {
			if wait := s.cooldownRemaining(t, now); wait > 0 {
				return apperr.RateLimited(
					fmt.Sprintf("Please wait %d seconds before requesting another OTP", wait), wait)
			}
		}
		t.IssueOTP(code, now, s.cfg.TTL)
		return nil
	})
	if err != nil {
		return nil, storeError(err, noActiveTicket)
	}

	purpose := otpPurpose
	if resend {
		purpose = resendPurpose
	}
	delivery, err := s.deliver(ctx, updated.MobileNo, code, purpose)
	if err != nil {
		logrus.WithError(err).WithField("ticket_id", updated.TicketID).Error("OTP delivery failed")
		return nil, apperr.DeliveryFailed(err)
	}

	result := &OTPDispatch{
		TicketID:  updated.TicketID,
		MobileNo:  delivery.MaskedTo,
		OTPExpiry: updated.OTP.ExpiresAt,
		IsDemo:    delivery.MockMode,
	}
	if delivery.MockMode {
		result.DemoOTP = code
	}
	return result, nil
}

func (s *OTPService) deliver(ctx context.Context, mobileNo, code, purpose string) (*Delivery, error) {
	if s.cfg.DeliveryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.DeliveryTimeout)
		defer cancel()
	}
	return s.notifier.SendOTP(ctx, mobileNo, code, purpose)
}

// cooldownRemaining returns whole seconds left before another code may be
// issued, rounded up.
func (s *OTPService) cooldownRemaining(t *models.Ticket, now time.Time) int {
	elapsed := now.Sub(t.OTP.IssuedAt(s.cfg.TTL))
	if elapsed >= s.cfg.ResendCooldown {
		return 0
	}
	return int(math.Ceil((s.cfg.ResendCooldown - elapsed).Seconds()))
}

// VerifyOTP marks the active ticket verified and previews the fee owed.
func (s *OTPService) VerifyOTP(ctx context.Context, req OTPVerifyRequest) (*OTPVerification, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	ticket, err := s.activeTicket(ctx, req.VehicleNo)
	if err != nil {
		return nil, err
	}

	code := strings.TrimSpace(req.Code)
	var now time.Time
	updated, err := s.store.Update(ctx, ticket.TicketID, func(t *models.Ticket) error {
		if t.Status != models.TicketStatusActive {
			return apperr.NotFound(noActiveTicket)
		}
		now = s.now()
		return t.VerifyOTP(code, now, s.cfg.SingleUse)
	})
	if err != nil {
		return nil, storeError(err, noActiveTicket)
	}

	fee := updated.Fee(now, s.rates)
	logrus.WithField("ticket_id", updated.TicketID).Info("OTP verified")
	return &OTPVerification{
		TicketID:        updated.TicketID,
		VehicleNo:       updated.VehicleNo,
		CustomerName:    updated.CustomerName,
		ParkingDuration: fee.HoursParked,
		TotalFee:        fee.TotalFee,
		OTPVerified:     updated.OTP.Verified,
	}, nil
}

// Status reports the OTP state of the active ticket of a vehicle.
func (s *OTPService) Status(ctx context.Context, vehicleNo string) (*OTPStatus, error) {
	ticket, err := s.activeTicket(ctx, vehicleNo)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return &OTPStatus{
		HasActiveOTP: ticket.OTP.Code != "" && !ticket.OTP.IsExpired(now),
		OTPVerified:  ticket.OTP.Verified,
		OTPExpiry:    ticket.OTP.ExpiresAt,
		IsExpired:    ticket.OTP.IsExpired(now),
		TicketID:     ticket.TicketID,
	}, nil
}

func (s *OTPService) activeTicket(ctx context.Context, vehicleNo string) (*models.Ticket, error) {
	normalized, err := validateVehicleNo(vehicleNo)
	if err != nil {
		return nil, err
	}
	ticket, err := s.store.FindActiveByVehicle(ctx, normalized)
	if err != nil {
		return nil, storeError(err, noActiveTicket)
	}
	return ticket, nil
}
