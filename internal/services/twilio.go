package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/Ananth-NQI/paypark-backend/internal/apperr"
	"github.com/Ananth-NQI/paypark-backend/internal/config"
	"github.com/Ananth-NQI/paypark-backend/internal/utils"
)

// Delivery describes the outcome of sending an OTP.
type Delivery struct {
	Delivered   bool
	ProviderRef string
	MockMode    bool
	MaskedTo    string
}

// NotifierStatus is exposed on the admin SMS status endpoint.
type NotifierStatus struct {
	IsConfigured bool   `json:"isConfigured"`
	IsRealMode   bool   `json:"isRealMode"`
	IsMockMode   bool   `json:"isMockMode"`
	PhoneNumber  string `json:"phoneNumber"`
}

// Notifier delivers OTP codes to customers.
type Notifier interface {
	SendOTP(ctx context.Context, mobileNo, code, purpose string) (*Delivery, error)
	IsMockMode() bool
	Status() NotifierStatus
}

// messageCreator is the slice of the Twilio API used here.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// NewNotifier picks the Twilio gateway when credentials are present and
// valid, and the mock gateway otherwise or when mock mode is requested.
func NewNotifier(cfg config.TwilioConfig, otpTTL time.Duration) Notifier {
	switch {
	case cfg.MockMode:
		logrus.Info("Twilio mock mode enabled (set TWILIO_MOCK_MODE=false for real SMS)")
		return NewMockNotifier(cfg.DefaultCountryCode)
	case cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.PhoneNumber == "":
		logrus.Warn("Twilio credentials not found, using mock SMS mode")
		return NewMockNotifier(cfg.DefaultCountryCode)
	case !strings.HasPrefix(cfg.AccountSID, "AC") || len(cfg.AccountSID) != 34:
		logrus.Warn("Invalid Twilio Account SID format, using mock SMS mode")
		return NewMockNotifier(cfg.DefaultCountryCode)
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	logrus.Info("Twilio client initialized, real SMS mode enabled")
	return &TwilioService{
		api:         client.Api,
		from:        cfg.PhoneNumber,
		countryCode: cfg.DefaultCountryCode,
		otpTTL:      otpTTL,
	}
}

// TwilioService sends OTPs as SMS through the Twilio REST API.
type TwilioService struct {
	api         messageCreator
	from        string
	countryCode string
	otpTTL      time.Duration
}

func (t *TwilioService) IsMockMode() bool { return false }

func (t *TwilioService) Status() NotifierStatus {
	return NotifierStatus{IsConfigured: true, IsRealMode: true, PhoneNumber: t.from}
}

// SendOTP sends the code and gives up when ctx expires. The Twilio client
// has no context support, so the call runs in its own goroutine.
func (t *TwilioService) SendOTP(ctx context.Context, mobileNo, code, purpose string) (*Delivery, error) {
	if !utils.IsValidMobileNumber(mobileNo) {
		return nil, apperr.InvalidInput("Invalid mobile number format")
	}
	to := utils.ToE164(mobileNo, t.countryCode)
	masked := utils.MaskMobileNumber(to)

	// Twilio refuses to send from a number to itself. The gateway is still
	// live, so the code must not be echoed back as a demo code.
	if to == t.from {
		logrus.WithField("to", masked).Warn("Skipping SMS to the sender number")
		return &Delivery{Delivered: true, ProviderRef: mockRef(), MockMode: false, MaskedTo: masked}, nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(to)
	params.SetBody(RenderOTPMessage(purpose, code, t.otpTTL))

	type result struct {
		msg *twilioApi.ApiV2010Message
		err error
	}
	done := make(chan result, 1)
	go func() {
		msg, err := t.api.CreateMessage(params)
		done <- result{msg, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("sms delivery to %s: %w", masked, ctx.Err())
	case r := <-done:
		if r.err != nil {
			logrus.WithError(r.err).WithField("to", masked).Error("Failed to send OTP SMS")
			return nil, fmt.Errorf("sms delivery to %s: %w", masked, r.err)
		}
		if r.msg.ErrorCode != nil && *r.msg.ErrorCode != 0 {
			msg := ""
			if r.msg.ErrorMessage != nil {
				msg = *r.msg.ErrorMessage
			}
			return nil, fmt.Errorf("twilio error %d: %s", *r.msg.ErrorCode, msg)
		}

		ref := ""
		if r.msg.Sid != nil {
			ref = *r.msg.Sid
		}
		logrus.WithFields(logrus.Fields{"to": masked, "sid": ref}).Info("OTP SMS sent")
		return &Delivery{Delivered: true, ProviderRef: ref, MaskedTo: masked}, nil
	}
}

// MockNotifier never fails. The code is only logged; callers surface it as
// the demo OTP.
type MockNotifier struct {
	countryCode string
}

func NewMockNotifier(defaultCountryCode string) *MockNotifier {
	return &MockNotifier{countryCode: defaultCountryCode}
}

func (m *MockNotifier) IsMockMode() bool { return true }

func (m *MockNotifier) Status() NotifierStatus {
	return NotifierStatus{IsMockMode: true, PhoneNumber: "Mock number"}
}

func (m *MockNotifier) SendOTP(ctx context.Context, mobileNo, code, purpose string) (*Delivery, error) {
	masked := utils.MaskMobileNumber(utils.ToE164(mobileNo, m.countryCode))
	logrus.WithFields(logrus.Fields{
		"to":      masked,
		"purpose": purpose,
		"otp":     code,
	}).Info("Mock SMS: OTP not sent")
	return &Delivery{Delivered: true, ProviderRef: mockRef(), MockMode: true, MaskedTo: masked}, nil
}

func mockRef() string {
	return "mock-" + uuid.NewString()
}
