package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/Ananth-NQI/paypark-backend/internal/apperr"
	"github.com/Ananth-NQI/paypark-backend/internal/config"
)

type fakeTwilioAPI struct {
	params *twilioApi.CreateMessageParams
	sid    string
	err    error
	delay  time.Duration
}

func (f *fakeTwilioAPI) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &twilioApi.ApiV2010Message{Sid: &f.sid}, nil
}

func TestNewNotifierModeSelection(t *testing.T) {
	valid := config.TwilioConfig{
		AccountSID:  "AC" + "0123456789abcdef0123456789abcdef",
		AuthToken:   "token",
		PhoneNumber: "+15005550006",
	}

	tests := []struct {
		name string
		cfg  func() config.TwilioConfig
		mock bool
	}{
		{"explicit mock mode", func() config.TwilioConfig { c := valid; c.MockMode = true; return c }, true},
		{"missing credentials", func() config.TwilioConfig { return config.TwilioConfig{} }, true},
		{"malformed sid", func() config.TwilioConfig { c := valid; c.AccountSID = "AC_YOUR_ACCOUNT_SID_HERE"; return c }, true},
		{"valid credentials", func() config.TwilioConfig { return valid }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNotifier(tt.cfg(), 10*time.Minute)
			assert.Equal(t, tt.mock, n.IsMockMode())
			assert.Equal(t, tt.mock, n.Status().IsMockMode)
		})
	}
}

func TestMockNotifierNeverFails(t *testing.T) {
	d, err := NewMockNotifier("+91").SendOTP(context.Background(), "9876543210", "1234", "dispatch")
	require.NoError(t, err)
	assert.True(t, d.Delivered)
	assert.True(t, d.MockMode)
	assert.Contains(t, d.ProviderRef, "mock-")
	assert.Equal(t, "91********10", d.MaskedTo)
}

func TestTwilioServiceSendOTP(t *testing.T) {
	api := &fakeTwilioAPI{sid: "SM123"}
	svc := &TwilioService{api: api, from: "+15005550006", countryCode: "+91", otpTTL: 10 * time.Minute}

	d, err := svc.SendOTP(context.Background(), "9876543210", "4821", "dispatch")
	require.NoError(t, err)
	assert.Equal(t, "SM123", d.ProviderRef)
	assert.False(t, d.MockMode)
	require.NotNil(t, api.params)
	assert.Equal(t, "+919876543210", *api.params.To)
	assert.Equal(t, RenderOTPMessage("dispatch", "4821", 10*time.Minute), *api.params.Body)
}

func TestTwilioServiceSendOTPFailures(t *testing.T) {
	svc := &TwilioService{api: &fakeTwilioAPI{err: errors.New("20003 authenticate")}, from: "+15005550006", countryCode: "+91"}
	_, err := svc.SendOTP(context.Background(), "9876543210", "4821", "dispatch")
	assert.Error(t, err)

	_, err = svc.SendOTP(context.Background(), "12", "4821", "dispatch")
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
}

func TestTwilioServiceSendOTPTimeout(t *testing.T) {
	svc := &TwilioService{api: &fakeTwilioAPI{sid: "SM1", delay: 200 * time.Millisecond}, from: "+15005550006", countryCode: "+91"}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := svc.SendOTP(ctx, "9876543210", "4821", "dispatch")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTwilioServiceSelfSendSkipsProvider(t *testing.T) {
	api := &fakeTwilioAPI{sid: "SM1"}
	svc := &TwilioService{api: api, from: "+919876543210", countryCode: "+91"}

	d, err := svc.SendOTP(context.Background(), "9876543210", "4821", "dispatch")
	require.NoError(t, err)
	assert.True(t, d.Delivered)
	assert.False(t, d.MockMode)
	assert.Nil(t, api.params)
}
