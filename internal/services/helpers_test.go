package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/paypark-backend/internal/config"
	"github.com/Ananth-NQI/paypark-backend/internal/events"
	"github.com/Ananth-NQI/paypark-backend/internal/models"
	"github.com/Ananth-NQI/paypark-backend/internal/storage"
)

var entryTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingNotifier struct {
	mu    sync.Mutex
	codes []string
	fail  error
	mock  bool
}

func (n *recordingNotifier) SendOTP(_ context.Context, mobileNo, code, _ string) (*Delivery, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes = append(n.codes, code)
	if n.fail != nil {
		return nil, n.fail
	}
	return &Delivery{Delivered: true, ProviderRef: "SM-test", MockMode: n.mock, MaskedTo: "98******10"}, nil
}

func (n *recordingNotifier) IsMockMode() bool       { return n.mock }
func (n *recordingNotifier) Status() NotifierStatus { return NotifierStatus{IsMockMode: n.mock} }

func (n *recordingNotifier) lastCode() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.codes) == 0 {
		return ""
	}
	return n.codes[len(n.codes)-1]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.TicketEvent
	fail   bool
}

func (p *recordingPublisher) Publish(_ context.Context, e events.TicketEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	if p.fail {
		return errors.New("broker unavailable")
	}
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	clock     *fakeClock
	store     *storage.MemoryStore
	notifier  *recordingNotifier
	publisher *recordingPublisher
	tickets   *TicketService
	otp       *OTPService
	payments  *PaymentService
}

func testOTPConfig() config.OTPConfig {
	return config.OTPConfig{
		Length:          4,
		TTL:             10 * time.Minute,
		ResendCooldown:  time.Minute,
		DeliveryTimeout: 2 * time.Second,
	}
}

func newFixture(t *testing.T, otpCfg config.OTPConfig) *fixture {
	t.Helper()
	clock := &fakeClock{t: entryTime}
	store := storage.NewMemoryStore().WithClock(clock.Now)
	notifier := &recordingNotifier{mock: true}
	publisher := &recordingPublisher{}
	rates := models.Rates{BaseRate: 5, AdditionalHourRate: 3}

	return &fixture{
		clock:     clock,
		store:     store,
		notifier:  notifier,
		publisher: publisher,
		tickets:   NewTicketService(store, publisher, otpCfg, rates, clock.Now),
		otp:       NewOTPService(store, notifier, otpCfg, rates, clock.Now),
		payments:  NewPaymentService(store, publisher, rates, "USD", clock.Now),
	}
}

func (f *fixture) createTicket(t *testing.T, vehicleNo string) *CreatedTicket {
	t.Helper()
	created, err := f.tickets.CreateTicket(context.Background(), CreateTicketRequest{
		CustomerName: "Asha Rao",
		VehicleNo:    vehicleNo,
		MobileNo:     "9876543210",
	})
	require.NoError(t, err)
	// keeps generated ticket ids apart
	f.clock.Advance(time.Millisecond)
	return created
}

// verify requests a fresh code and verifies it.
func (f *fixture) verify(t *testing.T, vehicleNo string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.otp.RequestOTP(ctx, OTPRequest{VehicleNo: vehicleNo})
	require.NoError(t, err)
	_, err = f.otp.VerifyOTP(ctx, OTPVerifyRequest{VehicleNo: vehicleNo, Code: f.notifier.lastCode()})
	require.NoError(t, err)
}
