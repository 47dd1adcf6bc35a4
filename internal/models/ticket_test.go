package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/paypark-backend/internal/apperr"
)

var (
	testNow   = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	testRates = Rates{BaseRate: 5, AdditionalHourRate: 3}
)

func newTestTicket() *Ticket {
	return NewTicket(NewTicketInput{
		CustomerName: "Asha Rao",
		VehicleNo:    " mh12ab1234 ",
		MobileNo:     "9876543210",
	}, testNow, "1234", 10*time.Minute)
}

func TestNewTicket(t *testing.T) {
	tk := newTestTicket()

	assert.Regexp(t, `^TKT-\d+-\d{1,3}$`, tk.TicketID)
	assert.Equal(t, "MH12AB1234", tk.VehicleNo)
	assert.Equal(t, TicketStatusActive, tk.Status)
	assert.Equal(t, DefaultParkingLocation, tk.ParkingLocation)
	assert.Equal(t, testNow, tk.InDateTime)
	assert.Nil(t, tk.OutDateTime)
	assert.Nil(t, tk.CreatedBy)
	assert.Equal(t, PaymentStatusPending, tk.Payment.Status)
	assert.Equal(t, "1234", tk.OTP.Code)
	assert.Equal(t, testNow.Add(10*time.Minute), tk.OTP.ExpiresAt)
	assert.False(t, tk.OTP.Verified)
}

func TestIssueOTPClearsVerification(t *testing.T) {
	tk := newTestTicket()
	require.NoError(t, tk.VerifyOTP("1234", testNow, false))
	require.True(t, tk.OTP.Verified)

	later := testNow.Add(3 * time.Minute)
	tk.IssueOTP("5678", later, 10*time.Minute)

	assert.False(t, tk.OTP.Verified)
	assert.Equal(t, "5678", tk.OTP.Code)
	assert.Equal(t, later, tk.OTP.IssuedAt(10*time.Minute))
}

func TestVerifyOTP(t *testing.T) {
	tests := []struct {
		name string
		code string
		at   time.Time
		ok   bool
	}{
		{"matching code", "1234", testNow.Add(time.Minute), true},
		{"wrong code", "4321", testNow.Add(time.Minute), false},
		{"just before expiry", "1234", testNow.Add(10*time.Minute - time.Nanosecond), true},
		{"at expiry", "1234", testNow.Add(10 * time.Minute), false},
		{"after expiry", "1234", testNow.Add(11 * time.Minute), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := newTestTicket()
			err := tk.VerifyOTP(tt.code, tt.at, false)
			if tt.ok {
				require.NoError(t, err)
				assert.True(t, tk.OTP.Verified)
				return
			}
			assert.True(t, apperr.Is(err, apperr.KindOTPInvalid))
			assert.False(t, tk.OTP.Verified)
		})
	}
}

func TestVerifyOTPIsRepeatableUnlessConsumed(t *testing.T) {
	tk := newTestTicket()
	require.NoError(t, tk.VerifyOTP("1234", testNow, false))
	require.NoError(t, tk.VerifyOTP("1234", testNow.Add(time.Minute), false))

	require.NoError(t, tk.VerifyOTP("1234", testNow.Add(2*time.Minute), true))
	err := tk.VerifyOTP("1234", testNow.Add(3*time.Minute), true)
	assert.True(t, apperr.Is(err, apperr.KindOTPInvalid))
	assert.True(t, tk.OTP.Verified)
}

func TestCompleteRequiresVerification(t *testing.T) {
	tk := newTestTicket()
	err := tk.Complete(testNow.Add(time.Hour))
	assert.True(t, apperr.Is(err, apperr.KindPreconditionFailed))
	assert.Equal(t, TicketStatusActive, tk.Status)

	// the verification gate wins over the state check
	tk.Status = TicketStatusCancelled
	err = tk.Complete(testNow.Add(time.Hour))
	assert.True(t, apperr.Is(err, apperr.KindPreconditionFailed))
}

func TestCompleteTransitions(t *testing.T) {
	tk := newTestTicket()
	require.NoError(t, tk.VerifyOTP("1234", testNow, false))

	exit := testNow.Add(150 * time.Minute)
	require.NoError(t, tk.Complete(exit))
	assert.Equal(t, TicketStatusCompleted, tk.Status)
	require.NotNil(t, tk.OutDateTime)
	assert.Equal(t, exit, *tk.OutDateTime)

	err := tk.Complete(exit.Add(time.Minute))
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
	assert.Equal(t, exit, *tk.OutDateTime)
}

func TestCompleteKeepsExistingExitTime(t *testing.T) {
	tk := newTestTicket()
	require.NoError(t, tk.VerifyOTP("1234", testNow, false))
	exit := testNow.Add(time.Hour)
	tk.OutDateTime = &exit

	require.NoError(t, tk.Complete(testNow.Add(5*time.Hour)))
	assert.Equal(t, exit, *tk.OutDateTime)
}

func TestCancel(t *testing.T) {
	tk := newTestTicket()
	require.NoError(t, tk.Cancel(testNow.Add(time.Minute)))
	assert.Equal(t, TicketStatusCancelled, tk.Status)

	err := tk.Cancel(testNow.Add(2 * time.Minute))
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
}

func TestFeeUsesExitTimeWhenSet(t *testing.T) {
	tk := newTestTicket()
	assert.Equal(t, 3, tk.Fee(testNow.Add(150*time.Minute), testRates).HoursParked)

	exit := testNow.Add(30 * time.Minute)
	tk.OutDateTime = &exit
	assert.Equal(t, 1, tk.Fee(testNow.Add(150*time.Minute), testRates).HoursParked)
}

func TestRecordPayment(t *testing.T) {
	tk := newTestTicket()
	require.NoError(t, tk.RecordPayment(PaymentMethodCard, 11, "", testNow))
	assert.Equal(t, PaymentStatusCompleted, tk.Payment.Status)
	require.NotNil(t, tk.Payment.Amount)
	assert.Equal(t, 11.0, *tk.Payment.Amount)
	assert.Equal(t, "PAY-1772355600000", tk.Payment.TransactionID)

	err := tk.RecordPayment(PaymentMethodCash, 20, "again", testNow)
	assert.True(t, apperr.Is(err, apperr.KindPreconditionFailed))
	assert.Equal(t, 11.0, *tk.Payment.Amount)

	tk.MarkPaymentPending(99)
	assert.Equal(t, 11.0, *tk.Payment.Amount)
	assert.True(t, tk.Payment.IsCompleted())
}

func TestRecordPaymentValidation(t *testing.T) {
	tk := newTestTicket()
	assert.True(t, apperr.Is(tk.RecordPayment("crypto", 5, "", testNow), apperr.KindInvalidInput))
	assert.True(t, apperr.Is(tk.RecordPayment(PaymentMethodCash, -1, "", testNow), apperr.KindInvalidInput))

	require.NoError(t, tk.Cancel(testNow))
	assert.True(t, apperr.Is(tk.RecordPayment(PaymentMethodCash, 5, "", testNow), apperr.KindInvalidState))
}

func TestCloneIsDeep(t *testing.T) {
	tk := newTestTicket()
	require.NoError(t, tk.RecordPayment(PaymentMethodCash, 5, "ref", testNow))

	c := tk.Clone()
	*c.Payment.Amount = 100
	assert.Equal(t, 5.0, *tk.Payment.Amount)
}
