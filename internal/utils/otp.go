package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateSecureOTP generates a cryptographically secure numeric OTP of the
// given length. The first digit is never zero so the code keeps its length
// when it passes through clients that treat it as a number.
func GenerateSecureOTP(length int) (string, error) {
	if length < 1 || length > 9 {
		return "", fmt.Errorf("invalid OTP length %d", length)
	}

	// Range [10^(length-1), 10^length)
	low := int64(1)
	for i := 1; i < length; i++ {
		low *= 10
	}
	span := big.NewInt(low*10 - low)

	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+low), nil
}

// GenerateTicketID returns a human readable ticket identifier of the form
// TKT-<unix millis>-<0..999>.
func GenerateTicketID(now time.Time) string {
	n, _ := rand.Int(rand.Reader, big.NewInt(1000))
	return fmt.Sprintf("TKT-%d-%d", now.UnixMilli(), n.Int64())
}

// GenerateTransactionID is used when a payment arrives without a reference.
func GenerateTransactionID(now time.Time) string {
	return fmt.Sprintf("PAY-%d", now.UnixMilli())
}

// GenerateReceiptNo builds RCP-<last 6 of ticket id>-<last 4 of unix millis>.
func GenerateReceiptNo(ticketID string, now time.Time) string {
	suffix := ticketID
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	ms := fmt.Sprintf("%d", now.UnixMilli())
	if len(ms) > 4 {
		ms = ms[len(ms)-4:]
	}
	return fmt.Sprintf("RCP-%s-%s", suffix, ms)
}
