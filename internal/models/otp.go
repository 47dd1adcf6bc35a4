package models

import "time"

// OTPRecord is the one-time code embedded in a ticket. It is stored in the
// otp_* columns of the tickets table and is never addressable on its own.
type OTPRecord struct {
	Code      string    `json:"-" gorm:"column:code;size:8;not null"`
	ExpiresAt time.Time `json:"otpExpiry" gorm:"column:expires_at;not null"`
	Verified  bool      `json:"otpVerified" gorm:"column:verified;not null;default:false"`
}

// IssuedAt derives the issuance time from the expiry and the validity window.
func (o OTPRecord) IssuedAt(ttl time.Duration) time.Time {
	return o.ExpiresAt.Add(-ttl)
}

// IsExpired reports whether the code can no longer be used at now.
func (o OTPRecord) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// Matches reports whether code is the stored code and still unexpired.
func (o OTPRecord) Matches(code string, now time.Time) bool {
	return o.Code != "" && o.Code == code && now.Before(o.ExpiresAt)
}
