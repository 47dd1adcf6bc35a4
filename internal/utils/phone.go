package utils

import (
	"regexp"
	"strings"
)

var (
	mobilePattern  = regexp.MustCompile(`^\+?[\d\s\-()]+$`)
	e164Pattern    = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	vehiclePattern = regexp.MustCompile(`^[A-Z0-9\s-]+$`)
	otpPattern     = regexp.MustCompile(`^\d{4,6}$`)
	nonDigit       = regexp.MustCompile(`\D`)
	phoneNoise     = regexp.MustCompile(`[\s\-()]`)
)

// NormalizeVehicleNo trims and upper-cases a vehicle number.
func NormalizeVehicleNo(vehicleNo string) string {
	return strings.ToUpper(strings.TrimSpace(vehicleNo))
}

// IsValidVehicleNo expects an already normalized vehicle number.
func IsValidVehicleNo(vehicleNo string) bool {
	return len(vehicleNo) >= 2 && len(vehicleNo) <= 20 && vehiclePattern.MatchString(vehicleNo)
}

// IsValidOTPFormat accepts 4 to 6 digits.
func IsValidOTPFormat(code string) bool {
	return otpPattern.MatchString(code)
}

// FormatMobileNumber strips spaces, dashes and parentheses.
func FormatMobileNumber(mobileNo string) string {
	return strings.TrimSpace(phoneNoise.ReplaceAllString(mobileNo, ""))
}

// IsValidMobileNumber checks the raw input shape and that the number holds
// 10 to 15 digits in E.164 form.
func IsValidMobileNumber(mobileNo string) bool {
	if !mobilePattern.MatchString(mobileNo) {
		return false
	}
	digits := nonDigit.ReplaceAllString(mobileNo, "")
	if len(digits) < 10 || len(digits) > 15 {
		return false
	}
	return e164Pattern.MatchString(FormatMobileNumber(mobileNo))
}

// ToE164 turns a local number into an E.164 address. Ten digit numbers get
// the default country code.
func ToE164(mobileNo, defaultCountryCode string) string {
	formatted := FormatMobileNumber(mobileNo)
	cc := strings.TrimPrefix(defaultCountryCode, "+")

	switch {
	case strings.HasPrefix(formatted, "+"):
		return formatted
	case cc != "" && strings.HasPrefix(formatted, cc) && len(formatted) > 10:
		return "+" + formatted
	case len(formatted) == 10:
		return "+" + cc + formatted
	default:
		return "+" + formatted
	}
}

// MaskMobileNumber renders <first 2 digits><stars><last 2 digits>.
// Inputs with four digits or fewer are returned unchanged.
func MaskMobileNumber(mobileNo string) string {
	if len(mobileNo) < 4 {
		return mobileNo
	}
	cleaned := nonDigit.ReplaceAllString(mobileNo, "")
	if len(cleaned) <= 4 {
		return mobileNo
	}
	return cleaned[:2] + strings.Repeat("*", len(cleaned)-4) + cleaned[len(cleaned)-2:]
}
