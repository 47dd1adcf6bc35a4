package services

import (
	"fmt"
	"math"
	"time"
)

// MessageTemplate is an SMS body with its placeholders documented.
type MessageTemplate struct {
	Description string
	Body        string
}

// SMSTemplates maps OTP purposes to their message. Bodies take the code and
// the validity in minutes.
var SMSTemplates = map[string]MessageTemplate{
	"dispatch": {
		Description: "OTP sent when a customer asks to collect their vehicle",
		Body:        "Your Pay Parking dispatch OTP is: %s. Valid for %d minutes. Do not share this code.",
	},
	"resend": {
		Description: "OTP sent again after the resend cooldown",
		Body:        "Your new Pay Parking dispatch OTP is: %s. Valid for %d minutes. Do not share this code.",
	},
}

// RenderOTPMessage builds the SMS body for purpose, falling back to the
// dispatch template for unknown purposes.
func RenderOTPMessage(purpose, code string, validity time.Duration) string {
	tmpl, ok := SMSTemplates[purpose]
	if !ok {
		tmpl = SMSTemplates[otpPurpose]
	}
	minutes := int(math.Ceil(validity.Minutes()))
	return fmt.Sprintf(tmpl.Body, code, minutes)
}
