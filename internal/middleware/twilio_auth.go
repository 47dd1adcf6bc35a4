package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go/client"

	"github.com/Ananth-NQI/paypark-backend/internal/apperr"
)

// ValidateTwilioSignature checks the X-Twilio-Signature header of a Twilio
// status callback. publicURL is the base URL Twilio was given, since the
// request host seen behind a proxy may differ.
func ValidateTwilioSignature(authToken, publicURL string) fiber.Handler {
	validator := client.NewRequestValidator(authToken)

	return func(c *fiber.Ctx) error {
		if authToken == "" {
			logrus.Error("TWILIO_AUTH_TOKEN not set, rejecting Twilio callback")
			return apperr.Internal(fmt.Errorf("twilio auth token not configured"))
		}

		signature := c.Get("X-Twilio-Signature")
		if signature == "" {
			return apperr.Unauthorized("Missing Twilio signature")
		}

		params := make(map[string]string)
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			params[string(key)] = string(value)
		})

		if !validator.Validate(callbackURL(c, publicURL), params, signature) {
			return apperr.Unauthorized("Invalid signature")
		}
		return c.Next()
	}
}

func callbackURL(c *fiber.Ctx, publicURL string) string {
	if publicURL != "" {
		return publicURL + c.OriginalURL()
	}
	return fmt.Sprintf("%s://%s%s", c.Protocol(), c.Hostname(), c.OriginalURL())
}
