package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/Ananth-NQI/paypark-backend/internal/services"
	"github.com/Ananth-NQI/paypark-backend/internal/utils"
)

// SMSHandler exposes the SMS gateway to admins and to Twilio callbacks
type SMSHandler struct {
	notifier services.Notifier
}

// NewSMSHandler creates a new SMS handler
func NewSMSHandler(notifier services.Notifier) *SMSHandler {
	return &SMSHandler{notifier: notifier}
}

// Status reports whether real SMS delivery is configured.
func (h *SMSHandler) Status(c *fiber.Ctx) error {
	return respond(c, fiber.StatusOK, "", h.notifier.Status())
}

// DeliveryCallback records Twilio message status updates. The signature is
// checked by middleware before this runs.
func (h *SMSHandler) DeliveryCallback(c *fiber.Ctx) error {
	entry := logrus.WithFields(logrus.Fields{
		"sid":    c.FormValue("MessageSid"),
		"status": c.FormValue("MessageStatus"),
		"to":     utils.MaskMobileNumber(c.FormValue("To")),
	})
	if code := c.FormValue("ErrorCode"); code != "" {
		entry.WithField("error_code", code).Warn("SMS delivery failed")
	} else {
		entry.Info("SMS status update")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
