package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/paypark-backend/internal/services"
)

// OTPHandler handles OTP requests for vehicle dispatch
type OTPHandler struct {
	otp *services.OTPService
}

// NewOTPHandler creates a new OTP handler
func NewOTPHandler(otp *services.OTPService) *OTPHandler {
	return &OTPHandler{otp: otp}
}

func (h *OTPHandler) Request(c *fiber.Ctx) error {
	var req services.OTPRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.otp.RequestOTP(c.UserContext(), req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, otpSentMessage(res), res)
}

func (h *OTPHandler) Resend(c *fiber.Ctx) error {
	var req services.OTPRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.otp.ResendOTP(c.UserContext(), req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, otpSentMessage(res), res)
}

func (h *OTPHandler) Verify(c *fiber.Ctx) error {
	var req services.OTPVerifyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.otp.VerifyOTP(c.UserContext(), req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "OTP verified successfully", res)
}

func (h *OTPHandler) Status(c *fiber.Ctx) error {
	res, err := h.otp.Status(c.UserContext(), c.Params("vehicleNo"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", res)
}

func otpSentMessage(res *services.OTPDispatch) string {
	if res.IsDemo {
		return "OTP generated (demo mode, no SMS sent)"
	}
	return "OTP sent to registered mobile number"
}
