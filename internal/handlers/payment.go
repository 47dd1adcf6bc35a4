package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/paypark-backend/internal/services"
)

// PaymentHandler handles simulated parking payments
type PaymentHandler struct {
	payments *services.PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

func (h *PaymentHandler) Calculate(c *fiber.Ctx) error {
	quote, err := h.payments.CalculateFee(c.UserContext(), c.Params("ticketId"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", quote)
}

func (h *PaymentHandler) Process(c *fiber.Ctx) error {
	var req services.ProcessPaymentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.payments.ProcessPayment(c.UserContext(), req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Payment processed successfully", res)
}

func (h *PaymentHandler) Receipt(c *fiber.Ctx) error {
	receipt, err := h.payments.GetReceipt(c.UserContext(), c.Params("ticketId"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", receipt)
}

func (h *PaymentHandler) Status(c *fiber.Ctx) error {
	status, err := h.payments.GetPaymentStatus(c.UserContext(), c.Params("ticketId"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", status)
}
