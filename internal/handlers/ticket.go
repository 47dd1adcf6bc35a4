package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/paypark-backend/internal/middleware"
	"github.com/Ananth-NQI/paypark-backend/internal/services"
)

// TicketHandler handles parking ticket requests
type TicketHandler struct {
	tickets *services.TicketService
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(tickets *services.TicketService) *TicketHandler {
	return &TicketHandler{tickets: tickets}
}

// CreateTicket opens a parking session. An operator token, when present,
// records who issued the ticket.
func (h *TicketHandler) CreateTicket(c *fiber.Ctx) error {
	var req services.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if claims, ok := middleware.Operator(c); ok {
		req.CreatedBy = claims.Subject
	}

	created, err := h.tickets.CreateTicket(c.UserContext(), req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "Parking ticket created successfully", created)
}

// ListTickets is the operator listing with filters and pagination.
func (h *TicketHandler) ListTickets(c *fiber.Ctx) error {
	list, err := h.tickets.ListTickets(c.UserContext(), services.ListTicketsQuery{
		Page:      c.QueryInt("page", 1),
		Limit:     c.QueryInt("limit", 20),
		Status:    c.Query("status"),
		VehicleNo: c.Query("vehicleNo"),
		FromDate:  c.Query("fromDate"),
		ToDate:    c.Query("toDate"),
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", list)
}

func (h *TicketHandler) GetByVehicle(c *fiber.Ctx) error {
	view, err := h.tickets.GetActiveByVehicle(c.UserContext(), c.Params("vehicleNo"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", view)
}

func (h *TicketHandler) GetByMobile(c *fiber.Ctx) error {
	views, err := h.tickets.ListByMobile(c.UserContext(), c.Params("mobileNo"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", views)
}

func (h *TicketHandler) GetTicket(c *fiber.Ctx) error {
	view, err := h.tickets.GetByTicketID(c.UserContext(), c.Params("ticketId"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", view)
}

// UpdateStatus handles the operator status override
func (h *TicketHandler) UpdateStatus(c *fiber.Ctx) error {
	var req services.UpdateStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	view, err := h.tickets.UpdateStatus(c.UserContext(), c.Params("ticketId"), req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Ticket status updated successfully", view)
}

// Dispatch releases a vehicle whose OTP has been verified
func (h *TicketHandler) Dispatch(c *fiber.Ctx) error {
	result, err := h.tickets.DispatchTicket(c.UserContext(), c.Params("ticketId"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Vehicle dispatched successfully", result)
}
