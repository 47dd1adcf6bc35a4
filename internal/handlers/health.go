package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/paypark-backend/internal/services"
	"github.com/Ananth-NQI/paypark-backend/internal/storage"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	Version  string
	store    storage.Store
	notifier services.Notifier
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, store storage.Store, notifier services.Notifier) *HealthHandler {
	return &HealthHandler{
		Version:  version,
		store:    store,
		notifier: notifier,
	}
}

// Check returns the health status of the service. A failed storage ping
// turns the response into a 503.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status, code := "OK", fiber.StatusOK
	storageStatus := "up"
	if err := h.store.Ping(ctx); err != nil {
		status, code = "DEGRADED", fiber.StatusServiceUnavailable
		storageStatus = "down"
	}

	smsMode := "real"
	if h.notifier.IsMockMode() {
		smsMode = "mock"
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    status,
		"service":   "Pay Parking Backend",
		"version":   h.Version,
		"timestamp": time.Now().UTC(),
		"storage":   fiber.Map{"kind": h.store.Kind(), "status": storageStatus},
		"sms":       smsMode,
	})
}
