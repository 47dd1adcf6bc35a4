package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/Ananth-NQI/paypark-backend/internal/config"
	"github.com/Ananth-NQI/paypark-backend/internal/handlers"
	"github.com/Ananth-NQI/paypark-backend/internal/middleware"
	"github.com/Ananth-NQI/paypark-backend/internal/services"
	"github.com/Ananth-NQI/paypark-backend/internal/storage"
)

const Version = "1.0.0"

// Dependencies are the wired components the HTTP layer serves.
type Dependencies struct {
	Config   *config.Config
	Store    storage.Store
	Tickets  *services.TicketService
	OTP      *services.OTPService
	Payments *services.PaymentService
	Notifier services.Notifier
	// Redis is nil when no rate limiter backend is configured.
	Redis redis.Scripter
}

// NewApp builds the fiber app with the shared middleware stack and all routes.
func NewApp(deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Pay Parking Backend v" + Version,
		ErrorHandler: handlers.ErrorHandler,
		// params and body values outlive the handler in the store and events
		Immutable: true,
	})

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: deps.Config.Server.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PATCH, OPTIONS",
	}))
	app.Use(middleware.Timeout(deps.Config.Server.RequestTimeout))

	SetupRoutes(app, deps)
	return app
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, deps Dependencies) {
	cfg := deps.Config
	secret := cfg.JWT.Secret

	tickets := handlers.NewTicketHandler(deps.Tickets)
	otp := handlers.NewOTPHandler(deps.OTP)
	payments := handlers.NewPaymentHandler(deps.Payments)
	sms := handlers.NewSMSHandler(deps.Notifier)
	health := handlers.NewHealthHandler(Version, deps.Store, deps.Notifier)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Pay Parking API",
			"version": Version,
			"endpoints": fiber.Map{
				"health":  "/health",
				"tickets": "/api/tickets",
				"otp":     "/api/otp",
				"payment": "/api/payment",
			},
		})
	})
	app.Get("/health", health.Check)

	api := app.Group("/api")

	operator := []fiber.Handler{middleware.Protect(secret), middleware.RequireRole(middleware.RoleOperator, middleware.RoleAdmin)}

	t := api.Group("/tickets")
	t.Post("/", middleware.OptionalAuth(secret), tickets.CreateTicket)
	t.Get("/", append(operator, tickets.ListTickets)...)
	t.Get("/vehicle/:vehicleNo", tickets.GetByVehicle)
	t.Get("/mobile/:mobileNo", tickets.GetByMobile)
	t.Get("/:ticketId", tickets.GetTicket)
	t.Patch("/:ticketId/status", append(operator, tickets.UpdateStatus)...)
	t.Post("/:ticketId/dispatch", tickets.Dispatch)

	limiter := middleware.RateLimit(middleware.RateLimitConfig{
		Prefix: cfg.Redis.RateLimitToken,
		Limit:  cfg.Redis.OTPRateLimit,
		Window: cfg.Redis.OTPRateWindow,
	}, deps.Redis)

	o := api.Group("/otp")
	o.Post("/request", limiter, otp.Request)
	o.Post("/resend", limiter, otp.Resend)
	o.Post("/verify", limiter, otp.Verify)
	o.Get("/status/:vehicleNo", otp.Status)

	p := api.Group("/payment")
	p.Get("/calculate/:ticketId", payments.Calculate)
	p.Post("/process", payments.Process)
	p.Get("/receipt/:ticketId", payments.Receipt)
	p.Get("/status/:ticketId", payments.Status)

	s := api.Group("/sms")
	s.Get("/status", middleware.Protect(secret), middleware.RequireRole(middleware.RoleAdmin), sms.Status)
	s.Post("/callback", middleware.ValidateTwilioSignature(cfg.Twilio.AuthToken, cfg.Twilio.CallbackBaseURL), sms.DeliveryCallback)
}
