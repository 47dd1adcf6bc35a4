package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/Ananth-NQI/paypark-backend/internal/apperr"
)

// Logger logs every request once it has been handled. Errors returned down
// the chain are rendered later by the app's error handler, so their status
// is derived here.
func Logger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		chainErr := c.Next()

		status := c.Response().StatusCode()
		if chainErr != nil {
			status = statusOf(chainErr)
		}

		entry := logrus.WithFields(logrus.Fields{
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"duration":   time.Since(start),
			"client_ip":  c.IP(),
			"user_agent": c.Get(fiber.HeaderUserAgent),
		})

		if status >= 400 {
			entry.Error("Request failed")
		} else {
			entry.Info("Request processed")
		}
		return chainErr
	}
}

func statusOf(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return apperr.HTTPStatus(apperr.KindOf(err))
}
