package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/Ananth-NQI/paypark-backend/internal/apperr"
)

// ErrorHandler renders every error returned by a handler or middleware in
// the API envelope. It is installed as the fiber app's ErrorHandler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"success": false,
			"error":   errorKindForStatus(fe.Code),
			"message": fe.Message,
		})
	}

	appErr := apperr.From(err)
	if appErr.Kind == apperr.KindInternal {
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("Unhandled error")
	}

	body := fiber.Map{
		"success": false,
		"error":   appErr.Kind,
		"message": appErr.Message,
	}
	if appErr.Kind == apperr.KindRateLimited {
		body["waitTime"] = appErr.WaitSeconds
	}
	return c.Status(apperr.HTTPStatus(appErr.Kind)).JSON(body)
}

func errorKindForStatus(status int) apperr.Kind {
	switch status {
	case fiber.StatusNotFound:
		return apperr.KindNotFound
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return apperr.KindInvalidInput
	case fiber.StatusUnauthorized:
		return apperr.KindUnauthorized
	case fiber.StatusForbidden:
		return apperr.KindForbidden
	case fiber.StatusTooManyRequests:
		return apperr.KindRateLimited
	default:
		return apperr.KindInternal
	}
}

func respond(c *fiber.Ctx, status int, message string, data any) error {
	body := fiber.Map{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	return c.Status(status).JSON(body)
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.InvalidInput("Invalid request body")
	}
	return nil
}
