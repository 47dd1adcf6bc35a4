package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Ananth-NQI/paypark-backend/internal/apperr"
	"github.com/Ananth-NQI/paypark-backend/internal/models"
	"github.com/Ananth-NQI/paypark-backend/internal/utils"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("vehicleno", func(fl validator.FieldLevel) bool {
		return utils.IsValidVehicleNo(utils.NormalizeVehicleNo(fl.Field().String()))
	})
	_ = v.RegisterValidation("mobileno", func(fl validator.FieldLevel) bool {
		return utils.IsValidMobileNumber(fl.Field().String())
	})
	_ = v.RegisterValidation("otpcode", func(fl validator.FieldLevel) bool {
		return utils.IsValidOTPFormat(strings.TrimSpace(fl.Field().String()))
	})
	_ = v.RegisterValidation("ticketstatus", func(fl validator.FieldLevel) bool {
		return models.TicketStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("paymentmethod", func(fl validator.FieldLevel) bool {
		return models.PaymentMethod(fl.Field().String()).Valid()
	})
	return v
}

var fieldMessages = map[string]string{
	"CustomerName":    "Customer name must be between 2 and 100 characters",
	"VehicleNo":       "Please provide a valid vehicle number",
	"MobileNo":        "Please provide a valid mobile number",
	"ParkingLocation": "Parking location cannot exceed 100 characters",
	"Code":            "OTP must be 4-6 digits",
	"Status":          "Status must be active, completed, or cancelled",
	"TicketID":        "Ticket ID is required",
	"PaymentMethod":   "Payment method must be one of card, cash, digital_wallet, bank_transfer",
	"PaymentAmount":   "Payment amount must be a positive number",
}

// validateRequest turns the first validation failure into an invalid_input error.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.InvalidInput("Invalid request")
	}
	field := fieldErrs[0].Field()
	if msg, ok := fieldMessages[field]; ok {
		return apperr.InvalidInput(msg)
	}
	return apperr.InvalidInput(fmt.Sprintf("Invalid value for %s", field))
}

func validateVehicleNo(vehicleNo string) (string, error) {
	normalized := utils.NormalizeVehicleNo(vehicleNo)
	if !utils.IsValidVehicleNo(normalized) {
		return "", apperr.InvalidInput(fieldMessages["VehicleNo"])
	}
	return normalized, nil
}
