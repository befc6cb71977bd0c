package handler

import (
	"errors"

	"go-pharmacy-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Helpers to pull user info from the JWT context (set by auth middleware)
func getUserID(c *fiber.Ctx) string {
	userID := c.Locals("user_id")
	if userID == nil {
		return "system"
	}
	return userID.(string)
}

func getUserName(c *fiber.Ctx) string {
	userName := c.Locals("user_name")
	if userName == nil {
		return "Unknown"
	}
	return userName.(string)
}

func parseUUID(id string) (uuid.UUID, error) {
	return uuid.Parse(id)
}

// statusForError maps the service error taxonomy onto HTTP status codes:
// invalid input 400, missing resources 404, state conflicts (including a
// concurrency race that survived its retries) 409.
func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrEmptySale),
		errors.Is(err, service.ErrEmptyPurchase),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidDiscount),
		errors.Is(err, service.ErrInvalidExpiry):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrMedicineNotFound),
		errors.Is(err, service.ErrSaleNotFound),
		errors.Is(err, service.ErrPurchaseNotFound),
		errors.Is(err, service.ErrSupplierNotFound),
		errors.Is(err, service.ErrCategoryNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrAlreadyCancelled),
		errors.Is(err, service.ErrAlreadyReceived),
		errors.Is(err, service.ErrPurchaseCancelled),
		errors.Is(err, service.ErrConcurrencyConflict),
		errors.Is(err, service.ErrCodeExists):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func errorJSON(c *fiber.Ctx, err error) error {
	return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
}
