package handler

import (
	"go-pharmacy-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
)

type PurchaseHandler struct {
	service service.PurchaseService
}

func NewPurchaseHandler(s service.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{service: s}
}

// CreatePurchase registers a pending supplier order
// POST /api/v1/purchases
func (h *PurchaseHandler) CreatePurchase(c *fiber.Ctx) error {
	var req service.CreatePurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	purchase, err := h.service.CreatePurchase(&req, getUserID(c))
	if err != nil {
		return errorJSON(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Purchase created", "data": purchase})
}

// ReceivePurchase books the stock in, creating one batch per item
// POST /api/v1/purchases/:id/receive
func (h *PurchaseHandler) ReceivePurchase(c *fiber.Ctx) error {
	purchaseID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid purchase ID"})
	}

	purchase, err := h.service.ReceivePurchase(purchaseID, getUserID(c), getUserName(c))
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(fiber.Map{"message": "Purchase received, stock updated", "data": purchase})
}

// CancelPurchase voids a still-pending order
// POST /api/v1/purchases/:id/cancel
func (h *PurchaseHandler) CancelPurchase(c *fiber.Ctx) error {
	purchaseID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid purchase ID"})
	}

	purchase, err := h.service.CancelPurchase(purchaseID, getUserID(c))
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(fiber.Map{"message": "Purchase cancelled", "data": purchase})
}

func (h *PurchaseHandler) GetPurchases(c *fiber.Ctx) error {
	purchases, err := h.service.GetAllPurchases()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(purchases)
}

func (h *PurchaseHandler) GetPurchase(c *fiber.Ctx) error {
	purchaseID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid purchase ID"})
	}

	purchase, err := h.service.GetPurchaseByID(purchaseID)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(purchase)
}
