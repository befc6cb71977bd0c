package handler

import (
	"go-pharmacy-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
)

type SaleHandler struct {
	service service.SaleService
}

func NewSaleHandler(s service.SaleService) *SaleHandler {
	return &SaleHandler{service: s}
}

// CreateSale records a sale with FIFO-by-expiry batch consumption
// POST /api/v1/sales
func (h *SaleHandler) CreateSale(c *fiber.Ctx) error {
	var req service.CreateSaleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	sale, err := h.service.RecordSale(&req, getUserID(c), getUserName(c))
	if err != nil {
		return errorJSON(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Sale recorded", "data": sale})
}

// CancelSale flips the cancellation flag and restores consumed stock
// POST /api/v1/sales/:id/cancel
func (h *SaleHandler) CancelSale(c *fiber.Ctx) error {
	saleID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid sale ID"})
	}

	sale, err := h.service.CancelSale(saleID, getUserID(c), getUserName(c))
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(fiber.Map{"message": "Sale cancelled, stock restored", "data": sale})
}

func (h *SaleHandler) GetSales(c *fiber.Ctx) error {
	sales, err := h.service.GetAllSales()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(sales)
}

func (h *SaleHandler) GetSale(c *fiber.Ctx) error {
	saleID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid sale ID"})
	}

	sale, err := h.service.GetSaleByID(saleID)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(sale)
}
