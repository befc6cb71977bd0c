package handler

import (
	"strconv"

	"go-pharmacy-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ReportHandler struct {
	service service.ReportService
}

func NewReportHandler(s service.ReportService) *ReportHandler {
	return &ReportHandler{service: s}
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key, strconv.Itoa(fallback)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

// GetNearExpiry lists batches expiring within the window (default from config)
// GET /api/v1/reports/near-expiry?days=30
func (h *ReportHandler) GetNearExpiry(c *fiber.Ctx) error {
	days := queryInt(c, "days", 0)

	batches, err := h.service.GetNearExpiryBatches(days)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch near-expiry batches"})
	}
	return c.JSON(fiber.Map{"count": len(batches), "data": batches})
}

// GET /api/v1/reports/expired
func (h *ReportHandler) GetExpired(c *fiber.Ctx) error {
	batches, err := h.service.GetExpiredBatches()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch expired batches"})
	}
	return c.JSON(fiber.Map{"count": len(batches), "data": batches})
}

// GET /api/v1/reports/low-stock
func (h *ReportHandler) GetLowStock(c *fiber.Ctx) error {
	rows, err := h.service.GetLowStockMedicines()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch low stock medicines"})
	}
	return c.JSON(fiber.Map{"count": len(rows), "data": rows})
}

// GET /api/v1/reports/revenue/daily?days=7
func (h *ReportHandler) GetDailyRevenue(c *fiber.Ctx) error {
	days := queryInt(c, "days", 7)

	rows, err := h.service.GetDailyRevenue(days)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch daily revenue"})
	}
	return c.JSON(fiber.Map{"period_days": days, "data": rows})
}

// GET /api/v1/reports/revenue/monthly?months=12
func (h *ReportHandler) GetMonthlyRevenue(c *fiber.Ctx) error {
	months := queryInt(c, "months", 12)

	rows, err := h.service.GetMonthlyRevenue(months)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch monthly revenue"})
	}
	return c.JSON(fiber.Map{"period_months": months, "data": rows})
}

// GET /api/v1/dashboard/stats
func (h *ReportHandler) GetDashboardStats(c *fiber.Ctx) error {
	stats, err := h.service.GetDashboardStats()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch dashboard stats"})
	}
	return c.JSON(stats)
}
