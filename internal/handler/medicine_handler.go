package handler

import (
	"go-pharmacy-inventory/internal/model"
	"go-pharmacy-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
)

type MedicineHandler struct {
	service service.InventoryService
}

func NewMedicineHandler(s service.InventoryService) *MedicineHandler {
	return &MedicineHandler{service: s}
}

func (h *MedicineHandler) CreateMedicine(c *fiber.Ctx) error {
	var medicine model.Medicine
	if err := c.BodyParser(&medicine); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	if err := h.service.CreateMedicine(&medicine, getUserID(c)); err != nil {
		return errorJSON(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Medicine created", "data": medicine})
}

func (h *MedicineHandler) UpdateMedicine(c *fiber.Ctx) error {
	medicineID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid medicine ID"})
	}

	var medicine model.Medicine
	if err := c.BodyParser(&medicine); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	updated, err := h.service.UpdateMedicine(medicineID, &medicine, getUserID(c))
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(fiber.Map{"message": "Medicine updated", "data": updated})
}

func (h *MedicineHandler) DeactivateMedicine(c *fiber.Ctx) error {
	medicineID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid medicine ID"})
	}

	if err := h.service.DeactivateMedicine(medicineID, getUserID(c)); err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(fiber.Map{"message": "Medicine deactivated"})
}

func (h *MedicineHandler) GetMedicines(c *fiber.Ctx) error {
	medicines, err := h.service.GetAllMedicines()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(medicines)
}

func (h *MedicineHandler) GetMedicine(c *fiber.Ctx) error {
	medicineID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid medicine ID"})
	}

	medicine, err := h.service.GetMedicineByID(medicineID)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(medicine)
}

// GetMedicineStock returns the quantity-on-hand aggregation for one medicine
// GET /api/v1/medicines/:id/stock
func (h *MedicineHandler) GetMedicineStock(c *fiber.Ctx) error {
	medicineID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid medicine ID"})
	}

	stock, err := h.service.GetMedicineStock(medicineID)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(stock)
}

// GetMedicineBatches lists a medicine's batches, exhausted ones included
// GET /api/v1/medicines/:id/batches
func (h *MedicineHandler) GetMedicineBatches(c *fiber.Ctx) error {
	medicineID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid medicine ID"})
	}

	batches, err := h.service.GetBatches(medicineID)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(batches)
}

func (h *MedicineHandler) CreateSupplier(c *fiber.Ctx) error {
	var supplier model.Supplier
	if err := c.BodyParser(&supplier); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	if err := h.service.CreateSupplier(&supplier, getUserID(c)); err != nil {
		return errorJSON(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Supplier created", "data": supplier})
}

func (h *MedicineHandler) UpdateSupplier(c *fiber.Ctx) error {
	supplierID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid supplier ID"})
	}

	var supplier model.Supplier
	if err := c.BodyParser(&supplier); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	updated, err := h.service.UpdateSupplier(supplierID, &supplier, getUserID(c))
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(fiber.Map{"message": "Supplier updated", "data": updated})
}

func (h *MedicineHandler) GetSuppliers(c *fiber.Ctx) error {
	suppliers, err := h.service.GetAllSuppliers()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(suppliers)
}

func (h *MedicineHandler) CreateCategory(c *fiber.Ctx) error {
	var category model.Category
	if err := c.BodyParser(&category); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	if err := h.service.CreateCategory(&category, getUserID(c)); err != nil {
		return errorJSON(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Category created", "data": category})
}

func (h *MedicineHandler) GetCategories(c *fiber.Ctx) error {
	categories, err := h.service.GetAllCategories()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(categories)
}
