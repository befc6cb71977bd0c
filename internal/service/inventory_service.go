package service

import (
	"errors"
	"fmt"

	"go-pharmacy-inventory/internal/model"
	"go-pharmacy-inventory/internal/repository"
	"go-pharmacy-inventory/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrCodeExists       = errors.New("medicine code already in use")
	ErrCategoryNotFound = errors.New("category not found")
)

type InventoryService interface {
	CreateMedicine(req *model.Medicine, userID string) error
	UpdateMedicine(id uuid.UUID, req *model.Medicine, userID string) (*model.Medicine, error)
	DeactivateMedicine(id uuid.UUID, userID string) error
	GetAllMedicines() ([]model.Medicine, error)
	GetMedicineByID(id uuid.UUID) (*model.Medicine, error)
	GetMedicineStock(id uuid.UUID) (*MedicineStock, error)
	GetBatches(medicineID uuid.UUID) ([]model.MedicineBatch, error)

	CreateSupplier(req *model.Supplier, userID string) error
	UpdateSupplier(id uuid.UUID, req *model.Supplier, userID string) (*model.Supplier, error)
	GetAllSuppliers() ([]model.Supplier, error)

	CreateCategory(req *model.Category, userID string) error
	GetAllCategories() ([]model.Category, error)
}

// MedicineStock is the read-side stock aggregation for one medicine
type MedicineStock struct {
	MedicineID   uuid.UUID `json:"medicine_id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	TotalStock   int       `json:"total_stock"`
	ReorderLevel int       `json:"reorder_level"`
	LowStock     bool      `json:"low_stock"`
}

type inventoryService struct {
	medicineRepo repository.MedicineRepository
	batchRepo    repository.BatchRepository
	supplierRepo repository.SupplierRepository
	categoryRepo repository.CategoryRepository
}

func NewInventoryService(
	medicineRepo repository.MedicineRepository,
	batchRepo repository.BatchRepository,
	supplierRepo repository.SupplierRepository,
	categoryRepo repository.CategoryRepository,
) InventoryService {
	return &inventoryService{
		medicineRepo: medicineRepo,
		batchRepo:    batchRepo,
		supplierRepo: supplierRepo,
		categoryRepo: categoryRepo,
	}
}

func (s *inventoryService) CreateMedicine(req *model.Medicine, userID string) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		firstErr := errs[0]
		return fmt.Errorf("validation failed: field '%s' failed on tag '%s'", firstErr.FailedField, firstErr.Tag)
	}

	// Code must be unique among active medicines
	existing, _ := s.medicineRepo.FindActiveByCode(req.Code)
	if existing != nil && existing.ID != uuid.Nil {
		return ErrCodeExists
	}

	if req.CategoryID != nil {
		if _, err := s.categoryRepo.FindByID(*req.CategoryID); err != nil {
			return ErrCategoryNotFound
		}
	}

	req.IsActive = true
	req.CreatedBy = userID
	req.UpdatedBy = userID

	return s.medicineRepo.Create(req)
}

func (s *inventoryService) UpdateMedicine(id uuid.UUID, req *model.Medicine, userID string) (*model.Medicine, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		firstErr := errs[0]
		return nil, fmt.Errorf("validation failed: field '%s' failed on tag '%s'", firstErr.FailedField, firstErr.Tag)
	}

	existing, err := s.medicineRepo.FindByID(id)
	if err != nil {
		return nil, ErrMedicineNotFound
	}

	if req.Code != existing.Code {
		other, _ := s.medicineRepo.FindActiveByCode(req.Code)
		if other != nil && other.ID != uuid.Nil && other.ID != id {
			return nil, ErrCodeExists
		}
	}

	if req.CategoryID != nil {
		if _, err := s.categoryRepo.FindByID(*req.CategoryID); err != nil {
			return nil, ErrCategoryNotFound
		}
	}

	existing.Code = req.Code
	existing.Name = req.Name
	existing.GenericName = req.GenericName
	existing.Manufacturer = req.Manufacturer
	existing.Unit = req.Unit
	existing.CategoryID = req.CategoryID
	existing.ReorderLevel = req.ReorderLevel
	existing.UpdatedBy = userID

	if err := s.medicineRepo.Update(existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// DeactivateMedicine retires a medicine from sale. Batches and history stay.
func (s *inventoryService) DeactivateMedicine(id uuid.UUID, userID string) error {
	if _, err := s.medicineRepo.FindByID(id); err != nil {
		return ErrMedicineNotFound
	}
	return s.medicineRepo.Deactivate(id, userID)
}

func (s *inventoryService) GetAllMedicines() ([]model.Medicine, error) {
	return s.medicineRepo.FindAll()
}

func (s *inventoryService) GetMedicineByID(id uuid.UUID) (*model.Medicine, error) {
	medicine, err := s.medicineRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMedicineNotFound
		}
		return nil, err
	}
	return medicine, nil
}

func (s *inventoryService) GetMedicineStock(id uuid.UUID) (*MedicineStock, error) {
	medicine, err := s.GetMedicineByID(id)
	if err != nil {
		return nil, err
	}
	total, err := s.batchRepo.TotalStock(id)
	if err != nil {
		return nil, err
	}
	return &MedicineStock{
		MedicineID:   medicine.ID,
		Code:         medicine.Code,
		Name:         medicine.Name,
		TotalStock:   total,
		ReorderLevel: medicine.ReorderLevel,
		LowStock:     total <= medicine.ReorderLevel,
	}, nil
}

func (s *inventoryService) GetBatches(medicineID uuid.UUID) ([]model.MedicineBatch, error) {
	if _, err := s.GetMedicineByID(medicineID); err != nil {
		return nil, err
	}
	return s.batchRepo.FindByMedicine(medicineID)
}

func (s *inventoryService) CreateSupplier(req *model.Supplier, userID string) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		firstErr := errs[0]
		return fmt.Errorf("validation failed: field '%s' failed on tag '%s'", firstErr.FailedField, firstErr.Tag)
	}
	req.IsActive = true
	req.CreatedBy = userID
	req.UpdatedBy = userID
	return s.supplierRepo.Create(req)
}

func (s *inventoryService) UpdateSupplier(id uuid.UUID, req *model.Supplier, userID string) (*model.Supplier, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		firstErr := errs[0]
		return nil, fmt.Errorf("validation failed: field '%s' failed on tag '%s'", firstErr.FailedField, firstErr.Tag)
	}

	existing, err := s.supplierRepo.FindByID(id)
	if err != nil {
		return nil, ErrSupplierNotFound
	}

	existing.Name = req.Name
	existing.ContactPerson = req.ContactPerson
	existing.PhoneNumber = req.PhoneNumber
	existing.Email = req.Email
	existing.Address = req.Address
	existing.IsActive = req.IsActive
	existing.UpdatedBy = userID

	if err := s.supplierRepo.Update(existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *inventoryService) GetAllSuppliers() ([]model.Supplier, error) {
	return s.supplierRepo.FindAll()
}

func (s *inventoryService) CreateCategory(req *model.Category, userID string) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		firstErr := errs[0]
		return fmt.Errorf("validation failed: field '%s' failed on tag '%s'", firstErr.FailedField, firstErr.Tag)
	}

	existing, _ := s.categoryRepo.FindByName(req.Name)
	if existing != nil && existing.ID != uuid.Nil {
		return errors.New("category already exists")
	}

	req.CreatedBy = userID
	req.UpdatedBy = userID
	return s.categoryRepo.Create(req)
}

func (s *inventoryService) GetAllCategories() ([]model.Category, error) {
	return s.categoryRepo.FindAll()
}
