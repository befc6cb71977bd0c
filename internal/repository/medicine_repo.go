package repository

import (
	"go-pharmacy-inventory/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MedicineRepository interface {
	Create(medicine *model.Medicine) error
	FindAll() ([]model.Medicine, error)
	FindActive() ([]model.Medicine, error)
	FindByID(id uuid.UUID) (*model.Medicine, error)
	FindActiveByCode(code string) (*model.Medicine, error)
	Update(medicine *model.Medicine) error
	Deactivate(id uuid.UUID, deactivatedBy string) error
}

type medicineRepo struct {
	db *gorm.DB
}

func NewMedicineRepo(db *gorm.DB) MedicineRepository {
	return &medicineRepo{db}
}

func (r *medicineRepo) Create(medicine *model.Medicine) error {
	return r.db.Create(medicine).Error
}

func (r *medicineRepo) FindAll() ([]model.Medicine, error) {
	var medicines []model.Medicine
	err := r.db.Preload("Category").Order("name ASC").Find(&medicines).Error
	return medicines, err
}

func (r *medicineRepo) FindActive() ([]model.Medicine, error) {
	var medicines []model.Medicine
	err := r.db.Preload("Category").Where("is_active = ?", true).Order("name ASC").Find(&medicines).Error
	return medicines, err
}

func (r *medicineRepo) FindByID(id uuid.UUID) (*model.Medicine, error) {
	var medicine model.Medicine
	err := r.db.Preload("Category").First(&medicine, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &medicine, nil
}

// FindActiveByCode enforces the "code unique among active medicines" rule:
// deactivated medicines may keep their code without blocking reuse.
func (r *medicineRepo) FindActiveByCode(code string) (*model.Medicine, error) {
	var medicine model.Medicine
	err := r.db.Where("code = ? AND is_active = ?", code, true).First(&medicine).Error
	if err != nil {
		return nil, err
	}
	return &medicine, nil
}

func (r *medicineRepo) Update(medicine *model.Medicine) error {
	return r.db.Save(medicine).Error
}

func (r *medicineRepo) Deactivate(id uuid.UUID, deactivatedBy string) error {
	return r.db.Model(&model.Medicine{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_by": deactivatedBy,
		}).Error
}
