package repository

import (
	"go-pharmacy-inventory/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BatchRepository interface {
	FindByID(id uuid.UUID) (*model.MedicineBatch, error)
	FindByMedicine(medicineID uuid.UUID) ([]model.MedicineBatch, error)
	TotalStock(medicineID uuid.UUID) (int, error)
}

type batchRepo struct {
	db *gorm.DB
}

func NewBatchRepo(db *gorm.DB) BatchRepository {
	return &batchRepo{db}
}

func (r *batchRepo) FindByID(id uuid.UUID) (*model.MedicineBatch, error) {
	var batch model.MedicineBatch
	err := r.db.Preload("Medicine").Preload("Supplier").First(&batch, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// FindByMedicine lists all batches including exhausted ones, soonest expiry
// first. Exhausted batches stay visible as history.
func (r *batchRepo) FindByMedicine(medicineID uuid.UUID) ([]model.MedicineBatch, error) {
	var batches []model.MedicineBatch
	err := r.db.Preload("Supplier").
		Where("medicine_id = ?", medicineID).
		Order("expiry_date ASC, created_at ASC").
		Find(&batches).Error
	return batches, err
}

// TotalStock sums quantity-on-hand across a medicine's batches. This is a
// lock-free read: the sale path revalidates against locked rows inside its
// own transaction.
func (r *batchRepo) TotalStock(medicineID uuid.UUID) (int, error) {
	var total int
	err := r.db.Model(&model.MedicineBatch{}).
		Where("medicine_id = ?", medicineID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	return total, err
}
