package repository

import (
	"go-pharmacy-inventory/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PurchaseRepository interface {
	Create(purchase *model.Purchase) error
	FindAll() ([]model.Purchase, error)
	FindByID(id uuid.UUID) (*model.Purchase, error)
}

type purchaseRepo struct {
	db *gorm.DB
}

func NewPurchaseRepo(db *gorm.DB) PurchaseRepository {
	return &purchaseRepo{db}
}

func (r *purchaseRepo) Create(purchase *model.Purchase) error {
	return r.db.Create(purchase).Error
}

func (r *purchaseRepo) FindAll() ([]model.Purchase, error) {
	var purchases []model.Purchase
	err := r.db.Preload("Supplier").Preload("Items").Preload("Items.Medicine").
		Order("created_at DESC").
		Find(&purchases).Error
	return purchases, err
}

func (r *purchaseRepo) FindByID(id uuid.UUID) (*model.Purchase, error) {
	var purchase model.Purchase
	err := r.db.Preload("Supplier").Preload("Items").Preload("Items.Medicine").
		First(&purchase, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}
