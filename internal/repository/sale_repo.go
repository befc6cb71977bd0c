package repository

import (
	"go-pharmacy-inventory/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SaleRepository interface {
	FindAll() ([]model.Sale, error)
	FindByID(id uuid.UUID) (*model.Sale, error)
}

type saleRepo struct {
	db *gorm.DB
}

func NewSaleRepo(db *gorm.DB) SaleRepository {
	return &saleRepo{db}
}

func (r *saleRepo) FindAll() ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.Preload("Items").Preload("Items.Medicine").Preload("SoldByUser").
		Order("created_at DESC").
		Find(&sales).Error
	return sales, err
}

func (r *saleRepo) FindByID(id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	err := r.db.Preload("Items").Preload("Items.Medicine").Preload("Items.Batch").Preload("SoldByUser").
		First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}
