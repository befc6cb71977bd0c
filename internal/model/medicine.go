package model

import "github.com/google/uuid"

// Category groups medicines for browsing and reporting (e.g. Antibiotic, Analgesic)
type Category struct {
	BaseModel
	Name        string `gorm:"type:varchar(100);uniqueIndex;not null" json:"name" validate:"required"`
	Description string `gorm:"type:text" json:"description"`
}

type Medicine struct {
	BaseModel
	// Unique among active medicines only; a deactivated medicine frees its code
	Code         string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_medicines_active_code,where:is_active = true" json:"code" validate:"required"`
	Name         string     `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	GenericName  string     `gorm:"type:varchar(255)" json:"generic_name"`
	Manufacturer string     `gorm:"type:varchar(255)" json:"manufacturer"`
	Unit         string     `gorm:"type:varchar(20)" json:"unit"` // tablet, bottle, strip
	CategoryID   *uuid.UUID `gorm:"type:uuid;index" json:"category_id"`
	Category     *Category  `gorm:"foreignKey:CategoryID" json:"category,omitempty"`

	// A medicine at or below this total stock shows up in the low stock report
	ReorderLevel int  `gorm:"default:0" json:"reorder_level" validate:"gte=0"`
	IsActive     bool `gorm:"default:true" json:"is_active"`

	Batches []MedicineBatch `json:"batches,omitempty"`
}

type Supplier struct {
	BaseModel
	Name          string `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	ContactPerson string `gorm:"type:varchar(255)" json:"contact_person"`
	PhoneNumber   string `gorm:"type:varchar(20)" json:"phone_number"`
	Email         string `gorm:"type:varchar(255)" json:"email" validate:"omitempty,email"`
	Address       string `gorm:"type:text" json:"address"`
	IsActive      bool   `gorm:"default:true" json:"is_active"`
}
