package model

import (
	"time"

	"github.com/google/uuid"
)

type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "PENDING"
	PurchaseReceived  PurchaseStatus = "RECEIVED"
	PurchaseCancelled PurchaseStatus = "CANCELLED"
)

// Purchase is an incoming stock order from a supplier. Receiving it creates
// one MedicineBatch per item. Amounts are in minor currency units.
type Purchase struct {
	BaseModel
	SupplierID uuid.UUID `gorm:"type:uuid;not null;index" json:"supplier_id" validate:"uuid_required"`
	Supplier   *Supplier `gorm:"foreignKey:SupplierID" json:"supplier,omitempty" validate:"-"`

	Items []PurchaseItem `gorm:"foreignKey:PurchaseID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"items"`

	InvoiceNumber string         `gorm:"type:varchar(50)" json:"invoice_number"`
	Status        PurchaseStatus `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	TotalAmount   int64          `gorm:"not null" json:"total_amount"` // sum of quantity * unit_cost
	Note          string         `json:"note"`

	ReceivedAt *time.Time `json:"received_at,omitempty"`
	ReceivedBy string     `gorm:"type:varchar(255)" json:"received_by,omitempty"`
}

type PurchaseItem struct {
	BaseModel
	PurchaseID uuid.UUID `gorm:"type:uuid;not null;index" json:"purchase_id"`
	MedicineID uuid.UUID `gorm:"type:uuid;not null;index" json:"medicine_id" validate:"uuid_required"`
	Medicine   *Medicine `gorm:"foreignKey:MedicineID" json:"medicine,omitempty" validate:"-"`

	BatchNumber  string    `gorm:"type:varchar(50)" json:"batch_number"`
	Quantity     int       `gorm:"not null" json:"quantity" validate:"required,gt=0"`
	UnitCost     int64     `gorm:"not null" json:"unit_cost" validate:"gte=0"`
	SellingPrice int64     `gorm:"not null" json:"selling_price" validate:"gte=0"`
	ExpiryDate   time.Time `gorm:"type:date;not null" json:"expiry_date" validate:"required"`

	// Set once the purchase is received and the batch exists
	BatchID *uuid.UUID `gorm:"type:uuid" json:"batch_id,omitempty"`
}
