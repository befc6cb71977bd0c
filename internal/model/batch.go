package model

import (
	"time"

	"github.com/google/uuid"
)

// MedicineBatch is a received lot of a medicine with its own expiry date and
// quantity on hand. A batch with quantity 0 is exhausted but kept as a
// historical record, never deleted. Prices are in minor currency units.
type MedicineBatch struct {
	BaseModel
	MedicineID uuid.UUID `gorm:"type:uuid;not null;index" json:"medicine_id" validate:"uuid_required"`
	Medicine   *Medicine `gorm:"foreignKey:MedicineID" json:"medicine,omitempty" validate:"-"`
	SupplierID uuid.UUID `gorm:"type:uuid;not null;index" json:"supplier_id" validate:"uuid_required"`
	Supplier   *Supplier `gorm:"foreignKey:SupplierID" json:"supplier,omitempty" validate:"-"`

	BatchNumber   string    `gorm:"type:varchar(50)" json:"batch_number"`
	Quantity      int       `gorm:"not null;default:0" json:"quantity" validate:"gte=0"`
	PurchasePrice int64     `gorm:"not null" json:"purchase_price" validate:"gte=0"`
	SellingPrice  int64     `gorm:"not null" json:"selling_price" validate:"gte=0"`
	ExpiryDate    time.Time `gorm:"type:date;not null;index" json:"expiry_date" validate:"required"`
}

// IsExpired reports whether the batch has passed its expiry date.
func (b *MedicineBatch) IsExpired(now time.Time) bool {
	return b.ExpiryDate.Before(now)
}
