package model

import (
	"time"

	"github.com/google/uuid"
)

// Sale is immutable once created except for the cancellation flag.
// It exclusively owns its items: they are created together and cancelled together.
// All amounts are in minor currency units.
type Sale struct {
	BaseModel
	Items []SaleItem `gorm:"foreignKey:SaleID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"items"`

	Subtotal    int64 `gorm:"not null" json:"subtotal"`     // sum of line totals
	Discount    int64 `gorm:"default:0" json:"discount"`    // absolute amount
	Tax         int64 `gorm:"default:0" json:"tax"`         // computed from configured rate
	TotalAmount int64 `gorm:"not null" json:"total_amount"` // subtotal - discount + tax

	PaymentMethod string `gorm:"type:varchar(20)" json:"payment_method"` // CASH, TRANSFER
	Note          string `json:"note"`

	Cancelled   bool       `gorm:"default:false" json:"cancelled"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy string     `gorm:"type:varchar(255)" json:"cancelled_by,omitempty"`

	// User tracking
	SoldByUserID *string `gorm:"type:varchar(255)" json:"sold_by_user_id,omitempty"`
	SoldByUser   *User   `gorm:"foreignKey:SoldByUserID;references:ID" json:"sold_by_user,omitempty"`
}

// SaleItem records one draw from one batch. A single requested line may split
// across several batches, yielding several items. UnitPrice is snapshotted
// from the batch at sale time so later price changes do not rewrite history.
type SaleItem struct {
	BaseModel
	SaleID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"sale_id"`
	MedicineID uuid.UUID      `gorm:"type:uuid;not null;index" json:"medicine_id"`
	Medicine   *Medicine      `gorm:"foreignKey:MedicineID" json:"medicine,omitempty"`
	BatchID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"batch_id"`
	Batch      *MedicineBatch `gorm:"foreignKey:BatchID" json:"batch,omitempty"`

	Quantity  int   `gorm:"not null" json:"quantity"`
	UnitPrice int64 `gorm:"not null" json:"unit_price"`
	LineTotal int64 `gorm:"not null" json:"line_total"` // quantity * unit_price
}
