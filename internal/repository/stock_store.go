package repository

import (
	"errors"
	"time"

	"go-pharmacy-inventory/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStaleBatch signals a lost race on a batch row: the guarded decrement
// matched no row because another transaction changed the quantity first.
var ErrStaleBatch = errors.New("batch quantity changed concurrently")

// ErrStaleStatus signals a lost race on a state transition: the guarded
// update matched no row because another transaction applied it first.
var ErrStaleStatus = errors.New("status changed concurrently")

// StockTx is the set of operations available inside one stock transaction.
// Every multi-row read-modify-write on stock goes through this boundary so
// that validation and mutation see the same locked rows.
type StockTx interface {
	// MedicineForUpdate loads a medicine with a row lock.
	MedicineForUpdate(id uuid.UUID) (*model.Medicine, error)
	// BatchesForSale loads a medicine's consumable batches (quantity > 0)
	// with row locks, ordered FIFO-by-expiry.
	BatchesForSale(medicineID uuid.UUID) ([]model.MedicineBatch, error)
	// DecrementBatch subtracts qty, guarded so quantity can never go
	// negative. Returns ErrStaleBatch when the guard rejects the update.
	DecrementBatch(batchID uuid.UUID, qty int, updatedBy string) error
	// RestoreBatch adds qty back (sale cancellation).
	RestoreBatch(batchID uuid.UUID, qty int, updatedBy string) error
	CreateBatch(batch *model.MedicineBatch) error

	CreateSale(sale *model.Sale) error
	SaleWithItems(id uuid.UUID) (*model.Sale, error)
	MarkSaleCancelled(id uuid.UUID, cancelledBy string) error

	PurchaseWithItems(id uuid.UUID) (*model.Purchase, error)
	MarkPurchaseStatus(id uuid.UUID, status model.PurchaseStatus, updatedBy string) error
	SetPurchaseItemBatch(itemID, batchID uuid.UUID) error
}

// StockStore runs a function inside a single database transaction. If the
// function returns an error everything rolls back, including any decrements
// already applied.
type StockStore interface {
	InTx(fn func(tx StockTx) error) error
}

type gormStockStore struct {
	db *gorm.DB
}

func NewStockStore(db *gorm.DB) StockStore {
	return &gormStockStore{db}
}

func (s *gormStockStore) InTx(fn func(tx StockTx) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormStockTx{tx})
	})
}

type gormStockTx struct {
	tx *gorm.DB
}

func (t *gormStockTx) MedicineForUpdate(id uuid.UUID) (*model.Medicine, error) {
	var medicine model.Medicine
	err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&medicine, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &medicine, nil
}

func (t *gormStockTx) BatchesForSale(medicineID uuid.UUID) ([]model.MedicineBatch, error) {
	var batches []model.MedicineBatch
	err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("medicine_id = ? AND quantity > 0", medicineID).
		Order("expiry_date ASC, created_at ASC").
		Find(&batches).Error
	return batches, err
}

func (t *gormStockTx) DecrementBatch(batchID uuid.UUID, qty int, updatedBy string) error {
	res := t.tx.Model(&model.MedicineBatch{}).
		Where("id = ? AND quantity >= ?", batchID, qty).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity - ?", qty),
			"updated_by": updatedBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleBatch
	}
	return nil
}

func (t *gormStockTx) RestoreBatch(batchID uuid.UUID, qty int, updatedBy string) error {
	res := t.tx.Model(&model.MedicineBatch{}).
		Where("id = ?", batchID).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", qty),
			"updated_by": updatedBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (t *gormStockTx) CreateBatch(batch *model.MedicineBatch) error {
	return t.tx.Create(batch).Error
}

func (t *gormStockTx) CreateSale(sale *model.Sale) error {
	// Items are created in the same insert through the association
	return t.tx.Create(sale).Error
}

func (t *gormStockTx) SaleWithItems(id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// MarkSaleCancelled flips the flag only if the sale is not cancelled yet, so
// a cancellation can never be applied twice.
func (t *gormStockTx) MarkSaleCancelled(id uuid.UUID, cancelledBy string) error {
	now := time.Now()
	res := t.tx.Model(&model.Sale{}).
		Where("id = ? AND cancelled = ?", id, false).
		Updates(map[string]interface{}{
			"cancelled":    true,
			"cancelled_at": now,
			"cancelled_by": cancelledBy,
			"updated_by":   cancelledBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (t *gormStockTx) PurchaseWithItems(id uuid.UUID) (*model.Purchase, error) {
	var purchase model.Purchase
	err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		First(&purchase, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

// MarkPurchaseStatus applies a transition out of PENDING exactly once.
func (t *gormStockTx) MarkPurchaseStatus(id uuid.UUID, status model.PurchaseStatus, updatedBy string) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_by": updatedBy,
	}
	if status == model.PurchaseReceived {
		updates["received_at"] = time.Now()
		updates["received_by"] = updatedBy
	}
	res := t.tx.Model(&model.Purchase{}).
		Where("id = ? AND status = ?", id, model.PurchasePending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (t *gormStockTx) SetPurchaseItemBatch(itemID, batchID uuid.UUID) error {
	return t.tx.Model(&model.PurchaseItem{}).
		Where("id = ?", itemID).
		Update("batch_id", batchID).Error
}
