package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-pharmacy-inventory/internal/model"
	"go-pharmacy-inventory/internal/repository"
	"go-pharmacy-inventory/internal/ws"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrEmptyPurchase     = errors.New("purchase has no items")
	ErrPurchaseNotFound  = errors.New("purchase not found")
	ErrSupplierNotFound  = errors.New("supplier not found")
	ErrAlreadyReceived   = errors.New("purchase already received")
	ErrPurchaseCancelled = errors.New("purchase is cancelled")
	ErrInvalidExpiry     = errors.New("invalid expiry date, use YYYY-MM-DD")
)

type PurchaseItemRequest struct {
	MedicineID   uuid.UUID `json:"medicine_id"`
	Quantity     int       `json:"quantity"`
	UnitCost     int64     `json:"unit_cost"`
	SellingPrice int64     `json:"selling_price"`
	BatchNumber  string    `json:"batch_number"`
	ExpiryDate   string    `json:"expiry_date"` // Format: YYYY-MM-DD
}

type CreatePurchaseRequest struct {
	SupplierID    uuid.UUID             `json:"supplier_id"`
	InvoiceNumber string                `json:"invoice_number"`
	Note          string                `json:"note"`
	Items         []PurchaseItemRequest `json:"items"`
}

type PurchaseService interface {
	CreatePurchase(req *CreatePurchaseRequest, userID string) (*model.Purchase, error)
	ReceivePurchase(id uuid.UUID, userID, userName string) (*model.Purchase, error)
	CancelPurchase(id uuid.UUID, userID string) (*model.Purchase, error)
	GetAllPurchases() ([]model.Purchase, error)
	GetPurchaseByID(id uuid.UUID) (*model.Purchase, error)
}

type purchaseService struct {
	purchaseRepo repository.PurchaseRepository
	medicineRepo repository.MedicineRepository
	supplierRepo repository.SupplierRepository
	store        repository.StockStore
	wsHub        *ws.Hub
}

func NewPurchaseService(
	purchaseRepo repository.PurchaseRepository,
	medicineRepo repository.MedicineRepository,
	supplierRepo repository.SupplierRepository,
	store repository.StockStore,
	hub *ws.Hub,
) PurchaseService {
	return &purchaseService{
		purchaseRepo: purchaseRepo,
		medicineRepo: medicineRepo,
		supplierRepo: supplierRepo,
		store:        store,
		wsHub:        hub,
	}
}

func (s *purchaseService) CreatePurchase(req *CreatePurchaseRequest, userID string) (*model.Purchase, error) {
	if req == nil || len(req.Items) == 0 {
		return nil, ErrEmptyPurchase
	}

	// 1. Supplier must exist and be active
	supplier, err := s.supplierRepo.FindByID(req.SupplierID)
	if err != nil || !supplier.IsActive {
		return nil, ErrSupplierNotFound
	}

	// 2. Validate items
	var items []model.PurchaseItem
	var total int64
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if _, err := s.medicineRepo.FindByID(line.MedicineID); err != nil {
			return nil, ErrMedicineNotFound
		}
		expiry, err := time.Parse("2006-01-02", line.ExpiryDate)
		if err != nil {
			return nil, ErrInvalidExpiry
		}

		item := model.PurchaseItem{
			MedicineID:   line.MedicineID,
			BatchNumber:  line.BatchNumber,
			Quantity:     line.Quantity,
			UnitCost:     line.UnitCost,
			SellingPrice: line.SellingPrice,
			ExpiryDate:   expiry,
		}
		item.CreatedBy = userID
		item.UpdatedBy = userID
		items = append(items, item)
		total += int64(line.Quantity) * line.UnitCost
	}

	// 3. Persist as PENDING; stock only moves on receipt
	purchase := &model.Purchase{
		SupplierID:    req.SupplierID,
		InvoiceNumber: req.InvoiceNumber,
		Status:        model.PurchasePending,
		TotalAmount:   total,
		Note:          req.Note,
		Items:         items,
	}
	purchase.CreatedBy = userID
	purchase.UpdatedBy = userID

	if err := s.purchaseRepo.Create(purchase); err != nil {
		return nil, err
	}
	return purchase, nil
}

// ReceivePurchase transitions PENDING -> RECEIVED exactly once and creates
// one batch per item, atomically with the status change.
func (s *purchaseService) ReceivePurchase(id uuid.UUID, userID, userName string) (*model.Purchase, error) {
	var received *model.Purchase

	err := s.store.InTx(func(tx repository.StockTx) error {
		purchase, err := tx.PurchaseWithItems(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPurchaseNotFound
			}
			return err
		}
		switch purchase.Status {
		case model.PurchaseReceived:
			return ErrAlreadyReceived
		case model.PurchaseCancelled:
			return ErrPurchaseCancelled
		}

		// Guarded transition first: a receipt that lost the race to another
		// transaction creates no batches.
		if err := tx.MarkPurchaseStatus(id, model.PurchaseReceived, userID); err != nil {
			if errors.Is(err, repository.ErrStaleStatus) {
				return ErrAlreadyReceived
			}
			return err
		}

		for i := range purchase.Items {
			item := &purchase.Items[i]
			batch := &model.MedicineBatch{
				MedicineID:    item.MedicineID,
				SupplierID:    purchase.SupplierID,
				BatchNumber:   item.BatchNumber,
				Quantity:      item.Quantity,
				PurchasePrice: item.UnitCost,
				SellingPrice:  item.SellingPrice,
				ExpiryDate:    item.ExpiryDate,
			}
			batch.CreatedBy = userID
			batch.UpdatedBy = userID
			if err := tx.CreateBatch(batch); err != nil {
				return err
			}
			if err := tx.SetPurchaseItemBatch(item.ID, batch.ID); err != nil {
				return err
			}
			item.BatchID = &batch.ID
		}

		now := time.Now()
		purchase.Status = model.PurchaseReceived
		purchase.ReceivedAt = &now
		purchase.ReceivedBy = userID
		received = purchase
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.wsHub != nil {
		go func() {
			payload := map[string]interface{}{
				"type":        "stock_update",
				"action":      "purchase_received",
				"purchase_id": received.ID,
				"items":       len(received.Items),
				"message":     fmt.Sprintf("%s received purchase %s (%d batch(es) added)", userName, received.InvoiceNumber, len(received.Items)),
			}
			msg, _ := json.Marshal(payload)
			s.wsHub.Broadcast <- msg
		}()
	}

	return received, nil
}

func (s *purchaseService) CancelPurchase(id uuid.UUID, userID string) (*model.Purchase, error) {
	var cancelled *model.Purchase

	err := s.store.InTx(func(tx repository.StockTx) error {
		purchase, err := tx.PurchaseWithItems(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPurchaseNotFound
			}
			return err
		}
		// Only pending orders can be cancelled; received stock stays
		switch purchase.Status {
		case model.PurchaseReceived:
			return ErrAlreadyReceived
		case model.PurchaseCancelled:
			return ErrPurchaseCancelled
		}

		if err := tx.MarkPurchaseStatus(id, model.PurchaseCancelled, userID); err != nil {
			if errors.Is(err, repository.ErrStaleStatus) {
				return ErrPurchaseCancelled
			}
			return err
		}
		purchase.Status = model.PurchaseCancelled
		cancelled = purchase
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

func (s *purchaseService) GetAllPurchases() ([]model.Purchase, error) {
	return s.purchaseRepo.FindAll()
}

func (s *purchaseService) GetPurchaseByID(id uuid.UUID) (*model.Purchase, error) {
	purchase, err := s.purchaseRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, err
	}
	return purchase, nil
}
