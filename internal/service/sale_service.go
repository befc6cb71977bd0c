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
	ErrEmptySale           = errors.New("sale has no items")
	ErrInvalidQuantity     = errors.New("quantity must be greater than zero")
	ErrInvalidDiscount     = errors.New("discount must be between zero and the subtotal")
	ErrMedicineNotFound    = errors.New("medicine not found")
	ErrSaleNotFound        = errors.New("sale not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrAlreadyCancelled    = errors.New("sale is already cancelled")
	ErrConcurrencyConflict = errors.New("stock changed concurrently, sale was not recorded")
)

// A lost race on a batch row is transient, so the whole sale transaction is
// retried a bounded number of times. Business-rule failures are never retried.
const maxConflictRetries = 2

type SaleItemRequest struct {
	MedicineID uuid.UUID `json:"medicine_id"`
	Quantity   int       `json:"quantity"`
}

type CreateSaleRequest struct {
	Items         []SaleItemRequest `json:"items"`
	Discount      int64             `json:"discount"`
	PaymentMethod string            `json:"payment_method"`
	Note          string            `json:"note"`
}

type SaleService interface {
	RecordSale(req *CreateSaleRequest, userID, userName string) (*model.Sale, error)
	CancelSale(id uuid.UUID, userID, userName string) (*model.Sale, error)
	GetAllSales() ([]model.Sale, error)
	GetSaleByID(id uuid.UUID) (*model.Sale, error)
}

type saleService struct {
	store      repository.StockStore
	saleRepo   repository.SaleRepository
	taxRateBps int64
	wsHub      *ws.Hub
}

func NewSaleService(store repository.StockStore, saleRepo repository.SaleRepository, taxRateBps int, hub *ws.Hub) SaleService {
	return &saleService{
		store:      store,
		saleRepo:   saleRepo,
		taxRateBps: int64(taxRateBps),
		wsHub:      hub,
	}
}

// batchDraw is one planned draw from one batch.
type batchDraw struct {
	batch *model.MedicineBatch
	qty   int
}

// allocateFIFO plans consumption across batches already ordered soonest
// expiry first. It mutates the working quantities so later lines for the
// same medicine see what the earlier lines left behind.
func allocateFIFO(batches []*model.MedicineBatch, requested int) ([]batchDraw, error) {
	var draws []batchDraw
	remaining := requested
	for _, b := range batches {
		if remaining == 0 {
			break
		}
		if b.Quantity <= 0 {
			continue
		}
		take := b.Quantity
		if take > remaining {
			take = remaining
		}
		b.Quantity -= take
		remaining -= take
		draws = append(draws, batchDraw{batch: b, qty: take})
	}
	if remaining > 0 {
		return nil, ErrInsufficientStock
	}
	return draws, nil
}

// stockAlert is raised when a sale pushes a medicine to or below its reorder level.
type stockAlert struct {
	MedicineID   uuid.UUID `json:"medicine_id"`
	Name         string    `json:"name"`
	TotalStock   int       `json:"total_stock"`
	ReorderLevel int       `json:"reorder_level"`
}

func (s *saleService) RecordSale(req *CreateSaleRequest, userID, userName string) (*model.Sale, error) {
	// 1. Validate input before touching the store
	if req == nil || len(req.Items) == 0 {
		return nil, ErrEmptySale
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}
	if req.Discount < 0 {
		return nil, ErrInvalidDiscount
	}

	// 2. Run the transaction, retrying only on a lost concurrency race
	var (
		sale   *model.Sale
		alerts []stockAlert
		err    error
	)
	for attempt := 0; ; attempt++ {
		sale, alerts, err = s.trySale(req, userID)
		if !errors.Is(err, ErrConcurrencyConflict) || attempt >= maxConflictRetries {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	// 3. Broadcast outside the transaction
	s.broadcastSale(sale, alerts, userID, userName)

	return sale, nil
}

func (s *saleService) trySale(req *CreateSaleRequest, userID string) (*model.Sale, []stockAlert, error) {
	var created *model.Sale
	var alerts []stockAlert

	err := s.store.InTx(func(tx repository.StockTx) error {
		medicines := make(map[uuid.UUID]*model.Medicine)
		working := make(map[uuid.UUID][]*model.MedicineBatch)
		var draws []batchDraw

		// Plan phase: every line is validated against locked rows before the
		// first decrement, so a rejected sale mutates nothing.
		for _, line := range req.Items {
			med, ok := medicines[line.MedicineID]
			if !ok {
				loaded, err := tx.MedicineForUpdate(line.MedicineID)
				if err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return ErrMedicineNotFound
					}
					return err
				}
				if !loaded.IsActive {
					return ErrMedicineNotFound
				}
				batches, err := tx.BatchesForSale(line.MedicineID)
				if err != nil {
					return err
				}
				ptrs := make([]*model.MedicineBatch, len(batches))
				for i := range batches {
					ptrs[i] = &batches[i]
				}
				medicines[line.MedicineID] = loaded
				working[line.MedicineID] = ptrs
				med = loaded
			}

			lineDraws, err := allocateFIFO(working[med.ID], line.Quantity)
			if err != nil {
				return err
			}
			draws = append(draws, lineDraws...)
		}

		// Mutate phase: apply the planned decrements
		var items []model.SaleItem
		var subtotal int64
		for _, d := range draws {
			if err := tx.DecrementBatch(d.batch.ID, d.qty, userID); err != nil {
				if errors.Is(err, repository.ErrStaleBatch) {
					return ErrConcurrencyConflict
				}
				return err
			}

			lineTotal := int64(d.qty) * d.batch.SellingPrice
			subtotal += lineTotal
			item := model.SaleItem{
				MedicineID: d.batch.MedicineID,
				BatchID:    d.batch.ID,
				Quantity:   d.qty,
				UnitPrice:  d.batch.SellingPrice, // snapshot, not live-linked
				LineTotal:  lineTotal,
			}
			item.CreatedBy = userID
			item.UpdatedBy = userID
			items = append(items, item)
		}

		if req.Discount > subtotal {
			return ErrInvalidDiscount
		}
		tax := (subtotal - req.Discount) * s.taxRateBps / 10000

		sale := &model.Sale{
			Items:         items,
			Subtotal:      subtotal,
			Discount:      req.Discount,
			Tax:           tax,
			TotalAmount:   subtotal - req.Discount + tax,
			PaymentMethod: req.PaymentMethod,
			Note:          req.Note,
			SoldByUserID:  &userID,
		}
		sale.CreatedBy = userID
		sale.UpdatedBy = userID

		if err := tx.CreateSale(sale); err != nil {
			return err
		}
		created = sale

		// Collect reorder-level crossings from the post-sale working quantities
		for id, med := range medicines {
			total := 0
			for _, b := range working[id] {
				total += b.Quantity
			}
			if total <= med.ReorderLevel {
				alerts = append(alerts, stockAlert{
					MedicineID:   id,
					Name:         med.Name,
					TotalStock:   total,
					ReorderLevel: med.ReorderLevel,
				})
			}
		}
		return nil
	})

	if err != nil {
		return nil, nil, err
	}
	return created, alerts, nil
}

func (s *saleService) CancelSale(id uuid.UUID, userID, userName string) (*model.Sale, error) {
	var cancelled *model.Sale

	// Restoring stock and flipping the flag share one transaction: there is
	// no state where the sale is cancelled but stock not restored.
	err := s.store.InTx(func(tx repository.StockTx) error {
		sale, err := tx.SaleWithItems(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSaleNotFound
			}
			return err
		}
		if sale.Cancelled {
			return ErrAlreadyCancelled
		}

		// Guarded flip first: if another transaction cancelled this sale in
		// the meantime, nothing is restored.
		if err := tx.MarkSaleCancelled(id, userID); err != nil {
			if errors.Is(err, repository.ErrStaleStatus) {
				return ErrAlreadyCancelled
			}
			return err
		}

		for _, item := range sale.Items {
			if err := tx.RestoreBatch(item.BatchID, item.Quantity, userID); err != nil {
				return err
			}
		}

		now := time.Now()
		sale.Cancelled = true
		sale.CancelledAt = &now
		sale.CancelledBy = userID
		cancelled = sale
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.wsHub != nil {
		go func() {
			payload := map[string]interface{}{
				"type":    "stock_update",
				"action":  "sale_cancelled",
				"sale_id": cancelled.ID,
				"message": fmt.Sprintf("%s cancelled sale %s, stock restored", userName, cancelled.ID),
			}
			msg, _ := json.Marshal(payload)
			s.wsHub.Broadcast <- msg
		}()
	}

	return cancelled, nil
}

func (s *saleService) broadcastSale(sale *model.Sale, alerts []stockAlert, userID, userName string) {
	if s.wsHub == nil {
		return
	}
	go func() {
		payload := map[string]interface{}{
			"type":   "stock_update",
			"action": "sale_recorded",
			"sale": map[string]interface{}{
				"id":           sale.ID,
				"items":        len(sale.Items),
				"total_amount": sale.TotalAmount,
			},
			"user": map[string]interface{}{
				"id":   userID,
				"name": userName,
			},
			"message": fmt.Sprintf("%s recorded a sale of %d line(s)", userName, len(sale.Items)),
		}
		if len(alerts) > 0 {
			payload["low_stock"] = alerts
		}
		msg, _ := json.Marshal(payload)
		s.wsHub.Broadcast <- msg
	}()
}

func (s *saleService) GetAllSales() ([]model.Sale, error) {
	return s.saleRepo.FindAll()
}

func (s *saleService) GetSaleByID(id uuid.UUID) (*model.Sale, error) {
	sale, err := s.saleRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSaleNotFound
		}
		return nil, err
	}
	return sale, nil
}
