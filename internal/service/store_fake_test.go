package service

import (
	"sort"
	"sync"
	"time"

	"go-pharmacy-inventory/internal/model"
	"go-pharmacy-inventory/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// fakeStockStore is an in-memory StockStore. The mutex serializes
// transactions the way row locks do in Postgres, and a transaction that
// returns an error rolls back to the snapshot taken at entry.
type fakeStockStore struct {
	mu        sync.Mutex
	medicines map[uuid.UUID]*model.Medicine
	batches   map[uuid.UUID]*model.MedicineBatch
	sales     map[uuid.UUID]*model.Sale
	purchases map[uuid.UUID]*model.Purchase

	// staleDecrements makes the next N decrements report a lost race
	staleDecrements int
	// staleSaleReads makes the next N sale reads hide the cancelled flag,
	// emulating a read that pre-dates a concurrent cancellation
	staleSaleReads int
	// stalePurchaseReads likewise reports PENDING regardless of actual status
	stalePurchaseReads int
}

func newFakeStockStore() *fakeStockStore {
	return &fakeStockStore{
		medicines: make(map[uuid.UUID]*model.Medicine),
		batches:   make(map[uuid.UUID]*model.MedicineBatch),
		sales:     make(map[uuid.UUID]*model.Sale),
		purchases: make(map[uuid.UUID]*model.Purchase),
	}
}

func (f *fakeStockStore) addMedicine(name string, reorderLevel int) *model.Medicine {
	m := &model.Medicine{
		Code:         "MED-" + name,
		Name:         name,
		ReorderLevel: reorderLevel,
		IsActive:     true,
	}
	m.ID = uuid.New()
	f.medicines[m.ID] = m
	return m
}

func (f *fakeStockStore) addBatch(medicineID uuid.UUID, qty int, sellingPrice int64, expiry time.Time) *model.MedicineBatch {
	b := &model.MedicineBatch{
		MedicineID:   medicineID,
		SupplierID:   uuid.New(),
		Quantity:     qty,
		SellingPrice: sellingPrice,
		ExpiryDate:   expiry,
	}
	b.ID = uuid.New()
	b.CreatedAt = time.Now()
	f.batches[b.ID] = b
	return b
}

func (f *fakeStockStore) addPurchase(p *model.Purchase) *model.Purchase {
	p.ID = uuid.New()
	for i := range p.Items {
		p.Items[i].ID = uuid.New()
		p.Items[i].PurchaseID = p.ID
	}
	f.purchases[p.ID] = p
	return p
}

func (f *fakeStockStore) batchQty(id uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.batches[id]; ok {
		return b.Quantity
	}
	return -1
}

func (f *fakeStockStore) totalStock(medicineID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, b := range f.batches {
		if b.MedicineID == medicineID {
			total += b.Quantity
		}
	}
	return total
}

type storeSnapshot struct {
	batches   map[uuid.UUID]*model.MedicineBatch
	sales     map[uuid.UUID]*model.Sale
	purchases map[uuid.UUID]*model.Purchase
}

func (f *fakeStockStore) snapshot() storeSnapshot {
	snap := storeSnapshot{
		batches:   make(map[uuid.UUID]*model.MedicineBatch, len(f.batches)),
		sales:     make(map[uuid.UUID]*model.Sale, len(f.sales)),
		purchases: make(map[uuid.UUID]*model.Purchase, len(f.purchases)),
	}
	for id, b := range f.batches {
		cp := *b
		snap.batches[id] = &cp
	}
	for id, s := range f.sales {
		cp := *s
		cp.Items = append([]model.SaleItem(nil), s.Items...)
		snap.sales[id] = &cp
	}
	for id, p := range f.purchases {
		cp := *p
		cp.Items = append([]model.PurchaseItem(nil), p.Items...)
		snap.purchases[id] = &cp
	}
	return snap
}

func (f *fakeStockStore) InTx(fn func(tx repository.StockTx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := f.snapshot()
	if err := fn(&fakeStockTx{store: f}); err != nil {
		f.batches = snap.batches
		f.sales = snap.sales
		f.purchases = snap.purchases
		return err
	}
	return nil
}

type fakeStockTx struct {
	store *fakeStockStore
}

func (t *fakeStockTx) MedicineForUpdate(id uuid.UUID) (*model.Medicine, error) {
	m, ok := t.store.medicines[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m
	return &cp, nil
}

func (t *fakeStockTx) BatchesForSale(medicineID uuid.UUID) ([]model.MedicineBatch, error) {
	var batches []model.MedicineBatch
	for _, b := range t.store.batches {
		if b.MedicineID == medicineID && b.Quantity > 0 {
			batches = append(batches, *b)
		}
	}
	sort.Slice(batches, func(i, j int) bool {
		if !batches[i].ExpiryDate.Equal(batches[j].ExpiryDate) {
			return batches[i].ExpiryDate.Before(batches[j].ExpiryDate)
		}
		return batches[i].CreatedAt.Before(batches[j].CreatedAt)
	})
	return batches, nil
}

func (t *fakeStockTx) DecrementBatch(batchID uuid.UUID, qty int, updatedBy string) error {
	if t.store.staleDecrements > 0 {
		t.store.staleDecrements--
		return repository.ErrStaleBatch
	}
	b, ok := t.store.batches[batchID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if b.Quantity < qty {
		return repository.ErrStaleBatch
	}
	b.Quantity -= qty
	b.UpdatedBy = updatedBy
	return nil
}

func (t *fakeStockTx) RestoreBatch(batchID uuid.UUID, qty int, updatedBy string) error {
	b, ok := t.store.batches[batchID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	b.Quantity += qty
	b.UpdatedBy = updatedBy
	return nil
}

func (t *fakeStockTx) CreateBatch(batch *model.MedicineBatch) error {
	batch.ID = uuid.New()
	batch.CreatedAt = time.Now()
	cp := *batch
	t.store.batches[batch.ID] = &cp
	return nil
}

func (t *fakeStockTx) CreateSale(sale *model.Sale) error {
	sale.ID = uuid.New()
	for i := range sale.Items {
		sale.Items[i].ID = uuid.New()
		sale.Items[i].SaleID = sale.ID
	}
	cp := *sale
	cp.Items = append([]model.SaleItem(nil), sale.Items...)
	t.store.sales[sale.ID] = &cp
	return nil
}

func (t *fakeStockTx) SaleWithItems(id uuid.UUID) (*model.Sale, error) {
	s, ok := t.store.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	cp.Items = append([]model.SaleItem(nil), s.Items...)
	if t.store.staleSaleReads > 0 {
		t.store.staleSaleReads--
		cp.Cancelled = false
		cp.CancelledAt = nil
		cp.CancelledBy = ""
	}
	return &cp, nil
}

func (t *fakeStockTx) MarkSaleCancelled(id uuid.UUID, cancelledBy string) error {
	s, ok := t.store.sales[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if s.Cancelled {
		return repository.ErrStaleStatus
	}
	now := time.Now()
	s.Cancelled = true
	s.CancelledAt = &now
	s.CancelledBy = cancelledBy
	return nil
}

func (t *fakeStockTx) PurchaseWithItems(id uuid.UUID) (*model.Purchase, error) {
	p, ok := t.store.purchases[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	cp.Items = append([]model.PurchaseItem(nil), p.Items...)
	if t.store.stalePurchaseReads > 0 {
		t.store.stalePurchaseReads--
		cp.Status = model.PurchasePending
	}
	return &cp, nil
}

func (t *fakeStockTx) MarkPurchaseStatus(id uuid.UUID, status model.PurchaseStatus, updatedBy string) error {
	p, ok := t.store.purchases[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if p.Status != model.PurchasePending {
		return repository.ErrStaleStatus
	}
	p.Status = status
	p.UpdatedBy = updatedBy
	if status == model.PurchaseReceived {
		now := time.Now()
		p.ReceivedAt = &now
		p.ReceivedBy = updatedBy
	}
	return nil
}

func (t *fakeStockTx) SetPurchaseItemBatch(itemID, batchID uuid.UUID) error {
	for _, p := range t.store.purchases {
		for i := range p.Items {
			if p.Items[i].ID == itemID {
				id := batchID
				p.Items[i].BatchID = &id
				return nil
			}
		}
	}
	return gorm.ErrRecordNotFound
}
