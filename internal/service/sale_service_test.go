package service

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go-pharmacy-inventory/internal/model"

	"github.com/google/uuid"
)

func day(offset int) time.Time {
	return time.Now().AddDate(0, 0, offset).Truncate(24 * time.Hour)
}

func newTestSaleService(store *fakeStockStore, taxRateBps int) SaleService {
	return NewSaleService(store, nil, taxRateBps, nil)
}

func TestRecordSale_ConsumesSoonestExpiryFirst(t *testing.T) {
	store := newFakeStockStore()
	med := store.addMedicine("Paracetamol", 0)
	// Added out of expiry order on purpose
	late := store.addBatch(med.ID, 7, 1200, day(90))
	early := store.addBatch(med.ID, 5, 1000, day(30))

	svc := newTestSaleService(store, 0)
	sale, err := svc.RecordSale(&CreateSaleRequest{
		Items: []SaleItemRequest{{MedicineID: med.ID, Quantity: 8}},
	}, "user-1", "Tester")
	if err != nil {
		t.Fatalf("RecordSale: %v", err)
	}

	// 5 from the early batch, 3 from the late one
	if got := store.batchQty(early.ID); got != 0 {
		t.Errorf("early batch quantity = %d, want 0", got)
	}
	if got := store.batchQty(late.ID); got != 4 {
		t.Errorf("late batch quantity = %d, want 4", got)
	}

	if len(sale.Items) != 2 {
		t.Fatalf("sale has %d items, want 2", len(sale.Items))
	}
	if sale.Items[0].BatchID != early.ID || sale.Items[0].Quantity != 5 {
		t.Errorf("first draw = %d from %s, want 5 from early batch", sale.Items[0].Quantity, sale.Items[0].BatchID)
	}
	if sale.Items[1].BatchID != late.ID || sale.Items[1].Quantity != 3 {
		t.Errorf("second draw = %d from %s, want 3 from late batch", sale.Items[1].Quantity, sale.Items[1].BatchID)
	}

	wantSubtotal := int64(5*1000 + 3*1200)
	if sale.Subtotal != wantSubtotal {
		t.Errorf("subtotal = %d, want %d", sale.Subtotal, wantSubtotal)
	}
}

func TestRecordSale_TotalsIdentity(t *testing.T) {
	store := newFakeStockStore()
	med := store.addMedicine("Amoxicillin", 0)
	store.addBatch(med.ID, 50, 2500, day(60))

	svc := newTestSaleService(store, 800) // 8% tax
	sale, err := svc.RecordSale(&CreateSaleRequest{
		Items:    []SaleItemRequest{{MedicineID: med.ID, Quantity: 4}},
		Discount: 1000,
	}, "user-1", "Tester")
	if err != nil {
		t.Fatalf("RecordSale: %v", err)
	}

	var sum int64
	for _, item := range sale.Items {
		if item.LineTotal != int64(item.Quantity)*item.UnitPrice {
			t.Errorf("line total = %d, want quantity*unit price = %d", item.LineTotal, int64(item.Quantity)*item.UnitPrice)
		}
		sum += item.LineTotal
	}
	if sale.Subtotal != sum {
		t.Errorf("subtotal = %d, want sum of line totals %d", sale.Subtotal, sum)
	}

	wantTax := (sale.Subtotal - sale.Discount) * 800 / 10000
	if sale.Tax != wantTax {
		t.Errorf("tax = %d, want %d", sale.Tax, wantTax)
	}
	if sale.TotalAmount != sale.Subtotal-sale.Discount+sale.Tax {
		t.Errorf("total = %d, want subtotal-discount+tax = %d", sale.TotalAmount, sale.Subtotal-sale.Discount+sale.Tax)
	}
}

func TestRecordSale_UnitPriceIsSnapshotted(t *testing.T) {
	store := newFakeStockStore()
	med := store.addMedicine("Ibuprofen", 0)
	batch := store.addBatch(med.ID, 10, 500, day(45))

	svc := newTestSaleService(store, 0)
	sale, err := svc.RecordSale(&CreateSaleRequest{
		Items: []SaleItemRequest{{MedicineID: med.ID, Quantity: 2}},
	}, "user-1", "Tester")
	if err != nil {
		t.Fatalf("RecordSale: %v", err)
	}

	// A later price change must not reach back into the recorded sale
	store.mu.Lock()
	store.batches[batch.ID].SellingPrice = 900
	store.mu.Unlock()

	if sale.Items[0].UnitPrice != 500 {
		t.Errorf("unit price = %d, want snapshotted 500", sale.Items[0].UnitPrice)
	}
}

func TestRecordSale_InsufficientStockLeavesEverythingUnchanged(t *testing.T) {
	store := newFakeStockStore()
	med := store.addMedicine("Cetirizine", 0)
	batch := store.addBatch(med.ID, 5, 800, day(20))

	svc := newTestSaleService(store, 800)
	_, err := svc.RecordSale(&CreateSaleRequest{
		Items: []SaleItemRequest{{MedicineID: med.ID, Quantity: 6}},
	}, "user-1", "Tester")
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}

	if got := store.batchQty(batch.ID); got != 5 {
		t.Errorf("batch quantity = %d, want untouched 5", got)
	}
	if len(store.sales) != 0 {
		t.Errorf("%d sales recorded, want 0", len(store.sales))
	}
}

func TestRecordSale_MultiLineRejectionRollsBackAllLines(t *testing.T) {
	store := newFakeStockStore()
	medA := store.addMedicine("MedA", 0)
	medB := store.addMedicine("MedB", 0)
	batchA := store.addBatch(medA.ID, 10, 100, day(10))
	batchB := store.addBatch(medB.ID, 2, 100, day(10))

	svc := newTestSaleService(store, 0)
	_, err := svc.RecordSale(&CreateSaleRequest{
		Items: []SaleItemRequest{
			{MedicineID: medA.ID, Quantity: 3}, // satisfiable
			{MedicineID: medB.ID, Quantity: 5}, // short by 3
		},
	}, "user-1", "Tester")
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}

	if got := store.batchQty(batchA.ID); got != 10 {
		t.Errorf("batch A quantity = %d, want untouched 10", got)
	}
	if got := store.batchQty(batchB.ID); got != 2 {
		t.Errorf("batch B quantity = %d, want untouched 2", got)
	}
}

func TestRecordSale_RepeatedMedicineLinesShareStock(t *testing.T) {
	store := newFakeStockStore()
	med := store.addMedicine("Loratadine", 0)
	store.addBatch(med.ID, 5, 300, day(15))

	svc := newTestSaleService(store, 0)
	// Two lines for the same medicine must draw from the same working view,
	// so 3 + 3 against a stock of 5 is short.
	_, err := svc.RecordSale(&CreateSaleRequest{
		Items: []SaleItemRequest{
			{MedicineID: med.ID, Quantity: 3},
			{MedicineID: med.ID, Quantity: 3},
		},
	}, "user-1", "Tester")
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
	if got := store.totalStock(med.ID); got != 5 {
		t.Errorf("total stock = %d, want untouched 5", got)
	}
}

func TestRecordSale_ValidationErrors(t *testing.T) {
	store := newFakeStockStore()
	med := store.addMedicine("Omeprazole", 0)
	store.addBatch(med.ID, 10, 600, day(40))
	svc := newTestSaleService(store, 0)

	tests := []struct {
		name    string
		req     *CreateSaleRequest
		wantErr error
	}{
		{"nil request", nil, ErrEmptySale},
		{"no items", &CreateSaleRequest{}, ErrEmptySale},
		{"zero quantity", &CreateSaleRequest{
			Items: []SaleItemRequest{{MedicineID: med.ID, Quantity: 0}},
		}, ErrInvalidQuantity},
		{"negative quantity", &CreateSaleRequest{
			Items: []SaleItemRequest{{MedicineID: med.ID, Quantity: -2}},
		}, ErrInvalidQuantity},
		{"negative discount", &CreateSaleRequest{
			Items:    []SaleItemRequest{{MedicineID: med.ID, Quantity: 1}},
			Discount: -1,
		}, ErrInvalidDiscount},
		{"discount above subtotal", &CreateSaleRequest{
			Items:    []SaleItemRequest{{MedicineID: med.ID, Quantity: 1}},
			Discount: 601,
		}, ErrInvalidDiscount},
		{"unknown medicine", &CreateSaleRequest{
			Items: []SaleItemRequest{{MedicineID: uuid.New(), Quantity: 1}},
		}, ErrMedicineNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordSale(tt.req, "user-1", "Tester")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if got := store.totalStock(med.ID); got != 10 {
		t.Errorf("total stock = %d after rejected sales, want untouched 10", got)
	}
}

func TestRecordSale_InactiveMedicineNotSellable(t *testing.T) {
	store := newFakeStockStore()
	med := store.addMedicine("Discontinued", 0)
	med.IsActive = false
	store.addBatch(med.ID, 10, 100, day(30))

	svc := newTestSaleService(store, 0)
	_, err := svc.RecordSale(&CreateSaleRequest{
		Items: []SaleItemRequest{{MedicineID: med.ID, Quantity: 1}},
	}, "user-1", "Tester")
	if !errors.Is(err, ErrMedicineNotFound) {
		t.Errorf("err = %v, want ErrMedicineNotFound", err)
	}
}

func TestCancelSale_RestoresExactQuantities(t *testing.T) {
	store := newFakeStockStore()
	med := store.addMedicine("Metformin", 0)
	b1 := store.addBatch(med.ID, 4, 700, day(10))
	b2 := store.addBatch(med.ID, 6, 750, day(50))

	svc := newTestSaleService(store, 800)
	sale, err := svc.RecordSale(&CreateSaleRequest{
		Items: []SaleItemRequest{{MedicineID: med.ID, Quantity: 7}},
	}, "user-1", "Tester")
	if err != nil {
		t.Fatalf("RecordSale: %v", err)
	}
	if got := store.totalStock(med.ID); got != 3 {
		t.Fatalf("total stock after sale = %d, want 3", got)
	}

	cancelled, err := svc.CancelSale(sale.ID, "user-2", "Canceller")
	if err != nil {
		t.Fatalf("CancelSale: %v", err)
	}
	if !cancelled.Cancelled {
		t.Error("returned sale not flagged cancelled")
	}

	if got := store.batchQty(b1.ID); got != 4 {
		t.Errorf("batch 1 quantity = %d, want restored 4", got)
	}
	if got := store.batchQty(b2.ID); got != 6 {
		t.Errorf("batch 2 quantity = %d, want restored 6", got)
	}

	stored := store.sales[sale.ID]
	if !stored.Cancelled || stored.CancelledAt == nil || stored.CancelledBy != "user-2" {
		t.Errorf("stored sale cancellation state = %+v, want cancelled by user-2", stored)
	}
}

func TestCancelSale_Twice(t *testing.T) {
	store := newFakeStockStore()
	med := store.addMedicine("Aspirin", 0)
	store.addBatch(med.ID, 10, 200, day(30))

	svc := newTestSaleService(store, 0)
	sale, err := svc.RecordSale(&CreateSaleRequest{
		Items: []SaleItemRequest{{MedicineID: med.ID, Quantity: 3}},
	}, "user-1", "Tester")
	if err != nil {
		t.Fatalf("RecordSale: %v", err)
	}

	if _, err := svc.CancelSale(sale.ID, "user-1", "Tester"); err != nil {
		t.Fatalf("first CancelSale: %v", err)
	}
	if _, err := svc.CancelSale(sale.ID, "user-1", "Tester"); !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("second CancelSale err = %v, want ErrAlreadyCancelled", err)
	}

	// The second attempt must not restore stock again
	if got := store.totalStock(med.ID); got != 10 {
		t.Errorf("total stock = %d, want 10 after single restore", got)
	}
}

func TestCancelSale_StaleReadRestoresNothing(t *testing.T) {
	store := newFakeStockStore()
	med := store.addMedicine("Warfarin", 0)
	store.addBatch(med.ID, 10, 350, day(30))

	svc := newTestSaleService(store, 0)
	sale, err := svc.RecordSale(&CreateSaleRequest{
		Items: []SaleItemRequest{{MedicineID: med.ID, Quantity: 4}},
	}, "user-1", "Tester")
	if err != nil {
		t.Fatalf("RecordSale: %v", err)
	}
	if _, err := svc.CancelSale(sale.ID, "user-1", "Tester"); err != nil {
		t.Fatalf("first CancelSale: %v", err)
	}

	// A second cancel whose read pre-dates the first one sees the sale as
	// still open. The guarded flag flip must reject it before any restore.
	store.staleSaleReads = 1
	if _, err := svc.CancelSale(sale.ID, "user-2", "Other"); !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("racing CancelSale err = %v, want ErrAlreadyCancelled", err)
	}

	if got := store.totalStock(med.ID); got != 10 {
		t.Errorf("total stock = %d, want 10 after a single restore", got)
	}
	if store.sales[sale.ID].CancelledBy != "user-1" {
		t.Errorf("cancelled by = %s, want the first canceller user-1", store.sales[sale.ID].CancelledBy)
	}
}

func TestCancelSale_NotFound(t *testing.T) {
	svc := newTestSaleService(newFakeStockStore(), 0)
	if _, err := svc.CancelSale(uuid.New(), "user-1", "Tester"); !errors.Is(err, ErrSaleNotFound) {
		t.Errorf("err = %v, want ErrSaleNotFound", err)
	}
}

func TestRecordSale_RetriesAfterLostRace(t *testing.T) {
	store := newFakeStockStore()
	med := store.addMedicine("Simvastatin", 0)
	store.addBatch(med.ID, 10, 400, day(30))
	store.staleDecrements = 1 // first attempt loses the race, retry wins

	svc := newTestSaleService(store, 0)
	sale, err := svc.RecordSale(&CreateSaleRequest{
		Items: []SaleItemRequest{{MedicineID: med.ID, Quantity: 2}},
	}, "user-1", "Tester")
	if err != nil {
		t.Fatalf("RecordSale after transient conflict: %v", err)
	}
	if sale == nil {
		t.Fatal("RecordSale returned nil sale")
	}
	if got := store.totalStock(med.ID); got != 8 {
		t.Errorf("total stock = %d, want 8 (decremented exactly once)", got)
	}
}

func TestRecordSale_GivesUpAfterBoundedRetries(t *testing.T) {
	store := newFakeStockStore()
	med := store.addMedicine("Atorvastatin", 0)
	store.addBatch(med.ID, 10, 400, day(30))
	store.staleDecrements = maxConflictRetries + 1 // every attempt loses

	svc := newTestSaleService(store, 0)
	_, err := svc.RecordSale(&CreateSaleRequest{
		Items: []SaleItemRequest{{MedicineID: med.ID, Quantity: 2}},
	}, "user-1", "Tester")
	if !errors.Is(err, ErrConcurrencyConflict) {
		t.Fatalf("err = %v, want ErrConcurrencyConflict", err)
	}
	if got := store.totalStock(med.ID); got != 10 {
		t.Errorf("total stock = %d, want untouched 10 after failed attempts", got)
	}
}

func TestRecordSale_ConcurrentSalesNeverOverdraw(t *testing.T) {
	store := newFakeStockStore()
	med := store.addMedicine("Insulin", 0)
	store.addBatch(med.ID, 10, 5000, day(25))

	svc := newTestSaleService(store, 0)

	var succeeded, insufficient int64
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordSale(&CreateSaleRequest{
				Items: []SaleItemRequest{{MedicineID: med.ID, Quantity: 6}},
			}, "user-1", "Tester")
			switch {
			case err == nil:
				atomic.AddInt64(&succeeded, 1)
			case errors.Is(err, ErrInsufficientStock):
				atomic.AddInt64(&insufficient, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || insufficient != 1 {
		t.Errorf("succeeded = %d, insufficient = %d, want exactly 1 and 1", succeeded, insufficient)
	}
	if got := store.totalStock(med.ID); got != 4 {
		t.Errorf("total stock = %d, want 4 (never negative, never double-sold)", got)
	}
}

func TestRecordSale_ManyConcurrentSingles(t *testing.T) {
	store := newFakeStockStore()
	med := store.addMedicine("Vitamin C", 0)
	store.addBatch(med.ID, 30, 150, day(100))

	svc := newTestSaleService(store, 0)

	const workers = 50
	var succeeded int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordSale(&CreateSaleRequest{
				Items: []SaleItemRequest{{MedicineID: med.ID, Quantity: 1}},
			}, "user-1", "Tester")
			if err == nil {
				atomic.AddInt64(&succeeded, 1)
			} else if !errors.Is(err, ErrInsufficientStock) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 30 {
		t.Errorf("succeeded = %d, want all 30 units sold exactly once", succeeded)
	}
	if got := store.totalStock(med.ID); got != 0 {
		t.Errorf("total stock = %d, want 0", got)
	}
}

func TestAllocateFIFO_SkipsEmptyAndSplits(t *testing.T) {
	mk := func(qty int, exp time.Time) *model.MedicineBatch {
		b := &model.MedicineBatch{Quantity: qty, ExpiryDate: exp}
		b.ID = uuid.New()
		return b
	}
	empty := mk(0, day(1))
	first := mk(2, day(2))
	second := mk(5, day(3))

	draws, err := allocateFIFO([]*model.MedicineBatch{empty, first, second}, 4)
	if err != nil {
		t.Fatalf("allocateFIFO: %v", err)
	}
	if len(draws) != 2 {
		t.Fatalf("got %d draws, want 2", len(draws))
	}
	if draws[0].batch.ID != first.ID || draws[0].qty != 2 {
		t.Errorf("draw[0] = %d from wrong batch, want 2 from first", draws[0].qty)
	}
	if draws[1].batch.ID != second.ID || draws[1].qty != 2 {
		t.Errorf("draw[1] = %d from wrong batch, want 2 from second", draws[1].qty)
	}
	if second.Quantity != 3 {
		t.Errorf("second working quantity = %d, want 3", second.Quantity)
	}

	if _, err := allocateFIFO([]*model.MedicineBatch{second}, 4); !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("err = %v, want ErrInsufficientStock", err)
	}
}
