package service

import (
	"errors"
	"testing"

	"go-pharmacy-inventory/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeBatchRepo struct {
	store *fakeStockStore
}

func (r *fakeBatchRepo) FindByID(id uuid.UUID) (*model.MedicineBatch, error) {
	b, ok := r.store.batches[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return b, nil
}

func (r *fakeBatchRepo) FindByMedicine(medicineID uuid.UUID) ([]model.MedicineBatch, error) {
	var batches []model.MedicineBatch
	for _, b := range r.store.batches {
		if b.MedicineID == medicineID {
			batches = append(batches, *b)
		}
	}
	return batches, nil
}

func (r *fakeBatchRepo) TotalStock(medicineID uuid.UUID) (int, error) {
	return r.store.totalStock(medicineID), nil
}

func newTestInventoryService(store *fakeStockStore) InventoryService {
	return NewInventoryService(
		&fakeMedicineRepo{store: store},
		&fakeBatchRepo{store: store},
		&fakeSupplierRepo{suppliers: make(map[uuid.UUID]*model.Supplier)},
		nil,
	)
}

func TestCreateMedicine_CodeUniqueAmongActive(t *testing.T) {
	store := newFakeStockStore()
	svc := newTestInventoryService(store)

	first := &model.Medicine{Code: "PARA-500", Name: "Paracetamol 500mg"}
	if err := svc.CreateMedicine(first, "user-1"); err != nil {
		t.Fatalf("CreateMedicine: %v", err)
	}

	dup := &model.Medicine{Code: "PARA-500", Name: "Paracetamol 500mg generic"}
	if err := svc.CreateMedicine(dup, "user-1"); !errors.Is(err, ErrCodeExists) {
		t.Fatalf("duplicate code err = %v, want ErrCodeExists", err)
	}

	// Deactivation frees the code for reuse
	if err := svc.DeactivateMedicine(first.ID, "user-1"); err != nil {
		t.Fatalf("DeactivateMedicine: %v", err)
	}
	if err := svc.CreateMedicine(dup, "user-1"); err != nil {
		t.Errorf("reusing a deactivated medicine's code: %v", err)
	}
}

func TestGetMedicineStock_LowStockFlag(t *testing.T) {
	store := newFakeStockStore()
	svc := newTestInventoryService(store)

	med := store.addMedicine("Diazepam", 5)
	store.addBatch(med.ID, 3, 400, day(60))
	store.addBatch(med.ID, 2, 400, day(90))

	stock, err := svc.GetMedicineStock(med.ID)
	if err != nil {
		t.Fatalf("GetMedicineStock: %v", err)
	}
	if stock.TotalStock != 5 {
		t.Errorf("total stock = %d, want 5", stock.TotalStock)
	}
	if !stock.LowStock {
		t.Error("low stock flag = false at reorder level, want true")
	}

	store.addBatch(med.ID, 10, 400, day(120))
	stock, err = svc.GetMedicineStock(med.ID)
	if err != nil {
		t.Fatalf("GetMedicineStock: %v", err)
	}
	if stock.LowStock {
		t.Error("low stock flag = true above reorder level, want false")
	}
}
