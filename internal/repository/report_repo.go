package repository

import (
	"time"

	"go-pharmacy-inventory/internal/model"

	"gorm.io/gorm"
)

type ReportRepository interface {
	NearExpiryBatches(before time.Time) ([]model.MedicineBatch, error)
	ExpiredBatches(asOf time.Time) ([]model.MedicineBatch, error)
	LowStockMedicines() ([]LowStockRow, error)
	DailyRevenue(startDate, endDate time.Time) ([]RevenueRow, error)
	MonthlyRevenue(startDate, endDate time.Time) ([]RevenueRow, error)
	GetDashboardStats(nearExpiryBefore time.Time) (*DashboardStats, error)
}

// RevenueRow aggregates non-cancelled sales per period (day or month)
type RevenueRow struct {
	Period    string `json:"period"`
	Revenue   int64  `json:"revenue"`
	SaleCount int64  `json:"sale_count"`
}

// LowStockRow pairs a medicine with its current total stock
type LowStockRow struct {
	MedicineID   string `json:"medicine_id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	ReorderLevel int    `json:"reorder_level"`
	TotalStock   int    `json:"total_stock"`
}

// DashboardStats for the overview screen
type DashboardStats struct {
	TotalMedicines  int64 `json:"total_medicines"`
	LowStockCount   int64 `json:"low_stock_count"`
	NearExpiryCount int64 `json:"near_expiry_count"`
	TodayRevenue    int64 `json:"today_revenue"`
	StockValuation  int64 `json:"stock_valuation"`
}

type reportRepo struct {
	db *gorm.DB
}

func NewReportRepo(db *gorm.DB) ReportRepository {
	return &reportRepo{db}
}

func (r *reportRepo) NearExpiryBatches(before time.Time) ([]model.MedicineBatch, error) {
	var batches []model.MedicineBatch
	err := r.db.Preload("Medicine").Preload("Supplier").
		Where("expiry_date <= ? AND expiry_date >= ? AND quantity > 0", before, time.Now()).
		Order("expiry_date ASC").
		Find(&batches).Error
	return batches, err
}

func (r *reportRepo) ExpiredBatches(asOf time.Time) ([]model.MedicineBatch, error) {
	var batches []model.MedicineBatch
	err := r.db.Preload("Medicine").Preload("Supplier").
		Where("expiry_date < ? AND quantity > 0", asOf).
		Order("expiry_date ASC").
		Find(&batches).Error
	return batches, err
}

func (r *reportRepo) LowStockMedicines() ([]LowStockRow, error) {
	var results []LowStockRow

	rows, err := r.db.Model(&model.Medicine{}).
		Select(`
			medicines.id as medicine_id,
			medicines.code,
			medicines.name,
			medicines.reorder_level,
			COALESCE(SUM(medicine_batches.quantity), 0) as total_stock
		`).
		Joins("LEFT JOIN medicine_batches ON medicine_batches.medicine_id = medicines.id AND medicine_batches.deleted_at IS NULL").
		Where("medicines.is_active = ?", true).
		Group("medicines.id, medicines.code, medicines.name, medicines.reorder_level").
		Having("COALESCE(SUM(medicine_batches.quantity), 0) <= medicines.reorder_level").
		Order("total_stock ASC").
		Rows()

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var data LowStockRow
		if err := rows.Scan(&data.MedicineID, &data.Code, &data.Name, &data.ReorderLevel, &data.TotalStock); err != nil {
			return nil, err
		}
		results = append(results, data)
	}

	return results, nil
}

func (r *reportRepo) DailyRevenue(startDate, endDate time.Time) ([]RevenueRow, error) {
	return r.revenueByPeriod("TO_CHAR(created_at, 'YYYY-MM-DD')", startDate, endDate)
}

func (r *reportRepo) MonthlyRevenue(startDate, endDate time.Time) ([]RevenueRow, error) {
	return r.revenueByPeriod("TO_CHAR(created_at, 'YYYY-MM')", startDate, endDate)
}

func (r *reportRepo) revenueByPeriod(periodExpr string, startDate, endDate time.Time) ([]RevenueRow, error) {
	var results []RevenueRow

	rows, err := r.db.Model(&model.Sale{}).
		Select(periodExpr+` as period,
			COALESCE(SUM(total_amount), 0) as revenue,
			COUNT(*) as sale_count`).
		Where("cancelled = ? AND created_at BETWEEN ? AND ?", false, startDate, endDate).
		Group(periodExpr).
		Order("period ASC").
		Rows()

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var data RevenueRow
		if err := rows.Scan(&data.Period, &data.Revenue, &data.SaleCount); err != nil {
			return nil, err
		}
		results = append(results, data)
	}

	return results, nil
}

func (r *reportRepo) GetDashboardStats(nearExpiryBefore time.Time) (*DashboardStats, error) {
	var stats DashboardStats

	r.db.Model(&model.Medicine{}).Where("is_active = ?", true).Count(&stats.TotalMedicines)

	lowStock, err := r.LowStockMedicines()
	if err != nil {
		return nil, err
	}
	stats.LowStockCount = int64(len(lowStock))

	r.db.Model(&model.MedicineBatch{}).
		Where("expiry_date <= ? AND expiry_date >= ? AND quantity > 0", nearExpiryBefore, time.Now()).
		Count(&stats.NearExpiryCount)

	// Revenue since local midnight, cancelled sales excluded
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	r.db.Model(&model.Sale{}).
		Where("cancelled = ? AND created_at >= ?", false, today).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&stats.TodayRevenue)

	// Valuation at selling price across remaining stock
	r.db.Model(&model.MedicineBatch{}).
		Select("COALESCE(SUM(quantity * selling_price), 0)").
		Scan(&stats.StockValuation)

	return &stats, nil
}
