package service

import (
	"time"

	"go-pharmacy-inventory/internal/model"
	"go-pharmacy-inventory/internal/repository"
)

// ReportService exposes the read-only projections. These are lock-free
// queries and may observe slightly stale totals; an unmatched filter is an
// empty result, never an error.
type ReportService interface {
	GetNearExpiryBatches(days int) ([]model.MedicineBatch, error)
	GetExpiredBatches() ([]model.MedicineBatch, error)
	GetLowStockMedicines() ([]repository.LowStockRow, error)
	GetDailyRevenue(days int) ([]repository.RevenueRow, error)
	GetMonthlyRevenue(months int) ([]repository.RevenueRow, error)
	GetDashboardStats() (*repository.DashboardStats, error)
}

type reportService struct {
	reportRepo     repository.ReportRepository
	nearExpiryDays int
}

func NewReportService(reportRepo repository.ReportRepository, nearExpiryDays int) ReportService {
	return &reportService{
		reportRepo:     reportRepo,
		nearExpiryDays: nearExpiryDays,
	}
}

func (s *reportService) GetNearExpiryBatches(days int) ([]model.MedicineBatch, error) {
	if days <= 0 {
		days = s.nearExpiryDays
	}
	before := time.Now().AddDate(0, 0, days)
	return s.reportRepo.NearExpiryBatches(before)
}

func (s *reportService) GetExpiredBatches() ([]model.MedicineBatch, error) {
	return s.reportRepo.ExpiredBatches(time.Now())
}

func (s *reportService) GetLowStockMedicines() ([]repository.LowStockRow, error) {
	return s.reportRepo.LowStockMedicines()
}

func (s *reportService) GetDailyRevenue(days int) ([]repository.RevenueRow, error) {
	if days <= 0 {
		days = 7
	}
	endDate := time.Now()
	startDate := endDate.AddDate(0, 0, -days)
	return s.reportRepo.DailyRevenue(startDate, endDate)
}

func (s *reportService) GetMonthlyRevenue(months int) ([]repository.RevenueRow, error) {
	if months <= 0 {
		months = 12
	}
	endDate := time.Now()
	startDate := endDate.AddDate(0, -months, 0)
	return s.reportRepo.MonthlyRevenue(startDate, endDate)
}

func (s *reportService) GetDashboardStats() (*repository.DashboardStats, error) {
	before := time.Now().AddDate(0, 0, s.nearExpiryDays)
	return s.reportRepo.GetDashboardStats(before)
}
