package services

import (
	"context"
	"fmt"
	"strings"

	"moneymonitor/internal/aggregate"
	"moneymonitor/internal/core"
	"moneymonitor/internal/store"
)

// ReportService loads a user's records and hands them to the aggregate
// engine.
type ReportService struct {
	store store.ExpenseReader
}

func NewReportService(r store.ExpenseReader) *ReportService {
	return &ReportService{store: r}
}

func (s *ReportService) CategorySummary(ctx context.Context, userID string, typ core.ExpenseType) (aggregate.CategorySummary, error) {
	records, err := loadRecords(ctx, s.store, userID, typ)
	if err != nil {
		return aggregate.CategorySummary{}, err
	}
	return aggregate.ComputeCategorySummary(records, typ), nil
}

func (s *ReportService) MonthlyTrend(ctx context.Context, userID string, typ core.ExpenseType) (aggregate.MonthlyTrend, error) {
	records, err := loadRecords(ctx, s.store, userID, typ)
	if err != nil {
		return nil, err
	}
	return aggregate.ComputeMonthlyTrend(records, typ), nil
}

// MerchantSpend reports spend on merchant, matched case-insensitively.
func (s *ReportService) MerchantSpend(ctx context.Context, userID, merchant string, r aggregate.DateRange) (aggregate.MerchantSpendReport, error) {
	if strings.TrimSpace(userID) == "" {
		return aggregate.MerchantSpendReport{}, core.ErrMissingUser
	}
	if strings.TrimSpace(merchant) == "" {
		return aggregate.MerchantSpendReport{}, core.ErrEmptyMerchant
	}

	records, err := s.store.ListByUserFiltered(ctx, userID, store.FieldNormalizedItem, core.NormalizeMerchant(merchant))
	if err != nil {
		return aggregate.MerchantSpendReport{}, fmt.Errorf("list merchant expenses: %w", err)
	}
	return aggregate.ComputeMerchantSpend(records, merchant, r), nil
}
