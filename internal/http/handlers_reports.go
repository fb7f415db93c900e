package http

import (
	"net/http"

	"moneymonitor/internal/log"
)

// handleMerchantSpend answers "how much did I spend at X", optionally
// within [startDate, endDate].
func (s *Server) handleMerchantSpend(w http.ResponseWriter, r *http.Request) {
	var req merchantSpendRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err, log.ComponentReport, log.OpMerchant, nil)
		return
	}
	fields := log.NewFields().WithUser(req.UserID).WithMerchant(req.Merchant)

	ctx, cancel := s.withStoreTimeout(r.Context())
	defer cancel()

	report, err := s.reports.MerchantSpend(ctx, sanitizeInput(req.UserID), sanitizeInput(req.Merchant), req.dateRange())
	if err != nil {
		s.fail(w, r, err, log.ComponentReport, log.OpMerchant, fields)
		return
	}

	NewJSONResponse().
		Set("merchant", report.Merchant).
		Set("totalSpent", report.TotalSpent).
		Set("transactionCount", report.TransactionCount).
		Set("byCategory", report.ByCategory).
		Set("expenses", report.Expenses).
		Write(w)
}

func (s *Server) handleCategorySummary(w http.ResponseWriter, r *http.Request) {
	params, err := requiredQuery(r, "userId")
	if err != nil {
		s.fail(w, r, err, log.ComponentReport, log.OpSummary, nil)
		return
	}
	userID := params[0]
	fields := log.NewFields().WithUser(userID)

	typ, err := parseTypeFilter(r)
	if err != nil {
		s.fail(w, r, err, log.ComponentReport, log.OpSummary, fields)
		return
	}

	ctx, cancel := s.withStoreTimeout(r.Context())
	defer cancel()

	summary, err := s.reports.CategorySummary(ctx, userID, typ)
	if err != nil {
		s.fail(w, r, err, log.ComponentReport, log.OpSummary, fields)
		return
	}

	NewJSONResponse().
		Set("userId", userID).
		Set("type", typeLabel(typ)).
		Set("totalSpent", summary.TotalSpent).
		Set("categories", summary.Categories).
		Write(w)
}

func (s *Server) handleMonthlyTrend(w http.ResponseWriter, r *http.Request) {
	params, err := requiredQuery(r, "userId")
	if err != nil {
		s.fail(w, r, err, log.ComponentReport, log.OpTrend, nil)
		return
	}
	userID := params[0]
	fields := log.NewFields().WithUser(userID)

	typ, err := parseTypeFilter(r)
	if err != nil {
		s.fail(w, r, err, log.ComponentReport, log.OpTrend, fields)
		return
	}

	ctx, cancel := s.withStoreTimeout(r.Context())
	defer cancel()

	trend, err := s.reports.MonthlyTrend(ctx, userID, typ)
	if err != nil {
		s.fail(w, r, err, log.ComponentReport, log.OpTrend, fields)
		return
	}

	NewJSONResponse().
		Set("userId", userID).
		Set("type", typeLabel(typ)).
		Set("trend", trend).
		Write(w)
}
