// Package aggregate computes derived reports over a user's expense
// records. Every function is pure: records in, aggregate out.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"moneymonitor/internal/core"
)

type (
	Totals struct {
		Total    float64 `json:"total"`
		Personal float64 `json:"personal"`
		Business float64 `json:"business"`
	}

	CategoryStat struct {
		Total      float64 `json:"total"`
		Count      int     `json:"count"`
		Percentage float64 `json:"percentage"`
	}

	CategorySummary struct {
		TotalSpent float64                 `json:"totalSpent"`
		Categories map[string]CategoryStat `json:"categories"`
	}

	MonthStat struct {
		Total float64 `json:"total"`
		Count int     `json:"count"`
	}

	// MonthlyTrend maps a "YYYY-MM" key to the month's spend.
	MonthlyTrend map[string]MonthStat

	// DateRange bounds a report. It only applies when both ends are set.
	DateRange struct {
		Start string
		End   string
	}

	MerchantExpense struct {
		Date     string  `json:"date"`
		Amount   float64 `json:"amount"`
		Category string  `json:"category"`
		Note     string  `json:"note"`
	}

	MerchantSpendReport struct {
		Merchant         string             `json:"merchant"`
		TotalSpent       float64            `json:"totalSpent"`
		TransactionCount int                `json:"transactionCount"`
		ByCategory       map[string]float64 `json:"byCategory"`
		Expenses         []MerchantExpense  `json:"expenses"`
	}
)

var hundred = decimal.NewFromInt(100)

// Round2 rounds v to two decimals, half away from zero.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func amountOf(e core.Expense) decimal.Decimal {
	return decimal.NewFromFloat(e.Amount)
}

// ComputeTotals sums all records plus the personal and business subsets.
// Records of any other type count toward Total only.
func ComputeTotals(records []core.Expense) Totals {
	var total, personal, business decimal.Decimal
	for _, e := range records {
		a := amountOf(e)
		total = total.Add(a)
		switch e.Type {
		case core.Personal:
			personal = personal.Add(a)
		case core.Business:
			business = business.Add(a)
		}
	}
	return Totals{
		Total:    total.InexactFloat64(),
		Personal: personal.InexactFloat64(),
		Business: business.InexactFloat64(),
	}
}

// ComputeCategorySummary groups records by category. An empty typeFilter
// keeps every record.
func ComputeCategorySummary(records []core.Expense, typeFilter core.ExpenseType) CategorySummary {
	totals := map[string]decimal.Decimal{}
	counts := map[string]int{}
	var grand decimal.Decimal
	for _, e := range records {
		if typeFilter != "" && e.Type != typeFilter {
			continue
		}
		cat := e.CategoryOrDefault()
		a := amountOf(e)
		totals[cat] = totals[cat].Add(a)
		counts[cat]++
		grand = grand.Add(a)
	}

	out := CategorySummary{
		TotalSpent: Round2(grand.InexactFloat64()),
		Categories: make(map[string]CategoryStat, len(totals)),
	}
	for cat, t := range totals {
		pct := 0.0
		if !grand.IsZero() {
			pct = Round2(t.Div(grand).Mul(hundred).InexactFloat64())
		}
		out.Categories[cat] = CategoryStat{
			Total:      t.InexactFloat64(),
			Count:      counts[cat],
			Percentage: pct,
		}
	}
	return out
}

// ComputeMonthlyTrend buckets records by the "YYYY-MM" prefix of their
// date. Records without a usable month prefix are skipped.
func ComputeMonthlyTrend(records []core.Expense, typeFilter core.ExpenseType) MonthlyTrend {
	sums := map[string]decimal.Decimal{}
	counts := map[string]int{}
	for _, e := range records {
		if typeFilter != "" && e.Type != typeFilter {
			continue
		}
		month, ok := monthKey(e.Date)
		if !ok {
			continue
		}
		sums[month] = sums[month].Add(amountOf(e))
		counts[month]++
	}

	trend := make(MonthlyTrend, len(sums))
	for m, s := range sums {
		trend[m] = MonthStat{Total: s.InexactFloat64(), Count: counts[m]}
	}
	return trend
}

// Months returns the trend keys in ascending order.
func (t MonthlyTrend) Months() []string {
	months := make([]string, 0, len(t))
	for m := range t {
		months = append(months, m)
	}
	sort.Strings(months)
	return months
}

func monthKey(date string) (string, bool) {
	if len(date) < 7 {
		return "", false
	}
	m := date[:7]
	for i := 0; i < 7; i++ {
		c := m[i]
		if i == 4 {
			if c != '-' {
				return "", false
			}
			continue
		}
		if c < '0' || c > '9' {
			return "", false
		}
	}
	if m[5:] < "01" || m[5:] > "12" {
		return "", false
	}
	return m, true
}

// ComputeMerchantSpend reports spend on one merchant, matched
// case-insensitively against the record item. Date bounds are compared
// lexically, so ISO dates order correctly.
func ComputeMerchantSpend(records []core.Expense, merchant string, r DateRange) MerchantSpendReport {
	want := core.NormalizeMerchant(merchant)
	bounded := r.Start != "" && r.End != ""

	byCat := map[string]decimal.Decimal{}
	var total decimal.Decimal
	out := MerchantSpendReport{
		Merchant: merchant,
		Expenses: []MerchantExpense{},
	}
	for _, e := range records {
		if core.NormalizeMerchant(e.Item) != want {
			continue
		}
		if bounded && (e.Date < r.Start || e.Date > r.End) {
			continue
		}
		a := amountOf(e)
		cat := e.CategoryOrDefault()
		total = total.Add(a)
		byCat[cat] = byCat[cat].Add(a)
		out.Expenses = append(out.Expenses, MerchantExpense{
			Date:     e.Date,
			Amount:   e.Amount,
			Category: cat,
			Note:     e.Note,
		})
	}

	out.TotalSpent = Round2(total.InexactFloat64())
	out.TransactionCount = len(out.Expenses)
	out.ByCategory = make(map[string]float64, len(byCat))
	for cat, s := range byCat {
		out.ByCategory[cat] = s.InexactFloat64()
	}
	return out
}
