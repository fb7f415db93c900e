package http

import (
	"net/http"

	"moneymonitor/internal/log"
)

// handleAddExpense records one expense from the JSON body. The owner comes
// from ?userId=, falling back to the body's userId.
func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	userID := sanitizeInput(r.URL.Query().Get("userId"))

	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err, log.ComponentExpense, log.OpCreate, log.NewFields().WithUser(userID))
		return
	}
	e, err := req.toExpense(userID)
	if err != nil {
		s.fail(w, r, err, log.ComponentExpense, log.OpCreate, log.NewFields().WithUser(userID))
		return
	}

	ctx, cancel := s.withStoreTimeout(r.Context())
	defer cancel()

	saved, err := s.expenses.Add(ctx, e)
	if err != nil {
		s.fail(w, r, err, log.ComponentExpense, log.OpCreate, log.NewFields().WithUser(e.UserID))
		return
	}

	NewJSONResponse().
		Message("Expense added successfully").
		Set("expenseId", saved.ID).
		Write(w)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	fields := log.NewFields().WithUser(userID)

	typ, err := parseTypeFilter(r)
	if err != nil {
		s.fail(w, r, err, log.ComponentExpense, log.OpList, fields)
		return
	}

	ctx, cancel := s.withStoreTimeout(r.Context())
	defer cancel()

	expenses, err := s.expenses.List(ctx, userID, typ)
	if err != nil {
		s.fail(w, r, err, log.ComponentExpense, log.OpList, fields)
		return
	}

	NewJSONResponse().
		Set("count", len(expenses)).
		Set("expenses", expenses).
		Write(w)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	ctx, cancel := s.withStoreTimeout(r.Context())
	defer cancel()

	totals, err := s.expenses.Totals(ctx, userID)
	if err != nil {
		s.fail(w, r, err, log.ComponentExpense, log.OpTotals, log.NewFields().WithUser(userID))
		return
	}

	NewJSONResponse().
		Set("userId", userID).
		Set("totals", totals).
		Write(w)
}
