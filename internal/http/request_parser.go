// Package http provides the JSON API server and its handlers.
//
// This file holds the request decoding helpers shared by the handlers:
// JSON body decoding, required query parameters and type filters.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"moneymonitor/internal/aggregate"
	"moneymonitor/internal/core"
)

// maxBodyBytes caps request bodies; a single expense is tiny.
const maxBodyBytes = 1 << 20

var (
	errEmptyBody    = errors.New("request body is required")
	errInvalidBody  = errors.New("invalid JSON body")
	errMissingParam = errors.New("missing required parameter")
)

// expenseRequest is the POST /expenses/add body. Amount is kept raw so
// both JSON numbers and numeric strings go through core.ParseAmount.
type expenseRequest struct {
	UserID   string          `json:"userId"`
	Item     string          `json:"item"`
	Amount   json.RawMessage `json:"amount"`
	Type     string          `json:"type"`
	Category string          `json:"category"`
	Note     string          `json:"note"`
	Source   string          `json:"source"`
	Date     string          `json:"date"`
}

// toExpense converts the body into a record. userID from the query wins
// over the body field.
func (req expenseRequest) toExpense(userID string) (core.Expense, error) {
	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		return core.Expense{}, err
	}
	if userID == "" {
		userID = strings.TrimSpace(req.UserID)
	}
	return core.Expense{
		UserID:   userID,
		Item:     sanitizeInput(req.Item),
		Amount:   amount,
		Type:     core.ExpenseType(strings.TrimSpace(req.Type)),
		Category: sanitizeInput(req.Category),
		Note:     sanitizeInput(req.Note),
		Source:   core.Source(strings.TrimSpace(req.Source)),
		Date:     strings.TrimSpace(req.Date),
	}, nil
}

// merchantSpendRequest is the POST /ai/merchant-spend body.
type merchantSpendRequest struct {
	Merchant  string `json:"merchant"`
	UserID    string `json:"userId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func (req merchantSpendRequest) dateRange() aggregate.DateRange {
	return aggregate.DateRange{
		Start: strings.TrimSpace(req.StartDate),
		End:   strings.TrimSpace(req.EndDate),
	}
}

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}

// requiredQuery returns the trimmed query parameters named in keys, or
// an error naming the first one that is missing.
func requiredQuery(r *http.Request, keys ...string) ([]string, error) {
	q := r.URL.Query()
	values := make([]string, len(keys))
	for i, k := range keys {
		v := sanitizeInput(q.Get(k))
		if v == "" {
			return nil, fmt.Errorf("%w: %s", errMissingParam, k)
		}
		values[i] = v
	}
	return values, nil
}

// parseTypeFilter reads the optional ?type= filter. Absent means all
// types; an unknown value is an error.
func parseTypeFilter(r *http.Request) (core.ExpenseType, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("type"))
	if raw == "" {
		return "", nil
	}
	t, err := core.ParseExpenseType(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, raw)
	}
	return t, nil
}

// typeLabel is the echoed type of a report: the filter or "all".
func typeLabel(t core.ExpenseType) string {
	if t == "" {
		return "all"
	}
	return string(t)
}
