package amqp

import (
	"encoding/json"
	"time"

	"moneymonitor/internal/core"
)

// ExpenseRecorded is published after an expense has been stored.
type ExpenseRecorded struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Item      string    `json:"item"`
	Amount    float64   `json:"amount"`
	Type      string    `json:"type"`
	Category  string    `json:"category"`
	Source    string    `json:"source"`
	Date      string    `json:"date"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseRecorded(e core.Expense) *ExpenseRecorded {
	return &ExpenseRecorded{
		ID:        e.ID,
		UserID:    e.UserID,
		Item:      e.Item,
		Amount:    e.Amount,
		Type:      string(e.Type),
		Category:  e.Category,
		Source:    string(e.Source),
		Date:      e.Date,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ExpenseRecorded) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SMSExpense is a transaction parsed from a bank SMS by an upstream
// reader. Amount is kept raw so the consumer applies the same parsing
// rules as the HTTP surface.
type SMSExpense struct {
	UserID   string          `json:"userId"`
	Merchant string          `json:"merchant"`
	Amount   json.RawMessage `json:"amount"`
	Note     string          `json:"note,omitempty"`
	Date     string          `json:"date,omitempty"`
}

func (m *SMSExpense) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SMSExpenseFromJSON(data []byte) (*SMSExpense, error) {
	var msg SMSExpense
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
