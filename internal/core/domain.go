package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Personal ExpenseType = "personal"
	Business ExpenseType = "business"
)

const (
	SourceManual Source = "manual"
	SourceSMS    Source = "sms"
)

// DefaultCategory is used when a record carries no category.
const DefaultCategory = "uncategorized"

// DateTimeLayout is the format of server-assigned record dates.
const DateTimeLayout = "2006-01-02T15:04:05.000000"

type (
	ExpenseType string

	Source string

	// Expense is one persisted expense entry owned by a single user.
	Expense struct {
		ID             string      `json:"id,omitempty"`
		Item           string      `json:"item"`
		NormalizedItem string      `json:"normalizedItem,omitempty"`
		Amount         float64     `json:"amount"`
		Type           ExpenseType `json:"type"`
		Category       string      `json:"category"`
		Note           string      `json:"note"`
		Source         Source      `json:"source"`
		Date           string      `json:"date"`
		UserID         string      `json:"userId"`
		CreatedAt      time.Time   `json:"createdAt"`
	}

	// MerchantMapping remembers the default category and type a user
	// assigned to a merchant.
	MerchantMapping struct {
		UserID          string      `json:"userId"`
		NormalizedName  string      `json:"normalizedName"`
		DefaultCategory string      `json:"defaultCategory"`
		DefaultType     ExpenseType `json:"defaultType"`
		CreatedAt       time.Time   `json:"createdAt"`
		LastUsed        time.Time   `json:"lastUsed"`
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyItem     = errors.New("empty item")
	ErrInvalidType   = errors.New("invalid expense type")
	ErrInvalidSource = errors.New("invalid expense source")
	ErrInvalidDate   = errors.New("invalid date: expected ISO-8601 (YYYY-MM-DD)")
	ErrMissingUser   = errors.New("missing user id")
	ErrEmptyMerchant = errors.New("empty merchant name")
	ErrEmptyCategory = errors.New("empty category")
)

// Valid reports whether t is one of the known expense types.
func (t ExpenseType) Valid() bool {
	switch t {
	case Personal, Business:
		return true
	default:
		return false
	}
}

func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceSMS:
		return true
	default:
		return false
	}
}

// ParseExpenseType validates a raw type string.
func ParseExpenseType(s string) (ExpenseType, error) {
	t := ExpenseType(strings.TrimSpace(s))
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}

// NormalizeMerchant trims and lowercases a merchant name for key matching.
func NormalizeMerchant(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// MerchantKey returns the document key of a user's merchant mapping.
func MerchantKey(userID, merchant string) string {
	return userID + "_" + NormalizeMerchant(merchant)
}

// IsISODate reports whether s starts with a YYYY-MM-DD calendar date,
// optionally followed by a 'T' or space separated time part.
func IsISODate(s string) bool {
	if len(s) < 10 {
		return false
	}
	if _, err := time.Parse("2006-01-02", s[:10]); err != nil {
		return false
	}
	if len(s) == 10 {
		return true
	}
	return s[10] == 'T' || s[10] == ' '
}

// CategoryOrDefault returns the record category, falling back to
// DefaultCategory when it is empty.
func (e Expense) CategoryOrDefault() string {
	if e.Category == "" {
		return DefaultCategory
	}
	return e.Category
}

// Normalize fills ingestion defaults: category, source and the
// lowercase item used for merchant matching.
func (e *Expense) Normalize() {
	e.Item = strings.TrimSpace(e.Item)
	e.Category = strings.TrimSpace(e.Category)
	if e.Category == "" {
		e.Category = DefaultCategory
	}
	if e.Source == "" {
		e.Source = SourceManual
	}
	e.NormalizedItem = NormalizeMerchant(e.Item)
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return ErrMissingUser
	}
	if strings.TrimSpace(e.Item) == "" {
		return ErrEmptyItem
	}
	if len(e.Item) > 200 {
		return errors.New("item too long (max 200 characters)")
	}
	if err := ValidateAmount(e.Amount); err != nil {
		return err
	}
	if !e.Type.Valid() {
		return ErrInvalidType
	}
	if !e.Source.Valid() {
		return ErrInvalidSource
	}
	if !IsISODate(e.Date) {
		return ErrInvalidDate
	}
	if len(e.Note) > 500 {
		return errors.New("note too long (max 500 characters)")
	}
	return nil
}

func (m MerchantMapping) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return ErrMissingUser
	}
	if strings.TrimSpace(m.NormalizedName) == "" {
		return ErrEmptyMerchant
	}
	if strings.TrimSpace(m.DefaultCategory) == "" {
		return ErrEmptyCategory
	}
	if !m.DefaultType.Valid() {
		return ErrInvalidType
	}
	return nil
}
