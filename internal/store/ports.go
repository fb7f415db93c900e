package store

import (
	"context"
	"errors"
	"fmt"

	"moneymonitor/internal/core"
)

// Field names a filterable expense attribute.
type Field string

const (
	FieldType           Field = "type"
	FieldNormalizedItem Field = "normalizedItem"
)

var ErrUnsupportedField = errors.New("unsupported filter field")

// Ports for outbound adapters.
type (
	ExpenseReader interface {
		// ListByUser returns every expense owned by userID in store order.
		ListByUser(ctx context.Context, userID string) ([]core.Expense, error)
		// ListByUserFiltered returns the user's expenses whose field equals value.
		ListByUserFiltered(ctx context.Context, userID string, field Field, value string) ([]core.Expense, error)
	}

	ExpenseWriter interface {
		// Insert persists a new expense and returns its generated id.
		Insert(ctx context.Context, userID string, e core.Expense) (id string, err error)
	}

	// MerchantStore reads and writes merchant mappings by document key
	// (see core.MerchantKey).
	MerchantStore interface {
		GetMerchant(ctx context.Context, key string) (core.MerchantMapping, bool, error)
		SetMerchant(ctx context.Context, key string, m core.MerchantMapping) error
	}

	Pinger interface {
		Ping(ctx context.Context) error
	}

	Store interface {
		ExpenseReader
		ExpenseWriter
		MerchantStore
		Pinger
	}
)

// Valid reports whether f can be used with ListByUserFiltered.
func (f Field) Valid() bool {
	return f == FieldType || f == FieldNormalizedItem
}

// CheckField returns a wrapped ErrUnsupportedField for unknown fields.
func CheckField(f Field) error {
	if !f.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedField, string(f))
	}
	return nil
}

// Match reports whether e carries value in field f. Adapters without
// native filtering use it.
func Match(e core.Expense, f Field, value string) bool {
	switch f {
	case FieldType:
		return string(e.Type) == value
	case FieldNormalizedItem:
		return e.NormalizedItem == value
	default:
		return false
	}
}
