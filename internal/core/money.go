// Package core provides money parsing and handling utilities.
//
// This file contains the amount validation applied at the record
// ingestion boundary. Aggregation code assumes amounts passed it.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// maxAmount bounds a single record; larger values are almost certainly
// input mistakes (pasted account numbers and the like).
const maxAmount = 1e12

// ParseAmount converts a decimal string to a non-negative amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an
// optional pair of surrounding JSON quotes. Exponent notation (1e2) is
// accepted as JSON encoders emit it. Signs and anything non-numeric are
// rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("150.50") -> 150.5, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("1e2")    -> 100, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Any non-zero coefficient scaled past 1e12 is over the cap; stop
	// before materializing huge exponents.
	if !d.IsZero() && d.Exponent() > 12 {
		return 0, ErrInvalidAmount
	}
	v := d.InexactFloat64()
	if err := ValidateAmount(v); err != nil {
		return 0, err
	}
	return v, nil
}

// ValidateAmount rejects negative, non-finite and absurdly large amounts.
// Zero is allowed.
func ValidateAmount(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ErrInvalidAmount
	}
	if v < 0 || v > maxAmount {
		return ErrInvalidAmount
	}
	return nil
}
