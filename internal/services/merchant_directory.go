package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"moneymonitor/internal/core"
	"moneymonitor/internal/store"
)

// MerchantDirectory remembers per-user merchant categorization.
type MerchantDirectory struct {
	store store.MerchantStore
	now   func() time.Time
}

func NewMerchantDirectory(st store.MerchantStore) *MerchantDirectory {
	return &MerchantDirectory{store: st, now: time.Now}
}

// Save upserts the mapping for (userID, merchant). The latest call wins;
// createdAt is kept from the first save.
func (d *MerchantDirectory) Save(ctx context.Context, userID, merchant, category string, typ core.ExpenseType) (core.MerchantMapping, error) {
	now := d.now().UTC()
	m := core.MerchantMapping{
		UserID:          strings.TrimSpace(userID),
		NormalizedName:  core.NormalizeMerchant(merchant),
		DefaultCategory: strings.TrimSpace(category),
		DefaultType:     typ,
		CreatedAt:       now,
		LastUsed:        now,
	}
	if err := m.Validate(); err != nil {
		return core.MerchantMapping{}, fmt.Errorf("invalid merchant mapping: %w", err)
	}

	key := core.MerchantKey(m.UserID, merchant)
	prev, ok, err := d.store.GetMerchant(ctx, key)
	if err != nil {
		return core.MerchantMapping{}, fmt.Errorf("get merchant: %w", err)
	}
	if ok && !prev.CreatedAt.IsZero() {
		m.CreatedAt = prev.CreatedAt
	}

	if err := d.store.SetMerchant(ctx, key, m); err != nil {
		return core.MerchantMapping{}, fmt.Errorf("save merchant: %w", err)
	}
	return m, nil
}

// Lookup returns the saved mapping. A miss is reported through the bool,
// not as an error.
func (d *MerchantDirectory) Lookup(ctx context.Context, userID, merchant string) (core.MerchantMapping, bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return core.MerchantMapping{}, false, core.ErrMissingUser
	}
	if core.NormalizeMerchant(merchant) == "" {
		return core.MerchantMapping{}, false, core.ErrEmptyMerchant
	}
	m, ok, err := d.store.GetMerchant(ctx, core.MerchantKey(userID, merchant))
	if err != nil {
		return core.MerchantMapping{}, false, fmt.Errorf("lookup merchant: %w", err)
	}
	return m, ok, nil
}

// Categorize resolves the category and type for an incoming transaction,
// falling back to uncategorized and fallbackType on a miss.
func (d *MerchantDirectory) Categorize(ctx context.Context, userID, merchant string, fallbackType core.ExpenseType) (string, core.ExpenseType, error) {
	m, ok, err := d.Lookup(ctx, userID, merchant)
	if err != nil {
		return "", "", err
	}
	if !ok {
		return core.DefaultCategory, fallbackType, nil
	}
	return m.DefaultCategory, m.DefaultType, nil
}
