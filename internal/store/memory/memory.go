// Package memory is an in-process document store used by tests and local
// runs. Data does not survive a restart.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"moneymonitor/internal/core"
	"moneymonitor/internal/store"
)

type Store struct {
	mu        sync.Mutex
	expenses  map[string][]core.Expense
	merchants map[string]core.MerchantMapping
	now       func() time.Time
}

func New() *Store {
	return &Store{
		expenses:  map[string][]core.Expense{},
		merchants: map[string]core.MerchantMapping{},
		now:       time.Now,
	}
}

type seedFile struct {
	Expenses  []core.Expense                  `json:"expenses"`
	Merchants map[string]core.MerchantMapping `json:"merchants"`
}

// NewFromFiles builds a store seeded from base/seed.json when present.
// A missing file yields an empty store; invalid records are skipped.
func NewFromFiles(base string) (*Store, error) {
	s := New()
	b, err := os.ReadFile(filepath.Join(base, "seed.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var seed seedFile
	if err := json.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	for _, e := range seed.Expenses {
		e.Normalize()
		if e.Validate() != nil {
			continue
		}
		_, _ = s.Insert(context.Background(), e.UserID, e)
	}
	for key, m := range seed.Merchants {
		if m.Validate() != nil {
			continue
		}
		s.merchants[key] = m
	}
	return s, nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]core.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense(nil), s.expenses[userID]...), nil
}

func (s *Store) ListByUserFiltered(ctx context.Context, userID string, field store.Field, value string) ([]core.Expense, error) {
	if err := store.CheckField(field); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.expenses[userID] {
		if store.Match(e, field, value) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Insert stores a copy of e under userID with a fresh id.
func (s *Store) Insert(ctx context.Context, userID string, e core.Expense) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.ID = uuid.NewString()
	e.UserID = userID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses[userID] = append(s.expenses[userID], e)
	return e.ID, nil
}

func (s *Store) GetMerchant(ctx context.Context, key string) (core.MerchantMapping, bool, error) {
	if err := ctx.Err(); err != nil {
		return core.MerchantMapping{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.merchants[key]
	return m, ok, nil
}

func (s *Store) SetMerchant(ctx context.Context, key string, m core.MerchantMapping) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merchants[key] = m
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }
