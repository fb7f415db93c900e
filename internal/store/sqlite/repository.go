// Package sqlite stores expense and merchant documents in an embedded
// SQLite database. Each row keeps the JSON document next to the columns
// the store filters on.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"moneymonitor/internal/core"
	"moneymonitor/internal/store"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	return &Repository{db: db, now: time.Now}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Insert(ctx context.Context, userID string, e core.Expense) (string, error) {
	e.ID = uuid.NewString()
	e.UserID = userID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode expense: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, user_id, type, normalized_item, date, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, userID, string(e.Type), e.NormalizedItem, e.Date, string(data),
		e.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("insert expense: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"user_id", userID,
		"item", e.Item,
		"amount", e.Amount)
	return e.ID, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, data FROM expenses WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	return scanExpenses(rows)
}

func (r *Repository) ListByUserFiltered(ctx context.Context, userID string, field store.Field, value string) ([]core.Expense, error) {
	var q string
	switch field {
	case store.FieldType:
		q = `SELECT id, data FROM expenses WHERE user_id = ? AND type = ? ORDER BY rowid`
	case store.FieldNormalizedItem:
		q = `SELECT id, data FROM expenses WHERE user_id = ? AND normalized_item = ? ORDER BY rowid`
	default:
		return nil, store.CheckField(field)
	}
	rows, err := r.db.QueryContext(ctx, q, userID, value)
	if err != nil {
		return nil, fmt.Errorf("query expenses by %s: %w", field, err)
	}
	return scanExpenses(rows)
}

func scanExpenses(rows *sql.Rows) ([]core.Expense, error) {
	defer rows.Close()
	var out []core.Expense
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		var e core.Expense
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return nil, fmt.Errorf("decode expense %s: %w", id, err)
		}
		e.ID = id
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

func (r *Repository) GetMerchant(ctx context.Context, key string) (core.MerchantMapping, bool, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM merchants WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MerchantMapping{}, false, nil
	}
	if err != nil {
		return core.MerchantMapping{}, false, fmt.Errorf("get merchant: %w", err)
	}
	var m core.MerchantMapping
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return core.MerchantMapping{}, false, fmt.Errorf("decode merchant %s: %w", key, err)
	}
	return m, true, nil
}

func (r *Repository) SetMerchant(ctx context.Context, key string, m core.MerchantMapping) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode merchant: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO merchants (key, user_id, data, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET user_id = excluded.user_id, data = excluded.data, updated_at = excluded.updated_at`,
		key, m.UserID, string(data), r.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert merchant: %w", err)
	}
	return nil
}
