package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"moneymonitor/internal/core"
	"moneymonitor/internal/store"
)

const (
	expensesCollection  = "expenses"
	merchantsCollection = "merchants"
)

type expenseDoc struct {
	ID             primitive.ObjectID `bson:"_id"`
	UserID         string             `bson:"user_id"`
	Item           string             `bson:"item"`
	NormalizedItem string             `bson:"normalized_item"`
	Amount         float64            `bson:"amount"`
	Type           string             `bson:"type"`
	Category       string             `bson:"category"`
	Note           string             `bson:"note"`
	Source         string             `bson:"source"`
	Date           string             `bson:"date"`
	CreatedAt      time.Time          `bson:"created_at"`
}

type merchantDoc struct {
	Key             string    `bson:"_id"`
	UserID          string    `bson:"user_id"`
	NormalizedName  string    `bson:"normalized_name"`
	DefaultCategory string    `bson:"default_category"`
	DefaultType     string    `bson:"default_type"`
	CreatedAt       time.Time `bson:"created_at"`
	LastUsed        time.Time `bson:"last_used"`
}

// Repository implements store.Store over two collections.
type Repository struct {
	expenses  *mongo.Collection
	merchants *mongo.Collection
	now       func() time.Time
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{
		expenses:  db.Collection(expensesCollection),
		merchants: db.Collection(merchantsCollection),
		now:       time.Now,
	}
}

// EnsureIndexes creates the indexes the list queries rely on.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "type", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "normalized_item", Value: 1}}},
	}
	if _, err := r.expenses.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create expense indexes: %w", err)
	}
	if _, err := r.merchants.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}},
	}); err != nil {
		return fmt.Errorf("failed to create merchant indexes: %w", err)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.expenses.Database().Client().Ping(ctx, readpref.Primary())
}

func (r *Repository) Insert(ctx context.Context, userID string, e core.Expense) (string, error) {
	doc := toExpenseDoc(e)
	doc.ID = primitive.NewObjectID()
	doc.UserID = userID
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = r.now().UTC()
	}
	if _, err := r.expenses.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to insert expense: %w", err)
	}
	return doc.ID.Hex(), nil
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]core.Expense, error) {
	return r.find(ctx, bson.M{"user_id": userID})
}

func (r *Repository) ListByUserFiltered(ctx context.Context, userID string, field store.Field, value string) ([]core.Expense, error) {
	var key string
	switch field {
	case store.FieldType:
		key = "type"
	case store.FieldNormalizedItem:
		key = "normalized_item"
	default:
		return nil, store.CheckField(field)
	}
	return r.find(ctx, bson.M{"user_id": userID, key: value})
}

func (r *Repository) find(ctx context.Context, filter bson.M) ([]core.Expense, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.expenses.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []expenseDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode expenses: %w", err)
	}
	out := make([]core.Expense, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toExpense())
	}
	return out, nil
}

func (r *Repository) GetMerchant(ctx context.Context, key string) (core.MerchantMapping, bool, error) {
	var doc merchantDoc
	err := r.merchants.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.MerchantMapping{}, false, nil
	}
	if err != nil {
		return core.MerchantMapping{}, false, fmt.Errorf("failed to get merchant: %w", err)
	}
	return doc.toMapping(), true, nil
}

// SetMerchant replaces the mapping stored under key, inserting it when absent.
func (r *Repository) SetMerchant(ctx context.Context, key string, m core.MerchantMapping) error {
	doc := merchantDoc{
		Key:             key,
		UserID:          m.UserID,
		NormalizedName:  m.NormalizedName,
		DefaultCategory: m.DefaultCategory,
		DefaultType:     string(m.DefaultType),
		CreatedAt:       m.CreatedAt,
		LastUsed:        m.LastUsed,
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.merchants.ReplaceOne(ctx, bson.M{"_id": key}, doc, opts); err != nil {
		return fmt.Errorf("failed to save merchant: %w", err)
	}
	return nil
}

func toExpenseDoc(e core.Expense) expenseDoc {
	return expenseDoc{
		UserID:         e.UserID,
		Item:           e.Item,
		NormalizedItem: e.NormalizedItem,
		Amount:         e.Amount,
		Type:           string(e.Type),
		Category:       e.Category,
		Note:           e.Note,
		Source:         string(e.Source),
		Date:           e.Date,
		CreatedAt:      e.CreatedAt,
	}
}

func (d expenseDoc) toExpense() core.Expense {
	return core.Expense{
		ID:             d.ID.Hex(),
		Item:           d.Item,
		NormalizedItem: d.NormalizedItem,
		Amount:         d.Amount,
		Type:           core.ExpenseType(d.Type),
		Category:       d.Category,
		Note:           d.Note,
		Source:         core.Source(d.Source),
		Date:           d.Date,
		UserID:         d.UserID,
		CreatedAt:      d.CreatedAt,
	}
}

func (d merchantDoc) toMapping() core.MerchantMapping {
	return core.MerchantMapping{
		UserID:          d.UserID,
		NormalizedName:  d.NormalizedName,
		DefaultCategory: d.DefaultCategory,
		DefaultType:     core.ExpenseType(d.DefaultType),
		CreatedAt:       d.CreatedAt,
		LastUsed:        d.LastUsed,
	}
}
