package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"moneymonitor/internal/aggregate"
	"moneymonitor/internal/amqp"
	"moneymonitor/internal/core"
	"moneymonitor/internal/log"
	"moneymonitor/internal/store"
)

// ErrInvalidExpense wraps every validation failure returned by Add.
var ErrInvalidExpense = errors.New("invalid expense")

// EventPublisher announces stored expenses to other consumers.
type EventPublisher interface {
	PublishExpenseRecorded(ctx context.Context, msg *amqp.ExpenseRecorded) error
}

type ExpenseStore interface {
	store.ExpenseReader
	store.ExpenseWriter
}

// ExpenseService records and lists expenses and optionally publishes an
// event per recorded expense.
type ExpenseService struct {
	store     ExpenseStore
	publisher EventPublisher
	logger    *log.StructuredLogger
	now       func() time.Time
}

// NewExpenseService wires the service. publisher may be nil.
func NewExpenseService(st ExpenseStore, publisher EventPublisher, logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ExpenseService{
		store:     st,
		publisher: publisher,
		logger:    log.NewStructuredLogger(logger),
		now:       time.Now,
	}
}

// Add normalizes, validates and stores e. A missing date is set to the
// server clock. The returned expense carries the store-assigned id.
func (s *ExpenseService) Add(ctx context.Context, e core.Expense) (core.Expense, error) {
	now := s.now()
	e.Date = strings.TrimSpace(e.Date)
	if e.Date == "" {
		e.Date = now.Format(core.DateTimeLayout)
	}
	e.CreatedAt = now.UTC()
	e.Normalize()
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("%w: %w", ErrInvalidExpense, err)
	}

	id, err := s.store.Insert(ctx, e.UserID, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	e.ID = id

	s.logger.LogExpenseCreated(ctx, e.UserID, e.ID, e.Item, e.Amount, string(e.Type), e.Category, string(e.Source))
	s.publish(ctx, e)
	return e, nil
}

// publish never fails the caller; the expense is already stored.
func (s *ExpenseService) publish(ctx context.Context, e core.Expense) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExpenseRecorded(ctx, amqp.NewExpenseRecorded(e)); err != nil {
		s.logger.LogError(ctx, "Failed to publish expense event", err, log.ComponentAMQP, log.OpPublish,
			log.NewFields().WithUser(e.UserID))
	}
}

// List returns the user's expenses newest first. A non-empty typ keeps
// only that type.
func (s *ExpenseService) List(ctx context.Context, userID string, typ core.ExpenseType) ([]core.Expense, error) {
	records, err := s.records(ctx, userID, typ)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date > records[j].Date
	})
	return records, nil
}

func (s *ExpenseService) Totals(ctx context.Context, userID string) (aggregate.Totals, error) {
	records, err := s.records(ctx, userID, "")
	if err != nil {
		return aggregate.Totals{}, err
	}
	return aggregate.ComputeTotals(records), nil
}

func (s *ExpenseService) records(ctx context.Context, userID string, typ core.ExpenseType) ([]core.Expense, error) {
	return loadRecords(ctx, s.store, userID, typ)
}

func loadRecords(ctx context.Context, r store.ExpenseReader, userID string, typ core.ExpenseType) ([]core.Expense, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, core.ErrMissingUser
	}
	if typ != "" && !typ.Valid() {
		return nil, core.ErrInvalidType
	}

	var (
		records []core.Expense
		err     error
	)
	if typ == "" {
		records, err = r.ListByUser(ctx, userID)
	} else {
		records, err = r.ListByUserFiltered(ctx, userID, store.FieldType, string(typ))
	}
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	if records == nil {
		records = []core.Expense{}
	}
	return records, nil
}
