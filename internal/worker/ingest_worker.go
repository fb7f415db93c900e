package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"moneymonitor/internal/amqp"
	"moneymonitor/internal/core"
	"moneymonitor/internal/log"
	"moneymonitor/internal/services"
)

type ExpenseRecorder interface {
	Add(ctx context.Context, e core.Expense) (core.Expense, error)
}

type Categorizer interface {
	Categorize(ctx context.Context, userID, merchant string, fallbackType core.ExpenseType) (string, core.ExpenseType, error)
}

// IngestWorker turns SMS transactions into stored expenses, categorized
// through the user's merchant mappings.
type IngestWorker struct {
	expenses    ExpenseRecorder
	directory   Categorizer
	defaultType core.ExpenseType
	timeout     time.Duration
	logger      *log.Logger
}

func NewIngestWorker(expenses ExpenseRecorder, directory Categorizer, defaultType core.ExpenseType, timeout time.Duration, logger *log.Logger) *IngestWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &IngestWorker{
		expenses:    expenses,
		directory:   directory,
		defaultType: defaultType,
		timeout:     timeout,
		logger:      logger.WithComponent(log.ComponentWorker),
	}
}

// HandleSMSExpense processes one message. Errors wrapping amqp.ErrDiscard
// mean the message can never succeed.
func (w *IngestWorker) HandleSMSExpense(ctx context.Context, msg *amqp.SMSExpense) error {
	if strings.TrimSpace(msg.UserID) == "" {
		return fmt.Errorf("%w: %w", amqp.ErrDiscard, core.ErrMissingUser)
	}
	if strings.TrimSpace(msg.Merchant) == "" {
		return fmt.Errorf("%w: %w", amqp.ErrDiscard, core.ErrEmptyMerchant)
	}
	amount, err := core.ParseAmount(string(msg.Amount))
	if err != nil {
		return fmt.Errorf("%w: amount %s: %w", amqp.ErrDiscard, string(msg.Amount), err)
	}

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	category, typ, err := w.directory.Categorize(ctx, msg.UserID, msg.Merchant, w.defaultType)
	if err != nil {
		return fmt.Errorf("categorize: %w", err)
	}

	e, err := w.expenses.Add(ctx, core.Expense{
		UserID:   msg.UserID,
		Item:     msg.Merchant,
		Amount:   amount,
		Type:     typ,
		Category: category,
		Note:     msg.Note,
		Source:   core.SourceSMS,
		Date:     msg.Date,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidExpense) {
			return fmt.Errorf("%w: %w", amqp.ErrDiscard, err)
		}
		return err
	}

	w.logger.InfoContext(ctx, "Ingested SMS expense",
		log.FieldUserID, e.UserID,
		log.FieldExpenseID, e.ID,
		log.FieldMerchant, e.Item,
		log.FieldCategory, e.Category,
		log.FieldType, string(e.Type),
		log.FieldOperation, log.OpIngest)
	return nil
}
