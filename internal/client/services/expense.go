package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/client/models"
	"github.com/dmitrijs2005/spendsync/internal/client/storage"
	"github.com/dmitrijs2005/spendsync/internal/common"
	"github.com/dmitrijs2005/spendsync/internal/logging"
	"github.com/dmitrijs2005/spendsync/internal/timex"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type NewExpense struct {
	Amount      decimal.Decimal
	Category    string
	Description string
	// Date is a calendar day, YYYY-MM-DD.
	Date string
}

// Evaluator re-checks budgets after spending changed. *BudgetService
// implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, now time.Time) ([]models.Alert, error)
}

// ExpenseService writes one owner's expenses to the local store first and
// propagates them opportunistically.
type ExpenseService struct {
	owner   string
	store   *storage.Store
	sync    Syncer
	budgets Evaluator
	log     logging.Logger
	now     Clock
}

func NewExpenseService(store *storage.Store, sync Syncer, budgets Evaluator, log logging.Logger, clock Clock) *ExpenseService {
	if log == nil {
		log = logging.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	return &ExpenseService{
		owner:   sync.OwnerID(),
		store:   store,
		sync:    sync,
		budgets: budgets,
		log:     log.With("module", "expenses", "owner", sync.OwnerID()),
		now:     clock,
	}
}

// changed runs after every successful mutation.
func (s *ExpenseService) changed(ctx context.Context) {
	s.sync.PushInBackground()

	if s.budgets == nil {
		return
	}
	if _, err := s.budgets.Evaluate(ctx, s.now()); err != nil {
		s.log.Warn(ctx, "budget evaluation failed", "error", err)
	}
}

func (s *ExpenseService) Create(ctx context.Context, in NewExpense) (models.Expense, error) {
	now := s.now()
	e := models.Expense{
		ID:          uuid.NewString(),
		OwnerID:     s.owner,
		Amount:      in.Amount,
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		Date:        in.Date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Validate(); err != nil {
		return models.Expense{}, err
	}
	if err := s.store.Expenses.Put(ctx, e); err != nil {
		return models.Expense{}, err
	}

	s.changed(ctx)
	return e, nil
}

func (s *ExpenseService) List(ctx context.Context) ([]models.Expense, error) {
	return s.store.Expenses.GetAll(ctx, s.owner)
}

// ListByRange lists expenses dated within [start, end], both inclusive.
func (s *ExpenseService) ListByRange(ctx context.Context, start, end string) ([]models.Expense, error) {
	for _, d := range []string{start, end} {
		if _, err := timex.ParseDate(d); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
		}
	}
	if start > end {
		return nil, fmt.Errorf("%w: range starts after it ends", common.ErrValidation)
	}
	return s.store.Expenses.GetByRange(ctx, s.owner, start, end)
}

func (s *ExpenseService) Get(ctx context.Context, id string) (models.Expense, error) {
	return s.store.Expenses.Get(ctx, s.owner, id)
}

func (s *ExpenseService) Update(ctx context.Context, id string, patch models.ExpensePatch) (models.Expense, error) {
	current, err := s.store.Expenses.Get(ctx, s.owner, id)
	if err != nil {
		return models.Expense{}, err
	}
	patch.Apply(&current)
	if err := current.Validate(); err != nil {
		return models.Expense{}, err
	}

	updated, err := s.store.Expenses.Update(ctx, s.owner, id, patch, s.now())
	if err != nil {
		return models.Expense{}, err
	}

	s.changed(ctx)
	return updated, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	if _, err := s.store.Expenses.Get(ctx, s.owner, id); err != nil {
		return err
	}
	if err := s.sync.DeleteRecord(ctx, common.CollectionExpenses, id); err != nil {
		return err
	}

	s.changed(ctx)
	return nil
}

func (s *ExpenseService) Stats(ctx context.Context) (models.Stats, error) {
	return s.store.Expenses.Aggregate(ctx, s.owner)
}
