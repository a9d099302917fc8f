package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/client/budget"
	"github.com/dmitrijs2005/spendsync/internal/client/models"
	"github.com/dmitrijs2005/spendsync/internal/client/notify"
	"github.com/dmitrijs2005/spendsync/internal/client/storage"
	"github.com/dmitrijs2005/spendsync/internal/common"
	"github.com/dmitrijs2005/spendsync/internal/logging"
	"github.com/dmitrijs2005/spendsync/internal/timex"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultAlertWindow is the recency window used when none is configured.
const DefaultAlertWindow = 24 * time.Hour

type NewBudget struct {
	Name             string
	Amount           decimal.Decimal
	Period           models.Period
	Category         string
	WarningThreshold int
}

type BudgetOptions struct {
	Notifier notify.Notifier
	// AlertWindow suppresses a repeated alert of the same kind for a budget.
	AlertWindow time.Duration
	Logger      logging.Logger
	Clock       Clock
}

// BudgetService manages one owner's budgets and turns spending into alerts.
type BudgetService struct {
	owner    string
	store    *storage.Store
	sync     Syncer
	notifier notify.Notifier
	window   time.Duration
	log      logging.Logger
	now      Clock
}

func NewBudgetService(store *storage.Store, sync Syncer, opts BudgetOptions) *BudgetService {
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.AlertWindow <= 0 {
		opts.AlertWindow = DefaultAlertWindow
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &BudgetService{
		owner:    sync.OwnerID(),
		store:    store,
		sync:     sync,
		notifier: opts.Notifier,
		window:   opts.AlertWindow,
		log:      opts.Logger.With("module", "budgets", "owner", sync.OwnerID()),
		now:      opts.Clock,
	}
}

func (s *BudgetService) Create(ctx context.Context, in NewBudget) (models.Budget, error) {
	now := s.now()
	b := models.Budget{
		ID:               uuid.NewString(),
		OwnerID:          s.owner,
		Name:             strings.TrimSpace(in.Name),
		Amount:           in.Amount,
		Period:           in.Period,
		Category:         strings.TrimSpace(in.Category),
		Enabled:          true,
		WarningThreshold: in.WarningThreshold,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := b.Validate(); err != nil {
		return models.Budget{}, err
	}
	if err := s.store.Budgets.Put(ctx, b); err != nil {
		return models.Budget{}, err
	}

	s.sync.PushInBackground()
	return b, nil
}

func (s *BudgetService) List(ctx context.Context) ([]models.Budget, error) {
	return s.store.Budgets.GetAll(ctx, s.owner)
}

func (s *BudgetService) Get(ctx context.Context, id string) (models.Budget, error) {
	return s.store.Budgets.Get(ctx, s.owner, id)
}

func (s *BudgetService) Update(ctx context.Context, id string, patch models.BudgetPatch) (models.Budget, error) {
	current, err := s.store.Budgets.Get(ctx, s.owner, id)
	if err != nil {
		return models.Budget{}, err
	}
	patch.Apply(&current)
	if err := current.Validate(); err != nil {
		return models.Budget{}, err
	}

	updated, err := s.store.Budgets.Update(ctx, s.owner, id, patch, s.now())
	if err != nil {
		return models.Budget{}, err
	}

	s.sync.PushInBackground()
	return updated, nil
}

// Delete removes the budget together with its alerts, locally and remotely.
func (s *BudgetService) Delete(ctx context.Context, id string) error {
	if _, err := s.store.Budgets.Get(ctx, s.owner, id); err != nil {
		return err
	}
	return s.sync.DeleteRecord(ctx, common.CollectionBudgets, id)
}

// periodExpenses loads the expenses that can fall into any budget's current
// period.
func (s *BudgetService) periodExpenses(ctx context.Context, budgets []models.Budget, now time.Time) ([]models.Expense, error) {
	if len(budgets) == 0 {
		return nil, nil
	}
	earliest := now
	for _, b := range budgets {
		if start := budget.PeriodStart(now, b.Period); start.Before(earliest) {
			earliest = start
		}
	}
	return s.store.Expenses.GetByRange(ctx, s.owner, timex.FormatDate(earliest), timex.FormatDate(now))
}

// Evaluate checks every enabled budget against spending up to now and
// stores an alert for each crossed band, unless an undismissed alert of the
// same kind for the budget was created within the alert window. It returns
// the new alerts. Nothing is stored when any read fails.
func (s *BudgetService) Evaluate(ctx context.Context, now time.Time) ([]models.Alert, error) {
	budgets, err := s.store.Budgets.GetEnabled(ctx, s.owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load budgets: %w", err)
	}
	expenses, err := s.periodExpenses(ctx, budgets, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}

	var created []models.Alert
	err = s.store.InTx(ctx, func(ctx context.Context, r storage.Repos) error {
		created = created[:0]
		since := now.Add(-s.window)

		for _, b := range budgets {
			spent := budget.CurrentSpend(expenses, b, now)
			pct := budget.Percentage(spent, b.Amount)
			kind, ok := budget.Classify(pct, b.WarningThreshold)
			if !ok {
				continue
			}

			recent, err := r.Alerts.HasRecent(ctx, s.owner, b.ID, kind, since)
			if err != nil {
				return err
			}
			if recent {
				continue
			}

			a := newAlert(b, kind, spent, budget.Rounded(pct), now)
			if err := r.Alerts.Put(ctx, a); err != nil {
				return err
			}
			created = append(created, a)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate budgets: %w", err)
	}

	for _, a := range created {
		if err := s.notifier.Notify(ctx, a); err != nil {
			s.log.Warn(ctx, "failed to deliver alert", "alert", a.ID, "error", err)
		}
	}
	return created, nil
}

func newAlert(b models.Budget, kind models.AlertKind, spent decimal.Decimal, pct int, now time.Time) models.Alert {
	return models.Alert{
		ID:            uuid.NewString(),
		BudgetID:      b.ID,
		OwnerID:       b.OwnerID,
		Kind:          kind,
		Message:       alertMessage(b, kind, spent, pct),
		CurrentAmount: spent,
		BudgetAmount:  b.Amount,
		Percentage:    pct,
		Period:        b.Period,
		Category:      b.Category,
		CreatedAt:     now,
	}
}

func alertMessage(b models.Budget, kind models.AlertKind, spent decimal.Decimal, pct int) string {
	name := b.Name
	if name == "" {
		name = string(b.Period) + " budget"
	}
	switch kind {
	case models.AlertExceeded:
		return fmt.Sprintf("%s exceeded: spent %s of %s (%d%%)", name, spent.StringFixed(2), b.Amount.StringFixed(2), pct)
	case models.AlertWarning:
		return fmt.Sprintf("%s at %d%%: spent %s of %s", name, pct, spent.StringFixed(2), b.Amount.StringFixed(2))
	}
	return fmt.Sprintf("%s approaching limit: %d%% used", name, pct)
}

// Progress summarises every enabled budget for display.
func (s *BudgetService) Progress(ctx context.Context, now time.Time) ([]budget.Progress, error) {
	budgets, err := s.store.Budgets.GetEnabled(ctx, s.owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load budgets: %w", err)
	}
	expenses, err := s.periodExpenses(ctx, budgets, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}

	out := make([]budget.Progress, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, budget.ProgressOf(expenses, b, now))
	}
	return out, nil
}

func (s *BudgetService) ListAlerts(ctx context.Context, includeDismissed bool) ([]models.Alert, error) {
	return s.store.Alerts.GetAll(ctx, s.owner, includeDismissed)
}

func (s *BudgetService) DismissAlert(ctx context.Context, id string) error {
	return s.store.Alerts.Dismiss(ctx, s.owner, id)
}

// CleanupOldAlerts deletes alerts older than thresholdDays, dismissed or not.
func (s *BudgetService) CleanupOldAlerts(ctx context.Context, thresholdDays int) (int64, error) {
	if thresholdDays < 0 {
		return 0, fmt.Errorf("%w: threshold days must not be negative", common.ErrValidation)
	}
	cutoff := s.now().AddDate(0, 0, -thresholdDays)
	n, err := s.store.Alerts.DeleteOlderThan(ctx, s.owner, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info(ctx, "old alerts removed", "count", n)
	}
	return n, nil
}
