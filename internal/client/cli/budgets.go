package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/client/models"
	"github.com/dmitrijs2005/spendsync/internal/client/services"
	"github.com/dmitrijs2005/spendsync/internal/common"
)

// DefaultWarningThreshold is offered when the user skips the threshold.
const DefaultWarningThreshold = 80

func (a *App) budgetService() (budgetService, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.budgets == nil {
		return nil, common.ErrUnauthorized
	}
	return a.budgets, nil
}

// AddBudget prompts for the budget fields and stores a new budget. An empty
// category applies the budget to every expense.
func (a *App) AddBudget(ctx context.Context) error {
	svc, err := a.budgetService()
	if err != nil {
		return a.fail(err)
	}

	name, err := getSimpleText(a.reader, "Name", a.out)
	if err != nil {
		return err
	}
	amountText, err := getSimpleText(a.reader, "Limit amount", a.out)
	if err != nil {
		return err
	}
	amount, err := parseAmount(amountText)
	if err != nil {
		return a.fail(err)
	}
	period, err := getSimpleText(a.reader, "Period (daily, weekly, monthly, yearly)", a.out)
	if err != nil {
		return err
	}
	category, err := getSimpleText(a.reader, "Category (empty for all)", a.out)
	if err != nil {
		return err
	}

	threshold := DefaultWarningThreshold
	if v, ok, err := GetOptional(a.reader, fmt.Sprintf("Warning threshold %% (default %d)", DefaultWarningThreshold), a.out); err != nil {
		return err
	} else if ok {
		threshold, err = strconv.Atoi(v)
		if err != nil {
			return a.fail(fmt.Errorf("%w: invalid threshold %q", common.ErrValidation, v))
		}
	}

	b, err := svc.Create(ctx, services.NewBudget{
		Name:             name,
		Amount:           amount,
		Period:           models.Period(period),
		Category:         category,
		WarningThreshold: threshold,
	})
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.out, "Added budget %s\n", b.ID)
	return nil
}

// Budgets prints the progress of every enabled budget.
func (a *App) Budgets(ctx context.Context) error {
	svc, err := a.budgetService()
	if err != nil {
		return a.fail(err)
	}

	list, err := svc.Progress(ctx, now())
	if err != nil {
		return a.fail(err)
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No budgets")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPERIOD\tSPENT\tLIMIT\tUSED\tDAYS LEFT\tSTATUS")
	for _, p := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d%%\t%d\t%s\n",
			p.Budget.ID, p.Budget.Name, p.Budget.Period,
			p.Spent.StringFixed(2), p.Budget.Amount.StringFixed(2),
			p.Percentage, p.DaysLeft, p.Status)
	}
	return tw.Flush()
}

func (a *App) DeleteBudget(ctx context.Context) error {
	svc, err := a.budgetService()
	if err != nil {
		return a.fail(err)
	}

	id, err := getSimpleText(a.reader, "Budget ID", a.out)
	if err != nil {
		return err
	}
	if err := svc.Delete(ctx, id); err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.out, "Budget deleted")
	return nil
}

// Alerts prints the alerts that were not dismissed yet.
func (a *App) Alerts(ctx context.Context) error {
	svc, err := a.budgetService()
	if err != nil {
		return a.fail(err)
	}

	list, err := svc.ListAlerts(ctx, false)
	if err != nil {
		return a.fail(err)
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No alerts")
		return nil
	}
	for _, al := range list {
		fmt.Fprintf(a.out, "[%s] %s %s: %s\n", al.ID, al.CreatedAt.Local().Format(time.DateTime), al.Kind, al.Message)
	}
	return nil
}

func (a *App) DismissAlert(ctx context.Context) error {
	svc, err := a.budgetService()
	if err != nil {
		return a.fail(err)
	}

	id, err := getSimpleText(a.reader, "Alert ID", a.out)
	if err != nil {
		return err
	}
	if err := svc.DismissAlert(ctx, id); err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.out, "Alert dismissed")
	return nil
}
