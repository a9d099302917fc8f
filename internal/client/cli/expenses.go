package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/client/models"
	"github.com/dmitrijs2005/spendsync/internal/client/services"
	"github.com/dmitrijs2005/spendsync/internal/common"
	"github.com/dmitrijs2005/spendsync/internal/timex"
	"github.com/shopspring/decimal"
)

// now is a test seam for the default expense date.
var now = time.Now

// fail prints err for the user and returns it.
func (a *App) fail(err error) error {
	fmt.Fprintf(a.out, "error: %v\n", err)
	return err
}

func (a *App) expenseService() (expenseService, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.expenses == nil {
		return nil, common.ErrUnauthorized
	}
	return a.expenses, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: invalid amount %q", common.ErrValidation, s)
	}
	return d, nil
}

// AddExpense prompts for the expense fields and stores a new expense. An
// empty date means today.
func (a *App) AddExpense(ctx context.Context) error {
	svc, err := a.expenseService()
	if err != nil {
		return a.fail(err)
	}

	amountText, err := getSimpleText(a.reader, "Amount", a.out)
	if err != nil {
		return err
	}
	amount, err := parseAmount(amountText)
	if err != nil {
		return a.fail(err)
	}
	category, err := getSimpleText(a.reader, "Category", a.out)
	if err != nil {
		return err
	}
	description, err := getSimpleText(a.reader, "Description", a.out)
	if err != nil {
		return err
	}
	date, err := getSimpleText(a.reader, "Date YYYY-MM-DD (empty for today)", a.out)
	if err != nil {
		return err
	}
	if date == "" {
		date = timex.FormatDate(now())
	}

	e, err := svc.Create(ctx, services.NewExpense{
		Amount:      amount,
		Category:    category,
		Description: description,
		Date:        date,
	})
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.out, "Added expense %s\n", e.ID)
	return nil
}

// ListExpenses prints all expenses, or those within a date range when a
// start date is entered.
func (a *App) ListExpenses(ctx context.Context) error {
	svc, err := a.expenseService()
	if err != nil {
		return a.fail(err)
	}

	start, err := getSimpleText(a.reader, "Start date YYYY-MM-DD (empty for all)", a.out)
	if err != nil {
		return err
	}

	var list []models.Expense
	if start == "" {
		list, err = svc.List(ctx)
	} else {
		end, rerr := getSimpleText(a.reader, "End date YYYY-MM-DD", a.out)
		if rerr != nil {
			return rerr
		}
		list, err = svc.ListByRange(ctx, start, end)
	}
	if err != nil {
		return a.fail(err)
	}

	if len(list) == 0 {
		fmt.Fprintln(a.out, "No expenses")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tAMOUNT\tCATEGORY\tDESCRIPTION\tSYNCED")
	for _, e := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n", e.ID, e.Date, e.Amount.StringFixed(2), e.Category, e.Description, e.Synced)
	}
	return tw.Flush()
}

// EditExpense prompts for an id and the fields to change. Skipped fields
// keep their value.
func (a *App) EditExpense(ctx context.Context) error {
	svc, err := a.expenseService()
	if err != nil {
		return a.fail(err)
	}

	id, err := getSimpleText(a.reader, "Expense ID", a.out)
	if err != nil {
		return err
	}

	var patch models.ExpensePatch

	if v, ok, err := GetOptional(a.reader, "Amount", a.out); err != nil {
		return err
	} else if ok {
		amount, err := parseAmount(v)
		if err != nil {
			return a.fail(err)
		}
		patch.Amount = &amount
	}
	if v, ok, err := GetOptional(a.reader, "Category", a.out); err != nil {
		return err
	} else if ok {
		patch.Category = &v
	}
	if v, ok, err := GetOptional(a.reader, "Description", a.out); err != nil {
		return err
	} else if ok {
		patch.Description = &v
	}
	if v, ok, err := GetOptional(a.reader, "Date YYYY-MM-DD", a.out); err != nil {
		return err
	} else if ok {
		patch.Date = &v
	}

	if _, err := svc.Update(ctx, id, patch); err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.out, "Expense updated")
	return nil
}

func (a *App) DeleteExpense(ctx context.Context) error {
	svc, err := a.expenseService()
	if err != nil {
		return a.fail(err)
	}

	id, err := getSimpleText(a.reader, "Expense ID", a.out)
	if err != nil {
		return err
	}
	if err := svc.Delete(ctx, id); err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.out, "Expense deleted")
	return nil
}

// Stats prints the totals overall and per category.
func (a *App) Stats(ctx context.Context) error {
	svc, err := a.expenseService()
	if err != nil {
		return a.fail(err)
	}

	st, err := svc.Stats(ctx)
	if err != nil {
		return a.fail(err)
	}
	if st.Count == 0 {
		fmt.Fprintln(a.out, "No expenses")
		return nil
	}

	fmt.Fprintf(a.out, "Total: %s in %d expenses (%s .. %s)\n", st.Total.StringFixed(2), st.Count, st.FirstDate, st.LastDate)

	categories := make([]string, 0, len(st.ByCategory))
	for c := range st.ByCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, c := range categories {
		name := c
		if name == "" {
			name = "(none)"
		}
		fmt.Fprintf(tw, "  %s\t%s\n", name, st.ByCategory[c].StringFixed(2))
	}
	return tw.Flush()
}
