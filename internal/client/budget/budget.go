// Package budget holds the pure budget calculations: period boundaries,
// spend to date and alert classification. Nothing here reads a clock or the
// store; callers pass now and the records.
package budget

import (
	"math"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/client/models"
	"github.com/dmitrijs2005/spendsync/internal/timex"
	"github.com/shopspring/decimal"
)

// ApproachingMargin is how many percentage points below the warning
// threshold an approaching alert starts.
const ApproachingMargin = 10

var hundred = decimal.NewFromInt(100)

// PeriodStart returns the first instant of the period containing now, in
// now's location. Weeks start on Monday.
func PeriodStart(now time.Time, p models.Period) time.Time {
	y, m, d := now.Date()
	loc := now.Location()

	switch p {
	case models.PeriodDaily:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	case models.PeriodWeekly:
		offset := (int(now.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
	case models.PeriodMonthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case models.PeriodYearly:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	}
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// PeriodEnd is the start of the following period.
func PeriodEnd(now time.Time, p models.Period) time.Time {
	start := PeriodStart(now, p)
	switch p {
	case models.PeriodWeekly:
		return start.AddDate(0, 0, 7)
	case models.PeriodMonthly:
		return start.AddDate(0, 1, 0)
	case models.PeriodYearly:
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 0, 1)
}

// Matches reports whether the expense falls under the budget's category.
func Matches(e models.Expense, b models.Budget) bool {
	return b.Category == "" || e.Category == b.Category
}

// CurrentSpend sums the expenses of b's category dated within
// [PeriodStart, now], compared by calendar day.
func CurrentSpend(expenses []models.Expense, b models.Budget, now time.Time) decimal.Decimal {
	from := timex.FormatDate(PeriodStart(now, b.Period))
	to := timex.FormatDate(now)

	total := decimal.Zero
	for _, e := range expenses {
		if e.OwnerID != b.OwnerID || !Matches(e, b) {
			continue
		}
		if e.Date < from || e.Date > to {
			continue
		}
		total = total.Add(e.Amount)
	}
	return total
}

// Percentage is spend as a share of limit, in percent.
func Percentage(spend, limit decimal.Decimal) decimal.Decimal {
	if !limit.IsPositive() {
		return decimal.Zero
	}
	return spend.Div(limit).Mul(hundred)
}

// Rounded rounds a percentage half away from zero.
func Rounded(pct decimal.Decimal) int {
	return int(pct.Round(0).IntPart())
}

// Classify maps a percentage to the alert it warrants. ok is false when the
// spend is below the approaching band or nothing has been spent.
func Classify(pct decimal.Decimal, threshold int) (kind models.AlertKind, ok bool) {
	switch {
	case !pct.IsPositive():
		return "", false
	case pct.GreaterThanOrEqual(hundred):
		return models.AlertExceeded, true
	case pct.GreaterThanOrEqual(decimal.NewFromInt(int64(threshold))):
		return models.AlertWarning, true
	case pct.GreaterThanOrEqual(decimal.NewFromInt(int64(threshold - ApproachingMargin))):
		return models.AlertApproaching, true
	}
	return "", false
}

type Status string

const (
	StatusSafe     Status = "safe"
	StatusWarning  Status = "warning"
	StatusExceeded Status = "exceeded"
)

// StatusOf is the display status; approaching counts as safe.
func StatusOf(pct decimal.Decimal, threshold int) Status {
	kind, ok := Classify(pct, threshold)
	if !ok {
		return StatusSafe
	}
	switch kind {
	case models.AlertExceeded:
		return StatusExceeded
	case models.AlertWarning:
		return StatusWarning
	}
	return StatusSafe
}

// DaysLeft counts the days from now to the end of the period, today
// included, rounded up.
func DaysLeft(now time.Time, p models.Period) int {
	left := PeriodEnd(now, p).Sub(now)
	return int(math.Ceil(left.Hours() / 24))
}

// Progress is the display summary of one budget.
type Progress struct {
	Budget     models.Budget
	Spent      decimal.Decimal
	Remaining  decimal.Decimal
	Percentage int
	DaysLeft   int
	Status     Status
}

func ProgressOf(expenses []models.Expense, b models.Budget, now time.Time) Progress {
	spent := CurrentSpend(expenses, b, now)
	pct := Percentage(spent, b.Amount)

	remaining := b.Amount.Sub(spent)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return Progress{
		Budget:     b,
		Spent:      spent,
		Remaining:  remaining,
		Percentage: Rounded(pct),
		DaysLeft:   DaysLeft(now, b.Period),
		Status:     StatusOf(pct, b.WarningThreshold),
	}
}
