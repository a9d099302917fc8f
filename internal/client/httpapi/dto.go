package httpapi

import (
	"time"

	"github.com/dmitrijs2005/spendsync/internal/client/budget"
	"github.com/dmitrijs2005/spendsync/internal/client/models"
	"github.com/dmitrijs2005/spendsync/internal/client/syncer"
	"github.com/shopspring/decimal"
)

type expenseJSON struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Synced      bool            `json:"synced"`
}

func expenseOut(e models.Expense) expenseJSON {
	return expenseJSON{
		ID:          e.ID,
		Amount:      e.Amount,
		Category:    e.Category,
		Description: e.Description,
		Date:        e.Date,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
		Synced:      e.Synced,
	}
}

type newExpenseJSON struct {
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
}

type expensePatchJSON struct {
	Amount      *decimal.Decimal `json:"amount"`
	Category    *string          `json:"category"`
	Description *string          `json:"description"`
	Date        *string          `json:"date"`
}

type statsJSON struct {
	Total      decimal.Decimal            `json:"total"`
	Count      int                        `json:"count"`
	ByCategory map[string]decimal.Decimal `json:"byCategory"`
	FirstDate  string                     `json:"firstDate,omitempty"`
	LastDate   string                     `json:"lastDate,omitempty"`
}

type budgetJSON struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Amount           decimal.Decimal `json:"amount"`
	Period           models.Period   `json:"period"`
	Category         string          `json:"category"`
	Enabled          bool            `json:"enabled"`
	WarningThreshold int             `json:"warningThreshold"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	Synced           bool            `json:"synced"`
}

func budgetOut(b models.Budget) budgetJSON {
	return budgetJSON{
		ID:               b.ID,
		Name:             b.Name,
		Amount:           b.Amount,
		Period:           b.Period,
		Category:         b.Category,
		Enabled:          b.Enabled,
		WarningThreshold: b.WarningThreshold,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
		Synced:           b.Synced,
	}
}

type newBudgetJSON struct {
	Name             string          `json:"name"`
	Amount           decimal.Decimal `json:"amount"`
	Period           models.Period   `json:"period"`
	Category         string          `json:"category"`
	WarningThreshold int             `json:"warningThreshold"`
}

type budgetPatchJSON struct {
	Name             *string          `json:"name"`
	Amount           *decimal.Decimal `json:"amount"`
	Period           *models.Period   `json:"period"`
	Category         *string          `json:"category"`
	Enabled          *bool            `json:"enabled"`
	WarningThreshold *int             `json:"warningThreshold"`
}

type progressJSON struct {
	Budget     budgetJSON      `json:"budget"`
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	Percentage int             `json:"percentage"`
	DaysLeft   int             `json:"daysLeft"`
	Status     budget.Status   `json:"status"`
}

type alertJSON struct {
	ID            string           `json:"id"`
	BudgetID      string           `json:"budgetId"`
	Kind          models.AlertKind `json:"kind"`
	Message       string           `json:"message"`
	CurrentAmount decimal.Decimal  `json:"currentAmount"`
	BudgetAmount  decimal.Decimal  `json:"budgetAmount"`
	Percentage    int              `json:"percentage"`
	Period        models.Period    `json:"period"`
	Category      string           `json:"category"`
	CreatedAt     time.Time        `json:"createdAt"`
	Dismissed     bool             `json:"dismissed"`
}

func alertOut(a models.Alert) alertJSON {
	return alertJSON{
		ID:            a.ID,
		BudgetID:      a.BudgetID,
		Kind:          a.Kind,
		Message:       a.Message,
		CurrentAmount: a.CurrentAmount,
		BudgetAmount:  a.BudgetAmount,
		Percentage:    a.Percentage,
		Period:        a.Period,
		Category:      a.Category,
		CreatedAt:     a.CreatedAt,
		Dismissed:     a.Dismissed,
	}
}

type statusJSON struct {
	UnsyncedCount  int        `json:"unsyncedCount"`
	PendingDeletes int        `json:"pendingDeletes"`
	IsOnline       bool       `json:"isOnline"`
	LastSyncAt     *time.Time `json:"lastSyncAt,omitempty"`
}

type syncReportJSON struct {
	Inserted int  `json:"inserted"`
	Replaced int  `json:"replaced"`
	Skipped  int  `json:"skipped"`
	Uploaded int  `json:"uploaded"`
	Deleted  int  `json:"deleted"`
	Failed   int  `json:"failed"`
	Overlap  bool `json:"overlap"`
}

func syncReportOut(r syncer.SyncReport) syncReportJSON {
	return syncReportJSON{
		Inserted: r.Pull.Inserted,
		Replaced: r.Pull.Replaced,
		Skipped:  r.Pull.Skipped,
		Uploaded: r.Push.Uploaded,
		Deleted:  r.Push.Deleted,
		Failed:   r.Pull.Failed + r.Push.Failed,
		Overlap:  r.Push.Skipped,
	}
}

func statusOut(s syncer.Status) statusJSON {
	out := statusJSON{
		UnsyncedCount:  s.UnsyncedCount,
		PendingDeletes: s.PendingDeletes,
		IsOnline:       s.IsOnline,
	}
	if !s.LastSyncAt.IsZero() {
		t := s.LastSyncAt
		out.LastSyncAt = &t
	}
	return out
}
