// Package models defines the records kept in the local store and their
// document form in the remote store.
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/common"
	"github.com/dmitrijs2005/spendsync/internal/timex"
	"github.com/shopspring/decimal"
)

// Expense is a single spending record. Date is a calendar day (YYYY-MM-DD).
// Synced is a local flag and never leaves the device.
type Expense struct {
	ID          string
	OwnerID     string
	Amount      decimal.Decimal
	Category    string
	Description string
	Date        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Synced      bool
}

func (e Expense) RecordID() string    { return e.ID }
func (e Expense) RecordOwner() string { return e.OwnerID }

// SyncState reports the version stamp and the local sync flag.
func (e Expense) SyncState() (time.Time, bool) { return e.UpdatedAt, e.Synced }

func (e Expense) Validate() error {
	if e.ID == "" || e.OwnerID == "" {
		return fmt.Errorf("%w: expense id and owner are required", common.ErrValidation)
	}
	if !e.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", common.ErrValidation)
	}
	if _, err := timex.ParseDate(e.Date); err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	return nil
}

// ExpensePatch lists the user-editable fields of an expense. Nil fields are
// left untouched.
type ExpensePatch struct {
	Amount      *decimal.Decimal
	Category    *string
	Description *string
	Date        *string
}

func (p ExpensePatch) Apply(e *Expense) {
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
}

type expenseDocument struct {
	ID          string `json:"id"`
	OwnerID     string `json:"ownerId"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// Document renders the remote form of the expense.
func (e Expense) Document() (json.RawMessage, error) {
	return json.Marshal(expenseDocument{
		ID:          e.ID,
		OwnerID:     e.OwnerID,
		Amount:      e.Amount.String(),
		Category:    e.Category,
		Description: e.Description,
		Date:        e.Date,
		CreatedAt:   timex.FormatInstant(e.CreatedAt),
		UpdatedAt:   timex.FormatInstant(e.UpdatedAt),
	})
}

// ExpenseFromDocument parses the remote form. The result has Synced unset.
func ExpenseFromDocument(raw json.RawMessage) (Expense, error) {
	var d expenseDocument
	if err := json.Unmarshal(raw, &d); err != nil {
		return Expense{}, fmt.Errorf("failed to decode expense document: %w", err)
	}

	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return Expense{}, fmt.Errorf("failed to decode expense %s amount: %w", d.ID, err)
	}
	created, err := timex.ParseInstant(d.CreatedAt)
	if err != nil {
		return Expense{}, fmt.Errorf("failed to decode expense %s: %w", d.ID, err)
	}
	updated, err := timex.ParseInstant(d.UpdatedAt)
	if err != nil {
		return Expense{}, fmt.Errorf("failed to decode expense %s: %w", d.ID, err)
	}

	return Expense{
		ID:          d.ID,
		OwnerID:     d.OwnerID,
		Amount:      amount,
		Category:    d.Category,
		Description: d.Description,
		Date:        d.Date,
		CreatedAt:   created,
		UpdatedAt:   updated,
	}, nil
}

// Stats summarises an owner's expenses.
type Stats struct {
	Total      decimal.Decimal
	Count      int
	ByCategory map[string]decimal.Decimal
	FirstDate  string
	LastDate   string
}
