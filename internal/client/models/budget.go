package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/common"
	"github.com/dmitrijs2005/spendsync/internal/timex"
	"github.com/shopspring/decimal"
)

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

func (p Period) Valid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly:
		return true
	}
	return false
}

// Budget is a spending limit for a period. An empty Category applies the
// limit to all expenses.
type Budget struct {
	ID               string
	OwnerID          string
	Name             string
	Amount           decimal.Decimal
	Period           Period
	Category         string
	Enabled          bool
	WarningThreshold int
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Synced           bool
}

func (b Budget) RecordID() string             { return b.ID }
func (b Budget) RecordOwner() string          { return b.OwnerID }
func (b Budget) SyncState() (time.Time, bool) { return b.UpdatedAt, b.Synced }

func (b Budget) Validate() error {
	if b.ID == "" || b.OwnerID == "" {
		return fmt.Errorf("%w: budget id and owner are required", common.ErrValidation)
	}
	if !b.Amount.IsPositive() {
		return fmt.Errorf("%w: budget amount must be greater than zero", common.ErrValidation)
	}
	if !b.Period.Valid() {
		return fmt.Errorf("%w: unknown period %q", common.ErrValidation, b.Period)
	}
	if b.WarningThreshold < 1 || b.WarningThreshold > 100 {
		return fmt.Errorf("%w: warning threshold must be within 1..100", common.ErrValidation)
	}
	return nil
}

type BudgetPatch struct {
	Name             *string
	Amount           *decimal.Decimal
	Period           *Period
	Category         *string
	Enabled          *bool
	WarningThreshold *int
}

func (p BudgetPatch) Apply(b *Budget) {
	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.Amount != nil {
		b.Amount = *p.Amount
	}
	if p.Period != nil {
		b.Period = *p.Period
	}
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.Enabled != nil {
		b.Enabled = *p.Enabled
	}
	if p.WarningThreshold != nil {
		b.WarningThreshold = *p.WarningThreshold
	}
}

type budgetDocument struct {
	ID               string `json:"id"`
	OwnerID          string `json:"ownerId"`
	Name             string `json:"name"`
	Amount           string `json:"amount"`
	Period           Period `json:"period"`
	Category         string `json:"category,omitempty"`
	Enabled          bool   `json:"enabled"`
	WarningThreshold int    `json:"warningThreshold"`
	CreatedAt        string `json:"createdAt"`
	UpdatedAt        string `json:"updatedAt"`
}

func (b Budget) Document() (json.RawMessage, error) {
	return json.Marshal(budgetDocument{
		ID:               b.ID,
		OwnerID:          b.OwnerID,
		Name:             b.Name,
		Amount:           b.Amount.String(),
		Period:           b.Period,
		Category:         b.Category,
		Enabled:          b.Enabled,
		WarningThreshold: b.WarningThreshold,
		CreatedAt:        timex.FormatInstant(b.CreatedAt),
		UpdatedAt:        timex.FormatInstant(b.UpdatedAt),
	})
}

func BudgetFromDocument(raw json.RawMessage) (Budget, error) {
	var d budgetDocument
	if err := json.Unmarshal(raw, &d); err != nil {
		return Budget{}, fmt.Errorf("failed to decode budget document: %w", err)
	}

	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return Budget{}, fmt.Errorf("failed to decode budget %s amount: %w", d.ID, err)
	}
	created, err := timex.ParseInstant(d.CreatedAt)
	if err != nil {
		return Budget{}, fmt.Errorf("failed to decode budget %s: %w", d.ID, err)
	}
	updated, err := timex.ParseInstant(d.UpdatedAt)
	if err != nil {
		return Budget{}, fmt.Errorf("failed to decode budget %s: %w", d.ID, err)
	}

	return Budget{
		ID:               d.ID,
		OwnerID:          d.OwnerID,
		Name:             d.Name,
		Amount:           amount,
		Period:           d.Period,
		Category:         d.Category,
		Enabled:          d.Enabled,
		WarningThreshold: d.WarningThreshold,
		CreatedAt:        created,
		UpdatedAt:        updated,
	}, nil
}
