package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/common"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var instant = time.Date(2024, 3, 1, 9, 15, 30, 123000000, time.UTC)

func sampleExpense() Expense {
	return Expense{
		ID:          "5f0c3c52-3f55-4d57-9d1f-8fb0f7f1b6a1",
		OwnerID:     "u1",
		Amount:      decimal.RequireFromString("42.50"),
		Category:    "Food & Dining",
		Description: "lunch",
		Date:        "2024-03-01",
		CreatedAt:   instant,
		UpdatedAt:   instant.Add(time.Minute),
		Synced:      true,
	}
}

func TestExpenseDocument_RoundTrip(t *testing.T) {
	e := sampleExpense()

	raw, err := e.Document()
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "42.5", fields["amount"])
	assert.Equal(t, "2024-03-01", fields["date"])
	assert.Equal(t, "u1", fields["ownerId"])
	assert.Equal(t, "2024-03-01T09:15:30.123000000Z", fields["createdAt"])
	assert.NotContains(t, fields, "synced")

	got, err := ExpenseFromDocument(raw)
	require.NoError(t, err)

	e.Synced = false
	assert.Empty(t, cmp.Diff(e, got))
}

func TestExpenseFromDocument_Errors(t *testing.T) {
	_, err := ExpenseFromDocument(json.RawMessage(`[]`))
	assert.Error(t, err)

	_, err = ExpenseFromDocument(json.RawMessage(`{"id":"x","amount":"abc"}`))
	assert.Error(t, err)

	_, err = ExpenseFromDocument(json.RawMessage(`{"id":"x","amount":"1","createdAt":"bad"}`))
	assert.Error(t, err)
}

func TestExpense_Validate(t *testing.T) {
	e := sampleExpense()
	require.NoError(t, e.Validate())

	bad := e
	bad.Amount = decimal.Zero
	assert.ErrorIs(t, bad.Validate(), common.ErrValidation)

	bad = e
	bad.Amount = decimal.RequireFromString("-1")
	assert.ErrorIs(t, bad.Validate(), common.ErrValidation)

	bad = e
	bad.Date = "01/03/2024"
	assert.ErrorIs(t, bad.Validate(), common.ErrValidation)

	bad = e
	bad.OwnerID = ""
	assert.ErrorIs(t, bad.Validate(), common.ErrValidation)
}

func TestExpensePatch_Apply(t *testing.T) {
	e := sampleExpense()
	amount := decimal.RequireFromString("10")
	cat := "Transport"

	ExpensePatch{Amount: &amount, Category: &cat}.Apply(&e)

	assert.True(t, e.Amount.Equal(amount))
	assert.Equal(t, "Transport", e.Category)
	assert.Equal(t, "lunch", e.Description)
}

func sampleBudget() Budget {
	return Budget{
		ID:               "b1",
		OwnerID:          "u1",
		Name:             "Groceries",
		Amount:           decimal.RequireFromString("500"),
		Period:           PeriodMonthly,
		Enabled:          true,
		WarningThreshold: 80,
		CreatedAt:        instant,
		UpdatedAt:        instant,
	}
}

func TestBudgetDocument_RoundTrip(t *testing.T) {
	b := sampleBudget()

	raw, err := b.Document()
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "category", "unset category is omitted")

	got, err := BudgetFromDocument(raw)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(b, got))

	b.Category = "Food & Dining"
	raw, err = b.Document()
	require.NoError(t, err)
	got, err = BudgetFromDocument(raw)
	require.NoError(t, err)
	assert.Equal(t, "Food & Dining", got.Category)
}

func TestBudget_Validate(t *testing.T) {
	b := sampleBudget()
	require.NoError(t, b.Validate())

	tests := []struct {
		name   string
		mutate func(*Budget)
	}{
		{"zero amount", func(b *Budget) { b.Amount = decimal.Zero }},
		{"unknown period", func(b *Budget) { b.Period = "fortnightly" }},
		{"threshold zero", func(b *Budget) { b.WarningThreshold = 0 }},
		{"threshold above 100", func(b *Budget) { b.WarningThreshold = 101 }},
		{"no id", func(b *Budget) { b.ID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bb := sampleBudget()
			tt.mutate(&bb)
			assert.ErrorIs(t, bb.Validate(), common.ErrValidation)
		})
	}
}

func TestBudgetPatch_Apply(t *testing.T) {
	b := sampleBudget()
	enabled := false
	threshold := 90
	period := PeriodWeekly

	BudgetPatch{Enabled: &enabled, WarningThreshold: &threshold, Period: &period}.Apply(&b)

	assert.False(t, b.Enabled)
	assert.Equal(t, 90, b.WarningThreshold)
	assert.Equal(t, PeriodWeekly, b.Period)
	assert.Equal(t, "Groceries", b.Name)
}
