package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AlertKind string

const (
	AlertApproaching AlertKind = "approaching"
	AlertWarning     AlertKind = "warning"
	AlertExceeded    AlertKind = "exceeded"
)

// Alert records that a budget crossed a threshold. Alerts are never edited
// after creation except for Dismissed.
type Alert struct {
	ID            string
	BudgetID      string
	OwnerID       string
	Kind          AlertKind
	Message       string
	CurrentAmount decimal.Decimal
	BudgetAmount  decimal.Decimal
	Percentage    int
	Period        Period
	Category      string
	CreatedAt     time.Time
	Dismissed     bool
}

// Tombstone marks a record deleted locally whose remote copy still has to be
// removed.
type Tombstone struct {
	OwnerID    string
	Collection string
	ID         string
	CreatedAt  time.Time
}
