// Package notify delivers budget alerts outside the local store.
package notify

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/spendsync/internal/client/models"
	"github.com/dmitrijs2005/spendsync/internal/logging"
)

type Notifier interface {
	Notify(ctx context.Context, a models.Alert) error
}

// LogNotifier writes alerts to the log.
type LogNotifier struct {
	log logging.Logger
}

func NewLogNotifier(log logging.Logger) *LogNotifier {
	return &LogNotifier{log: log.With("module", "notify")}
}

func (n *LogNotifier) Notify(ctx context.Context, a models.Alert) error {
	n.log.Warn(ctx, a.Message,
		"budget", a.BudgetID,
		"kind", a.Kind,
		"percentage", a.Percentage,
		"spent", a.CurrentAmount.String(),
		"limit", a.BudgetAmount.String())
	return nil
}

// Multi fans an alert out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, a models.Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards alerts.
type Nop struct{}

func (Nop) Notify(context.Context, models.Alert) error { return nil }
