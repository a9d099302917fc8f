// Package httpapi exposes the signed-in owner's expenses, budgets and sync
// state over a loopback HTTP API for presentation layers.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/client/budget"
	"github.com/dmitrijs2005/spendsync/internal/client/models"
	"github.com/dmitrijs2005/spendsync/internal/client/services"
	"github.com/dmitrijs2005/spendsync/internal/client/syncer"
	"github.com/dmitrijs2005/spendsync/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ExpenseAPI is implemented by *services.ExpenseService.
type ExpenseAPI interface {
	Create(ctx context.Context, in services.NewExpense) (models.Expense, error)
	List(ctx context.Context) ([]models.Expense, error)
	ListByRange(ctx context.Context, start, end string) ([]models.Expense, error)
	Get(ctx context.Context, id string) (models.Expense, error)
	Update(ctx context.Context, id string, patch models.ExpensePatch) (models.Expense, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (models.Stats, error)
}

// BudgetAPI is implemented by *services.BudgetService.
type BudgetAPI interface {
	Create(ctx context.Context, in services.NewBudget) (models.Budget, error)
	List(ctx context.Context) ([]models.Budget, error)
	Get(ctx context.Context, id string) (models.Budget, error)
	Update(ctx context.Context, id string, patch models.BudgetPatch) (models.Budget, error)
	Delete(ctx context.Context, id string) error
	Progress(ctx context.Context, now time.Time) ([]budget.Progress, error)
	ListAlerts(ctx context.Context, includeDismissed bool) ([]models.Alert, error)
	DismissAlert(ctx context.Context, id string) error
}

// SyncAPI is implemented by *syncer.Session.
type SyncAPI interface {
	ManualSync(ctx context.Context) (syncer.SyncReport, error)
	Status(ctx context.Context) (syncer.Status, error)
}

type Handler struct {
	expenses ExpenseAPI
	budgets  BudgetAPI
	sync     SyncAPI
	log      logging.Logger
	now      func() time.Time
}

func NewHandler(expenses ExpenseAPI, budgets BudgetAPI, sync SyncAPI, log logging.Logger) *Handler {
	if log == nil {
		log = logging.NewNop()
	}
	return &Handler{
		expenses: expenses,
		budgets:  budgets,
		sync:     sync,
		log:      log.With("module", "httpapi"),
		now:      time.Now,
	}
}

// NewRouter mounts every route of h under /api.
func NewRouter(h *Handler) http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Use(h.requestLogger)

	mux.Get("/health", h.Health)

	mux.Route("/api", func(api chi.Router) {
		api.Route("/expenses", func(r chi.Router) {
			r.Get("/", h.ListExpenses)
			r.Post("/", h.CreateExpense)
			r.Get("/stats", h.ExpenseStats)
			r.Get("/{id}", h.GetExpense)
			r.Patch("/{id}", h.UpdateExpense)
			r.Delete("/{id}", h.DeleteExpense)
		})
		api.Route("/budgets", func(r chi.Router) {
			r.Get("/", h.ListBudgets)
			r.Post("/", h.CreateBudget)
			r.Get("/progress", h.BudgetProgress)
			r.Get("/{id}", h.GetBudget)
			r.Patch("/{id}", h.UpdateBudget)
			r.Delete("/{id}", h.DeleteBudget)
		})
		api.Get("/alerts", h.ListAlerts)
		api.Post("/alerts/{id}/dismiss", h.DismissAlert)
		api.Get("/sync/status", h.SyncStatus)
		api.Post("/sync", h.ManualSync)
	})

	return mux
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Debug(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
