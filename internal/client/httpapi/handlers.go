package httpapi

import (
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/spendsync/internal/client/models"
	"github.com/dmitrijs2005/spendsync/internal/client/services"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListExpenses returns all expenses, or those within ?start=&end= when both
// dates are given.
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	start, end := r.URL.Query().Get("start"), r.URL.Query().Get("end")

	var (
		list []models.Expense
		err  error
	)
	if start != "" || end != "" {
		list, err = h.expenses.ListByRange(r.Context(), start, end)
	} else {
		list, err = h.expenses.List(r.Context())
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out := make([]expenseJSON, 0, len(list))
	for _, e := range list {
		out = append(out, expenseOut(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var in newExpenseJSON
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	e, err := h.expenses.Create(r.Context(), services.NewExpense{
		Amount:      in.Amount,
		Category:    in.Category,
		Description: in.Description,
		Date:        in.Date,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, expenseOut(e))
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := h.expenses.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expenseOut(e))
}

func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	var in expensePatchJSON
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	e, err := h.expenses.Update(r.Context(), chi.URLParam(r, "id"), models.ExpensePatch{
		Amount:      in.Amount,
		Category:    in.Category,
		Description: in.Description,
		Date:        in.Date,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expenseOut(e))
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := h.expenses.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ExpenseStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.expenses.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsJSON{
		Total:      st.Total,
		Count:      st.Count,
		ByCategory: st.ByCategory,
		FirstDate:  st.FirstDate,
		LastDate:   st.LastDate,
	})
}

func (h *Handler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	list, err := h.budgets.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]budgetJSON, 0, len(list))
	for _, b := range list {
		out = append(out, budgetOut(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	var in newBudgetJSON
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	b, err := h.budgets.Create(r.Context(), services.NewBudget{
		Name:             in.Name,
		Amount:           in.Amount,
		Period:           in.Period,
		Category:         in.Category,
		WarningThreshold: in.WarningThreshold,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, budgetOut(b))
}

func (h *Handler) GetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := h.budgets.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budgetOut(b))
}

func (h *Handler) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	var in budgetPatchJSON
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	b, err := h.budgets.Update(r.Context(), chi.URLParam(r, "id"), models.BudgetPatch{
		Name:             in.Name,
		Amount:           in.Amount,
		Period:           in.Period,
		Category:         in.Category,
		Enabled:          in.Enabled,
		WarningThreshold: in.WarningThreshold,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budgetOut(b))
}

func (h *Handler) DeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := h.budgets.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) BudgetProgress(w http.ResponseWriter, r *http.Request) {
	list, err := h.budgets.Progress(r.Context(), h.now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]progressJSON, 0, len(list))
	for _, p := range list {
		out = append(out, progressJSON{
			Budget:     budgetOut(p.Budget),
			Spent:      p.Spent,
			Remaining:  p.Remaining,
			Percentage: p.Percentage,
			DaysLeft:   p.DaysLeft,
			Status:     p.Status,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ListAlerts hides dismissed alerts unless ?all=true.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))

	list, err := h.budgets.ListAlerts(r.Context(), all)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]alertJSON, 0, len(list))
	for _, a := range list {
		out = append(out, alertOut(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) DismissAlert(w http.ResponseWriter, r *http.Request) {
	if err := h.budgets.DismissAlert(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.sync.Status(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusOut(st))
}

func (h *Handler) ManualSync(w http.ResponseWriter, r *http.Request) {
	rep, err := h.sync.ManualSync(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, syncReportOut(rep))
}
