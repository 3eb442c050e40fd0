package http

import (
	"net/http"

	"fintrack/internal/core"
)

type expenseRequest struct {
	Amount      core.Money `json:"amount"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	WalletID    string     `json:"wallet_id"`
	Date        *Date      `json:"date"`
}

func (req expenseRequest) toNew() core.NewExpense {
	n := core.NewExpense{
		Amount:      req.Amount,
		Description: sanitizeInput(req.Description),
		Category:    sanitizeInput(req.Category),
		WalletID:    req.WalletID,
	}
	if req.Date != nil {
		n.Date = req.Date.Time
	}
	return n
}

// expenseUpdateRequest mirrors core.ExpenseUpdate; absent fields stay nil.
type expenseUpdateRequest struct {
	Amount      *core.Money `json:"amount"`
	Description *string     `json:"description"`
	Category    *string     `json:"category"`
	WalletID    *string     `json:"wallet_id"`
	Date        *Date       `json:"date"`
}

func (req expenseUpdateRequest) toUpdate() core.ExpenseUpdate {
	return core.ExpenseUpdate{
		Amount:      req.Amount,
		Description: sanitizePtr(req.Description),
		Category:    sanitizePtr(req.Category),
		WalletID:    req.WalletID,
		Date:        req.Date.ptr(),
	}
}

func sanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := sanitizeInput(*s)
	return &v
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	f, err := parseExpenseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	es, err := s.deps.Expenses.List(r.Context(), UserID(r.Context()), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, es)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.deps.Expenses.Create(r.Context(), UserID(r.Context()), req.toNew())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.deps.Expenses.Get(r.Context(), UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.deps.Expenses.Update(r.Context(), UserID(r.Context()), r.PathValue("id"), req.toUpdate())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Expenses.Delete(r.Context(), UserID(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
