package http

import (
	"net/http"

	"fintrack/internal/core"
)

type budgetRequest struct {
	Category  string     `json:"category"`
	Amount    core.Money `json:"amount"`
	StartDate Date       `json:"start_date"`
	EndDate   Date       `json:"end_date"`
}

type budgetUpdateRequest struct {
	Category  *string     `json:"category"`
	Amount    *core.Money `json:"amount"`
	StartDate *Date       `json:"start_date"`
	EndDate   *Date       `json:"end_date"`
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	bs, err := s.deps.Budgets.List(r.Context(), UserID(r.Context()), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bs)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.deps.Budgets.Create(r.Context(), UserID(r.Context()), core.NewBudget{
		Category:  sanitizeInput(req.Category),
		Amount:    req.Amount,
		StartDate: req.StartDate.Time,
		EndDate:   req.EndDate.Time,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Budgets.Get(r.Context(), UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Budgets.Status(r.Context(), UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.deps.Budgets.Update(r.Context(), UserID(r.Context()), r.PathValue("id"), core.BudgetUpdate{
		Category:  sanitizePtr(req.Category),
		Amount:    req.Amount,
		StartDate: req.StartDate.ptr(),
		EndDate:   req.EndDate.ptr(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Budgets.Delete(r.Context(), UserID(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
