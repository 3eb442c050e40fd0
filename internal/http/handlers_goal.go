package http

import (
	"net/http"

	"fintrack/internal/core"
)

type goalRequest struct {
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	TargetAmount  core.Money `json:"target_amount"`
	CurrentAmount core.Money `json:"current_amount"`
	Deadline      *Date      `json:"deadline"`
	Category      string     `json:"category"`
}

func (req goalRequest) toNew() core.NewGoal {
	return core.NewGoal{
		Name:          sanitizeInput(req.Name),
		Description:   sanitizeInput(req.Description),
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
		Deadline:      req.Deadline.ptr(),
		Category:      sanitizeInput(req.Category),
	}
}

// goalUpdateRequest ignores is_completed; completion follows the amounts.
type goalUpdateRequest struct {
	Name          *string     `json:"name"`
	Description   *string     `json:"description"`
	TargetAmount  *core.Money `json:"target_amount"`
	CurrentAmount *core.Money `json:"current_amount"`
	Deadline      *Date       `json:"deadline"`
	Category      *string     `json:"category"`
}

func (req goalUpdateRequest) toUpdate() core.GoalUpdate {
	return core.GoalUpdate{
		Name:          sanitizePtr(req.Name),
		Description:   sanitizePtr(req.Description),
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
		Deadline:      req.Deadline.ptr(),
		Category:      sanitizePtr(req.Category),
	}
}

type addFundsRequest struct {
	Amount   core.Money `json:"amount"`
	WalletID string     `json:"wallet_id"`
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	gs, err := s.deps.Goals.List(r.Context(), UserID(r.Context()), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gs)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.deps.Goals.Create(r.Context(), UserID(r.Context()), req.toNew())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	g, err := s.deps.Goals.Get(r.Context(), UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.deps.Goals.Update(r.Context(), UserID(r.Context()), r.PathValue("id"), req.toUpdate())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Goals.Delete(r.Context(), UserID(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddFunds(w http.ResponseWriter, r *http.Request) {
	var req addFundsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.deps.Goals.AddFunds(r.Context(), UserID(r.Context()), r.PathValue("id"), req.WalletID, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}
