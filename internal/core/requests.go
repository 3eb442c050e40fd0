package core

import (
	"strings"
	"time"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Page is an offset/limit window over a listing.
type Page struct {
	Skip  int
	Limit int
}

// Normalize applies listing defaults: skip 0, limit 100, capped at MaxLimit.
func (p Page) Normalize() Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// NewWallet carries the fields accepted when creating a wallet.
type NewWallet struct {
	Name        string     `json:"name"`
	Type        WalletType `json:"type"`
	Balance     Money      `json:"balance"`
	Currency    string     `json:"currency"`
	Description string     `json:"description"`
	SharedWith  []string   `json:"shared_with"`
}

// Normalize trims input and fills defaults, then validates.
func (n *NewWallet) Normalize() error {
	n.Name = normalizeText(n.Name)
	if n.Name == "" {
		return ErrEmptyName
	}
	if n.Type == "" {
		n.Type = WalletPersonal
	}
	if err := n.Type.Validate(); err != nil {
		return err
	}
	n.Currency = strings.ToUpper(normalizeText(n.Currency))
	if n.Currency == "" {
		n.Currency = DefaultCurrency
	}
	n.Description = normalizeText(n.Description)
	return nil
}

// NewExpense carries the fields accepted when recording an expense.
// Amount sign is not validated.
type NewExpense struct {
	Amount      Money
	Description string
	Category    string
	WalletID    string
	Date        time.Time
}

func (n *NewExpense) Normalize(now time.Time) error {
	n.WalletID = normalizeText(n.WalletID)
	if n.WalletID == "" {
		return ErrMissingWallet
	}
	n.Description = normalizeText(n.Description)
	n.Category = normalizeText(n.Category)
	if n.Date.IsZero() {
		n.Date = now
	}
	return nil
}

// ExpenseUpdate is a partial expense update; nil fields are left unchanged.
type ExpenseUpdate struct {
	Amount      *Money
	Description *string
	Category    *string
	WalletID    *string
	Date        *time.Time
}

// MovesWallet reports whether the update targets a wallet other than current.
func (u ExpenseUpdate) MovesWallet(current string) bool {
	return u.WalletID != nil && *u.WalletID != current
}

// Apply copies the non-nil fields onto e.
func (u ExpenseUpdate) Apply(e *Expense) {
	if u.Amount != nil {
		e.Amount = *u.Amount
	}
	if u.Description != nil {
		e.Description = normalizeText(*u.Description)
	}
	if u.Category != nil {
		e.Category = normalizeText(*u.Category)
	}
	if u.WalletID != nil {
		e.WalletID = *u.WalletID
	}
	if u.Date != nil {
		e.Date = *u.Date
	}
}

// ExpenseFilter narrows an expense listing. Zero values mean no filter.
type ExpenseFilter struct {
	WalletID  string
	StartDate time.Time
	EndDate   time.Time
	Category  string
	Page      Page
}

// NewGoal carries the fields accepted when creating a goal.
type NewGoal struct {
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	TargetAmount  Money      `json:"target_amount"`
	CurrentAmount Money      `json:"current_amount"`
	Deadline      *time.Time `json:"deadline"`
	Category      string     `json:"category"`
}

func (n *NewGoal) Normalize() error {
	n.Name = normalizeText(n.Name)
	if n.Name == "" {
		return ErrEmptyName
	}
	if err := n.TargetAmount.Validate(); err != nil {
		return err
	}
	if n.CurrentAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	n.Description = normalizeText(n.Description)
	n.Category = normalizeText(n.Category)
	return nil
}

// GoalUpdate is a partial goal update. Completion is always derived, so it
// has no field here.
type GoalUpdate struct {
	Name          *string
	Description   *string
	TargetAmount  *Money
	CurrentAmount *Money
	Deadline      *time.Time
	Category      *string
}

// Apply validates u against g and copies the non-nil fields onto it.
// CurrentAmount may only grow and a completed goal stays completed.
func (u GoalUpdate) Apply(g *Goal) error {
	next := *g
	if u.Name != nil {
		next.Name = normalizeText(*u.Name)
		if next.Name == "" {
			return ErrEmptyName
		}
	}
	if u.Description != nil {
		next.Description = normalizeText(*u.Description)
	}
	if u.TargetAmount != nil {
		if err := u.TargetAmount.Validate(); err != nil {
			return err
		}
		next.TargetAmount = *u.TargetAmount
	}
	if u.CurrentAmount != nil {
		if u.CurrentAmount.Cents < g.CurrentAmount.Cents {
			return ErrInvalidAmount
		}
		next.CurrentAmount = *u.CurrentAmount
	}
	if u.Deadline != nil {
		d := *u.Deadline
		next.Deadline = &d
	}
	if u.Category != nil {
		next.Category = normalizeText(*u.Category)
	}
	next.IsCompleted = next.Reached()
	if g.IsCompleted && !next.IsCompleted {
		return ErrInvalidState
	}
	*g = next
	return nil
}

// NewBudget carries the fields accepted when creating a budget.
type NewBudget struct {
	Category  string    `json:"category"`
	Amount    Money     `json:"amount"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

func (n *NewBudget) Normalize() error {
	n.Category = normalizeText(n.Category)
	if n.Category == "" {
		return ErrEmptyCategory
	}
	return validatePeriod(n.StartDate, n.EndDate)
}

// BudgetUpdate is a partial budget update; nil fields are left unchanged.
type BudgetUpdate struct {
	Category  *string
	Amount    *Money
	StartDate *time.Time
	EndDate   *time.Time
}

// Apply validates the resulting budget and copies the non-nil fields onto b.
func (u BudgetUpdate) Apply(b *Budget) error {
	next := *b
	if u.Category != nil {
		next.Category = normalizeText(*u.Category)
		if next.Category == "" {
			return ErrEmptyCategory
		}
	}
	if u.Amount != nil {
		next.Amount = *u.Amount
	}
	if u.StartDate != nil {
		next.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		next.EndDate = *u.EndDate
	}
	if err := validatePeriod(next.StartDate, next.EndDate); err != nil {
		return err
	}
	*b = next
	return nil
}

func validatePeriod(start, end time.Time) error {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return ErrInvalidPeriod
	}
	return nil
}
