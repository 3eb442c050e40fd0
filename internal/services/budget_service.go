package services

import (
	"context"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// BudgetService manages per-user spending limits. Budgets never touch
// wallets or expenses.
type BudgetService struct {
	base
}

func NewBudgetService(store storage.Store, opts Options) *BudgetService {
	return &BudgetService{base: newBase(store, opts, applog.ComponentBudget)}
}

func (s *BudgetService) Create(ctx context.Context, actor string, in core.NewBudget) (core.Budget, error) {
	in.StartDate = truncate(in.StartDate)
	in.EndDate = truncate(in.EndDate)
	if err := in.Normalize(); err != nil {
		return core.Budget{}, err
	}
	now := s.stamp()
	b := core.Budget{
		ID:        newID(),
		Category:  in.Category,
		Amount:    in.Amount,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		UserID:    actor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		return tx.CreateBudget(ctx, b)
	})
	if err != nil {
		return core.Budget{}, wrap("create budget", err)
	}
	s.logger(ctx).InfoContext(ctx, "Budget created",
		applog.FieldBudgetID, b.ID,
		applog.FieldUserID, actor,
		applog.FieldCategory, b.Category)
	return b, nil
}

func (s *BudgetService) Get(ctx context.Context, actor, id string) (core.Budget, error) {
	var b core.Budget
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		b, err = tx.GetBudget(ctx, id, actor)
		return err
	})
	return b, err
}

func (s *BudgetService) List(ctx context.Context, actor string, page core.Page) ([]core.Budget, error) {
	var out []core.Budget
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		out, err = tx.ListBudgets(ctx, actor, page.Normalize())
		return err
	})
	if err != nil {
		return nil, wrap("list budgets", err)
	}
	if out == nil {
		out = []core.Budget{}
	}
	return out, nil
}

func (s *BudgetService) Update(ctx context.Context, actor, id string, u core.BudgetUpdate) (core.Budget, error) {
	if u.StartDate != nil {
		d := truncate(*u.StartDate)
		u.StartDate = &d
	}
	if u.EndDate != nil {
		d := truncate(*u.EndDate)
		u.EndDate = &d
	}
	var b core.Budget
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		b, err = tx.GetBudget(ctx, id, actor)
		if err != nil {
			return err
		}
		if err := u.Apply(&b); err != nil {
			return err
		}
		b.UpdatedAt = s.stamp()
		return tx.UpdateBudget(ctx, b)
	})
	if err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (s *BudgetService) Delete(ctx context.Context, actor, id string) error {
	return s.store.Update(ctx, func(tx storage.Tx) error {
		return tx.DeleteBudget(ctx, id, actor)
	})
}

// Status reports what the actor has spent in the budget's category inside
// its window.
func (s *BudgetService) Status(ctx context.Context, actor, id string) (core.BudgetStatus, error) {
	var st core.BudgetStatus
	err := s.store.View(ctx, func(tx storage.Tx) error {
		b, err := tx.GetBudget(ctx, id, actor)
		if err != nil {
			return err
		}
		spent, err := tx.SumExpenses(ctx, storage.SpendQuery{
			UserID:   actor,
			Category: b.Category,
			From:     b.StartDate,
			To:       b.EndDate,
		})
		if err != nil {
			return err
		}
		st = core.NewBudgetStatus(b, spent)
		return nil
	})
	return st, err
}
