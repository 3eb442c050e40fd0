package services

import (
	"context"
	"fmt"
	"strings"

	"fintrack/internal/access"
	"fintrack/internal/core"
	"fintrack/internal/events"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// ExpenseService records spending against wallets. An expense debits its
// wallet at creation and every later change is reconciled in the same unit
// of work that makes it.
type ExpenseService struct {
	base
}

func NewExpenseService(store storage.Store, opts Options) *ExpenseService {
	return &ExpenseService{base: newBase(store, opts, applog.ComponentExpense)}
}

// Create records an expense and debits its wallet.
func (s *ExpenseService) Create(ctx context.Context, actor string, in core.NewExpense) (core.Expense, error) {
	now := s.stamp()
	if err := in.Normalize(now); err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		ID:          newID(),
		Amount:      in.Amount,
		Description: in.Description,
		Category:    in.Category,
		Date:        truncate(in.Date),
		WalletID:    in.WalletID,
		UserID:      actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		if _, _, err := access.RequireWrite(ctx, tx, e.WalletID, actor); err != nil {
			return err
		}
		if err := tx.CreateExpense(ctx, e); err != nil {
			return fmt.Errorf("save expense: %w", err)
		}
		return s.ledger.Adjust(ctx, tx, e.WalletID, e.Amount.Neg())
	})
	if err != nil {
		return core.Expense{}, err
	}

	s.logger(ctx).InfoContext(ctx, "Expense created",
		applog.NewFields().WithExpense(e.ID, e.WalletID, e.Amount.Cents, e.Category).WithUser(actor).ToSlice()...)
	s.publish(ctx, events.ForExpense(events.ExpenseCreated, actor, e))
	return e, nil
}

// Get returns an expense on a wallet the actor can read.
func (s *ExpenseService) Get(ctx context.Context, actor, id string) (core.Expense, error) {
	var e core.Expense
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		e, err = tx.GetExpense(ctx, id)
		if err != nil {
			return err
		}
		_, _, err = access.RequireRead(ctx, tx, e.WalletID, actor)
		return err
	})
	if err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

// List returns expenses newest first. Without a wallet filter it covers every
// wallet the actor owns or shares.
func (s *ExpenseService) List(ctx context.Context, actor string, f core.ExpenseFilter) ([]core.Expense, error) {
	q := storage.ExpenseQuery{
		WalletID:     strings.TrimSpace(f.WalletID),
		AccessibleTo: actor,
		StartDate:    truncate(f.StartDate),
		EndDate:      truncate(f.EndDate),
		Category:     strings.TrimSpace(f.Category),
		Page:         f.Page.Normalize(),
	}
	var out []core.Expense
	err := s.store.View(ctx, func(tx storage.Tx) error {
		if q.WalletID != "" {
			if _, _, err := access.RequireRead(ctx, tx, q.WalletID, actor); err != nil {
				return err
			}
		}
		var err error
		out, err = tx.ListExpenses(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.Expense{}
	}
	return out, nil
}

// Update applies a partial change. Only the creator may edit an expense, and
// the balance effect is reconciled in one of two ways: a wallet move refunds
// the old wallet and debits the new one with the resulting amount, while an
// amount change on the same wallet applies the difference.
func (s *ExpenseService) Update(ctx context.Context, actor, id string, u core.ExpenseUpdate) (core.Expense, error) {
	if u.WalletID != nil {
		trimmed := strings.TrimSpace(*u.WalletID)
		if trimmed == "" {
			return core.Expense{}, core.ErrMissingWallet
		}
		u.WalletID = &trimmed
	}
	if u.Date != nil {
		d := truncate(*u.Date)
		u.Date = &d
	}

	var e core.Expense
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		e, err = tx.GetExpense(ctx, id)
		if err != nil {
			return err
		}
		if _, _, err := access.RequireWrite(ctx, tx, e.WalletID, actor); err != nil {
			return err
		}
		if e.UserID != actor {
			return fmt.Errorf("expense %s: only its creator may edit it: %w", id, core.ErrForbidden)
		}

		old := e
		moved := u.MovesWallet(old.WalletID)
		if moved {
			if _, _, err := access.RequireWrite(ctx, tx, *u.WalletID, actor); err != nil {
				return err
			}
		}
		u.Apply(&e)
		e.UpdatedAt = s.stamp()

		switch {
		case moved:
			if err := s.ledger.Adjust(ctx, tx, old.WalletID, old.Amount); err != nil {
				return err
			}
			if err := s.ledger.Adjust(ctx, tx, e.WalletID, e.Amount.Neg()); err != nil {
				return err
			}
		case e.Amount != old.Amount:
			if err := s.ledger.Adjust(ctx, tx, e.WalletID, old.Amount.Sub(e.Amount)); err != nil {
				return err
			}
		}
		return tx.UpdateExpense(ctx, e)
	})
	if err != nil {
		return core.Expense{}, err
	}

	s.logger(ctx).InfoContext(ctx, "Expense updated",
		applog.NewFields().WithExpense(e.ID, e.WalletID, e.Amount.Cents, e.Category).WithUser(actor).ToSlice()...)
	s.publish(ctx, events.ForExpense(events.ExpenseUpdated, actor, e))
	return e, nil
}

// Delete refunds the wallet and removes the expense. The creator or the
// wallet owner may delete.
func (s *ExpenseService) Delete(ctx context.Context, actor, id string) error {
	var e core.Expense
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		e, err = tx.GetExpense(ctx, id)
		if err != nil {
			return err
		}
		_, role, err := access.RequireRead(ctx, tx, e.WalletID, actor)
		if err != nil {
			return err
		}
		if e.UserID != actor && role != access.Owner {
			return fmt.Errorf("expense %s: %w", id, core.ErrForbidden)
		}
		if err := s.ledger.Adjust(ctx, tx, e.WalletID, e.Amount); err != nil {
			return err
		}
		return tx.DeleteExpense(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger(ctx).InfoContext(ctx, "Expense deleted",
		applog.NewFields().WithExpense(e.ID, e.WalletID, e.Amount.Cents, e.Category).WithUser(actor).ToSlice()...)
	s.publish(ctx, events.ForExpense(events.ExpenseDeleted, actor, e))
	return nil
}
