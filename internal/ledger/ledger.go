// Package ledger is the only code path that changes wallet balances.
package ledger

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Ledger applies balance changes inside a caller-owned unit of work.
type Ledger struct {
	now func() time.Time
}

// New returns a Ledger. A nil clock defaults to time.Now.
func New(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{now: now}
}

// Deposit adds a strictly positive amount to the wallet.
func (l *Ledger) Deposit(ctx context.Context, tx storage.Tx, walletID string, amount core.Money) error {
	if err := amount.Validate(); err != nil {
		return err
	}
	return l.Adjust(ctx, tx, walletID, amount)
}

// Adjust adds a signed delta; the balance may go negative. A delta that would
// push the balance out of range is refused with core.ErrInvalidAmount.
func (l *Ledger) Adjust(ctx context.Context, tx storage.Tx, walletID string, delta core.Money) error {
	if delta.IsZero() {
		return nil
	}
	w, err := tx.GetWallet(ctx, walletID)
	if err != nil {
		return fmt.Errorf("adjust wallet %s: %w", walletID, err)
	}
	if _, err := w.Balance.CheckedAdd(delta); err != nil {
		return fmt.Errorf("adjust wallet %s: %w", walletID, err)
	}
	if err := tx.AdjustWalletBalance(ctx, walletID, delta, l.now().UTC().Truncate(time.Millisecond)); err != nil {
		return fmt.Errorf("adjust wallet %s by %s: %w", walletID, delta, err)
	}
	return nil
}

// Withdraw removes amount from w, refusing to overdraw it. w must have been
// read inside the same unit of work.
func (l *Ledger) Withdraw(ctx context.Context, tx storage.Tx, w core.Wallet, amount core.Money) error {
	if err := amount.Validate(); err != nil {
		return err
	}
	if w.Balance.LessThan(amount) {
		return fmt.Errorf("wallet %s holds %s, need %s: %w", w.ID, w.Balance, amount, core.ErrInsufficientFunds)
	}
	return l.Adjust(ctx, tx, w.ID, amount.Neg())
}
