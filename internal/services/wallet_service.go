package services

import (
	"context"
	"strings"

	"fintrack/internal/access"
	"fintrack/internal/core"
	"fintrack/internal/events"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

type WalletService struct {
	base
}

func NewWalletService(store storage.Store, opts Options) *WalletService {
	return &WalletService{base: newBase(store, opts, applog.ComponentWallet)}
}

// List returns the wallets the actor owns or is a member of.
func (s *WalletService) List(ctx context.Context, actor string, page core.Page) ([]core.Wallet, error) {
	var out []core.Wallet
	err := s.store.View(ctx, func(tx storage.Tx) error {
		ws, err := tx.ListWallets(ctx, actor, page.Normalize())
		out = ws
		return err
	})
	if err != nil {
		return nil, wrap("list wallets", err)
	}
	if out == nil {
		out = []core.Wallet{}
	}
	for i := range out {
		out[i] = withMemberList(out[i])
	}
	return out, nil
}

// Create stores a wallet owned by actor. Shared member ids that do not name
// an existing user are dropped.
func (s *WalletService) Create(ctx context.Context, actor string, in core.NewWallet) (core.Wallet, error) {
	if err := in.Normalize(); err != nil {
		return core.Wallet{}, err
	}
	now := s.stamp()
	w := core.Wallet{
		ID:          newID(),
		Name:        in.Name,
		Type:        in.Type,
		Balance:     in.Balance,
		Currency:    in.Currency,
		Description: in.Description,
		OwnerID:     actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		members, err := tx.ExistingUsers(ctx, memberCandidates(in.SharedWith, actor))
		if err != nil {
			return err
		}
		w.SharedWith = members
		return tx.CreateWallet(ctx, w)
	})
	if err != nil {
		return core.Wallet{}, wrap("create wallet", err)
	}

	s.logger(ctx).InfoContext(ctx, "Wallet created",
		applog.FieldWalletID, w.ID,
		applog.FieldUserID, actor,
		"members", len(w.SharedWith))

	ev := events.New(events.WalletCreated, actor)
	ev.WalletID = w.ID
	ev.Amount = w.Balance
	s.publish(ctx, ev)
	return withMemberList(w), nil
}

func (s *WalletService) Get(ctx context.Context, actor, walletID string) (core.Wallet, error) {
	var w core.Wallet
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		w, _, err = access.RequireRead(ctx, tx, walletID, actor)
		return err
	})
	if err != nil {
		return core.Wallet{}, err
	}
	return withMemberList(w), nil
}

// AddBalance deposits a positive amount. Owners and shared members may deposit.
func (s *WalletService) AddBalance(ctx context.Context, actor, walletID string, amount core.Money) (core.Wallet, error) {
	var w core.Wallet
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		if _, _, err := access.RequireWrite(ctx, tx, walletID, actor); err != nil {
			return err
		}
		if err := s.ledger.Deposit(ctx, tx, walletID, amount); err != nil {
			return err
		}
		var err error
		w, err = tx.GetWallet(ctx, walletID)
		return err
	})
	if err != nil {
		return core.Wallet{}, err
	}

	s.logger(ctx).InfoContext(ctx, "Wallet deposit",
		applog.FieldWalletID, walletID,
		applog.FieldUserID, actor,
		applog.FieldAmountCents, amount.Cents)

	ev := events.New(events.WalletDeposited, actor)
	ev.WalletID = walletID
	ev.Amount = amount
	s.publish(ctx, ev)
	return withMemberList(w), nil
}

// Delete removes an owned wallet and its memberships. Wallets that still have
// expenses are refused with core.ErrWalletNotEmpty.
func (s *WalletService) Delete(ctx context.Context, actor, walletID string) error {
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		if _, err := access.RequireOwner(ctx, tx, walletID, actor); err != nil {
			return err
		}
		n, err := tx.CountWalletExpenses(ctx, walletID)
		if err != nil {
			return err
		}
		if n > 0 {
			return core.ErrWalletNotEmpty
		}
		return tx.DeleteWallet(ctx, walletID)
	})
	if err != nil {
		return err
	}

	s.logger(ctx).InfoContext(ctx, "Wallet deleted",
		applog.FieldWalletID, walletID,
		applog.FieldUserID, actor)

	ev := events.New(events.WalletDeleted, actor)
	ev.WalletID = walletID
	s.publish(ctx, ev)
	return nil
}

// memberCandidates trims and dedupes ids, excluding the owner.
func memberCandidates(ids []string, owner string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || id == owner {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func withMemberList(w core.Wallet) core.Wallet {
	if w.SharedWith == nil {
		w.SharedWith = []string{}
	}
	return w
}
