// Package access decides what a user may do with a wallet.
package access

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Role is a user's relationship to a wallet.
type Role int

const (
	NoAccess Role = iota
	SharedMember
	Owner
)

func (r Role) String() string {
	switch r {
	case Owner:
		return "owner"
	case SharedMember:
		return "shared_member"
	default:
		return "no_access"
	}
}

// CanRead is true for owners and shared members.
func (r Role) CanRead() bool { return r >= SharedMember }

// CanWrite is true for owners and shared members. Expense writes and
// deposits use it.
func (r Role) CanWrite() bool { return r >= SharedMember }

// Resolve derives the role. Ownership wins over membership.
func Resolve(w core.Wallet, userID string, isMember bool) Role {
	switch {
	case userID != "" && w.OwnerID == userID:
		return Owner
	case isMember:
		return SharedMember
	default:
		return NoAccess
	}
}

// Wallet loads walletID and resolves userID's role on it. A missing wallet is
// core.ErrNotFound regardless of the caller, so existence is checked before
// access.
func Wallet(ctx context.Context, tx storage.Tx, walletID, userID string) (core.Wallet, Role, error) {
	w, err := tx.GetWallet(ctx, walletID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Wallet{}, NoAccess, fmt.Errorf("wallet %s: %w", walletID, core.ErrNotFound)
		}
		return core.Wallet{}, NoAccess, err
	}
	if w.OwnerID == userID {
		return w, Owner, nil
	}
	member, err := tx.IsMember(ctx, walletID, userID)
	if err != nil {
		return core.Wallet{}, NoAccess, err
	}
	return w, Resolve(w, userID, member), nil
}

// RequireRead loads the wallet and fails with core.ErrForbidden unless the
// user can read it.
func RequireRead(ctx context.Context, tx storage.Tx, walletID, userID string) (core.Wallet, Role, error) {
	w, role, err := Wallet(ctx, tx, walletID, userID)
	if err != nil {
		return w, role, err
	}
	if !role.CanRead() {
		return w, role, fmt.Errorf("wallet %s: %w", walletID, core.ErrForbidden)
	}
	return w, role, nil
}

// RequireWrite loads the wallet and fails with core.ErrForbidden unless the
// user may record expenses or deposits on it.
func RequireWrite(ctx context.Context, tx storage.Tx, walletID, userID string) (core.Wallet, Role, error) {
	w, role, err := Wallet(ctx, tx, walletID, userID)
	if err != nil {
		return w, role, err
	}
	if !role.CanWrite() {
		return w, role, fmt.Errorf("wallet %s: %w", walletID, core.ErrForbidden)
	}
	return w, role, nil
}

// RequireOwner loads the wallet and fails with core.ErrForbidden unless the
// user can read it and owns it.
func RequireOwner(ctx context.Context, tx storage.Tx, walletID, userID string) (core.Wallet, error) {
	w, role, err := RequireRead(ctx, tx, walletID, userID)
	if err != nil {
		return w, err
	}
	if role != Owner {
		return w, fmt.Errorf("wallet %s: only the owner may do this: %w", walletID, core.ErrForbidden)
	}
	return w, nil
}
