package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	WalletPersonal WalletType = "personal"
	WalletShared   WalletType = "shared"
	WalletBusiness WalletType = "business"

	DefaultCurrency = "INR"
)

type (
	WalletType string

	User struct {
		ID           string    `json:"id"`
		Email        string    `json:"email"`
		FullName     string    `json:"full_name,omitempty"`
		PasswordHash string    `json:"-"`
		CreatedAt    time.Time `json:"created_at"`
		UpdatedAt    time.Time `json:"updated_at"`
	}

	Wallet struct {
		ID          string     `json:"id"`
		Name        string     `json:"name"`
		Type        WalletType `json:"type"`
		Balance     Money      `json:"balance"`
		Currency    string     `json:"currency"`
		Description string     `json:"description,omitempty"`
		OwnerID     string     `json:"owner_id"`
		SharedWith  []string   `json:"shared_with"`
		CreatedAt   time.Time  `json:"created_at"`
		UpdatedAt   time.Time  `json:"updated_at"`
	}

	Expense struct {
		ID          string    `json:"id"`
		Amount      Money     `json:"amount"`
		Description string    `json:"description,omitempty"`
		Category    string    `json:"category,omitempty"`
		Date        time.Time `json:"date"`
		WalletID    string    `json:"wallet_id"`
		UserID      string    `json:"user_id"` // creator, never changes
		CreatedAt   time.Time `json:"created_at"`
		UpdatedAt   time.Time `json:"updated_at"`
	}

	Goal struct {
		ID            string     `json:"id"`
		Name          string     `json:"name"`
		Description   string     `json:"description,omitempty"`
		TargetAmount  Money      `json:"target_amount"`
		CurrentAmount Money      `json:"current_amount"`
		Deadline      *time.Time `json:"deadline,omitempty"`
		Category      string     `json:"category,omitempty"`
		IsCompleted   bool       `json:"is_completed"`
		UserID        string     `json:"user_id"`
		CreatedAt     time.Time  `json:"created_at"`
		UpdatedAt     time.Time  `json:"updated_at"`
	}

	Budget struct {
		ID        string    `json:"id"`
		Category  string    `json:"category"`
		Amount    Money     `json:"amount"`
		StartDate time.Time `json:"start_date"`
		EndDate   time.Time `json:"end_date"`
		UserID    string    `json:"user_id"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}
)

var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidState      = errors.New("invalid state")
	ErrWalletNotEmpty    = errors.New("wallet still has expenses")
	ErrEmailTaken        = errors.New("email already registered")

	// ErrInvalidInput is wrapped by every field validation error below.
	ErrInvalidInput      = errors.New("invalid input")
	ErrEmptyName         = fmt.Errorf("%w: empty name", ErrInvalidInput)
	ErrInvalidWalletType = fmt.Errorf("%w: unknown wallet type", ErrInvalidInput)
	ErrEmptyCategory     = fmt.Errorf("%w: empty category", ErrInvalidInput)
	ErrMissingWallet     = fmt.Errorf("%w: wallet_id is required", ErrInvalidInput)
	ErrInvalidPeriod     = fmt.Errorf("%w: invalid budget period", ErrInvalidInput)
	ErrInvalidEmail      = fmt.Errorf("%w: invalid email", ErrInvalidInput)
	ErrEmptyPassword     = fmt.Errorf("%w: empty password", ErrInvalidInput)
)

func (t WalletType) Validate() error {
	switch t {
	case WalletPersonal, WalletShared, WalletBusiness:
		return nil
	}
	return ErrInvalidWalletType
}

// IsSharedWith reports whether userID is in the wallet's member list.
func (w Wallet) IsSharedWith(userID string) bool {
	for _, id := range w.SharedWith {
		if id == userID {
			return true
		}
	}
	return false
}

// Reached reports whether the goal's current amount meets its target.
func (g Goal) Reached() bool {
	return g.CurrentAmount.Cents >= g.TargetAmount.Cents
}

// Contains reports whether t falls inside the budget window, inclusive.
func (b Budget) Contains(t time.Time) bool {
	return !t.Before(b.StartDate) && !t.After(b.EndDate)
}

func normalizeText(s string) string {
	return strings.TrimSpace(s)
}
