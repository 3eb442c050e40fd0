// Package storage defines the transactional persistence contract shared by
// the SQL and in-memory backends.
package storage

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/core"
)

var (
	// ErrNotFound is returned when a row addressed by id does not exist.
	ErrNotFound = core.ErrNotFound
	// ErrConflict is returned on unique constraint violations.
	ErrConflict = errors.New("storage conflict")
)

// Store runs units of work. Update commits only when fn returns nil.
type Store interface {
	View(ctx context.Context, fn func(Tx) error) error
	Update(ctx context.Context, fn func(Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}

// ExpenseQuery selects expenses for a listing. When WalletID is empty the
// listing covers every wallet AccessibleTo can read.
type ExpenseQuery struct {
	WalletID     string
	AccessibleTo string
	StartDate    time.Time
	EndDate      time.Time
	Category     string
	Page         core.Page
}

// SpendQuery sums one user's expenses in a category over an inclusive window.
type SpendQuery struct {
	UserID   string
	Category string
	From     time.Time
	To       time.Time
}

// Tx is the set of operations available inside a unit of work.
type Tx interface {
	CreateUser(ctx context.Context, u core.User) error
	GetUser(ctx context.Context, id string) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	// ExistingUsers returns the subset of ids that name a user.
	ExistingUsers(ctx context.Context, ids []string) ([]string, error)

	CreateWallet(ctx context.Context, w core.Wallet) error
	// GetWallet returns the wallet with SharedWith populated.
	GetWallet(ctx context.Context, id string) (core.Wallet, error)
	ListWallets(ctx context.Context, userID string, page core.Page) ([]core.Wallet, error)
	DeleteWallet(ctx context.Context, id string) error
	// AdjustWalletBalance adds delta to the balance in a single statement.
	AdjustWalletBalance(ctx context.Context, id string, delta core.Money, at time.Time) error
	IsMember(ctx context.Context, walletID, userID string) (bool, error)
	CountWalletExpenses(ctx context.Context, walletID string) (int, error)

	CreateExpense(ctx context.Context, e core.Expense) error
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	ListExpenses(ctx context.Context, q ExpenseQuery) ([]core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) error
	DeleteExpense(ctx context.Context, id string) error
	SumExpenses(ctx context.Context, q SpendQuery) (core.Money, error)

	CreateGoal(ctx context.Context, g core.Goal) error
	GetGoal(ctx context.Context, id, userID string) (core.Goal, error)
	ListGoals(ctx context.Context, userID string, page core.Page) ([]core.Goal, error)
	UpdateGoal(ctx context.Context, g core.Goal) error
	DeleteGoal(ctx context.Context, id, userID string) error

	CreateBudget(ctx context.Context, b core.Budget) error
	GetBudget(ctx context.Context, id, userID string) (core.Budget, error)
	ListBudgets(ctx context.Context, userID string, page core.Page) ([]core.Budget, error)
	// BudgetsCovering lists a user's budgets in category whose window contains at.
	BudgetsCovering(ctx context.Context, userID, category string, at time.Time) ([]core.Budget, error)
	UpdateBudget(ctx context.Context, b core.Budget) error
	DeleteBudget(ctx context.Context, id, userID string) error
}
