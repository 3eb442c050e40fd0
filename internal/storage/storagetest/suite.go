// Package storagetest holds the behaviour every storage.Store must share.
// Backends run it from their own tests.
package storagetest

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// StoreSuite runs against a fresh store per test.
type StoreSuite struct {
	suite.Suite
	Open  func() storage.Store
	store storage.Store
	ctx   context.Context
	base  time.Time
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.Open()
	s.base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *StoreSuite) TearDownTest() {
	if s.store != nil {
		s.store.Close()
	}
}

func (s *StoreSuite) update(fn func(storage.Tx) error) {
	require.NoError(s.T(), s.store.Update(s.ctx, fn))
}

func (s *StoreSuite) user(email string) core.User {
	u := core.User{ID: uuid.NewString(), Email: email, PasswordHash: "x", CreatedAt: s.base, UpdatedAt: s.base}
	s.update(func(tx storage.Tx) error { return tx.CreateUser(s.ctx, u) })
	return u
}

func (s *StoreSuite) wallet(owner string, balance int64, members ...string) core.Wallet {
	w := core.Wallet{
		ID: uuid.NewString(), Name: "w", Type: core.WalletPersonal, Balance: core.NewMoney(balance),
		Currency: "INR", OwnerID: owner, SharedWith: members, CreatedAt: s.base, UpdatedAt: s.base,
	}
	s.update(func(tx storage.Tx) error { return tx.CreateWallet(s.ctx, w) })
	return w
}

func (s *StoreSuite) TestUsers() {
	u := s.user("Ann@Example.com")

	err := s.store.View(s.ctx, func(tx storage.Tx) error {
		got, err := tx.GetUserByEmail(s.ctx, "ann@example.com")
		require.NoError(s.T(), err)
		assert.Equal(s.T(), u.ID, got.ID)

		existing, err := tx.ExistingUsers(s.ctx, []string{u.ID, "missing"})
		require.NoError(s.T(), err)
		assert.Equal(s.T(), []string{u.ID}, existing)

		_, err = tx.GetUser(s.ctx, "missing")
		assert.ErrorIs(s.T(), err, storage.ErrNotFound)
		return nil
	})
	require.NoError(s.T(), err)

	dup := core.User{ID: uuid.NewString(), Email: "ann@example.com", PasswordHash: "y", CreatedAt: s.base, UpdatedAt: s.base}
	err = s.store.Update(s.ctx, func(tx storage.Tx) error { return tx.CreateUser(s.ctx, dup) })
	assert.ErrorIs(s.T(), err, storage.ErrConflict)
}

func (s *StoreSuite) TestWalletMembersAndListing() {
	owner := s.user("owner@example.com")
	friend := s.user("friend@example.com")
	stranger := s.user("stranger@example.com")

	shared := s.wallet(owner.ID, 0, friend.ID)
	s.wallet(owner.ID, 0)

	s.Require().NoError(s.store.View(s.ctx, func(tx storage.Tx) error {
		got, err := tx.GetWallet(s.ctx, shared.ID)
		require.NoError(s.T(), err)
		assert.Equal(s.T(), []string{friend.ID}, got.SharedWith)

		ok, err := tx.IsMember(s.ctx, shared.ID, friend.ID)
		require.NoError(s.T(), err)
		assert.True(s.T(), ok)
		ok, err = tx.IsMember(s.ctx, shared.ID, stranger.ID)
		require.NoError(s.T(), err)
		assert.False(s.T(), ok)

		mine, err := tx.ListWallets(s.ctx, owner.ID, core.Page{})
		require.NoError(s.T(), err)
		assert.Len(s.T(), mine, 2)

		theirs, err := tx.ListWallets(s.ctx, friend.ID, core.Page{})
		require.NoError(s.T(), err)
		require.Len(s.T(), theirs, 1)
		assert.Equal(s.T(), shared.ID, theirs[0].ID)

		none, err := tx.ListWallets(s.ctx, stranger.ID, core.Page{})
		require.NoError(s.T(), err)
		assert.Empty(s.T(), none)

		page, err := tx.ListWallets(s.ctx, owner.ID, core.Page{Skip: 1, Limit: 5})
		require.NoError(s.T(), err)
		assert.Len(s.T(), page, 1)
		return nil
	}))

	s.update(func(tx storage.Tx) error { return tx.DeleteWallet(s.ctx, shared.ID) })
	s.Require().NoError(s.store.View(s.ctx, func(tx storage.Tx) error {
		_, err := tx.GetWallet(s.ctx, shared.ID)
		assert.ErrorIs(s.T(), err, storage.ErrNotFound)
		ok, err := tx.IsMember(s.ctx, shared.ID, friend.ID)
		require.NoError(s.T(), err)
		assert.False(s.T(), ok, "memberships go with the wallet")
		return nil
	}))
}

func (s *StoreSuite) TestAdjustBalance() {
	owner := s.user("owner@example.com")
	w := s.wallet(owner.ID, 1000)

	s.update(func(tx storage.Tx) error {
		if err := tx.AdjustWalletBalance(s.ctx, w.ID, core.NewMoney(-1500), s.base); err != nil {
			return err
		}
		return tx.AdjustWalletBalance(s.ctx, w.ID, core.NewMoney(250), s.base)
	})
	s.Require().NoError(s.store.View(s.ctx, func(tx storage.Tx) error {
		got, err := tx.GetWallet(s.ctx, w.ID)
		require.NoError(s.T(), err)
		assert.Equal(s.T(), int64(-250), got.Balance.Cents)
		return nil
	}))

	err := s.store.Update(s.ctx, func(tx storage.Tx) error {
		return tx.AdjustWalletBalance(s.ctx, "missing", core.NewMoney(1), s.base)
	})
	assert.ErrorIs(s.T(), err, storage.ErrNotFound)
}

// Balances near the int64 limit must survive storage untouched.
func (s *StoreSuite) TestLargeBalanceRoundTrip() {
	owner := s.user("owner@example.com")
	w := s.wallet(owner.ID, math.MaxInt64-50)

	s.update(func(tx storage.Tx) error {
		return tx.AdjustWalletBalance(s.ctx, w.ID, core.NewMoney(50), s.base)
	})
	s.Require().NoError(s.store.View(s.ctx, func(tx storage.Tx) error {
		got, err := tx.GetWallet(s.ctx, w.ID)
		require.NoError(s.T(), err)
		assert.Equal(s.T(), int64(math.MaxInt64), got.Balance.Cents)
		return nil
	}))
}

func (s *StoreSuite) TestUpdateRollsBack() {
	owner := s.user("owner@example.com")
	w := s.wallet(owner.ID, 1000)
	boom := errors.New("boom")

	err := s.store.Update(s.ctx, func(tx storage.Tx) error {
		if err := tx.AdjustWalletBalance(s.ctx, w.ID, core.NewMoney(-400), s.base); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(s.T(), err, boom)

	s.Require().NoError(s.store.View(s.ctx, func(tx storage.Tx) error {
		got, err := tx.GetWallet(s.ctx, w.ID)
		require.NoError(s.T(), err)
		assert.Equal(s.T(), int64(1000), got.Balance.Cents)
		return nil
	}))
}

func (s *StoreSuite) TestConcurrentAdjustments() {
	owner := s.user("owner@example.com")
	w := s.wallet(owner.ID, 0)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.store.Update(s.ctx, func(tx storage.Tx) error {
				return tx.AdjustWalletBalance(s.ctx, w.ID, core.NewMoney(-100), s.base)
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(s.T(), err)
	}

	s.Require().NoError(s.store.View(s.ctx, func(tx storage.Tx) error {
		got, err := tx.GetWallet(s.ctx, w.ID)
		require.NoError(s.T(), err)
		assert.Equal(s.T(), int64(-100*workers), got.Balance.Cents)
		return nil
	}))
}

func (s *StoreSuite) TestExpenseQueries() {
	owner := s.user("owner@example.com")
	friend := s.user("friend@example.com")
	mine := s.wallet(owner.ID, 0)
	shared := s.wallet(friend.ID, 0, owner.ID)
	other := s.wallet(friend.ID, 0)

	add := func(walletID, userID, category string, day int, cents int64) core.Expense {
		e := core.Expense{
			ID: uuid.NewString(), Amount: core.NewMoney(cents), Category: category,
			Date: s.base.AddDate(0, 0, day), WalletID: walletID, UserID: userID,
			CreatedAt: s.base, UpdatedAt: s.base,
		}
		s.update(func(tx storage.Tx) error { return tx.CreateExpense(s.ctx, e) })
		return e
	}
	add(mine.ID, owner.ID, "food", 0, 100)
	add(mine.ID, owner.ID, "rent", 1, 200)
	add(shared.ID, friend.ID, "food", 2, 300)
	add(other.ID, friend.ID, "food", 3, 400)

	s.Require().NoError(s.store.View(s.ctx, func(tx storage.Tx) error {
		all, err := tx.ListExpenses(s.ctx, storage.ExpenseQuery{AccessibleTo: owner.ID})
		require.NoError(s.T(), err)
		require.Len(s.T(), all, 3)
		assert.Equal(s.T(), int64(300), all[0].Amount.Cents, "newest first")

		food, err := tx.ListExpenses(s.ctx, storage.ExpenseQuery{AccessibleTo: owner.ID, Category: "food"})
		require.NoError(s.T(), err)
		assert.Len(s.T(), food, 2)

		window, err := tx.ListExpenses(s.ctx, storage.ExpenseQuery{
			WalletID: mine.ID, StartDate: s.base.AddDate(0, 0, 1), EndDate: s.base.AddDate(0, 0, 1),
		})
		require.NoError(s.T(), err)
		require.Len(s.T(), window, 1)
		assert.Equal(s.T(), "rent", window[0].Category)

		n, err := tx.CountWalletExpenses(s.ctx, mine.ID)
		require.NoError(s.T(), err)
		assert.Equal(s.T(), 2, n)

		sum, err := tx.SumExpenses(s.ctx, storage.SpendQuery{
			UserID: friend.ID, Category: "food", From: s.base, To: s.base.AddDate(0, 0, 3),
		})
		require.NoError(s.T(), err)
		assert.Equal(s.T(), int64(700), sum.Cents)
		return nil
	}))
}

func (s *StoreSuite) TestExpenseUpdateDelete() {
	owner := s.user("owner@example.com")
	a := s.wallet(owner.ID, 0)
	b := s.wallet(owner.ID, 0)
	e := core.Expense{
		ID: uuid.NewString(), Amount: core.NewMoney(500), Description: "lunch", Date: s.base,
		WalletID: a.ID, UserID: owner.ID, CreatedAt: s.base, UpdatedAt: s.base,
	}
	s.update(func(tx storage.Tx) error { return tx.CreateExpense(s.ctx, e) })

	e.WalletID = b.ID
	e.Amount = core.NewMoney(700)
	s.update(func(tx storage.Tx) error { return tx.UpdateExpense(s.ctx, e) })
	s.Require().NoError(s.store.View(s.ctx, func(tx storage.Tx) error {
		got, err := tx.GetExpense(s.ctx, e.ID)
		require.NoError(s.T(), err)
		assert.Equal(s.T(), b.ID, got.WalletID)
		assert.Equal(s.T(), int64(700), got.Amount.Cents)
		assert.True(s.T(), got.Date.Equal(s.base))
		return nil
	}))

	s.update(func(tx storage.Tx) error { return tx.DeleteExpense(s.ctx, e.ID) })
	err := s.store.Update(s.ctx, func(tx storage.Tx) error { return tx.DeleteExpense(s.ctx, e.ID) })
	assert.ErrorIs(s.T(), err, storage.ErrNotFound)
}

func (s *StoreSuite) TestGoalsScopedByOwner() {
	owner := s.user("owner@example.com")
	other := s.user("other@example.com")
	deadline := s.base.AddDate(0, 6, 0)
	g := core.Goal{
		ID: uuid.NewString(), Name: "Trip", TargetAmount: core.NewMoney(10000), Deadline: &deadline,
		UserID: owner.ID, CreatedAt: s.base, UpdatedAt: s.base,
	}
	s.update(func(tx storage.Tx) error { return tx.CreateGoal(s.ctx, g) })

	s.Require().NoError(s.store.View(s.ctx, func(tx storage.Tx) error {
		got, err := tx.GetGoal(s.ctx, g.ID, owner.ID)
		require.NoError(s.T(), err)
		require.NotNil(s.T(), got.Deadline)
		assert.True(s.T(), got.Deadline.Equal(deadline))

		_, err = tx.GetGoal(s.ctx, g.ID, other.ID)
		assert.ErrorIs(s.T(), err, storage.ErrNotFound)

		list, err := tx.ListGoals(s.ctx, other.ID, core.Page{})
		require.NoError(s.T(), err)
		assert.Empty(s.T(), list)
		return nil
	}))

	g.CurrentAmount = core.NewMoney(10000)
	g.IsCompleted = true
	s.update(func(tx storage.Tx) error { return tx.UpdateGoal(s.ctx, g) })
	s.Require().NoError(s.store.View(s.ctx, func(tx storage.Tx) error {
		got, err := tx.GetGoal(s.ctx, g.ID, owner.ID)
		require.NoError(s.T(), err)
		assert.True(s.T(), got.IsCompleted)
		return nil
	}))

	err := s.store.Update(s.ctx, func(tx storage.Tx) error { return tx.DeleteGoal(s.ctx, g.ID, other.ID) })
	assert.ErrorIs(s.T(), err, storage.ErrNotFound)
	s.update(func(tx storage.Tx) error { return tx.DeleteGoal(s.ctx, g.ID, owner.ID) })
}

func (s *StoreSuite) TestBudgets() {
	owner := s.user("owner@example.com")
	b := core.Budget{
		ID: uuid.NewString(), Category: "food", Amount: core.NewMoney(5000),
		StartDate: s.base, EndDate: s.base.AddDate(0, 1, 0), UserID: owner.ID,
		CreatedAt: s.base, UpdatedAt: s.base,
	}
	s.update(func(tx storage.Tx) error { return tx.CreateBudget(s.ctx, b) })

	s.Require().NoError(s.store.View(s.ctx, func(tx storage.Tx) error {
		covering, err := tx.BudgetsCovering(s.ctx, owner.ID, "food", s.base.AddDate(0, 0, 10))
		require.NoError(s.T(), err)
		assert.Len(s.T(), covering, 1)

		outside, err := tx.BudgetsCovering(s.ctx, owner.ID, "food", s.base.AddDate(0, 2, 0))
		require.NoError(s.T(), err)
		assert.Empty(s.T(), outside)

		list, err := tx.ListBudgets(s.ctx, owner.ID, core.Page{})
		require.NoError(s.T(), err)
		assert.Len(s.T(), list, 1)
		return nil
	}))

	b.Amount = core.NewMoney(6000)
	s.update(func(tx storage.Tx) error { return tx.UpdateBudget(s.ctx, b) })
	s.update(func(tx storage.Tx) error { return tx.DeleteBudget(s.ctx, b.ID, owner.ID) })
	err := s.store.View(s.ctx, func(tx storage.Tx) error {
		_, err := tx.GetBudget(s.ctx, b.ID, owner.ID)
		return err
	})
	assert.ErrorIs(s.T(), err, storage.ErrNotFound)
}

func (s *StoreSuite) TestEpochTimesRoundTrip() {
	owner := s.user("owner@example.com")
	w := s.wallet(owner.ID, 0)
	epoch := time.Unix(0, 0).UTC()

	b := core.Budget{
		ID: uuid.NewString(), Category: "food", Amount: core.NewMoney(5000),
		StartDate: epoch, EndDate: epoch.AddDate(0, 1, 0), UserID: owner.ID,
		CreatedAt: s.base, UpdatedAt: s.base,
	}
	e := core.Expense{
		ID: uuid.NewString(), Amount: core.NewMoney(100), Category: "food", Date: epoch,
		WalletID: w.ID, UserID: owner.ID, CreatedAt: s.base, UpdatedAt: s.base,
	}
	s.update(func(tx storage.Tx) error {
		if err := tx.CreateBudget(s.ctx, b); err != nil {
			return err
		}
		return tx.CreateExpense(s.ctx, e)
	})

	s.Require().NoError(s.store.View(s.ctx, func(tx storage.Tx) error {
		got, err := tx.GetBudget(s.ctx, b.ID, owner.ID)
		require.NoError(s.T(), err)
		assert.False(s.T(), got.StartDate.IsZero())
		assert.True(s.T(), got.StartDate.Equal(epoch))

		exp, err := tx.GetExpense(s.ctx, e.ID)
		require.NoError(s.T(), err)
		assert.False(s.T(), exp.Date.IsZero())
		assert.True(s.T(), exp.Date.Equal(epoch))

		covering, err := tx.BudgetsCovering(s.ctx, owner.ID, "food", epoch)
		require.NoError(s.T(), err)
		assert.Len(s.T(), covering, 1)
		return nil
	}))
}
