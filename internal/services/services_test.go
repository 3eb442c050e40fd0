package services

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
	"fintrack/internal/storage/sqlstore"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
	fail   bool
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broker down")
	}
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type ServiceSuite struct {
	suite.Suite
	open func(t *testing.T) storage.Store

	ctx      context.Context
	store    storage.Store
	events   *recorder
	wallets  *WalletService
	expenses *ExpenseService
	goals    *GoalService
	budgets  *BudgetService

	alice, bob, carol string
}

func TestServicesMemory(t *testing.T) {
	suite.Run(t, &ServiceSuite{open: func(*testing.T) storage.Store { return memory.New() }})
}

func TestServicesSQLite(t *testing.T) {
	suite.Run(t, &ServiceSuite{open: func(t *testing.T) storage.Store {
		s, err := sqlstore.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "fintrack.db"))
		require.NoError(t, err)
		return s
	}})
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.open(s.T())
	s.events = &recorder{}
	clock := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	opts := Options{Publisher: s.events, Now: func() time.Time { return clock }}
	s.wallets = NewWalletService(s.store, opts)
	s.expenses = NewExpenseService(s.store, opts)
	s.goals = NewGoalService(s.store, opts)
	s.budgets = NewBudgetService(s.store, opts)

	s.alice = s.user("alice@example.com")
	s.bob = s.user("bob@example.com")
	s.carol = s.user("carol@example.com")
}

func (s *ServiceSuite) TearDownTest() {
	s.store.Close()
}

func (s *ServiceSuite) user(email string) string {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	u := core.User{ID: uuid.NewString(), Email: email, PasswordHash: "x", CreatedAt: now, UpdatedAt: now}
	require.NoError(s.T(), s.store.Update(s.ctx, func(tx storage.Tx) error { return tx.CreateUser(s.ctx, u) }))
	return u.ID
}

func (s *ServiceSuite) wallet(owner string, balance string, members ...string) core.Wallet {
	m, err := core.ParseMoney(balance)
	require.NoError(s.T(), err)
	w, err := s.wallets.Create(s.ctx, owner, core.NewWallet{Name: "Main", Balance: m, SharedWith: members})
	require.NoError(s.T(), err)
	return w
}

func (s *ServiceSuite) balance(id string) string {
	var w core.Wallet
	err := s.store.View(s.ctx, func(tx storage.Tx) error {
		var err error
		w, err = tx.GetWallet(s.ctx, id)
		return err
	})
	require.NoError(s.T(), err)
	return w.Balance.String()
}

func money(s string) core.Money {
	m, err := core.ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (s *ServiceSuite) TestWalletCreateDefaultsAndMembers() {
	w, err := s.wallets.Create(s.ctx, s.alice, core.NewWallet{
		Name:       "  Household ",
		SharedWith: []string{s.bob, s.bob, "ghost", s.alice, " "},
	})
	s.Require().NoError(err)
	s.Equal("Household", w.Name)
	s.Equal(core.WalletPersonal, w.Type)
	s.Equal(core.DefaultCurrency, w.Currency)
	s.Equal("0.00", w.Balance.String())
	s.Equal([]string{s.bob}, w.SharedWith)

	_, err = s.wallets.Create(s.ctx, s.alice, core.NewWallet{Name: "x", Type: "crypto"})
	s.ErrorIs(err, core.ErrInvalidWalletType)
	_, err = s.wallets.Create(s.ctx, s.alice, core.NewWallet{Name: " "})
	s.ErrorIs(err, core.ErrEmptyName)

	s.Equal([]events.Type{events.WalletCreated}, s.events.types())
}

func (s *ServiceSuite) TestWalletAccess() {
	w := s.wallet(s.alice, "10", s.bob)

	got, err := s.wallets.Get(s.ctx, s.bob, w.ID)
	s.Require().NoError(err)
	s.Equal(w.ID, got.ID)

	_, err = s.wallets.Get(s.ctx, s.carol, w.ID)
	s.ErrorIs(err, core.ErrForbidden)
	_, err = s.wallets.Get(s.ctx, s.carol, "missing")
	s.ErrorIs(err, core.ErrNotFound)

	list, err := s.wallets.List(s.ctx, s.bob, core.Page{})
	s.Require().NoError(err)
	s.Len(list, 1)
	list, err = s.wallets.List(s.ctx, s.carol, core.Page{})
	s.Require().NoError(err)
	s.Empty(list)
	s.NotNil(list)
}

func (s *ServiceSuite) TestAddBalance() {
	w := s.wallet(s.alice, "10", s.bob)

	got, err := s.wallets.AddBalance(s.ctx, s.bob, w.ID, money("5.25"))
	s.Require().NoError(err)
	s.Equal("15.25", got.Balance.String())

	_, err = s.wallets.AddBalance(s.ctx, s.alice, w.ID, money("0"))
	s.ErrorIs(err, core.ErrInvalidAmount)
	_, err = s.wallets.AddBalance(s.ctx, s.alice, w.ID, money("-1"))
	s.ErrorIs(err, core.ErrInvalidAmount)
	_, err = s.wallets.AddBalance(s.ctx, s.carol, w.ID, money("1"))
	s.ErrorIs(err, core.ErrForbidden)
	_, err = s.wallets.AddBalance(s.ctx, s.carol, "missing", money("1"))
	s.ErrorIs(err, core.ErrNotFound)

	s.Equal("15.25", s.balance(w.ID))
}

func (s *ServiceSuite) TestWalletDelete() {
	w := s.wallet(s.alice, "10", s.bob)

	s.ErrorIs(s.wallets.Delete(s.ctx, s.bob, w.ID), core.ErrForbidden)
	s.ErrorIs(s.wallets.Delete(s.ctx, s.carol, w.ID), core.ErrForbidden)

	e, err := s.expenses.Create(s.ctx, s.bob, core.NewExpense{Amount: money("1"), WalletID: w.ID})
	s.Require().NoError(err)
	s.ErrorIs(s.wallets.Delete(s.ctx, s.alice, w.ID), core.ErrWalletNotEmpty)

	s.Require().NoError(s.expenses.Delete(s.ctx, s.alice, e.ID))
	s.Require().NoError(s.wallets.Delete(s.ctx, s.alice, w.ID))
	s.ErrorIs(s.wallets.Delete(s.ctx, s.alice, w.ID), core.ErrNotFound)

	list, err := s.wallets.List(s.ctx, s.bob, core.Page{})
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *ServiceSuite) TestExpenseLifecycleScenario() {
	w := s.wallet(s.alice, "100")
	w2 := s.wallet(s.alice, "0")

	e, err := s.expenses.Create(s.ctx, s.alice, core.NewExpense{Amount: money("30"), Category: "food", WalletID: w.ID})
	s.Require().NoError(err)
	s.Equal(s.alice, e.UserID)
	s.Equal("70.00", s.balance(w.ID))

	fifty := money("50")
	_, err = s.expenses.Update(s.ctx, s.alice, e.ID, core.ExpenseUpdate{Amount: &fifty})
	s.Require().NoError(err)
	s.Equal("50.00", s.balance(w.ID))

	_, err = s.expenses.Update(s.ctx, s.alice, e.ID, core.ExpenseUpdate{WalletID: &w2.ID})
	s.Require().NoError(err)
	s.Equal("100.00", s.balance(w.ID))
	s.Equal("-50.00", s.balance(w2.ID))

	s.Require().NoError(s.expenses.Delete(s.ctx, s.alice, e.ID))
	s.Equal("0.00", s.balance(w2.ID))
	s.Equal("100.00", s.balance(w.ID))

	s.ErrorIs(s.expenses.Delete(s.ctx, s.alice, e.ID), core.ErrNotFound)
	s.ErrorIs(s.expenses.Delete(s.ctx, s.alice, e.ID), core.ErrNotFound)
	s.Equal("0.00", s.balance(w2.ID))

	s.Equal([]events.Type{
		events.WalletCreated, events.WalletCreated,
		events.ExpenseCreated, events.ExpenseUpdated, events.ExpenseUpdated, events.ExpenseDeleted,
	}, s.events.types())
}

func (s *ServiceSuite) TestExpenseMoveWithNewAmount() {
	w := s.wallet(s.alice, "100")
	w2 := s.wallet(s.alice, "20")

	e, err := s.expenses.Create(s.ctx, s.alice, core.NewExpense{Amount: money("30"), WalletID: w.ID})
	s.Require().NoError(err)

	ten := money("10")
	got, err := s.expenses.Update(s.ctx, s.alice, e.ID, core.ExpenseUpdate{WalletID: &w2.ID, Amount: &ten})
	s.Require().NoError(err)
	s.Equal(w2.ID, got.WalletID)
	s.Equal("100.00", s.balance(w.ID))
	s.Equal("10.00", s.balance(w2.ID))
}

func (s *ServiceSuite) TestExpenseAccess() {
	w := s.wallet(s.alice, "100", s.bob)
	other := s.wallet(s.carol, "5")

	_, err := s.expenses.Create(s.ctx, s.carol, core.NewExpense{Amount: money("1"), WalletID: w.ID})
	s.ErrorIs(err, core.ErrForbidden)
	_, err = s.expenses.Create(s.ctx, s.alice, core.NewExpense{Amount: money("1"), WalletID: "missing"})
	s.ErrorIs(err, core.ErrNotFound)
	_, err = s.expenses.Create(s.ctx, s.alice, core.NewExpense{Amount: money("1")})
	s.ErrorIs(err, core.ErrMissingWallet)

	byBob, err := s.expenses.Create(s.ctx, s.bob, core.NewExpense{Amount: money("10"), WalletID: w.ID})
	s.Require().NoError(err)
	s.Equal("90.00", s.balance(w.ID))

	_, err = s.expenses.Get(s.ctx, s.carol, byBob.ID)
	s.ErrorIs(err, core.ErrForbidden)
	_, err = s.expenses.Get(s.ctx, s.alice, "missing")
	s.ErrorIs(err, core.ErrNotFound)

	// Only the creator edits; the owner may still delete.
	desc := "taxi"
	_, err = s.expenses.Update(s.ctx, s.alice, byBob.ID, core.ExpenseUpdate{Description: &desc})
	s.ErrorIs(err, core.ErrForbidden)
	_, err = s.expenses.Update(s.ctx, s.bob, byBob.ID, core.ExpenseUpdate{WalletID: &other.ID})
	s.ErrorIs(err, core.ErrForbidden)
	s.Equal("90.00", s.balance(w.ID))
	s.Equal("5.00", s.balance(other.ID))

	byAlice, err := s.expenses.Create(s.ctx, s.alice, core.NewExpense{Amount: money("5"), WalletID: w.ID})
	s.Require().NoError(err)
	s.ErrorIs(s.expenses.Delete(s.ctx, s.bob, byAlice.ID), core.ErrForbidden)
	s.ErrorIs(s.expenses.Delete(s.ctx, s.carol, byBob.ID), core.ErrForbidden)

	s.Require().NoError(s.expenses.Delete(s.ctx, s.alice, byBob.ID))
	s.Equal("95.00", s.balance(w.ID))
}

func (s *ServiceSuite) TestExpenseListing() {
	w := s.wallet(s.alice, "100", s.bob)
	mine := s.wallet(s.bob, "100")
	hidden := s.wallet(s.carol, "100")

	day := func(d int) time.Time { return time.Date(2025, 2, d, 12, 0, 0, 0, time.UTC) }
	add := func(actor, wallet, category string, d int) {
		_, err := s.expenses.Create(s.ctx, actor, core.NewExpense{
			Amount: money("1"), Category: category, WalletID: wallet, Date: day(d),
		})
		s.Require().NoError(err)
	}
	add(s.alice, w.ID, "food", 1)
	add(s.bob, w.ID, "travel", 2)
	add(s.bob, mine.ID, "food", 3)
	add(s.carol, hidden.ID, "food", 4)

	all, err := s.expenses.List(s.ctx, s.bob, core.ExpenseFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(day(3), all[0].Date)
	s.Equal(day(1), all[2].Date)

	food, err := s.expenses.List(s.ctx, s.bob, core.ExpenseFilter{Category: "food"})
	s.Require().NoError(err)
	s.Len(food, 2)

	window, err := s.expenses.List(s.ctx, s.bob, core.ExpenseFilter{StartDate: day(2), EndDate: day(3)})
	s.Require().NoError(err)
	s.Len(window, 2)

	scoped, err := s.expenses.List(s.ctx, s.bob, core.ExpenseFilter{WalletID: w.ID, Page: core.Page{Skip: 1}})
	s.Require().NoError(err)
	s.Len(scoped, 1)

	_, err = s.expenses.List(s.ctx, s.bob, core.ExpenseFilter{WalletID: hidden.ID})
	s.ErrorIs(err, core.ErrForbidden)
	_, err = s.expenses.List(s.ctx, s.bob, core.ExpenseFilter{WalletID: "missing"})
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *ServiceSuite) TestGoalFundingScenario() {
	w := s.wallet(s.alice, "60")
	g, err := s.goals.Create(s.ctx, s.alice, core.NewGoal{Name: "Bike", TargetAmount: money("100")})
	s.Require().NoError(err)
	s.False(g.IsCompleted)

	g, err = s.goals.AddFunds(s.ctx, s.alice, g.ID, w.ID, money("60"))
	s.Require().NoError(err)
	s.Equal("60.00", g.CurrentAmount.String())
	s.False(g.IsCompleted)
	s.Equal("0.00", s.balance(w.ID))

	_, err = s.wallets.AddBalance(s.ctx, s.alice, w.ID, money("40"))
	s.Require().NoError(err)
	_, err = s.goals.AddFunds(s.ctx, s.alice, g.ID, w.ID, money("50"))
	s.ErrorIs(err, core.ErrInsufficientFunds)
	s.Equal("40.00", s.balance(w.ID))
	g, err = s.goals.Get(s.ctx, s.alice, g.ID)
	s.Require().NoError(err)
	s.Equal("60.00", g.CurrentAmount.String())

	g, err = s.goals.AddFunds(s.ctx, s.alice, g.ID, w.ID, money("40"))
	s.Require().NoError(err)
	s.True(g.IsCompleted)
	s.Equal("0.00", s.balance(w.ID))

	_, err = s.goals.AddFunds(s.ctx, s.alice, g.ID, w.ID, money("1"))
	s.ErrorIs(err, core.ErrInvalidState)

	types := s.events.types()
	s.Equal(events.GoalCompleted, types[len(types)-1])
	s.Equal(events.GoalFunded, types[len(types)-2])
}

func (s *ServiceSuite) TestGoalFundingChecks() {
	own := s.wallet(s.alice, "50")
	shared := s.wallet(s.bob, "50", s.alice)
	g, err := s.goals.Create(s.ctx, s.alice, core.NewGoal{Name: "Trip", TargetAmount: money("100")})
	s.Require().NoError(err)

	_, err = s.goals.AddFunds(s.ctx, s.alice, g.ID, own.ID, money("0"))
	s.ErrorIs(err, core.ErrInvalidAmount)
	_, err = s.goals.AddFunds(s.ctx, s.alice, "missing", own.ID, money("1"))
	s.ErrorIs(err, core.ErrNotFound)
	_, err = s.goals.AddFunds(s.ctx, s.bob, g.ID, shared.ID, money("1"))
	s.ErrorIs(err, core.ErrNotFound)
	_, err = s.goals.AddFunds(s.ctx, s.alice, g.ID, shared.ID, money("1"))
	s.ErrorIs(err, core.ErrNotFound)
	_, err = s.goals.AddFunds(s.ctx, s.alice, g.ID, "missing", money("1"))
	s.ErrorIs(err, core.ErrNotFound)
	s.Equal("50.00", s.balance(shared.ID))
}

func (s *ServiceSuite) TestGoalUpdateRules() {
	g, err := s.goals.Create(s.ctx, s.alice, core.NewGoal{Name: "Car", TargetAmount: money("10"), CurrentAmount: money("4")})
	s.Require().NoError(err)

	_, err = s.goals.Create(s.ctx, s.alice, core.NewGoal{Name: "Bad", TargetAmount: money("0")})
	s.ErrorIs(err, core.ErrInvalidAmount)
	_, err = s.goals.Create(s.ctx, s.alice, core.NewGoal{Name: "Bad", TargetAmount: money("1"), CurrentAmount: money("-1")})
	s.ErrorIs(err, core.ErrInvalidAmount)

	lower := money("3")
	_, err = s.goals.Update(s.ctx, s.alice, g.ID, core.GoalUpdate{CurrentAmount: &lower})
	s.ErrorIs(err, core.ErrInvalidAmount)

	_, err = s.goals.Update(s.ctx, s.bob, g.ID, core.GoalUpdate{Name: &g.Name})
	s.ErrorIs(err, core.ErrNotFound)

	full := money("10")
	g, err = s.goals.Update(s.ctx, s.alice, g.ID, core.GoalUpdate{CurrentAmount: &full})
	s.Require().NoError(err)
	s.True(g.IsCompleted)

	higher := money("20")
	_, err = s.goals.Update(s.ctx, s.alice, g.ID, core.GoalUpdate{TargetAmount: &higher})
	s.ErrorIs(err, core.ErrInvalidState)

	got, err := s.goals.Get(s.ctx, s.alice, g.ID)
	s.Require().NoError(err)
	s.Equal("10.00", got.TargetAmount.String())

	list, err := s.goals.List(s.ctx, s.bob, core.Page{})
	s.Require().NoError(err)
	s.Empty(list)

	s.ErrorIs(s.goals.Delete(s.ctx, s.bob, g.ID), core.ErrNotFound)
	s.Require().NoError(s.goals.Delete(s.ctx, s.alice, g.ID))
	s.ErrorIs(s.goals.Delete(s.ctx, s.alice, g.ID), core.ErrNotFound)
}

func (s *ServiceSuite) TestBudgets() {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC)
	b, err := s.budgets.Create(s.ctx, s.alice, core.NewBudget{Category: "food", Amount: money("50"), StartDate: start, EndDate: end})
	s.Require().NoError(err)

	_, err = s.budgets.Create(s.ctx, s.alice, core.NewBudget{Category: "food", Amount: money("50"), StartDate: end, EndDate: start})
	s.ErrorIs(err, core.ErrInvalidPeriod)
	_, err = s.budgets.Create(s.ctx, s.alice, core.NewBudget{Amount: money("50"), StartDate: start, EndDate: end})
	s.ErrorIs(err, core.ErrEmptyCategory)

	_, err = s.budgets.Get(s.ctx, s.bob, b.ID)
	s.ErrorIs(err, core.ErrNotFound)

	w := s.wallet(s.alice, "100")
	for _, amount := range []string{"30", "25"} {
		_, err := s.expenses.Create(s.ctx, s.alice, core.NewExpense{
			Amount: money(amount), Category: "food", WalletID: w.ID, Date: start.AddDate(0, 0, 3),
		})
		s.Require().NoError(err)
	}
	_, err = s.expenses.Create(s.ctx, s.alice, core.NewExpense{
		Amount: money("99"), Category: "food", WalletID: w.ID, Date: start.AddDate(0, 1, 0),
	})
	s.Require().NoError(err)

	st, err := s.budgets.Status(s.ctx, s.alice, b.ID)
	s.Require().NoError(err)
	s.Equal("55.00", st.Spent.String())
	s.Equal("-5.00", st.Remaining.String())
	s.True(st.Exceeded)

	more := money("80")
	b, err = s.budgets.Update(s.ctx, s.alice, b.ID, core.BudgetUpdate{Amount: &more})
	s.Require().NoError(err)
	s.Equal("80.00", b.Amount.String())
	s.Equal("-54.00", s.balance(w.ID))

	list, err := s.budgets.List(s.ctx, s.alice, core.Page{})
	s.Require().NoError(err)
	s.Len(list, 1)

	s.ErrorIs(s.budgets.Delete(s.ctx, s.bob, b.ID), core.ErrNotFound)
	s.Require().NoError(s.budgets.Delete(s.ctx, s.alice, b.ID))
	s.ErrorIs(s.budgets.Delete(s.ctx, s.alice, b.ID), core.ErrNotFound)
}

func (s *ServiceSuite) TestAddBalanceRefusesOverflow() {
	w := s.wallet(s.alice, "0")
	near := core.NewMoney(math.MaxInt64 - 50)
	s.Require().NoError(s.store.Update(s.ctx, func(tx storage.Tx) error {
		return tx.AdjustWalletBalance(s.ctx, w.ID, near, time.Now())
	}))

	_, err := s.wallets.AddBalance(s.ctx, s.alice, w.ID, money("1"))
	s.ErrorIs(err, core.ErrInvalidAmount)
	s.Equal(near.String(), s.balance(w.ID))

	_, err = s.wallets.AddBalance(s.ctx, s.alice, w.ID, money("0.50"))
	s.Require().NoError(err)
	s.Equal(core.NewMoney(math.MaxInt64).String(), s.balance(w.ID))
}

func (s *ServiceSuite) TestGoalFundingRefusesOverflow() {
	w := s.wallet(s.alice, "10")
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	g := core.Goal{
		ID: uuid.NewString(), Name: "Moon", TargetAmount: core.NewMoney(math.MaxInt64),
		CurrentAmount: core.NewMoney(math.MaxInt64 - 50), UserID: s.alice, CreatedAt: now, UpdatedAt: now,
	}
	s.Require().NoError(s.store.Update(s.ctx, func(tx storage.Tx) error { return tx.CreateGoal(s.ctx, g) }))

	_, err := s.goals.AddFunds(s.ctx, s.alice, g.ID, w.ID, money("1"))
	s.ErrorIs(err, core.ErrInvalidAmount)
	s.Equal("10.00", s.balance(w.ID))
	got, err := s.goals.Get(s.ctx, s.alice, g.ID)
	s.Require().NoError(err)
	s.Equal(g.CurrentAmount, got.CurrentAmount)
	s.False(got.IsCompleted)
}

func (s *ServiceSuite) TestBudgetStartingAtEpoch() {
	epoch := time.Unix(0, 0).UTC()
	b, err := s.budgets.Create(s.ctx, s.alice, core.NewBudget{
		Category: "food", Amount: money("50"), StartDate: epoch, EndDate: epoch.AddDate(0, 1, 0),
	})
	s.Require().NoError(err)

	got, err := s.budgets.Get(s.ctx, s.alice, b.ID)
	s.Require().NoError(err)
	s.True(got.StartDate.Equal(epoch))

	more := money("75")
	got, err = s.budgets.Update(s.ctx, s.alice, b.ID, core.BudgetUpdate{Amount: &more})
	s.Require().NoError(err)
	s.Equal("75.00", got.Amount.String())
	s.True(got.StartDate.Equal(epoch))
}

func (s *ServiceSuite) TestPublishFailureDoesNotFailWrite() {
	s.events.fail = true
	w := s.wallet(s.alice, "10")
	_, err := s.expenses.Create(s.ctx, s.alice, core.NewExpense{Amount: money("4"), WalletID: w.ID})
	s.Require().NoError(err)
	s.Equal("6.00", s.balance(w.ID))
}

func (s *ServiceSuite) TestConcurrentExpensesKeepBalance() {
	w := s.wallet(s.alice, "100", s.bob)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		actor := s.alice
		if i%2 == 1 {
			actor = s.bob
		}
		go func() {
			defer wg.Done()
			_, err := s.expenses.Create(s.ctx, actor, core.NewExpense{Amount: money("1.5"), WalletID: w.ID})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}
	s.Equal("70.00", s.balance(w.ID))
}

func TestNilPublisherIsSkipped(t *testing.T) {
	store := memory.New()
	svc := NewWalletService(store, Options{})
	_, err := svc.Create(context.Background(), "owner", core.NewWallet{Name: "w"})
	assert.NoError(t, err)
}

func TestMemberCandidates(t *testing.T) {
	got := memberCandidates([]string{"a", " b ", "a", "owner", ""}, "owner")
	assert.Equal(t, []string{"a", "b"}, got)
}
