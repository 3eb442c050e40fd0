// Package memory is an in-process storage.Store. Units of work are
// serialized by one mutex; Update works on a copy of the state that replaces
// the live state only when fn succeeds.
package memory

import (
	"context"
	"errors"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

var errReadOnly = errors.New("memory: write inside View")

type Store struct {
	mu     sync.Mutex
	state  *state
	closed bool
}

func New() *Store {
	return &Store{state: newState()}
}

func (s *Store) View(ctx context.Context, fn func(storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(ctx); err != nil {
		return err
	}
	return fn(&tx{st: s.state, readOnly: true})
}

func (s *Store) Update(ctx context.Context, fn func(storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(ctx); err != nil {
		return err
	}
	work := s.state.clone()
	if err := fn(&tx{st: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usable(ctx)
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) usable(ctx context.Context) error {
	if s.closed {
		return errors.New("memory: store closed")
	}
	return ctx.Err()
}

type state struct {
	users    map[string]core.User
	emails   map[string]string
	wallets  map[string]core.Wallet
	members  map[string]map[string]struct{}
	expenses map[string]core.Expense
	goals    map[string]core.Goal
	budgets  map[string]core.Budget
}

func newState() *state {
	return &state{
		users:    map[string]core.User{},
		emails:   map[string]string{},
		wallets:  map[string]core.Wallet{},
		members:  map[string]map[string]struct{}{},
		expenses: map[string]core.Expense{},
		goals:    map[string]core.Goal{},
		budgets:  map[string]core.Budget{},
	}
}

func (st *state) clone() *state {
	c := &state{
		users:    maps.Clone(st.users),
		emails:   maps.Clone(st.emails),
		wallets:  maps.Clone(st.wallets),
		members:  make(map[string]map[string]struct{}, len(st.members)),
		expenses: maps.Clone(st.expenses),
		goals:    maps.Clone(st.goals),
		budgets:  maps.Clone(st.budgets),
	}
	for id, m := range st.members {
		c.members[id] = maps.Clone(m)
	}
	return c
}

type tx struct {
	st       *state
	readOnly bool
}

func (t *tx) writable() error {
	if t.readOnly {
		return errReadOnly
	}
	return nil
}

func (t *tx) CreateUser(_ context.Context, u core.User) error {
	if err := t.writable(); err != nil {
		return err
	}
	key := strings.ToLower(u.Email)
	if _, taken := t.st.emails[key]; taken {
		return storage.ErrConflict
	}
	if _, taken := t.st.users[u.ID]; taken {
		return storage.ErrConflict
	}
	t.st.users[u.ID] = u
	t.st.emails[key] = u.ID
	return nil
}

func (t *tx) GetUser(_ context.Context, id string) (core.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return core.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (t *tx) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	id, ok := t.st.emails[strings.ToLower(email)]
	if !ok {
		return core.User{}, storage.ErrNotFound
	}
	return t.GetUser(ctx, id)
}

func (t *tx) ExistingUsers(_ context.Context, ids []string) ([]string, error) {
	var out []string
	for _, id := range ids {
		if _, ok := t.st.users[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (t *tx) CreateWallet(_ context.Context, w core.Wallet) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, taken := t.st.wallets[w.ID]; taken {
		return storage.ErrConflict
	}
	members := map[string]struct{}{}
	for _, id := range w.SharedWith {
		members[id] = struct{}{}
	}
	w.SharedWith = nil
	t.st.wallets[w.ID] = w
	t.st.members[w.ID] = members
	return nil
}

func (t *tx) GetWallet(_ context.Context, id string) (core.Wallet, error) {
	w, ok := t.st.wallets[id]
	if !ok {
		return core.Wallet{}, storage.ErrNotFound
	}
	return t.withMembers(w), nil
}

func (t *tx) withMembers(w core.Wallet) core.Wallet {
	ids := make([]string, 0, len(t.st.members[w.ID]))
	for id := range t.st.members[w.ID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	w.SharedWith = ids
	return w
}

func (t *tx) ListWallets(_ context.Context, userID string, page core.Page) ([]core.Wallet, error) {
	var out []core.Wallet
	for _, w := range t.st.wallets {
		_, member := t.st.members[w.ID][userID]
		if w.OwnerID == userID || member {
			out = append(out, t.withMembers(w))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, page), nil
}

func (t *tx) DeleteWallet(_ context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.wallets[id]; !ok {
		return storage.ErrNotFound
	}
	delete(t.st.wallets, id)
	delete(t.st.members, id)
	return nil
}

func (t *tx) AdjustWalletBalance(_ context.Context, id string, delta core.Money, at time.Time) error {
	if err := t.writable(); err != nil {
		return err
	}
	w, ok := t.st.wallets[id]
	if !ok {
		return storage.ErrNotFound
	}
	balance, err := w.Balance.CheckedAdd(delta)
	if err != nil {
		return err
	}
	w.Balance = balance
	w.UpdatedAt = at
	t.st.wallets[id] = w
	return nil
}

func (t *tx) IsMember(_ context.Context, walletID, userID string) (bool, error) {
	_, ok := t.st.members[walletID][userID]
	return ok, nil
}

func (t *tx) CountWalletExpenses(_ context.Context, walletID string) (int, error) {
	n := 0
	for _, e := range t.st.expenses {
		if e.WalletID == walletID {
			n++
		}
	}
	return n, nil
}

func (t *tx) CreateExpense(_ context.Context, e core.Expense) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, taken := t.st.expenses[e.ID]; taken {
		return storage.ErrConflict
	}
	if _, ok := t.st.wallets[e.WalletID]; !ok {
		return storage.ErrNotFound
	}
	t.st.expenses[e.ID] = e
	return nil
}

func (t *tx) GetExpense(_ context.Context, id string) (core.Expense, error) {
	e, ok := t.st.expenses[id]
	if !ok {
		return core.Expense{}, storage.ErrNotFound
	}
	return e, nil
}

func (t *tx) ListExpenses(_ context.Context, q storage.ExpenseQuery) ([]core.Expense, error) {
	var out []core.Expense
	for _, e := range t.st.expenses {
		if q.WalletID != "" {
			if e.WalletID != q.WalletID {
				continue
			}
		} else if !t.canRead(e.WalletID, q.AccessibleTo) {
			continue
		}
		if !q.StartDate.IsZero() && e.Date.Before(q.StartDate) {
			continue
		}
		if !q.EndDate.IsZero() && e.Date.After(q.EndDate) {
			continue
		}
		if q.Category != "" && e.Category != q.Category {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, q.Page), nil
}

func (t *tx) canRead(walletID, userID string) bool {
	w, ok := t.st.wallets[walletID]
	if !ok {
		return false
	}
	_, member := t.st.members[walletID][userID]
	return w.OwnerID == userID || member
}

func (t *tx) UpdateExpense(_ context.Context, e core.Expense) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.expenses[e.ID]; !ok {
		return storage.ErrNotFound
	}
	if _, ok := t.st.wallets[e.WalletID]; !ok {
		return storage.ErrNotFound
	}
	t.st.expenses[e.ID] = e
	return nil
}

func (t *tx) DeleteExpense(_ context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.expenses[id]; !ok {
		return storage.ErrNotFound
	}
	delete(t.st.expenses, id)
	return nil
}

func (t *tx) SumExpenses(_ context.Context, q storage.SpendQuery) (core.Money, error) {
	var sum core.Money
	for _, e := range t.st.expenses {
		if e.UserID != q.UserID || e.Category != q.Category {
			continue
		}
		if e.Date.Before(q.From) || e.Date.After(q.To) {
			continue
		}
		sum = sum.Add(e.Amount)
	}
	return sum, nil
}

func (t *tx) CreateGoal(_ context.Context, g core.Goal) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, taken := t.st.goals[g.ID]; taken {
		return storage.ErrConflict
	}
	t.st.goals[g.ID] = g
	return nil
}

func (t *tx) GetGoal(_ context.Context, id, userID string) (core.Goal, error) {
	g, ok := t.st.goals[id]
	if !ok || g.UserID != userID {
		return core.Goal{}, storage.ErrNotFound
	}
	return g, nil
}

func (t *tx) ListGoals(_ context.Context, userID string, page core.Page) ([]core.Goal, error) {
	var out []core.Goal
	for _, g := range t.st.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, page), nil
}

func (t *tx) UpdateGoal(_ context.Context, g core.Goal) error {
	if err := t.writable(); err != nil {
		return err
	}
	cur, ok := t.st.goals[g.ID]
	if !ok || cur.UserID != g.UserID {
		return storage.ErrNotFound
	}
	t.st.goals[g.ID] = g
	return nil
}

func (t *tx) DeleteGoal(_ context.Context, id, userID string) error {
	if err := t.writable(); err != nil {
		return err
	}
	g, ok := t.st.goals[id]
	if !ok || g.UserID != userID {
		return storage.ErrNotFound
	}
	delete(t.st.goals, id)
	return nil
}

func (t *tx) CreateBudget(_ context.Context, b core.Budget) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, taken := t.st.budgets[b.ID]; taken {
		return storage.ErrConflict
	}
	t.st.budgets[b.ID] = b
	return nil
}

func (t *tx) GetBudget(_ context.Context, id, userID string) (core.Budget, error) {
	b, ok := t.st.budgets[id]
	if !ok || b.UserID != userID {
		return core.Budget{}, storage.ErrNotFound
	}
	return b, nil
}

func (t *tx) ListBudgets(_ context.Context, userID string, page core.Page) ([]core.Budget, error) {
	var out []core.Budget
	for _, b := range t.st.budgets {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sortBudgets(out)
	return paginate(out, page), nil
}

func (t *tx) BudgetsCovering(_ context.Context, userID, category string, at time.Time) ([]core.Budget, error) {
	var out []core.Budget
	for _, b := range t.st.budgets {
		if b.UserID == userID && b.Category == category && b.Contains(at) {
			out = append(out, b)
		}
	}
	sortBudgets(out)
	return out, nil
}

func sortBudgets(out []core.Budget) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
}

func (t *tx) UpdateBudget(_ context.Context, b core.Budget) error {
	if err := t.writable(); err != nil {
		return err
	}
	cur, ok := t.st.budgets[b.ID]
	if !ok || cur.UserID != b.UserID {
		return storage.ErrNotFound
	}
	t.st.budgets[b.ID] = b
	return nil
}

func (t *tx) DeleteBudget(_ context.Context, id, userID string) error {
	if err := t.writable(); err != nil {
		return err
	}
	b, ok := t.st.budgets[id]
	if !ok || b.UserID != userID {
		return storage.ErrNotFound
	}
	delete(t.st.budgets, id)
	return nil
}

func paginate[T any](items []T, page core.Page) []T {
	page = page.Normalize()
	if page.Skip >= len(items) {
		return []T{}
	}
	end := page.Skip + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[page.Skip:end]
}

var _ storage.Store = (*Store)(nil)
