package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type tx struct {
	tx *sql.Tx
	d  Dialect
	// lock adds FOR UPDATE to single-row reads in postgres write transactions.
	lock bool
}

type scanner interface {
	Scan(dest ...any) error
}

// Every instant maps to its own millisecond, the unix epoch included.
// Optional times go through nullableMillis.
func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func (t *tx) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	res, err := t.tx.ExecContext(ctx, t.d.rebind(q), args...)
	return res, translate(err)
}

// execOne runs a statement that must touch exactly one row.
func (t *tx) execOne(ctx context.Context, q string, args ...any) error {
	res, err := t.exec(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *tx) row(ctx context.Context, q string, args ...any) *sql.Row {
	if t.lock {
		q += " FOR UPDATE"
	}
	return t.tx.QueryRowContext(ctx, t.d.rebind(q), args...)
}

func (t *tx) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	rows, err := t.tx.QueryContext(ctx, t.d.rebind(q), args...)
	return rows, translate(err)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// users

const userColumns = `id, email, full_name, password_hash, created_at, updated_at`

func scanUser(s scanner) (core.User, error) {
	var u core.User
	var created, updated int64
	if err := s.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &created, &updated); err != nil {
		return core.User{}, translate(err)
	}
	u.CreatedAt, u.UpdatedAt = fromMillis(created), fromMillis(updated)
	return u, nil
}

func (t *tx) CreateUser(ctx context.Context, u core.User) error {
	_, err := t.exec(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, strings.ToLower(u.Email), u.FullName, u.PasswordHash, toMillis(u.CreatedAt), toMillis(u.UpdatedAt))
	return err
}

func (t *tx) GetUser(ctx context.Context, id string) (core.User, error) {
	return scanUser(t.tx.QueryRowContext(ctx, t.d.rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id))
}

func (t *tx) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return scanUser(t.tx.QueryRowContext(ctx, t.d.rebind(`SELECT `+userColumns+` FROM users WHERE email = ?`), strings.ToLower(email)))
}

func (t *tx) ExistingUsers(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := t.query(ctx, `SELECT id FROM users WHERE id IN (`+placeholders(len(ids))+`)`, stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// wallets

const walletColumns = `id, name, type, balance_cents, currency, description, owner_id, created_at, updated_at`

func scanWallet(s scanner) (core.Wallet, error) {
	var w core.Wallet
	var typ string
	var created, updated int64
	if err := s.Scan(&w.ID, &w.Name, &typ, &w.Balance.Cents, &w.Currency, &w.Description, &w.OwnerID, &created, &updated); err != nil {
		return core.Wallet{}, translate(err)
	}
	w.Type = core.WalletType(typ)
	w.CreatedAt, w.UpdatedAt = fromMillis(created), fromMillis(updated)
	w.SharedWith = []string{}
	return w, nil
}

func (t *tx) CreateWallet(ctx context.Context, w core.Wallet) error {
	_, err := t.exec(ctx, `INSERT INTO wallets (`+walletColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Name, string(w.Type), w.Balance.Cents, w.Currency, w.Description, w.OwnerID,
		toMillis(w.CreatedAt), toMillis(w.UpdatedAt))
	if err != nil {
		return err
	}
	for _, member := range w.SharedWith {
		if _, err := t.exec(ctx, `INSERT INTO wallet_members (wallet_id, user_id) VALUES (?, ?)`, w.ID, member); err != nil {
			return fmt.Errorf("add member %s: %w", member, err)
		}
	}
	return nil
}

func (t *tx) GetWallet(ctx context.Context, id string) (core.Wallet, error) {
	w, err := scanWallet(t.row(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = ?`, id))
	if err != nil {
		return core.Wallet{}, err
	}
	members, err := t.members(ctx, []string{id})
	if err != nil {
		return core.Wallet{}, err
	}
	if ids, ok := members[id]; ok {
		w.SharedWith = ids
	}
	return w, nil
}

func (t *tx) members(ctx context.Context, walletIDs []string) (map[string][]string, error) {
	out := map[string][]string{}
	if len(walletIDs) == 0 {
		return out, nil
	}
	rows, err := t.query(ctx, `SELECT wallet_id, user_id FROM wallet_members WHERE wallet_id IN (`+
		placeholders(len(walletIDs))+`) ORDER BY wallet_id, user_id`, stringArgs(walletIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var walletID, userID string
		if err := rows.Scan(&walletID, &userID); err != nil {
			return nil, err
		}
		out[walletID] = append(out[walletID], userID)
	}
	return out, rows.Err()
}

func (t *tx) ListWallets(ctx context.Context, userID string, page core.Page) ([]core.Wallet, error) {
	page = page.Normalize()
	rows, err := t.query(ctx, `SELECT `+walletColumns+` FROM wallets w
		WHERE w.owner_id = ?
		   OR EXISTS (SELECT 1 FROM wallet_members m WHERE m.wallet_id = w.id AND m.user_id = ?)
		ORDER BY w.created_at, w.id
		LIMIT ? OFFSET ?`, userID, userID, page.Limit, page.Skip)
	if err != nil {
		return nil, err
	}
	wallets := []core.Wallet{}
	var ids []string
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		wallets = append(wallets, w)
		ids = append(ids, w.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	members, err := t.members(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range wallets {
		if m, ok := members[wallets[i].ID]; ok {
			wallets[i].SharedWith = m
		}
	}
	return wallets, nil
}

func (t *tx) DeleteWallet(ctx context.Context, id string) error {
	if _, err := t.exec(ctx, `DELETE FROM wallet_members WHERE wallet_id = ?`, id); err != nil {
		return err
	}
	return t.execOne(ctx, `DELETE FROM wallets WHERE id = ?`, id)
}

func (t *tx) AdjustWalletBalance(ctx context.Context, id string, delta core.Money, at time.Time) error {
	return t.execOne(ctx, `UPDATE wallets SET balance_cents = balance_cents + ?, updated_at = ? WHERE id = ?`,
		delta.Cents, toMillis(at), id)
}

func (t *tx) IsMember(ctx context.Context, walletID, userID string) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(ctx, t.d.rebind(`SELECT 1 FROM wallet_members WHERE wallet_id = ? AND user_id = ?`),
		walletID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, translate(err)
	}
	return true, nil
}

func (t *tx) CountWalletExpenses(ctx context.Context, walletID string) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, t.d.rebind(`SELECT COUNT(*) FROM expenses WHERE wallet_id = ?`), walletID).Scan(&n)
	return n, translate(err)
}

// expenses

const expenseColumns = `id, amount_cents, description, category, occurred_at, wallet_id, user_id, created_at, updated_at`

func scanExpense(s scanner) (core.Expense, error) {
	var e core.Expense
	var occurred, created, updated int64
	if err := s.Scan(&e.ID, &e.Amount.Cents, &e.Description, &e.Category, &occurred, &e.WalletID, &e.UserID, &created, &updated); err != nil {
		return core.Expense{}, translate(err)
	}
	e.Date = fromMillis(occurred)
	e.CreatedAt, e.UpdatedAt = fromMillis(created), fromMillis(updated)
	return e, nil
}

func (t *tx) CreateExpense(ctx context.Context, e core.Expense) error {
	_, err := t.exec(ctx, `INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Amount.Cents, e.Description, e.Category, toMillis(e.Date), e.WalletID, e.UserID,
		toMillis(e.CreatedAt), toMillis(e.UpdatedAt))
	return err
}

func (t *tx) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	return scanExpense(t.row(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id))
}

func (t *tx) ListExpenses(ctx context.Context, q storage.ExpenseQuery) ([]core.Expense, error) {
	var (
		where []string
		args  []any
	)
	if q.WalletID != "" {
		where = append(where, "wallet_id = ?")
		args = append(args, q.WalletID)
	} else {
		where = append(where, `wallet_id IN (
			SELECT id FROM wallets WHERE owner_id = ?
			UNION
			SELECT wallet_id FROM wallet_members WHERE user_id = ?)`)
		args = append(args, q.AccessibleTo, q.AccessibleTo)
	}
	if !q.StartDate.IsZero() {
		where = append(where, "occurred_at >= ?")
		args = append(args, toMillis(q.StartDate))
	}
	if !q.EndDate.IsZero() {
		where = append(where, "occurred_at <= ?")
		args = append(args, toMillis(q.EndDate))
	}
	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, q.Category)
	}
	page := q.Page.Normalize()
	args = append(args, page.Limit, page.Skip)

	rows, err := t.query(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE `+strings.Join(where, " AND ")+
		` ORDER BY occurred_at DESC, id LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t *tx) UpdateExpense(ctx context.Context, e core.Expense) error {
	return t.execOne(ctx, `UPDATE expenses SET amount_cents = ?, description = ?, category = ?, occurred_at = ?,
		wallet_id = ?, updated_at = ? WHERE id = ?`,
		e.Amount.Cents, e.Description, e.Category, toMillis(e.Date), e.WalletID, toMillis(e.UpdatedAt), e.ID)
}

func (t *tx) DeleteExpense(ctx context.Context, id string) error {
	return t.execOne(ctx, `DELETE FROM expenses WHERE id = ?`, id)
}

func (t *tx) SumExpenses(ctx context.Context, q storage.SpendQuery) (core.Money, error) {
	var sum int64
	err := t.tx.QueryRowContext(ctx, t.d.rebind(`SELECT COALESCE(SUM(amount_cents), 0) FROM expenses
		WHERE user_id = ? AND category = ? AND occurred_at >= ? AND occurred_at <= ?`),
		q.UserID, q.Category, toMillis(q.From), toMillis(q.To)).Scan(&sum)
	if err != nil {
		return core.Money{}, translate(err)
	}
	return core.NewMoney(sum), nil
}

// goals

const goalColumns = `id, name, description, target_amount_cents, current_amount_cents, deadline, category,
	is_completed, user_id, created_at, updated_at`

func scanGoal(s scanner) (core.Goal, error) {
	var g core.Goal
	var deadline sql.NullInt64
	var created, updated int64
	if err := s.Scan(&g.ID, &g.Name, &g.Description, &g.TargetAmount.Cents, &g.CurrentAmount.Cents, &deadline,
		&g.Category, &g.IsCompleted, &g.UserID, &created, &updated); err != nil {
		return core.Goal{}, translate(err)
	}
	if deadline.Valid {
		d := fromMillis(deadline.Int64)
		g.Deadline = &d
	}
	g.CreatedAt, g.UpdatedAt = fromMillis(created), fromMillis(updated)
	return g, nil
}

func nullableMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func (t *tx) CreateGoal(ctx context.Context, g core.Goal) error {
	_, err := t.exec(ctx, `INSERT INTO goals (`+goalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.Description, g.TargetAmount.Cents, g.CurrentAmount.Cents, nullableMillis(g.Deadline),
		g.Category, g.IsCompleted, g.UserID, toMillis(g.CreatedAt), toMillis(g.UpdatedAt))
	return err
}

func (t *tx) GetGoal(ctx context.Context, id, userID string) (core.Goal, error) {
	return scanGoal(t.row(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ? AND user_id = ?`, id, userID))
}

func (t *tx) ListGoals(ctx context.Context, userID string, page core.Page) ([]core.Goal, error) {
	page = page.Normalize()
	rows, err := t.query(ctx, `SELECT `+goalColumns+` FROM goals WHERE user_id = ?
		ORDER BY created_at, id LIMIT ? OFFSET ?`, userID, page.Limit, page.Skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []core.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (t *tx) UpdateGoal(ctx context.Context, g core.Goal) error {
	return t.execOne(ctx, `UPDATE goals SET name = ?, description = ?, target_amount_cents = ?,
		current_amount_cents = ?, deadline = ?, category = ?, is_completed = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		g.Name, g.Description, g.TargetAmount.Cents, g.CurrentAmount.Cents, nullableMillis(g.Deadline),
		g.Category, g.IsCompleted, toMillis(g.UpdatedAt), g.ID, g.UserID)
}

func (t *tx) DeleteGoal(ctx context.Context, id, userID string) error {
	return t.execOne(ctx, `DELETE FROM goals WHERE id = ? AND user_id = ?`, id, userID)
}

// budgets

const budgetColumns = `id, category, amount_cents, starts_at, ends_at, user_id, created_at, updated_at`

func scanBudget(s scanner) (core.Budget, error) {
	var b core.Budget
	var start, end, created, updated int64
	if err := s.Scan(&b.ID, &b.Category, &b.Amount.Cents, &start, &end, &b.UserID, &created, &updated); err != nil {
		return core.Budget{}, translate(err)
	}
	b.StartDate, b.EndDate = fromMillis(start), fromMillis(end)
	b.CreatedAt, b.UpdatedAt = fromMillis(created), fromMillis(updated)
	return b, nil
}

func (t *tx) scanBudgets(ctx context.Context, q string, args ...any) ([]core.Budget, error) {
	rows, err := t.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []core.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (t *tx) CreateBudget(ctx context.Context, b core.Budget) error {
	_, err := t.exec(ctx, `INSERT INTO budgets (`+budgetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Category, b.Amount.Cents, toMillis(b.StartDate), toMillis(b.EndDate), b.UserID,
		toMillis(b.CreatedAt), toMillis(b.UpdatedAt))
	return err
}

func (t *tx) GetBudget(ctx context.Context, id, userID string) (core.Budget, error) {
	return scanBudget(t.row(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = ? AND user_id = ?`, id, userID))
}

func (t *tx) ListBudgets(ctx context.Context, userID string, page core.Page) ([]core.Budget, error) {
	page = page.Normalize()
	return t.scanBudgets(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE user_id = ?
		ORDER BY starts_at, id LIMIT ? OFFSET ?`, userID, page.Limit, page.Skip)
}

func (t *tx) BudgetsCovering(ctx context.Context, userID, category string, at time.Time) ([]core.Budget, error) {
	ms := toMillis(at)
	return t.scanBudgets(ctx, `SELECT `+budgetColumns+` FROM budgets
		WHERE user_id = ? AND category = ? AND starts_at <= ? AND ends_at >= ?
		ORDER BY starts_at, id`, userID, category, ms, ms)
}

func (t *tx) UpdateBudget(ctx context.Context, b core.Budget) error {
	return t.execOne(ctx, `UPDATE budgets SET category = ?, amount_cents = ?, starts_at = ?, ends_at = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		b.Category, b.Amount.Cents, toMillis(b.StartDate), toMillis(b.EndDate), toMillis(b.UpdatedAt), b.ID, b.UserID)
}

func (t *tx) DeleteBudget(ctx context.Context, id, userID string) error {
	return t.execOne(ctx, `DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
}

var _ storage.Tx = (*tx)(nil)
