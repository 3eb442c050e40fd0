package services

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/events"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// GoalService tracks savings goals. Goals are private to their owner; any
// other user sees core.ErrNotFound.
type GoalService struct {
	base
}

func NewGoalService(store storage.Store, opts Options) *GoalService {
	return &GoalService{base: newBase(store, opts, applog.ComponentGoal)}
}

func (s *GoalService) Create(ctx context.Context, actor string, in core.NewGoal) (core.Goal, error) {
	if err := in.Normalize(); err != nil {
		return core.Goal{}, err
	}
	now := s.stamp()
	g := core.Goal{
		ID:            newID(),
		Name:          in.Name,
		Description:   in.Description,
		TargetAmount:  in.TargetAmount,
		CurrentAmount: in.CurrentAmount,
		Category:      in.Category,
		UserID:        actor,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.Deadline != nil {
		d := truncate(*in.Deadline)
		g.Deadline = &d
	}
	g.IsCompleted = g.Reached()

	err := s.store.Update(ctx, func(tx storage.Tx) error {
		return tx.CreateGoal(ctx, g)
	})
	if err != nil {
		return core.Goal{}, wrap("create goal", err)
	}
	s.logger(ctx).InfoContext(ctx, "Goal created",
		applog.FieldGoalID, g.ID,
		applog.FieldUserID, actor,
		"target_cents", g.TargetAmount.Cents)
	return g, nil
}

func (s *GoalService) Get(ctx context.Context, actor, id string) (core.Goal, error) {
	var g core.Goal
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		g, err = tx.GetGoal(ctx, id, actor)
		return err
	})
	return g, err
}

func (s *GoalService) List(ctx context.Context, actor string, page core.Page) ([]core.Goal, error) {
	var out []core.Goal
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		out, err = tx.ListGoals(ctx, actor, page.Normalize())
		return err
	})
	if err != nil {
		return nil, wrap("list goals", err)
	}
	if out == nil {
		out = []core.Goal{}
	}
	return out, nil
}

// Update applies a partial change; see core.GoalUpdate for the rules.
func (s *GoalService) Update(ctx context.Context, actor, id string, u core.GoalUpdate) (core.Goal, error) {
	if u.Deadline != nil {
		d := truncate(*u.Deadline)
		u.Deadline = &d
	}
	var g core.Goal
	var completed bool
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		g, err = tx.GetGoal(ctx, id, actor)
		if err != nil {
			return err
		}
		was := g.IsCompleted
		if err := u.Apply(&g); err != nil {
			return err
		}
		completed = !was && g.IsCompleted
		g.UpdatedAt = s.stamp()
		return tx.UpdateGoal(ctx, g)
	})
	if err != nil {
		return core.Goal{}, err
	}
	if completed {
		s.publish(ctx, s.goalEvent(events.GoalCompleted, actor, g, "", g.CurrentAmount))
	}
	return g, nil
}

func (s *GoalService) Delete(ctx context.Context, actor, id string) error {
	return s.store.Update(ctx, func(tx storage.Tx) error {
		return tx.DeleteGoal(ctx, id, actor)
	})
}

// AddFunds moves amount from one of the actor's own wallets into the goal.
// Shared wallets cannot fund goals; a wallet the actor does not own reads as
// not found.
func (s *GoalService) AddFunds(ctx context.Context, actor, goalID, walletID string, amount core.Money) (core.Goal, error) {
	if err := amount.Validate(); err != nil {
		return core.Goal{}, err
	}
	var g core.Goal
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		g, err = tx.GetGoal(ctx, goalID, actor)
		if err != nil {
			return err
		}
		if g.IsCompleted {
			return fmt.Errorf("goal %s is already completed: %w", goalID, core.ErrInvalidState)
		}
		w, err := tx.GetWallet(ctx, walletID)
		if errors.Is(err, core.ErrNotFound) || (err == nil && w.OwnerID != actor) {
			return fmt.Errorf("wallet %s: %w", walletID, core.ErrNotFound)
		}
		if err != nil {
			return err
		}
		funded, err := g.CurrentAmount.CheckedAdd(amount)
		if err != nil {
			return fmt.Errorf("goal %s: %w", goalID, err)
		}
		if err := s.ledger.Withdraw(ctx, tx, w, amount); err != nil {
			return err
		}
		g.CurrentAmount = funded
		g.IsCompleted = g.Reached()
		g.UpdatedAt = s.stamp()
		return tx.UpdateGoal(ctx, g)
	})
	if err != nil {
		return core.Goal{}, err
	}

	s.logger(ctx).InfoContext(ctx, "Goal funded",
		applog.FieldGoalID, goalID,
		applog.FieldWalletID, walletID,
		applog.FieldAmountCents, amount.Cents,
		"completed", g.IsCompleted)

	evs := []events.Event{s.goalEvent(events.GoalFunded, actor, g, walletID, amount)}
	if g.IsCompleted {
		evs = append(evs, s.goalEvent(events.GoalCompleted, actor, g, walletID, g.CurrentAmount))
	}
	s.publish(ctx, evs...)
	return g, nil
}

func (s *GoalService) goalEvent(t events.Type, actor string, g core.Goal, walletID string, amount core.Money) events.Event {
	ev := events.New(t, actor)
	ev.GoalID = g.ID
	ev.WalletID = walletID
	ev.Amount = amount
	ev.Category = g.Category
	return ev
}
