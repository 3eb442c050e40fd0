package core

// BudgetStatus is a budget together with what was spent inside its window.
type BudgetStatus struct {
	Budget    Budget `json:"budget"`
	Spent     Money  `json:"spent"`
	Remaining Money  `json:"remaining"`
	Exceeded  bool   `json:"exceeded"`
}

// NewBudgetStatus derives remaining and exceeded from spent.
func NewBudgetStatus(b Budget, spent Money) BudgetStatus {
	return BudgetStatus{
		Budget:    b,
		Spent:     spent,
		Remaining: b.Amount.Sub(spent),
		Exceeded:  spent.Cents > b.Amount.Cents,
	}
}
