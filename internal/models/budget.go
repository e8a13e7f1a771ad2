package models

import "slices"

// Budget is the shared budget sub-aggregate.
type Budget struct {
	Total      float64          `json:"total"`
	Currency   string           `json:"currency"`
	Categories []BudgetCategory `json:"categories"`
	Expenses   []Expense        `json:"expenses"`
	Income     []Income         `json:"income"`
}

// BudgetCategory is a spending bucket. Spent is kept in step with the
// expenses that reference it.
type BudgetCategory struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Budget float64 `json:"budget"`
	Spent  float64 `json:"spent"`
	Color  string  `json:"color,omitempty"`
	Icon   string  `json:"icon,omitempty"`
}

// Expense is money spent against a budget category.
type Expense struct {
	ID          int64   `json:"id"`
	CategoryID  int64   `json:"categoryId"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
	Date        string  `json:"date"`
	PaidBy      string  `json:"paidBy,omitempty"`
}

// Income is money coming in.
type Income struct {
	ID     int64   `json:"id"`
	Amount float64 `json:"amount"`
	Source string  `json:"source"`
	Date   string  `json:"date"`
}

// WithExpense appends e and adds its amount to the referenced category.
func (b Budget) WithExpense(e Expense) Budget {
	b = b.clone()
	b.Expenses = append(b.Expenses, e)
	for i := range b.Categories {
		if b.Categories[i].ID == e.CategoryID {
			b.Categories[i].Spent += e.Amount
		}
	}
	return b
}

// WithoutExpense removes the expense with the given ID and subtracts its
// amount from its category, never going below zero. The second result is
// false when no such expense exists.
func (b Budget) WithoutExpense(id int64) (Budget, bool) {
	idx := slices.IndexFunc(b.Expenses, func(e Expense) bool { return e.ID == id })
	if idx < 0 {
		return b, false
	}
	expense := b.Expenses[idx]

	b = b.clone()
	b.Expenses = slices.Delete(b.Expenses, idx, idx+1)
	for i := range b.Categories {
		if b.Categories[i].ID == expense.CategoryID {
			b.Categories[i].Spent = max(0, b.Categories[i].Spent-expense.Amount)
		}
	}
	return b, true
}

// WithoutCategory removes the category and every expense that references it.
func (b Budget) WithoutCategory(id int64) Budget {
	b = b.clone()
	b.Categories = slices.DeleteFunc(b.Categories, func(c BudgetCategory) bool { return c.ID == id })
	b.Expenses = slices.DeleteFunc(b.Expenses, func(e Expense) bool { return e.CategoryID == id })
	return b
}

// OrphanedExpenses returns expenses whose category no longer exists.
func (b Budget) OrphanedExpenses() []Expense {
	known := make(map[int64]struct{}, len(b.Categories))
	for _, c := range b.Categories {
		known[c.ID] = struct{}{}
	}
	var out []Expense
	for _, e := range b.Expenses {
		if _, ok := known[e.CategoryID]; !ok {
			out = append(out, e)
		}
	}
	return out
}

// TotalSpent sums every expense.
func (b Budget) TotalSpent() float64 {
	var sum float64
	for _, e := range b.Expenses {
		sum += e.Amount
	}
	return sum
}

// TotalIncome sums every income entry.
func (b Budget) TotalIncome() float64 {
	var sum float64
	for _, in := range b.Income {
		sum += in.Amount
	}
	return sum
}

func (b Budget) clone() Budget {
	b.Categories = cloneSlice(b.Categories)
	b.Expenses = cloneSlice(b.Expenses)
	b.Income = cloneSlice(b.Income)
	return b
}

func (b *Budget) normalize() {
	if b.Categories == nil {
		b.Categories = []BudgetCategory{}
	}
	if b.Expenses == nil {
		b.Expenses = []Expense{}
	}
	if b.Income == nil {
		b.Income = []Income{}
	}
}
