package state

import (
	"context"
	"slices"

	"github.com/atinyakov/CoupleHQ/internal/models"
)

func categoryID(c models.BudgetCategory) int64 { return c.ID }
func expenseID(e models.Expense) int64         { return e.ID }
func incomeID(i models.Income) int64           { return i.ID }

// UpdateBudgetTotal sets the overall budget.
func (s *Store) UpdateBudgetTotal(ctx context.Context, total float64) error {
	return s.editBudget(ctx, func(b models.Budget) (models.Budget, error) {
		b.Total = total
		return b, nil
	})
}

// AddCategory appends a budget category with nothing spent and returns its ID.
func (s *Store) AddCategory(ctx context.Context, c models.BudgetCategory) (int64, error) {
	var id int64
	err := s.editBudget(ctx, func(b models.Budget) (models.Budget, error) {
		id = models.NextID(b.Categories, categoryID, s.now())
		c.ID = id
		c.Spent = 0
		b.Categories = appendItem(b.Categories, c)
		return b, nil
	})
	return id, err
}

// UpdateCategory edits a budget category.
func (s *Store) UpdateCategory(ctx context.Context, id int64, edit func(*models.BudgetCategory)) error {
	return s.editBudget(ctx, func(b models.Budget) (models.Budget, error) {
		categories, ok := updateByID(b.Categories, id, categoryID, func(c *models.BudgetCategory) {
			edit(c)
			c.ID = id
		})
		if !ok {
			return b, ErrItemNotFound
		}
		b.Categories = categories
		return b, nil
	})
}

// DeleteCategory removes a category together with its expenses.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	return s.editBudget(ctx, func(b models.Budget) (models.Budget, error) {
		if !slices.ContainsFunc(b.Categories, func(c models.BudgetCategory) bool { return c.ID == id }) {
			return b, ErrItemNotFound
		}
		return b.WithoutCategory(id), nil
	})
}

// AddExpense records an expense, adds it to its category's spending and
// returns its ID.
func (s *Store) AddExpense(ctx context.Context, e models.Expense) (int64, error) {
	var id int64
	err := s.editBudget(ctx, func(b models.Budget) (models.Budget, error) {
		id = models.NextID(b.Expenses, expenseID, s.now())
		e.ID = id
		return b.WithExpense(e), nil
	})
	return id, err
}

// DeleteExpense removes an expense and takes it back off its category.
func (s *Store) DeleteExpense(ctx context.Context, id int64) error {
	return s.editBudget(ctx, func(b models.Budget) (models.Budget, error) {
		out, ok := b.WithoutExpense(id)
		if !ok {
			return b, ErrItemNotFound
		}
		return out, nil
	})
}

// AddIncome records income and returns its ID.
func (s *Store) AddIncome(ctx context.Context, in models.Income) (int64, error) {
	var id int64
	err := s.editBudget(ctx, func(b models.Budget) (models.Budget, error) {
		id = models.NextID(b.Income, incomeID, s.now())
		in.ID = id
		b.Income = appendItem(b.Income, in)
		return b, nil
	})
	return id, err
}

// DeleteIncome removes an income entry.
func (s *Store) DeleteIncome(ctx context.Context, id int64) error {
	return s.editBudget(ctx, func(b models.Budget) (models.Budget, error) {
		income, ok := deleteByID(b.Income, id, incomeID)
		if !ok {
			return b, ErrItemNotFound
		}
		b.Income = income
		return b, nil
	})
}

func (s *Store) editBudget(ctx context.Context, fn func(models.Budget) (models.Budget, error)) error {
	return s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		budget, err := fn(doc.Budget)
		if err != nil {
			return models.Patch{}, err
		}
		return models.Patch{Budget: &budget}, nil
	})
}
