// Package services builds projections and workflows on top of the ledger:
// budget aggregation, goal overviews, the due-expense sweep, and bulk
// export. Everything here reads ledger snapshots and computes on the fly;
// nothing is cached.
package services

import (
	"time"

	"tirelire/internal/core"
	"tirelire/internal/ledger"
)

// Aggregator derives the household budget picture from the ledger state.
type Aggregator struct {
	ledger *ledger.Ledger
}

func NewAggregator(l *ledger.Ledger) *Aggregator {
	return &Aggregator{ledger: l}
}

// CategoryProgress reports spending against the cap for one category in
// one month. Ratio is clamped to [0, 1]; Over carries the uncapped excess.
type CategoryProgress struct {
	Category core.Category
	Label    string
	Color    string
	Spent    core.Money
	Cap      core.Money
	Ratio    float64
	Over     core.Money
}

// MonthOverview is the dashboard projection for one calendar month.
type MonthOverview struct {
	Year               int
	Month              time.Month
	SpendingByCategory map[core.Category]core.Money
	TotalSpending      core.Money
	Progress           []CategoryProgress
	RecurringMonthly   core.Money
	GoalContributions  core.Money
	Income             core.Money
	Disposable         core.Money
}

// TotalMonthlyRecurring sums the monthly equivalent of every active
// recurring expense. Expenses past their end date no longer commit any
// income and are excluded, matching the due-check.
func (a *Aggregator) TotalMonthlyRecurring(now time.Time) core.Money {
	var total core.Money
	for _, re := range a.ledger.RecurringExpenses() {
		if re.IsActive && !re.Ended(now) {
			total = total.Add(re.MonthlyCost())
		}
	}
	return total
}

// TotalMonthlyGoalContributions sums the planned monthly contribution of
// every active savings goal.
func (a *Aggregator) TotalMonthlyGoalContributions() core.Money {
	var total core.Money
	for _, g := range a.ledger.SavingsGoals() {
		if g.IsActive {
			total = total.Add(g.MonthlyContribution)
		}
	}
	return total
}

// SpendingByCategory totals the transactions of one calendar month.
func (a *Aggregator) SpendingByCategory(year int, month time.Month) map[core.Category]core.Money {
	out := make(map[core.Category]core.Money)
	for _, t := range a.ledger.Transactions() {
		d := t.Date.UTC()
		if d.Year() == year && d.Month() == month {
			out[t.Category] = out[t.Category].Add(t.Amount)
		}
	}
	return out
}

// BudgetProgress reports month spending against caps for every category
// that has either a cap or spending.
func (a *Aggregator) BudgetProgress(year int, month time.Month) []CategoryProgress {
	spending := a.SpendingByCategory(year, month)
	budgets := a.ledger.Budgets()

	var out []CategoryProgress
	for _, c := range core.Categories() {
		spent := spending[c]
		limit := budgets.Cap(c)
		if spent.Cents == 0 && limit.Cents == 0 {
			continue
		}
		p := CategoryProgress{
			Category: c,
			Label:    c.Label(),
			Color:    c.Color(),
			Spent:    spent,
			Cap:      limit,
		}
		if limit.Cents > 0 {
			p.Ratio = float64(spent.Cents) / float64(limit.Cents)
			if p.Ratio > 1 {
				p.Ratio = 1
				p.Over = spent.Sub(limit)
			}
		}
		out = append(out, p)
	}
	return out
}

// Disposable computes what remains of the couple's income for one month
// after recurring commitments, planned goal contributions, and that
// month's spending. Can go negative.
func (a *Aggregator) Disposable(year int, month time.Month, now time.Time) core.Money {
	income := a.ledger.Salaries().Total()
	spent := sumSpending(a.SpendingByCategory(year, month))
	return income.
		Sub(a.TotalMonthlyRecurring(now)).
		Sub(a.TotalMonthlyGoalContributions()).
		Sub(spent)
}

// Overview assembles the full month projection in one pass.
func (a *Aggregator) Overview(year int, month time.Month, now time.Time) MonthOverview {
	spending := a.SpendingByCategory(year, month)
	recurring := a.TotalMonthlyRecurring(now)
	contributions := a.TotalMonthlyGoalContributions()
	income := a.ledger.Salaries().Total()
	total := sumSpending(spending)

	return MonthOverview{
		Year:               year,
		Month:              month,
		SpendingByCategory: spending,
		TotalSpending:      total,
		Progress:           a.BudgetProgress(year, month),
		RecurringMonthly:   recurring,
		GoalContributions:  contributions,
		Income:             income,
		Disposable:         income.Sub(recurring).Sub(contributions).Sub(total),
	}
}

func sumSpending(byCategory map[core.Category]core.Money) core.Money {
	var total core.Money
	for _, m := range byCategory {
		total = total.Add(m)
	}
	return total
}
