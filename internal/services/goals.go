package services

import (
	"time"

	"tirelire/internal/core"
	"tirelire/internal/ledger"
)

// Goals exposes the read side of the savings goals: per-goal analytics
// recomputed from stored state at request time.
type Goals struct {
	ledger *ledger.Ledger
}

func NewGoals(l *ledger.Ledger) *Goals {
	return &Goals{ledger: l}
}

// GoalOverview combines a goal with its derived figures.
type GoalOverview struct {
	Goal                core.SavingsGoal
	Status              core.GoalStatus
	Progress            float64
	Remaining           core.Money
	RequiredMonthly     core.Money
	MonthsRemaining     int
	ProjectedCompletion time.Time
	HasProjection       bool
	Contributions       []core.SavingsContribution
}

// Overview returns the analytics for one goal.
func (g *Goals) Overview(id string, now time.Time) (GoalOverview, bool) {
	goal, ok := g.ledger.SavingsGoal(id)
	if !ok {
		return GoalOverview{}, false
	}
	return g.buildOverview(goal, now, true), true
}

// Overviews returns the analytics for every goal, ordered by target date.
// Contribution lists are omitted; fetch a single overview for those.
func (g *Goals) Overviews(now time.Time) []GoalOverview {
	goals := g.ledger.SavingsGoals()
	out := make([]GoalOverview, 0, len(goals))
	for _, goal := range goals {
		out = append(out, g.buildOverview(goal, now, false))
	}
	return out
}

func (g *Goals) buildOverview(goal core.SavingsGoal, now time.Time, withContributions bool) GoalOverview {
	ov := GoalOverview{
		Goal:            goal,
		Status:          goal.Status(now),
		Progress:        goal.ProgressPercentage(),
		Remaining:       goal.RemainingAmount(),
		RequiredMonthly: goal.RequiredMonthlyContribution(now),
		MonthsRemaining: goal.MonthsRemaining(now),
	}
	if projected, ok := goal.ProjectedCompletionDate(now); ok {
		ov.ProjectedCompletion = projected
		ov.HasProjection = true
	}
	if withContributions {
		ov.Contributions = g.ledger.Contributions(goal.ID)
	}
	return ov
}
