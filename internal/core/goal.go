package core

import (
	"errors"
	"strings"
	"time"
)

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

const (
	StatusCompleted      GoalStatus = "completed"
	StatusExpired        GoalStatus = "expired"
	StatusOnTrack        GoalStatus = "onTrack"
	StatusBehindSchedule GoalStatus = "behindSchedule"
)

type (
	// Priority ranks a savings goal.
	Priority string

	// GoalStatus is derived on every read, never stored.
	GoalStatus string

	// SavingsGoal is a target-amount/target-date accumulation plan.
	// CurrentAmount only changes through contribution postings.
	SavingsGoal struct {
		ID                  string
		Name                string
		Description         string
		TargetAmount        Money
		CurrentAmount       Money
		StartDate           time.Time
		TargetDate          time.Time
		Category            Category
		Priority            Priority
		IsActive            bool
		MonthlyContribution Money
	}

	// SavingsContribution is an immutable ledger entry applying an amount
	// toward a goal. Never edited or deleted independently of its goal.
	SavingsContribution struct {
		ID     string
		GoalID string
		Amount Money
		Date   time.Time
		Note   string
	}
)

var ErrInvalidPriority = errors.New("invalid priority")

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Validate checks the goal before it reaches the ledger. TargetAmount must
// be strictly positive, CurrentAmount non-negative; the entity itself does
// no further bounds checking beyond the derived-field clamps.
func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if err := g.TargetAmount.Validate(); err != nil {
		return err
	}
	if g.CurrentAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	if g.MonthlyContribution.Cents < 0 {
		return ErrInvalidAmount
	}
	if g.StartDate.IsZero() || g.TargetDate.IsZero() {
		return ErrInvalidDate
	}
	if g.TargetDate.Before(g.StartDate) {
		return ErrEndBeforeStart
	}
	if !g.Category.Valid() {
		return ErrInvalidCategory
	}
	if !g.Priority.Valid() {
		return ErrInvalidPriority
	}
	return nil
}

// ProgressPercentage returns current/target clamped to [0, 1].
func (g SavingsGoal) ProgressPercentage() float64 {
	if g.TargetAmount.Cents <= 0 {
		return 0
	}
	p := float64(g.CurrentAmount.Cents) / float64(g.TargetAmount.Cents)
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}

// RemainingAmount returns target minus current, floored at zero.
func (g SavingsGoal) RemainingAmount() Money {
	rem := g.TargetAmount.Cents - g.CurrentAmount.Cents
	if rem < 0 {
		rem = 0
	}
	return Money{Cents: rem}
}

// MonthsRemaining returns the whole calendar months from now to the target
// date, floored at zero.
func (g SavingsGoal) MonthsRemaining(now time.Time) int {
	return monthsBetween(now, g.TargetDate)
}

// RequiredMonthlyContribution returns the pace needed to reach the target by
// its date: remaining divided by the months left (ceiling on cents). With no
// months left, the whole remainder is required at once.
func (g SavingsGoal) RequiredMonthlyContribution(now time.Time) Money {
	remaining := g.RemainingAmount()
	months := g.MonthsRemaining(now)
	if months <= 0 {
		return remaining
	}
	n := int64(months)
	return Money{Cents: (remaining.Cents + n - 1) / n}
}

// Status derives the goal state at now. Completion strictly precedes expiry:
// a goal reaching its target on its exact deadline is completed, not expired.
func (g SavingsGoal) Status(now time.Time) GoalStatus {
	if g.CurrentAmount.Cents >= g.TargetAmount.Cents {
		return StatusCompleted
	}
	if now.After(g.TargetDate) {
		return StatusExpired
	}
	if g.MonthlyContribution.Cents >= g.RequiredMonthlyContribution(now).Cents {
		return StatusOnTrack
	}
	return StatusBehindSchedule
}

// ProjectedCompletionDate estimates when the goal completes at the current
// contribution pace. The second result is false when no projection exists
// (no contribution configured, or nothing left to save).
func (g SavingsGoal) ProjectedCompletionDate(now time.Time) (time.Time, bool) {
	remaining := g.RemainingAmount()
	if g.MonthlyContribution.Cents <= 0 || remaining.Cents <= 0 {
		return time.Time{}, false
	}
	months := (remaining.Cents + g.MonthlyContribution.Cents - 1) / g.MonthlyContribution.Cents
	return now.AddDate(0, int(months), 0), true
}

// monthsBetween counts whole calendar months from a to b, zero when b is not
// after a.
func monthsBetween(a, b time.Time) int {
	if !b.After(a) {
		return 0
	}
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// Validate checks a contribution before posting. Amounts must be strictly
// positive; zero or negative postings are rejected at the boundary.
func (c SavingsContribution) Validate() error {
	if strings.TrimSpace(c.GoalID) == "" {
		return errors.New("missing goal id")
	}
	if err := c.Amount.Validate(); err != nil {
		return err
	}
	if c.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}
