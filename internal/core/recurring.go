package core

import (
	"fmt"
	"strings"
	"time"
)

// RecurringExpense is a scheduled, repeating monetary obligation. The zero
// EndDate means open-ended; the zero LastProcessedDate means never processed.
type RecurringExpense struct {
	ID                string
	Description       string
	Amount            Money
	Category          Category
	Payer             Payer
	Frequency         Frequency
	StartDate         time.Time
	NextDueDate       time.Time
	IsActive          bool
	EndDate           time.Time
	LastProcessedDate time.Time
	AutoGenerate      bool
}

// NewRecurringExpense builds an active expense with NextDueDate derived from
// the start date, mirroring how due dates are seeded at creation.
func NewRecurringExpense(id, description string, amount Money, category Category, payer Payer, frequency Frequency, startDate time.Time, autoGenerate bool) (RecurringExpense, error) {
	re := RecurringExpense{
		ID:           id,
		Description:  description,
		Amount:       amount,
		Category:     category,
		Payer:        payer,
		Frequency:    frequency,
		StartDate:    startDate,
		IsActive:     true,
		AutoGenerate: autoGenerate,
	}
	if err := re.Validate(); err != nil {
		return RecurringExpense{}, err
	}
	re.NextDueDate = frequency.Next(startDate)
	return re, nil
}

// Validate checks the expense before it reaches the ledger.
func (re RecurringExpense) Validate() error {
	if re.StartDate.IsZero() {
		return fmt.Errorf("invalid start date: %w", ErrInvalidDate)
	}
	if !re.EndDate.IsZero() && re.EndDate.Before(re.StartDate) {
		return ErrEndBeforeStart
	}
	if err := re.Frequency.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(re.Description) == "" {
		return ErrEmptyDescription
	}
	if len(re.Description) > 200 {
		return fmt.Errorf("description: %w", ErrTooLong)
	}
	if err := re.Amount.Validate(); err != nil {
		return err
	}
	if !re.Category.Valid() {
		return ErrInvalidCategory
	}
	if !re.Payer.Valid() {
		return ErrInvalidPayer
	}
	return nil
}

// Ended reports whether the expense is past its end date. Ended expenses
// take no further transitions, even when NextDueDate has passed.
func (re RecurringExpense) Ended(now time.Time) bool {
	return !re.EndDate.IsZero() && now.After(re.EndDate)
}

// IsDue reports whether the expense should be processed at now. Pure; no
// side effect. Inactive and ended expenses are never due.
func (re RecurringExpense) IsDue(now time.Time) bool {
	if !re.IsActive || re.Ended(now) {
		return false
	}
	return !now.Before(re.NextDueDate)
}

// AnnualCost returns amount times the cadence's annual multiplier.
func (re RecurringExpense) AnnualCost() Money {
	return Money{Cents: re.Amount.Cents * re.Frequency.AnnualMultiplier()}
}

// MonthlyCost returns the monthly-equivalent cost of the expense.
func (re RecurringExpense) MonthlyCost() Money {
	return re.Frequency.MonthlyEquivalent(re.Amount)
}

// Process materializes the due occurrence into a transaction and returns the
// rescheduled expense. The transaction is dated with the occurrence's due
// date and tagged as recurring-derived; its ID is left empty for the caller
// to assign. NextDueDate is stepped forward from the processed occurrence
// until strictly after now, so a long-idle expense cannot stay stuck in the
// due state.
func (re RecurringExpense) Process(now time.Time) (Transaction, RecurringExpense, error) {
	if !re.IsDue(now) {
		return Transaction{}, re, fmt.Errorf("%w: expense %q at %s", ErrNotDue, re.ID, now.Format("2006-01-02"))
	}
	if err := re.Frequency.Validate(); err != nil {
		return Transaction{}, re, err
	}
	tx := Transaction{
		Date:        re.NextDueDate,
		Description: fmt.Sprintf("%s (récurrent)", re.Description),
		Category:    re.Category,
		Amount:      re.Amount,
		Payer:       re.Payer,
	}
	next := re.Frequency.Next(re.NextDueDate)
	for !next.After(now) {
		stepped := re.Frequency.Next(next)
		if !stepped.After(next) {
			return Transaction{}, re, fmt.Errorf("%w: %q does not advance", ErrInvalidFrequency, re.Frequency)
		}
		next = stepped
	}
	updated := re
	updated.NextDueDate = next
	updated.LastProcessedDate = now
	return tx, updated, nil
}
