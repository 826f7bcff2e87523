package core

import (
	"fmt"
	"time"
)

const (
	Weekly    Frequency = "weekly"
	Biweekly  Frequency = "biweekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Biannual  Frequency = "biannual"
	Annual    Frequency = "annual"
)

// Frequency is the payment cadence of a recurring expense.
type Frequency string

// annualMultipliers is the canonical occurrences-per-year table. The weekly
// and biweekly entries are the usual 52/26 approximation, not computed from
// calendar length.
var annualMultipliers = map[Frequency]int64{
	Weekly:    52,
	Biweekly:  26,
	Monthly:   12,
	Quarterly: 4,
	Biannual:  2,
	Annual:    1,
}

// Frequencies returns all supported cadences in ascending period order.
func Frequencies() []Frequency {
	return []Frequency{Weekly, Biweekly, Monthly, Quarterly, Biannual, Annual}
}

// Valid reports whether f is one of the supported cadences.
func (f Frequency) Valid() bool {
	_, ok := annualMultipliers[f]
	return ok
}

// Validate returns an error for unsupported cadences.
func (f Frequency) Validate() error {
	if !f.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, string(f))
	}
	return nil
}

// AnnualMultiplier returns how many occurrences of this cadence fall in a
// year. Unknown cadences return 0; callers validate first.
func (f Frequency) AnnualMultiplier() int64 {
	return annualMultipliers[f]
}

// Next returns the occurrence following date for this cadence. Month and
// year steps use AddDate, so month-end overflow follows Go's calendar
// normalization (Jan 31 + 1 month lands in early March, never on an
// invalid date). Total over all valid dates.
func (f Frequency) Next(date time.Time) time.Time {
	switch f {
	case Weekly:
		return date.AddDate(0, 0, 7)
	case Biweekly:
		return date.AddDate(0, 0, 14)
	case Monthly:
		return date.AddDate(0, 1, 0)
	case Quarterly:
		return date.AddDate(0, 3, 0)
	case Biannual:
		return date.AddDate(0, 6, 0)
	case Annual:
		return date.AddDate(1, 0, 0)
	default:
		return date
	}
}

// MonthlyEquivalent normalizes a per-occurrence amount to its monthly cost:
// amount * annualMultiplier / 12, rounded half-up on cents.
func (f Frequency) MonthlyEquivalent(amount Money) Money {
	mult := annualMultipliers[f]
	if mult == 0 {
		return Money{}
	}
	annual := amount.Cents * mult
	return Money{Cents: (annual + 6) / 12}
}

// Label returns the French display label for the cadence. Both the core and
// any presentation layer read this single table, so the two can never drift.
func (f Frequency) Label() string {
	if info, ok := frequencyLabels[f]; ok {
		return info
	}
	return string(f)
}

var frequencyLabels = map[Frequency]string{
	Weekly:    "Hebdomadaire",
	Biweekly:  "Bimensuel",
	Monthly:   "Mensuel",
	Quarterly: "Trimestriel",
	Biannual:  "Semestriel",
	Annual:    "Annuel",
}
