package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	CategoryAlimentation Category = "alimentation"
	CategoryLogement     Category = "logement"
	CategoryTransport    Category = "transport"
	CategorySante        Category = "sante"
	CategoryLoisirs      Category = "loisirs"
	CategoryAbonnements  Category = "abonnements"
	CategoryVacances     Category = "vacances"
	CategoryEpargne      Category = "epargne"
	CategoryAutre        Category = "autre"
)

const (
	PayerPartner1 Payer = "partner1"
	PayerPartner2 Payer = "partner2"
	PayerJoint    Payer = "joint"
)

type (
	// Category is the spending category of a transaction or obligation.
	Category string

	// Payer identifies which member of the couple paid.
	Payer string

	// Transaction is an immutable spending record. Edits replace the whole
	// value; there is no in-place mutation.
	Transaction struct {
		ID          string
		Date        time.Time
		Description string
		Category    Category
		Amount      Money
		Payer       Payer
	}

	// Budgets holds the monthly cap per category plus the upsert timestamp.
	// A single record per process; replaced wholesale on save.
	Budgets struct {
		Caps      map[Category]Money
		UpdatedAt time.Time
	}

	// Salaries holds both partners' monthly income. Single record, replaced
	// wholesale on save.
	Salaries struct {
		Partner1  Money
		Partner2  Money
		UpdatedAt time.Time
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidPayer     = errors.New("invalid payer")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyName        = errors.New("empty name")
	ErrEndBeforeStart   = errors.New("end date before start date")
	ErrTooLong          = errors.New("text too long (max 200 characters)")
	ErrNotDue           = errors.New("expense not due")
)

// categoryInfo is the single canonical mapping for category labels and
// colors. Core logic and any presentation layer both read it, so duplicated
// switch statements cannot drift.
var categoryInfo = map[Category]struct {
	Label string
	Color string
}{
	CategoryAlimentation: {"Alimentation", "#4caf50"},
	CategoryLogement:     {"Logement", "#795548"},
	CategoryTransport:    {"Transport", "#2196f3"},
	CategorySante:        {"Santé", "#e91e63"},
	CategoryLoisirs:      {"Loisirs", "#ff9800"},
	CategoryAbonnements:  {"Abonnements", "#9c27b0"},
	CategoryVacances:     {"Vacances", "#00bcd4"},
	CategoryEpargne:      {"Épargne", "#607d8b"},
	CategoryAutre:        {"Autre", "#9e9e9e"},
}

// Categories returns all known categories in a stable order.
func Categories() []Category {
	return []Category{
		CategoryAlimentation, CategoryLogement, CategoryTransport,
		CategorySante, CategoryLoisirs, CategoryAbonnements,
		CategoryVacances, CategoryEpargne, CategoryAutre,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryInfo[c]
	return ok
}

// Label returns the display label for the category.
func (c Category) Label() string {
	if info, ok := categoryInfo[c]; ok {
		return info.Label
	}
	return string(c)
}

// Color returns the display color for the category.
func (c Category) Color() string {
	if info, ok := categoryInfo[c]; ok {
		return info.Color
	}
	return "#9e9e9e"
}

// Payers returns all known payers.
func Payers() []Payer {
	return []Payer{PayerPartner1, PayerPartner2, PayerJoint}
}

// Valid reports whether p is a known payer.
func (p Payer) Valid() bool {
	switch p {
	case PayerPartner1, PayerPartner2, PayerJoint:
		return true
	default:
		return false
	}
}

// Validate checks a transaction before any state mutation or I/O. Rejected
// values never reach the ledger.
func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	desc := strings.TrimSpace(t.Description)
	if desc == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return fmt.Errorf("description: %w", ErrTooLong)
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Category.Valid() {
		return ErrInvalidCategory
	}
	if !t.Payer.Valid() {
		return ErrInvalidPayer
	}
	return nil
}

// Total returns the combined monthly income of both partners.
func (s Salaries) Total() Money {
	return s.Partner1.Add(s.Partner2)
}

// Cap returns the monthly cap for a category, zero when none is set.
func (b Budgets) Cap(c Category) Money {
	if b.Caps == nil {
		return Money{}
	}
	return b.Caps[c]
}
