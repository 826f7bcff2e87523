package services

import (
	"encoding/json"
	"time"

	"tirelire/internal/ledger"
	"tirelire/internal/records"
)

// Export produces the bulk JSON snapshot of the whole household dataset.
// Entities are exported in their record field-map form so a dump can be
// re-imported through the same codec.
type Export struct {
	ledger *ledger.Ledger
}

func NewExport(l *ledger.Ledger) *Export {
	return &Export{ledger: l}
}

type ExportDocument struct {
	ExportedAt    string           `json:"exportedAt"`
	Transactions  []records.Record `json:"transactions"`
	Recurring     []records.Record `json:"recurringExpenses"`
	Goals         []records.Record `json:"savingsGoals"`
	Contributions []records.Record `json:"savingsContributions"`
	Budgets       records.Record   `json:"budgets"`
	Salaries      records.Record   `json:"salaires"`
}

// Snapshot builds the export document at now.
func (e *Export) Snapshot(now time.Time) ExportDocument {
	doc := ExportDocument{
		ExportedAt:    now.UTC().Format(time.RFC3339),
		Transactions:  []records.Record{},
		Recurring:     []records.Record{},
		Goals:         []records.Record{},
		Contributions: []records.Record{},
	}
	for _, t := range e.ledger.Transactions() {
		doc.Transactions = append(doc.Transactions, records.EncodeTransaction(t))
	}
	for _, re := range e.ledger.RecurringExpenses() {
		doc.Recurring = append(doc.Recurring, records.EncodeRecurringExpense(re))
	}
	for _, g := range e.ledger.SavingsGoals() {
		doc.Goals = append(doc.Goals, records.EncodeSavingsGoal(g))
	}
	for _, c := range e.ledger.Contributions("") {
		doc.Contributions = append(doc.Contributions, records.EncodeContribution(c))
	}
	doc.Budgets = records.EncodeBudgets(e.ledger.Budgets())
	doc.Salaries = records.EncodeSalaries(e.ledger.Salaries())
	return doc
}

// JSON renders the snapshot as indented JSON.
func (e *Export) JSON(now time.Time) ([]byte, error) {
	return json.MarshalIndent(e.Snapshot(now), "", "  ")
}
