// Package records defines the narrow persistence contract shared by every
// entity type: save, query and delete of flat field-map records, plus the
// codecs between domain entities and their record shape.
package records

import "context"

// Entity type names. These double as table/tab identifiers in the adapters,
// so they are part of the stored format.
const (
	TypeTransaction         = "Transaction"
	TypeRecurringExpense    = "RecurringExpense"
	TypeSavingsGoal         = "SavingsGoal"
	TypeSavingsContribution = "SavingsContribution"
	TypeBudgets             = "Budgets"
	TypeSalaires            = "Salaires"
)

// Singleton record ids for the upsert-only entity types.
const (
	BudgetsRecordID  = "budgets"
	SalairesRecordID = "salaires"
)

// Record is one persisted entity as a flat field map. Field names are fixed
// by the codecs; adapters must not rename them.
type Record map[string]any

// ID returns the record's id field, empty when absent or mistyped.
func (r Record) ID() string {
	id, _ := r[FieldID].(string)
	return id
}

// Predicate narrows a query. The zero value matches every record; the only
// other supported form is field-equals-literal, which is all this store's
// callers ever need.
type Predicate struct {
	Field  string
	Equals string
}

// All matches every record of the entity type.
func All() Predicate { return Predicate{} }

// FieldEquals matches records whose field holds exactly value.
func FieldEquals(field, value string) Predicate {
	return Predicate{Field: field, Equals: value}
}

// Matches reports whether rec satisfies the predicate.
func (p Predicate) Matches(rec Record) bool {
	if p.Field == "" {
		return true
	}
	v, ok := rec[p.Field].(string)
	return ok && v == p.Equals
}

// SaveOp is one upsert inside a batch.
type SaveOp struct {
	EntityType string
	Record     Record
}

// Store is the persistence boundary. Save upserts by the record's id field.
// SaveBatch commits all ops or none; operations that must stay consistent
// as a pair (process-expense, post-contribution) go through it. Query with
// the zero predicate returns every record of the type.
type Store interface {
	Save(ctx context.Context, entityType string, rec Record) error
	SaveBatch(ctx context.Context, ops []SaveOp) error
	Query(ctx context.Context, entityType string, pred Predicate) ([]Record, error)
	Delete(ctx context.Context, entityType string, ids []string) error
}
