package records

import (
	"fmt"
	"time"

	"tirelire/internal/core"
)

// Record field names. Fixed for round-trip compatibility with existing
// stored data; renaming any of these is a breaking format change.
const (
	FieldID                  = "id"
	FieldDate                = "date"
	FieldDescription         = "description"
	FieldCategory            = "category"
	FieldAmount              = "amount"
	FieldPayer               = "payer"
	FieldFrequency           = "frequency"
	FieldStartDate           = "startDate"
	FieldNextDueDate         = "nextDueDate"
	FieldIsActive            = "isActive"
	FieldAutoGenerate        = "autoGenerate"
	FieldEndDate             = "endDate"
	FieldLastProcessedDate   = "lastProcessedDate"
	FieldName                = "name"
	FieldTargetAmount        = "targetAmount"
	FieldCurrentAmount       = "currentAmount"
	FieldTargetDate          = "targetDate"
	FieldPriority            = "priority"
	FieldMonthlyContribution = "monthlyContribution"
	FieldGoalID              = "goalId"
	FieldNote                = "note"
	FieldUpdatedAt           = "updatedAt"
	FieldPartner1            = "partner1"
	FieldPartner2            = "partner2"
)

// EncodeTransaction maps a transaction to its record field map. Amounts are
// carried as decimal euros, dates as RFC 3339 strings.
func EncodeTransaction(t core.Transaction) Record {
	return Record{
		FieldID:          t.ID,
		FieldDate:        encodeDate(t.Date),
		FieldDescription: t.Description,
		FieldCategory:    string(t.Category),
		FieldAmount:      t.Amount.Euros(),
		FieldPayer:       string(t.Payer),
	}
}

// DecodeTransaction rebuilds a transaction from a record. Any missing or
// mistyped field is an error; callers skip such records rather than abort
// the whole load.
func DecodeTransaction(rec Record) (core.Transaction, error) {
	id, err := getString(rec, FieldID)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := getDate(rec, FieldDate)
	if err != nil {
		return core.Transaction{}, err
	}
	desc, err := getString(rec, FieldDescription)
	if err != nil {
		return core.Transaction{}, err
	}
	category, err := getCategory(rec, FieldCategory)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := getAmount(rec, FieldAmount)
	if err != nil {
		return core.Transaction{}, err
	}
	payer, err := getPayer(rec, FieldPayer)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:          id,
		Date:        date,
		Description: desc,
		Category:    category,
		Amount:      amount,
		Payer:       payer,
	}, nil
}

// EncodeRecurringExpense maps a recurring expense to its record field map.
// The optional dates are omitted when zero.
func EncodeRecurringExpense(re core.RecurringExpense) Record {
	rec := Record{
		FieldID:           re.ID,
		FieldDescription:  re.Description,
		FieldAmount:       re.Amount.Euros(),
		FieldCategory:     string(re.Category),
		FieldPayer:        string(re.Payer),
		FieldFrequency:    string(re.Frequency),
		FieldStartDate:    encodeDate(re.StartDate),
		FieldNextDueDate:  encodeDate(re.NextDueDate),
		FieldIsActive:     re.IsActive,
		FieldAutoGenerate: re.AutoGenerate,
	}
	if !re.EndDate.IsZero() {
		rec[FieldEndDate] = encodeDate(re.EndDate)
	}
	if !re.LastProcessedDate.IsZero() {
		rec[FieldLastProcessedDate] = encodeDate(re.LastProcessedDate)
	}
	return rec
}

// DecodeRecurringExpense rebuilds a recurring expense from a record.
func DecodeRecurringExpense(rec Record) (core.RecurringExpense, error) {
	id, err := getString(rec, FieldID)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	desc, err := getString(rec, FieldDescription)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	amount, err := getAmount(rec, FieldAmount)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	category, err := getCategory(rec, FieldCategory)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	payer, err := getPayer(rec, FieldPayer)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	frequency, err := getFrequency(rec, FieldFrequency)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	startDate, err := getDate(rec, FieldStartDate)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	nextDue, err := getDate(rec, FieldNextDueDate)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	isActive, err := getBool(rec, FieldIsActive)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	autoGenerate, err := getBool(rec, FieldAutoGenerate)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	endDate, err := getOptionalDate(rec, FieldEndDate)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	lastProcessed, err := getOptionalDate(rec, FieldLastProcessedDate)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	return core.RecurringExpense{
		ID:                id,
		Description:       desc,
		Amount:            amount,
		Category:          category,
		Payer:             payer,
		Frequency:         frequency,
		StartDate:         startDate,
		NextDueDate:       nextDue,
		IsActive:          isActive,
		EndDate:           endDate,
		LastProcessedDate: lastProcessed,
		AutoGenerate:      autoGenerate,
	}, nil
}

// EncodeSavingsGoal maps a goal to its record field map. Only stored state
// is encoded; derived fields (progress, status) are recomputed on read.
func EncodeSavingsGoal(g core.SavingsGoal) Record {
	return Record{
		FieldID:                  g.ID,
		FieldName:                g.Name,
		FieldDescription:         g.Description,
		FieldTargetAmount:        g.TargetAmount.Euros(),
		FieldCurrentAmount:       g.CurrentAmount.Euros(),
		FieldStartDate:           encodeDate(g.StartDate),
		FieldTargetDate:          encodeDate(g.TargetDate),
		FieldCategory:            string(g.Category),
		FieldPriority:            string(g.Priority),
		FieldMonthlyContribution: g.MonthlyContribution.Euros(),
		FieldIsActive:            g.IsActive,
	}
}

// DecodeSavingsGoal rebuilds a goal from a record.
func DecodeSavingsGoal(rec Record) (core.SavingsGoal, error) {
	id, err := getString(rec, FieldID)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	name, err := getString(rec, FieldName)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	desc, err := getString(rec, FieldDescription)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	target, err := getAmount(rec, FieldTargetAmount)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	current, err := getAmount(rec, FieldCurrentAmount)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	startDate, err := getDate(rec, FieldStartDate)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	targetDate, err := getDate(rec, FieldTargetDate)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	category, err := getCategory(rec, FieldCategory)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	priority, err := getPriority(rec, FieldPriority)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	monthly, err := getAmount(rec, FieldMonthlyContribution)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	isActive, err := getBool(rec, FieldIsActive)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	return core.SavingsGoal{
		ID:                  id,
		Name:                name,
		Description:         desc,
		TargetAmount:        target,
		CurrentAmount:       current,
		StartDate:           startDate,
		TargetDate:          targetDate,
		Category:            category,
		Priority:            priority,
		IsActive:            isActive,
		MonthlyContribution: monthly,
	}, nil
}

// EncodeContribution maps a contribution to its record field map.
func EncodeContribution(c core.SavingsContribution) Record {
	rec := Record{
		FieldID:     c.ID,
		FieldGoalID: c.GoalID,
		FieldAmount: c.Amount.Euros(),
		FieldDate:   encodeDate(c.Date),
	}
	if c.Note != "" {
		rec[FieldNote] = c.Note
	}
	return rec
}

// DecodeContribution rebuilds a contribution from a record.
func DecodeContribution(rec Record) (core.SavingsContribution, error) {
	id, err := getString(rec, FieldID)
	if err != nil {
		return core.SavingsContribution{}, err
	}
	goalID, err := getString(rec, FieldGoalID)
	if err != nil {
		return core.SavingsContribution{}, err
	}
	amount, err := getAmount(rec, FieldAmount)
	if err != nil {
		return core.SavingsContribution{}, err
	}
	date, err := getDate(rec, FieldDate)
	if err != nil {
		return core.SavingsContribution{}, err
	}
	note, _ := rec[FieldNote].(string)
	return core.SavingsContribution{
		ID:     id,
		GoalID: goalID,
		Amount: amount,
		Date:   date,
		Note:   note,
	}, nil
}

// EncodeBudgets maps the budgets singleton to its record: one decimal field
// per category plus the upsert timestamp.
func EncodeBudgets(b core.Budgets) Record {
	rec := Record{
		FieldID:        BudgetsRecordID,
		FieldUpdatedAt: encodeDate(b.UpdatedAt),
	}
	for _, c := range core.Categories() {
		if amount := b.Cap(c); amount.Cents > 0 {
			rec[string(c)] = amount.Euros()
		}
	}
	return rec
}

// DecodeBudgets rebuilds the budgets singleton from a record. Missing
// category fields mean no cap for that category.
func DecodeBudgets(rec Record) (core.Budgets, error) {
	updatedAt, err := getOptionalDate(rec, FieldUpdatedAt)
	if err != nil {
		return core.Budgets{}, err
	}
	caps := make(map[core.Category]core.Money)
	for _, c := range core.Categories() {
		v, ok := rec[string(c)]
		if !ok {
			continue
		}
		euros, ok := asNumber(v)
		if !ok {
			return core.Budgets{}, fmt.Errorf("field %q: not a number", string(c))
		}
		caps[c] = core.Money{Cents: core.CentsFromEuros(euros)}
	}
	return core.Budgets{Caps: caps, UpdatedAt: updatedAt}, nil
}

// EncodeSalaries maps the salaries singleton to its record.
func EncodeSalaries(s core.Salaries) Record {
	return Record{
		FieldID:        SalairesRecordID,
		FieldPartner1:  s.Partner1.Euros(),
		FieldPartner2:  s.Partner2.Euros(),
		FieldUpdatedAt: encodeDate(s.UpdatedAt),
	}
}

// DecodeSalaries rebuilds the salaries singleton from a record.
func DecodeSalaries(rec Record) (core.Salaries, error) {
	p1, err := getAmount(rec, FieldPartner1)
	if err != nil {
		return core.Salaries{}, err
	}
	p2, err := getAmount(rec, FieldPartner2)
	if err != nil {
		return core.Salaries{}, err
	}
	updatedAt, err := getOptionalDate(rec, FieldUpdatedAt)
	if err != nil {
		return core.Salaries{}, err
	}
	return core.Salaries{Partner1: p1, Partner2: p2, UpdatedAt: updatedAt}, nil
}

func encodeDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func getString(rec Record, field string) (string, error) {
	v, ok := rec[field]
	if !ok {
		return "", fmt.Errorf("field %q: missing", field)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q: not a string", field)
	}
	return s, nil
}

// Enum fields are validated on decode: a record carrying an unknown
// category, payer, frequency, or priority is malformed and gets skipped by
// the load path like any other mistyped field.

func getCategory(rec Record, field string) (core.Category, error) {
	s, err := getString(rec, field)
	if err != nil {
		return "", err
	}
	c := core.Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("field %q: unknown category %q", field, s)
	}
	return c, nil
}

func getPayer(rec Record, field string) (core.Payer, error) {
	s, err := getString(rec, field)
	if err != nil {
		return "", err
	}
	p := core.Payer(s)
	if !p.Valid() {
		return "", fmt.Errorf("field %q: unknown payer %q", field, s)
	}
	return p, nil
}

func getFrequency(rec Record, field string) (core.Frequency, error) {
	s, err := getString(rec, field)
	if err != nil {
		return "", err
	}
	f := core.Frequency(s)
	if !f.Valid() {
		return "", fmt.Errorf("field %q: unknown frequency %q", field, s)
	}
	return f, nil
}

func getPriority(rec Record, field string) (core.Priority, error) {
	s, err := getString(rec, field)
	if err != nil {
		return "", err
	}
	p := core.Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("field %q: unknown priority %q", field, s)
	}
	return p, nil
}

func getBool(rec Record, field string) (bool, error) {
	v, ok := rec[field]
	if !ok {
		return false, fmt.Errorf("field %q: missing", field)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("field %q: not a bool", field)
	}
	return b, nil
}

func getAmount(rec Record, field string) (core.Money, error) {
	v, ok := rec[field]
	if !ok {
		return core.Money{}, fmt.Errorf("field %q: missing", field)
	}
	euros, ok := asNumber(v)
	if !ok {
		return core.Money{}, fmt.Errorf("field %q: not a number", field)
	}
	return core.Money{Cents: core.CentsFromEuros(euros)}, nil
}

func getDate(rec Record, field string) (time.Time, error) {
	v, ok := rec[field]
	if !ok {
		return time.Time{}, fmt.Errorf("field %q: missing", field)
	}
	return parseDate(v, field)
}

func getOptionalDate(rec Record, field string) (time.Time, error) {
	v, ok := rec[field]
	if !ok {
		return time.Time{}, nil
	}
	return parseDate(v, field)
}

func parseDate(v any, field string) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d.UTC(), nil
	case string:
		if t, err := time.Parse(time.RFC3339, d); err == nil {
			return t.UTC(), nil
		}
		if t, err := time.Parse("2006-01-02", d); err == nil {
			return t.UTC(), nil
		}
		return time.Time{}, fmt.Errorf("field %q: unparseable date %q", field, d)
	default:
		return time.Time{}, fmt.Errorf("field %q: not a date", field)
	}
}

// asNumber accepts the numeric representations the adapters produce:
// float64 from JSON and the memory store, int64 from SQLite.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
