// Package ledger owns the in-memory household state and keeps it in sync
// with the record store. All mutations are optimistic: the local state is
// updated first, the store write follows, and a failed write rolls the
// local change back before the error is returned.
package ledger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"tirelire/internal/core"
	"tirelire/internal/log"
	"tirelire/internal/records"
)

var ErrNotFound = errors.New("ledger: not found")

// Ledger is the single owner of the loaded state. It is safe for
// concurrent use.
type Ledger struct {
	store  records.Store
	logger *log.Logger

	mu            sync.RWMutex
	transactions  map[string]core.Transaction
	recurring     map[string]core.RecurringExpense
	goals         map[string]core.SavingsGoal
	contributions map[string]core.SavingsContribution
	budgets       core.Budgets
	salaries      core.Salaries

	subscribers []func()
}

func New(store records.Store, logger *log.Logger) *Ledger {
	return &Ledger{
		store:         store,
		logger:        logger.WithComponent(log.ComponentLedger),
		transactions:  make(map[string]core.Transaction),
		recurring:     make(map[string]core.RecurringExpense),
		goals:         make(map[string]core.SavingsGoal),
		contributions: make(map[string]core.SavingsContribution),
	}
}

// Load replaces the in-memory state with the store contents. Records that
// fail to decode are skipped and counted, never fatal: one corrupt row must
// not take the whole household dataset down with it.
func (l *Ledger) Load(ctx context.Context) error {
	transactions := make(map[string]core.Transaction)
	recurring := make(map[string]core.RecurringExpense)
	goals := make(map[string]core.SavingsGoal)
	contributions := make(map[string]core.SavingsContribution)
	var budgets core.Budgets
	var salaries core.Salaries

	skipped := 0

	recs, err := l.store.Query(ctx, records.TypeTransaction, records.All())
	if err != nil {
		return fmt.Errorf("loading transactions: %w", err)
	}
	for _, rec := range recs {
		t, err := records.DecodeTransaction(rec)
		if err != nil {
			skipped++
			l.logger.Warn("skipping malformed record",
				log.FieldEntityType, records.TypeTransaction,
				log.FieldRecordID, rec.ID(),
				log.FieldError, err.Error())
			continue
		}
		transactions[t.ID] = t
	}

	recs, err = l.store.Query(ctx, records.TypeRecurringExpense, records.All())
	if err != nil {
		return fmt.Errorf("loading recurring expenses: %w", err)
	}
	for _, rec := range recs {
		re, err := records.DecodeRecurringExpense(rec)
		if err != nil {
			skipped++
			l.logger.Warn("skipping malformed record",
				log.FieldEntityType, records.TypeRecurringExpense,
				log.FieldRecordID, rec.ID(),
				log.FieldError, err.Error())
			continue
		}
		recurring[re.ID] = re
	}

	recs, err = l.store.Query(ctx, records.TypeSavingsGoal, records.All())
	if err != nil {
		return fmt.Errorf("loading savings goals: %w", err)
	}
	for _, rec := range recs {
		g, err := records.DecodeSavingsGoal(rec)
		if err != nil {
			skipped++
			l.logger.Warn("skipping malformed record",
				log.FieldEntityType, records.TypeSavingsGoal,
				log.FieldRecordID, rec.ID(),
				log.FieldError, err.Error())
			continue
		}
		goals[g.ID] = g
	}

	recs, err = l.store.Query(ctx, records.TypeSavingsContribution, records.All())
	if err != nil {
		return fmt.Errorf("loading contributions: %w", err)
	}
	for _, rec := range recs {
		c, err := records.DecodeContribution(rec)
		if err != nil {
			skipped++
			l.logger.Warn("skipping malformed record",
				log.FieldEntityType, records.TypeSavingsContribution,
				log.FieldRecordID, rec.ID(),
				log.FieldError, err.Error())
			continue
		}
		contributions[c.ID] = c
	}

	recs, err = l.store.Query(ctx, records.TypeBudgets, records.All())
	if err != nil {
		return fmt.Errorf("loading budgets: %w", err)
	}
	if len(recs) > 0 {
		b, err := records.DecodeBudgets(recs[0])
		if err != nil {
			skipped++
			l.logger.Warn("skipping malformed record",
				log.FieldEntityType, records.TypeBudgets,
				log.FieldError, err.Error())
		} else {
			budgets = b
		}
	}

	recs, err = l.store.Query(ctx, records.TypeSalaires, records.All())
	if err != nil {
		return fmt.Errorf("loading salaries: %w", err)
	}
	if len(recs) > 0 {
		s, err := records.DecodeSalaries(recs[0])
		if err != nil {
			skipped++
			l.logger.Warn("skipping malformed record",
				log.FieldEntityType, records.TypeSalaires,
				log.FieldError, err.Error())
		} else {
			salaries = s
		}
	}

	l.mu.Lock()
	l.transactions = transactions
	l.recurring = recurring
	l.goals = goals
	l.contributions = contributions
	l.budgets = budgets
	l.salaries = salaries
	l.mu.Unlock()

	l.logger.Info("state loaded",
		"transactions", len(transactions),
		"recurring", len(recurring),
		"goals", len(goals),
		"contributions", len(contributions),
		"skipped", skipped)
	l.notify()
	return nil
}

// Subscribe registers a callback invoked after every successful mutation.
// Callbacks run without the ledger lock held.
func (l *Ledger) Subscribe(fn func()) {
	l.mu.Lock()
	l.subscribers = append(l.subscribers, fn)
	l.mu.Unlock()
}

func (l *Ledger) notify() {
	l.mu.RLock()
	subs := make([]func(), len(l.subscribers))
	copy(subs, l.subscribers)
	l.mu.RUnlock()
	for _, fn := range subs {
		fn()
	}
}

// --- transactions ---

func (l *Ledger) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = newID()
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	l.mu.Lock()
	l.transactions[t.ID] = t
	l.mu.Unlock()

	if err := l.store.Save(ctx, records.TypeTransaction, records.EncodeTransaction(t)); err != nil {
		l.mu.Lock()
		delete(l.transactions, t.ID)
		l.mu.Unlock()
		return core.Transaction{}, fmt.Errorf("saving transaction: %w", err)
	}
	l.notify()
	return t, nil
}

func (l *Ledger) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	prev, ok := l.transactions[t.ID]
	if !ok {
		l.mu.Unlock()
		return ErrNotFound
	}
	l.transactions[t.ID] = t
	l.mu.Unlock()

	if err := l.store.Save(ctx, records.TypeTransaction, records.EncodeTransaction(t)); err != nil {
		l.mu.Lock()
		l.transactions[t.ID] = prev
		l.mu.Unlock()
		return fmt.Errorf("saving transaction: %w", err)
	}
	l.notify()
	return nil
}

func (l *Ledger) DeleteTransaction(ctx context.Context, id string) error {
	l.mu.Lock()
	prev, ok := l.transactions[id]
	if !ok {
		l.mu.Unlock()
		return ErrNotFound
	}
	delete(l.transactions, id)
	l.mu.Unlock()

	if err := l.store.Delete(ctx, records.TypeTransaction, []string{id}); err != nil {
		l.mu.Lock()
		l.transactions[id] = prev
		l.mu.Unlock()
		return fmt.Errorf("deleting transaction: %w", err)
	}
	l.notify()
	return nil
}

// Transactions returns a copy of all transactions, newest first.
func (l *Ledger) Transactions() []core.Transaction {
	l.mu.RLock()
	out := make([]core.Transaction, 0, len(l.transactions))
	for _, t := range l.transactions {
		out = append(out, t)
	}
	l.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (l *Ledger) Transaction(id string) (core.Transaction, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.transactions[id]
	return t, ok
}

// --- recurring expenses ---

func (l *Ledger) AddRecurringExpense(ctx context.Context, re core.RecurringExpense) (core.RecurringExpense, error) {
	if re.ID == "" {
		re.ID = newID()
	}
	if err := re.Validate(); err != nil {
		return core.RecurringExpense{}, err
	}

	l.mu.Lock()
	l.recurring[re.ID] = re
	l.mu.Unlock()

	if err := l.store.Save(ctx, records.TypeRecurringExpense, records.EncodeRecurringExpense(re)); err != nil {
		l.mu.Lock()
		delete(l.recurring, re.ID)
		l.mu.Unlock()
		return core.RecurringExpense{}, fmt.Errorf("saving recurring expense: %w", err)
	}
	l.notify()
	return re, nil
}

func (l *Ledger) UpdateRecurringExpense(ctx context.Context, re core.RecurringExpense) error {
	if err := re.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	prev, ok := l.recurring[re.ID]
	if !ok {
		l.mu.Unlock()
		return ErrNotFound
	}
	l.recurring[re.ID] = re
	l.mu.Unlock()

	if err := l.store.Save(ctx, records.TypeRecurringExpense, records.EncodeRecurringExpense(re)); err != nil {
		l.mu.Lock()
		l.recurring[re.ID] = prev
		l.mu.Unlock()
		return fmt.Errorf("saving recurring expense: %w", err)
	}
	l.notify()
	return nil
}

func (l *Ledger) DeleteRecurringExpense(ctx context.Context, id string) error {
	l.mu.Lock()
	prev, ok := l.recurring[id]
	if !ok {
		l.mu.Unlock()
		return ErrNotFound
	}
	delete(l.recurring, id)
	l.mu.Unlock()

	if err := l.store.Delete(ctx, records.TypeRecurringExpense, []string{id}); err != nil {
		l.mu.Lock()
		l.recurring[id] = prev
		l.mu.Unlock()
		return fmt.Errorf("deleting recurring expense: %w", err)
	}
	l.notify()
	return nil
}

func (l *Ledger) RecurringExpenses() []core.RecurringExpense {
	l.mu.RLock()
	out := make([]core.RecurringExpense, 0, len(l.recurring))
	for _, re := range l.recurring {
		out = append(out, re)
	}
	l.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextDueDate.Equal(out[j].NextDueDate) {
			return out[i].NextDueDate.Before(out[j].NextDueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (l *Ledger) RecurringExpense(id string) (core.RecurringExpense, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	re, ok := l.recurring[id]
	return re, ok
}

// CommitProcessed records the result of processing a due recurring expense:
// the generated transaction and the advanced expense land in the store
// together or not at all.
func (l *Ledger) CommitProcessed(ctx context.Context, t core.Transaction, re core.RecurringExpense) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = newID()
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := re.Validate(); err != nil {
		return core.Transaction{}, err
	}

	l.mu.Lock()
	prevRE, ok := l.recurring[re.ID]
	if !ok {
		l.mu.Unlock()
		return core.Transaction{}, ErrNotFound
	}
	l.transactions[t.ID] = t
	l.recurring[re.ID] = re
	l.mu.Unlock()

	err := l.store.SaveBatch(ctx, []records.SaveOp{
		{EntityType: records.TypeTransaction, Record: records.EncodeTransaction(t)},
		{EntityType: records.TypeRecurringExpense, Record: records.EncodeRecurringExpense(re)},
	})
	if err != nil {
		l.mu.Lock()
		delete(l.transactions, t.ID)
		l.recurring[re.ID] = prevRE
		l.mu.Unlock()
		return core.Transaction{}, fmt.Errorf("committing processed expense: %w", err)
	}
	l.notify()
	return t, nil
}

// --- savings goals ---

func (l *Ledger) AddSavingsGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	if g.ID == "" {
		g.ID = newID()
	}
	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}

	l.mu.Lock()
	l.goals[g.ID] = g
	l.mu.Unlock()

	if err := l.store.Save(ctx, records.TypeSavingsGoal, records.EncodeSavingsGoal(g)); err != nil {
		l.mu.Lock()
		delete(l.goals, g.ID)
		l.mu.Unlock()
		return core.SavingsGoal{}, fmt.Errorf("saving goal: %w", err)
	}
	l.notify()
	return g, nil
}

func (l *Ledger) UpdateSavingsGoal(ctx context.Context, g core.SavingsGoal) error {
	if err := g.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	prev, ok := l.goals[g.ID]
	if !ok {
		l.mu.Unlock()
		return ErrNotFound
	}
	l.goals[g.ID] = g
	l.mu.Unlock()

	if err := l.store.Save(ctx, records.TypeSavingsGoal, records.EncodeSavingsGoal(g)); err != nil {
		l.mu.Lock()
		l.goals[g.ID] = prev
		l.mu.Unlock()
		return fmt.Errorf("saving goal: %w", err)
	}
	l.notify()
	return nil
}

// DeleteSavingsGoal removes a goal and all of its contributions. The
// contribution rows disappear from the store first; a failure at any point
// restores the local state.
func (l *Ledger) DeleteSavingsGoal(ctx context.Context, id string) error {
	l.mu.Lock()
	prev, ok := l.goals[id]
	if !ok {
		l.mu.Unlock()
		return ErrNotFound
	}
	removed := make(map[string]core.SavingsContribution)
	for cid, c := range l.contributions {
		if c.GoalID == id {
			removed[cid] = c
			delete(l.contributions, cid)
		}
	}
	delete(l.goals, id)
	l.mu.Unlock()

	rollback := func() {
		l.mu.Lock()
		l.goals[id] = prev
		for cid, c := range removed {
			l.contributions[cid] = c
		}
		l.mu.Unlock()
	}

	if len(removed) > 0 {
		ids := make([]string, 0, len(removed))
		for cid := range removed {
			ids = append(ids, cid)
		}
		if err := l.store.Delete(ctx, records.TypeSavingsContribution, ids); err != nil {
			rollback()
			return fmt.Errorf("deleting goal contributions: %w", err)
		}
	}
	if err := l.store.Delete(ctx, records.TypeSavingsGoal, []string{id}); err != nil {
		rollback()
		return fmt.Errorf("deleting goal: %w", err)
	}
	l.notify()
	return nil
}

func (l *Ledger) SavingsGoals() []core.SavingsGoal {
	l.mu.RLock()
	out := make([]core.SavingsGoal, 0, len(l.goals))
	for _, g := range l.goals {
		out = append(out, g)
	}
	l.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TargetDate.Equal(out[j].TargetDate) {
			return out[i].TargetDate.Before(out[j].TargetDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (l *Ledger) SavingsGoal(id string) (core.SavingsGoal, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	g, ok := l.goals[id]
	return g, ok
}

// --- contributions ---

// AddContribution posts a contribution and bumps the goal's current amount
// in one atomic store write.
func (l *Ledger) AddContribution(ctx context.Context, c core.SavingsContribution) (core.SavingsContribution, error) {
	if c.ID == "" {
		c.ID = newID()
	}
	if c.Date.IsZero() {
		c.Date = time.Now().UTC()
	}
	if err := c.Validate(); err != nil {
		return core.SavingsContribution{}, err
	}

	l.mu.Lock()
	prevGoal, ok := l.goals[c.GoalID]
	if !ok {
		l.mu.Unlock()
		return core.SavingsContribution{}, ErrNotFound
	}
	updated := prevGoal
	updated.CurrentAmount = updated.CurrentAmount.Add(c.Amount)
	l.contributions[c.ID] = c
	l.goals[c.GoalID] = updated
	l.mu.Unlock()

	err := l.store.SaveBatch(ctx, []records.SaveOp{
		{EntityType: records.TypeSavingsContribution, Record: records.EncodeContribution(c)},
		{EntityType: records.TypeSavingsGoal, Record: records.EncodeSavingsGoal(updated)},
	})
	if err != nil {
		l.mu.Lock()
		delete(l.contributions, c.ID)
		l.goals[c.GoalID] = prevGoal
		l.mu.Unlock()
		return core.SavingsContribution{}, fmt.Errorf("saving contribution: %w", err)
	}
	l.notify()
	return c, nil
}

// Contributions returns the contributions for one goal, newest first.
// An empty goalID returns all of them.
func (l *Ledger) Contributions(goalID string) []core.SavingsContribution {
	l.mu.RLock()
	out := make([]core.SavingsContribution, 0, len(l.contributions))
	for _, c := range l.contributions {
		if goalID == "" || c.GoalID == goalID {
			out = append(out, c)
		}
	}
	l.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// --- budgets and salaries ---

func (l *Ledger) SetBudgets(ctx context.Context, b core.Budgets) error {
	b.UpdatedAt = time.Now().UTC()

	l.mu.Lock()
	prev := l.budgets
	l.budgets = b
	l.mu.Unlock()

	if err := l.store.Save(ctx, records.TypeBudgets, records.EncodeBudgets(b)); err != nil {
		l.mu.Lock()
		l.budgets = prev
		l.mu.Unlock()
		return fmt.Errorf("saving budgets: %w", err)
	}
	l.notify()
	return nil
}

func (l *Ledger) Budgets() core.Budgets {
	l.mu.RLock()
	defer l.mu.RUnlock()
	caps := make(map[core.Category]core.Money, len(l.budgets.Caps))
	for c, m := range l.budgets.Caps {
		caps[c] = m
	}
	return core.Budgets{Caps: caps, UpdatedAt: l.budgets.UpdatedAt}
}

func (l *Ledger) SetSalaries(ctx context.Context, s core.Salaries) error {
	s.UpdatedAt = time.Now().UTC()

	l.mu.Lock()
	prev := l.salaries
	l.salaries = s
	l.mu.Unlock()

	if err := l.store.Save(ctx, records.TypeSalaires, records.EncodeSalaries(s)); err != nil {
		l.mu.Lock()
		l.salaries = prev
		l.mu.Unlock()
		return fmt.Errorf("saving salaries: %w", err)
	}
	l.notify()
	return nil
}

func (l *Ledger) Salaries() core.Salaries {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.salaries
}

func newID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("ledger: reading random id bytes: %v", err))
	}
	return hex.EncodeToString(b)
}
