package services

import (
	"context"
	"time"

	"tirelire/internal/core"
	"tirelire/internal/ledger"
	"tirelire/internal/log"
)

// RecurringProcessor sweeps the recurring expenses and turns every due,
// auto-generating one into a transaction, rescheduling it in the same
// store write. Expenses with AutoGenerate off are reported as due but
// left for a manual trigger.
type RecurringProcessor struct {
	ledger *ledger.Ledger
	logger *log.Logger
}

func NewRecurringProcessor(l *ledger.Ledger, logger *log.Logger) *RecurringProcessor {
	return &RecurringProcessor{
		ledger: l,
		logger: logger.WithComponent(log.ComponentRecurring),
	}
}

// SweepResult summarizes one pass over the recurring expenses.
type SweepResult struct {
	Generated []core.Transaction
	DueManual []core.RecurringExpense
	Failed    int
}

// Sweep processes everything due at now. A failure on one expense is
// logged and counted, the sweep continues; the next pass retries it.
func (p *RecurringProcessor) Sweep(ctx context.Context, now time.Time) SweepResult {
	var result SweepResult
	for _, re := range p.ledger.RecurringExpenses() {
		if !re.IsDue(now) {
			continue
		}
		if !re.AutoGenerate {
			result.DueManual = append(result.DueManual, re)
			continue
		}
		tx, err := p.processOne(ctx, re, now)
		if err != nil {
			result.Failed++
			p.logger.Error("processing recurring expense failed",
				log.FieldRecordID, re.ID,
				log.FieldDescription, re.Description,
				log.FieldError, err.Error())
			continue
		}
		result.Generated = append(result.Generated, tx)
	}
	if len(result.Generated) > 0 || result.Failed > 0 {
		p.logger.Info("sweep finished",
			"generated", len(result.Generated),
			"due_manual", len(result.DueManual),
			"failed", result.Failed)
	}
	return result
}

// ProcessNow forces one expense through, regardless of AutoGenerate.
// Used by the manual trigger endpoint; the expense must still be due.
func (p *RecurringProcessor) ProcessNow(ctx context.Context, id string, now time.Time) (core.Transaction, error) {
	re, ok := p.ledger.RecurringExpense(id)
	if !ok {
		return core.Transaction{}, ledger.ErrNotFound
	}
	return p.processOne(ctx, re, now)
}

func (p *RecurringProcessor) processOne(ctx context.Context, re core.RecurringExpense, now time.Time) (core.Transaction, error) {
	tx, updated, err := re.Process(now)
	if err != nil {
		return core.Transaction{}, err
	}
	committed, err := p.ledger.CommitProcessed(ctx, tx, updated)
	if err != nil {
		return core.Transaction{}, err
	}
	p.logger.Info("recurring expense processed",
		log.FieldRecordID, re.ID,
		log.FieldDescription, re.Description,
		log.FieldAmountCents, tx.Amount.Cents,
		log.FieldDueDate, updated.NextDueDate.Format(time.RFC3339))
	return committed, nil
}

// Run sweeps immediately, then on every tick until the context ends.
// Mirrors the worker loop style of the sync consumer.
func (p *RecurringProcessor) Run(ctx context.Context, interval time.Duration) {
	p.logger.Info("recurring worker started", "interval", interval.String())
	p.Sweep(ctx, time.Now().UTC())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("recurring worker stopped")
			return
		case <-ticker.C:
			p.Sweep(ctx, time.Now().UTC())
		}
	}
}
