package http

import (
	"time"

	"tirelire/internal/core"
	"tirelire/internal/services"
)

// API views carry amounts in integer cents and dates as RFC 3339 strings.
// Optional dates are empty strings rather than zero timestamps.

type transactionView struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Category    string `json:"category"`
	AmountCents int64  `json:"amountCents"`
	Payer       string `json:"payer"`
}

func viewTransaction(t core.Transaction) transactionView {
	return transactionView{
		ID:          t.ID,
		Date:        t.Date.UTC().Format(time.RFC3339),
		Description: t.Description,
		Category:    string(t.Category),
		AmountCents: t.Amount.Cents,
		Payer:       string(t.Payer),
	}
}

func viewTransactions(ts []core.Transaction) []transactionView {
	out := make([]transactionView, 0, len(ts))
	for _, t := range ts {
		out = append(out, viewTransaction(t))
	}
	return out
}

type recurringView struct {
	ID                string `json:"id"`
	Description       string `json:"description"`
	AmountCents       int64  `json:"amountCents"`
	Category          string `json:"category"`
	Payer             string `json:"payer"`
	Frequency         string `json:"frequency"`
	StartDate         string `json:"startDate"`
	NextDueDate       string `json:"nextDueDate"`
	IsActive          bool   `json:"isActive"`
	EndDate           string `json:"endDate,omitempty"`
	LastProcessedDate string `json:"lastProcessedDate,omitempty"`
	AutoGenerate      bool   `json:"autoGenerate"`
	MonthlyCostCents  int64  `json:"monthlyCostCents"`
	AnnualCostCents   int64  `json:"annualCostCents"`
}

func viewRecurring(re core.RecurringExpense) recurringView {
	v := recurringView{
		ID:               re.ID,
		Description:      re.Description,
		AmountCents:      re.Amount.Cents,
		Category:         string(re.Category),
		Payer:            string(re.Payer),
		Frequency:        string(re.Frequency),
		StartDate:        re.StartDate.UTC().Format(time.RFC3339),
		NextDueDate:      re.NextDueDate.UTC().Format(time.RFC3339),
		IsActive:         re.IsActive,
		AutoGenerate:     re.AutoGenerate,
		MonthlyCostCents: re.MonthlyCost().Cents,
		AnnualCostCents:  re.AnnualCost().Cents,
	}
	if !re.EndDate.IsZero() {
		v.EndDate = re.EndDate.UTC().Format(time.RFC3339)
	}
	if !re.LastProcessedDate.IsZero() {
		v.LastProcessedDate = re.LastProcessedDate.UTC().Format(time.RFC3339)
	}
	return v
}

func viewRecurrings(res []core.RecurringExpense) []recurringView {
	out := make([]recurringView, 0, len(res))
	for _, re := range res {
		out = append(out, viewRecurring(re))
	}
	return out
}

type goalView struct {
	ID                       string `json:"id"`
	Name                     string `json:"name"`
	Description              string `json:"description,omitempty"`
	TargetAmountCents        int64  `json:"targetAmountCents"`
	CurrentAmountCents       int64  `json:"currentAmountCents"`
	StartDate                string `json:"startDate"`
	TargetDate               string `json:"targetDate"`
	Category                 string `json:"category"`
	Priority                 string `json:"priority"`
	IsActive                 bool   `json:"isActive"`
	MonthlyContributionCents int64  `json:"monthlyContributionCents"`
}

func viewGoal(g core.SavingsGoal) goalView {
	return goalView{
		ID:                       g.ID,
		Name:                     g.Name,
		Description:              g.Description,
		TargetAmountCents:        g.TargetAmount.Cents,
		CurrentAmountCents:       g.CurrentAmount.Cents,
		StartDate:                g.StartDate.UTC().Format(time.RFC3339),
		TargetDate:               g.TargetDate.UTC().Format(time.RFC3339),
		Category:                 string(g.Category),
		Priority:                 string(g.Priority),
		IsActive:                 g.IsActive,
		MonthlyContributionCents: g.MonthlyContribution.Cents,
	}
}

type contributionView struct {
	ID          string `json:"id"`
	GoalID      string `json:"goalId"`
	AmountCents int64  `json:"amountCents"`
	Date        string `json:"date"`
	Note        string `json:"note,omitempty"`
}

func viewContribution(c core.SavingsContribution) contributionView {
	return contributionView{
		ID:          c.ID,
		GoalID:      c.GoalID,
		AmountCents: c.Amount.Cents,
		Date:        c.Date.UTC().Format(time.RFC3339),
		Note:        c.Note,
	}
}

func viewContributions(cs []core.SavingsContribution) []contributionView {
	out := make([]contributionView, 0, len(cs))
	for _, c := range cs {
		out = append(out, viewContribution(c))
	}
	return out
}

type goalOverviewView struct {
	Goal                 goalView           `json:"goal"`
	Status               string             `json:"status"`
	Progress             float64            `json:"progress"`
	RemainingCents       int64              `json:"remainingCents"`
	RequiredMonthlyCents int64              `json:"requiredMonthlyCents"`
	MonthsRemaining      int                `json:"monthsRemaining"`
	ProjectedCompletion  string             `json:"projectedCompletion,omitempty"`
	Contributions        []contributionView `json:"contributions,omitempty"`
}

func viewGoalOverview(ov services.GoalOverview) goalOverviewView {
	v := goalOverviewView{
		Goal:                 viewGoal(ov.Goal),
		Status:               string(ov.Status),
		Progress:             ov.Progress,
		RemainingCents:       ov.Remaining.Cents,
		RequiredMonthlyCents: ov.RequiredMonthly.Cents,
		MonthsRemaining:      ov.MonthsRemaining,
	}
	if ov.HasProjection {
		v.ProjectedCompletion = ov.ProjectedCompletion.UTC().Format(time.RFC3339)
	}
	if ov.Contributions != nil {
		v.Contributions = viewContributions(ov.Contributions)
	}
	return v
}

type categoryProgressView struct {
	Category   string  `json:"category"`
	Label      string  `json:"label"`
	Color      string  `json:"color"`
	SpentCents int64   `json:"spentCents"`
	CapCents   int64   `json:"capCents"`
	Ratio      float64 `json:"ratio"`
	OverCents  int64   `json:"overCents"`
}

type monthOverviewView struct {
	Year                  int                    `json:"year"`
	Month                 int                    `json:"month"`
	SpendingByCategory    map[string]int64       `json:"spendingByCategory"`
	TotalSpendingCents    int64                  `json:"totalSpendingCents"`
	Progress              []categoryProgressView `json:"progress"`
	RecurringMonthlyCents int64                  `json:"recurringMonthlyCents"`
	GoalContributionCents int64                  `json:"goalContributionCents"`
	IncomeCents           int64                  `json:"incomeCents"`
	DisposableCents       int64                  `json:"disposableCents"`
}

func viewMonthOverview(ov services.MonthOverview) monthOverviewView {
	v := monthOverviewView{
		Year:                  ov.Year,
		Month:                 int(ov.Month),
		SpendingByCategory:    make(map[string]int64, len(ov.SpendingByCategory)),
		TotalSpendingCents:    ov.TotalSpending.Cents,
		Progress:              make([]categoryProgressView, 0, len(ov.Progress)),
		RecurringMonthlyCents: ov.RecurringMonthly.Cents,
		GoalContributionCents: ov.GoalContributions.Cents,
		IncomeCents:           ov.Income.Cents,
		DisposableCents:       ov.Disposable.Cents,
	}
	for cat, spent := range ov.SpendingByCategory {
		v.SpendingByCategory[string(cat)] = spent.Cents
	}
	for _, p := range ov.Progress {
		v.Progress = append(v.Progress, categoryProgressView{
			Category:   string(p.Category),
			Label:      p.Label,
			Color:      p.Color,
			SpentCents: p.Spent.Cents,
			CapCents:   p.Cap.Cents,
			Ratio:      p.Ratio,
			OverCents:  p.Over.Cents,
		})
	}
	return v
}

type budgetsView struct {
	Caps      map[string]int64 `json:"caps"`
	UpdatedAt string           `json:"updatedAt,omitempty"`
}

func viewBudgets(b core.Budgets) budgetsView {
	v := budgetsView{Caps: make(map[string]int64, len(b.Caps))}
	for cat, amount := range b.Caps {
		v.Caps[string(cat)] = amount.Cents
	}
	if !b.UpdatedAt.IsZero() {
		v.UpdatedAt = b.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return v
}

type salariesView struct {
	Partner1Cents int64  `json:"partner1Cents"`
	Partner2Cents int64  `json:"partner2Cents"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
}

func viewSalaries(s core.Salaries) salariesView {
	v := salariesView{
		Partner1Cents: s.Partner1.Cents,
		Partner2Cents: s.Partner2.Cents,
	}
	if !s.UpdatedAt.IsZero() {
		v.UpdatedAt = s.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return v
}
