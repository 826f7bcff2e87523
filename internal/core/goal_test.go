package core

import (
	"testing"
	"time"
)

func sampleGoal() SavingsGoal {
	return SavingsGoal{
		ID:                  "goal-1",
		Name:                "Vacances été",
		TargetAmount:        Money{Cents: 120000},
		CurrentAmount:       Money{Cents: 20000},
		StartDate:           time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		TargetDate:          time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
		Category:            CategoryVacances,
		Priority:            PriorityMedium,
		IsActive:            true,
		MonthlyContribution: Money{Cents: 10000},
	}
}

func TestGoalProgressPercentageClamped(t *testing.T) {
	tests := []struct {
		name    string
		current int64
		want    float64
	}{
		{"empty", 0, 0},
		{"partial", 60000, 0.5},
		{"complete", 120000, 1},
		{"overshoot clamps to 1", 150000, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := sampleGoal()
			g.CurrentAmount = Money{Cents: tt.current}
			if got := g.ProgressPercentage(); got != tt.want {
				t.Errorf("ProgressPercentage() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGoalRemainingAmountFloored(t *testing.T) {
	g := sampleGoal()
	if got := g.RemainingAmount(); got.Cents != 100000 {
		t.Errorf("RemainingAmount() = %d, want 100000", got.Cents)
	}
	g.CurrentAmount = Money{Cents: 150000}
	if got := g.RemainingAmount(); got.Cents != 0 {
		t.Errorf("overshoot RemainingAmount() = %d, want 0", got.Cents)
	}
}

func TestGoalRequiredMonthlyContribution(t *testing.T) {
	g := sampleGoal()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	// 100000 remaining over 10 whole months.
	if got := g.RequiredMonthlyContribution(now); got.Cents != 10000 {
		t.Errorf("RequiredMonthlyContribution() = %d, want 10000", got.Cents)
	}
	// Past the deadline the whole remainder is required.
	late := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	if got := g.RequiredMonthlyContribution(late); got.Cents != 100000 {
		t.Errorf("past-deadline RequiredMonthlyContribution() = %d, want 100000", got.Cents)
	}
}

func TestGoalStatusPrecedence(t *testing.T) {
	early := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		mutate func(*SavingsGoal)
		now    time.Time
		want   GoalStatus
	}{
		{"on track", nil, early, StatusOnTrack},
		{"behind schedule", func(g *SavingsGoal) { g.MonthlyContribution = Money{Cents: 1000} }, early, StatusBehindSchedule},
		{"falls behind as the deadline nears", nil, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), StatusBehindSchedule},
		{"completed", func(g *SavingsGoal) { g.CurrentAmount = Money{Cents: 120000} }, early, StatusCompleted},
		{"expired", nil, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), StatusExpired},
		{
			// Completion strictly precedes expiry.
			"completed past deadline is completed, never expired",
			func(g *SavingsGoal) { g.CurrentAmount = Money{Cents: 130000} },
			time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			StatusCompleted,
		},
		{
			"completed on exact deadline",
			func(g *SavingsGoal) { g.CurrentAmount = g.TargetAmount },
			time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
			StatusCompleted,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := sampleGoal()
			if tt.mutate != nil {
				tt.mutate(&g)
			}
			if got := g.Status(tt.now); got != tt.want {
				t.Errorf("Status() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGoalContributionScenario(t *testing.T) {
	// targetAmount=1200, currentAmount=200, monthlyContribution=100,
	// targetDate 10 months out: required pace is exactly 100 => onTrack.
	now := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	g := SavingsGoal{
		ID:                  "goal-2",
		Name:                "Projet",
		TargetAmount:        Money{Cents: 120000},
		CurrentAmount:       Money{Cents: 20000},
		StartDate:           now,
		TargetDate:          now.AddDate(0, 10, 0),
		Category:            CategoryEpargne,
		Priority:            PriorityHigh,
		IsActive:            true,
		MonthlyContribution: Money{Cents: 10000},
	}
	if got := g.RequiredMonthlyContribution(now); got.Cents != 10000 {
		t.Fatalf("RequiredMonthlyContribution() = %d, want 10000", got.Cents)
	}
	if got := g.Status(now); got != StatusOnTrack {
		t.Fatalf("Status() = %s, want onTrack", got)
	}

	// Posting 300 bumps current to 500; the required pace drops, so the
	// goal stays on track.
	g.CurrentAmount = g.CurrentAmount.Add(Money{Cents: 30000})
	if g.CurrentAmount.Cents != 50000 {
		t.Fatalf("CurrentAmount = %d, want 50000", g.CurrentAmount.Cents)
	}
	if required := g.RequiredMonthlyContribution(now); required.Cents > 10000 {
		t.Fatalf("required pace rose after a contribution: %d", required.Cents)
	}
	if got := g.Status(now); got != StatusOnTrack {
		t.Fatalf("Status() after contribution = %s, want onTrack", got)
	}
}

func TestGoalProjectedCompletionDate(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	g := sampleGoal() // 100000 remaining at 10000/month => 10 months
	got, ok := g.ProjectedCompletionDate(now)
	if !ok {
		t.Fatal("expected a projection")
	}
	want := now.AddDate(0, 10, 0)
	if !got.Equal(want) {
		t.Errorf("ProjectedCompletionDate() = %s, want %s", got.Format("2006-01-02"), want.Format("2006-01-02"))
	}

	g.MonthlyContribution = Money{}
	if _, ok := g.ProjectedCompletionDate(now); ok {
		t.Error("expected no projection without a monthly contribution")
	}

	g = sampleGoal()
	g.CurrentAmount = g.TargetAmount
	if _, ok := g.ProjectedCompletionDate(now); ok {
		t.Error("expected no projection for a completed goal")
	}
}

func TestMonthsBetween(t *testing.T) {
	a := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		b    time.Time
		want int
	}{
		{"same instant", a, 0},
		{"earlier", a.AddDate(0, -1, 0), 0},
		{"ten months", a.AddDate(0, 10, 0), 10},
		{"partial month rounds down", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := monthsBetween(a, tt.b); got != tt.want {
				t.Errorf("monthsBetween() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGoalValidate(t *testing.T) {
	if err := sampleGoal().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []func(*SavingsGoal){
		func(g *SavingsGoal) { g.Name = "  " },
		func(g *SavingsGoal) { g.TargetAmount = Money{} },
		func(g *SavingsGoal) { g.CurrentAmount = Money{Cents: -1} },
		func(g *SavingsGoal) { g.MonthlyContribution = Money{Cents: -1} },
		func(g *SavingsGoal) { g.TargetDate = g.StartDate.AddDate(0, 0, -1) },
		func(g *SavingsGoal) { g.Category = Category("x") },
		func(g *SavingsGoal) { g.Priority = Priority("urgent") },
	}
	for i, mutate := range bads {
		g := sampleGoal()
		mutate(&g)
		if err := g.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestContributionValidate(t *testing.T) {
	good := SavingsContribution{ID: "c1", GoalID: "goal-1", Amount: Money{Cents: 100}, Date: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []SavingsContribution{
		{GoalID: "", Amount: Money{Cents: 100}, Date: good.Date},
		{GoalID: "goal-1", Amount: Money{Cents: 0}, Date: good.Date},
		{GoalID: "goal-1", Amount: Money{Cents: 100}},
	}
	for i, c := range bads {
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}
