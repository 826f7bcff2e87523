package google

import (
	"testing"
	"time"

	"tirelire/internal/records"
)

func TestColumnLetter(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{0, "A"},
		{1, "B"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{51, "AZ"},
		{52, "BA"},
	}
	for _, tt := range tests {
		if got := columnLetter(tt.index); got != tt.want {
			t.Errorf("columnLetter(%d) = %q, want %q", tt.index, got, tt.want)
		}
	}
}

func TestLayoutCoversEveryEntityType(t *testing.T) {
	types := []string{
		records.TypeTransaction,
		records.TypeRecurringExpense,
		records.TypeSavingsGoal,
		records.TypeSavingsContribution,
		records.TypeBudgets,
		records.TypeSalaires,
	}
	for _, et := range types {
		title, cols, err := layout(et)
		if err != nil {
			t.Errorf("layout(%q): %v", et, err)
			continue
		}
		if title == "" {
			t.Errorf("layout(%q): empty title", et)
		}
		if len(cols) == 0 || cols[0] != records.FieldID {
			t.Errorf("layout(%q): id must be the first column, got %v", et, cols)
		}
	}

	if _, _, err := layout("unknown"); err == nil {
		t.Error("expected error for unknown entity type")
	}
}

func TestCellValue(t *testing.T) {
	if got := cellValue(nil); got != "" {
		t.Errorf("cellValue(nil) = %v, want empty string", got)
	}
	when := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	if got := cellValue(when); got != "2025-03-01T10:00:00Z" {
		t.Errorf("cellValue(time) = %v, want RFC 3339 string", got)
	}
	if got := cellValue(42.5); got != 42.5 {
		t.Errorf("cellValue(42.5) = %v, want the number unchanged", got)
	}
}
