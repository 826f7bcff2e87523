package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tirelire/internal/ledger"
	applog "tirelire/internal/log"
	"tirelire/internal/records/memory"
	"tirelire/internal/services"
)

func newTestServer(t *testing.T) (*Server, *ledger.Ledger, *memory.Store) {
	t.Helper()
	store := memory.New()
	logger := applog.New(applog.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	l := ledger.New(store, logger)
	proc := services.NewRecurringProcessor(l, logger)
	srv := NewServer(":0", l, proc, logger)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv, l, store
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doJSON(t, srv, http.MethodGet, path, "")
		if rr.Code != 200 {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rr := doJSON(t, srv, http.MethodGet, "/transactions", "")
	if rr.Code != 200 {
		t.Fatalf("status=%d", rr.Code)
	}
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options=%q", got)
	}
	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("X-Frame-Options=%q", got)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/transactions",
		`{"date":"2025-03-12","description":"Courses","category":"alimentation","amount":"42,00","payer":"joint"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created transactionView
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create: %v", err)
	}
	if created.ID == "" || created.AmountCents != 4200 {
		t.Fatalf("unexpected create response: %+v", created)
	}

	rr = doJSON(t, srv, http.MethodGet, "/transactions", "")
	if rr.Code != 200 {
		t.Fatalf("list status=%d", rr.Code)
	}
	var list []transactionView
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(list))
	}

	rr = doJSON(t, srv, http.MethodPut, "/transactions/"+created.ID,
		`{"date":"2025-03-12","description":"Courses bio","category":"alimentation","amount":"50.00","payer":"partner1"}`)
	if rr.Code != 200 {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/transactions/"+created.ID, "")
	if rr.Code != 200 {
		t.Fatalf("get status=%d", rr.Code)
	}
	var got transactionView
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode get: %v", err)
	}
	if got.AmountCents != 5000 || got.Payer != "partner1" {
		t.Fatalf("update not applied: %+v", got)
	}

	rr = doJSON(t, srv, http.MethodDelete, "/transactions/"+created.ID, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodGet, "/transactions/"+created.ID, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rr.Code)
	}
}

func TestTransactionValidationErrors(t *testing.T) {
	srv, _, _ := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"bad amount", `{"date":"2025-03-12","description":"x","category":"alimentation","amount":"abc","payer":"joint"}`},
		{"bad category", `{"date":"2025-03-12","description":"x","category":"nourriture","amount":"10.00","payer":"joint"}`},
		{"bad date", `{"date":"12/03/2025","description":"x","category":"alimentation","amount":"10.00","payer":"joint"}`},
		{"empty description", `{"date":"2025-03-12","description":"","category":"alimentation","amount":"10.00","payer":"joint"}`},
		{"unknown field", `{"date":"2025-03-12","description":"x","category":"alimentation","amount":"10.00","payer":"joint","extra":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, srv, http.MethodPost, "/transactions", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestTransactionMonthFilter(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, body := range []string{
		`{"date":"2025-03-12","description":"mars","category":"alimentation","amount":"10.00","payer":"joint"}`,
		`{"date":"2025-04-02","description":"avril","category":"alimentation","amount":"20.00","payer":"joint"}`,
	} {
		if rr := doJSON(t, srv, http.MethodPost, "/transactions", body); rr.Code != http.StatusCreated {
			t.Fatalf("seed status=%d", rr.Code)
		}
	}

	rr := doJSON(t, srv, http.MethodGet, "/transactions?year=2025&month=3", "")
	var list []transactionView
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].Description != "mars" {
		t.Fatalf("month filter returned %+v", list)
	}

	rr = doJSON(t, srv, http.MethodGet, "/transactions?month=13", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for month=13, got %d", rr.Code)
	}
}

func TestRecurringLifecycleAndProcess(t *testing.T) {
	srv, l, _ := newTestServer(t)

	past := time.Now().UTC().AddDate(0, -2, 0).Format("2006-01-02")
	rr := doJSON(t, srv, http.MethodPost, "/recurring",
		`{"description":"Loyer","amount":"950.00","category":"logement","payer":"joint","frequency":"monthly","startDate":"`+past+`"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created recurringView
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.MonthlyCostCents != 95000 {
		t.Fatalf("monthly cost = %d", created.MonthlyCostCents)
	}

	rr = doJSON(t, srv, http.MethodPost, "/recurring/"+created.ID+"/process", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("process status=%d body=%s", rr.Code, rr.Body.String())
	}
	var tx transactionView
	if err := json.Unmarshal(rr.Body.Bytes(), &tx); err != nil {
		t.Fatalf("decode tx: %v", err)
	}
	if tx.AmountCents != 95000 || !strings.Contains(tx.Description, "Loyer") {
		t.Fatalf("generated transaction %+v", tx)
	}
	if len(l.Transactions()) != 1 {
		t.Fatalf("expected committed transaction in ledger")
	}

	// No longer due
	rr = doJSON(t, srv, http.MethodPost, "/recurring/"+created.ID+"/process", "")
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 when not due, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPut, "/recurring/"+created.ID,
		`{"description":"Loyer","amount":"980.00","category":"logement","payer":"joint","frequency":"monthly","isActive":false}`)
	if rr.Code != 200 {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	var updated recurringView
	if err := json.Unmarshal(rr.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.AmountCents != 98000 || updated.IsActive {
		t.Fatalf("update not applied: %+v", updated)
	}

	rr = doJSON(t, srv, http.MethodDelete, "/recurring/"+created.ID, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
}

func TestGoalLifecycleWithContributions(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/goals",
		`{"name":"Vacances","targetAmount":"1200.00","startDate":"2025-01-01","targetDate":"2025-11-01","category":"vacances","priority":"medium","monthlyContribution":"100.00"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	var goal goalView
	if err := json.Unmarshal(rr.Body.Bytes(), &goal); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rr = doJSON(t, srv, http.MethodPost, "/goals/"+goal.ID+"/contributions",
		`{"amount":"200.00","date":"2025-02-01","note":"prime"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("contribute status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/goals/"+goal.ID, "")
	if rr.Code != 200 {
		t.Fatalf("overview status=%d", rr.Code)
	}
	var ov goalOverviewView
	if err := json.Unmarshal(rr.Body.Bytes(), &ov); err != nil {
		t.Fatalf("decode overview: %v", err)
	}
	if ov.Goal.CurrentAmountCents != 20000 {
		t.Fatalf("contribution not reflected: %+v", ov.Goal)
	}
	if len(ov.Contributions) != 1 || ov.Contributions[0].Note != "prime" {
		t.Fatalf("contributions missing: %+v", ov.Contributions)
	}

	rr = doJSON(t, srv, http.MethodGet, "/goals", "")
	var all []goalOverviewView
	if err := json.Unmarshal(rr.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(all) != 1 || len(all[0].Contributions) != 0 {
		t.Fatalf("list should omit contributions: %+v", all)
	}

	rr = doJSON(t, srv, http.MethodDelete, "/goals/"+goal.ID, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodGet, "/goals/"+goal.ID+"/contributions", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after cascade delete, got %d", rr.Code)
	}
}

func TestContributionUnknownGoal(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rr := doJSON(t, srv, http.MethodPost, "/goals/nope/contributions", `{"amount":"10.00"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestBudgetsAndSalariesUpsert(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPut, "/budgets",
		`{"caps":{"alimentation":"500.00","loisirs":"150,50"}}`)
	if rr.Code != 200 {
		t.Fatalf("budgets status=%d body=%s", rr.Code, rr.Body.String())
	}
	var b budgetsView
	if err := json.Unmarshal(rr.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.Caps["alimentation"] != 50000 || b.Caps["loisirs"] != 15050 {
		t.Fatalf("caps not applied: %+v", b.Caps)
	}
	if b.UpdatedAt == "" {
		t.Fatal("expected updatedAt stamp")
	}

	rr = doJSON(t, srv, http.MethodPut, "/budgets", `{"caps":{"voiture":"100.00"}}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown category, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPut, "/salaries", `{"partner1":"2400.00","partner2":"2100.00"}`)
	if rr.Code != 200 {
		t.Fatalf("salaries status=%d body=%s", rr.Code, rr.Body.String())
	}
	var sal salariesView
	if err := json.Unmarshal(rr.Body.Bytes(), &sal); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sal.Partner1Cents != 240000 || sal.Partner2Cents != 210000 {
		t.Fatalf("salaries not applied: %+v", sal)
	}
}

func TestSalariesAcceptZero(t *testing.T) {
	srv, _, _ := newTestServer(t)

	// Single income: the other partner records zero.
	rr := doJSON(t, srv, http.MethodPut, "/salaries", `{"partner1":"2400.00","partner2":"0"}`)
	if rr.Code != 200 {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var sal salariesView
	if err := json.Unmarshal(rr.Body.Bytes(), &sal); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sal.Partner1Cents != 240000 || sal.Partner2Cents != 0 {
		t.Fatalf("salaries not applied: %+v", sal)
	}

	rr = doJSON(t, srv, http.MethodPut, "/salaries", `{"partner1":"0,00","partner2":"1800.00"}`)
	if rr.Code != 200 {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPut, "/salaries", `{"partner1":"","partner2":"1800.00"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty salary, got %d", rr.Code)
	}
}

func TestDashboardOverview(t *testing.T) {
	srv, _, _ := newTestServer(t)

	seed := []string{
		`{"date":"2025-03-12","description":"Courses","category":"alimentation","amount":"250.00","payer":"joint"}`,
		`{"date":"2025-03-20","description":"Cinema","category":"loisirs","amount":"30.00","payer":"partner2"}`,
	}
	for _, body := range seed {
		if rr := doJSON(t, srv, http.MethodPost, "/transactions", body); rr.Code != http.StatusCreated {
			t.Fatalf("seed status=%d", rr.Code)
		}
	}
	if rr := doJSON(t, srv, http.MethodPut, "/salaries", `{"partner1":"2000.00","partner2":"2000.00"}`); rr.Code != 200 {
		t.Fatalf("salaries status=%d", rr.Code)
	}

	rr := doJSON(t, srv, http.MethodGet, "/dashboard?year=2025&month=3", "")
	if rr.Code != 200 {
		t.Fatalf("dashboard status=%d body=%s", rr.Code, rr.Body.String())
	}
	var ov monthOverviewView
	if err := json.Unmarshal(rr.Body.Bytes(), &ov); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ov.TotalSpendingCents != 28000 {
		t.Fatalf("total spending = %d", ov.TotalSpendingCents)
	}
	if ov.IncomeCents != 400000 {
		t.Fatalf("income = %d", ov.IncomeCents)
	}
	if ov.SpendingByCategory["alimentation"] != 25000 {
		t.Fatalf("category spending %+v", ov.SpendingByCategory)
	}
}

func TestExportDownload(t *testing.T) {
	srv, _, _ := newTestServer(t)

	if rr := doJSON(t, srv, http.MethodPost, "/transactions",
		`{"date":"2025-03-12","description":"Courses","category":"alimentation","amount":"42.00","payer":"joint"}`); rr.Code != http.StatusCreated {
		t.Fatalf("seed status=%d", rr.Code)
	}

	rr := doJSON(t, srv, http.MethodGet, "/export", "")
	if rr.Code != 200 {
		t.Fatalf("export status=%d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "tirelire-export.json") {
		t.Fatalf("missing attachment header: %q", rr.Header().Get("Content-Disposition"))
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	for _, key := range []string{"transactions", "recurringExpenses", "savingsGoals", "savingsContributions", "exportedAt"} {
		if _, ok := doc[key]; !ok {
			t.Fatalf("export missing %q", key)
		}
	}
	if bytes.Contains(rr.Body.Bytes(), []byte("null")) {
		t.Fatalf("export contains null collections: %s", rr.Body.String())
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var got429 bool
	for i := 0; i < 70; i++ {
		rr := doJSON(t, srv, http.MethodPost, "/transactions",
			`{"date":"2025-03-12","description":"x","category":"alimentation","amount":"1.00","payer":"joint"}`)
		if rr.Code == http.StatusTooManyRequests {
			got429 = true
			break
		}
	}
	if !got429 {
		t.Fatal("expected rate limit to trip within 70 requests")
	}

	// GET traffic is unaffected
	rr := doJSON(t, srv, http.MethodGet, "/transactions", "")
	if rr.Code != 200 {
		t.Fatalf("GET status=%d", rr.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rr := doJSON(t, srv, http.MethodDelete, "/dashboard", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
	if rr.Header().Get("Allow") != "GET" {
		t.Fatalf("Allow=%q", rr.Header().Get("Allow"))
	}
}
