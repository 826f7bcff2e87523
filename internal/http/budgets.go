package http

import (
	"fmt"
	"net/http"
	"strings"

	"tirelire/internal/core"
	applog "tirelire/internal/log"
)

type budgetsRequest struct {
	Caps map[string]string `json:"caps"`
}

type salariesRequest struct {
	Partner1 string `json:"partner1"`
	Partner2 string `json:"partner2"`
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, viewBudgets(s.ledger.Budgets()))
	case http.MethodPut:
		s.setBudgets(w, r)
	default:
		methodNotAllowed(w, "GET", "PUT")
	}
}

// setBudgets replaces the monthly caps wholesale. Categories absent from
// the request lose their cap.
func (s *Server) setBudgets(w http.ResponseWriter, r *http.Request) {
	var req budgetsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	caps := make(map[core.Category]core.Money, len(req.Caps))
	for name, raw := range req.Caps {
		cat := core.Category(name)
		if !cat.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %q", core.ErrInvalidCategory, name))
			return
		}
		amount, err := parseAmount(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("cap for %q: %w", name, err))
			return
		}
		caps[cat] = amount
	}

	if err := s.ledger.SetBudgets(r.Context(), core.Budgets{Caps: caps}); err != nil {
		writeDomainError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Budgets updated", applog.FieldCount, len(caps))
	writeJSON(w, http.StatusOK, viewBudgets(s.ledger.Budgets()))
}

// parseSalaryAmount accepts zero on top of the usual positive amounts,
// so a single-income couple can record the other salary as "0".
func parseSalaryAmount(raw string) (core.Money, error) {
	if isZeroDecimal(raw) {
		return core.Money{}, nil
	}
	return parseAmount(raw)
}

func isZeroDecimal(raw string) bool {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return false
	}
	for _, r := range whole + frac {
		if r != '0' {
			return false
		}
	}
	return true
}

func (s *Server) handleSalaries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, viewSalaries(s.ledger.Salaries()))
	case http.MethodPut:
		s.setSalaries(w, r)
	default:
		methodNotAllowed(w, "GET", "PUT")
	}
}

func (s *Server) setSalaries(w http.ResponseWriter, r *http.Request) {
	var req salariesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	partner1, err := parseSalaryAmount(req.Partner1)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("partner1: %w", err))
		return
	}
	partner2, err := parseSalaryAmount(req.Partner2)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("partner2: %w", err))
		return
	}

	sal := core.Salaries{Partner1: partner1, Partner2: partner2}
	if err := s.ledger.SetSalaries(r.Context(), sal); err != nil {
		writeDomainError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Salaries updated")
	writeJSON(w, http.StatusOK, viewSalaries(s.ledger.Salaries()))
}
