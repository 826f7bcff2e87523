package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"tirelire/internal/core"
	applog "tirelire/internal/log"
)

type recurringRequest struct {
	Description  string `json:"description"`
	Amount       string `json:"amount"`
	Category     string `json:"category"`
	Payer        string `json:"payer"`
	Frequency    string `json:"frequency"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
	AutoGenerate *bool  `json:"autoGenerate"`
	IsActive     *bool  `json:"isActive"`
}

func (s *Server) handleRecurring(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, viewRecurrings(s.ledger.RecurringExpenses()))
	case http.MethodPost:
		s.createRecurring(w, r)
	default:
		methodNotAllowed(w, "GET", "POST")
	}
}

func (s *Server) createRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	autoGenerate := true
	if req.AutoGenerate != nil {
		autoGenerate = *req.AutoGenerate
	}

	re, err := core.NewRecurringExpense("", req.Description, amount,
		core.Category(req.Category), core.Payer(req.Payer),
		core.Frequency(req.Frequency), startDate, autoGenerate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	re.EndDate = endDate

	created, err := s.ledger.AddRecurringExpense(r.Context(), re)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Recurring expense create failed",
			applog.FieldOperation, applog.OpCreate,
			applog.FieldError, err)
		writeDomainError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Recurring expense created",
		applog.FieldRecordID, created.ID,
		applog.FieldDueDate, created.NextDueDate.Format(time.RFC3339))
	writeJSON(w, http.StatusCreated, viewRecurring(created))
}

func (s *Server) handleRecurringByID(w http.ResponseWriter, r *http.Request) {
	rest := pathID(r, "/recurring/")
	if rest == "" {
		writeError(w, http.StatusNotFound, errMissingID)
		return
	}

	if id, ok := strings.CutSuffix(rest, "/process"); ok {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, "POST")
			return
		}
		s.processRecurring(w, r, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		re, ok := s.ledger.RecurringExpense(rest)
		if !ok {
			writeError(w, http.StatusNotFound, errUnknownRecord)
			return
		}
		writeJSON(w, http.StatusOK, viewRecurring(re))
	case http.MethodPut:
		s.updateRecurring(w, r, rest)
	case http.MethodDelete:
		if err := s.ledger.DeleteRecurringExpense(r.Context(), rest); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "GET", "PUT", "DELETE")
	}
}

// updateRecurring replaces user-editable fields. The schedule bookkeeping
// (next due date, last processed date) only moves through processing.
func (s *Server) updateRecurring(w http.ResponseWriter, r *http.Request, id string) {
	var req recurringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	re, ok := s.ledger.RecurringExpense(id)
	if !ok {
		writeError(w, http.StatusNotFound, errUnknownRecord)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	re.Description = req.Description
	re.Amount = amount
	re.Category = core.Category(req.Category)
	re.Payer = core.Payer(req.Payer)
	re.Frequency = core.Frequency(req.Frequency)
	if !startDate.IsZero() {
		re.StartDate = startDate
	}
	re.EndDate = endDate
	if req.AutoGenerate != nil {
		re.AutoGenerate = *req.AutoGenerate
	}
	if req.IsActive != nil {
		re.IsActive = *req.IsActive
	}

	if err := s.ledger.UpdateRecurringExpense(r.Context(), re); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewRecurring(re))
}

func (s *Server) processRecurring(w http.ResponseWriter, r *http.Request, id string) {
	tx, err := s.processor.ProcessNow(r.Context(), id, time.Now())
	if err != nil {
		if errors.Is(err, core.ErrNotDue) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewTransaction(tx))
}
