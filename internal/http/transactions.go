package http

import (
	"net/http"
	"time"

	"tirelire/internal/core"
	applog "tirelire/internal/log"
)

type transactionRequest struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Payer       string `json:"payer"`
}

func (req transactionRequest) toTransaction(id string) (core.Transaction, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:          id,
		Date:        date,
		Description: req.Description,
		Category:    core.Category(req.Category),
		Amount:      amount,
		Payer:       core.Payer(req.Payer),
	}, nil
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listTransactions(w, r)
	case http.MethodPost:
		s.createTransaction(w, r)
	default:
		methodNotAllowed(w, "GET", "POST")
	}
}

// listTransactions returns every transaction, or one month's worth when
// year or month query parameters are present.
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	items := s.ledger.Transactions()

	q := r.URL.Query()
	if q.Get("year") != "" || q.Get("month") != "" {
		year, month, err := monthQuery(r, time.Now())
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		filtered := items[:0]
		for _, t := range items {
			if t.Date.Year() == year && t.Date.Month() == month {
				filtered = append(filtered, t)
			}
		}
		items = filtered
	}

	writeJSON(w, http.StatusOK, viewTransactions(items))
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	t, err := req.toTransaction("")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := s.ledger.AddTransaction(r.Context(), t)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Transaction create failed",
			applog.FieldOperation, applog.OpCreate,
			applog.FieldError, err)
		writeDomainError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Transaction created",
		applog.FieldRecordID, created.ID,
		applog.FieldAmountCents, created.Amount.Cents)
	writeJSON(w, http.StatusCreated, viewTransaction(created))
}

func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "/transactions/")
	if id == "" {
		writeError(w, http.StatusNotFound, errMissingID)
		return
	}

	switch r.Method {
	case http.MethodGet:
		t, ok := s.ledger.Transaction(id)
		if !ok {
			writeError(w, http.StatusNotFound, errUnknownRecord)
			return
		}
		writeJSON(w, http.StatusOK, viewTransaction(t))
	case http.MethodPut:
		s.updateTransaction(w, r, id)
	case http.MethodDelete:
		if err := s.ledger.DeleteTransaction(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "GET", "PUT", "DELETE")
	}
}

func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request, id string) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	t, err := req.toTransaction(id)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.ledger.UpdateTransaction(r.Context(), t); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewTransaction(t))
}
