package http

import (
	"net/http"
	"strings"
	"time"

	"tirelire/internal/core"
	applog "tirelire/internal/log"
)

type goalRequest struct {
	Name                string `json:"name"`
	Description         string `json:"description"`
	TargetAmount        string `json:"targetAmount"`
	StartDate           string `json:"startDate"`
	TargetDate          string `json:"targetDate"`
	Category            string `json:"category"`
	Priority            string `json:"priority"`
	IsActive            *bool  `json:"isActive"`
	MonthlyContribution string `json:"monthlyContribution"`
}

type contributionRequest struct {
	Amount string `json:"amount"`
	Date   string `json:"date"`
	Note   string `json:"note"`
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		overviews := s.goals.Overviews(time.Now())
		out := make([]goalOverviewView, 0, len(overviews))
		for _, ov := range overviews {
			out = append(out, viewGoalOverview(ov))
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		s.createGoal(w, r)
	default:
		methodNotAllowed(w, "GET", "POST")
	}
}

func (req goalRequest) toGoal(id string, existing core.SavingsGoal) (core.SavingsGoal, error) {
	target, err := parseAmount(req.TargetAmount)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	targetDate, err := parseDate(req.TargetDate)
	if err != nil {
		return core.SavingsGoal{}, err
	}

	g := existing
	g.ID = id
	g.Name = req.Name
	g.Description = req.Description
	g.TargetAmount = target
	g.TargetDate = targetDate
	g.Category = core.Category(req.Category)
	g.Priority = core.Priority(req.Priority)
	if !startDate.IsZero() {
		g.StartDate = startDate
	}
	if req.IsActive != nil {
		g.IsActive = *req.IsActive
	}
	if req.MonthlyContribution != "" {
		monthly, err := parseAmount(req.MonthlyContribution)
		if err != nil {
			return core.SavingsGoal{}, err
		}
		g.MonthlyContribution = monthly
	}
	return g, nil
}

func (s *Server) createGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	base := core.SavingsGoal{StartDate: time.Now().UTC(), IsActive: true}
	g, err := req.toGoal("", base)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := s.ledger.AddSavingsGoal(r.Context(), g)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Savings goal create failed",
			applog.FieldOperation, applog.OpCreate,
			applog.FieldError, err)
		writeDomainError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Savings goal created",
		applog.FieldGoalID, created.ID,
		applog.FieldAmountCents, created.TargetAmount.Cents)
	writeJSON(w, http.StatusCreated, viewGoal(created))
}

func (s *Server) handleGoalByID(w http.ResponseWriter, r *http.Request) {
	rest := pathID(r, "/goals/")
	if rest == "" {
		writeError(w, http.StatusNotFound, errMissingID)
		return
	}

	if id, ok := strings.CutSuffix(rest, "/contributions"); ok {
		s.handleContributions(w, r, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		ov, ok := s.goals.Overview(rest, time.Now())
		if !ok {
			writeError(w, http.StatusNotFound, errUnknownRecord)
			return
		}
		writeJSON(w, http.StatusOK, viewGoalOverview(ov))
	case http.MethodPut:
		s.updateGoal(w, r, rest)
	case http.MethodDelete:
		if err := s.ledger.DeleteSavingsGoal(r.Context(), rest); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "GET", "PUT", "DELETE")
	}
}

func (s *Server) updateGoal(w http.ResponseWriter, r *http.Request, id string) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	existing, ok := s.ledger.SavingsGoal(id)
	if !ok {
		writeError(w, http.StatusNotFound, errUnknownRecord)
		return
	}

	g, err := req.toGoal(id, existing)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.ledger.UpdateSavingsGoal(r.Context(), g); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewGoal(g))
}

func (s *Server) handleContributions(w http.ResponseWriter, r *http.Request, goalID string) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := s.ledger.SavingsGoal(goalID); !ok {
			writeError(w, http.StatusNotFound, errUnknownRecord)
			return
		}
		writeJSON(w, http.StatusOK, viewContributions(s.ledger.Contributions(goalID)))
	case http.MethodPost:
		s.createContribution(w, r, goalID)
	default:
		methodNotAllowed(w, "GET", "POST")
	}
}

func (s *Server) createContribution(w http.ResponseWriter, r *http.Request, goalID string) {
	var req contributionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	c := core.SavingsContribution{
		GoalID: goalID,
		Amount: amount,
		Date:   date,
		Note:   req.Note,
	}

	created, err := s.ledger.AddContribution(r.Context(), c)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Contribution create failed",
			applog.FieldGoalID, goalID,
			applog.FieldError, err)
		writeDomainError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Contribution recorded",
		applog.FieldGoalID, goalID,
		applog.FieldAmountCents, created.Amount.Cents)
	writeJSON(w, http.StatusCreated, viewContribution(created))
}
