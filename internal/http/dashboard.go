package http

import (
	"net/http"
	"time"

	applog "tirelire/internal/log"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	now := time.Now().UTC()
	year, month, err := monthQuery(r, now)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, viewMonthOverview(s.aggregator.Overview(year, month, now)))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	data, err := s.export.JSON(time.Now().UTC())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Export failed",
			applog.FieldOperation, applog.OpExport,
			applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="tirelire-export.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
