package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/okrboard/internal/dataaccess"
	"github.com/aryan0dhankhar/okrboard/internal/report"
	"github.com/aryan0dhankhar/okrboard/internal/session"
)

// ReportHandler serves the dashboard and the admin reports.
type ReportHandler struct {
	aggregator *report.Aggregator
	logger     *slog.Logger
}

func NewReportHandler(aggregator *report.Aggregator, logger *slog.Logger) *ReportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportHandler{aggregator: aggregator, logger: logger}
}

// Dashboard handles GET /api/dashboard
func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	scope := dataaccess.ScopeFor(session.StateFromContext(r.Context()))
	d, ok, err := h.aggregator.Dashboard(r.Context(), scope)
	respondFetched(w, r, h.logger, d, ok, err)
}

// Reports handles GET /api/reports
func (h *ReportHandler) Reports(w http.ResponseWriter, r *http.Request) {
	scope := dataaccess.ScopeFor(session.StateFromContext(r.Context()))
	rep, ok, err := h.aggregator.Reports(r.Context(), scope)
	respondFetched(w, r, h.logger, rep, ok, err)
}
