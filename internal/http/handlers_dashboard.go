package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"spendsense/internal/aggregate"
	"spendsense/internal/core"
	"spendsense/internal/log"
	"spendsense/internal/session"
)

func computeView(snap session.Snapshot) (core.MonthView, error) {
	return aggregate.Compute(snap.Ledger, snap.Month)
}

type overviewView struct {
	Month       string
	Months      []string
	FileName    string
	Total       string
	Count       int
	TopCategory string
	Undated     int
	Categories  []barRow
	Weekly      []barRow
	Yearly      []barRow
	Budget      *budgetView
	Reports     []reportView
}

// handleOverview renders the metrics and charts for the selected month.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	sess := s.sessionFor(w, r)
	snap, view, err := s.selectedView(sess, r.URL.Query())
	if err != nil {
		s.logViewError(r, sess.ID(), err)
		viewError(err).Write(w)
		return
	}

	data := overviewView{
		Month:       view.Month,
		Months:      snap.Months(),
		FileName:    snap.FileName,
		Total:       formatRupees(view.Total),
		Count:       view.Count,
		TopCategory: view.TopCategory,
		Undated:     snap.Ledger.Undated,
		Categories:  categoryBars(view.ByCategory),
		Weekly:      keyBars(view.ByWeek),
		Yearly:      keyBars(view.ByMonth),
	}
	if snap.Budget.IsPositive() {
		data.Budget = newBudgetView(aggregate.CompareBudget(view, snap.Budget))
	}
	if s.reports != nil {
		if recs, err := s.reports.List(r.Context(), sess.ID()); err == nil {
			data.Reports = reportViews(recs)
		} else {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Report list failed",
				log.FieldSessionID, sess.ID(), log.FieldError, err)
		}
	}

	NewHTMXResponse().TriggerMonthSelected(view.Month).Headers(w)
	s.render(w, r, "overview.html", data)
}

type insightView struct {
	Month      string
	Paragraphs []string
	Notice     string
}

// handleInsight renders the AI executive summary. It is loaded as its own
// partial so the charts never wait on the language model.
func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	sess := s.sessionFor(w, r)
	_, view, err := s.selectedView(sess, r.URL.Query())
	if err != nil {
		viewError(err).Write(w)
		return
	}

	data := insightView{Month: view.Month}
	text, err := s.generate(r.Context(), func(ctx context.Context) (string, error) {
		return s.insight.MonthlySummary(ctx, view)
	})
	if err != nil {
		data.Notice = insightNotice(err)
	} else {
		data.Paragraphs = paragraphs(text)
	}
	s.render(w, r, "insight.html", data)
}

type overviewJSON struct {
	Month            string                `json:"month"`
	TotalSpend       decimal.Decimal       `json:"total_spend"`
	TransactionCount int                   `json:"transaction_count"`
	TopCategory      string                `json:"top_category"`
	CategorySum      []core.CategoryAmount `json:"category_sum"`
	WeeklySum        []core.KeyAmount      `json:"weekly_sum"`
	YearlySum        []core.KeyAmount      `json:"yearly_sum"`
}

// handleOverviewJSON serves the aggregate view for scripts and tests.
func (s *Server) handleOverviewJSON(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	sess := s.sessionFor(w, r)
	_, view, err := s.selectedView(sess, r.URL.Query())
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, session.ErrNoLedger):
			status = http.StatusConflict
		case errors.Is(err, session.ErrUnknownMonth), errors.Is(err, errInvalidMonth):
			status = http.StatusBadRequest
		case core.IsNoData(err):
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, overviewJSON{
		Month:            view.Month,
		TotalSpend:       view.Total,
		TransactionCount: view.Count,
		TopCategory:      view.TopCategory,
		CategorySum:      view.ByCategory,
		WeeklySum:        view.ByWeek,
		YearlySum:        view.ByMonth,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// generate runs one insight call and keeps the counters.
func (s *Server) generate(ctx context.Context, call func(context.Context) (string, error)) (string, error) {
	atomic.AddInt64(&s.appMetrics.insightCalls, 1)
	text, err := call(ctx)
	if err != nil {
		atomic.AddInt64(&s.appMetrics.insightFailures, 1)
		log.FromContext(ctx).WarnContext(ctx, "Insight unavailable",
			log.FieldError, err,
			"error_type", log.ErrorTypeExternal)
	}
	return text, err
}

func insightNotice(err error) string {
	if core.IsExternal(err) {
		return "AI insight is unavailable right now. The figures above are unaffected."
	}
	return "AI insight failed."
}

// paragraphs splits generated text into its non-blank lines.
func paragraphs(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func (s *Server) logViewError(r *http.Request, sessionID string, err error) {
	logger := log.FromContext(r.Context())
	switch {
	case errors.Is(err, session.ErrNoLedger):
		return
	case core.IsNoData(err):
		logger.InfoContext(r.Context(), "No data for month",
			log.FieldSessionID, sessionID, log.FieldError, err,
			"error_type", log.ErrorTypeNoData)
	default:
		logger.WarnContext(r.Context(), "Dashboard view failed",
			log.FieldSessionID, sessionID, log.FieldError, err)
	}
}
