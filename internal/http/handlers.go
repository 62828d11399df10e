package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"spendsense/internal/core"
	"spendsense/internal/log"
	"spendsense/internal/session"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(health)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["report_index"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["report_index"] = "ok"
		}
	}

	if s.insight.Enabled() {
		checks["insight"] = "configured"
	} else {
		checks["insight"] = "disabled"
	}

	checks["sessions"] = map[string]interface{}{
		"active": s.sessions.Len(),
		"status": "ok",
	}
	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	response := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}

	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(response)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	m := s.appMetrics

	w.WriteHeader(http.StatusOK)

	counter := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s counter\n", name)
		fmt.Fprintf(w, "%s %d\n\n", name, v)
	}
	gauge := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s gauge\n", name)
		fmt.Fprintf(w, "%s %d\n\n", name, v)
	}

	counter("http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests)
	counter("http_server_errors_total", "Total number of 5xx responses", traceMetrics.ServerErrors)
	gauge("http_response_time_avg_microseconds", "Average response time", traceMetrics.AverageResponseTime)
	counter("ledgers_loaded_total", "Ledgers uploaded and loaded", atomic.LoadInt64(&m.ledgersLoaded))
	counter("ledger_load_failures_total", "Uploads rejected by the loader", atomic.LoadInt64(&m.loadFailures))
	counter("reports_exported_total", "Reports exported", atomic.LoadInt64(&m.reportsExported))
	counter("insight_requests_total", "Calls to the insight service", atomic.LoadInt64(&m.insightCalls))
	counter("insight_failures_total", "Failed calls to the insight service", atomic.LoadInt64(&m.insightFailures))
	counter("chat_messages_total", "Chat questions received", atomic.LoadInt64(&m.chatMessages))
	gauge("active_sessions", "Live dashboard sessions", int64(s.sessions.Len()))
	counter("rate_limit_hits_total", "Total rate limit hits", rateLimitMetrics.TotalHits)
	counter("suspicious_requests_total", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	gauge("active_rate_limit_clients", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(m.uptime).Seconds())
}

type indexView struct {
	Loaded         bool
	FileName       string
	Months         []string
	Month          string
	Undated        int
	Chat           chatView
	Budget         string
	Plan           planForm
	InsightEnabled bool
	MaxUploadMB    int64
	Categories     []string
}

type planForm struct {
	Salaries, Assets, Marketing, Other string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	snap := s.sessionFor(w, r).Snapshot()
	data := indexView{
		Loaded:         snap.Loaded(),
		FileName:       snap.FileName,
		Months:         snap.Months(),
		Month:          snap.Month,
		Chat:           chatView{Messages: snap.Chat},
		InsightEnabled: s.insight.Enabled(),
		MaxUploadMB:    s.maxUpload >> 20,
		Categories:     s.ledgers.Categories(),
	}
	if snap.Loaded() {
		data.Undated = snap.Ledger.Undated
	}
	if snap.Budget.IsPositive() {
		data.Budget = snap.Budget.String()
	}
	if !snap.Plan.IsZero() {
		data.Plan = planForm{
			Salaries:  snap.Plan.Salaries.String(),
			Assets:    snap.Plan.Assets.String(),
			Marketing: snap.Plan.Marketing.String(),
			Other:     snap.Plan.Other.String(),
		}
	}

	s.render(w, r, "index.html", data)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	logger := log.FromContext(ctx)
	sess := s.sessionFor(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			ErrorResponse(http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File too large: the limit is %d MB", s.maxUpload>>20)).Write(w)
			return
		}
		BadRequestError("Expected a multipart upload with a file field").Write(w)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		BadRequestError("Choose a ledger file to upload").Write(w)
		return
	}
	defer file.Close()

	ledger, err := s.ledgers.Load(ctx, sess.ID(), header.Filename, file)
	if err != nil {
		atomic.AddInt64(&s.appMetrics.loadFailures, 1)
		if core.IsLoadError(err) {
			logger.WarnContext(ctx, "Ledger rejected",
				log.FieldSessionID, sess.ID(),
				log.FieldFileName, header.Filename,
				log.FieldError, err,
				"error_type", log.ErrorTypeLoad)
			UnprocessableEntityError("Could not read the ledger: " + err.Error() + ". Please upload a corrected file.").Write(w)
			return
		}
		s.events.LogError(ctx, "Ledger load failed", err, log.ComponentLedger, log.OpLoad,
			log.NewFields().WithSessionID(sess.ID()))
		InternalServerError("Could not load the ledger").Write(w)
		return
	}

	sess.SetLedger(header.Filename, ledger)
	atomic.AddInt64(&s.appMetrics.ledgersLoaded, 1)
	redirect(w, r, "/")
}

// handleReset clears the session, the "upload new file" action.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	sess := s.sessionFor(w, r)
	s.sessions.Reset(sess.ID())
	redirect(w, r, "/")
}

// selectedView moves the session to the requested month and computes its
// aggregate view from the same snapshot.
func (s *Server) selectedView(sess *session.Session, values url.Values) (session.Snapshot, core.MonthView, error) {
	month, err := ParseMonthParam(values)
	if err != nil {
		return session.Snapshot{}, core.MonthView{}, err
	}
	snap, err := sess.SelectMonth(month)
	if err != nil {
		return session.Snapshot{}, core.MonthView{}, err
	}
	view, err := computeView(snap)
	return snap, view, err
}

// viewError maps selection and aggregation failures to a response.
func viewError(err error) *HTMXResponseBuilder {
	switch {
	case errors.Is(err, session.ErrNoLedger):
		return NoticeResponse(NotificationInfo, "Upload a ledger to see your dashboard.")
	case errors.Is(err, session.ErrUnknownMonth), errors.Is(err, errInvalidMonth):
		return BadRequestError("Unknown month: " + err.Error())
	case core.IsNoData(err):
		return NoticeResponse(NotificationWarning, "No data for the selected month.")
	default:
		return InternalServerError("Could not build the dashboard")
	}
}
