package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"spendsense/internal/core"
	"spendsense/internal/log"
	"spendsense/internal/services"
)

type reportView struct {
	ID        string
	Month     string
	Format    string
	Name      string
	URL       string
	CreatedAt string
}

func reportViews(recs []core.ReportRecord) []reportView {
	out := make([]reportView, len(recs))
	for i, rec := range recs {
		out[i] = reportView{
			ID:        rec.ID,
			Month:     rec.Month,
			Format:    rec.Format,
			Name:      rec.DownloadName(),
			URL:       "/reports/" + rec.ID,
			CreatedAt: rec.CreatedAt.Format("2006-01-02 15:04"),
		}
	}
	return out
}

const unavailableInsight = "AI insight was unavailable when this report was generated."

// handleCreateReport exports the selected month and returns a download link.
func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	sess := s.sessionFor(w, r)

	format, err := ParseFormat(r.Form)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	snap, view, err := s.selectedView(sess, r.Form)
	if err != nil {
		viewError(err).Write(w)
		return
	}

	text, err := s.generate(ctx, func(ctx context.Context) (string, error) {
		return s.insight.MonthlySummary(ctx, view)
	})
	if err != nil {
		text = unavailableInsight
	}

	rec, err := s.reports.Export(ctx, services.ExportRequest{
		SessionID:  sess.ID(),
		SourceFile: snap.FileName,
		View:       view,
		Insight:    text,
		Format:     format,
	})
	if err != nil {
		s.events.LogError(ctx, "Report export failed", err, log.ComponentReport, log.OpExport,
			log.NewFields().WithSessionID(sess.ID()))
		InternalServerError("Could not generate the report").Write(w)
		return
	}
	sess.AddReport(rec.ID)
	atomic.AddInt64(&s.appMetrics.reportsExported, 1)

	NewHTMXResponse().
		TriggerReportReady(rec.ID, rec.Month).
		TriggerSuccessNotification(fmt.Sprintf("Report for %s is ready", rec.Month)).
		Headers(w)
	s.render(w, r, "report.html", reportViews([]core.ReportRecord{rec})[0])
}

var contentTypes = map[string]string{
	core.FormatPDF:  "application/pdf",
	core.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// handleDownloadReport streams a report back to the session that made it.
// Other sessions get a 404, never a 403, so ids cannot be probed.
func (s *Server) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	id := r.PathValue("id")
	sess := s.sessionFor(w, r)
	if !sess.OwnsReport(id) {
		NotFoundError("Report not found").Write(w)
		return
	}

	rec, f, err := s.reports.Open(r.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrReportNotFound) {
			NotFoundError("Report not found").Write(w)
			return
		}
		s.events.LogError(r.Context(), "Report open failed", err, log.ComponentReport, log.OpRead,
			log.NewFields().WithSessionID(sess.ID()))
		InternalServerError("Could not open the report").Write(w)
		return
	}
	defer f.Close()

	if ct, ok := contentTypes[rec.Format]; ok {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, rec.DownloadName()))
	w.Header().Set("Cache-Control", "private, no-store")
	http.ServeContent(w, r, rec.DownloadName(), rec.CreatedAt, f)
}
