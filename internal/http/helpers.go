package http

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"spendsense/internal/core"
	"spendsense/internal/session"
)

const sessionCookie = "spendsense_session"

// sessionFor returns the caller's session, starting one and setting the
// cookie when the request carries no live session id.
func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) *session.Session {
	id := ""
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}
	sess, created := s.sessions.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sess.ID(),
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}

// formatRupees formats an amount the way the dashboard shows it, e.g. "₹4700".
func formatRupees(d decimal.Decimal) string {
	return "₹" + core.FormatRupees(d)
}

// barRow is one bar of a horizontal bar chart.
type barRow struct {
	Label  string
	Amount string
	Width  int // percent of the largest bar
}

// bars scales amounts against the largest one. Non-positive amounts get an
// empty bar.
func bars(labels []string, amounts []decimal.Decimal) []barRow {
	maxAmt := decimal.Zero
	for _, a := range amounts {
		if a.GreaterThan(maxAmt) {
			maxAmt = a
		}
	}
	rows := make([]barRow, len(labels))
	hundred := decimal.NewFromInt(100)
	for i, label := range labels {
		width := 0
		if maxAmt.IsPositive() && amounts[i].IsPositive() {
			width = int(amounts[i].Mul(hundred).Div(maxAmt).Round(0).IntPart())
			if width < 2 { // keep tiny values visible
				width = 2
			}
			if width > 100 {
				width = 100
			}
		}
		rows[i] = barRow{Label: label, Amount: formatRupees(amounts[i]), Width: width}
	}
	return rows
}

func categoryBars(cats []core.CategoryAmount) []barRow {
	labels := make([]string, len(cats))
	amounts := make([]decimal.Decimal, len(cats))
	for i, c := range cats {
		labels[i], amounts[i] = c.Name, c.Amount
	}
	return bars(labels, amounts)
}

func keyBars(keys []core.KeyAmount) []barRow {
	labels := make([]string, len(keys))
	amounts := make([]decimal.Decimal, len(keys))
	for i, k := range keys {
		labels[i], amounts[i] = k.Key, k.Amount
	}
	return bars(labels, amounts)
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// isHTMX reports whether the request was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// redirect sends the browser to url, through HX-Redirect for htmx requests.
func redirect(w http.ResponseWriter, r *http.Request, url string) {
	if isHTMX(r) {
		NewHTMXResponse().Header("HX-Redirect", url).Write(w)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}
