package http

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"spendsense/internal/aggregate"
	"spendsense/internal/insight"
	"spendsense/internal/session"
)

const maxQuestionLen = 2000

type chatView struct {
	Messages []session.Message
	Notice   string
}

// handleChat answers a free-text question and re-renders the conversation.
// The question is recorded even when the assistant is unavailable.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	sess := s.sessionFor(w, r)

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	question := parser.Get("question")
	if question == "" {
		BadRequestError("Ask a question first").Write(w)
		return
	}
	if len(question) > maxQuestionLen {
		UnprocessableEntityError("Question is too long").Write(w)
		return
	}
	atomic.AddInt64(&s.appMetrics.chatMessages, 1)

	sess.AppendChat(session.RoleUser, question, time.Now())
	var notice string
	reply, err := s.generate(r.Context(), func(ctx context.Context) (string, error) {
		return s.insight.Ask(ctx, question)
	})
	if err != nil {
		notice = insightNotice(err)
	} else {
		sess.AppendChat(session.RoleAssistant, reply, time.Now())
	}

	NewHTMXResponse().TriggerFormReset().Headers(w)
	s.render(w, r, "chat.html", chatView{Messages: sess.Snapshot().Chat, Notice: notice})
}

type budgetView struct {
	Month      string
	Budget     string
	Actual     string
	Difference string
	Over       bool
	Review     []string
	Notice     string
}

func newBudgetView(b aggregate.Budget) *budgetView {
	return &budgetView{
		Budget:     formatRupees(b.Budget),
		Actual:     formatRupees(b.Actual),
		Difference: formatRupees(b.Difference),
		Over:       b.Difference.IsPositive(),
	}
}

// handleBudget stores the monthly budget and, when it is positive, asks for
// a budget review of the selected month.
func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	sess := s.sessionFor(w, r)

	budget, err := ParseAmountField(r.PostForm, "budget")
	if err != nil {
		UnprocessableEntityError("Invalid budget: " + err.Error()).Write(w)
		return
	}
	sess.SetBudget(budget)

	_, view, err := s.selectedView(sess, r.Form)
	if err != nil {
		viewError(err).Write(w)
		return
	}
	if !budget.IsPositive() {
		NoticeResponse(NotificationInfo, "Set a budget above zero to track it.").Write(w)
		return
	}

	data := newBudgetView(aggregate.CompareBudget(view, budget))
	data.Month = view.Month
	review, err := s.generate(r.Context(), func(ctx context.Context) (string, error) {
		return s.insight.BudgetReview(ctx, view, budget)
	})
	if err != nil {
		data.Notice = insightNotice(err)
	} else {
		data.Review = paragraphs(review)
	}
	s.render(w, r, "budget.html", data)
}

type planView struct {
	Month     string
	Current   string
	Salaries  string
	Assets    string
	Marketing string
	Other     string
	Total     string
	Advice    []string
	Notice    string
}

// handlePlan stores the next-month plan and runs the advisor on it.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	sess := s.sessionFor(w, r)

	var plan insight.Plan
	for _, f := range []struct {
		key string
		dst *decimal.Decimal
	}{
		{"salaries", &plan.Salaries},
		{"assets", &plan.Assets},
		{"marketing", &plan.Marketing},
		{"other", &plan.Other},
	} {
		v, err := ParseAmountField(r.PostForm, f.key)
		if err != nil {
			UnprocessableEntityError("Invalid plan: " + err.Error()).Write(w)
			return
		}
		*f.dst = v
	}
	sess.SetPlan(plan)

	_, view, err := s.selectedView(sess, r.Form)
	if err != nil {
		viewError(err).Write(w)
		return
	}

	data := planView{
		Month:     view.Month,
		Current:   formatRupees(view.Total),
		Salaries:  formatRupees(plan.Salaries),
		Assets:    formatRupees(plan.Assets),
		Marketing: formatRupees(plan.Marketing),
		Other:     formatRupees(plan.Other),
		Total:     formatRupees(plan.Total()),
	}
	if plan.IsZero() {
		data.Notice = "Enter at least one planned amount to run the advisor."
		s.render(w, r, "plan.html", data)
		return
	}

	advice, err := s.generate(r.Context(), func(ctx context.Context) (string, error) {
		return s.insight.NextMonthPlan(ctx, view.Total, plan)
	})
	if err != nil {
		data.Notice = insightNotice(err)
	} else {
		data.Advice = paragraphs(advice)
	}
	s.render(w, r, "plan.html", data)
}
