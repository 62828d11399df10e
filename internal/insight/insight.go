// Package insight turns aggregate figures into prompts for a text-generation
// service and hands back whatever the service answers.
package insight

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"spendsense/internal/core"
	"spendsense/internal/log"
)

// Greeting is the assistant's opening line in every new chat.
const Greeting = "Hi 👋 I'm your SpendSense financial copilot. Ask me anything about your expenses or planning."

// ErrDisabled is returned when no text-generation backend is configured.
var ErrDisabled = errors.New("insight service is not configured")

// Generator is a single request/response text completion.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Disabled is the Generator used when insights are turned off.
type Disabled struct{}

func (Disabled) Generate(context.Context, string) (string, error) {
	return "", ErrDisabled
}

// Requester sends prompts to a Generator. It makes exactly one attempt per
// call and never caches.
type Requester struct {
	gen     Generator
	name    string
	timeout time.Duration
	logger  *log.Logger
}

// Option configures a Requester.
type Option func(*Requester)

// WithTimeout bounds each generation call. Zero leaves the caller's context
// as the only bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Requester) { r.timeout = d }
}

// WithName sets the service name used in errors and logs.
func WithName(name string) Option {
	return func(r *Requester) { r.name = name }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Requester) { r.logger = l }
}

// NewRequester wraps gen. A nil gen behaves like Disabled.
func NewRequester(gen Generator, opts ...Option) *Requester {
	if gen == nil {
		gen = Disabled{}
	}
	r := &Requester{
		gen:    gen,
		name:   "insight",
		logger: log.New(log.DefaultConfig()).WithComponent(log.ComponentInsight),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Enabled reports whether a real backend is configured.
func (r *Requester) Enabled() bool {
	_, off := r.gen.(Disabled)
	return !off
}

// MonthlySummary asks for the executive summary of a month.
func (r *Requester) MonthlySummary(ctx context.Context, v core.MonthView) (string, error) {
	return r.generate(ctx, "monthly_summary", MonthlySummaryPrompt(v))
}

// BudgetReview asks for advice on actual spend against budget.
func (r *Requester) BudgetReview(ctx context.Context, v core.MonthView, budget decimal.Decimal) (string, error) {
	return r.generate(ctx, "budget_review", BudgetReviewPrompt(v, budget))
}

// NextMonthPlan asks for risks and optimisations in a plan.
func (r *Requester) NextMonthPlan(ctx context.Context, currentTotal decimal.Decimal, p Plan) (string, error) {
	return r.generate(ctx, "next_month_plan", NextMonthPlanPrompt(currentTotal, p))
}

// Ask forwards a free-text question unchanged.
func (r *Requester) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.New("question cannot be empty")
	}
	return r.generate(ctx, "chat", question)
}

func (r *Requester) generate(ctx context.Context, kind, prompt string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		r.logger.WarnContext(ctx, "Insight generation failed",
			log.FieldPromptKind, kind,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldError, err)
		return "", &core.ExternalServiceError{Service: r.name, Err: err}
	}

	r.logger.DebugContext(ctx, "Insight generated",
		log.FieldPromptKind, kind,
		log.FieldDuration, time.Since(start).Milliseconds())
	return out, nil
}

// Plan holds next-month budget figures by line.
type Plan struct {
	Salaries  decimal.Decimal
	Assets    decimal.Decimal
	Marketing decimal.Decimal
	Other     decimal.Decimal
}

// Total returns the planned total.
func (p Plan) Total() decimal.Decimal {
	return p.Salaries.Add(p.Assets).Add(p.Marketing).Add(p.Other)
}

// IsZero reports whether nothing has been planned.
func (p Plan) IsZero() bool {
	return p.Salaries.IsZero() && p.Assets.IsZero() && p.Marketing.IsZero() && p.Other.IsZero()
}

func rupees(d decimal.Decimal) string {
	return fmt.Sprintf("₹%s", core.FormatRupees(d))
}
