// Package messagerouter turns one chat message into one reply. It decides
// between a loan lookup and the FAQ chain and never returns an error: every
// failure degrades to reply text.
package messagerouter

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"loan-assistant/internal/common/logger"
	"loan-assistant/internal/common/metrics"
	entityextractor "loan-assistant/internal/conversation/entity-extractor"
	faqclassifier "loan-assistant/internal/conversation/faq-classifier"
	statusintent "loan-assistant/internal/conversation/status-intent"
	"loan-assistant/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// LoanStore is the loan data the router reads.
type LoanStore interface {
	FindLoan(ctx context.Context, loanID, accountNumber string) (*models.LoanRecord, error)
	FindLoansByCustomer(ctx context.Context, token string) ([]models.LoanRecord, error)
	CustomerDisplayName(ctx context.Context, token string) (string, error)
}

// ExchangeRecorder persists a finished exchange.
type ExchangeRecorder interface {
	RecordExchange(ctx context.Context, exchange models.ChatExchange) error
}

// FAQ answers general questions from the intent catalog.
type FAQ interface {
	Respond(input, displayName string) (string, faqclassifier.Result, bool)
	DefaultResponse() string
}

// Fallback generates a reply when no intent matched.
type Fallback interface {
	Reply(ctx context.Context, message string) (string, bool)
}

// Status detection modes.
const (
	ModeStrict = "strict"
	ModeLoose  = "loose"
	// ModeAuto is loose when the caller supplied a session token and strict
	// otherwise.
	ModeAuto = "auto"
)

type Config struct {
	StatusMode    string
	RecordTimeout time.Duration
}

// Dependencies groups the collaborators. Loans, Recorder, Fallback and
// Tracer are optional.
type Dependencies struct {
	Extractor *entityextractor.Extractor
	Detector  *statusintent.Detector
	FAQ       FAQ
	Fallback  Fallback
	Loans     LoanStore
	Recorder  ExchangeRecorder
	Tracer    trace.Tracer
	Logger    logger.Logger
}

type Router struct {
	deps     Dependencies
	config   Config
	logger   logger.Logger
	tracer   trace.Tracer
	inflight sync.WaitGroup
}

func New(deps Dependencies, config Config) (*Router, error) {
	if deps.Extractor == nil || deps.Detector == nil || deps.FAQ == nil {
		return nil, errors.New("router requires an extractor, a detector and an FAQ classifier")
	}
	switch config.StatusMode {
	case "":
		config.StatusMode = ModeAuto
	case ModeStrict, ModeLoose, ModeAuto:
	default:
		return nil, errors.New("unknown status mode " + config.StatusMode)
	}
	if config.RecordTimeout <= 0 {
		config.RecordTimeout = 5 * time.Second
	}

	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("message-router")
	}

	return &Router{
		deps:   deps,
		config: config,
		logger: log.With(map[string]interface{}{"component": "message-router"}),
		tracer: tracer,
	}, nil
}

// Reply answers message. token is the caller's session token and may be
// empty. The exchange is recorded in the background.
func (r *Router) Reply(ctx context.Context, message, token string) string {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "router.reply")
	defer span.End()

	reply, route := r.route(ctx, message, token)

	span.SetAttributes(
		attribute.String("chat.route", route),
		attribute.Bool("chat.has_token", token != ""),
	)
	metrics.ChatRepliesTotal.WithLabelValues(route).Inc()
	metrics.ChatReplyDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())

	r.record(ctx, models.NewChatExchange(message, reply, token, route))
	return reply
}

func (r *Router) route(ctx context.Context, message, token string) (string, string) {
	entities := r.deps.Extractor.Extract(message)
	if !r.deps.Detector.Detect(message, entities, r.strictness(token)) {
		return r.answerFAQ(ctx, message, token)
	}

	loanID, hasLoanID := entities.LoanID()
	account, hasAccount := entities.AccountNumber()

	switch {
	case hasLoanID && hasAccount:
		return r.lookupLoan(ctx, loanID, account), metrics.RouteLoanLookup
	case hasLoanID:
		return missingAccountReply(loanID), metrics.RouteMissingDetails
	case hasAccount:
		return missingLoanIDReply(account), metrics.RouteMissingDetails
	case token != "" && r.deps.Loans != nil:
		return r.customerLoans(ctx, token), metrics.RouteCustomerLoans
	default:
		return bothRequiredReply, metrics.RouteMissingDetails
	}
}

func (r *Router) strictness(token string) statusintent.Strictness {
	switch r.config.StatusMode {
	case ModeLoose:
		return statusintent.Loose
	case ModeAuto:
		if token != "" {
			return statusintent.Loose
		}
	}
	return statusintent.Strict
}

func (r *Router) lookupLoan(ctx context.Context, loanID, account string) string {
	if r.deps.Loans == nil {
		return loanNotFoundReply(loanID, account)
	}
	rec, err := r.deps.Loans.FindLoan(ctx, loanID, account)
	if err != nil {
		r.traceError(ctx, "loan lookup failed", err)
		return loanNotFoundReply(loanID, account)
	}
	return formatLoan(*rec)
}

func (r *Router) customerLoans(ctx context.Context, token string) string {
	loans, err := r.deps.Loans.FindLoansByCustomer(ctx, token)
	if err != nil {
		r.traceError(ctx, "customer loan lookup failed", err)
		return noLoansFoundReply
	}
	if len(loans) == 0 {
		return noLoansFoundReply
	}

	replies := make([]string, 0, len(loans))
	for _, rec := range loans {
		replies = append(replies, formatLoan(rec))
	}
	return strings.Join(replies, "\n\n")
}

func (r *Router) answerFAQ(ctx context.Context, message, token string) (string, string) {
	reply, result, ok := r.deps.FAQ.Respond(message, r.displayName(ctx, token))
	if ok {
		metrics.IntentMatchesTotal.WithLabelValues(result.Tag()).Inc()
		return reply, metrics.RouteFAQ
	}

	if r.deps.Fallback != nil {
		if generated, ok := r.deps.Fallback.Reply(ctx, message); ok {
			return generated, metrics.RouteGenerative
		}
	}
	return r.deps.FAQ.DefaultResponse(), metrics.RouteDefault
}

// displayName is best effort: any failure just leaves replies impersonal.
func (r *Router) displayName(ctx context.Context, token string) string {
	if token == "" || r.deps.Loans == nil {
		return ""
	}
	name, err := r.deps.Loans.CustomerDisplayName(ctx, token)
	if err != nil {
		r.logger.Debug("display name unavailable", map[string]interface{}{"error": err})
		return ""
	}
	return name
}

func (r *Router) traceError(ctx context.Context, msg string, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	r.logger.Warn(msg, map[string]interface{}{"error": err})
}

func (r *Router) record(ctx context.Context, exchange models.ChatExchange) {
	if r.deps.Recorder == nil {
		return
	}

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()

		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.RecordTimeout)
		defer cancel()

		if err := r.deps.Recorder.RecordExchange(rctx, exchange); err != nil {
			r.logger.Warn("exchange not recorded", map[string]interface{}{
				"exchangeId": exchange.ExchangeID.String(),
				"route":      exchange.Route,
				"error":      err,
			})
		}
	}()
}

// Close waits for background recordings to finish or ctx to expire.
func (r *Router) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
