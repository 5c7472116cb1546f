package messagerouter

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"loan-assistant/internal/common/logger"
	"loan-assistant/internal/common/metrics"
	entityextractor "loan-assistant/internal/conversation/entity-extractor"
	faqclassifier "loan-assistant/internal/conversation/faq-classifier"
	statusintent "loan-assistant/internal/conversation/status-intent"
	"loan-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var errLoanNotFound = errors.New("LOAN_NOT_FOUND")

type fakeLoans struct {
	mu            sync.Mutex
	loans         map[[2]string]models.LoanRecord
	customerLoans map[string][]models.LoanRecord
	names         map[string]string
	err           error
	findCalls     [][2]string
	customerCalls []string
}

func (f *fakeLoans) FindLoan(_ context.Context, loanID, account string) (*models.LoanRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls = append(f.findCalls, [2]string{loanID, account})
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.loans[[2]string{loanID, account}]
	if !ok {
		return nil, errLoanNotFound
	}
	return &rec, nil
}

func (f *fakeLoans) FindLoansByCustomer(_ context.Context, token string) ([]models.LoanRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.customerCalls = append(f.customerCalls, token)
	if f.err != nil {
		return nil, f.err
	}
	return f.customerLoans[token], nil
}

func (f *fakeLoans) CustomerDisplayName(_ context.Context, token string) (string, error) {
	if name, ok := f.names[token]; ok {
		return name, nil
	}
	return "", errors.New("CUSTOMER_NOT_FOUND")
}

type fakeRecorder struct {
	exchanges chan models.ChatExchange
	err       error
}

func newFakeRecorder(err error) *fakeRecorder {
	return &fakeRecorder{exchanges: make(chan models.ChatExchange, 8), err: err}
}

func (f *fakeRecorder) RecordExchange(_ context.Context, exchange models.ChatExchange) error {
	f.exchanges <- exchange
	return f.err
}

type fakeFallback struct {
	reply string
	ok    bool
	calls int
}

func (f *fakeFallback) Reply(context.Context, string) (string, bool) {
	f.calls++
	return f.reply, f.ok
}

func strPtr(s string) *string    { return &s }
func floatPtr(v float64) *float64 { return &v }

func sampleLoan(loanID, account string) models.LoanRecord {
	return models.LoanRecord{
		LoanID:            loanID,
		LoanAccountNumber: account,
		AmountSanctioned:  floatPtr(500000),
		EMIAmount:         floatPtr(12500.5),
		RateOfInterest:    floatPtr(9),
		Status:            strPtr("active"),
	}
}

type testRouter struct {
	router   *Router
	loans    *fakeLoans
	recorder *fakeRecorder
	fallback *fakeFallback
}

func createTestRouter(t *testing.T, mode string, recorderErr error) *testRouter {
	t.Helper()

	extractor, err := entityextractor.New(entityextractor.DefaultAccountPrefix)
	require.NoError(t, err)
	faq, err := faqclassifier.New(faqclassifier.DefaultCatalog(), faqclassifier.Config{},
		func(int) int { return 0 }, logger.NewTestLogger(t))
	require.NoError(t, err)

	tr := &testRouter{
		loans: &fakeLoans{
			loans: map[[2]string]models.LoanRecord{
				{"12345", "BHLPL9988"}: sampleLoan("12345", "BHLPL9988"),
			},
			customerLoans: map[string][]models.LoanRecord{
				"tok-two": {sampleLoan("1", "BHLPL1"), sampleLoan("2", "BHLPL2")},
			},
			names: map[string]string{"tok-asha": "Asha"},
		},
		recorder: newFakeRecorder(recorderErr),
		fallback: &fakeFallback{},
	}

	tr.router, err = New(Dependencies{
		Extractor: extractor,
		Detector:  statusintent.New(false),
		FAQ:       faq,
		Fallback:  tr.fallback,
		Loans:     tr.loans,
		Recorder:  tr.recorder,
		Logger:    logger.NewTestLogger(t),
	}, Config{StatusMode: mode, RecordTimeout: time.Second})
	require.NoError(t, err)
	return tr
}

func TestRouter_Reply(t *testing.T) {
	tests := []struct {
		name           string
		mode           string
		message        string
		token          string
		setup          func(tr *testRouter)
		validateOutput func(t *testing.T, tr *testRouter, reply string)
	}{
		{
			name:    "lookup uses the exact extracted pair",
			message: "check status for loan 12345 account BHLPL9988",
			validateOutput: func(t *testing.T, tr *testRouter, reply string) {
				assert.Equal(t, [][2]string{{"12345", "BHLPL9988"}}, tr.loans.findCalls)
				assert.Contains(t, reply, "**Loan ID:** 12345")
				assert.Contains(t, reply, "**Status:** ACTIVE")
				assert.Contains(t, reply, "₹500,000.00")
				assert.Contains(t, reply, "**Interest Rate:** 9.0%")
			},
		},
		{
			name:    "lower case account token is normalized",
			message: "emi details 12345 bhlpl9988",
			validateOutput: func(t *testing.T, tr *testRouter, reply string) {
				assert.Equal(t, [][2]string{{"12345", "BHLPL9988"}}, tr.loans.findCalls)
			},
		},
		{
			name:    "first entities are authoritative",
			message: "status 12345 and 777 for BHLPL9988 or BHLPL1",
			validateOutput: func(t *testing.T, tr *testRouter, reply string) {
				assert.Equal(t, [][2]string{{"12345", "BHLPL9988"}}, tr.loans.findCalls)
			},
		},
		{
			name:    "unknown pair",
			message: "status of loan 1 account BHLPL2",
			validateOutput: func(t *testing.T, tr *testRouter, reply string) {
				assert.Equal(t, "❌ No loan found with Loan ID '1' and Account Number 'BHLPL2'. Please verify both details and try again.", reply)
			},
		},
		{
			name:    "store failure reads as not found",
			message: "status of loan 1 account BHLPL2",
			setup:   func(tr *testRouter) { tr.loans.err = errors.New("connection refused") },
			validateOutput: func(t *testing.T, tr *testRouter, reply string) {
				assert.Contains(t, reply, "No loan found with Loan ID '1'")
			},
		},
		{
			name:    "loan id without account",
			message: "what is the status of loan 12345",
			validateOutput: func(t *testing.T, tr *testRouter, reply string) {
				assert.Empty(t, tr.loans.findCalls)
				assert.Contains(t, reply, "Missing Account Number")
				assert.Contains(t, reply, "**12345**")
			},
		},
		{
			name:    "account without loan id",
			message: "track BHLPL77",
			validateOutput: func(t *testing.T, tr *testRouter, reply string) {
				assert.Empty(t, tr.loans.findCalls)
				assert.Contains(t, reply, "Missing Loan ID")
				assert.Contains(t, reply, "**BHLPL77**")
			},
		},
		{
			name:    "session token lists every customer loan",
			message: "what is my loan status",
			token:   "tok-two",
			validateOutput: func(t *testing.T, tr *testRouter, reply string) {
				assert.Equal(t, []string{"tok-two"}, tr.loans.customerCalls)
				parts := strings.Split(reply, "regarding your loan?\n\n")
				require.Len(t, parts, 2)
				assert.Contains(t, parts[0], "**Loan ID:** 1")
				assert.Contains(t, parts[1], "**Loan ID:** 2")
			},
		},
		{
			name:    "session token without loans",
			message: "what is my loan status",
			token:   "tok-none",
			validateOutput: func(t *testing.T, tr *testRouter, reply string) {
				assert.Equal(t, noLoansFoundReply, reply)
			},
		},
		{
			name:    "undecodable token reads as no loans",
			message: "loan status please",
			token:   "forged",
			setup:   func(tr *testRouter) { tr.loans.err = errors.New("CUSTOMER_TOKEN_INVALID") },
			validateOutput: func(t *testing.T, tr *testRouter, reply string) {
				assert.Equal(t, noLoansFoundReply, reply)
			},
		},
		{
			name:    "auto mode without token stays on the FAQ path",
			message: "what is my loan status",
			validateOutput: func(t *testing.T, tr *testRouter, reply string) {
				assert.Empty(t, tr.loans.customerCalls)
				assert.Contains(t, reply, "To check your loan status")
			},
		},
		{
			name:    "loose mode without token asks for both",
			mode:    ModeLoose,
			message: "what is my loan status",
			validateOutput: func(t *testing.T, tr *testRouter, reply string) {
				assert.Equal(t, bothRequiredReply, reply)
			},
		},
		{
			name:    "strict mode ignores the token",
			mode:    ModeStrict,
			message: "what is my loan status",
			token:   "tok-two",
			validateOutput: func(t *testing.T, tr *testRouter, reply string) {
				assert.Empty(t, tr.loans.customerCalls)
			},
		},
		{
			name:    "greeting is personalized",
			message: "hi",
			token:   "tok-asha",
			validateOutput: func(t *testing.T, tr *testRouter, reply string) {
				assert.Equal(t, "Welcome Asha! How can I assist you today?", reply)
			},
		},
		{
			name:    "generated reply when nothing matches",
			message: "xyzzy plugh",
			setup: func(tr *testRouter) {
				tr.fallback.reply, tr.fallback.ok = "generated answer", true
			},
			validateOutput: func(t *testing.T, tr *testRouter, reply string) {
				assert.Equal(t, "generated answer", reply)
				assert.Equal(t, 1, tr.fallback.calls)
			},
		},
		{
			name:    "default reply when generation fails",
			message: "xyzzy plugh",
			validateOutput: func(t *testing.T, tr *testRouter, reply string) {
				assert.True(t, strings.HasPrefix(reply, "I'm sorry, I didn't understand that."))
				assert.Equal(t, 1, tr.fallback.calls)
			},
		},
		{
			name:    "matched intent skips generation",
			message: "what are your interest rates today",
			validateOutput: func(t *testing.T, tr *testRouter, reply string) {
				assert.Contains(t, reply, "interest rates")
				assert.Zero(t, tr.fallback.calls)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := createTestRouter(t, tt.mode, nil)
			if tt.setup != nil {
				tt.setup(tr)
			}

			reply := tr.router.Reply(context.Background(), tt.message, tt.token)
			require.NotEmpty(t, reply)
			tt.validateOutput(t, tr, reply)

			require.NoError(t, tr.router.Close(context.Background()))
			select {
			case ex := <-tr.recorder.exchanges:
				assert.Equal(t, tt.message, ex.Message)
				assert.Equal(t, reply, ex.Response)
				assert.Equal(t, tt.token, ex.SessionToken)
			default:
				t.Fatal("exchange was not recorded")
			}
		})
	}
}

func TestRouter_RecorderFailureKeepsReply(t *testing.T) {
	tr := createTestRouter(t, "", errors.New("disk full"))

	reply := tr.router.Reply(context.Background(), "hi", "")
	assert.True(t, strings.HasPrefix(reply, "Hello!"))
	require.NoError(t, tr.router.Close(context.Background()))

	ex := <-tr.recorder.exchanges
	assert.Equal(t, metrics.RouteFAQ, ex.Route)
}

func TestRouter_ReplySpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))

	tr := createTestRouter(t, "", nil)
	tr.router.tracer = tp.Tracer("test")

	tr.router.Reply(context.Background(), "check status for loan 12345 account BHLPL9988", "")
	require.NoError(t, tr.router.Close(context.Background()))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "router.reply", spans[0].Name())

	var route string
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "chat.route" {
			route = kv.Value.AsString()
		}
	}
	assert.Equal(t, metrics.RouteLoanLookup, route)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Dependencies{}, Config{})
	assert.Error(t, err)

	tr := createTestRouter(t, "", nil)
	deps := tr.router.deps
	_, err = New(deps, Config{StatusMode: "fuzzy"})
	assert.Error(t, err)

	r, err := New(deps, Config{})
	require.NoError(t, err)
	assert.Equal(t, ModeAuto, r.config.StatusMode)
}

func TestFormatAmount(t *testing.T) {
	tests := map[float64]string{
		0:           "0.00",
		999:         "999.00",
		1000:        "1,000.00",
		12500.5:     "12,500.50",
		1234567.891: "1,234,567.89",
		-1234.5:     "-1,234.50",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatAmount(in), "input %v", in)
	}
}

func TestFormatLoan_MissingFields(t *testing.T) {
	reply := formatLoan(models.LoanRecord{LoanID: "5", LoanAccountNumber: "BHLPL5"})

	assert.True(t, strings.HasPrefix(reply, "📄 **Loan Sanction Details**"))
	assert.Contains(t, reply, "**Status:** N/A")
	assert.Contains(t, reply, "**EMI Amount:** ₹0.00")
	assert.Contains(t, reply, "**Number of EMIs:** 0")
	assert.Contains(t, reply, "**EMI Due Date:** N/A")
	assert.Contains(t, reply, "**Interest Rate:** 0.0%")
	assert.True(t, strings.HasSuffix(reply, "Is there anything else I can help you with regarding your loan?"))
}
