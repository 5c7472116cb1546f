package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"loan-assistant/internal/common/logger"
	faqclassifier "loan-assistant/internal/conversation/faq-classifier"
	loanrepository "loan-assistant/internal/data-access/loan-repository"
	"loan-assistant/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeChat struct {
	message string
	token   string
}

func (f *fakeChat) Reply(_ context.Context, message, token string) string {
	f.message, f.token = message, token
	return "reply to " + message
}

type fakeLoans struct {
	rec     *models.LoanRecord
	err     error
	pingErr error
}

func (f *fakeLoans) FindLoan(context.Context, string, string) (*models.LoanRecord, error) {
	return f.rec, f.err
}

func (f *fakeLoans) SampleLoans(context.Context, int) ([]models.LoanRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []models.LoanRecord{*f.rec}, nil
}

func (f *fakeLoans) Ping(context.Context) error { return f.pingErr }

func createTestServer(t *testing.T, loans *fakeLoans, config Config) (http.Handler, *fakeChat, *faqclassifier.Classifier) {
	t.Helper()
	classifier, err := faqclassifier.New(faqclassifier.DefaultCatalog(), faqclassifier.Config{}, nil, logger.NewNoOpLogger())
	require.NoError(t, err)

	if loans == nil {
		loans = &fakeLoans{}
	}
	if config.MaxMessageLength == 0 {
		config.MaxMessageLength = 20
	}
	chat := &fakeChat{}
	srv := New(Dependencies{
		Chat:    chat,
		Loans:   loans,
		Intents: classifier,
		Logger:  logger.NewTestLogger(t),
	}, config)
	return srv.Handler(), chat, classifier
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestChat(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		expectedStatus int
		validateOutput func(t *testing.T, body map[string]interface{}, chat *fakeChat)
	}{
		{
			name:           "message is trimmed and forwarded with the session",
			body:           map[string]string{"message": "  hi  ", "session_id": "tok"},
			expectedStatus: http.StatusOK,
			validateOutput: func(t *testing.T, body map[string]interface{}, chat *fakeChat) {
				assert.Equal(t, "reply to hi", body["response"])
				assert.Equal(t, "hi", chat.message)
				assert.Equal(t, "tok", chat.token)
				_, err := time.Parse(time.RFC3339, body["timestamp"].(string))
				assert.NoError(t, err)
			},
		},
		{
			name:           "empty message",
			body:           map[string]string{"message": "   "},
			expectedStatus: http.StatusBadRequest,
			validateOutput: func(t *testing.T, body map[string]interface{}, chat *fakeChat) {
				assert.Equal(t, "Message is required", body["error"])
				assert.Empty(t, chat.message)
			},
		},
		{
			name:           "message over the limit",
			body:           map[string]string{"message": strings.Repeat("a", 21)},
			expectedStatus: http.StatusBadRequest,
			validateOutput: func(t *testing.T, body map[string]interface{}, chat *fakeChat) {
				assert.Equal(t, "MESSAGE_INVALID", body["code"])
				assert.Empty(t, chat.message)
			},
		},
		{
			name:           "limit counts characters not bytes",
			body:           map[string]string{"message": strings.Repeat("₹", 20)},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "malformed body",
			body:           "{not json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, chat, _ := createTestServer(t, nil, Config{})
			w := doRequest(t, h, http.MethodPost, "/api/chat", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.validateOutput != nil {
				tt.validateOutput(t, decode(t, w), chat)
			}
		})
	}
}

func TestLoanEndpoints(t *testing.T) {
	emi := 1250.0
	found := &fakeLoans{rec: &models.LoanRecord{LoanID: "1", LoanAccountNumber: "BHLPL1", EMIAmount: &emi}}

	tests := []struct {
		name           string
		loans          *fakeLoans
		path           string
		expectedStatus int
		validateOutput func(t *testing.T, body map[string]interface{})
	}{
		{
			name:           "loan details",
			loans:          found,
			path:           "/api/loan-details/1/BHLPL1",
			expectedStatus: http.StatusOK,
			validateOutput: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, true, body["found"])
				assert.Equal(t, "BHLPL1", body["loan_account_number"])
				assert.Equal(t, "N/A", body["status"])
			},
		},
		{
			name:           "loan status alias",
			loans:          found,
			path:           "/api/loan-status/1/BHLPL1",
			expectedStatus: http.StatusOK,
			validateOutput: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "1", body["loan_id"])
			},
		},
		{
			name:           "emi subset",
			loans:          found,
			path:           "/api/emi-details/1/BHLPL1",
			expectedStatus: http.StatusOK,
			validateOutput: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "BHLPL1", body["account_number"])
				assert.InDelta(t, 1250.0, body["emi_amount"], 1e-9)
				assert.NotContains(t, body, "status")
			},
		},
		{
			name:           "not found",
			loans:          &fakeLoans{err: loanrepository.ErrLoanNotFound},
			path:           "/api/loan-details/9/BHLPL9",
			expectedStatus: http.StatusOK,
			validateOutput: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, map[string]interface{}{"found": false}, body)
			},
		},
		{
			name:           "query timeout",
			loans:          &fakeLoans{err: loanrepository.ErrQueryTimeout},
			path:           "/api/emi-details/9/BHLPL9",
			expectedStatus: http.StatusGatewayTimeout,
		},
		{
			name:           "query failure hides details",
			loans:          &fakeLoans{err: errors.New("pq: password authentication failed")},
			path:           "/api/loan-details/9/BHLPL9",
			expectedStatus: http.StatusInternalServerError,
			validateOutput: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "Database query execution error", body["error"])
			},
		},
		{
			name:           "db test",
			loans:          found,
			path:           "/api/db-test",
			expectedStatus: http.StatusOK,
			validateOutput: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "success", body["status"])
				assert.EqualValues(t, 1, body["count"])
			},
		},
		{
			name:           "db test without connection",
			loans:          &fakeLoans{pingErr: errors.New("dial tcp: refused")},
			path:           "/api/db-test",
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, _ := createTestServer(t, tt.loans, Config{})
			w := doRequest(t, h, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.validateOutput != nil {
				tt.validateOutput(t, decode(t, w))
			}
		})
	}
}

func TestHealth(t *testing.T) {
	h, _, _ := createTestServer(t, nil, Config{})
	w := doRequest(t, h, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestIntents(t *testing.T) {
	intent := models.Intent{Tag: "branch_hours", Patterns: []string{"branch hours"}, Responses: []string{"9 to 5"}}

	t.Run("add is disabled by default", func(t *testing.T) {
		h, _, _ := createTestServer(t, nil, Config{})
		w := doRequest(t, h, http.MethodPost, "/api/intents", intent)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("add then list", func(t *testing.T) {
		h, _, classifier := createTestServer(t, nil, Config{AdminEnabled: true})

		w := doRequest(t, h, http.MethodPost, "/api/intents", intent)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "branch_hours", classifier.Classify("what are your branch hours").Tag())

		w = doRequest(t, h, http.MethodGet, "/api/intents", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, decode(t, w)["intents"], "branch_hours")

		w = doRequest(t, h, http.MethodPost, "/api/intents", intent)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("intent without responses", func(t *testing.T) {
		h, _, _ := createTestServer(t, nil, Config{AdminEnabled: true})
		w := doRequest(t, h, http.MethodPost, "/api/intents", models.Intent{Tag: "empty"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCORS(t *testing.T) {
	h, _, _ := createTestServer(t, nil, Config{AllowedOrigins: []string{"http://localhost:4200"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:4200", w.Header().Get("Access-Control-Allow-Origin"))
}
