package chatreply

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"loan-assistant/internal/common/config"
	apperrors "loan-assistant/internal/common/errors"
	"loan-assistant/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReplier struct {
	message string
	token   string
}

func (f *fakeReplier) Reply(_ context.Context, message, token string) string {
	f.message, f.token = message, token
	return "answer"
}

func createTestHandler(t *testing.T, replier Replier) *Handler {
	t.Helper()
	return NewHandler(&Config{Timeout: time.Second, MaxMessageLength: 10}, replier, logger.NewTestLogger(t))
}

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name           string
		input          *Input
		expectedCode   apperrors.ErrorCode
		validateOutput func(t *testing.T, output *Output, replier *fakeReplier)
	}{
		{
			name:  "reply with session",
			input: &Input{Message: " hi ", SessionID: "tok"},
			validateOutput: func(t *testing.T, output *Output, replier *fakeReplier) {
				assert.Equal(t, "answer", output.Response)
				assert.Equal(t, "hi", replier.message)
				assert.Equal(t, "tok", replier.token)
				_, err := time.Parse(time.RFC3339, output.Timestamp)
				assert.NoError(t, err)
			},
		},
		{
			name:         "empty message",
			input:        &Input{Message: "  "},
			expectedCode: apperrors.ErrCodeMessageInvalid,
		},
		{
			name:         "message too long",
			input:        &Input{Message: strings.Repeat("x", 11)},
			expectedCode: apperrors.ErrCodeMessageInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			replier := &fakeReplier{}
			handler := createTestHandler(t, replier)

			output, err := handler.Execute(context.Background(), tt.input)
			if tt.expectedCode != "" {
				require.Error(t, err)
				stdErr := apperrors.AsStandardError(err)
				assert.Equal(t, tt.expectedCode, stdErr.Code)
				assert.Equal(t, 0, apperrors.ConvertToBPMNError(stdErr).Retries)
				assert.Empty(t, replier.message)
				return
			}
			require.NoError(t, err)
			tt.validateOutput(t, output, replier)
		})
	}
}

func TestHandler_ParseInput(t *testing.T) {
	handler := createTestHandler(t, &fakeReplier{})

	input, err := handler.parseInput(`{"message":"status 1 BHLPL1","sessionId":"tok","applicationId":7}`)
	require.NoError(t, err)
	assert.Equal(t, "status 1 BHLPL1", input.Message)
	assert.Equal(t, "tok", input.SessionID)

	for _, vars := range []string{`{"sessionId":"tok"}`, `{"message":5}`, `not json`} {
		_, err := handler.parseInput(vars)
		require.Error(t, err, vars)
		assert.Equal(t, apperrors.ErrCodeMessageInvalid, apperrors.AsStandardError(err).Code)
	}
}

func TestLoadConfig(t *testing.T) {
	cfg := &config.Config{
		Server:  config.ServerConfig{MaxMessageLength: 500},
		Workers: map[string]config.WorkerConfig{TaskType: {Enabled: true, Timeout: 2000}},
	}
	wcfg := LoadConfig(cfg)
	assert.Equal(t, 2*time.Second, wcfg.Timeout)
	assert.Equal(t, 500, wcfg.MaxMessageLength)
}

type countingRetrier struct {
	attempts  int
	operation string
}

func (r *countingRetrier) ExecuteWithRetry(ctx context.Context, command func(context.Context) (interface{}, error), operation string) (interface{}, error) {
	r.operation = operation
	for {
		r.attempts++
		result, err := command(ctx)
		if err == nil || r.attempts == 3 {
			return result, err
		}
	}
}

func TestHandler_SendUsesRetrier(t *testing.T) {
	retrier := &countingRetrier{}
	h := createTestHandler(t, &fakeReplier{}).WithRetrier(retrier)

	calls := 0
	err := h.send(context.Background(), "complete-job", func(context.Context) (interface{}, error) {
		calls++
		if calls < 2 {
			return nil, errors.New("unavailable")
		}
		return nil, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, retrier.attempts)
	assert.Equal(t, "complete-job", retrier.operation)
}

func TestHandler_SendWithoutRetrier(t *testing.T) {
	h := createTestHandler(t, &fakeReplier{})
	err := h.send(context.Background(), "complete-job", func(context.Context) (interface{}, error) {
		return nil, errors.New("unavailable")
	})
	assert.EqualError(t, err, "unavailable")
}
