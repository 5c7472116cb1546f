package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_ChatReply(t *testing.T) {
	activity, err := Default().Activity("chat-reply")
	require.NoError(t, err)
	assert.Equal(t, "Chat Reply", activity.DisplayName)
	assert.Contains(t, activity.ErrorCodes, "MESSAGE_INVALID")

	tests := []struct {
		name        string
		variables   string
		expectError bool
	}{
		{name: "message only", variables: `{"message":"hi"}`},
		{name: "extra process variables", variables: `{"message":"hi","sessionId":"tok","loanApp":42}`},
		{name: "missing message", variables: `{"sessionId":"tok"}`, expectError: true},
		{name: "empty message", variables: `{"message":""}`, expectError: true},
		{name: "message not a string", variables: `{"message":12}`, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := activity.ValidateInput([]byte(tt.variables))
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.NoError(t, activity.ValidateOutput([]byte(`{"response":"ok","timestamp":"2025-01-01T00:00:00Z"}`)))
	assert.Error(t, activity.ValidateOutput([]byte(`{"response":"ok"}`)))
}

func TestActivity_Unknown(t *testing.T) {
	_, err := Default().Activity("email-send")
	assert.ErrorIs(t, err, ErrUnknownActivity)
}

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"2","activities":[{"taskType":"x"}]}`), 0o600))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, "2", reg.Version)

	activity, err := reg.Activity("x")
	require.NoError(t, err)
	assert.NoError(t, activity.ValidateInput([]byte(`{}`)))

	_, err = LoadRegistry(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
