package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec, err := NewTokenCodec("test-secret")
	require.NoError(t, err)

	token, err := codec.Encode("CUST-1001")
	require.NoError(t, err)
	assert.NotContains(t, token, "CUST-1001")

	id, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "CUST-1001", id)
}

func TestTokenCodec_TokensAreNotDeterministic(t *testing.T) {
	codec, err := NewTokenCodec("test-secret")
	require.NoError(t, err)

	a, err := codec.Encode("CUST-1001")
	require.NoError(t, err)
	b, err := codec.Encode("CUST-1001")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestTokenCodec_DecodeRejects(t *testing.T) {
	codec, err := NewTokenCodec("test-secret")
	require.NoError(t, err)
	other, err := NewTokenCodec("another-secret")
	require.NoError(t, err)

	foreign, err := other.Encode("CUST-1001")
	require.NoError(t, err)
	good, err := codec.Encode("CUST-1001")
	require.NoError(t, err)
	tampered := []byte(good)
	mid := len(tampered) / 2
	if tampered[mid] == 'A' {
		tampered[mid] = 'B'
	} else {
		tampered[mid] = 'A'
	}

	tests := []struct {
		name  string
		token string
	}{
		{"not base64", "%%%"},
		{"too short", "abcd"},
		{"other secret", foreign},
		{"tampered", string(tampered)},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.token)
			assert.ErrorIs(t, err, ErrInvalidCustomerToken)
		})
	}
}

func TestNewTokenCodec_EmptySecret(t *testing.T) {
	_, err := NewTokenCodec("")
	assert.ErrorIs(t, err, ErrMissingSecret)
}
