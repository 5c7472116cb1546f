package statusintent

import (
	"testing"

	entityextractor "loan-assistant/internal/conversation/entity-extractor"

	"github.com/stretchr/testify/assert"
)

func TestDetector_Detect(t *testing.T) {
	withID := entityextractor.Entities{LoanIDs: []string{"12345"}}
	none := entityextractor.Entities{}

	tests := []struct {
		name        string
		text        string
		entities    entityextractor.Entities
		strictness  Strictness
		includeLoan bool
		expected    bool
	}{
		{"keyword with entity strict", "status of 12345", withID, Strict, false, true},
		{"keyword without entity strict", "what is my loan status", none, Strict, false, false},
		{"keyword without entity loose", "what is my loan status", none, Loose, false, true},
		{"emi keyword", "EMI for 12345", withID, Strict, false, true},
		{"due date keyword", "next due date please", none, Loose, false, true},
		{"phrase when emi due", "when is my emi due", none, Loose, false, true},
		{"no signal", "what are your interest rates", none, Loose, false, false},
		{"no signal with entity", "I earn 50000 a month", entityextractor.Entities{LoanIDs: []string{"50000"}}, Strict, false, false},
		{"bare loan ignored by default", "tell me about a loan", none, Loose, false, false},
		{"bare loan counted when enabled", "tell me about a loan", none, Loose, true, true},
		{"case insensitive", "TRACK my application", none, Loose, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(tt.includeLoan)
			assert.Equal(t, tt.expected, d.Detect(tt.text, tt.entities, tt.strictness))
		})
	}
}

func TestDetector_PhrasesStayOnOneLine(t *testing.T) {
	d := &Detector{}
	assert.True(t, d.Signals("loan 5 details"))
	assert.False(t, d.Signals("my loan\nwhat details"))
}

func TestStrictness_String(t *testing.T) {
	assert.Equal(t, "strict", Strict.String())
	assert.Equal(t, "loose", Loose.String())
}
