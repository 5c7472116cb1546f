// Package statusintent decides whether a message asks about the status of a
// specific loan.
package statusintent

import (
	"regexp"
	"strings"

	entityextractor "loan-assistant/internal/conversation/entity-extractor"
)

// Strictness selects how much evidence a status inquiry needs.
type Strictness int

const (
	// Strict requires a keyword or phrase plus at least one extracted entity.
	Strict Strictness = iota
	// Loose accepts a keyword or phrase alone.
	Loose
)

func (s Strictness) String() string {
	if s == Loose {
		return "loose"
	}
	return "strict"
}

var keywords = []string{"status", "emi", "sanction", "due date", "details", "track", "check"}

var phrasePatterns = []*regexp.Regexp{
	regexp.MustCompile(`check.*?status`),
	regexp.MustCompile(`what.*?status`),
	regexp.MustCompile(`loan.*?status`),
	regexp.MustCompile(`status.*?loan`),
	regexp.MustCompile(`track.*?loan`),
	regexp.MustCompile(`loan.*?details`),
	regexp.MustCompile(`emi.*?details`),
	regexp.MustCompile(`sanction.*?details`),
	regexp.MustCompile(`when.*?emi.*?due`),
}

type Detector struct {
	keywords []string
}

// New returns a detector over the shared keyword and phrase tables. With
// includeLoanKeyword the bare word "loan" also counts as a keyword.
func New(includeLoanKeyword bool) *Detector {
	kw := append([]string(nil), keywords...)
	if includeLoanKeyword {
		kw = append(kw, "loan")
	}
	return &Detector{keywords: kw}
}

// Detect reports whether text is a status inquiry under the given strictness.
func (d *Detector) Detect(text string, entities entityextractor.Entities, strictness Strictness) bool {
	if !d.Signals(text) {
		return false
	}
	if strictness == Strict {
		return !entities.Empty()
	}
	return true
}

// Signals reports whether text carries a status keyword or phrase, ignoring
// entities.
func (d *Detector) Signals(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range d.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, re := range phrasePatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}
