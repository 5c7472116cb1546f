// Package entityextractor pulls loan identifiers and account numbers out of
// free-text messages.
package entityextractor

import (
	"fmt"
	"regexp"
	"strings"
)

const DefaultAccountPrefix = "BHLPL"

var (
	loanIDPattern = regexp.MustCompile(`\b(\d+)\b`)
	prefixPattern = regexp.MustCompile(`^[A-Za-z]+$`)
)

// Entities holds every candidate in order of first appearance. Duplicates are
// kept.
type Entities struct {
	LoanIDs        []string `json:"loanIds"`
	AccountNumbers []string `json:"accountNumbers"`
}

// LoanID returns the first loan id candidate.
func (e Entities) LoanID() (string, bool) {
	if len(e.LoanIDs) == 0 {
		return "", false
	}
	return e.LoanIDs[0], true
}

// AccountNumber returns the first account number candidate.
func (e Entities) AccountNumber() (string, bool) {
	if len(e.AccountNumbers) == 0 {
		return "", false
	}
	return e.AccountNumbers[0], true
}

// Empty reports whether neither kind of entity was found.
func (e Entities) Empty() bool {
	return len(e.LoanIDs) == 0 && len(e.AccountNumbers) == 0
}

type Extractor struct {
	accountPattern *regexp.Regexp
}

// New builds an extractor for account numbers of the form <prefix><digits>.
// The prefix is matched case-insensitively.
func New(accountPrefix string) (*Extractor, error) {
	if accountPrefix == "" {
		accountPrefix = DefaultAccountPrefix
	}
	if !prefixPattern.MatchString(accountPrefix) {
		return nil, fmt.Errorf("account prefix %q must be letters only", accountPrefix)
	}
	pattern := `\b(` + strings.ToUpper(accountPrefix) + `\d+)\b`
	return &Extractor{accountPattern: regexp.MustCompile(pattern)}, nil
}

// Extract never fails; an empty message yields empty Entities. Loan ids are
// matched against the text as given and account numbers against its
// upper-cased form, so accounts are always returned upper-cased.
func (x *Extractor) Extract(text string) Entities {
	return Entities{
		LoanIDs:        findAll(loanIDPattern, text),
		AccountNumbers: findAll(x.accountPattern, strings.ToUpper(text)),
	}
}

func findAll(re *regexp.Regexp, text string) []string {
	matches := re.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}
