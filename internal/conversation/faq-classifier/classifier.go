// Package faqclassifier matches free-text questions against a catalog of FAQ
// intents using word overlap and a substring shortcut.
package faqclassifier

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"loan-assistant/internal/common/logger"
	"loan-assistant/internal/models"
)

const (
	DefaultThreshold     = 0.3
	DefaultShortcutScore = 0.8
	GreetingTag          = "greeting"
)

var (
	punctuation  = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s]`)
	nameQuestion = regexp.MustCompile(`\b(what('?s| is) my name|who am i|my name)\b`)
)

// Result is the outcome of Classify. Intent is nil when nothing matched.
type Result struct {
	Intent *models.Intent
	Score  float64
}

// Matched reports whether an intent was selected.
func (r Result) Matched() bool {
	return r.Intent != nil
}

// Tag returns the matched tag or "".
func (r Result) Tag() string {
	if r.Intent == nil {
		return ""
	}
	return r.Intent.Tag
}

type Config struct {
	Threshold     float64
	ShortcutScore float64
}

// Picker chooses an index in [0,n).
type Picker func(n int) int

type Classifier struct {
	config  Config
	catalog atomic.Pointer[Catalog]
	addMu   sync.Mutex
	pick    Picker
	logger  logger.Logger
}

// New builds a classifier over catalog. Zero config values fall back to the
// defaults; a nil picker selects uniformly at random.
func New(catalog *Catalog, config Config, pick Picker, log logger.Logger) (*Classifier, error) {
	if catalog == nil {
		return nil, fmt.Errorf("intent catalog is nil")
	}
	if config.Threshold <= 0 {
		config.Threshold = DefaultThreshold
	}
	if config.ShortcutScore <= 0 {
		config.ShortcutScore = DefaultShortcutScore
	}
	if pick == nil {
		pick = rand.IntN
	}

	c := &Classifier{
		config: config,
		pick:   pick,
		logger: log.With(map[string]interface{}{"component": "faq-classifier"}),
	}
	c.catalog.Store(catalog)
	return c, nil
}

// Catalog returns the current snapshot.
func (c *Classifier) Catalog() *Catalog {
	return c.catalog.Load()
}

// AddIntent publishes a new snapshot containing intent. Readers holding the
// previous snapshot are unaffected.
func (c *Classifier) AddIntent(intent models.Intent) error {
	c.addMu.Lock()
	defer c.addMu.Unlock()

	next, err := c.catalog.Load().With(intent)
	if err != nil {
		return err
	}
	c.catalog.Store(next)

	c.logger.Info("intent added", map[string]interface{}{
		"tag":      intent.Tag,
		"patterns": len(intent.Patterns),
	})
	return nil
}

// Classify scores input against every non-default intent. A pattern replaces
// the running best when its overlap score beats it and reaches the threshold,
// or when it occurs verbatim in the input and the shortcut score beats it.
// Ties keep the earlier intent.
func (c *Classifier) Classify(input string) Result {
	catalog := c.catalog.Load()
	inputWords := wordSet(input)
	lowerInput := strings.ToLower(input)

	var best Result
	for i := range catalog.intents {
		intent := &catalog.intents[i]
		if intent.IsDefault() {
			continue
		}
		for _, pattern := range intent.Patterns {
			score := overlap(inputWords, pattern)
			if score > best.Score && score >= c.config.Threshold {
				best = Result{Intent: intent, Score: score}
			}
			if strings.Contains(lowerInput, strings.ToLower(pattern)) && c.config.ShortcutScore > best.Score {
				best = Result{Intent: intent, Score: c.config.ShortcutScore}
			}
		}
	}
	return best
}

// Respond classifies input and picks a reply. ok is false when no intent
// matched; the caller then falls back. displayName personalizes greetings
// and answers name questions.
func (c *Classifier) Respond(input, displayName string) (reply string, result Result, ok bool) {
	result = c.Classify(input)
	if !result.Matched() {
		return "", result, false
	}

	responses := result.Intent.Responses
	reply = responses[c.pick(len(responses))]

	if displayName != "" {
		if result.Intent.Tag == GreetingTag {
			reply = fmt.Sprintf("Welcome %s! How can I assist you today?", displayName)
		}
		if nameQuestion.MatchString(strings.ToLower(input)) {
			reply = fmt.Sprintf("Your name is %s.", displayName)
		}
	}

	c.logger.Debug("intent matched", map[string]interface{}{
		"tag":   result.Intent.Tag,
		"score": result.Score,
	})
	return reply, result, true
}

// DefaultResponse is the first reply of the default intent.
func (c *Classifier) DefaultResponse() string {
	return c.catalog.Load().Default().Responses[0]
}

func normalize(text string) string {
	return punctuation.ReplaceAllString(strings.TrimSpace(strings.ToLower(text)), "")
}

func wordSet(text string) map[string]struct{} {
	fields := strings.Fields(normalize(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func overlap(inputWords map[string]struct{}, pattern string) float64 {
	patternWords := wordSet(pattern)
	if len(patternWords) == 0 {
		return 0
	}
	shared := 0
	for w := range patternWords {
		if _, ok := inputWords[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(patternWords))
}
