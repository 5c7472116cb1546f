package faqclassifier

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	apperrors "loan-assistant/internal/common/errors"
	"loan-assistant/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed catalog.json
var builtinCatalog []byte

const catalogSchema = `{
  "type": "object",
  "required": ["intents"],
  "properties": {
    "intents": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["tag", "patterns", "responses"],
        "properties": {
          "tag": {"type": "string", "minLength": 1},
          "patterns": {"type": "array", "items": {"type": "string"}},
          "responses": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}}
        }
      }
    }
  }
}`

// Catalog is an immutable, ordered set of intents with unique tags. It always
// contains the default intent.
type Catalog struct {
	intents    []models.Intent
	defaultIdx int
}

// NewCatalog copies intents into a new catalog. Tags must be unique and a
// default intent must be present.
func NewCatalog(intents []models.Intent) (*Catalog, error) {
	seen := make(map[string]struct{}, len(intents))
	c := &Catalog{intents: make([]models.Intent, 0, len(intents)), defaultIdx: -1}

	for _, in := range intents {
		tag := strings.TrimSpace(in.Tag)
		if tag == "" {
			return nil, apperrors.NewIntentCatalogInvalidError("intent tag is empty")
		}
		if _, dup := seen[tag]; dup {
			return nil, apperrors.NewDuplicateIntentError(tag)
		}
		if len(in.Responses) == 0 {
			return nil, apperrors.NewIntentCatalogInvalidError(fmt.Sprintf("intent %q has no responses", tag))
		}
		seen[tag] = struct{}{}

		copied := models.Intent{
			Tag:       tag,
			Patterns:  append([]string(nil), in.Patterns...),
			Responses: append([]string(nil), in.Responses...),
		}
		if copied.IsDefault() {
			c.defaultIdx = len(c.intents)
		}
		c.intents = append(c.intents, copied)
	}

	if c.defaultIdx < 0 {
		return nil, apperrors.NewIntentCatalogInvalidError("catalog has no default intent")
	}
	return c, nil
}

// ParseCatalog validates data against the catalog schema and builds a Catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(catalogSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, apperrors.NewIntentCatalogInvalidError(err.Error())
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, apperrors.NewIntentCatalogInvalidError(strings.Join(errs, "; "))
	}

	var doc struct {
		Intents []models.Intent `json:"intents"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.NewIntentCatalogInvalidError(err.Error())
	}
	return NewCatalog(doc.Intents)
}

// LoadCatalogFile reads a JSON catalog from path.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read intent catalog: %w", err)
	}
	return ParseCatalog(data)
}

// DefaultCatalog returns the built-in loan FAQ catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(builtinCatalog)
	if err != nil {
		panic(fmt.Sprintf("built-in intent catalog is invalid: %v", err))
	}
	return c
}

// Intents returns a copy of the catalog in order.
func (c *Catalog) Intents() []models.Intent {
	return append([]models.Intent(nil), c.intents...)
}

// Tags returns every tag in catalog order, default included.
func (c *Catalog) Tags() []string {
	tags := make([]string, len(c.intents))
	for i, in := range c.intents {
		tags[i] = in.Tag
	}
	return tags
}

// Default returns the catch-all intent.
func (c *Catalog) Default() models.Intent {
	return c.intents[c.defaultIdx]
}

// With returns a new catalog with intent appended; c is left untouched.
func (c *Catalog) With(intent models.Intent) (*Catalog, error) {
	return NewCatalog(append(c.Intents(), intent))
}
