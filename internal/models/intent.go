// internal/models/intent.go
package models

// DefaultIntentTag names the catch-all intent. It is never matched by the
// classifier and only supplies the fallback reply.
const DefaultIntentTag = "default"

// Intent is one FAQ category: the phrases that identify it and the canned
// replies it can answer with.
type Intent struct {
	Tag       string   `json:"tag"`
	Patterns  []string `json:"patterns"`
	Responses []string `json:"responses"`
}

// IsDefault reports whether the intent is the catch-all.
func (i Intent) IsDefault() bool {
	return i.Tag == DefaultIntentTag
}
