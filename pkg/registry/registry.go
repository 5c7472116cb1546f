package registry

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed activities.json
var builtin []byte

var ErrUnknownActivity = errors.New("UNKNOWN_ACTIVITY")

// LoadRegistry reads a registry file.
func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("decode activity registry: %w", err)
	}
	return &reg, nil
}

// Default returns the registry compiled into the binary.
func Default() *ActivityRegistry {
	reg, err := Parse(builtin)
	if err != nil {
		panic(err)
	}
	return reg
}

// Activity looks up an activity by task type.
func (r *ActivityRegistry) Activity(taskType string) (Activity, error) {
	for _, a := range r.Activities {
		if a.TaskType == taskType {
			return a, nil
		}
	}
	return Activity{}, fmt.Errorf("%w: %s", ErrUnknownActivity, taskType)
}

// ValidateInput checks job variables against the input schema. An activity
// without a schema accepts anything.
func (a Activity) ValidateInput(variables []byte) error {
	return validate(a.InputSchema, variables)
}

// ValidateOutput checks produced variables against the output schema.
func (a Activity) ValidateOutput(variables []byte) error {
	return validate(a.OutputSchema, variables)
}

func validate(schema json.RawMessage, doc []byte) error {
	if len(schema) == 0 {
		return nil
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid variables: %s", strings.Join(msgs, "; "))
}
