package validate

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/elements.schema.json
var elementsSchema string

var (
	once    sync.Once
	schema  *jsonschema.Schema
	loadErr error
)

func load() {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("elements.schema.json", bytes.NewReader([]byte(elementsSchema))); err != nil {
		loadErr = err
		return
	}
	s, err := c.Compile("elements.schema.json")
	if err != nil {
		loadErr = err
		return
	}
	schema = s
}

// Elements checks that raw is a JSON array of element objects, each with a
// string "type", and decodes it. Unknown keys are kept as-is.
func Elements(raw []byte) ([]map[string]any, error) {
	once.Do(load)
	if loadErr != nil {
		return nil, fmt.Errorf("load element schema: %w", loadErr)
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode elements: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("invalid elements: %w", err)
	}

	items := v.([]any)
	out := make([]map[string]any, len(items))
	for i, it := range items {
		out[i] = it.(map[string]any)
	}
	return out, nil
}
