package catalogs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	schemaOnce sync.Once
	schemas    map[string]*jsonschema.Schema
	schemaErr  error
)

func compileSchemas() {
	c := jsonschema.NewCompiler()
	schemas = map[string]*jsonschema.Schema{}
	for _, name := range catalogFiles {
		url := "schemas/" + schemaName(name)
		raw, err := embedded.ReadFile(url)
		if err != nil {
			schemaErr = err
			return
		}
		if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
			schemaErr = fmt.Errorf("%s: %w", url, err)
			return
		}
	}
	for _, name := range catalogFiles {
		url := "schemas/" + schemaName(name)
		s, err := c.Compile(url)
		if err != nil {
			schemaErr = fmt.Errorf("%s: %w", url, err)
			return
		}
		schemas[name] = s
	}
}

func schemaName(file string) string {
	return strings.TrimSuffix(file, ".json") + ".schema.json"
}

// validateRaw checks one catalog file against its embedded JSON Schema.
func validateRaw(name string, raw []byte) error {
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return schemaErr
	}
	s, ok := schemas[name]
	if !ok {
		return fmt.Errorf("%s: no schema", name)
	}
	// Numbers stay json.Number so integer keywords see 3 rather than 3.0.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
