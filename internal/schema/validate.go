// Package schema provides JSON schema validation for cruisegrader configuration files.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	schemafs "github.com/Sankatt/cruisegrader/schema"
)

var (
	configSchema   *jsonschema.Schema
	patternsSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
)

// compileSchemas compiles all embedded schemas once.
func compileSchemas() error {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()

		for _, name := range []string{"config.schema.json", "patterns.schema.json"} {
			data, err := schemafs.FS.ReadFile(name)
			if err != nil {
				compileErr = fmt.Errorf("read %s: %w", name, err)
				return
			}
			doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
			if err != nil {
				compileErr = fmt.Errorf("unmarshal %s: %w", name, err)
				return
			}
			if err := compiler.AddResource(name, doc); err != nil {
				compileErr = fmt.Errorf("add %s resource: %w", name, err)
				return
			}
		}

		var err error
		configSchema, err = compiler.Compile("config.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile config schema: %w", err)
			return
		}

		patternsSchema, err = compiler.Compile("patterns.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile patterns schema: %w", err)
			return
		}
	})

	return compileErr
}

// normalize round-trips a decoded document through JSON so that values
// produced by the YAML decoder (typed ints, map[string]any) validate the
// same way JSON-decoded ones do.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}

// ValidateConfig validates a decoded configuration document against the
// config schema.
func ValidateConfig(doc any) error {
	if err := compileSchemas(); err != nil {
		return err
	}

	v, err := normalize(doc)
	if err != nil {
		return err
	}

	if err := configSchema.Validate(v); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

// ValidatePatterns validates a decoded pattern-table document against the
// patterns schema.
func ValidatePatterns(doc any) error {
	if err := compileSchemas(); err != nil {
		return err
	}

	v, err := normalize(doc)
	if err != nil {
		return err
	}

	if err := patternsSchema.Validate(v); err != nil {
		return fmt.Errorf("patterns validation failed: %w", err)
	}

	return nil
}
