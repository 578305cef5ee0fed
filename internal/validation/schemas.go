package validation

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"planforge/pkg/types"
)

// Per-task minimum shapes. Domain rules beyond shape live in rules.go.
const layoutSchema = `{
	"type": "object",
	"required": ["rooms", "walls", "doors", "windows", "confidence"],
	"properties": {
		"rooms": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name"],
				"properties": {
					"id": {"type": "string"},
					"name": {"type": "string"},
					"type": {"type": "string"},
					"area_m2": {"type": "number"}
				}
			}
		},
		"walls": {"type": "array"},
		"doors": {"type": "array"},
		"windows": {"type": "array"},
		"confidence": {"type": "number"}
	}
}`

const roomSchema = `{
	"type": "object",
	"required": ["dimensions", "furniture", "lighting", "materials", "confidence"],
	"properties": {
		"dimensions": {"type": "object"},
		"furniture": {"type": "array"},
		"lighting": {"type": "array"},
		"materials": {"type": "object"},
		"confidence": {"type": "number"}
	}
}`

const validateSchema = `{
	"type": "object",
	"required": ["is_valid", "compliance_score", "errors", "warnings"],
	"properties": {
		"is_valid": {"type": "boolean"},
		"compliance_score": {"type": "number"},
		"errors": {"type": "array", "items": {"type": "string"}},
		"warnings": {"type": "array", "items": {"type": "string"}},
		"confidence": {"type": "number"}
	}
}`

const analyzeSchema = `{
	"type": "object",
	"required": ["findings", "confidence"],
	"properties": {
		"findings": {"type": "array"},
		"requirements": {"type": "array"},
		"risks": {"type": "array"},
		"confidence": {"type": "number"}
	}
}`

const customSchema = `{
	"type": "object",
	"required": ["confidence"],
	"properties": {
		"confidence": {"type": "number"}
	}
}`

// compileSchemas builds the per-task schema set once at startup
func compileSchemas() (map[types.TaskType]*jsonschema.Schema, error) {
	sources := map[types.TaskType]string{
		types.TaskLayout:   layoutSchema,
		types.TaskRoom:     roomSchema,
		types.TaskValidate: validateSchema,
		types.TaskAnalyze:  analyzeSchema,
		types.TaskCustom:   customSchema,
	}

	compiler := jsonschema.NewCompiler()
	for task, src := range sources {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("invalid %s schema: %w", task, err)
		}
		if err := compiler.AddResource(string(task)+".json", doc); err != nil {
			return nil, fmt.Errorf("failed to add %s schema: %w", task, err)
		}
	}

	schemas := make(map[types.TaskType]*jsonschema.Schema, len(sources))
	for task := range sources {
		schema, err := compiler.Compile(string(task) + ".json")
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s schema: %w", task, err)
		}
		schemas[task] = schema
	}
	return schemas, nil
}
